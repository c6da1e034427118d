package chain

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"veritag/internal/domain"
	"veritag/internal/ledger"

	"go.uber.org/zap"
)

// NetworkInfo identifies the consensus network a session is attached to.
type NetworkInfo struct {
	Name    string `json:"name"`
	ChainID int64  `json:"chain_id"`
}

// Stats are the gateway-wide totals.
type Stats struct {
	TotalProducts int `json:"total_products"`
	TotalScans    int `json:"total_scans"`
}

// Client defines the remote ledger operations. Every call may block on a
// network round-trip and honors context cancellation; every call other than
// Connect fails fast with ErrNotConnected when no session exists.
type Client interface {
	Connect(ctx context.Context) error
	IsConnected() bool
	Identity() string
	Network() NetworkInfo

	Register(ctx context.Context, attrs domain.Attributes) (string, error)
	Scan(ctx context.Context, key string) (int, error)
	Get(ctx context.Context, key string) (*domain.Product, error)
	ListMine(ctx context.Context) ([]*domain.Product, error)
	ListAll(ctx context.Context) ([]*domain.Product, error)
	Stats(ctx context.Context) (*Stats, error)
}

type session struct {
	Token   string      `json:"token"`
	Address string      `json:"address"`
	Network NetworkInfo `json:"network"`
}

// HTTPClient talks JSON over HTTP to a consensus-ledger gateway. The gateway
// itself (ordering, consensus, multi-writer consistency) is opaque; this
// client only submits records and scans and reads back authoritative state.
type HTTPClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
	logger  *zap.Logger
	session *session
}

// NewHTTPClient builds a client for the gateway at baseURL. The API key
// authenticates the session handshake.
func NewHTTPClient(baseURL, apiKey string, logger *zap.Logger) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 30 * time.Second},
		logger:  logger,
	}
}

// Connect performs the session handshake. On success the client holds a
// bearer token plus the signing identity and network metadata the gateway
// attributes records to.
func (c *HTTPClient) Connect(ctx context.Context) error {
	body, _ := json.Marshal(map[string]string{"api_key": c.apiKey})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/session", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrConnection, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return wrapTransport(ctx, ErrConnection, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: handshake returned %s", ErrConnection, resp.Status)
	}

	var sess session
	if err := json.NewDecoder(resp.Body).Decode(&sess); err != nil {
		return fmt.Errorf("%w: malformed handshake response: %w", ErrConnection, err)
	}

	c.session = &sess
	c.logger.Info("Chain session established",
		zap.String("address", sess.Address),
		zap.String("network", sess.Network.Name),
		zap.Int64("chain_id", sess.Network.ChainID),
	)

	return nil
}

// IsConnected reports whether a session handshake has succeeded.
func (c *HTTPClient) IsConnected() bool {
	return c.session != nil
}

// Identity returns the signing identity address of the current session, or
// an empty string when not connected.
func (c *HTTPClient) Identity() string {
	if c.session == nil {
		return ""
	}
	return c.session.Address
}

// Network returns the network metadata of the current session.
func (c *HTTPClient) Network() NetworkInfo {
	if c.session == nil {
		return NetworkInfo{}
	}
	return c.session.Network
}

// Register derives the ledger key client-side and submits it together with
// the record, so the gateway stores the product under exactly the key the
// local backend would have used.
func (c *HTTPClient) Register(ctx context.Context, attrs domain.Attributes) (string, error) {
	if c.session == nil {
		return "", ErrNotConnected
	}

	key := ledger.DeriveKey(attrs, ledger.NewSalt())

	payload := struct {
		Key          string `json:"key"`
		ID           string `json:"id"`
		Name         string `json:"name"`
		Manufacturer string `json:"manufacturer"`
		Description  string `json:"description"`
		PriceUnits   int64  `json:"price_units"`
		Category     string `json:"category"`
	}{
		Key:          key,
		ID:           attrs.ID,
		Name:         attrs.Name,
		Manufacturer: attrs.Manufacturer,
		Description:  attrs.Description,
		PriceUnits:   encodePrice(attrs.Price),
		Category:     attrs.Category,
	}

	if err := c.post(ctx, "/v1/products", payload, nil); err != nil {
		return "", err
	}

	c.logger.Info("Product registered on chain", zap.String("key", key))
	return key, nil
}

// Scan submits an increment for the record under key and returns the
// authoritative post-increment count from the gateway's scan event. When the
// gateway confirms the write without surfacing a count, the count degrades
// to 1 rather than failing the verification.
func (c *HTTPClient) Scan(ctx context.Context, key string) (int, error) {
	if c.session == nil {
		return 0, ErrNotConnected
	}

	var event struct {
		ScanCount int `json:"scan_count"`
	}
	if err := c.post(ctx, "/v1/products/"+key+"/scan", nil, &event); err != nil {
		return 0, err
	}

	if event.ScanCount < 1 {
		c.logger.Warn("Scan confirmed without a count, assuming first scan",
			zap.String("key", key),
		)
		return 1, nil
	}

	return event.ScanCount, nil
}

// Get fetches the record under key. It returns (nil, nil) when the gateway
// holds no record under that key.
func (c *HTTPClient) Get(ctx context.Context, key string) (*domain.Product, error) {
	if c.session == nil {
		return nil, ErrNotConnected
	}

	var wire wireProduct
	found, err := c.get(ctx, "/v1/products/"+key, &wire)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}

	return wire.toDomain(key), nil
}

// ListMine returns the records attributed to the session identity, in the
// order the gateway reports their keys.
func (c *HTTPClient) ListMine(ctx context.Context) ([]*domain.Product, error) {
	if c.session == nil {
		return nil, ErrNotConnected
	}
	return c.fetchKeys(ctx, "/v1/accounts/"+c.session.Address+"/products")
}

// ListAll returns every record the gateway knows about.
func (c *HTTPClient) ListAll(ctx context.Context) ([]*domain.Product, error) {
	if c.session == nil {
		return nil, ErrNotConnected
	}
	return c.fetchKeys(ctx, "/v1/products")
}

// Stats returns the gateway-wide record and scan totals.
func (c *HTTPClient) Stats(ctx context.Context) (*Stats, error) {
	if c.session == nil {
		return nil, ErrNotConnected
	}

	var stats Stats
	found, err := c.get(ctx, "/v1/stats", &stats)
	if err != nil {
		return nil, err
	}
	if !found {
		return &Stats{}, nil
	}
	return &stats, nil
}

// fetchKeys reads a key listing and resolves each key to a full record,
// skipping keys that disappear between the listing and the fetch.
func (c *HTTPClient) fetchKeys(ctx context.Context, path string) ([]*domain.Product, error) {
	var listing struct {
		Keys []string `json:"keys"`
	}
	if _, err := c.get(ctx, path, &listing); err != nil {
		return nil, err
	}

	products := make([]*domain.Product, 0, len(listing.Keys))
	for _, key := range listing.Keys {
		p, err := c.Get(ctx, key)
		if err != nil {
			return nil, err
		}
		if p != nil {
			products = append(products, p)
		}
	}

	return products, nil
}

func (c *HTTPClient) post(ctx context.Context, path string, payload, out interface{}) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrTransaction, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrTransaction, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.session.Token)

	resp, err := c.http.Do(req)
	if err != nil {
		return wrapTransport(ctx, ErrTransaction, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("%w: gateway returned %s", ErrTransaction, resp.Status)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("%w: malformed gateway response: %w", ErrTransaction, err)
		}
	}

	return nil
}

// get performs a read; found is false for a 404.
func (c *HTTPClient) get(ctx context.Context, path string, out interface{}) (found bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrConnection, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.session.Token)

	resp, err := c.http.Do(req)
	if err != nil {
		return false, wrapTransport(ctx, ErrConnection, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return false, nil
	}
	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("%w: gateway returned %s", ErrConnection, resp.Status)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return false, fmt.Errorf("%w: malformed gateway response: %w", ErrConnection, err)
	}

	return true, nil
}
