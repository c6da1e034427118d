package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"veritag/internal/domain"

	"go.uber.org/zap"
)

// blobKey is the fixed key the serialized ledger lives under in the durable
// medium.
const blobKey = "ledger_products"

// BlobStore is the durable medium the local ledger persists through. Read
// returns (nil, nil) when no blob exists under the key.
type BlobStore interface {
	Read(ctx context.Context, key string) ([]byte, error)
	Write(ctx context.Context, key string, data []byte) error
	Close() error
}

// entry is the persisted (key, record) pair.
type entry struct {
	Key     string          `json:"key"`
	Product *domain.Product `json:"product"`
}

// Store is the local authoritative ledger: an in-memory map of products
// keyed by ledger key, persisted wholesale as a single blob. It is
// constructed once at process start and passed to the orchestrators.
//
// IncrementScan holds the store lock for the whole read-modify-write, so a
// concurrent verification of the same key never observes the count and the
// timestamp out of step.
type Store struct {
	mu      sync.Mutex
	records map[string]*domain.Product
	order   []string
	medium  BlobStore
	logger  *zap.Logger
}

// NewStore creates an empty store backed by the given durable medium. Call
// Load before first use and Flush before shutdown.
func NewStore(medium BlobStore, logger *zap.Logger) *Store {
	return &Store{
		records: make(map[string]*domain.Product),
		medium:  medium,
		logger:  logger,
	}
}

// Load replaces the in-memory map with the persisted blob. A missing or
// corrupt blob resets the store to empty; corruption is logged and never
// surfaced to the caller.
func (s *Store) Load(ctx context.Context) error {
	data, err := s.medium.Read(ctx, blobKey)
	if err != nil {
		return fmt.Errorf("failed to read ledger blob: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = make(map[string]*domain.Product)
	s.order = nil

	if data == nil {
		return nil
	}

	var entries []entry
	if err := json.Unmarshal(data, &entries); err != nil {
		s.logger.Warn("Ledger blob is corrupt, starting from an empty store",
			zap.Error(err),
		)
		return nil
	}

	for _, e := range entries {
		if e.Key == "" || e.Product == nil {
			continue
		}
		if _, exists := s.records[e.Key]; !exists {
			s.order = append(s.order, e.Key)
		}
		s.records[e.Key] = e.Product
	}

	return nil
}

// Flush persists the current map as an ordered sequence of (key, record)
// pairs.
func (s *Store) Flush(ctx context.Context) error {
	s.mu.Lock()
	entries := make([]entry, 0, len(s.order))
	for _, key := range s.order {
		entries = append(entries, entry{Key: key, Product: s.records[key]})
	}
	s.mu.Unlock()

	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("failed to serialize ledger: %w", err)
	}

	if err := s.medium.Write(ctx, blobKey, data); err != nil {
		return fmt.Errorf("failed to write ledger blob: %w", err)
	}

	return nil
}

// Put upserts a product and returns the ledger key used. A product that
// already carries a key keeps it (re-caching a chain record, or re-putting a
// record with its artifact attached); otherwise a key is derived from the
// attributes and a fresh salt. Last write wins. Persistence is a separate,
// explicit Flush call.
func (s *Store) Put(ctx context.Context, p *domain.Product) (string, error) {
	key := p.LedgerKey
	if key == "" {
		key = DeriveKey(domain.Attributes{
			ID:           p.ID,
			Name:         p.Name,
			Manufacturer: p.Manufacturer,
			Description:  p.Description,
			Price:        p.Price,
			Category:     p.Category,
		}, NewSalt())
	}

	stored := p.Clone()
	stored.LedgerKey = key
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now()
	}

	s.mu.Lock()
	if _, exists := s.records[key]; !exists {
		s.order = append(s.order, key)
	}
	s.records[key] = stored
	s.mu.Unlock()

	return key, nil
}

// Get returns a copy of the record under key, or nil when unknown.
func (s *Store) Get(ctx context.Context, key string) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.records[key]
	if !ok {
		return nil, nil
	}
	return p.Clone(), nil
}

// IncrementScan atomically bumps the scan counter and stamps the scan time.
// It returns the updated record, or nil when the key is unknown (a no-op).
func (s *Store) IncrementScan(ctx context.Context, key string) (*domain.Product, error) {
	s.mu.Lock()
	p, ok := s.records[key]
	if !ok {
		s.mu.Unlock()
		return nil, nil
	}

	now := time.Now()
	p.ScanCount++
	p.LastScannedAt = &now
	updated := p.Clone()
	s.mu.Unlock()

	return updated, nil
}

// ListAll returns copies of every record in insertion order. The order
// carries no semantic meaning.
func (s *Store) ListAll(ctx context.Context) ([]*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	products := make([]*domain.Product, 0, len(s.order))
	for _, key := range s.order {
		products = append(products, s.records[key].Clone())
	}
	return products, nil
}

// Close closes the durable medium. Flush first; Close does not persist.
func (s *Store) Close() error {
	return s.medium.Close()
}

// Stats returns the number of records and the sum of their scan counters.
func (s *Store) Stats(ctx context.Context) (totalProducts, totalScans int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range s.records {
		totalScans += p.ScanCount
	}
	return len(s.records), totalScans, nil
}
