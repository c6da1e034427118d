package service

import (
	"context"
	"fmt"
	"sync"

	"veritag/internal/artifact"
	"veritag/internal/chain"
	"veritag/internal/domain"
	"veritag/internal/ledger"

	"go.uber.org/zap"
)

// stubChain is an in-memory chain.Client whose behavior individual tests
// override through the function fields.
type stubChain struct {
	mu       sync.Mutex
	products map[string]*domain.Product
	scans    map[string]int
	identity string

	registerFn func(ctx context.Context, attrs domain.Attributes) (string, error)
	scanFn     func(ctx context.Context, key string) (int, error)
	getFn      func(ctx context.Context, key string) (*domain.Product, error)
}

func newStubChain() *stubChain {
	return &stubChain{
		products: make(map[string]*domain.Product),
		scans:    make(map[string]int),
		identity: "0xstub",
	}
}

func (c *stubChain) Connect(ctx context.Context) error { return nil }
func (c *stubChain) IsConnected() bool                 { return true }
func (c *stubChain) Identity() string                  { return c.identity }
func (c *stubChain) Network() chain.NetworkInfo {
	return chain.NetworkInfo{Name: "stubnet", ChainID: 1}
}

func (c *stubChain) Register(ctx context.Context, attrs domain.Attributes) (string, error) {
	if c.registerFn != nil {
		return c.registerFn(ctx, attrs)
	}

	key := ledger.DeriveKey(attrs, ledger.NewSalt())
	p := &domain.Product{
		ID:           attrs.ID,
		Name:         attrs.Name,
		Manufacturer: attrs.Manufacturer,
		Description:  attrs.Description,
		Price:        attrs.Price,
		Category:     attrs.Category,
		LedgerKey:    key,
		RegisteredBy: c.identity,
		IsActive:     true,
	}

	c.mu.Lock()
	c.products[key] = p
	c.mu.Unlock()

	return key, nil
}

func (c *stubChain) Scan(ctx context.Context, key string) (int, error) {
	if c.scanFn != nil {
		return c.scanFn(ctx, key)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.products[key]; !ok {
		return 0, fmt.Errorf("%w: no record under %s", chain.ErrTransaction, key)
	}
	c.scans[key]++
	return c.scans[key], nil
}

func (c *stubChain) Get(ctx context.Context, key string) (*domain.Product, error) {
	if c.getFn != nil {
		return c.getFn(ctx, key)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	p, ok := c.products[key]
	if !ok {
		return nil, nil
	}
	cp := p.Clone()
	cp.ScanCount = c.scans[key]
	return cp, nil
}

func (c *stubChain) ListMine(ctx context.Context) ([]*domain.Product, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]*domain.Product, 0, len(c.products))
	for key, p := range c.products {
		if p.RegisteredBy == c.identity {
			cp := p.Clone()
			cp.ScanCount = c.scans[key]
			out = append(out, cp)
		}
	}
	return out, nil
}

func (c *stubChain) ListAll(ctx context.Context) ([]*domain.Product, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]*domain.Product, 0, len(c.products))
	for key, p := range c.products {
		cp := p.Clone()
		cp.ScanCount = c.scans[key]
		out = append(out, cp)
	}
	return out, nil
}

func (c *stubChain) Stats(ctx context.Context) (*chain.Stats, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	total := 0
	for _, n := range c.scans {
		total += n
	}
	return &chain.Stats{TotalProducts: len(c.products), TotalScans: total}, nil
}

// stubGenerator records generated keys; failNext makes the next call fail.
type stubGenerator struct {
	mu       sync.Mutex
	keys     []string
	failNext bool
}

func (g *stubGenerator) Generate(key string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.failNext {
		g.failNext = false
		return "", fmt.Errorf("%w: disk full", artifact.ErrArtifact)
	}
	g.keys = append(g.keys, key)
	return key + ".png", nil
}

func newTestStore() *ledger.Store {
	logger, _ := zap.NewDevelopment()
	return ledger.NewStore(ledger.NewMemoryBlobStore(), logger)
}

func testAttrs(name string) domain.Attributes {
	return domain.Attributes{
		ID:           "SKU-1",
		Name:         name,
		Manufacturer: "Acme",
		Description:  "A test product",
		Price:        9.99,
		Category:     "Tools",
	}
}
