package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"veritag/internal/artifact"
	"veritag/internal/chain"
	"veritag/internal/domain"
	"veritag/internal/ledger"

	"go.uber.org/zap"
)

var (
	ErrRegistration    = errors.New("registration failed")
	ErrProductNotFound = errors.New("product not found")
)

// LedgerStats are backend totals for the analytics view.
type LedgerStats struct {
	TotalProducts int    `json:"total_products"`
	TotalScans    int    `json:"total_scans"`
	Source        string `json:"source"`
}

// ProductService registers products on the selected backend and serves the
// manufacturer's view of them.
type ProductService interface {
	// Register persists a new record and generates its scannable artifact.
	// When only the artifact step fails, the returned product is non-nil and
	// the error wraps artifact.ErrArtifact: registration succeeded, the
	// artifact can be regenerated later.
	Register(ctx context.Context, attrs domain.Attributes, mode domain.BackendMode) (*domain.Product, error)
	RegenerateArtifact(ctx context.Context, key string) (*domain.Product, error)
	List(ctx context.Context, mode domain.BackendMode) ([]*domain.Product, error)
	Stats(ctx context.Context, mode domain.BackendMode) (*LedgerStats, error)
}

type productService struct {
	store     *ledger.Store
	chain     chain.Client
	artifacts artifact.Generator
	logger    *zap.Logger
}

// NewProductService creates a new instance of ProductService.
func NewProductService(store *ledger.Store, chainClient chain.Client, artifacts artifact.Generator, logger *zap.Logger) ProductService {
	return &productService{
		store:     store,
		chain:     chainClient,
		artifacts: artifacts,
		logger:    logger,
	}
}

func (s *productService) Register(ctx context.Context, attrs domain.Attributes, mode domain.BackendMode) (*domain.Product, error) {
	// Validation failures are reported before any backend is touched.
	if err := attrs.Validate(); err != nil {
		return nil, err
	}
	if !mode.Valid() {
		return nil, fmt.Errorf("unknown backend mode %q", mode)
	}

	if mode == domain.BackendChain {
		return s.registerOnChain(ctx, attrs)
	}
	return s.registerLocally(ctx, attrs)
}

// registerOnChain submits the record to the gateway first; only after the
// chain accepted it is anything cached locally, so a failed registration
// never leaves a partial cache entry. The full merged record (attributes,
// key, artifact) is cached locally because the chain does not store
// artifacts.
func (s *productService) registerOnChain(ctx context.Context, attrs domain.Attributes) (*domain.Product, error) {
	key, err := s.chain.Register(ctx, attrs)
	if err != nil {
		return nil, fmt.Errorf("%w on chain backend: %w", ErrRegistration, err)
	}

	product := newProduct(attrs, key)
	product.RegisteredBy = s.chain.Identity()

	artifactErr := s.attachArtifact(product)

	if _, err := s.store.Put(ctx, product); err != nil {
		s.logger.Warn("Failed to cache chain registration locally", zap.String("key", key), zap.Error(err))
	} else {
		s.flush(ctx)
	}

	return product, artifactErr
}

func (s *productService) registerLocally(ctx context.Context, attrs domain.Attributes) (*domain.Product, error) {
	product := newProduct(attrs, "")

	key, err := s.store.Put(ctx, product)
	if err != nil {
		return nil, fmt.Errorf("%w on local backend: %w", ErrRegistration, err)
	}
	product.LedgerKey = key

	artifactErr := s.attachArtifact(product)
	if artifactErr == nil {
		// Same key, upsert: the record now carries its artifact reference.
		if _, err := s.store.Put(ctx, product); err != nil {
			s.logger.Warn("Failed to attach artifact to record", zap.String("key", key), zap.Error(err))
		}
	}
	s.flush(ctx)

	return product, artifactErr
}

func (s *productService) RegenerateArtifact(ctx context.Context, key string) (*domain.Product, error) {
	product, err := s.store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, ErrProductNotFound
	}

	ref, err := s.artifacts.Generate(key)
	if err != nil {
		return nil, err
	}
	product.QRCode = ref

	if _, err := s.store.Put(ctx, product); err != nil {
		return nil, err
	}
	s.flush(ctx)

	return product, nil
}

// List returns the manufacturer's records: in chain mode the records the
// gateway attributes to the session identity, with locally cached artifacts
// reattached; in local mode everything in the local ledger.
func (s *productService) List(ctx context.Context, mode domain.BackendMode) ([]*domain.Product, error) {
	if mode != domain.BackendChain {
		return s.store.ListAll(ctx)
	}

	products, err := s.chain.ListMine(ctx)
	if err != nil {
		return nil, err
	}

	for _, p := range products {
		if cached, _ := s.store.Get(ctx, p.LedgerKey); cached != nil && cached.QRCode != "" {
			p.QRCode = cached.QRCode
		}
	}

	return products, nil
}

func (s *productService) Stats(ctx context.Context, mode domain.BackendMode) (*LedgerStats, error) {
	if mode == domain.BackendChain {
		stats, err := s.chain.Stats(ctx)
		if err != nil {
			return nil, err
		}
		return &LedgerStats{
			TotalProducts: stats.TotalProducts,
			TotalScans:    stats.TotalScans,
			Source:        domain.SourceChain,
		}, nil
	}

	totalProducts, totalScans, err := s.store.Stats(ctx)
	if err != nil {
		return nil, err
	}
	return &LedgerStats{
		TotalProducts: totalProducts,
		TotalScans:    totalScans,
		Source:        domain.SourceLocal,
	}, nil
}

// attachArtifact renders the QR artifact and attaches its reference. The
// error (if any) wraps artifact.ErrArtifact and is reported alongside the
// completed registration.
func (s *productService) attachArtifact(product *domain.Product) error {
	ref, err := s.artifacts.Generate(product.LedgerKey)
	if err != nil {
		s.logger.Warn("Artifact generation failed, registration completes without one",
			zap.String("key", product.LedgerKey),
			zap.Error(err),
		)
		return err
	}
	product.QRCode = ref
	return nil
}

func (s *productService) flush(ctx context.Context) {
	if err := s.store.Flush(ctx); err != nil {
		s.logger.Warn("Failed to persist local ledger", zap.Error(err))
	}
}

func newProduct(attrs domain.Attributes, key string) *domain.Product {
	return &domain.Product{
		ID:           attrs.ID,
		Name:         attrs.Name,
		Manufacturer: attrs.Manufacturer,
		Description:  attrs.Description,
		Price:        attrs.Price,
		Category:     attrs.Category,
		LedgerKey:    key,
		CreatedAt:    time.Now(),
		ScanCount:    0,
		IsActive:     true,
	}
}
