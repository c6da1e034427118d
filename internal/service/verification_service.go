package service

import (
	"context"
	"errors"
	"fmt"

	"veritag/internal/chain"
	"veritag/internal/domain"
	"veritag/internal/ledger"

	"go.uber.org/zap"
)

// VerificationService answers whether a presented ledger key belongs to a
// genuine product and whether it has been presented suspiciously often.
//
// Verification is not idempotent: every successful verification increments
// the stored scan counter. The counter itself is the duplication signal.
type VerificationService interface {
	Verify(ctx context.Context, key string, mode domain.BackendMode) (*domain.VerificationResult, error)
}

type verificationService struct {
	store  *ledger.Store
	chain  chain.Client
	logger *zap.Logger
}

// NewVerificationService creates a new instance of VerificationService.
func NewVerificationService(store *ledger.Store, chainClient chain.Client, logger *zap.Logger) VerificationService {
	return &verificationService{
		store:  store,
		chain:  chainClient,
		logger: logger,
	}
}

// Verify looks the key up on the selected backend, increments its scan
// counter and classifies the outcome. In chain mode any chain failure other
// than caller cancellation degrades to a local lookup for this one request;
// a cancelled call leaves ledger state untouched and surfaces the
// cancellation itself.
func (s *verificationService) Verify(ctx context.Context, key string, mode domain.BackendMode) (*domain.VerificationResult, error) {
	if !mode.Valid() {
		return nil, fmt.Errorf("unknown backend mode %q", mode)
	}

	if mode == domain.BackendChain {
		result, err := s.verifyOnChain(ctx, key)
		if err == nil {
			return result, nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}

		s.logger.Warn("Chain verification failed, falling back to local ledger",
			zap.String("key", key),
			zap.Error(err),
		)
	}

	return s.verifyLocally(ctx, key)
}

func (s *verificationService) verifyOnChain(ctx context.Context, key string) (*domain.VerificationResult, error) {
	record, err := s.chain.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return notFoundResult(domain.SourceChain), nil
	}

	count, err := s.chain.Scan(ctx, key)
	if err != nil {
		return nil, err
	}
	record.ScanCount = count

	// Mirror the chain record into the local cache so a previously generated
	// artifact stays attached. The merge only reattaches an artifact that is
	// already cached locally; it never fabricates one.
	if cached, _ := s.store.Get(ctx, key); cached != nil && cached.QRCode != "" {
		record.QRCode = cached.QRCode
	}
	if _, err := s.store.Put(ctx, record); err != nil {
		s.logger.Warn("Failed to cache chain record locally", zap.String("key", key), zap.Error(err))
	} else if err := s.store.Flush(ctx); err != nil {
		s.logger.Warn("Failed to persist local ledger", zap.Error(err))
	}

	return classify(record, count, domain.SourceChain), nil
}

func (s *verificationService) verifyLocally(ctx context.Context, key string) (*domain.VerificationResult, error) {
	record, err := s.store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return notFoundResult(domain.SourceLocal), nil
	}

	updated, err := s.store.IncrementScan(ctx, key)
	if err != nil {
		return nil, err
	}
	if err := s.store.Flush(ctx); err != nil {
		s.logger.Warn("Failed to persist local ledger", zap.Error(err))
	}

	return classify(updated, updated.ScanCount, domain.SourceLocal), nil
}

func notFoundResult(source string) *domain.VerificationResult {
	return &domain.VerificationResult{
		Genuine: false,
		Source:  source,
		Message: fmt.Sprintf("Product not found on the %s ledger. This product may be counterfeit.", source),
	}
}

// classify applies the uniform rule: one scan is a clean verification, more
// than one flags the key as suspicious. Suspicious does not distinguish a
// twice-scanned genuine item from a copied label.
func classify(record *domain.Product, count int, source string) *domain.VerificationResult {
	result := &domain.VerificationResult{
		Genuine:   true,
		ScanCount: count,
		Source:    source,
		Record:    record,
	}

	if count > 1 {
		result.Suspicious = true
		result.Message = fmt.Sprintf(
			"Product is authentic but has been scanned %d times on the %s ledger. The code may have been copied.",
			count, source,
		)
	} else {
		result.Message = fmt.Sprintf("Product verified on the %s ledger.", source)
	}

	return result
}
