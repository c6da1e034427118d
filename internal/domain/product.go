package domain

import (
	"errors"
	"strings"
	"time"
)

// BackendMode selects which ledger backend an orchestrator call targets.
// It is always supplied explicitly by the caller; nothing in the core
// decides the backend from ambient connection state.
type BackendMode string

const (
	BackendLocal BackendMode = "local"
	BackendChain BackendMode = "chain"
)

// Valid reports whether the mode is one of the two known backends.
func (m BackendMode) Valid() bool {
	return m == BackendLocal || m == BackendChain
}

// Source values reported in a VerificationResult.
const (
	SourceLocal = "local"
	SourceChain = "chain"
)

// Product represents one registered physical product. LedgerKey is the
// content-addressed key the record is stored under; it is assigned once at
// registration and never changes. QRCode is an opaque reference to the
// locally cached scannable artifact and may be empty for records fetched
// fresh from the chain.
type Product struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	Manufacturer  string     `json:"manufacturer"`
	Description   string     `json:"description"`
	Price         float64    `json:"price"`
	Category      string     `json:"category"`
	LedgerKey     string     `json:"ledger_key"`
	QRCode        string     `json:"qr_code,omitempty"`
	RegisteredBy  string     `json:"registered_by,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	ScanCount     int        `json:"scan_count"`
	LastScannedAt *time.Time `json:"last_scanned_at,omitempty"`
	IsActive      bool       `json:"is_active"`
}

// Clone returns a copy of the product so callers cannot mutate stored state.
func (p *Product) Clone() *Product {
	cp := *p
	if p.LastScannedAt != nil {
		ts := *p.LastScannedAt
		cp.LastScannedAt = &ts
	}
	return &cp
}

// Attributes are the validated registration inputs for a new product.
type Attributes struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Manufacturer string  `json:"manufacturer"`
	Description  string  `json:"description"`
	Price        float64 `json:"price"`
	Category     string  `json:"category"`
}

var (
	ErrNameRequired         = errors.New("product name is required")
	ErrManufacturerRequired = errors.New("manufacturer is required")
	ErrNegativePrice        = errors.New("price must not be negative")
)

// Validate checks the attributes before any backend call is made.
func (a Attributes) Validate() error {
	if strings.TrimSpace(a.Name) == "" {
		return ErrNameRequired
	}
	if strings.TrimSpace(a.Manufacturer) == "" {
		return ErrManufacturerRequired
	}
	if a.Price < 0 {
		return ErrNegativePrice
	}
	return nil
}

// VerificationResult is the ephemeral outcome of presenting a ledger key.
// It is never persisted. Suspicious is a heuristic: a count above one is
// consistent with either duplicate scanning of one genuine item or a copied
// label on counterfeits, and the core does not try to tell those apart.
type VerificationResult struct {
	Genuine    bool     `json:"genuine"`
	Suspicious bool     `json:"suspicious"`
	ScanCount  int      `json:"scan_count"`
	Source     string   `json:"source"`
	Message    string   `json:"message"`
	Record     *Product `json:"record,omitempty"`
}
