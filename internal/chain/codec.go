package chain

import (
	"math"
	"time"

	"veritag/internal/domain"
)

// The gateway carries prices as fixed-point integers and timestamps as epoch
// seconds; translation to the domain types happens at this boundary.

// priceUnits is the number of base units per currency unit.
const priceUnits = 100_000_000

func encodePrice(price float64) int64 {
	return int64(math.Round(price * priceUnits))
}

func decodePrice(units int64) float64 {
	return float64(units) / priceUnits
}

// wireProduct is the gateway's representation of a ledger record.
type wireProduct struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Manufacturer string `json:"manufacturer"`
	Description  string `json:"description"`
	PriceUnits   int64  `json:"price_units"`
	Category     string `json:"category"`
	RegisteredBy string `json:"registered_by"`
	CreatedAt    int64  `json:"created_at"`
	ScanCount    int    `json:"scan_count"`
	LastScanned  int64  `json:"last_scanned"`
	IsActive     bool   `json:"is_active"`
}

func (w wireProduct) toDomain(key string) *domain.Product {
	p := &domain.Product{
		ID:           w.ID,
		Name:         w.Name,
		Manufacturer: w.Manufacturer,
		Description:  w.Description,
		Price:        decodePrice(w.PriceUnits),
		Category:     w.Category,
		LedgerKey:    key,
		RegisteredBy: w.RegisteredBy,
		CreatedAt:    time.Unix(w.CreatedAt, 0).UTC(),
		ScanCount:    w.ScanCount,
		IsActive:     w.IsActive,
	}
	// A zero epoch means the record has never been scanned.
	if w.LastScanned > 0 {
		ts := time.Unix(w.LastScanned, 0).UTC()
		p.LastScannedAt = &ts
	}
	return p
}
