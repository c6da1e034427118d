package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestBackendModeValid(t *testing.T) {
	cases := []struct {
		mode  BackendMode
		valid bool
	}{
		{BackendLocal, true},
		{BackendChain, true},
		{BackendMode(""), false},
		{BackendMode("cloud"), false},
		{BackendMode("Local"), false},
	}

	for _, tc := range cases {
		if tc.mode.Valid() != tc.valid {
			t.Errorf("BackendMode(%q).Valid() = %v, want %v", tc.mode, tc.mode.Valid(), tc.valid)
		}
	}
}

func TestAttributesValidate(t *testing.T) {
	cases := []struct {
		name  string
		attrs Attributes
		want  error
	}{
		{"valid", Attributes{Name: "Widget", Manufacturer: "Acme", Price: 9.99}, nil},
		{"zero price is allowed", Attributes{Name: "Widget", Manufacturer: "Acme"}, nil},
		{"missing name", Attributes{Manufacturer: "Acme"}, ErrNameRequired},
		{"whitespace name", Attributes{Name: "   ", Manufacturer: "Acme"}, ErrNameRequired},
		{"missing manufacturer", Attributes{Name: "Widget"}, ErrManufacturerRequired},
		{"whitespace manufacturer", Attributes{Name: "Widget", Manufacturer: "\t"}, ErrManufacturerRequired},
		{"negative price", Attributes{Name: "Widget", Manufacturer: "Acme", Price: -0.01}, ErrNegativePrice},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.attrs.Validate()
			if !errors.Is(err, tc.want) {
				t.Errorf("Validate() = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestCloneIsIndependent(t *testing.T) {
	ts := time.Now()
	original := &Product{
		Name:          "Widget",
		Manufacturer:  "Acme",
		LedgerKey:     "abc",
		ScanCount:     2,
		LastScannedAt: &ts,
	}

	clone := original.Clone()
	clone.Name = "Changed"
	clone.ScanCount = 99
	*clone.LastScannedAt = ts.Add(time.Hour)

	if original.Name != "Widget" || original.ScanCount != 2 {
		t.Errorf("Mutating the clone changed the original: %+v", original)
	}
	if !original.LastScannedAt.Equal(ts) {
		t.Error("Clone shares the scan timestamp with the original")
	}
}

func TestCloneWithoutScanTimestamp(t *testing.T) {
	original := &Product{Name: "Widget"}

	clone := original.Clone()
	if clone.LastScannedAt != nil {
		t.Errorf("Clone fabricated a scan timestamp: %v", clone.LastScannedAt)
	}
}

func TestProperty_ValidationAcceptsAllReasonableAttributes(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("non-empty name and manufacturer with non-negative price validate", prop.ForAll(
		func(name, manufacturer string, price float64) bool {
			attrs := Attributes{
				Name:         name,
				Manufacturer: manufacturer,
				Price:        price,
			}
			return attrs.Validate() == nil
		},
		gen.AlphaString().SuchThat(func(s string) bool { return s != "" }),
		gen.AlphaString().SuchThat(func(s string) bool { return s != "" }),
		gen.Float64Range(0, 1_000_000),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}
