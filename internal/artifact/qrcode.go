package artifact

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	qrcode "github.com/skip2/go-qrcode"
)

// ErrArtifact marks a failed artifact generation. Registration survives it:
// the record is stored without an artifact and generation can be retried.
var ErrArtifact = errors.New("failed to generate artifact")

// Generator renders a scannable artifact for a ledger key and returns an
// opaque reference to it. Artifacts exist only in the local cache; the chain
// never stores them.
type Generator interface {
	Generate(key string) (string, error)
}

// QRGenerator writes QR code PNGs into a directory and returns the file name
// as the artifact reference.
type QRGenerator struct {
	dir  string
	size int
}

// NewQRGenerator ensures dir exists and returns a generator rendering
// 256x256 PNGs into it.
func NewQRGenerator(dir string) (*QRGenerator, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrArtifact, err)
	}
	return &QRGenerator{dir: dir, size: 256}, nil
}

// Generate encodes the ledger key into a QR PNG named <key>.png.
func (g *QRGenerator) Generate(key string) (string, error) {
	name := key + ".png"
	if err := qrcode.WriteFile(key, qrcode.Medium, g.size, filepath.Join(g.dir, name)); err != nil {
		return "", fmt.Errorf("%w: %w", ErrArtifact, err)
	}
	return name, nil
}

// Dir returns the directory artifacts are written to, for serving them.
func (g *QRGenerator) Dir() string {
	return g.dir
}
