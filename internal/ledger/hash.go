package ledger

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strconv"
	"time"

	"veritag/internal/domain"

	"github.com/google/uuid"
)

// DeriveKey computes the content-addressed ledger key for a set of
// registration attributes: SHA-256 over the canonical JSON serialization of
// the attributes concatenated with the salt, hex encoded (64 characters).
//
// Two registrations of identical attributes get distinct keys as long as the
// salts differ, so visually identical products can each carry their own key.
// The key is a registry key only: it is not cryptographically bound to the
// physical item after manufacture.
func DeriveKey(attrs domain.Attributes, salt string) string {
	payload, _ := json.Marshal(attrs)
	sum := sha256.Sum256(append(payload, salt...))
	return hex.EncodeToString(sum[:])
}

// NewSalt returns a fresh salt combining a UUID with the current wall clock
// in nanoseconds.
func NewSalt() string {
	return uuid.NewString() + strconv.FormatInt(time.Now().UnixNano(), 10)
}
