package chain

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrNotConnected is returned by every session-dependent call when no
	// session has been established. The client never falls back to the local
	// store on its own; backend selection belongs to the orchestrators.
	ErrNotConnected = errors.New("no chain session: connect first")

	// ErrConnection marks handshake or transport failures.
	ErrConnection = errors.New("chain gateway unreachable")

	// ErrTransaction marks a write the gateway rejected or failed to apply.
	// Ledger state is unchanged when this is returned.
	ErrTransaction = errors.New("chain transaction failed")
)

// wrapTransport classifies a transport-level error. Caller cancellation is
// passed through untouched so orchestrators can report it as cancelled
// rather than as a failed transaction.
func wrapTransport(ctx context.Context, sentinel, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return fmt.Errorf("%w: %w", sentinel, err)
}
