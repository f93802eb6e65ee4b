package presence

import (
	"errors"
	"fmt"

	"tools.zach/dev/editorcord/internal/discord"
)

// ///////////////////////////////////////////////
// Error Taxonomy
// ///////////////////////////////////////////////

// Every failure the core can observe is one of these. All of them are
// recoverable: the host only ever sees "no presence shown" plus a log line.
var (
	// ErrPeerUnavailable means no Discord IPC endpoint accepted a connection.
	ErrPeerUnavailable = errors.New("peer unavailable")
	// ErrConnectFailed means the endpoint accepted but the handshake failed.
	ErrConnectFailed = errors.New("connect failed")
	// ErrPeerLost means an established channel broke mid-session.
	ErrPeerLost = errors.New("peer lost")
	// ErrThrottled means the peer rejected an update for rate limiting.
	ErrThrottled = errors.New("throttled")
	// ErrUpdateRejected covers every other peer-side rejection of an update.
	ErrUpdateRejected = errors.New("update rejected")
)

// isClassified reports whether err already carries a taxonomy sentinel.
func isClassified(err error) bool {
	for _, s := range []error{ErrPeerUnavailable, ErrConnectFailed, ErrPeerLost, ErrThrottled, ErrUpdateRejected} {
		if errors.Is(err, s) {
			return true
		}
	}
	return false
}

// classifyConnect maps a transport error from Connect into the taxonomy.
func classifyConnect(err error) error {
	switch {
	case err == nil:
		return nil
	case isClassified(err):
		return err
	case errors.Is(err, discord.ErrIPCNotAvailable):
		return fmt.Errorf("%w: %w", ErrPeerUnavailable, err)
	default:
		return fmt.Errorf("%w: %w", ErrConnectFailed, err)
	}
}

// classifyUpdate maps a transport error from an update or its completion
// into the taxonomy.
func classifyUpdate(err error) error {
	var rpcErr *discord.RPCError
	switch {
	case err == nil:
		return nil
	case isClassified(err):
		return err
	case errors.Is(err, discord.ErrConnectionLost), errors.Is(err, discord.ErrNotConnected):
		return fmt.Errorf("%w: %w", ErrPeerLost, err)
	case errors.As(err, &rpcErr) && rpcErr.Throttled():
		return fmt.Errorf("%w: %w", ErrThrottled, err)
	default:
		return fmt.Errorf("%w: %w", ErrUpdateRejected, err)
	}
}
