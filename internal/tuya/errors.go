package tuya

import "errors"

// Session-level error taxonomy. Frame-level failures (CRC, format) are
// handled inside the receive path and only surface through the drop
// counters; these are the errors callers of session operations see.
var (
	// ErrCredentials marks missing or rejected device credentials. It is
	// terminal for the connection attempt: the session never auto-reconnects
	// against the same bad credentials.
	ErrCredentials = errors.New("tuya: missing or rejected device credentials")

	// ErrTimeout marks a request that got no response within its deadline.
	// It does not by itself trigger a reconnect.
	ErrTimeout = errors.New("tuya: timed out waiting for device response")

	// ErrCancelled marks a request abandoned by its caller or discarded
	// when the session shut down.
	ErrCancelled = errors.New("tuya: request cancelled")

	// ErrNotConnected marks an operation attempted without an established
	// session.
	ErrNotConnected = errors.New("tuya: not connected")

	// ErrConnectionLost marks a transport-level failure. Pending requests
	// fail with it, and it wraps the terminal error surfaced when the
	// reconnect attempt limit is exhausted.
	ErrConnectionLost = errors.New("tuya: connection lost")
)
