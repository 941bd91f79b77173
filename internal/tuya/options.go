package tuya

import "time"

// Options configures a Device session.
type Options struct {
	// RequestTimeout bounds the wait for a response to one request. It is
	// independent of the reconnect backoff timer.
	RequestTimeout time.Duration
	// ConnectTimeout bounds one transport connection attempt.
	ConnectTimeout time.Duration
	// ReconnectMaxAttempts is how many reconnects are tried after transport
	// loss before the session settles in Disconnected with a terminal error.
	ReconnectMaxAttempts int
	// ReconnectMaxBackoff caps the exponential reconnect backoff, in seconds.
	ReconnectMaxBackoff int
	// InterChunkDelay paces fragmented writes so slow firmware keeps up.
	InterChunkDelay time.Duration
	// CRCFailureThreshold is how many consecutive CRC failures are treated
	// as session desync (stale key), triggering a re-handshake.
	CRCFailureThreshold int
}

// DefaultOptions returns sensible defaults.
func DefaultOptions() Options {
	return Options{
		RequestTimeout:       10 * time.Second,
		ConnectTimeout:       30 * time.Second,
		ReconnectMaxAttempts: 5,
		ReconnectMaxBackoff:  30,
		InterChunkDelay:      20 * time.Millisecond,
		CRCFailureThreshold:  3,
	}
}

func (o *Options) applyDefaults() {
	def := DefaultOptions()
	if o.RequestTimeout <= 0 {
		o.RequestTimeout = def.RequestTimeout
	}
	if o.ConnectTimeout <= 0 {
		o.ConnectTimeout = def.ConnectTimeout
	}
	if o.ReconnectMaxAttempts <= 0 {
		o.ReconnectMaxAttempts = def.ReconnectMaxAttempts
	}
	if o.ReconnectMaxBackoff < 0 {
		o.ReconnectMaxBackoff = def.ReconnectMaxBackoff
	}
	if o.InterChunkDelay < 0 {
		o.InterChunkDelay = def.InterChunkDelay
	}
	if o.CRCFailureThreshold <= 0 {
		o.CRCFailureThreshold = def.CRCFailureThreshold
	}
}

// backoffDelay returns the reconnection delay for attempt n, capped at
// maxSeconds.
func backoffDelay(attempt int, maxSeconds int) time.Duration {
	max := time.Duration(maxSeconds) * time.Second
	if attempt > 30 {
		return max
	}
	delay := time.Duration(1<<uint(attempt)) * time.Second
	if delay > max {
		return max
	}
	return delay
}
