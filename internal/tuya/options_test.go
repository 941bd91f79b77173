package tuya

import (
	"testing"
	"time"
)

func TestApplyDefaultsFillsZeroValues(t *testing.T) {
	var o Options
	o.applyDefaults()
	def := DefaultOptions()
	if o.RequestTimeout != def.RequestTimeout {
		t.Errorf("RequestTimeout = %v, want %v", o.RequestTimeout, def.RequestTimeout)
	}
	if o.ReconnectMaxAttempts != def.ReconnectMaxAttempts {
		t.Errorf("ReconnectMaxAttempts = %d, want %d", o.ReconnectMaxAttempts, def.ReconnectMaxAttempts)
	}
	if o.CRCFailureThreshold != def.CRCFailureThreshold {
		t.Errorf("CRCFailureThreshold = %d, want %d", o.CRCFailureThreshold, def.CRCFailureThreshold)
	}
}

func TestApplyDefaultsKeepsExplicitValues(t *testing.T) {
	o := Options{ReconnectMaxBackoff: 0, InterChunkDelay: 0, RequestTimeout: time.Second}
	o.applyDefaults()
	// Zero backoff and zero pacing are legitimate settings, not omissions.
	if o.ReconnectMaxBackoff != 0 {
		t.Errorf("ReconnectMaxBackoff = %d, want 0", o.ReconnectMaxBackoff)
	}
	if o.InterChunkDelay != 0 {
		t.Errorf("InterChunkDelay = %v, want 0", o.InterChunkDelay)
	}
	if o.RequestTimeout != time.Second {
		t.Errorf("RequestTimeout = %v, want 1s", o.RequestTimeout)
	}
}

func TestBackoffDelay(t *testing.T) {
	cases := []struct {
		attempt int
		max     int
		want    time.Duration
	}{
		{0, 30, time.Second},
		{1, 30, 2 * time.Second},
		{4, 30, 16 * time.Second},
		{5, 30, 30 * time.Second},  // capped
		{100, 30, 30 * time.Second}, // shift would overflow without the clamp
		{3, 0, 0},
	}
	for _, c := range cases {
		if got := backoffDelay(c.attempt, c.max); got != c.want {
			t.Errorf("backoffDelay(%d, %d) = %v, want %v", c.attempt, c.max, got, c.want)
		}
	}
}
