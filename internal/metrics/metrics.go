package metrics

import (
	"sync/atomic"
	"time"
)

type Counter struct {
	value uint64
}

func (c *Counter) Inc() {
	atomic.AddUint64(&c.value, 1)
}

func (c *Counter) Add(n uint64) {
	atomic.AddUint64(&c.value, n)
}

func (c *Counter) Load() uint64 {
	return atomic.LoadUint64(&c.value)
}

type Timer struct {
	start time.Time
}

func StartTimer() *Timer {
	return &Timer{start: time.Now()}
}

func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}

// Process-wide counters, exposed on the health endpoint.
var (
	GatewayCalls     Counter
	GatewayErrors    Counter
	PollAttempts     Counter
	PollTimeouts     Counter
	NotificationsOK  Counter
	NotificationsBad Counter
)

// Snapshot returns current counter values keyed by metric name.
func Snapshot() map[string]uint64 {
	return map[string]uint64{
		"gateway_calls":         GatewayCalls.Load(),
		"gateway_errors":        GatewayErrors.Load(),
		"poll_attempts":         PollAttempts.Load(),
		"poll_timeouts":         PollTimeouts.Load(),
		"notifications_ok":      NotificationsOK.Load(),
		"notifications_invalid": NotificationsBad.Load(),
	}
}
