package guard

import (
	"sync"
	"time"
)

// RedirectTimer schedules the denial view's automatic redirect as an
// explicitly cancellable task. The callback runs once after the delay
// unless Cancel is called first; Cancel is idempotent and safe after
// firing.
type RedirectTimer struct {
	mu        sync.Mutex
	timer     *time.Timer
	fired     bool
	cancelled bool
}

// NewRedirectTimer schedules fn to run after d.
func NewRedirectTimer(d time.Duration, fn func()) *RedirectTimer {
	rt := &RedirectTimer{}
	rt.timer = time.AfterFunc(d, func() {
		rt.mu.Lock()
		if rt.cancelled {
			rt.mu.Unlock()
			return
		}
		rt.fired = true
		rt.mu.Unlock()
		fn()
	})
	return rt
}

// Cancel stops the pending redirect. A timer that already fired stays
// fired; cancelling twice has no additional effect.
func (rt *RedirectTimer) Cancel() {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if rt.cancelled || rt.fired {
		rt.cancelled = true
		return
	}
	rt.cancelled = true
	rt.timer.Stop()
}

// Fired reports whether the callback ran.
func (rt *RedirectTimer) Fired() bool {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.fired
}
