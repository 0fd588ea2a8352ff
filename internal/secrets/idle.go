package secrets

import (
	"sync"
	"time"
)

const (
	// DefaultIdleTimeout locks the journal after this much inactivity.
	DefaultIdleTimeout = 5 * time.Minute
	// DefaultIdleCheckInterval is how often inactivity is checked.
	DefaultIdleCheckInterval = 15 * time.Second
)

// IdleWatcher calls onIdle once when no activity was recorded for longer than
// the timeout, then stops. Stop is safe to call from onIdle itself.
type IdleWatcher struct {
	timeout  time.Duration
	interval time.Duration
	now      func() time.Time
	onIdle   func()

	mu           sync.Mutex
	lastActivity time.Time

	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// NewIdleWatcher builds a watcher. A nil now uses time.Now.
func NewIdleWatcher(timeout, interval time.Duration, now func() time.Time, onIdle func()) *IdleWatcher {
	if now == nil {
		now = time.Now
	}
	if interval <= 0 {
		interval = DefaultIdleCheckInterval
	}
	return &IdleWatcher{
		timeout:      timeout,
		interval:     interval,
		now:          now,
		onIdle:       onIdle,
		lastActivity: now(),
		stop:         make(chan struct{}),
		done:         make(chan struct{}),
	}
}

// Start launches the polling goroutine.
func (w *IdleWatcher) Start() {
	go w.run()
}

func (w *IdleWatcher) run() {
	defer close(w.done)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stop:
			return
		case <-ticker.C:
			if w.Check() {
				return
			}
		}
	}
}

// Check fires onIdle if the timeout elapsed and reports whether it did. After
// firing the watcher is stopped and later checks are no-ops.
func (w *IdleWatcher) Check() bool {
	select {
	case <-w.stop:
		return false
	default:
	}

	w.mu.Lock()
	idle := w.now().Sub(w.lastActivity) > w.timeout
	w.mu.Unlock()
	if !idle {
		return false
	}

	fired := false
	w.stopOnce.Do(func() {
		close(w.stop)
		fired = true
	})
	if fired && w.onIdle != nil {
		w.onIdle()
	}
	return fired
}

// Touch records user activity.
func (w *IdleWatcher) Touch() {
	w.mu.Lock()
	w.lastActivity = w.now()
	w.mu.Unlock()
}

// Stop cancels the watcher. It does not wait for the goroutine to exit.
func (w *IdleWatcher) Stop() {
	w.stopOnce.Do(func() { close(w.stop) })
}

// Done is closed once the polling goroutine has exited.
func (w *IdleWatcher) Done() <-chan struct{} {
	return w.done
}
