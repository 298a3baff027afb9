// Package teardown tells the backend to release session-held resources
// (e.g. a headless browser) when the page goes away.
package teardown

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultTimeout bounds the background stop request.
const DefaultTimeout = 2 * time.Second

// Releaser is the backend call that frees session resources.
type Releaser interface {
	StopBrowser(ctx context.Context) error
}

// Notifier fires at most once per page lifetime. The request runs in the
// background; its outcome is logged and otherwise ignored.
type Notifier struct {
	releaser Releaser
	timeout  time.Duration
	logger   *slog.Logger

	mu    sync.Mutex
	fired bool
	done  chan struct{}
}

func New(releaser Releaser, timeout time.Duration, logger *slog.Logger) *Notifier {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{releaser: releaser, timeout: timeout, logger: logger}
}

// Timeout is the effective deadline of the stop request.
func (n *Notifier) Timeout() time.Duration { return n.timeout }

// Fire sends the stop request unless it was already sent for this page. It
// never blocks and reports whether a request was started.
func (n *Notifier) Fire() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fired {
		return false
	}
	n.fired = true
	done := make(chan struct{})
	n.done = done

	go func() {
		defer close(done)
		ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
		defer cancel()
		if err := n.releaser.StopBrowser(ctx); err != nil {
			n.logger.Debug("stop-browser failed", "error", err)
			return
		}
		n.logger.Debug("stop-browser sent")
	}()
	return true
}

// Wait gives the last fired request up to d to leave. It reports whether the
// request finished (true also when nothing was fired).
func (n *Notifier) Wait(d time.Duration) bool {
	n.mu.Lock()
	done := n.done
	n.mu.Unlock()
	if done == nil {
		return true
	}
	select {
	case <-done:
		return true
	case <-time.After(d):
		return false
	}
}

// Rearm starts a new page lifetime after a reload.
func (n *Notifier) Rearm() {
	n.mu.Lock()
	n.fired = false
	n.mu.Unlock()
}
