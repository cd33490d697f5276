package pipeline

import (
	"context"
	"io"
	"sync"
	"time"
)

// streamGuard enforces the two liveness windows on a source stream: the start
// guard (first byte must arrive within the start window of stream open) and
// the inactivity guard (each subsequent chunk must arrive within the
// inactivity window of the previous one). Expiry cancels the stream context
// with a cause identifying which guard fired; the destination upload observes
// the cancellation as an error and aborts itself.
type streamGuard struct {
	inactivityWindow time.Duration
	cancel           context.CancelCauseFunc

	mu           sync.Mutex
	timer        *time.Timer
	sawFirst     bool
	stopped      bool
	lastActivity time.Time
}

func newStreamGuard(cancel context.CancelCauseFunc, startWindow, inactivityWindow time.Duration) *streamGuard {
	g := &streamGuard{
		inactivityWindow: inactivityWindow,
		cancel:           cancel,
	}
	g.timer = time.AfterFunc(startWindow, g.expire)
	return g
}

func (g *streamGuard) expire() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.stopped {
		return
	}
	if !g.sawFirst {
		g.cancel(errStartTimeout)
		return
	}
	// A chunk may have landed while this expiry was queued behind the lock.
	// Re-arm for the remainder of the window instead of cancelling a live
	// stream.
	if remaining := g.inactivityWindow - time.Since(g.lastActivity); remaining > 0 {
		g.timer.Reset(remaining)
		return
	}
	g.cancel(errInactivityTimeout)
}

// touch records stream activity and re-arms the inactivity window.
func (g *streamGuard) touch() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.stopped {
		return
	}
	g.sawFirst = true
	g.lastActivity = time.Now()
	g.timer.Reset(g.inactivityWindow)
}

// stop disarms the guard once the transfer has finished either way.
func (g *streamGuard) stop() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.stopped = true
	g.timer.Stop()
}

// guardedReader stamps guard activity on every chunk read from the source.
type guardedReader struct {
	src   io.Reader
	guard *streamGuard
}

func (r *guardedReader) Read(p []byte) (int, error) {
	n, err := r.src.Read(p)
	if n > 0 {
		r.guard.touch()
	}
	return n, err
}
