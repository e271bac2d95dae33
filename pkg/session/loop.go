package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

// ErrLoopClosed is returned by Do after the loop has stopped.
var ErrLoopClosed = errors.New("session loop closed")

// DefaultFrameRate is the tick rate of a Loop when none is given.
const DefaultFrameRate = 60

// Loop runs a session on its own goroutine. Input arrives as closures over
// the session and frames are flushed on a ticker, so every access to the
// session is serialized without locks inside it.
type Loop struct {
	sess   *Session
	queue  *FrameQueue
	period time.Duration
	inbox  chan func(*Session)

	started  atomic.Bool
	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// NewLoop creates a loop and its session. build receives the loop's
// scheduler and must return the session it will drive.
func NewLoop(frameRate int, build func(Scheduler) *Session) *Loop {
	if frameRate <= 0 {
		frameRate = DefaultFrameRate
	}
	q := NewFrameQueue()
	return &Loop{
		sess:   build(q),
		queue:  q,
		period: time.Second / time.Duration(frameRate),
		inbox:  make(chan func(*Session)),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// Start runs the loop until ctx is canceled or Close is called.
func (l *Loop) Start(ctx context.Context) {
	if l.started.Swap(true) {
		return
	}
	go l.run(ctx)
}

func (l *Loop) run(ctx context.Context) {
	defer close(l.done)
	defer l.sess.Close()

	ticker := time.NewTicker(l.period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-l.stop:
			return
		case fn := <-l.inbox:
			fn(l.sess)
		case <-ticker.C:
			l.queue.Flush()
		}
	}
}

// Do runs fn on the loop goroutine and waits for it to return.
func (l *Loop) Do(ctx context.Context, fn func(*Session)) error {
	finished := make(chan struct{})
	wrapped := func(s *Session) {
		defer close(finished)
		fn(s)
	}
	select {
	case l.inbox <- wrapped:
	case <-l.done:
		return ErrLoopClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-finished:
		return nil
	case <-l.done:
		return ErrLoopClosed
	}
}

// Close stops the loop, cancels the pending frame and waits for the loop
// goroutine to exit. A loop closed before Start never runs. Close must not
// be called from inside Do.
func (l *Loop) Close() {
	l.stopOnce.Do(func() { close(l.stop) })
	if !l.started.Swap(true) {
		l.sess.Close()
		close(l.done)
		return
	}
	<-l.done
}

// Done is closed when the loop has stopped.
func (l *Loop) Done() <-chan struct{} { return l.done }
