package session

// Frame is a pending frame callback. Cancel is idempotent and safe to call
// after the callback ran.
type Frame interface {
	Cancel()
}

// Scheduler requests display-synchronized frame callbacks. Callbacks run on
// the goroutine that owns the session.
type Scheduler interface {
	RequestFrame(fn func()) Frame
}

// FrameQueue is a Scheduler flushed by hand. The terminal viewer flushes it
// on every tick; tests flush it step by step.
type FrameQueue struct {
	pending []*queuedFrame
}

type queuedFrame struct {
	fn       func()
	canceled bool
}

func (f *queuedFrame) Cancel() { f.canceled = true }

// NewFrameQueue returns an empty queue.
func NewFrameQueue() *FrameQueue { return &FrameQueue{} }

// RequestFrame queues fn for the next Flush.
func (q *FrameQueue) RequestFrame(fn func()) Frame {
	f := &queuedFrame{fn: fn}
	q.pending = append(q.pending, f)
	return f
}

// Flush runs the callbacks queued before the call, skipping canceled ones,
// and returns how many ran. Frames requested by a callback wait for the next
// Flush.
func (q *FrameQueue) Flush() int {
	batch := q.pending
	q.pending = nil
	ran := 0
	for _, f := range batch {
		if f.canceled {
			continue
		}
		f.canceled = true
		f.fn()
		ran++
	}
	return ran
}

// Pending returns the number of queued callbacks that are not canceled.
func (q *FrameQueue) Pending() int {
	n := 0
	for _, f := range q.pending {
		if !f.canceled {
			n++
		}
	}
	return n
}
