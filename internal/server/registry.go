package server

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/matzehuels/ontograph/pkg/render/canvas"
	"github.com/matzehuels/ontograph/pkg/session"
)

// ErrNotFound is returned when a viewer does not exist or has expired.
var ErrNotFound = errors.New("viewer not found")

// selectionBuffer bounds the class selections kept for a viewer between
// state polls. Older selections are dropped when it is full.
const selectionBuffer = 32

// viewer is one remote viewing session: a session loop drawing into a
// canvas, plus the class selections it has reported.
type viewer struct {
	id         string
	loop       *session.Loop
	canvas     *canvas.Canvas
	selections chan string
	createdAt  time.Time

	mu       sync.Mutex
	lastSeen time.Time
}

func newViewer(id string) *viewer {
	now := time.Now()
	return &viewer{
		id:         id,
		selections: make(chan string, selectionBuffer),
		createdAt:  now,
		lastSeen:   now,
	}
}

// SelectClass implements ontology.Selector. It runs on the loop goroutine
// and never blocks it.
func (v *viewer) SelectClass(id string) {
	for {
		select {
		case v.selections <- id:
			return
		default:
		}
		select {
		case <-v.selections:
		default:
		}
	}
}

// drainSelections returns the selections reported since the last call.
func (v *viewer) drainSelections() []string {
	var ids []string
	for {
		select {
		case id := <-v.selections:
			ids = append(ids, id)
		default:
			return ids
		}
	}
}

func (v *viewer) touch(now time.Time) {
	v.mu.Lock()
	v.lastSeen = now
	v.mu.Unlock()
}

func (v *viewer) idle(now time.Time) time.Duration {
	v.mu.Lock()
	defer v.mu.Unlock()
	return now.Sub(v.lastSeen)
}

// do runs fn on the viewer's session.
func (v *viewer) do(ctx context.Context, fn func(*session.Session)) error {
	v.touch(time.Now())
	return v.loop.Do(ctx, fn)
}

// registry tracks live viewers. Viewers idle for longer than the TTL are
// closed by Cleanup.
type registry struct {
	mu      sync.RWMutex
	viewers map[string]*viewer
	ttl     time.Duration
	metrics *Metrics
}

// newRegistry creates an empty registry. A non-positive ttl disables expiry.
func newRegistry(ttl time.Duration, metrics *Metrics) *registry {
	return &registry{viewers: make(map[string]*viewer), ttl: ttl, metrics: metrics}
}

// Create allocates a viewer with a fresh id, lets build attach its loop and
// canvas, and starts the loop.
func (r *registry) Create(ctx context.Context, build func(v *viewer)) *viewer {
	v := newViewer(uuid.NewString())
	build(v)
	v.loop.Start(ctx)

	r.mu.Lock()
	r.viewers[v.id] = v
	n := len(r.viewers)
	r.mu.Unlock()
	r.gauge(n)
	return v
}

// Get returns a live viewer.
func (r *registry) Get(id string) (*viewer, error) {
	r.mu.RLock()
	v, ok := r.viewers[id]
	r.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	if r.ttl > 0 && v.idle(time.Now()) > r.ttl {
		r.Delete(id)
		return nil, ErrNotFound
	}
	return v, nil
}

// Delete closes and forgets a viewer. Its pending frame is canceled.
func (r *registry) Delete(id string) bool {
	r.mu.Lock()
	v, ok := r.viewers[id]
	delete(r.viewers, id)
	n := len(r.viewers)
	r.mu.Unlock()
	if !ok {
		return false
	}
	v.loop.Close()
	r.gauge(n)
	return true
}

// Cleanup closes viewers idle for longer than the TTL and returns how many
// were removed.
func (r *registry) Cleanup(now time.Time) int {
	if r.ttl <= 0 {
		return 0
	}
	var expired []string
	r.mu.RLock()
	for id, v := range r.viewers {
		if v.idle(now) > r.ttl {
			expired = append(expired, id)
		}
	}
	r.mu.RUnlock()

	removed := 0
	for _, id := range expired {
		if r.Delete(id) {
			removed++
		}
	}
	return removed
}

// Len returns the number of live viewers.
func (r *registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.viewers)
}

// Close closes every viewer.
func (r *registry) Close() {
	r.mu.Lock()
	viewers := r.viewers
	r.viewers = make(map[string]*viewer)
	r.mu.Unlock()
	for _, v := range viewers {
		v.loop.Close()
	}
	r.gauge(0)
}

func (r *registry) gauge(n int) {
	if r.metrics != nil {
		r.metrics.ActiveSessions.Set(float64(n))
	}
}
