// Package session owns one interactive graph view: the model built from the
// current snapshot, its force simulation, the viewport, the selection and the
// pending frame.
//
// A Session is a single logical actor. All methods must be called from the
// goroutine that runs its Scheduler callbacks; [Loop] provides such a
// goroutine for concurrent hosts. There is no locking inside the session.
//
// # Frames
//
// Each frame callback advances the simulation by one step and redraws when
// anything visible changed, so input is serviced between steps. Redraws are
// demand-scheduled: position, viewport or selection changes mark the session
// dirty and request a frame if none is pending. The pending frame is the
// session's cancellation token. It is canceled before a new model is
// installed and on Close.
package session

import (
	"context"
	"io"
	"math"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/ontograph/pkg/export"
	"github.com/matzehuels/ontograph/pkg/geom"
	"github.com/matzehuels/ontograph/pkg/graph"
	"github.com/matzehuels/ontograph/pkg/input"
	"github.com/matzehuels/ontograph/pkg/layout/force"
	"github.com/matzehuels/ontograph/pkg/observability"
	"github.com/matzehuels/ontograph/pkg/ontology"
	"github.com/matzehuels/ontograph/pkg/render"
	"github.com/matzehuels/ontograph/pkg/view"
)

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the logger. Sessions are silent by default.
func WithLogger(l *log.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithForceConfig overrides the simulation constants.
func WithForceConfig(cfg force.Config) Option {
	return func(s *Session) { s.forceCfg = cfg }
}

// WithSelector sets the receiver of class selections.
func WithSelector(sel ontology.Selector) Option {
	return func(s *Session) { s.selector = sel }
}

// WithClickSlop sets how far the pointer may travel for a release to count
// as a click.
func WithClickSlop(px float64) Option {
	return func(s *Session) { s.clickSlop = px }
}

// WithDeviceScale sets the device pixel ratio of the surface.
func WithDeviceScale(scale float64) Option {
	return func(s *Session) { s.vp.SetDeviceScale(scale) }
}

// WithContext sets the context passed to observability hooks.
func WithContext(ctx context.Context) Option {
	return func(s *Session) { s.ctx = ctx }
}

// Session is one interactive graph view.
type Session struct {
	sched     Scheduler
	renderer  render.Renderer
	vp        *view.Viewport
	input     *input.Controller
	selector  ontology.Selector
	forceCfg  force.Config
	clickSlop float64
	logger    *log.Logger
	ctx       context.Context

	snapshot *ontology.Snapshot
	model    *graph.Model
	sim      *force.Simulator
	simStart time.Time

	frame  Frame
	dirty  bool
	closed bool
	frames int
}

// New creates a session drawing into r (which may be nil) on a surface of
// the given CSS size. No model is installed until SetSnapshot.
func New(sched Scheduler, r render.Renderer, width, height float64, opts ...Option) *Session {
	s := &Session{
		sched:     sched,
		renderer:  r,
		vp:        view.New(width, height),
		forceCfg:  force.DefaultConfig(),
		clickSlop: input.DefaultClickSlop,
		logger:    log.New(io.Discard),
		ctx:       context.Background(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.input = input.New(s.vp, ontology.SelectorFunc(s.selectClass))
	s.input.SetClickSlop(s.clickSlop)
	return s
}

func (s *Session) selectClass(id string) {
	s.logger.Info("class selected", "id", id)
	if s.selector != nil {
		s.selector.SelectClass(id)
	}
}

// =============================================================================
// Snapshot & Simulation
// =============================================================================

// SetSnapshot installs snap. The model is rebuilt and the simulation
// restarted only when snap is a different pointer from the current snapshot;
// it reports whether that happened. A nil snapshot installs an empty model.
func (s *Session) SetSnapshot(snap *ontology.Snapshot) bool {
	if s.closed || (s.model != nil && snap == s.snapshot) {
		return false
	}
	s.cancelFrame()

	m := graph.Build(snap)
	s.snapshot = snap
	s.model = m
	s.sim = force.New(m, s.forceCfg)
	s.simStart = time.Now()
	s.input.SetModel(m)

	if snap != nil {
		records := len(snap.Classes) + len(snap.Properties) + len(snap.Individuals)
		if dup := records - m.Len(); dup > 0 {
			s.logger.Debug("skipped duplicate ids", "count", dup)
		}
	}
	s.logger.Debug("built model", "nodes", m.Len(), "edges", len(m.Edges))
	observability.Session().OnBuild(s.ctx, m.Len(), len(m.Edges))

	s.Invalidate()
	return true
}

// Snapshot returns the installed snapshot.
func (s *Session) Snapshot() *ontology.Snapshot { return s.snapshot }

// Model returns the current model, or nil before the first SetSnapshot.
func (s *Session) Model() *graph.Model { return s.model }

// Steps returns the number of simulation steps taken on the current model.
func (s *Session) Steps() int {
	if s.sim == nil {
		return 0
	}
	return s.sim.Steps()
}

// Settled reports whether the simulation has used up its step budget.
func (s *Session) Settled() bool { return s.sim == nil || s.sim.Done() }

// Settle runs the remaining simulation steps without drawing in between and
// requests one redraw.
func (s *Session) Settle(ctx context.Context) error {
	if s.sim == nil || s.sim.Done() {
		return nil
	}
	_, err := s.sim.Run(ctx)
	s.settled()
	s.Invalidate()
	return err
}

func (s *Session) settled() {
	if !s.sim.Done() {
		return
	}
	elapsed := time.Since(s.simStart)
	s.logger.Debug("simulation settled", "steps", s.sim.Steps(), "duration", elapsed)
	observability.Session().OnSettled(s.ctx, s.sim.Steps(), elapsed)
}

// =============================================================================
// Frames
// =============================================================================

// Invalidate marks the view dirty and requests a frame if none is pending.
func (s *Session) Invalidate() {
	s.dirty = true
	s.request()
}

func (s *Session) request() {
	if s.closed || s.frame != nil || s.sched == nil {
		return
	}
	s.frame = s.sched.RequestFrame(s.onFrame)
}

func (s *Session) cancelFrame() {
	if s.frame != nil {
		s.frame.Cancel()
		s.frame = nil
	}
}

func (s *Session) onFrame() {
	s.frame = nil
	if s.closed {
		return
	}

	stepped := false
	if s.sim != nil && !s.sim.Done() {
		stepped = s.sim.Step()
		observability.Session().OnStep(s.ctx, s.sim.Steps())
		s.settled()
	}

	if s.dirty || stepped {
		s.dirty = false
		s.draw()
	}

	if s.sim != nil && !s.sim.Done() {
		s.request()
	}
}

func (s *Session) draw() {
	if s.renderer == nil {
		return
	}
	start := time.Now()
	s.renderer.Render(s.Scene())
	s.frames++
	observability.Session().OnRender(s.ctx, time.Since(start))
}

// Frames returns how many frames have been drawn.
func (s *Session) Frames() int { return s.frames }

// FramePending reports whether a frame callback is scheduled.
func (s *Session) FramePending() bool { return s.frame != nil }

// Scene returns what the next frame will draw.
func (s *Session) Scene() render.Scene {
	return render.Scene{Model: s.model, Viewport: s.vp, Selected: s.input.Selected()}
}

// SetRenderer replaces the renderer and requests a redraw.
func (s *Session) SetRenderer(r render.Renderer) {
	s.renderer = r
	s.Invalidate()
}

// Close cancels the pending frame. Later calls schedule nothing.
func (s *Session) Close() {
	s.cancelFrame()
	s.closed = true
}

// Closed reports whether Close was called.
func (s *Session) Closed() bool { return s.closed }

// =============================================================================
// View & Input
// =============================================================================

// Viewport returns the view transform.
func (s *Session) Viewport() *view.Viewport { return s.vp }

// Selected returns the selected node id, or "".
func (s *Session) Selected() string { return s.input.Selected() }

// ZoomPercent returns the zoom as a rounded percentage.
func (s *Session) ZoomPercent() int { return int(math.Round(s.vp.Zoom() * 100)) }

// Resize changes the surface size.
func (s *Session) Resize(width, height float64) {
	s.vp.Resize(width, height)
	s.Invalidate()
}

// PointerDown starts a pan gesture.
func (s *Session) PointerDown(p geom.Vec) { s.input.PointerDown(p) }

// PointerMove pans while a gesture is active.
func (s *Session) PointerMove(p geom.Vec) {
	if s.input.PointerMove(p) {
		s.Invalidate()
	}
}

// PointerUp ends the gesture, selecting on a click.
func (s *Session) PointerUp(p geom.Vec) {
	if s.input.PointerUp(p) {
		s.Invalidate()
	}
}

// PointerLeave ends the gesture without a click.
func (s *Session) PointerLeave() { s.input.PointerLeave() }

// Click selects the node under screen point p.
func (s *Session) Click(p geom.Vec) (string, bool) {
	id, ok := s.input.Click(p)
	s.Invalidate()
	return id, ok
}

// Wheel zooms by one notch and reports the event as handled.
func (s *Session) Wheel(deltaY float64) bool {
	handled := s.input.Wheel(deltaY)
	s.Invalidate()
	return handled
}

// ZoomIn zooms in by one step.
func (s *Session) ZoomIn() {
	s.input.ZoomIn()
	s.Invalidate()
}

// ZoomOut zooms out by one step.
func (s *Session) ZoomOut() {
	s.input.ZoomOut()
	s.Invalidate()
}

// ResetView restores zoom 1 and no pan.
func (s *Session) ResetView() {
	s.input.ResetView()
	s.Invalidate()
}

// Pan moves the view by d screen pixels.
func (s *Session) Pan(d geom.Vec) {
	s.vp.PanBy(d)
	s.Invalidate()
}

// =============================================================================
// Export
// =============================================================================

// Export writes the current view as PNG. It does not change any state.
func (s *Session) Export(w io.Writer) error {
	cw := &countingWriter{w: w}
	err := export.WritePNG(cw, s.Scene())
	observability.Session().OnExport(s.ctx, export.FormatPNG, cw.n, err)
	return err
}

// ExportFile writes the current view to path (see [export.Path]) and
// returns the path written.
func (s *Session) ExportFile(path string) (string, error) {
	path, err := export.ExportPNG(s.Scene(), path)
	observability.Session().OnExport(s.ctx, export.FormatPNG, 0, err)
	if err == nil {
		s.logger.Info("exported view", "path", path)
	}
	return path, err
}

type countingWriter struct {
	w io.Writer
	n int
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += n
	return n, err
}
