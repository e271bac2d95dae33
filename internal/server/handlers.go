package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	errs "github.com/matzehuels/ontograph/pkg/errors"
	"github.com/matzehuels/ontograph/pkg/export"
	"github.com/matzehuels/ontograph/pkg/geom"
	"github.com/matzehuels/ontograph/pkg/graph"
	"github.com/matzehuels/ontograph/pkg/layout/force"
	"github.com/matzehuels/ontograph/pkg/ontology"
	"github.com/matzehuels/ontograph/pkg/pipeline"
	"github.com/matzehuels/ontograph/pkg/render/canvas"
	"github.com/matzehuels/ontograph/pkg/session"
)

// contentTypes maps artifact formats to response content types.
var contentTypes = map[string]string{
	export.FormatPNG:  "image/png",
	export.FormatSVG:  "image/svg+xml",
	export.FormatDOT:  "text/vnd.graphviz",
	export.FormatJSON: "application/json",
}

// State is the JSON view of a viewer session.
type State struct {
	ID          string   `json:"id"`
	Nodes       int      `json:"nodes"`
	Edges       int      `json:"edges"`
	Steps       int      `json:"steps"`
	Settled     bool     `json:"settled"`
	Frames      int      `json:"frames"`
	Width       float64  `json:"width"`
	Height      float64  `json:"height"`
	Zoom        float64  `json:"zoom"`
	ZoomPercent int      `json:"zoom_percent"`
	Pan         geom.Vec `json:"pan"`
	Selected    string   `json:"selected,omitempty"`
	Selections  []string `json:"selections,omitempty"` // class selections since the last state
}

// PointerEvent is an input event sent to POST /sessions/{id}/pointer or over
// the WebSocket. Type is one of down, move, up, leave, click, wheel, resize,
// zoom-in, zoom-out and reset.
type PointerEvent struct {
	Type   string  `json:"type"`
	X      float64 `json:"x,omitempty"`
	Y      float64 `json:"y,omitempty"`
	DeltaY float64 `json:"delta_y,omitempty"`
	Width  float64 `json:"width,omitempty"`
	Height float64 `json:"height,omitempty"`
}

func stateOf(v *viewer, sess *session.Session) State {
	vp := sess.Viewport()
	w, h := vp.Size()
	st := State{
		ID:          v.id,
		Steps:       sess.Steps(),
		Settled:     sess.Settled(),
		Frames:      sess.Frames(),
		Width:       w,
		Height:      h,
		Zoom:        vp.Zoom(),
		ZoomPercent: sess.ZoomPercent(),
		Pan:         vp.Pan(),
		Selected:    sess.Selected(),
		Selections:  v.drainSelections(),
	}
	if m := sess.Model(); m != nil {
		st.Nodes, st.Edges = m.Len(), len(m.Edges)
	}
	return st
}

// apply feeds one input event to the session.
func apply(sess *session.Session, ev PointerEvent) error {
	p := geom.V(ev.X, ev.Y)
	switch ev.Type {
	case "down":
		sess.PointerDown(p)
	case "move":
		sess.PointerMove(p)
	case "up":
		sess.PointerUp(p)
	case "leave":
		sess.PointerLeave()
	case "click":
		sess.Click(p)
	case "wheel":
		sess.Wheel(ev.DeltaY)
	case "resize":
		if err := errs.ValidateDimensions(ev.Width, ev.Height); err != nil {
			return err
		}
		sess.Resize(ev.Width, ev.Height)
	case "zoom-in":
		sess.ZoomIn()
	case "zoom-out":
		sess.ZoomOut()
	case "reset":
		sess.ResetView()
	default:
		return errs.New(errs.ErrCodeInvalidInput, "unknown event type %q", ev.Type)
	}
	return nil
}

// =============================================================================
// Handlers
// =============================================================================

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "sessions": s.viewers.Len()})
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	width, err := queryFloat(q.Get("width"), s.cfg.Width)
	if err != nil {
		writeError(w, err)
		return
	}
	height, err := queryFloat(q.Get("height"), s.cfg.Height)
	if err != nil {
		writeError(w, err)
		return
	}
	scale, err := queryFloat(q.Get("scale"), s.cfg.DeviceScale)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := errs.ValidateDimensions(width*scale, height*scale); err != nil {
		writeError(w, err)
		return
	}

	snap, err := s.requestSnapshot(w, r)
	if err != nil {
		writeError(w, err)
		return
	}

	v := s.viewers.Create(s.ctx, func(v *viewer) {
		v.canvas = canvas.New(width, height, scale, canvas.Options{})
		v.loop = session.NewLoop(s.cfg.FrameRate, func(sched session.Scheduler) *session.Session {
			return session.New(sched, v.canvas, width, height,
				session.WithLogger(s.logger.With("session", v.id)),
				session.WithForceConfig(s.cfg.Force),
				session.WithSelector(v),
				session.WithClickSlop(s.cfg.ClickSlop),
				session.WithDeviceScale(scale),
				session.WithContext(s.ctx),
			)
		})
	})

	var st State
	err = v.do(r.Context(), func(sess *session.Session) {
		sess.SetSnapshot(snap)
		st = stateOf(v, sess)
	})
	if err != nil {
		s.viewers.Delete(v.id)
		writeError(w, err)
		return
	}
	s.logger.Info("session created", "id", v.id, "nodes", st.Nodes, "edges", st.Edges)
	w.Header().Set("Location", "/sessions/"+v.id)
	writeJSON(w, http.StatusCreated, st)
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	s.withSession(w, r, nil)
}

func (s *Server) handleZoomIn(w http.ResponseWriter, r *http.Request) {
	s.withSession(w, r, (*session.Session).ZoomIn)
}

func (s *Server) handleZoomOut(w http.ResponseWriter, r *http.Request) {
	s.withSession(w, r, (*session.Session).ZoomOut)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	s.withSession(w, r, (*session.Session).ResetView)
}

func (s *Server) handlePointer(w http.ResponseWriter, r *http.Request) {
	var ev PointerEvent
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&ev); err != nil {
		writeError(w, errs.Wrap(errs.ErrCodeInvalidInput, err, "decode pointer event"))
		return
	}
	var applyErr error
	s.withSession(w, r, func(sess *session.Session) { applyErr = apply(sess, ev) }, func() error { return applyErr })
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	snap, err := s.requestSnapshot(w, r)
	if err != nil {
		writeError(w, err)
		return
	}
	s.withSession(w, r, func(sess *session.Session) { sess.SetSnapshot(snap) })
}

// withSession runs fn on the viewer's session and responds with its state.
// check, if given, reports an error produced inside fn.
func (s *Server) withSession(w http.ResponseWriter, r *http.Request, fn func(*session.Session), check ...func() error) {
	v, ok := s.lookup(w, r)
	if !ok {
		return
	}
	var st State
	err := v.do(r.Context(), func(sess *session.Session) {
		if fn != nil {
			fn(sess)
		}
		st = stateOf(v, sess)
	})
	if err != nil {
		writeError(w, sessionError(err))
		return
	}
	for _, c := range check {
		if err := c(); err != nil {
			writeError(w, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleLayout(w http.ResponseWriter, r *http.Request) {
	v, ok := s.lookup(w, r)
	if !ok {
		return
	}
	var l graph.Layout
	err := v.do(r.Context(), func(sess *session.Session) {
		width, height := sess.Viewport().Size()
		l = sess.Model().Layout(width, height)
		l.Steps = sess.Steps()
	})
	if err != nil {
		writeError(w, sessionError(err))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = export.WriteJSON(w, l)
}

func (s *Server) handleFrame(w http.ResponseWriter, r *http.Request) {
	v, ok := s.lookup(w, r)
	if !ok {
		return
	}
	var buf bytes.Buffer
	var encErr error
	err := v.do(r.Context(), func(sess *session.Session) {
		encErr = encodeFrame(&buf, v, sess)
	})
	if err == nil {
		err = encErr
	}
	if err != nil {
		writeError(w, sessionError(err))
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(buf.Bytes())
}

// encodeFrame writes the last drawn frame, drawing one first if the session
// has not drawn yet.
func encodeFrame(buf *bytes.Buffer, v *viewer, sess *session.Session) error {
	if sess.Frames() == 0 {
		return export.WritePNG(buf, sess.Scene())
	}
	return v.canvas.EncodePNG(buf)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	v, ok := s.lookup(w, r)
	if !ok {
		return
	}
	var buf bytes.Buffer
	var exportErr error
	err := v.do(r.Context(), func(sess *session.Session) { exportErr = sess.Export(&buf) })
	if err == nil {
		err = exportErr
	}
	if err != nil {
		writeError(w, sessionError(err))
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.DefaultFilename))
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !s.viewers.Delete(id) {
		writeError(w, errs.New(errs.ErrCodeSessionNotFound, "session %s not found", id))
		return
	}
	s.logger.Info("session closed", "id", id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	opts, err := renderOptions(r, s.cfg.Force)
	if err != nil {
		writeError(w, err)
		return
	}
	if name := snapshotName(r); name != "" {
		opts.Name, opts.Source = name, s.source
		if s.source == nil {
			writeError(w, errs.New(errs.ErrCodeUnsupported, "no snapshot source configured"))
			return
		}
	} else {
		snap, err := ontology.Read(http.MaxBytesReader(w, r.Body, maxBodyBytes), ontology.FormatAuto)
		if err != nil {
			writeError(w, err)
			return
		}
		opts.Snapshot = snap
	}

	result, err := s.runner.Execute(r.Context(), opts)
	if err != nil {
		writeError(w, err)
		return
	}
	s.logger.Info("rendered",
		"input", opts.Input(),
		"formats", strings.Join(opts.Formats, ","),
		"layout_cached", result.CacheInfo.LayoutHit,
		"render_cached", result.CacheInfo.RenderHit,
	)

	if len(opts.Formats) == 1 {
		f := opts.Formats[0]
		w.Header().Set("Content-Type", contentTypes[f])
		_, _ = w.Write(result.Artifacts[f])
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"hash":      result.SnapshotHash,
		"artifacts": result.Artifacts,
		"nodes":     result.Stats.NodeCount,
		"edges":     result.Stats.EdgeCount,
		"steps":     result.Stats.Steps,
		"cache":     result.CacheInfo,
	})
}

// =============================================================================
// Helpers
// =============================================================================

func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (*viewer, bool) {
	id := chi.URLParam(r, "id")
	v, err := s.viewers.Get(id)
	if err != nil {
		writeError(w, errs.New(errs.ErrCodeSessionNotFound, "session %s not found", id))
		return nil, false
	}
	return v, true
}

// requestSnapshot loads the snapshot named by the name (or mongo) query
// parameter from the configured source, or else decodes the request body.
func (s *Server) requestSnapshot(w http.ResponseWriter, r *http.Request) (*ontology.Snapshot, error) {
	if name := snapshotName(r); name != "" {
		if s.source == nil {
			return nil, errs.New(errs.ErrCodeUnsupported, "no snapshot source configured")
		}
		snap, _, err := s.runner.LoadWithCacheInfo(r.Context(), pipeline.Options{Name: name, Source: s.source})
		return snap, err
	}
	return ontology.Read(http.MaxBytesReader(w, r.Body, maxBodyBytes), ontology.FormatAuto)
}

func snapshotName(r *http.Request) string {
	q := r.URL.Query()
	if name := q.Get("name"); name != "" {
		return name
	}
	return q.Get("mongo")
}

// renderOptions reads batch options from the query. The simulation starts
// from sim so that ?steps only overrides the budget.
func renderOptions(r *http.Request, sim force.Config) (pipeline.Options, error) {
	q := r.URL.Query()
	opts := pipeline.Options{Force: sim.WithDefaults()}
	var err error
	for _, f := range q["format"] {
		for _, part := range strings.Split(f, ",") {
			if part = strings.TrimSpace(part); part != "" {
				opts.Formats = append(opts.Formats, part)
			}
		}
	}
	if opts.Width, err = queryFloat(q.Get("width"), 0); err != nil {
		return opts, err
	}
	if opts.Height, err = queryFloat(q.Get("height"), 0); err != nil {
		return opts, err
	}
	if opts.Scale, err = queryFloat(q.Get("scale"), 0); err != nil {
		return opts, err
	}
	if opts.Zoom, err = queryFloat(q.Get("zoom"), 0); err != nil {
		return opts, err
	}
	if v := q.Get("steps"); v != "" {
		steps, err := strconv.Atoi(v)
		if err != nil || steps < 0 {
			return opts, errs.New(errs.ErrCodeInvalidInput, "invalid steps %q", v)
		}
		opts.Force.MaxSteps = steps
	}
	if len(opts.Formats) == 0 {
		opts.Formats = []string{export.FormatPNG}
	}
	opts.Selected = q.Get("selected")
	opts.Legend = q.Get("legend") == "true"
	opts.Captions = q.Get("captions") != "false"
	opts.Refresh = q.Get("refresh") == "true"
	return opts, pipeline.ValidateFormats(opts.Formats)
}

func queryFloat(v string, def float64) (float64, error) {
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, errs.New(errs.ErrCodeInvalidInput, "invalid number %q", v)
	}
	return f, nil
}

func sessionError(err error) error {
	if errors.Is(err, session.ErrLoopClosed) {
		return errs.Wrap(errs.ErrCodeSessionNotFound, err, "session closed")
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return errs.Wrap(errs.ErrCodeTimeout, err, "session busy")
	}
	return err
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, errs.HTTPStatus(err), map[string]string{
		"error": errs.UserMessage(err),
		"code":  string(errs.GetCode(err)),
	})
}
