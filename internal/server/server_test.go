package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	errs "github.com/matzehuels/ontograph/pkg/errors"
	"github.com/matzehuels/ontograph/pkg/graph"
	"github.com/matzehuels/ontograph/pkg/ontology"
	"github.com/matzehuels/ontograph/pkg/session"
	"github.com/matzehuels/ontograph/pkg/source"
)

const animalsJSON = `{
  "classes": [
    {"id": "A", "name": "Animal"},
    {"id": "B", "name": "Bird", "superClasses": ["A"]}
  ]
}`

func newTestServer(t *testing.T, opts ...Option) (*Server, *httptest.Server) {
	t.Helper()
	s := New(Config{FrameRate: 1000, Width: 200, Height: 150, ClickSlop: 3, SessionTTL: time.Hour}, opts...)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		ts.Close()
		s.Close()
	})
	return s, ts
}

func do(t *testing.T, method, url, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return v
}

func create(t *testing.T, base string) State {
	t.Helper()
	resp := do(t, http.MethodPost, base+"/sessions", animalsJSON)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create: status %d", resp.StatusCode)
	}
	return decode[State](t, resp)
}

func waitSettled(t *testing.T, base, id string) State {
	t.Helper()
	deadline := time.Now().Add(20 * time.Second)
	for time.Now().Before(deadline) {
		st := decode[State](t, do(t, http.MethodGet, base+"/sessions/"+id+"/state", ""))
		if st.Settled {
			return st
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("session did not settle")
	return State{}
}

func TestHealthz(t *testing.T) {
	_, ts := newTestServer(t)
	resp := do(t, http.MethodGet, ts.URL+"/healthz", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d", resp.StatusCode)
	}
	if got := decode[map[string]any](t, resp); got["status"] != "ok" {
		t.Errorf("body = %v", got)
	}
}

func TestSessionLifecycle(t *testing.T) {
	_, ts := newTestServer(t)
	st := create(t, ts.URL)
	if st.ID == "" || st.Nodes != 2 || st.Edges != 1 {
		t.Fatalf("created state = %+v", st)
	}
	if st.ZoomPercent != 100 || st.Width != 200 {
		t.Errorf("initial view = %+v", st)
	}
	base := ts.URL + "/sessions/" + st.ID

	st = waitSettled(t, ts.URL, st.ID)
	if st.Steps != 300 || st.Frames == 0 {
		t.Errorf("settled state = %+v", st)
	}

	for _, tt := range []struct {
		path string
		want int
	}{
		{"/zoom-in", 120},
		{"/zoom-out", 96},
		{"/reset", 100},
	} {
		got := decode[State](t, do(t, http.MethodPost, base+tt.path, ""))
		if got.ZoomPercent != tt.want {
			t.Errorf("%s: zoom = %d%%, want %d%%", tt.path, got.ZoomPercent, tt.want)
		}
	}

	resp := do(t, http.MethodGet, base+"/frame.png", "")
	body, _ := io.ReadAll(resp.Body)
	if resp.Header.Get("Content-Type") != "image/png" || !bytes.HasPrefix(body, []byte("\x89PNG")) {
		t.Errorf("frame: type %q, %d bytes", resp.Header.Get("Content-Type"), len(body))
	}

	resp = do(t, http.MethodGet, base+"/export", "")
	body, _ = io.ReadAll(resp.Body)
	if cd := resp.Header.Get("Content-Disposition"); !strings.Contains(cd, "ontology-graph.png") {
		t.Errorf("Content-Disposition = %q", cd)
	}
	if !bytes.HasPrefix(body, []byte("\x89PNG")) {
		t.Error("export is not PNG")
	}

	resp = do(t, http.MethodDelete, base, "")
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("delete: status %d", resp.StatusCode)
	}
	resp = do(t, http.MethodGet, base+"/state", "")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("state after delete: status %d", resp.StatusCode)
	}
	if got := decode[map[string]string](t, resp); got["code"] != string(errs.ErrCodeSessionNotFound) {
		t.Errorf("error body = %v", got)
	}
}

func TestClickSelectsClass(t *testing.T) {
	_, ts := newTestServer(t)
	st := create(t, ts.URL)
	base := ts.URL + "/sessions/" + st.ID
	waitSettled(t, ts.URL, st.ID)

	resp := do(t, http.MethodGet, base+"/layout", "")
	data, _ := io.ReadAll(resp.Body)
	l, err := graph.UnmarshalLayout(data)
	if err != nil {
		t.Fatal(err)
	}
	var b graph.LayoutNode
	for _, n := range l.Nodes {
		if n.ID == "B" {
			b = n
		}
	}
	if b.ID == "" {
		t.Fatalf("layout has no B: %+v", l.Nodes)
	}

	// zoom 1, no pan: screen = center + world
	x, y := l.Width/2+b.Pos.X, l.Height/2+b.Pos.Y
	for _, ev := range []PointerEvent{{Type: "down", X: x, Y: y}, {Type: "up", X: x + 1, Y: y}} {
		body, _ := json.Marshal(ev)
		st = decode[State](t, do(t, http.MethodPost, base+"/pointer", string(body)))
	}
	if st.Selected != "B" {
		t.Errorf("selected = %q, want B", st.Selected)
	}
	if len(st.Selections) != 1 || st.Selections[0] != "B" {
		t.Errorf("selections = %v, want [B]", st.Selections)
	}

	// Selections are reported once.
	st = decode[State](t, do(t, http.MethodGet, base+"/state", ""))
	if len(st.Selections) != 0 {
		t.Errorf("selections reported twice: %v", st.Selections)
	}
}

func TestPointerErrors(t *testing.T) {
	_, ts := newTestServer(t)
	st := create(t, ts.URL)
	base := ts.URL + "/sessions/" + st.ID

	tests := []struct {
		body string
		want int
	}{
		{`{"type": "pinch"}`, http.StatusBadRequest},
		{`{"type": "resize", "width": 0, "height": 10}`, http.StatusBadRequest},
		{`not json`, http.StatusBadRequest},
		{`{"type": "wheel", "delta_y": 1}`, http.StatusOK},
	}
	for _, tt := range tests {
		resp := do(t, http.MethodPost, base+"/pointer", tt.body)
		if resp.StatusCode != tt.want {
			t.Errorf("%s: status %d, want %d", tt.body, resp.StatusCode, tt.want)
		}
	}
}

func TestCreateErrors(t *testing.T) {
	_, ts := newTestServer(t)
	tests := []struct {
		name  string
		query string
		body  string
		want  int
	}{
		{"bad snapshot", "", `{"classes": [{"name": "no id"}]}`, http.StatusBadRequest},
		{"bad width", "?width=wide", animalsJSON, http.StatusBadRequest},
		{"huge surface", "?width=100000", animalsJSON, http.StatusBadRequest},
		{"no source", "?mongo=pizza", "", http.StatusNotImplemented},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := do(t, http.MethodPost, ts.URL+"/sessions"+tt.query, tt.body)
			if resp.StatusCode != tt.want {
				t.Errorf("status %d, want %d", resp.StatusCode, tt.want)
			}
		})
	}
}

func TestCreateFromSource(t *testing.T) {
	src := source.Func{
		KindName: "test",
		LoadFunc: func(_ context.Context, name string) (*ontology.Snapshot, error) {
			if name != "zoo" {
				return nil, errs.New(errs.ErrCodeSnapshotNotFound, "snapshot %s not found", name)
			}
			return ontology.Read(strings.NewReader(animalsJSON), ontology.FormatJSON)
		},
	}
	_, ts := newTestServer(t, WithSource(src))

	resp := do(t, http.MethodPost, ts.URL+"/sessions?name=zoo", "")
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status %d", resp.StatusCode)
	}
	if st := decode[State](t, resp); st.Nodes != 2 {
		t.Errorf("nodes = %d", st.Nodes)
	}

	resp = do(t, http.MethodPost, ts.URL+"/sessions?mongo=missing", "")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("missing snapshot: status %d", resp.StatusCode)
	}
}

func TestReplaceSnapshot(t *testing.T) {
	_, ts := newTestServer(t)
	st := create(t, ts.URL)
	base := ts.URL + "/sessions/" + st.ID

	three := `{"classes": [{"id": "A"}, {"id": "B"}, {"id": "C", "superClasses": ["A"]}]}`
	st = decode[State](t, do(t, http.MethodPut, base+"/snapshot", three))
	if st.Nodes != 3 || st.Steps != 0 {
		t.Errorf("after replace: %+v", st)
	}
}

func TestRender(t *testing.T) {
	_, ts := newTestServer(t)

	resp := do(t, http.MethodPost, ts.URL+"/render?format=dot&steps=20", animalsJSON)
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d: %s", resp.StatusCode, body)
	}
	if resp.Header.Get("Content-Type") != "text/vnd.graphviz" {
		t.Errorf("Content-Type = %q", resp.Header.Get("Content-Type"))
	}
	if !strings.Contains(string(body), `"B" -> "A"`) {
		t.Errorf("dot output missing edge:\n%s", body)
	}

	resp = do(t, http.MethodPost, ts.URL+"/render?format=json,dot&steps=20", animalsJSON)
	got := decode[struct {
		Artifacts map[string][]byte `json:"artifacts"`
		Steps     int               `json:"steps"`
	}](t, resp)
	if len(got.Artifacts) != 2 || got.Steps != 20 {
		t.Errorf("multi-format render: %d artifacts, %d steps", len(got.Artifacts), got.Steps)
	}

	resp = do(t, http.MethodPost, ts.URL+"/render?format=json,dot&steps=0", animalsJSON)
	got = decode[struct {
		Artifacts map[string][]byte `json:"artifacts"`
		Steps     int               `json:"steps"`
	}](t, resp)
	if got.Steps != 0 {
		t.Errorf("steps=0 render applied %d steps", got.Steps)
	}

	resp = do(t, http.MethodPost, ts.URL+"/render?format=gif", animalsJSON)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("bad format: status %d", resp.StatusCode)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	_, ts := newTestServer(t, WithMetrics(NewMetrics()))
	create(t, ts.URL)

	resp := do(t, http.MethodGet, ts.URL+"/metrics", "")
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "ontograph_session_active 1") {
		t.Errorf("metrics missing active gauge:\n%s", body)
	}
}

func TestWebSocket(t *testing.T) {
	_, ts := newTestServer(t)
	st := create(t, ts.URL)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/sessions/" + st.ID + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(10 * time.Second))

	// First message is a frame.
	kind, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatal(err)
	}
	if kind != websocket.BinaryMessage || !bytes.HasPrefix(data, []byte("\x89PNG")) {
		t.Fatalf("first message: kind %d, %d bytes", kind, len(data))
	}

	if err := conn.WriteJSON(PointerEvent{Type: "zoom-in"}); err != nil {
		t.Fatal(err)
	}
	for {
		kind, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatal(err)
		}
		if kind != websocket.TextMessage {
			continue
		}
		var got State
		if err := json.Unmarshal(data, &got); err != nil {
			t.Fatal(err)
		}
		if got.ZoomPercent != 120 {
			t.Errorf("zoom = %d%%, want 120%%", got.ZoomPercent)
		}
		break
	}

	resp := do(t, http.MethodGet, ts.URL+"/sessions/missing/ws", "")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown session: status %d", resp.StatusCode)
	}
}

func testLoop() *session.Loop {
	return session.NewLoop(60, func(sched session.Scheduler) *session.Session {
		return session.New(sched, nil, 100, 100)
	})
}

func TestRegistryCleanup(t *testing.T) {
	r := newRegistry(time.Minute, nil)
	v := r.Create(context.Background(), func(v *viewer) { v.loop = testLoop() })
	r.Create(context.Background(), func(v *viewer) { v.loop = testLoop() })
	if r.Len() != 2 {
		t.Fatalf("Len() = %d", r.Len())
	}

	if n := r.Cleanup(time.Now()); n != 0 {
		t.Errorf("Cleanup(now) removed %d", n)
	}
	if n := r.Cleanup(time.Now().Add(2 * time.Minute)); n != 2 {
		t.Errorf("Cleanup(+2m) removed %d, want 2", n)
	}
	if _, err := r.Get(v.id); err != ErrNotFound {
		t.Errorf("Get after cleanup: %v", err)
	}
	select {
	case <-v.loop.Done():
	case <-time.After(5 * time.Second):
		t.Error("expired loop not stopped")
	}
}

func TestViewerSelectionsBounded(t *testing.T) {
	v := newViewer("x")
	for i := range selectionBuffer + 8 {
		v.SelectClass(string(rune('a' + i%26)))
	}
	got := v.drainSelections()
	if len(got) != selectionBuffer {
		t.Fatalf("kept %d selections, want %d", len(got), selectionBuffer)
	}
	if last := string(rune('a' + (selectionBuffer+7)%26)); got[len(got)-1] != last {
		t.Errorf("last selection = %q, want %q", got[len(got)-1], last)
	}
	if v.drainSelections() != nil {
		t.Error("drain should empty the buffer")
	}
}
