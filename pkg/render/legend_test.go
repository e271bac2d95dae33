package render

import (
	"testing"

	"github.com/matzehuels/ontograph/pkg/graph"
)

func TestLegend(t *testing.T) {
	entries := Legend()
	if len(entries) != 8 {
		t.Fatalf("len(Legend()) = %d, want 8", len(entries))
	}
	if entries[0].Label != "Class" || entries[0].Color != graph.ColorClass || entries[0].Edge {
		t.Errorf("first entry = %+v", entries[0])
	}
	var dashed int
	for _, e := range entries {
		if e.Dash != nil {
			dashed++
		}
	}
	if dashed != 1 {
		t.Errorf("dashed entries = %d, want 1", dashed)
	}
}

func TestReadouts(t *testing.T) {
	tests := []struct {
		zoom float64
		want string
	}{
		{1, "Zoom: 100%"},
		{1.2, "Zoom: 120%"},
		{0.1, "Zoom: 10%"},
		{0.96, "Zoom: 96%"},
		{3, "Zoom: 300%"},
	}
	for _, tt := range tests {
		if got := ZoomReadout(tt.zoom); got != tt.want {
			t.Errorf("ZoomReadout(%v) = %q, want %q", tt.zoom, got, tt.want)
		}
	}
	if got := SelectionReadout(""); got != "" {
		t.Errorf("SelectionReadout(\"\") = %q, want empty", got)
	}
	if got := SelectionReadout("Pizza"); got != "Selected: Pizza" {
		t.Errorf("SelectionReadout(Pizza) = %q", got)
	}
}

func TestDrawLegend(t *testing.T) {
	r := NewRecorder(800, 600)
	DrawLegend(r, 1.5, "Pizza")

	if r.Count(OpFillRect) != 1 {
		t.Errorf("panels = %d, want 1", r.Count(OpFillRect))
	}
	texts := r.Texts()
	if texts[0] != "Legend" {
		t.Errorf("first text = %q, want Legend", texts[0])
	}
	if got := texts[len(texts)-2:]; got[0] != "Zoom: 150%" || got[1] != "Selected: Pizza" {
		t.Errorf("readouts = %v", got)
	}
	panel := r.Ops[0]
	if panel.Points[1].Y > 600 || panel.Points[0].X < 0 {
		t.Errorf("panel %v outside surface", panel.Points)
	}
	DrawLegend(nil, 1, "")
}
