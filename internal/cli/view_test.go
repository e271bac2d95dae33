package cli

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"github.com/matzehuels/ontograph/pkg/config"
	"github.com/matzehuels/ontograph/pkg/ontology"
	"github.com/matzehuels/ontograph/pkg/render/term"
)

func newTestViewModel(t *testing.T, exportPath string) *viewModel {
	t.Helper()
	snap, err := ontology.Read(strings.NewReader(pizzaJSON), ontology.FormatJSON)
	if err != nil {
		t.Fatal(err)
	}
	cfg := config.Default()
	cfg.Simulation.MaxSteps = 5
	m := newViewModel(cfg, log.New(io.Discard), exportPath)
	m.name = "Pizza"
	m.sess.SetSnapshot(snap)
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	return m
}

func keyMsg(s string) tea.KeyMsg {
	switch s {
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "left":
		return tea.KeyMsg{Type: tea.KeyLeft}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// settle flushes frames until the simulation is done.
func settle(m *viewModel) {
	for i := 0; i < 100 && !m.sess.Settled(); i++ {
		m.Update(tickMsg(time.Now()))
	}
	m.Update(tickMsg(time.Now()))
}

func TestViewModelResize(t *testing.T) {
	m := newTestViewModel(t, "")
	cols, rows := m.screen.Dims()
	if cols != 100 || rows != 40-statusRows {
		t.Errorf("screen = %dx%d, want 100x%d", cols, rows, 40-statusRows)
	}
	w, h := m.sess.Viewport().Size()
	if w != 100*term.CellWidth || h != float64(rows)*term.CellHeight {
		t.Errorf("viewport = %vx%v", w, h)
	}
}

func TestViewModelTickSettles(t *testing.T) {
	m := newTestViewModel(t, "")
	_, cmd := m.Update(tickMsg(time.Now()))
	if cmd == nil {
		t.Error("tick should schedule the next tick")
	}
	settle(m)
	if !m.sess.Settled() || m.sess.Steps() != 5 {
		t.Errorf("steps = %d, settled = %v", m.sess.Steps(), m.sess.Settled())
	}
	if m.sess.Frames() == 0 {
		t.Error("no frame drawn")
	}
	if !strings.Contains(m.screen.Plain(), "Pizza") {
		t.Error("screen should show the Pizza label")
	}
}

func TestViewModelKeys(t *testing.T) {
	m := newTestViewModel(t, "")

	tests := []struct {
		key  string
		want int
	}{
		{"+", 120},
		{"=", 144},
		{"-", 115},
		{"0", 100},
	}
	for _, tt := range tests {
		m.Update(keyMsg(tt.key))
		if got := m.sess.ZoomPercent(); got != tt.want {
			t.Errorf("after %q zoom = %d%%, want %d%%", tt.key, got, tt.want)
		}
	}

	m.Update(keyMsg("up"))
	m.Update(keyMsg("left"))
	pan := m.sess.Viewport().Pan()
	if pan.X <= 0 || pan.Y <= 0 {
		t.Errorf("pan = %v, want positive x and y", pan)
	}

	if _, cmd := m.Update(keyMsg("q")); cmd == nil {
		t.Fatal("q should quit")
	} else if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q should return tea.Quit")
	}
}

func TestViewModelClickSelects(t *testing.T) {
	m := newTestViewModel(t, "")
	settle(m)

	// Find a cell over the Pizza node.
	n, ok := m.sess.Model().Node("Pizza")
	if !ok {
		t.Fatal("Pizza not in model")
	}
	p := m.sess.Viewport().ToScreen(n.Pos)
	col, row := int(p.X/term.CellWidth), int(p.Y/term.CellHeight)

	down := tea.MouseMsg{X: col, Y: row, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft}
	up := tea.MouseMsg{X: col, Y: row, Action: tea.MouseActionRelease, Button: tea.MouseButtonLeft}
	m.Update(down)
	m.Update(up)

	if got := m.sess.Selected(); got != "Pizza" {
		t.Errorf("selected = %q, want Pizza", got)
	}
	if m.status != "class Pizza" {
		t.Errorf("status = %q", m.status)
	}
	if !strings.Contains(m.View(), "Selected: Pizza") {
		t.Error("status line should show the selection")
	}
}

func TestViewModelWheel(t *testing.T) {
	m := newTestViewModel(t, "")
	m.Update(tea.MouseMsg{Action: tea.MouseActionPress, Button: tea.MouseButtonWheelUp})
	if got := m.sess.ZoomPercent(); got != 110 {
		t.Errorf("wheel up zoom = %d%%, want 110%%", got)
	}
	m.Update(tea.MouseMsg{Action: tea.MouseActionPress, Button: tea.MouseButtonWheelDown})
	if got := m.sess.ZoomPercent(); got != 99 {
		t.Errorf("wheel down zoom = %d%%, want 99%%", got)
	}
}

func TestViewModelExport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "view.png")
	m := newTestViewModel(t, path)
	settle(m)

	m.Update(keyMsg("e"))
	if !strings.HasPrefix(m.status, "exported") {
		t.Fatalf("status = %q", m.status)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("export not written: %v", err)
	}
}

func TestViewModelReload(t *testing.T) {
	m := newTestViewModel(t, "")
	settle(m)

	next, err := ontology.Read(strings.NewReader(`{"name":"Tiny","classes":[{"id":"A","name":"A"}]}`), ontology.FormatJSON)
	if err != nil {
		t.Fatal(err)
	}
	m.Update(snapshotMsg{snap: next})
	if m.sess.Model().Len() != 1 || m.sess.Steps() != 0 {
		t.Errorf("model len = %d, steps = %d", m.sess.Model().Len(), m.sess.Steps())
	}
	if m.name != "Tiny" || m.status != "reloaded" {
		t.Errorf("name = %q, status = %q", m.name, m.status)
	}

	// The same pointer does not rebuild.
	m.status = ""
	m.Update(snapshotMsg{snap: next})
	if m.status != "" {
		t.Error("same snapshot should not reload")
	}
}

func TestLegendLine(t *testing.T) {
	line := legendLine()
	for _, label := range []string{"Class", "Individual", "Subclass"} {
		if !strings.Contains(line, label) {
			t.Errorf("legend missing %q", label)
		}
	}
}

func TestViewModelHelpLine(t *testing.T) {
	m := newTestViewModel(t, "")
	out := m.View()
	for _, want := range []string{"zoom in", "export png", "quit"} {
		if !strings.Contains(out, want) {
			t.Errorf("help line missing %q", want)
		}
	}
}
