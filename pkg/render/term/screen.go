// Package term is the character-cell host of the graph renderer, used by the
// interactive terminal viewer.
//
// Each cell stands for a CellWidth×CellHeight block of CSS pixels, so the
// viewport math is unchanged: the viewer sizes its viewport to
// cols·CellWidth × rows·CellHeight and maps mouse cells to pixel centers
// with [CellCenter].
package term

import (
	"fmt"
	"image/color"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/matzehuels/ontograph/pkg/geom"
	"github.com/matzehuels/ontograph/pkg/render"
)

// Cell size in CSS pixels.
const (
	CellWidth  = 8.0
	CellHeight = 16.0
)

// minTextSize hides text that would be unreadable at the current zoom.
const minTextSize = 6.0

type cell struct {
	ch rune
	fg color.NRGBA
}

// Screen is a grid of colored cells. It is not safe for concurrent use.
type Screen struct {
	cols, rows int
	cells      []cell
	origin     geom.Vec
	zoom       float64
}

var (
	_ render.Surface  = (*Screen)(nil)
	_ render.Renderer = (*Screen)(nil)
)

// NewScreen returns a blank screen of cols×rows cells.
func NewScreen(cols, rows int) *Screen {
	s := &Screen{zoom: 1}
	s.Resize(cols, rows)
	return s
}

// Resize changes the grid size and blanks it.
func (s *Screen) Resize(cols, rows int) {
	s.cols, s.rows = max(cols, 0), max(rows, 0)
	s.cells = make([]cell, s.cols*s.rows)
	s.blank(render.Background)
}

// Dims returns the grid size in cells.
func (s *Screen) Dims() (cols, rows int) { return s.cols, s.rows }

// CellCenter returns the CSS-pixel center of a cell.
func CellCenter(col, row int) geom.Vec {
	return geom.V((float64(col)+0.5)*CellWidth, (float64(row)+0.5)*CellHeight)
}

// Render implements [render.Renderer].
func (s *Screen) Render(scene render.Scene) { render.Draw(s, scene) }

// Size implements [render.Surface].
func (s *Screen) Size() (float64, float64) {
	return float64(s.cols) * CellWidth, float64(s.rows) * CellHeight
}

// Clear implements [render.Surface].
func (s *Screen) Clear(c color.Color) { s.blank(toNRGBA(c)) }

func (s *Screen) blank(c color.NRGBA) {
	for i := range s.cells {
		s.cells[i] = cell{ch: ' ', fg: c}
	}
}

// SetTransform implements [render.Surface].
func (s *Screen) SetTransform(origin geom.Vec, zoom float64) { s.origin, s.zoom = origin, zoom }

// ResetTransform implements [render.Surface].
func (s *Screen) ResetTransform() { s.origin, s.zoom = geom.Vec{}, 1 }

func (s *Screen) apply(p geom.Vec) geom.Vec { return s.origin.Add(p.Scale(s.zoom)) }

func (s *Screen) at(col, row int) *cell {
	if col < 0 || row < 0 || col >= s.cols || row >= s.rows {
		return nil
	}
	return &s.cells[row*s.cols+col]
}

func (s *Screen) paint(col, row int, ch rune, c color.NRGBA) {
	if cl := s.at(col, row); cl != nil {
		cl.ch = ch
		cl.fg = blend(cl.fg, c)
	}
}

// Line implements [render.Surface].
func (s *Screen) Line(a, b geom.Vec, _ float64, c color.Color, dash []float64) {
	pa, pb := s.apply(a), s.apply(b)
	d := pb.Sub(pa)
	length := d.Len()
	if length == 0 {
		return
	}
	ch := lineRune(d)
	fg := toNRGBA(c)

	var period, on float64
	if len(dash) >= 2 {
		on, period = dash[0]*s.zoom, (dash[0]+dash[1])*s.zoom
	}
	steps := int(math.Ceil(math.Max(math.Abs(d.X)/CellWidth, math.Abs(d.Y)/CellHeight)*2)) + 1
	lastCol, lastRow := -1, -1
	for i := 0; i <= steps; i++ {
		t := float64(i) / float64(steps)
		if period > 0 && math.Mod(t*length, period) >= on {
			continue
		}
		p := pa.Add(d.Scale(t))
		col, row := int(math.Floor(p.X/CellWidth)), int(math.Floor(p.Y/CellHeight))
		if col == lastCol && row == lastRow {
			continue
		}
		lastCol, lastRow = col, row
		s.paint(col, row, ch, fg)
	}
}

func lineRune(d geom.Vec) rune {
	ax, ay := math.Abs(d.X), math.Abs(d.Y)
	switch {
	case ay < ax*0.4:
		return '─'
	case ax < ay*0.4:
		return '│'
	case d.X*d.Y > 0:
		return '╲'
	default:
		return '╱'
	}
}

// cellsWithin calls fn for every cell whose center lies at a distance in
// [lo, hi] from center (screen pixels).
func (s *Screen) cellsWithin(center geom.Vec, lo, hi float64, fn func(col, row int)) {
	minCol := int(math.Floor((center.X - hi) / CellWidth))
	maxCol := int(math.Floor((center.X + hi) / CellWidth))
	minRow := int(math.Floor((center.Y - hi) / CellHeight))
	maxRow := int(math.Floor((center.Y + hi) / CellHeight))
	for row := max(minRow, 0); row <= min(maxRow, s.rows-1); row++ {
		for col := max(minCol, 0); col <= min(maxCol, s.cols-1); col++ {
			d := CellCenter(col, row).Dist(center)
			if d >= lo && d <= hi {
				fn(col, row)
			}
		}
	}
}

// FillCircle implements [render.Surface]. A circle too small to cover any
// cell center still marks its own cell.
func (s *Screen) FillCircle(center geom.Vec, r float64, c color.Color) {
	p := s.apply(center)
	fg := toNRGBA(c)
	hit := false
	s.cellsWithin(p, 0, r*s.zoom, func(col, row int) {
		s.paint(col, row, '█', fg)
		hit = true
	})
	if !hit {
		s.paint(int(math.Floor(p.X/CellWidth)), int(math.Floor(p.Y/CellHeight)), '●', fg)
	}
}

// StrokeCircle implements [render.Surface]. Ring cells over a filled body
// keep their glyph and take the blended color; ring cells outside it are
// dotted.
func (s *Screen) StrokeCircle(center geom.Vec, r, width float64, c color.Color) {
	p := s.apply(center)
	rr := r * s.zoom
	half := math.Max(width*s.zoom/2, CellWidth/2)
	fg := toNRGBA(c)
	s.cellsWithin(p, rr-half, rr+half, func(col, row int) {
		cl := s.at(col, row)
		if cl.ch == '█' {
			cl.fg = blend(cl.fg, fg)
			return
		}
		s.paint(col, row, '·', fg)
	})
}

// FillRect implements [render.Surface].
func (s *Screen) FillRect(topLeft, bottomRight geom.Vec, c color.Color) {
	a, b := s.apply(topLeft), s.apply(bottomRight)
	fg := toNRGBA(c)
	for row := int(math.Floor(a.Y / CellHeight)); row < int(math.Ceil(b.Y/CellHeight)); row++ {
		for col := int(math.Floor(a.X / CellWidth)); col < int(math.Ceil(b.X/CellWidth)); col++ {
			if cl := s.at(col, row); cl != nil {
				cl.ch = ' '
				cl.fg = blend(cl.fg, fg)
			}
		}
	}
}

// Text implements [render.Surface]. The shadow is not drawn; text smaller
// than a few pixels at the current zoom is hidden.
func (s *Screen) Text(str string, at geom.Vec, st render.TextStyle) {
	if str == "" || st.Size*s.zoom < minTextSize {
		return
	}
	p := s.apply(at)
	runes := []rune(str)
	row := int(math.Floor(p.Y / CellHeight))
	col := int(math.Floor(p.X / CellWidth))
	if !st.Left {
		col = int(math.Round(p.X/CellWidth - float64(len(runes))/2))
	}
	fg := toNRGBA(st.Color)
	for i, r := range runes {
		if cl := s.at(col+i, row); cl != nil {
			cl.ch = r
			cl.fg = fg
		}
	}
}

// Plain returns the grid as text without colors.
func (s *Screen) Plain() string {
	var b strings.Builder
	for row := 0; row < s.rows; row++ {
		if row > 0 {
			b.WriteByte('\n')
		}
		for col := 0; col < s.cols; col++ {
			b.WriteRune(s.cells[row*s.cols+col].ch)
		}
	}
	return b.String()
}

// String returns the grid with lipgloss foreground colors, one styled run
// per stretch of equal color.
func (s *Screen) String() string {
	var b strings.Builder
	for row := 0; row < s.rows; row++ {
		if row > 0 {
			b.WriteByte('\n')
		}
		var run strings.Builder
		var runFg color.NRGBA
		flush := func() {
			if run.Len() == 0 {
				return
			}
			b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color(hex(runFg))).Render(run.String()))
			run.Reset()
		}
		for col := 0; col < s.cols; col++ {
			cl := s.cells[row*s.cols+col]
			if cl.fg != runFg {
				flush()
				runFg = cl.fg
			}
			run.WriteRune(cl.ch)
		}
		flush()
	}
	return b.String()
}

// Glyph returns the rune and color of a cell, for tests and hit feedback.
func (s *Screen) Glyph(col, row int) (rune, color.NRGBA, bool) {
	cl := s.at(col, row)
	if cl == nil {
		return 0, color.NRGBA{}, false
	}
	return cl.ch, cl.fg, true
}

func hex(c color.NRGBA) string { return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B) }

func toNRGBA(c color.Color) color.NRGBA {
	if c == nil {
		return color.NRGBA{}
	}
	return color.NRGBAModel.Convert(c).(color.NRGBA)
}

// blend composites src over an opaque dst.
func blend(dst, src color.NRGBA) color.NRGBA {
	a := float64(src.A) / 255
	mix := func(d, s uint8) uint8 { return uint8(math.Round(float64(d)*(1-a) + float64(s)*a)) }
	return color.NRGBA{mix(dst.R, src.R), mix(dst.G, src.G), mix(dst.B, src.B), 255}
}
