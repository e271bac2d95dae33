package nodelink

import (
	"bytes"
	"context"
	"fmt"
	"image/color"
	"regexp"
	"strconv"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/ontograph/pkg/fonts"
	"github.com/matzehuels/ontograph/pkg/graph"
	"github.com/matzehuels/ontograph/pkg/render"
)

// pointsPerInch converts world units (treated as points) to the inch-based
// node sizes Graphviz expects.
const pointsPerInch = 72.0

// Options configures DOT generation.
type Options struct {
	// Selected highlights one node with the selection color.
	Selected string
	// Captions appends the kind caption to each label.
	Captions bool
}

// ToDOT converts a model to pinned-position Graphviz DOT. Edges whose
// endpoints are not both in the model are omitted, as in the raster view.
// World y grows downwards; DOT y grows upwards, so y is negated.
func ToDOT(m *graph.Model, opts Options) string {
	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  layout=neato;\n")
	buf.WriteString("  outputorder=edgesfirst;\n")
	fmt.Fprintf(&buf, "  bgcolor=%q;\n", hexColor(render.Background))
	fmt.Fprintf(&buf, "  node [shape=circle, style=filled, fixedsize=true, fontname=%q, fontcolor=%q, penwidth=2];\n",
		fonts.Family, hexColor(render.LabelColor))
	buf.WriteString("  edge [arrowhead=vee, arrowsize=0.8];\n")
	buf.WriteString("\n")

	if m == nil {
		buf.WriteString("}\n")
		return buf.String()
	}

	for i := range m.Nodes {
		n := &m.Nodes[i]
		fmt.Fprintf(&buf, "  %q [%s];\n", n.ID, nodeAttrs(n, opts))
	}

	buf.WriteString("\n")
	for _, e := range m.Edges {
		if _, _, ok := m.Resolve(e); !ok {
			continue
		}
		fmt.Fprintf(&buf, "  %q -> %q [%s];\n", e.From, e.To, edgeAttrs(e))
	}

	buf.WriteString("}\n")
	return buf.String()
}

func nodeAttrs(n *graph.Node, opts Options) string {
	label := n.Label
	if opts.Captions {
		label += "\n" + render.Caption(n.Kind)
	}
	outline := hexColor(render.OutlineColor)
	width := render.OutlineWidth
	if n.ID == opts.Selected {
		outline = hexColor(render.SelectColor)
		width = render.SelectedOutlineWidth
	}
	fontsize := render.LabelSize
	if n.Kind == graph.KindClass {
		fontsize = render.ClassLabelSize
	}
	return fmt.Sprintf("label=%q, pos=\"%s,%s!\", width=%s, fillcolor=%q, color=%q, penwidth=%s, fontsize=%s",
		label,
		num(n.Pos.X), num(-n.Pos.Y),
		num(2*n.Radius/pointsPerInch),
		hexColor(n.Color), outline, num(width), num(fontsize))
}

func edgeAttrs(e graph.Edge) string {
	style := "solid"
	if e.Kind.Dash() != nil {
		style = "dashed"
	}
	return fmt.Sprintf("color=%q, penwidth=%s, style=%s, tooltip=%q",
		hexColor(e.Kind.Color()), num(e.Kind.Width()), style, e.Label)
}

func num(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }

// hexColor formats a color as #rrggbb or #rrggbbaa when translucent.
func hexColor(c color.NRGBA) string {
	if c.A == 255 {
		return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
	}
	return fmt.Sprintf("#%02x%02x%02x%02x", c.R, c.G, c.B, c.A)
}

// RenderSVG renders DOT to SVG using Graphviz with the neato engine, which
// honors pinned positions.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()
	gv.SetLayout(graphviz.NEATO)

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	newSvg := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)

	return svgTagRe.ReplaceAll(svg, []byte(newSvg))
}
