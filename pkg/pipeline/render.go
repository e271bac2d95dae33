package pipeline

import (
	"bytes"
	"context"
	"fmt"

	"github.com/matzehuels/ontograph/pkg/export"
	"github.com/matzehuels/ontograph/pkg/graph"
	"github.com/matzehuels/ontograph/pkg/render"
	"github.com/matzehuels/ontograph/pkg/render/canvas"
	"github.com/matzehuels/ontograph/pkg/render/nodelink"
	"github.com/matzehuels/ontograph/pkg/view"
)

// Render generates output artifacts in the requested formats from a settled
// layout.
func Render(ctx context.Context, l graph.Layout, opts Options) (map[string][]byte, error) {
	if err := opts.ValidateForRender(); err != nil {
		return nil, err
	}
	m, err := graph.FromLayout(l)
	if err != nil {
		return nil, fmt.Errorf("rebuild model: %w", err)
	}

	artifacts := make(map[string][]byte, len(opts.Formats))
	for _, format := range opts.Formats {
		var buf bytes.Buffer
		switch format {
		case export.FormatPNG:
			err = renderPNG(&buf, m, opts)
		case export.FormatSVG:
			err = export.WriteSVG(ctx, &buf, m, dotOptions(opts))
		case export.FormatDOT:
			err = export.WriteDOT(&buf, m, dotOptions(opts))
		case export.FormatJSON:
			err = export.WriteJSON(&buf, l)
		default:
			err = fmt.Errorf("unsupported format: %s", format)
		}
		if err != nil {
			return nil, fmt.Errorf("render %s: %w", format, err)
		}
		artifacts[format] = buf.Bytes()
	}
	return artifacts, nil
}

func renderPNG(buf *bytes.Buffer, m *graph.Model, opts Options) error {
	vp := view.New(opts.Width, opts.Height)
	vp.SetDeviceScale(opts.Scale)
	vp.SetZoom(opts.Zoom)

	c := canvas.ForViewport(vp, canvas.Options{Legend: opts.Legend})
	c.Render(render.Scene{Model: m, Viewport: vp, Selected: opts.Selected})
	return c.EncodePNG(buf)
}

func dotOptions(opts Options) nodelink.Options {
	return nodelink.Options{Selected: opts.Selected, Captions: opts.Captions}
}
