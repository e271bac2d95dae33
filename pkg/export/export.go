// Package export writes the graph view to files: PNG snapshots of the
// current view, and the batch formats SVG, DOT and JSON layout.
//
// Exporting is a pure read. It renders offscreen and never touches the
// simulation or the view state it is given.
package export

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/matzehuels/ontograph/pkg/graph"
	"github.com/matzehuels/ontograph/pkg/render"
	"github.com/matzehuels/ontograph/pkg/render/canvas"
	"github.com/matzehuels/ontograph/pkg/render/nodelink"
)

// DefaultFilename is the file name used when no output path is given.
const DefaultFilename = "ontology-graph.png"

// Supported formats.
const (
	FormatPNG  = "png"
	FormatSVG  = "svg"
	FormatDOT  = "dot"
	FormatJSON = "json"
)

// Formats lists every supported format.
var Formats = []string{FormatPNG, FormatSVG, FormatDOT, FormatJSON}

// WritePNG renders scene offscreen at its viewport size and device scale and
// writes it as PNG. A scene without a viewport is an error.
func WritePNG(w io.Writer, scene render.Scene) error {
	if scene.Viewport == nil {
		return fmt.Errorf("export png: no viewport")
	}
	c := canvas.ForViewport(scene.Viewport, canvas.Options{})
	c.Render(scene)
	return c.EncodePNG(w)
}

// PNG returns scene rendered as PNG bytes.
func PNG(scene render.Scene) ([]byte, error) {
	if scene.Viewport == nil {
		return nil, fmt.Errorf("export png: no viewport")
	}
	c := canvas.ForViewport(scene.Viewport, canvas.Options{})
	c.Render(scene)
	return c.PNG()
}

// ExportPNG writes scene to path and returns the path written. An empty
// path writes DefaultFilename in the working directory; a directory path
// writes DefaultFilename inside it.
func ExportPNG(scene render.Scene, path string) (string, error) {
	path = Path(path)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", path, err)
	}
	if err := WritePNG(f, scene); err != nil {
		f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", path, err)
	}
	return path, nil
}

// Path resolves an export destination.
func Path(path string) string {
	if path == "" {
		return DefaultFilename
	}
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return filepath.Join(path, DefaultFilename)
	}
	return path
}

// WriteDOT writes m as pinned-position Graphviz DOT.
func WriteDOT(w io.Writer, m *graph.Model, opts nodelink.Options) error {
	if _, err := io.WriteString(w, nodelink.ToDOT(m, opts)); err != nil {
		return fmt.Errorf("write dot: %w", err)
	}
	return nil
}

// WriteSVG renders m through Graphviz and writes the SVG.
func WriteSVG(ctx context.Context, w io.Writer, m *graph.Model, opts nodelink.Options) error {
	svg, err := nodelink.RenderSVG(ctx, nodelink.ToDOT(m, opts))
	if err != nil {
		return fmt.Errorf("render svg: %w", err)
	}
	if _, err := w.Write(svg); err != nil {
		return fmt.Errorf("write svg: %w", err)
	}
	return nil
}

// WriteJSON writes l as indented JSON. The output can be read
// back with [graph.UnmarshalLayout].
func WriteJSON(w io.Writer, l graph.Layout) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(l); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}
