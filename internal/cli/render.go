package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/ontograph/pkg/pipeline"
	"github.com/matzehuels/ontograph/pkg/source"
)

// renderOpts holds the command-line flags for the render command.
type renderOpts struct {
	output   string // output file (single format) or base path (multiple)
	formats  string // comma-separated output formats
	mongo    bool   // treat the argument as a document name in MongoDB
	noCache  bool   // disable the local cache
	pipeline pipeline.Options
}

// renderCommand creates the render command for batch export.
//
// Default settings come from the [simulation] and [view] config sections;
// flags given on the command line override them.
func (c *CLI) renderCommand() *cobra.Command {
	var opts renderOpts

	cmd := &cobra.Command{
		Use:   "render [snapshot]",
		Short: "Settle a snapshot's graph and export it",
		Long: `Settle a snapshot's graph and export it.

The render command loads an ontology snapshot (JSON or YAML), builds its
node-link graph, runs the force simulation to the end of its step budget
and writes the result as PNG (default), SVG, DOT or JSON.

Settled layouts and artifacts are cached locally for faster subsequent runs.`,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completeSnapshot,
		RunE: func(cmd *cobra.Command, args []string) error {
			c.applyRenderDefaults(cmd, &opts.pipeline)
			opts.pipeline.Formats = parseFormats(opts.formats)
			if err := pipeline.ValidateFormats(opts.pipeline.Formats); err != nil {
				return err
			}
			return c.runRender(cmd.Context(), args[0], opts)
		},
	}

	// Common flags
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (single format) or base path (multiple)")
	cmd.Flags().StringVarP(&opts.formats, "format", "f", "", "output format(s): png (default), svg, dot, json (comma-separated)")
	cmd.Flags().BoolVar(&opts.mongo, "mongo", false, "load the snapshot by name from the configured MongoDB collection")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable caching")
	cmd.Flags().BoolVar(&opts.pipeline.Refresh, "refresh", false, "ignore cached results")
	_ = cmd.RegisterFlagCompletionFunc("format", completeFormats)

	// Layout flags
	cmd.Flags().Float64Var(&opts.pipeline.Width, "width", pipeline.DefaultWidth, "surface width")
	cmd.Flags().Float64Var(&opts.pipeline.Height, "height", pipeline.DefaultHeight, "surface height")
	cmd.Flags().IntVar(&opts.pipeline.Force.MaxSteps, "steps", 0, "simulation step budget (default from config)")

	// Render flags
	cmd.Flags().Float64Var(&opts.pipeline.Scale, "scale", 0, "device scale of raster output (default from config)")
	cmd.Flags().Float64Var(&opts.pipeline.Zoom, "zoom", pipeline.DefaultZoom, "zoom factor")
	cmd.Flags().StringVar(&opts.pipeline.Selected, "selected", "", "node id drawn with the selection ring")
	cmd.Flags().BoolVar(&opts.pipeline.Legend, "legend", false, "draw the legend panel")
	cmd.Flags().BoolVar(&opts.pipeline.Captions, "captions", true, "draw kind captions under labels")

	return cmd
}

// applyRenderDefaults fills options the user did not set from the config.
func (c *CLI) applyRenderDefaults(cmd *cobra.Command, opts *pipeline.Options) {
	flags := cmd.Flags()
	if !flags.Changed("width") {
		opts.Width = c.config.View.Width
	}
	if !flags.Changed("height") {
		opts.Height = c.config.View.Height
	}
	if !flags.Changed("scale") {
		opts.Scale = c.config.View.DeviceScale
	}
	steps := opts.Force.MaxSteps
	opts.Force = c.config.Simulation
	if flags.Changed("steps") {
		opts.Force.MaxSteps = steps
	}
}

// runRender executes the pipeline and writes each artifact to disk.
func (c *CLI) runRender(ctx context.Context, input string, opts renderOpts) error {
	logger := loggerFromContext(ctx)

	var src source.Source
	if opts.mongo {
		m, err := c.openMongo(ctx)
		if err != nil {
			return err
		}
		defer m.Close(context.WithoutCancel(ctx))
		src = m
	}

	runner, err := c.newRunner(opts.noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	p := inputOptions(input, src)
	po := opts.pipeline
	po.Path, po.Name, po.Source = p.Path, p.Name, p.Source
	po.Logger = logger

	prog := newProgress(logger)
	spinner := newSpinner(ctx, "Settling layout…")
	po.Progress = spinner.Progress
	spinner.Start()

	result, err := runner.Execute(ctx, po)
	if err != nil {
		spinner.StopWithError("Render failed")
		return err
	}
	spinner.Stop()
	prog.done(fmt.Sprintf("Settled %d nodes", result.Stats.NodeCount))

	paths, err := writeArtifacts(result.Artifacts, po.Formats, input, opts.output)
	if err != nil {
		return err
	}

	printSuccess("Rendered %s", input)
	for _, p := range paths {
		printFile(p)
	}
	printStats(result.Stats, result.CacheInfo.LayoutHit && result.CacheInfo.RenderHit)
	if !opts.mongo {
		printNewline()
		printNextStep("Explore", appName+" view "+input)
	}
	return nil
}

// writeArtifacts writes artifacts in format order and returns the paths.
func writeArtifacts(artifacts map[string][]byte, formats []string, input, output string) ([]string, error) {
	paths := make([]string, 0, len(formats))
	for _, format := range formats {
		path := artifactPath(output, input, format, len(formats))
		if err := os.WriteFile(path, artifacts[format], 0o644); err != nil {
			return paths, fmt.Errorf("write %s: %w", path, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// artifactPath names the file for one format. A single format writes to
// output verbatim when given; otherwise each format gets its extension. A
// JSON layout never replaces the snapshot it was read from.
func artifactPath(output, input, format string, count int) string {
	if count == 1 && output != "" {
		return output
	}
	base := basePath(output, input)
	if path := base + "." + format; path != input {
		return path
	}
	return base + ".layout." + format
}

// basePath derives the base output path from the output and input paths.
// If output is empty, it strips the extension from input.
// If output has a format extension (.png, .svg, etc.), it strips that extension.
func basePath(output, input string) string {
	if output == "" {
		if ext := filepath.Ext(input); slices.Contains([]string{".json", ".yaml", ".yml"}, ext) {
			return strings.TrimSuffix(input, ext)
		}
		return filepath.Base(input)
	}
	ext := filepath.Ext(output)
	if pipeline.ValidFormats[strings.TrimPrefix(ext, ".")] {
		return strings.TrimSuffix(output, ext)
	}
	return output
}
