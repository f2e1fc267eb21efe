package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/matzehuels/bbflame/pkg/pipeline"
)

// renderOpts holds the command-line flags for the render command.
type renderOpts struct {
	output   string // output file (single format) or base path (multiple)
	formats  string // comma-separated output formats
	noCache  bool   // bypass the render cache
	vizType  string // flame or nodelink
	width    int64  // window width in columns
	cell     int    // cell width in pixels
	row      int    // row height in pixels
	seed     uint64 // color seed; 0 draws fresh colors
	root     int
	offset   int64
	detailed bool
	refresh  bool
	maxNodes int
}

// renderCommand creates the render command for writing one window of a
// trace to files.
func (c *CLI) renderCommand() *cobra.Command {
	var opts renderOpts

	cmd := &cobra.Command{
		Use:   "render [trace]",
		Short: "Render one window of a trace to SVG, PNG, JSON or DOT",
		Long: `Render one window of a trace to files.

The window starts at --offset and spans --width columns of root --root.
Flame graphs (the default) can be written as svg, png or json; node-link
diagrams (--type nodelink) of the same window as svg, png or dot.

Renders with a fixed --seed are cached; repeat runs are served from the
cache unless --no-cache or --refresh is given.`,
		Example: `  bbflame render trace.json
  bbflame render trace.yaml.lz4 --root 1 --offset 200 --width 120 -f svg,json
  bbflame render trace.json -t nodelink -f dot -o - | dot -Tpdf > tree.pdf`,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: traceArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runRender(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (single format, - for stdout) or base path (multiple)")
	cmd.Flags().StringVarP(&opts.formats, "format", "f", "", "output format(s): svg (default), png, json, dot (comma-separated)")
	cmd.Flags().StringVarP(&opts.vizType, "type", "t", pipeline.VizTypeFlame, "visualization type: flame, nodelink")
	cmd.Flags().IntVar(&opts.root, "root", 0, "root index")
	cmd.Flags().Int64Var(&opts.offset, "offset", 0, "first visible column")
	cmd.Flags().Int64Var(&opts.width, "width", 0, "window width in columns (default from config)")
	cmd.Flags().IntVar(&opts.cell, "cell", 0, "cell width in pixels (default from config)")
	cmd.Flags().IntVar(&opts.row, "row", 0, "row height in pixels (default from config)")
	cmd.Flags().Uint64Var(&opts.seed, "seed", 0, "color seed for reproducible output (default from config)")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable caching")
	cmd.Flags().BoolVar(&opts.refresh, "refresh", false, "re-render and overwrite cached output")
	cmd.Flags().BoolVar(&opts.detailed, "detailed", false, "add addresses and sizes to node-link labels")
	cmd.Flags().IntVar(&opts.maxNodes, "max-nodes", 0, "node limit for node-link diagrams")

	return cmd
}

// pipelineOptions merges flags over the loaded config.
func (c *CLI) pipelineOptions(cmd *cobra.Command, ro renderOpts) pipeline.Options {
	opts := pipeline.Options{
		Root:     ro.root,
		Offset:   ro.offset,
		Width:    c.Config.Width,
		VizType:  ro.vizType,
		Formats:  parseFormats(ro.formats),
		Seed:     c.Config.Seed,
		Geometry: c.Config.Geometry(),
		Detailed: ro.detailed,
		MaxNodes: ro.maxNodes,
		Refresh:  ro.refresh,
		Logger:   c.Logger,
	}
	flags := cmd.Flags()
	if flags.Changed("width") {
		opts.Width = ro.width
	}
	if flags.Changed("seed") {
		opts.Seed = ro.seed
	}
	if flags.Changed("cell") {
		opts.Geometry.CellWidth = ro.cell
	}
	if flags.Changed("row") {
		opts.Geometry.RowHeight = ro.row
	}
	return opts
}

// runRender loads the trace, runs the pipeline and writes the artifacts.
func (c *CLI) runRender(cmd *cobra.Command, input string, ro renderOpts) error {
	ctx := cmd.Context()
	opts := c.pipelineOptions(cmd, ro)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return err
	}
	if ro.output == "-" && len(opts.Formats) > 1 {
		return fmt.Errorf("--output - needs exactly one format, got %d", len(opts.Formats))
	}

	src, labels, err := c.loadTrace(input)
	if err != nil {
		return err
	}

	runner, err := c.newRunner(ro.noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	result, err := c.execute(ctx, func(ctx context.Context) (*pipeline.Result, error) {
		return runner.Execute(ctx, src, labels, opts)
	}, ro.output != "-")
	if err != nil {
		return fmt.Errorf("render: %w", err)
	}

	if ro.output == "-" {
		_, err := cmd.OutOrStdout().Write(result.Artifacts[opts.Formats[0]])
		return err
	}

	paths, err := writeArtifacts(result.Artifacts, opts.Formats, input, ro.output)
	if err != nil {
		return err
	}
	printSuccess("Rendered root %d [%d, %d)", opts.Root, opts.Offset, opts.Offset+opts.Width)
	for _, p := range paths {
		printFile(p)
	}
	printStats(result.Frame.Stats.Boxes, result.Frame.Stats.Culled, result.CacheHit)
	return nil
}

// execute runs fn behind a spinner when interactive is set.
func (c *CLI) execute(ctx context.Context, fn func(context.Context) (*pipeline.Result, error), interactive bool) (*pipeline.Result, error) {
	if !interactive {
		return fn(ctx)
	}
	spinner := newSpinner(ctx, "Rendering...")
	spinner.Start()
	result, err := fn(ctx)
	if err != nil {
		spinner.StopWithError("Render failed")
		return nil, err
	}
	spinner.Stop()
	return result, nil
}

// basePath derives the base output path from the output and input paths.
// Trace extensions (including a trailing .lz4) and format extensions are
// stripped.
func basePath(output, input string) string {
	if output == "" {
		base := strings.TrimSuffix(input, ".lz4")
		return strings.TrimSuffix(base, filepath.Ext(base))
	}
	ext := strings.TrimPrefix(filepath.Ext(output), ".")
	if slices.Contains(knownFormats, ext) {
		return strings.TrimSuffix(output, "."+ext)
	}
	return output
}

var knownFormats = []string{pipeline.FormatSVG, pipeline.FormatPNG, pipeline.FormatJSON, pipeline.FormatDOT}

// outputPaths maps every format to its file. A single format written to an
// explicit output path uses that path unchanged.
func outputPaths(formats []string, input, output string) map[string]string {
	paths := make(map[string]string, len(formats))
	if len(formats) == 1 && output != "" {
		paths[formats[0]] = output
		return paths
	}
	base := basePath(output, input)
	for _, f := range formats {
		paths[f] = base + "." + f
	}
	return paths
}

// writeArtifacts writes every artifact and returns the written paths in
// format order.
func writeArtifacts(artifacts map[string][]byte, formats []string, input, output string) ([]string, error) {
	paths := outputPaths(formats, input, output)
	written := make([]string, 0, len(formats))
	for _, f := range formats {
		path := paths[f]
		if err := writeFile(path, artifacts[f]); err != nil {
			return written, err
		}
		written = append(written, fmt.Sprintf("%s (%s)", path, humanize.Bytes(uint64(len(artifacts[f])))))
	}
	return written, nil
}

func writeFile(path string, data []byte) error {
	out, err := openOutput(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer out.Close()
	if _, err := out.Write(data); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// nopCloser wraps a writer that must not be closed.
type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

// openOutput opens path for writing; an empty path is stdout.
func openOutput(path string) (io.WriteCloser, error) {
	if path == "" {
		return nopCloser{os.Stdout}, nil
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, err
		}
	}
	return os.Create(path)
}
