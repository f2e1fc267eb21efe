// Package pipeline renders trace frames to files with caching.
//
// This package implements the load → layout → render path shared by the
// render command and the HTTP viewer, so both produce byte-identical
// artifacts for the same inputs.
//
// # Architecture
//
// A run has two stages:
//
//  1. Layout: drive a [viewport.Controller] to the requested root, offset
//     and width, producing one [viewport.Frame]
//  2. Render: encode the frame in each requested format (SVG, PNG, JSON for
//     flame graphs; SVG, PNG, DOT for node-link diagrams)
//
// Artifacts are cached by trace digest and options when colors are seeded.
// Unseeded runs draw fresh colors every time, so caching them would freeze
// one arbitrary palette.
//
// # Usage
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	result, err := runner.Execute(ctx, src, labels, pipeline.Options{
//	    Root:    0,
//	    Width:   120,
//	    Formats: []string{"svg"},
//	    Seed:    42,
//	})
//	svg := result.Artifacts["svg"]
package pipeline

import (
	"io"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/bbflame/pkg/cache"
	"github.com/matzehuels/bbflame/pkg/errors"
	"github.com/matzehuels/bbflame/pkg/viewport"
)

// Default values shared by the CLI and the HTTP viewer.
const (
	// DefaultWidth is the default window width in columns.
	DefaultWidth int64 = 80

	// DefaultMaxNodes caps node-link diagrams; Graphviz slows down sharply
	// past a few thousand nodes.
	DefaultMaxNodes = 2000
)

// Visualization types.
const (
	VizTypeFlame    = "flame"
	VizTypeNodelink = "nodelink"
)

// Output formats.
const (
	FormatSVG  = "svg"
	FormatPNG  = "png"
	FormatJSON = "json"
	FormatDOT  = "dot"
)

// ValidFormats lists the formats each visualization type supports.
var ValidFormats = map[string][]string{
	VizTypeFlame:    {FormatSVG, FormatPNG, FormatJSON},
	VizTypeNodelink: {FormatSVG, FormatPNG, FormatDOT},
}

// Options contains all configuration for one pipeline run.
type Options struct {
	Root     int               `json:"root"`
	Offset   int64             `json:"offset,omitempty"`
	Width    int64             `json:"width,omitempty"`
	VizType  string            `json:"viz_type,omitempty"`
	Formats  []string          `json:"formats,omitempty"`
	Seed     uint64            `json:"seed,omitempty"`
	Geometry viewport.Geometry `json:"geometry"`
	Detailed bool              `json:"detailed,omitempty"`
	MaxNodes int               `json:"max_nodes,omitempty"`
	Refresh  bool              `json:"refresh,omitempty"`

	// Runtime options (not serialized)
	Logger *log.Logger `json:"-"`
}

// Result contains the outputs of a pipeline run.
type Result struct {
	// Frame is the laid out window. It is empty when every artifact came
	// from the cache.
	Frame viewport.Frame

	// Artifacts contains rendered outputs keyed by format.
	Artifacts map[string][]byte

	// Stats contains timing information.
	Stats Stats

	// CacheHit is true when every artifact came from the cache.
	CacheHit bool
}

// Stats contains pipeline execution statistics.
type Stats struct {
	Boxes      int
	LayoutTime time.Duration
	RenderTime time.Duration
}

// ValidateVizType checks that a visualization type is valid.
func ValidateVizType(vizType string) error {
	if _, ok := ValidFormats[vizType]; !ok {
		return errors.New(errors.ErrCodeInvalidInput, "invalid viz type: %q (must be one of: flame, nodelink)", vizType)
	}
	return nil
}

// ValidateFormats checks that every format is supported by vizType.
func ValidateFormats(vizType string, formats []string) error {
	allowed := ValidFormats[vizType]
	for _, f := range formats {
		if err := errors.ValidateFormat(f, allowed...); err != nil {
			return err
		}
	}
	return nil
}

// ValidateAndSetDefaults checks the options and fills in defaults.
func (o *Options) ValidateAndSetDefaults() error {
	if o.VizType == "" {
		o.VizType = VizTypeFlame
	}
	if err := ValidateVizType(o.VizType); err != nil {
		return err
	}
	if len(o.Formats) == 0 {
		o.Formats = []string{FormatSVG}
	}
	for i, f := range o.Formats {
		o.Formats[i] = strings.ToLower(strings.TrimSpace(f))
	}
	o.Formats = slices.Compact(o.Formats)
	if err := ValidateFormats(o.VizType, o.Formats); err != nil {
		return err
	}
	if o.Width == 0 {
		o.Width = DefaultWidth
	}
	if err := errors.ValidateWindow(o.Offset, o.Offset+o.Width); err != nil {
		return err
	}
	if o.Root < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "root index %d is negative", o.Root)
	}
	if o.Geometry == (viewport.Geometry{}) {
		o.Geometry = viewport.DefaultGeometry()
	}
	if o.VizType == VizTypeNodelink && o.MaxNodes == 0 {
		o.MaxNodes = DefaultMaxNodes
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return nil
}

// IsNodelink returns true if this is a node-link visualization.
func (o *Options) IsNodelink() bool {
	return o.VizType == VizTypeNodelink
}

// Cacheable reports whether results of these options are reproducible.
func (o *Options) Cacheable() bool {
	return o.Seed != 0 && !o.Refresh
}

// FrameKeyOpts returns cache key options for one format.
func (o *Options) FrameKeyOpts(format, labelsDigest string) cache.FrameKeyOpts {
	return cache.FrameKeyOpts{
		Root:   o.Root,
		Offset: o.Offset,
		Width:  o.Width,
		Format: format,
		Type:   o.VizType,
		Seed:   o.Seed,
		Labels: labelsDigest,
		Cell:   o.Geometry.CellWidth,
		Row:    o.Geometry.RowHeight,
	}
}
