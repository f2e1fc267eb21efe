package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/bbflame/pkg/cache"
	"github.com/matzehuels/bbflame/pkg/flame"
	"github.com/matzehuels/bbflame/pkg/trace"
	"github.com/matzehuels/bbflame/pkg/viewport"
)

// Runner encapsulates pipeline execution with caching.
// Both the CLI and the HTTP viewer use it to avoid duplicating caching logic.
//
// The Runner is stateless except for the cache and logger; multiple
// goroutines can safely use the same Runner with different options.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
	}
}

// Execute lays out one window of src and renders it in every requested
// format. labels may be nil.
func (r *Runner) Execute(ctx context.Context, src *trace.Source, labels *trace.Labels, opts Options) (*Result, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	r.applyLogger(&opts)

	labelsDigest := ""
	if labels.Len() > 0 {
		data, err := labels.Marshal()
		if err != nil {
			return nil, fmt.Errorf("hash labels: %w", err)
		}
		labelsDigest = cache.Hash(data)
	}
	keyFor := func(format string) string {
		return r.Keyer.FrameKey(src.Digest(), opts.FrameKeyOpts(format, labelsDigest))
	}
	cacheable := opts.Cacheable() && src.Digest() != ""

	if cacheable {
		if artifacts, ok := r.cached(ctx, opts.Formats, keyFor); ok {
			opts.Logger.Debug("frame cache hit", "root", opts.Root, "offset", opts.Offset)
			return &Result{Artifacts: artifacts, CacheHit: true}, nil
		}
	}

	result := &Result{}

	// Stage 1: Layout
	layoutStart := time.Now()
	ctrl, frame, err := layoutFrame(src, labels, opts)
	if err != nil {
		return nil, fmt.Errorf("layout: %w", err)
	}
	result.Frame = frame
	result.Stats.Boxes = frame.Stats.Boxes
	result.Stats.LayoutTime = time.Since(layoutStart)

	opts.Logger.Info("computed layout",
		"root", opts.Root,
		"boxes", frame.Stats.Boxes,
		"culled", frame.Stats.Culled,
		"duration", result.Stats.LayoutTime)

	// Stage 2: Render
	renderStart := time.Now()
	artifacts, err := Render(ctrl.Engine(), src.Roots()[opts.Root], frame, opts)
	if err != nil {
		return nil, err
	}
	result.Artifacts = artifacts
	result.Stats.RenderTime = time.Since(renderStart)

	opts.Logger.Info("rendered outputs",
		"formats", opts.Formats,
		"duration", result.Stats.RenderTime)

	if cacheable {
		for format, data := range artifacts {
			if err := r.Cache.Set(ctx, keyFor(format), data, cache.TTLArtifact); err != nil {
				opts.Logger.Warn("cache write failed", "format", format, "error", err)
			}
		}
	}
	return result, nil
}

func (r *Runner) cached(ctx context.Context, formats []string, keyFor func(string) string) (map[string][]byte, bool) {
	artifacts := make(map[string][]byte, len(formats))
	for _, format := range formats {
		data, hit, err := r.Cache.Get(ctx, keyFor(format))
		if err != nil || !hit {
			return nil, false
		}
		artifacts[format] = data
	}
	return artifacts, true
}

// layoutFrame opens the requested window on a fresh controller in a single
// layout pass.
func layoutFrame(src *trace.Source, labels *trace.Labels, opts Options) (*viewport.Controller, viewport.Frame, error) {
	ctrlOpts := []viewport.Option{viewport.WithHostNames(labels)}
	if opts.Seed != 0 {
		ctrlOpts = append(ctrlOpts, viewport.WithSeed(opts.Seed))
	}
	ctrl := viewport.New(src, ctrlOpts...)

	frame, err := ctrl.SelectRootAt(opts.Root, opts.Offset, opts.Width)
	if err != nil {
		return nil, viewport.Frame{}, err
	}
	return ctrl, frame, nil
}

// RootSummary describes one root of a trace.
type RootSummary struct {
	Index    int    `json:"index"`
	Label    string `json:"label"`
	Addr     string `json:"addr"`
	Size     int64  `json:"size"`
	Nodes    int    `json:"nodes"`
	MaxDepth int    `json:"max_depth"`
}

// Roots summarizes every root of src. Summaries are cached by trace digest.
func (r *Runner) Roots(ctx context.Context, src *trace.Source) ([]RootSummary, error) {
	key := r.Keyer.RootsKey(src.Digest())
	if src.Digest() != "" {
		if data, hit, err := r.Cache.Get(ctx, key); err == nil && hit {
			var cached []RootSummary
			if err := json.Unmarshal(data, &cached); err == nil {
				return cached, nil
			}
		}
	}

	roots := src.Roots()
	out := make([]RootSummary, len(roots))
	for i, root := range roots {
		stats := flame.Stats(root)
		out[i] = RootSummary{
			Index:    i,
			Label:    viewport.RootLabel(i, root),
			Addr:     trace.FormatAddress(root.Addr),
			Size:     root.Size,
			Nodes:    stats.Nodes,
			MaxDepth: stats.MaxDepth,
		}
	}

	if src.Digest() != "" {
		if data, err := json.Marshal(out); err == nil {
			_ = r.Cache.Set(ctx, key, data, cache.TTLArtifact)
		}
	}
	return out, nil
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}
