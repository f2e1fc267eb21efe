package sink

import (
	"encoding/json"

	"github.com/matzehuels/bbflame/pkg/viewport"
)

// JSONOption configures JSON rendering via [RenderJSON].
type JSONOption func(*jsonRenderer)

type jsonRenderer struct {
	geom   *viewport.Geometry
	stats  bool
	labels []string
}

// WithJSONGeometry adds the pixel rectangle of every box.
func WithJSONGeometry(g viewport.Geometry) JSONOption {
	return func(r *jsonRenderer) { r.geom = &g }
}

// WithJSONStats records the statistics of the layout pass.
func WithJSONStats() JSONOption { return func(r *jsonRenderer) { r.stats = true } }

// WithJSONRoots lists the selectable roots, e.g. from Controller.RootLabels.
func WithJSONRoots(labels []string) JSONOption { return func(r *jsonRenderer) { r.labels = labels } }

type jsonOutput struct {
	Root     int        `json:"root"`
	RootAddr string     `json:"root_addr"`
	RootSize int64      `json:"root_size"`
	Offset   int64      `json:"offset"`
	Width    int64      `json:"width"`
	Depth    int        `json:"depth"`
	AtEnd    bool       `json:"at_end"`
	Roots    []string   `json:"roots,omitempty"`
	Stats    *jsonStats `json:"stats,omitempty"`
	Rows     []jsonRow  `json:"rows"`
}

type jsonRow struct {
	Depth int       `json:"depth"`
	Boxes []jsonBox `json:"boxes"`
}

type jsonBox struct {
	Addr     string    `json:"addr"`
	X0       int64     `json:"x0"`
	X1       int64     `json:"x1"`
	Size     int64     `json:"size"`
	Name     string    `json:"name"`
	Category string    `json:"category"`
	Color    string    `json:"color"`
	Rect     *jsonRect `json:"rect,omitempty"`
}

type jsonRect struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

type jsonStats struct {
	Visited    int     `json:"visited"`
	Culled     int     `json:"culled"`
	Boxes      int     `json:"boxes"`
	DurationMS float64 `json:"duration_ms"`
}

// RenderJSON encodes the boxes of f, row by row.
func RenderJSON(f viewport.Frame, opts ...JSONOption) ([]byte, error) {
	r := jsonRenderer{}
	for _, opt := range opts {
		opt(&r)
	}

	out := jsonOutput{
		Root:     f.RootIndex,
		RootAddr: hexAddr(f.RootAddr),
		RootSize: f.RootSize,
		Offset:   f.Offset,
		Width:    f.Width,
		Depth:    f.Depth(),
		AtEnd:    f.AtEnd(),
		Roots:    r.labels,
		Rows:     []jsonRow{},
	}
	if r.stats {
		out.Stats = &jsonStats{
			Visited:    f.Stats.Visited,
			Culled:     f.Stats.Culled,
			Boxes:      f.Stats.Boxes,
			DurationMS: float64(f.Stats.Duration.Microseconds()) / 1000,
		}
	}

	for _, depth := range f.Rows.Depths() {
		row := jsonRow{Depth: depth}
		for _, b := range f.Rows[depth] {
			jb := jsonBox{
				Addr:     hexAddr(b.Addr),
				X0:       b.X0,
				X1:       b.X1,
				Size:     b.Size,
				Name:     b.Name,
				Category: b.Category.String(),
				Color:    b.Color.Hex(),
			}
			if r.geom != nil {
				rect := r.geom.Rect(b)
				jb.Rect = &jsonRect{X: rect.X, Y: rect.Y, W: rect.W, H: rect.H}
			}
			row.Boxes = append(row.Boxes, jb)
		}
		out.Rows = append(out.Rows, row)
	}

	return json.MarshalIndent(out, "", "  ")
}
