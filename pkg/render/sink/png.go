package sink

import (
	"bytes"

	"github.com/fogleman/gg"

	"github.com/matzehuels/bbflame/pkg/viewport"
)

// basicfont.Face7x13, gg's default face, advances 7px per glyph.
const pngCharWidth = 7.0

// PNGOption configures PNG rendering.
type PNGOption func(*pngRenderer)

type pngRenderer struct {
	geom   viewport.Geometry
	labels bool
}

// WithPNGGeometry sets the cell size.
func WithPNGGeometry(g viewport.Geometry) PNGOption { return func(r *pngRenderer) { r.geom = g } }

// WithoutPNGLabels draws boxes only.
func WithoutPNGLabels() PNGOption { return func(r *pngRenderer) { r.labels = false } }

// RenderPNG rasterizes f.
func RenderPNG(f viewport.Frame, opts ...PNGOption) ([]byte, error) {
	r := pngRenderer{geom: viewport.DefaultGeometry(), labels: true}
	for _, opt := range opts {
		opt(&r)
	}

	w, h := r.geom.Size(f)
	dc := gg.NewContext(w, h)
	dc.SetRGB255(255, 255, 255)
	dc.Clear()

	dc.SetRGB255(20, 20, 20)
	dc.SetLineWidth(1)
	dc.DrawRectangle(0.5, 0.5, float64(w-1), float64(h-1))
	dc.Stroke()

	for _, depth := range f.Rows.Depths() {
		for _, b := range f.Rows[depth] {
			rect := r.geom.Rect(b)
			dc.SetRGB255(int(b.Color.R), int(b.Color.G), int(b.Color.B))
			dc.DrawRectangle(float64(rect.X), float64(rect.Y), float64(rect.W), float64(rect.H))
			dc.Fill()

			if !r.labels {
				continue
			}
			if label := fitLabel(b.Name, float64(rect.W), pngCharWidth); label != "" {
				dc.SetRGB255(10, 10, 10)
				dc.DrawStringAnchored(label, float64(rect.X)+labelPadding, float64(rect.Y)+float64(rect.H)/2, 0, 0.35)
			}
		}
	}

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
