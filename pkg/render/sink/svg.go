package sink

import (
	"bytes"
	"fmt"

	"github.com/matzehuels/bbflame/pkg/viewport"
)

const highlightCSS = `
    .box rect { transition: stroke-width 0.15s ease; }
    .box.highlight rect { stroke: #141414; stroke-width: 2; }`

const highlightJS = `
    function highlight(addr) {
      document.querySelectorAll('.box').forEach(b => b.classList.toggle('highlight', b.dataset.addr === addr));
    }
    document.querySelectorAll('.box').forEach(el => {
      el.addEventListener('mouseenter', () => highlight(el.dataset.addr));
      el.addEventListener('mouseleave', () => highlight(''));
    });`

// SVGOption configures SVG rendering.
type SVGOption func(*svgRenderer)

type svgRenderer struct {
	geom        viewport.Geometry
	fontSize    float64
	labels      bool
	interactive bool
	title       string
}

func WithGeometry(g viewport.Geometry) SVGOption { return func(r *svgRenderer) { r.geom = g } }
func WithFontSize(px float64) SVGOption          { return func(r *svgRenderer) { r.fontSize = px } }
func WithoutLabels() SVGOption                   { return func(r *svgRenderer) { r.labels = false } }
func WithInteraction() SVGOption                 { return func(r *svgRenderer) { r.interactive = true } }
func WithTitle(s string) SVGOption               { return func(r *svgRenderer) { r.title = s } }

func newSVGRenderer(opts ...SVGOption) svgRenderer {
	r := svgRenderer{geom: viewport.DefaultGeometry(), labels: true}
	for _, opt := range opts {
		opt(&r)
	}
	if r.fontSize <= 0 {
		r.fontSize = float64(max(r.geom.RowHeight, 1)) * 0.55
	}
	return r
}

// RenderSVG draws f as a standalone SVG document.
func RenderSVG(f viewport.Frame, opts ...SVGOption) []byte {
	r := newSVGRenderer(opts...)
	w, h := r.geom.Size(f)

	var buf bytes.Buffer
	fmt.Fprintf(&buf, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %d %d" width="%d" height="%d">`+"\n", w, h, w, h)
	if r.title != "" {
		fmt.Fprintf(&buf, "  <title>%s</title>\n", escapeXML(r.title))
	}
	fmt.Fprintf(&buf, `  <rect class="frame" x="0" y="0" width="%d" height="%d" fill="none" stroke="#141414"/>`+"\n", max(w-1, 0), max(h-1, 0))

	for _, depth := range f.Rows.Depths() {
		for _, b := range f.Rows[depth] {
			rect := r.geom.Rect(b)
			fmt.Fprintf(&buf, `  <g class="box" data-addr="%s">`, hexAddr(b.Addr))
			fmt.Fprintf(&buf, `<title>%s (%s, %d)</title>`, escapeXML(b.Name), hexAddr(b.Addr), b.Size)
			fmt.Fprintf(&buf, `<rect x="%d" y="%d" width="%d" height="%d" fill="%s"/>`,
				rect.X, rect.Y, rect.W, rect.H, b.Color.Hex())
			if r.labels {
				if label := fitLabel(b.Name, float64(rect.W), r.fontSize*fontCharWidth); label != "" {
					fmt.Fprintf(&buf, `<text x="%.1f" y="%.1f" font-family="monospace" font-size="%.1f" fill="#0a0a0a">%s</text>`,
						float64(rect.X)+labelPadding, float64(rect.Y)+float64(rect.H)*0.5+r.fontSize*0.35, r.fontSize, escapeXML(label))
				}
			}
			buf.WriteString("</g>\n")
		}
	}

	if r.interactive {
		fmt.Fprintf(&buf, "  <style>%s\n  </style>\n", highlightCSS)
		fmt.Fprintf(&buf, "  <script type=\"text/javascript\"><![CDATA[%s\n  ]]></script>\n", highlightJS)
	}
	buf.WriteString("</svg>\n")
	return buf.Bytes()
}
