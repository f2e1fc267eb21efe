package flame

import (
	"fmt"
	"math/rand/v2"
)

// RGB is a 24-bit color.
type RGB struct {
	R, G, B uint8
}

// Hex returns the color as "#rrggbb".
func (c RGB) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// Theme is a palette family keyed to a node's Category.
type Theme int

const (
	// ThemeGreen colors routines nobody could name.
	ThemeGreen Theme = iota
	// ThemePurple colors routines with a profiling symbol.
	ThemePurple
	// ThemeRed colors the synthetic root.
	ThemeRed
)

func (t Theme) String() string {
	switch t {
	case ThemeGreen:
		return "green"
	case ThemePurple:
		return "purple"
	case ThemeRed:
		return "red"
	default:
		return fmt.Sprintf("Theme(%d)", int(t))
	}
}

// Color maps one uniform draw v in [0,1) to a color of the theme. All
// channels derive from the same draw so each theme keeps its tint.
// Palettes follow Brendan Gregg's flamegraph.pl.
func (t Theme) Color(v float64) RGB {
	switch t {
	case ThemePurple:
		x := uint8(190 + int(65*v))
		return RGB{R: x, G: uint8(80 + int(60*v)), B: x}
	case ThemeRed:
		x := uint8(50 + int(80*v))
		return RGB{R: uint8(200 + int(55*v)), G: x, B: x}
	default:
		x := uint8(50 + int(60*v))
		return RGB{R: x, G: uint8(200 + int(55*v)), B: x}
	}
}

// ColorCache assigns every address one random color on first use and
// returns that color for the rest of the cache's life. The theme of later
// calls is ignored: the key is the address alone.
type ColorCache struct {
	rng    *rand.Rand
	colors map[uint64]RGB
}

// NewColorCache creates an empty cache drawing from rng.
// A nil rng gets a freshly seeded source, so colors differ between sessions.
func NewColorCache(rng *rand.Rand) *ColorCache {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &ColorCache{rng: rng, colors: make(map[uint64]RGB)}
}

// NewSeededColorCache creates a cache whose colors are reproducible for a
// given seed and visiting order.
func NewSeededColorCache(seed uint64) *ColorCache {
	return NewColorCache(rand.New(rand.NewPCG(seed, seed^0xdeadbeef)))
}

// ColorFor returns the cached color of addr, drawing one from theme on a miss.
func (c *ColorCache) ColorFor(addr uint64, theme Theme) RGB {
	if col, ok := c.colors[addr]; ok {
		return col
	}
	col := theme.Color(c.rng.Float64())
	c.colors[addr] = col
	return col
}

// Lookup returns the cached color of addr without drawing a new one.
func (c *ColorCache) Lookup(addr uint64) (RGB, bool) {
	col, ok := c.colors[addr]
	return col, ok
}

// Len returns the number of cached colors.
func (c *ColorCache) Len() int { return len(c.colors) }
