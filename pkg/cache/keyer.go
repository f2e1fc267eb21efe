package cache

// FrameKeyOpts are the inputs that change a rendered frame.
type FrameKeyOpts struct {
	Root   int    `json:"root"`
	Offset int64  `json:"offset"`
	Width  int64  `json:"width"`
	Format string `json:"format"`
	Type   string `json:"type,omitempty"`
	Seed   uint64 `json:"seed,omitempty"`
	Labels string `json:"labels,omitempty"` // digest of the label file
	Cell   int    `json:"cell,omitempty"`
	Row    int    `json:"row,omitempty"`

	// Generation separates frames of the same root drawn with different
	// color caches.
	Generation int `json:"generation,omitempty"`
}

// Keyer builds cache keys.
type Keyer interface {
	// FrameKey identifies one rendered frame of the trace with the given digest.
	FrameKey(traceDigest string, opts FrameKeyOpts) string
	// RootsKey identifies the root summary of a trace.
	RootsKey(traceDigest string) string
}

// DefaultKeyer hashes key inputs with SHA-256.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the standard keyer.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

func (DefaultKeyer) FrameKey(traceDigest string, opts FrameKeyOpts) string {
	return hashKey("frame", traceDigest, opts)
}

func (DefaultKeyer) RootsKey(traceDigest string) string {
	return hashKey("roots", traceDigest)
}
