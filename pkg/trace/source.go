package trace

import (
	"bytes"
	"io"
	"os"

	"github.com/matzehuels/bbflame/pkg/cache"
	"github.com/matzehuels/bbflame/pkg/errors"
	"github.com/matzehuels/bbflame/pkg/flame"
)

// Source is a validated trace: its forest plus the profiler's symbols.
// It satisfies flame.ChildSource and flame.SymbolTable.
type Source struct {
	forest  *flame.Forest
	symbols map[uint64]flame.Symbol
	path    string
	digest  string
}

// NewSource validates forest and bundles it with symbols.
func NewSource(forest *flame.Forest, symbols map[uint64]flame.Symbol) (*Source, error) {
	if forest == nil {
		forest = &flame.Forest{}
	}
	if err := forest.Validate(); err != nil {
		return nil, err
	}
	if symbols == nil {
		symbols = map[uint64]flame.Symbol{}
	}
	return &Source{forest: forest, symbols: symbols}, nil
}

// Load reads and validates the trace at path.
func Load(path string) (*Source, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, errors.New(errors.ErrCodeFileNotFound, "trace file %s not found", path)
	}
	if err != nil {
		return nil, err
	}

	format, compressed := DetectFormat(path)
	src, err := Decode(bytes.NewReader(data), format, compressed)
	if err != nil {
		code := errors.GetCode(err)
		if code == "" {
			code = errors.ErrCodeInvalidTrace
		}
		return nil, errors.Wrap(code, err, "load %s", path)
	}
	src.path = path
	src.digest = cache.Hash(data)
	return src, nil
}

// Decode reads and validates one document from r.
func Decode(r io.Reader, format Format, compressed bool) (*Source, error) {
	doc, err := DecodeDocument(r, format, compressed)
	if err != nil {
		return nil, err
	}
	return NewSource(doc.Forest(), doc.SymbolTable())
}

// Roots returns the trace's root intervals in document order.
func (s *Source) Roots() []*flame.Node { return s.forest.Roots }

// Children returns the ordered children of n.
func (s *Source) Children(n *flame.Node) []*flame.Node { return n.Children }

// SymbolFor returns the profiler symbol at addr.
func (s *Source) SymbolFor(addr uint64) (flame.Symbol, bool) {
	sym, ok := s.symbols[addr]
	return sym, ok
}

// Forest returns the underlying forest.
func (s *Source) Forest() *flame.Forest { return s.forest }

// Symbols returns the number of known symbols.
func (s *Source) Symbols() int { return len(s.symbols) }

// Path returns the file the source was loaded from, if any.
func (s *Source) Path() string { return s.path }

// Digest identifies the file contents the source was loaded from. It is
// empty for sources built in memory.
func (s *Source) Digest() string { return s.digest }

// Document converts the source back to document form.
func (s *Source) Document() *Document { return NewDocument(s.forest, s.symbols) }
