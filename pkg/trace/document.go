package trace

import (
	"cmp"
	"encoding/json"
	"io"
	"path/filepath"
	"slices"
	"strings"

	"github.com/pierrec/lz4/v4"
	"gopkg.in/yaml.v3"

	"github.com/matzehuels/bbflame/pkg/errors"
	"github.com/matzehuels/bbflame/pkg/flame"
)

// Format is the encoding of a trace document.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// Document is the on-disk shape of a trace.
type Document struct {
	Roots   []NodeDoc   `json:"roots" yaml:"roots"`
	Symbols []SymbolDoc `json:"symbols,omitempty" yaml:"symbols,omitempty"`
}

// NodeDoc is one interval of a document.
type NodeDoc struct {
	Addr     Address   `json:"addr" yaml:"addr"`
	Size     int64     `json:"size" yaml:"size"`
	Children []NodeDoc `json:"children,omitempty" yaml:"children,omitempty"`
}

// SymbolDoc is one profiler symbol.
type SymbolDoc struct {
	Addr   Address `json:"addr" yaml:"addr"`
	Name   string  `json:"name" yaml:"name"`
	Module string  `json:"module,omitempty" yaml:"module,omitempty"`
}

// DetectFormat guesses the format of path from its extension and reports
// whether the file is LZ4 compressed. Unknown extensions are read as JSON.
func DetectFormat(path string) (Format, bool) {
	name := strings.ToLower(filepath.Base(path))
	compressed := strings.HasSuffix(name, ".lz4")
	name = strings.TrimSuffix(name, ".lz4")
	switch filepath.Ext(name) {
	case ".yaml", ".yml":
		return FormatYAML, compressed
	default:
		return FormatJSON, compressed
	}
}

// DecodeDocument reads one document from r.
func DecodeDocument(r io.Reader, format Format, compressed bool) (*Document, error) {
	if compressed {
		r = lz4.NewReader(r)
	}

	var doc Document
	var err error
	switch format {
	case FormatYAML:
		err = yaml.NewDecoder(r).Decode(&doc)
	case FormatJSON, "":
		format = FormatJSON
		err = json.NewDecoder(r).Decode(&doc)
	default:
		return nil, errors.New(errors.ErrCodeInvalidFormat, "unsupported trace format %q", format)
	}
	if err != nil {
		if err == io.EOF {
			return nil, errors.New(errors.ErrCodeInvalidTrace, "empty %s document", format)
		}
		if errors.GetCode(err) != "" {
			return nil, err
		}
		return nil, errors.Wrap(errors.ErrCodeInvalidTrace, err, "decode %s document", format)
	}
	return &doc, nil
}

// EncodeDocument writes doc to w. It is the inverse of DecodeDocument.
func EncodeDocument(w io.Writer, doc *Document, format Format, compressed bool) error {
	var zw *lz4.Writer
	if compressed {
		zw = lz4.NewWriter(w)
		w = zw
	}

	var err error
	switch format {
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err = enc.Encode(doc); err == nil {
			err = enc.Close()
		}
	case FormatJSON, "":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		err = enc.Encode(doc)
	default:
		return errors.New(errors.ErrCodeInvalidFormat, "unsupported trace format %q", format)
	}
	if err != nil {
		return err
	}
	if zw != nil {
		return zw.Close()
	}
	return nil
}

// Forest converts the document's roots to layout nodes.
func (d *Document) Forest() *flame.Forest {
	type item struct {
		doc  *NodeDoc
		node *flame.Node
	}

	f := &flame.Forest{Roots: make([]*flame.Node, len(d.Roots))}
	stack := make([]item, 0, len(d.Roots))
	for i := range d.Roots {
		f.Roots[i] = &flame.Node{}
		stack = append(stack, item{&d.Roots[i], f.Roots[i]})
	}
	for len(stack) > 0 {
		it := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		it.node.Addr = uint64(it.doc.Addr)
		it.node.Size = it.doc.Size
		if len(it.doc.Children) == 0 {
			continue
		}
		it.node.Children = make([]*flame.Node, len(it.doc.Children))
		for j := range it.doc.Children {
			it.node.Children[j] = &flame.Node{}
			stack = append(stack, item{&it.doc.Children[j], it.node.Children[j]})
		}
	}
	return f
}

// SymbolTable indexes the document's symbols by address. Later entries
// replace earlier ones.
func (d *Document) SymbolTable() map[uint64]flame.Symbol {
	table := make(map[uint64]flame.Symbol, len(d.Symbols))
	for _, s := range d.Symbols {
		table[uint64(s.Addr)] = flame.Symbol{Name: s.Name, Module: s.Module}
	}
	return table
}

// NewDocument converts a forest and its symbols back to document form.
func NewDocument(f *flame.Forest, symbols map[uint64]flame.Symbol) *Document {
	var convert func(n *flame.Node) NodeDoc
	convert = func(n *flame.Node) NodeDoc {
		d := NodeDoc{Addr: Address(n.Addr), Size: n.Size}
		for _, c := range n.Children {
			d.Children = append(d.Children, convert(c))
		}
		return d
	}

	doc := &Document{}
	for _, r := range f.Roots {
		doc.Roots = append(doc.Roots, convert(r))
	}
	for addr, s := range symbols {
		doc.Symbols = append(doc.Symbols, SymbolDoc{Addr: Address(addr), Name: s.Name, Module: s.Module})
	}
	slices.SortFunc(doc.Symbols, func(a, b SymbolDoc) int { return cmp.Compare(a.Addr, b.Addr) })
	return doc
}
