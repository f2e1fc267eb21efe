package flame

import "fmt"

// RootLabel is the display name of the synthetic root.
const RootLabel = "(root)"

// Symbol is an entry of a trace's companion symbol table.
type Symbol struct {
	Name   string
	Module string
}

// SymbolTable looks up profiling symbols by address.
type SymbolTable interface {
	SymbolFor(addr uint64) (Symbol, bool)
}

// HostNames looks up user or analysis assigned labels by address.
type HostNames interface {
	NameFor(addr uint64) (string, bool)
}

// SymbolFunc adapts a function to SymbolTable.
type SymbolFunc func(addr uint64) (Symbol, bool)

func (f SymbolFunc) SymbolFor(addr uint64) (Symbol, bool) { return f(addr) }

// NameFunc adapts a function to HostNames.
type NameFunc func(addr uint64) (string, bool)

func (f NameFunc) NameFor(addr uint64) (string, bool) { return f(addr) }

// Category classifies a node for coloring, independent of the name shown.
type Category int

const (
	CategoryUnresolved Category = iota
	CategoryResolved
	CategoryRoot
)

func (c Category) String() string {
	switch c {
	case CategoryRoot:
		return "root"
	case CategoryResolved:
		return "resolved"
	default:
		return "unresolved"
	}
}

// Theme returns the palette used for the category.
func (c Category) Theme() Theme {
	switch c {
	case CategoryRoot:
		return ThemeRed
	case CategoryResolved:
		return ThemePurple
	default:
		return ThemeGreen
	}
}

// Resolver names nodes: host label first, then profiling symbol, then a
// placeholder derived from the address. Either lookup may be nil.
type Resolver struct {
	symbols SymbolTable
	host    HostNames
}

// NewResolver creates a Resolver over the given lookups.
func NewResolver(symbols SymbolTable, host HostNames) *Resolver {
	return &Resolver{symbols: symbols, host: host}
}

// Resolve returns the display name and category of addr. It always succeeds.
// The root address is never looked up.
func (r *Resolver) Resolve(addr uint64) (string, Category) {
	if addr == RootAddr {
		return RootLabel, CategoryRoot
	}

	var sym Symbol
	cat := CategoryUnresolved
	if r != nil && r.symbols != nil {
		if s, ok := r.symbols.SymbolFor(addr); ok {
			sym, cat = s, CategoryResolved
		}
	}

	if r != nil && r.host != nil {
		if name, ok := r.host.NameFor(addr); ok && name != "" {
			return name, cat
		}
	}
	if sym.Name != "" {
		return sym.Name, cat
	}
	return Placeholder(addr), cat
}

// Placeholder returns the synthetic name of an unnamed routine.
func Placeholder(addr uint64) string {
	return fmt.Sprintf("proc_%08X", addr)
}
