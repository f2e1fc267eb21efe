package flame_test

import (
	"fmt"

	"github.com/matzehuels/bbflame/pkg/flame"
)

func Example() {
	forest := &flame.Forest{Roots: []*flame.Node{{
		Addr: flame.RootAddr,
		Size: 100,
		Children: []*flame.Node{
			{Addr: 0x401000, Size: 40},
			{Addr: 0x402000, Size: 30},
		},
	}}}
	if err := forest.Validate(); err != nil {
		panic(err)
	}

	symbols := flame.SymbolFunc(func(addr uint64) (flame.Symbol, bool) {
		if addr == 0x401000 {
			return flame.Symbol{Name: "main"}, true
		}
		return flame.Symbol{}, false
	})
	engine := flame.NewEngine(forest, flame.NewResolver(symbols, nil), flame.NewSeededColorCache(1))

	rows := engine.Layout(forest.Roots[0], 0, 60)
	for _, depth := range rows.Depths() {
		for _, b := range rows[depth] {
			fmt.Printf("%d [%d,%d) %s %s\n", depth, b.X0, b.X1, b.Name, b.Category)
		}
	}
	// Output:
	// 0 [0,60) (root) root
	// 1 [1,41) main resolved
	// 1 [41,60) proc_00402000 unresolved
}

func ExampleResolver_Resolve() {
	labels := flame.NameFunc(func(addr uint64) (string, bool) {
		return "decrypt_loop", addr == 0x401000
	})
	r := flame.NewResolver(nil, labels)

	fmt.Println(r.Resolve(0x401000))
	fmt.Println(r.Resolve(0x7ff6))
	// Output:
	// decrypt_loop unresolved
	// proc_00007FF6 unresolved
}
