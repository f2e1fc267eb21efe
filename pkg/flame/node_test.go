package flame

import (
	"math"
	"testing"

	"github.com/matzehuels/bbflame/pkg/errors"
)

func TestForestValidate(t *testing.T) {
	tests := []struct {
		name     string
		forest   Forest
		wantCode errors.Code
	}{
		{
			name: "valid",
			forest: Forest{Roots: []*Node{
				{Addr: 0, Size: 100, Children: []*Node{{Addr: 0x401000, Size: 40}, {Addr: 0x402000, Size: 59}}},
			}},
		},
		{
			name:   "children under-fill parent",
			forest: Forest{Roots: []*Node{{Size: 10, Children: []*Node{{Addr: 1, Size: 2}}}}},
		},
		{
			name:   "zero size leaf",
			forest: Forest{Roots: []*Node{{Size: 10, Children: []*Node{{Addr: 1, Size: 0}}}}},
		},
		{
			name:     "nil root",
			forest:   Forest{Roots: []*Node{nil}},
			wantCode: errors.ErrCodeInvalidNode,
		},
		{
			name:     "negative root size",
			forest:   Forest{Roots: []*Node{{Size: -1}}},
			wantCode: errors.ErrCodeInvalidTrace,
		},
		{
			name:     "negative child size",
			forest:   Forest{Roots: []*Node{{Size: 10, Children: []*Node{{Addr: 1, Size: -3}}}}},
			wantCode: errors.ErrCodeInvalidTrace,
		},
		{
			name: "children sizes wrap int64",
			forest: Forest{Roots: []*Node{{Size: 10, Children: []*Node{
				{Addr: 1, Size: math.MaxInt64}, {Addr: 2, Size: math.MaxInt64}, {Addr: 3, Size: 5},
			}}}},
			wantCode: errors.ErrCodeInvalidTrace,
		},
		{
			name:     "children overflow parent",
			forest:   Forest{Roots: []*Node{{Size: 10, Children: []*Node{{Addr: 1, Size: 5}, {Addr: 2, Size: 5}}}}},
			wantCode: errors.ErrCodeInvalidTrace,
		},
		{
			name:     "zero size parent with sized child",
			forest:   Forest{Roots: []*Node{{Size: 10, Children: []*Node{{Addr: 1, Size: 0, Children: []*Node{{Addr: 2, Size: 1}}}}}}},
			wantCode: errors.ErrCodeInvalidTrace,
		},
		{
			name:     "nil child",
			forest:   Forest{Roots: []*Node{{Size: 10, Children: []*Node{nil}}}},
			wantCode: errors.ErrCodeInvalidTrace,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.forest.Validate()
			if tt.wantCode == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantCode) {
				t.Errorf("Validate() error = %v, want code %v", err, tt.wantCode)
			}
		})
	}
}

func TestForestRoot(t *testing.T) {
	f := &Forest{Roots: []*Node{{Size: 1}, {Addr: 7, Size: 2}}}

	n, err := f.Root(1)
	if err != nil {
		t.Fatalf("Root(1) error: %v", err)
	}
	if n.Addr != 7 {
		t.Errorf("Root(1).Addr = %d, want 7", n.Addr)
	}

	if _, err := f.Root(2); !errors.Is(err, errors.ErrCodeNoTraceData) {
		t.Errorf("Root(2) error = %v, want %v", err, errors.ErrCodeNoTraceData)
	}

	var empty *Forest
	if _, err := empty.Root(0); !errors.Is(err, errors.ErrCodeNoTraceData) {
		t.Errorf("nil forest Root(0) error = %v, want %v", err, errors.ErrCodeNoTraceData)
	}
}

func TestStats(t *testing.T) {
	root := &Node{Size: 10, Children: []*Node{
		{Addr: 1, Size: 4, Children: []*Node{{Addr: 3, Size: 2}}},
		{Addr: 2, Size: 3},
	}}

	s := Stats(root)
	if s.Nodes != 4 {
		t.Errorf("Nodes = %d, want 4", s.Nodes)
	}
	if s.MaxDepth != 2 {
		t.Errorf("MaxDepth = %d, want 2", s.MaxDepth)
	}

	if got := Stats(nil); got != (TreeStats{}) {
		t.Errorf("Stats(nil) = %+v, want zero", got)
	}
}

func TestChildOffset(t *testing.T) {
	if got := (&Node{Size: 5}).ChildOffset(); got != 1 {
		t.Errorf("ChildOffset() = %d, want 1", got)
	}
	if got := (&Node{Size: 0}).ChildOffset(); got != 0 {
		t.Errorf("zero-width ChildOffset() = %d, want 0", got)
	}
}
