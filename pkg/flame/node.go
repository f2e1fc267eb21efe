package flame

import (
	"github.com/matzehuels/bbflame/pkg/errors"
)

// RootAddr is the address reserved for synthetic roots.
const RootAddr uint64 = 0

// Node is one weighted interval of a trace.
type Node struct {
	Addr     uint64
	Size     int64
	Children []*Node
}

// ChildOffset is the column distance between a node's left edge and its
// first child: one column, or none for a zero-width node.
func (n *Node) ChildOffset() int64 {
	if n.Size == 0 {
		return 0
	}
	return 1
}

// ChildrenSize returns the summed size of the direct children.
func (n *Node) ChildrenSize() int64 {
	var sum int64
	for _, c := range n.Children {
		sum += c.Size
	}
	return sum
}

// ChildSource lists the ordered children of a node.
type ChildSource interface {
	Children(n *Node) []*Node
}

// Forest is an ordered list of independent trace roots.
type Forest struct {
	Roots []*Node
}

// Children returns n.Children; Forest is the default ChildSource.
func (f *Forest) Children(n *Node) []*Node { return n.Children }

// Len returns the number of roots.
func (f *Forest) Len() int {
	if f == nil {
		return 0
	}
	return len(f.Roots)
}

// Root returns the root at index or an ErrCodeNoTraceData error.
func (f *Forest) Root(index int) (*Node, error) {
	if err := errors.ValidateRootIndex(index, f.Len()); err != nil {
		return nil, err
	}
	return f.Roots[index], nil
}

// TreeStats summarizes one tree.
type TreeStats struct {
	Nodes    int
	MaxDepth int
}

// Stats counts the nodes under root and its deepest row.
func Stats(root *Node) TreeStats {
	type item struct {
		n     *Node
		depth int
	}
	var s TreeStats
	if root == nil {
		return s
	}
	stack := []item{{root, 0}}
	for len(stack) > 0 {
		it := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		s.Nodes++
		s.MaxDepth = max(s.MaxDepth, it.depth)
		for _, c := range it.n.Children {
			stack = append(stack, item{c, it.depth + 1})
		}
	}
	return s
}

// Validate checks every tree of the forest for data-integrity errors:
// nil nodes, negative sizes and children that overflow their parent's span.
// It runs once when a trace is loaded so layout never meets a bad node.
func (f *Forest) Validate() error {
	for i, root := range f.Roots {
		if root == nil {
			return errors.New(errors.ErrCodeInvalidNode, "root %d is nil", i)
		}
		if err := validateTree(root); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidTrace, err, "root %d", i)
		}
	}
	return nil
}

func validateTree(root *Node) error {
	stack := []*Node{root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if n.Size < 0 {
			return errors.New(errors.ErrCodeInvalidNode, "node %#x has negative size %d", n.Addr, n.Size)
		}
		var sum int64
		room := n.Size - n.ChildOffset()
		for j, c := range n.Children {
			if c == nil {
				return errors.New(errors.ErrCodeInvalidNode, "node %#x has nil child %d", n.Addr, j)
			}
			if c.Size < 0 {
				return errors.New(errors.ErrCodeInvalidNode, "node %#x has negative size %d", c.Addr, c.Size)
			}
			// sum <= room holds here, so room-sum cannot overflow.
			if c.Size > room-sum {
				return errors.New(errors.ErrCodeInvalidNode,
					"children of node %#x overflow the %d columns inside the parent at child %d", n.Addr, room, j)
			}
			sum += c.Size
			stack = append(stack, c)
		}
	}
	return nil
}
