// Package stacktree aggregates call-stack samples into a trie keyed on frame
// identity. Samples sharing a call-path prefix share nodes; only the
// innermost frame of each sample is counted, so a node's count reflects how
// often that exact frame was the one executing.
package stacktree

import (
	"sort"
	"strings"
)

// Node is one frame at one position in the aggregated call tree.
type Node struct {
	frame    Frame
	count    uint64
	children map[Frame]*Node
}

// Frame returns the node's frame identity.
func (n *Node) Frame() Frame { return n.frame }

// Count returns how many samples terminated exactly at this node.
func (n *Node) Count() uint64 { return n.count }

// Tree is the aggregation trie. The root level is a set of sibling nodes
// (the outermost observed frames), not a synthetic node. Not safe for
// concurrent use; the profiler mutates it from a single runtime thread.
type Tree struct {
	root    map[Frame]*Node
	interns map[string]string
	scratch []Frame
	nodes   int
	total   uint64
}

// New returns an empty tree.
func New() *Tree {
	return &Tree{
		root:    make(map[Frame]*Node),
		interns: make(map[string]string),
	}
}

// intern returns a stable copy of unit owned by the tree. Host runtimes may
// hand out transient strings from the stack walk; keeping an interned copy
// removes any lifetime coupling and stores each unit name once.
func (t *Tree) intern(unit string) string {
	if s, ok := t.interns[unit]; ok {
		return s
	}
	s := strings.Clone(unit)
	t.interns[s] = s
	return s
}

// Record captures one sample. frameAt resolves the frame at a given depth
// (0 = innermost) and reports false past the outermost frame. The trie path
// is located or created from the outermost frame inward and the innermost
// node's count is incremented; ancestors keep whatever count they had.
// Reports false when the stack was empty, which is not an error.
//
// Steady state allocates nothing: the stack scratch buffer is reused and
// nodes are only created on first visit to a new path.
func (t *Tree) Record(frameAt func(depth int) (Frame, bool)) bool {
	t.scratch = t.scratch[:0]
	for depth := 0; ; depth++ {
		f, ok := frameAt(depth)
		if !ok {
			break
		}
		f.Unit = t.intern(f.Unit)
		t.scratch = append(t.scratch, f)
	}
	if len(t.scratch) == 0 {
		return false
	}

	siblings := t.root
	var node *Node
	for i := len(t.scratch) - 1; i >= 0; i-- {
		f := t.scratch[i]
		node = siblings[f]
		if node == nil {
			node = &Node{frame: f}
			siblings[f] = node
			t.nodes++
		}
		if i > 0 {
			if node.children == nil {
				node.children = make(map[Frame]*Node)
			}
			siblings = node.children
		}
	}
	node.count++
	t.total++
	return true
}

// Walk traverses the tree depth first, children before the node itself, and
// calls fn with the full outer-to-inner stack ending at each node. Siblings
// are visited in (unit, line) order so traversal is deterministic. When
// emitZero is false, nodes that were never the innermost frame are skipped.
//
// The stack slice is reused across calls; fn must not retain it.
func (t *Tree) Walk(emitZero bool, fn func(stack []Frame, self uint64)) {
	walk(t.root, nil, emitZero, fn)
}

func walk(siblings map[Frame]*Node, prefix []Frame, emitZero bool, fn func([]Frame, uint64)) {
	ordered := make([]Frame, 0, len(siblings))
	for f := range siblings {
		ordered = append(ordered, f)
	}
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].Unit != ordered[j].Unit {
			return ordered[i].Unit < ordered[j].Unit
		}
		return ordered[i].Line < ordered[j].Line
	})

	for _, f := range ordered {
		n := siblings[f]
		stack := append(prefix, f)
		if len(n.children) > 0 {
			walk(n.children, stack, emitZero, fn)
		}
		if emitZero || n.count > 0 {
			fn(stack, n.count)
		}
	}
}

// Roots returns the outermost sibling set. Exposed for tests and inspection.
func (t *Tree) Roots() map[Frame]*Node { return t.root }

// Children returns a node's child set; nil for leaves.
func (n *Node) Children() map[Frame]*Node { return n.children }

// Nodes reports the number of distinct call-path nodes in the tree.
func (t *Tree) Nodes() int { return t.nodes }

// Total reports the number of samples recorded.
func (t *Tree) Total() uint64 { return t.total }
