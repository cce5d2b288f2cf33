// Package ast exposes a uniform syntax tree over several unrelated parser
// libraries. Every grammar adapter produces the same flattened Tree, so the
// chunker never depends on a concrete grammar API.
package ast

// Node is one syntax node of a Tree.
//
// Spans are byte offsets [StartByte, EndByte). Children are indices into
// Tree.Nodes, ordered by start offset, non-overlapping and contained in the
// parent span.
type Node struct {
	Kind      string
	StartByte int
	EndByte   int
	Parent    int // -1 for the root
	Depth     int
	Children  []int

	// HasError is set when the node or one of its descendants is a
	// parse-recovery node.
	HasError bool
}

// IsLeaf reports whether the node has no children left to subdivide.
func (n *Node) IsLeaf() bool {
	return len(n.Children) == 0
}

// Len returns the span length in bytes.
func (n *Node) Len() int {
	return n.EndByte - n.StartByte
}

// Tree is a parsed document flattened into a pre-order arena. Index 0 is
// the root, which always spans the whole document.
type Tree struct {
	Language string
	Nodes    []Node
}

// Root returns the root index.
func (t *Tree) Root() int { return 0 }

// Node returns the node at index i.
func (t *Tree) Node(i int) *Node { return &t.Nodes[i] }

// Len returns the number of nodes.
func (t *Tree) Len() int { return len(t.Nodes) }

// HasError reports whether the parser had to recover anywhere in the document.
func (t *Tree) HasError() bool {
	return len(t.Nodes) > 0 && t.Nodes[0].HasError
}

// Path returns the node kinds from the root down to node i, inclusive.
func (t *Tree) Path(i int) []string {
	path := make([]string, t.Nodes[i].Depth+1)
	for j := i; j >= 0; j = t.Nodes[j].Parent {
		path[t.Nodes[j].Depth] = t.Nodes[j].Kind
	}
	return path
}

// CommonAncestor returns the deepest node that is an ancestor of (or equal
// to) both a and b.
func (t *Tree) CommonAncestor(a, b int) int {
	for t.Nodes[a].Depth > t.Nodes[b].Depth {
		a = t.Nodes[a].Parent
	}
	for t.Nodes[b].Depth > t.Nodes[a].Depth {
		b = t.Nodes[b].Parent
	}
	for a != b {
		a = t.Nodes[a].Parent
		b = t.Nodes[b].Parent
	}
	return a
}

// Builder assembles a Tree in pre-order and enforces the structural
// invariants adapters cannot always guarantee: the root covers the whole
// document, children are clamped into their parent, zero-width children are
// dropped, and siblings never overlap.
type Builder struct {
	srcLen int
	nodes  []Node
}

// NewBuilder creates a builder for a document of srcLen bytes.
func NewBuilder(srcLen int) *Builder {
	return &Builder{srcLen: srcLen}
}

// Root adds the root node and returns its index (always 0).
func (b *Builder) Root(kind string, hasError bool) int {
	b.nodes = append(b.nodes[:0], Node{
		Kind:      kind,
		StartByte: 0,
		EndByte:   b.srcLen,
		Parent:    -1,
		HasError:  hasError,
	})
	return 0
}

// Add appends a child of parent and returns its index, or -1 when the node
// was dropped. Children of a dropped node are dropped as well, so adapters
// can pass the returned index straight through as the next parent.
func (b *Builder) Add(parent int, kind string, start, end int, isError bool) int {
	if parent < 0 || parent >= len(b.nodes) {
		return -1
	}

	p := &b.nodes[parent]
	if start < p.StartByte {
		start = p.StartByte
	}
	if end > p.EndByte {
		end = p.EndByte
	}
	if n := len(p.Children); n > 0 {
		if prevEnd := b.nodes[p.Children[n-1]].EndByte; start < prevEnd {
			start = prevEnd
		}
	}
	if start >= end {
		return -1
	}

	idx := len(b.nodes)
	b.nodes = append(b.nodes, Node{
		Kind:      kind,
		StartByte: start,
		EndByte:   end,
		Parent:    parent,
		Depth:     b.nodes[parent].Depth + 1,
	})
	b.nodes[parent].Children = append(b.nodes[parent].Children, idx)

	if isError {
		b.MarkError(idx)
	}
	return idx
}

// MarkError flags node i and all its ancestors as containing an error.
func (b *Builder) MarkError(i int) {
	for ; i >= 0 && !b.nodes[i].HasError; i = b.nodes[i].Parent {
		b.nodes[i].HasError = true
	}
}

// Tree returns the built tree. A builder without a root yields a bare
// "document" root so callers always get a valid tree.
func (b *Builder) Tree(language string) *Tree {
	if len(b.nodes) == 0 {
		b.Root("document", false)
	}
	return &Tree{Language: language, Nodes: b.nodes}
}
