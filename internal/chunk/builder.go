package chunk

import (
	"strings"
	"unicode/utf8"

	"github.com/ricesearch/rice-chunker/internal/ast"
)

// piece is a contiguous byte range seeded by one node. Pieces produced for
// the children of a node partition the node's range exactly, gaps included.
type piece struct {
	node       int
	start, end int

	// line marks a single-line slice of an indivisible node; it is never
	// subdivided further.
	line bool
}

// span is the logical range of one chunk before annotation.
type span struct {
	start, end int
	size       int
	seeds      []int
	oversized  bool
}

// builder packs pieces greedily into spans no larger than the budget.
type builder struct {
	tree   *ast.Tree
	src    string
	lines  *LineIndex
	budget int

	cur   span
	spans []span
}

// buildSpans walks the tree with an explicit work stack, so tree depth never
// turns into call-stack depth, and returns spans that partition src.
func buildSpans(tree *ast.Tree, src string, lines *LineIndex, budget int) []span {
	if len(src) == 0 {
		return nil
	}

	b := &builder{tree: tree, src: src, lines: lines, budget: budget}
	stack := []piece{{node: tree.Root(), start: 0, end: len(src)}}

	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if size, ok := b.fits(p.start, p.end); ok {
			b.add(p, size)
			continue
		}

		if p.line {
			b.emitOversized(p)
			continue
		}

		// The open span stays open: p's first pieces may join it.
		var sub []piece
		if n := tree.Node(p.node); !n.IsLeaf() {
			sub = b.childPieces(p, n)
		} else {
			sub = b.linePieces(p)
		}
		for i := len(sub) - 1; i >= 0; i-- {
			stack = append(stack, sub[i])
		}
	}

	b.flush()
	return b.spans
}

// fits reports whether [start, end) is within budget and, if so, its size
// in characters. A character takes between one and utf8.UTFMax bytes, so
// the byte length settles most pieces without counting.
func (b *builder) fits(start, end int) (int, bool) {
	n := end - start
	switch {
	case n <= b.budget:
		return n, true
	case n/utf8.UTFMax > b.budget:
		return 0, false
	}
	c := utf8.RuneCountInString(b.src[start:end])
	return c, c <= b.budget
}

// add appends p to the open span, closing it first when p would not fit.
func (b *builder) add(p piece, size int) {
	if len(b.cur.seeds) > 0 && b.cur.size+size > b.budget {
		b.flush()
	}
	if len(b.cur.seeds) == 0 {
		b.cur.start = p.start
	}
	b.cur.end = p.end
	b.cur.size += size
	if n := len(b.cur.seeds); n == 0 || b.cur.seeds[n-1] != p.node {
		b.cur.seeds = append(b.cur.seeds, p.node)
	}
}

func (b *builder) flush() {
	if len(b.cur.seeds) == 0 {
		return
	}
	b.spans = append(b.spans, b.cur)
	b.cur = span{}
}

func (b *builder) emitOversized(p piece) {
	b.flush()
	b.spans = append(b.spans, span{
		start:     p.start,
		end:       p.end,
		seeds:     []int{p.node},
		oversized: true,
	})
}

// childPieces splits p at the boundaries between n's children. The text
// between two siblings is cut after its last newline: the part up to the
// newline closes the previous piece, the indentation opens the next one.
// The first and last pieces absorb whatever p covers beyond the children.
func (b *builder) childPieces(p piece, n *ast.Node) []piece {
	children := n.Children
	pieces := make([]piece, len(children))

	start := p.start
	for i, c := range children {
		end := p.end
		if i+1 < len(children) {
			gapStart := b.tree.Node(c).EndByte
			gapEnd := b.tree.Node(children[i+1]).StartByte
			end = gapEnd
			if j := strings.LastIndexByte(b.src[gapStart:gapEnd], '\n'); j >= 0 {
				end = gapStart + j + 1
			}
		}
		pieces[i] = piece{node: c, start: start, end: end}
		start = end
	}
	return pieces
}

// linePieces splits an indivisible node at line boundaries, never mid-line.
func (b *builder) linePieces(p piece) []piece {
	breaks := b.lines.Breaks(p.start, p.end)
	pieces := make([]piece, 0, len(breaks)+1)

	start := p.start
	for _, br := range breaks {
		pieces = append(pieces, piece{node: p.node, start: start, end: br, line: true})
		start = br
	}
	return append(pieces, piece{node: p.node, start: start, end: p.end, line: true})
}
