package ast

import (
	"bytes"
	"context"

	"github.com/yuin/goldmark"
	gmast "github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// MarkdownGrammar parses Markdown with goldmark and nests the flat list of
// top-level blocks into heading sections, so a section is kept together
// whenever it fits the budget.
type MarkdownGrammar struct {
	md goldmark.Markdown
}

// NewMarkdownGrammar returns the goldmark based grammar.
func NewMarkdownGrammar() *MarkdownGrammar {
	return &MarkdownGrammar{md: goldmark.New()}
}

// Language implements Grammar.
func (g *MarkdownGrammar) Language() string { return LangMarkdown }

type mdSpan struct {
	start, end int
}

// Parse implements Grammar. goldmark never fails on input; any text it does
// not attribute to a block ends up in the gaps between nodes.
func (g *MarkdownGrammar) Parse(ctx context.Context, src []byte) (*Tree, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	doc := g.md.Parser().Parse(text.NewReader(src))
	spans := blockSpans(doc, src)

	b := NewBuilder(len(src))
	b.Root("document", false)

	type section struct {
		idx   int
		level int
	}
	sections := []section{{idx: 0, level: 0}}

	top := blockChildren(doc)
	for i, n := range top {
		sp, ok := spans[n]
		if !ok {
			continue
		}

		if h, isHeading := n.(*gmast.Heading); isHeading {
			for len(sections) > 1 && sections[len(sections)-1].level >= h.Level {
				sections = sections[:len(sections)-1]
			}
			end := len(src)
			for _, next := range top[i+1:] {
				if nh, ok := next.(*gmast.Heading); ok && nh.Level <= h.Level {
					if nsp, ok := spans[next]; ok {
						end = nsp.start
						break
					}
				}
			}
			parent := sections[len(sections)-1].idx
			idx := b.Add(parent, "section", sp.start, end, false)
			if idx >= 0 {
				sections = append(sections, section{idx: idx, level: h.Level})
			}
		}

		addMarkdownBlock(b, sections[len(sections)-1].idx, n, spans)
	}

	return b.Tree(LangMarkdown), nil
}

// addMarkdownBlock adds n and its block descendants in pre-order.
func addMarkdownBlock(b *Builder, parent int, n gmast.Node, spans map[gmast.Node]mdSpan) {
	type frame struct {
		node   gmast.Node
		parent int
	}
	stack := []frame{{node: n, parent: parent}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		sp, ok := spans[f.node]
		if !ok {
			continue
		}
		idx := b.Add(f.parent, snakeCase(f.node.Kind().String()), sp.start, sp.end, false)
		if idx < 0 {
			continue
		}
		children := blockChildren(f.node)
		for i := len(children) - 1; i >= 0; i-- {
			stack = append(stack, frame{node: children[i], parent: idx})
		}
	}
}

func blockChildren(n gmast.Node) []gmast.Node {
	var out []gmast.Node
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if c.Type() == gmast.TypeBlock {
			out = append(out, c)
		}
	}
	return out
}

// blockSpans computes byte spans for every block node in post-order: a
// block covers its own lines plus its children, extended to whole lines so
// list markers, heading hashes and code fences stay with their block.
func blockSpans(doc gmast.Node, src []byte) map[gmast.Node]mdSpan {
	spans := make(map[gmast.Node]mdSpan)

	type frame struct {
		node    gmast.Node
		visited bool
	}
	stack := []frame{{node: doc}}
	for len(stack) > 0 {
		f := &stack[len(stack)-1]
		if !f.visited {
			f.visited = true
			for _, c := range blockChildren(f.node) {
				stack = append(stack, frame{node: c})
			}
			continue
		}
		n := f.node
		stack = stack[:len(stack)-1]

		sp := mdSpan{start: -1, end: -1}
		extend := func(s, e int) {
			if s < 0 || e <= s {
				return
			}
			if sp.start < 0 || s < sp.start {
				sp.start = s
			}
			if e > sp.end {
				sp.end = e
			}
		}

		if lines := n.Lines(); lines != nil {
			for i := 0; i < lines.Len(); i++ {
				seg := lines.At(i)
				extend(seg.Start, seg.Stop)
			}
		}
		if fc, ok := n.(*gmast.FencedCodeBlock); ok {
			if fc.Info != nil {
				extend(fc.Info.Segment.Start, fc.Info.Segment.Stop)
			}
			if sp.start >= 0 {
				sp.start, sp.end = fenceBounds(src, sp.start, sp.end)
			}
		}
		for _, c := range blockChildren(n) {
			if csp, ok := spans[c]; ok {
				extend(csp.start, csp.end)
			}
		}
		if sp.start < 0 {
			continue
		}

		sp.start = lineStart(src, sp.start)
		if sp.end > len(src) {
			sp.end = len(src)
		}
		spans[n] = sp
	}
	return spans
}

// fenceBounds widens a fenced code block to include its opening and closing
// fence lines.
func fenceBounds(src []byte, start, end int) (int, int) {
	ls := lineStart(src, start)
	if !isFence(src[ls:]) && ls > 0 {
		if prev := lineStart(src, ls-1); isFence(src[prev:]) {
			ls = prev
		}
	}

	le := end
	if le < len(src) && le > 0 && src[le-1] != '\n' {
		le = lineEnd(src, le)
	}
	if le < len(src) && isFence(src[le:]) {
		le = lineEnd(src, le)
	}
	return ls, le
}

func isFence(line []byte) bool {
	trimmed := bytes.TrimLeft(line, " ")
	return bytes.HasPrefix(trimmed, []byte("```")) || bytes.HasPrefix(trimmed, []byte("~~~"))
}

// lineStart returns the offset of the first byte of the line containing off.
func lineStart(src []byte, off int) int {
	if off > len(src) {
		off = len(src)
	}
	return bytes.LastIndexByte(src[:off], '\n') + 1
}

// lineEnd returns the offset just past the newline ending the line that
// contains off, or len(src).
func lineEnd(src []byte, off int) int {
	if i := bytes.IndexByte(src[off:], '\n'); i >= 0 {
		return off + i + 1
	}
	return len(src)
}
