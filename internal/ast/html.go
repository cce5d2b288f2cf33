package ast

import (
	"bytes"
	"context"
	"errors"
	"io"

	"golang.org/x/net/html"
)

// voidElements never have an end tag.
var voidElements = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true,
	"hr": true, "img": true, "input": true, "link": true, "meta": true,
	"param": true, "source": true, "track": true, "wbr": true,
}

// HTMLGrammar builds an element tree from the x/net/html tokenizer. The
// tokenizer exposes the raw bytes of every token, which keeps exact byte
// offsets that html.Parse would discard.
type HTMLGrammar struct{}

// NewHTMLGrammar returns the tokenizer based HTML grammar.
func NewHTMLGrammar() *HTMLGrammar {
	return &HTMLGrammar{}
}

// Language implements Grammar.
func (g *HTMLGrammar) Language() string { return LangHTML }

type htmlNode struct {
	kind       string
	start, end int
	parent     int
	isError    bool
}

// Parse implements Grammar. Unbalanced markup is recovered the way browsers
// do it: an end tag closes every element opened after its match, and stray
// end tags become error leaves.
func (g *HTMLGrammar) Parse(ctx context.Context, src []byte) (*Tree, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	z := html.NewTokenizer(bytes.NewReader(src))
	nodes := []htmlNode{{kind: "document", start: 0, end: len(src), parent: -1}}
	open := []int{0}
	offset := 0
	hasError := false

	closeTo := func(depth, end int) {
		for len(open) > depth {
			nodes[open[len(open)-1]].end = end
			open = open[:len(open)-1]
		}
	}
	leaf := func(kind string, start, end int, isError bool) {
		nodes = append(nodes, htmlNode{kind: kind, start: start, end: end, parent: open[len(open)-1], isError: isError})
	}

	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			if err := z.Err(); !errors.Is(err, io.EOF) {
				return nil, err
			}
			break
		}
		start := offset
		offset += len(z.Raw())

		switch tt {
		case html.StartTagToken:
			name, _ := z.TagName()
			tag := string(name)
			if voidElements[tag] {
				leaf(tag, start, offset, false)
				continue
			}
			nodes = append(nodes, htmlNode{kind: tag, start: start, end: len(src), parent: open[len(open)-1]})
			open = append(open, len(nodes)-1)

		case html.EndTagToken:
			name, _ := z.TagName()
			tag := string(name)
			match := -1
			for i := len(open) - 1; i > 0; i-- {
				if nodes[open[i]].kind == tag {
					match = i
					break
				}
			}
			if match < 0 {
				hasError = true
				leaf("end_tag", start, offset, true)
				continue
			}
			if match != len(open)-1 {
				hasError = true
			}
			closeTo(match+1, start)
			nodes[open[match]].end = offset
			open = open[:match]

		case html.SelfClosingTagToken:
			name, _ := z.TagName()
			leaf(string(name), start, offset, false)

		case html.TextToken:
			if len(bytes.TrimSpace(z.Raw())) > 0 {
				leaf("text", start, offset, false)
			}

		case html.CommentToken:
			leaf("comment", start, offset, false)

		case html.DoctypeToken:
			leaf("doctype", start, offset, false)
		}
	}
	if len(open) > 1 {
		hasError = true
	}
	closeTo(1, len(src))

	b := NewBuilder(len(src))
	b.Root("document", hasError)
	index := make([]int, len(nodes))
	for i := 1; i < len(nodes); i++ {
		n := nodes[i]
		index[i] = b.Add(index[n.parent], n.kind, n.start, n.end, n.isError)
	}

	return b.Tree(LangHTML), nil
}
