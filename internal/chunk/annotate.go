package chunk

import (
	"strings"

	"github.com/ricesearch/rice-chunker/internal/ast"
)

// annotator fills chunk metadata from the tree and the line index. The
// template only decides which keys are written.
type annotator struct {
	tree     *ast.Tree
	lines    *LineIndex
	doc      SourceDocument
	template Template
}

func (a *annotator) annotate(c *Chunk, s span, index int) {
	md := map[string]any{
		MetaFile:      a.doc.FileID,
		MetaLanguage:  a.language(),
		MetaStartLine: c.StartLine,
		MetaEndLine:   c.EndLine,
	}
	if s.oversized {
		md[MetaOversized] = true
	}
	if a.hasError(s) {
		md[MetaHasError] = true
	}

	if a.template != TemplateMinimal {
		ancestor := a.ancestor(s)
		md[MetaBreadcrumb] = a.tree.Path(ancestor)
		md[MetaChunkIndex] = index

		if a.template == TemplateVerbose {
			if kinds := a.childKinds(s, ancestor); len(kinds) > 0 {
				md[MetaChildKinds] = kinds
			}
			md[MetaStartByte] = c.StartByte
			md[MetaEndByte] = c.EndByte
			md[MetaOverlapLines] = countLines(c.OverlapPrefix())
		}
	}

	c.Metadata = md
}

func (a *annotator) language() string {
	if a.tree.Language != "" {
		return a.tree.Language
	}
	return ast.Normalize(a.doc.Language)
}

// ancestor returns the deepest node containing every seed of s.
func (a *annotator) ancestor(s span) int {
	anc := s.seeds[0]
	for _, seed := range s.seeds[1:] {
		anc = a.tree.CommonAncestor(anc, seed)
	}
	return anc
}

// childKinds lists the kinds of the ancestor's immediate children that
// contributed to s, in source order. A single-seed chunk has none.
func (a *annotator) childKinds(s span, ancestor int) []string {
	if len(s.seeds) < 2 {
		return nil
	}

	var kinds []string
	last := -1
	for _, seed := range s.seeds {
		n := seed
		for n >= 0 && a.tree.Node(n).Parent != ancestor {
			n = a.tree.Node(n).Parent
		}
		if n < 0 || n == last {
			continue
		}
		kinds = append(kinds, a.tree.Node(n).Kind)
		last = n
	}
	return kinds
}

func (a *annotator) hasError(s span) bool {
	for _, seed := range s.seeds {
		if a.tree.Node(seed).HasError {
			return true
		}
	}
	return false
}

func countLines(s string) int {
	if s == "" {
		return 0
	}
	n := strings.Count(s, "\n")
	if !strings.HasSuffix(s, "\n") {
		n++
	}
	return n
}
