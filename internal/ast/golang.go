package ast

import (
	"context"
	"errors"
	goast "go/ast"
	"go/parser"
	"go/token"
	"reflect"
)

// GoGrammar parses Go with the standard library parser. It is the Go grammar
// of cgo-less builds, where tree-sitter is unavailable.
type GoGrammar struct{}

// NewGoGrammar returns the go/parser based grammar.
func NewGoGrammar() *GoGrammar {
	return &GoGrammar{}
}

// Language implements Grammar.
func (g *GoGrammar) Language() string { return LangGo }

// Parse implements Grammar. go/parser returns a partial file alongside
// syntax errors; that partial file is still turned into a tree.
func (g *GoGrammar) Parse(ctx context.Context, src []byte) (*Tree, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fset := token.NewFileSet()
	file, parseErr := parser.ParseFile(fset, "", src, parser.ParseComments|parser.AllErrors)
	if file == nil {
		if parseErr == nil {
			parseErr = errors.New("go/parser returned no file")
		}
		return nil, parseErr
	}
	tf := fset.File(file.Pos())
	if tf == nil {
		return nil, errors.New("go/parser returned a file without positions")
	}

	b := NewBuilder(len(src))
	b.Root("source_file", parseErr != nil)

	offset := func(p token.Pos) int {
		if !p.IsValid() {
			return -1
		}
		return tf.Offset(p)
	}

	// parents mirrors the Inspect recursion; -1 entries stand for nodes
	// that were dropped so the matching exit call pops the right frame.
	parents := []int{0}
	goast.Inspect(file, func(n goast.Node) bool {
		if n == nil {
			parents = parents[:len(parents)-1]
			return true
		}
		if n == goast.Node(file) {
			parents = append(parents, 0)
			return true
		}

		start, end := offset(goStart(n)), offset(n.End())
		parent := parents[len(parents)-1]
		idx := -1
		if start >= 0 && end > start && end <= len(src) {
			idx = b.Add(parent, goKind(n), start, end, isBadGoNode(n))
		}
		parents = append(parents, idx)
		return true
	})

	return b.Tree(LangGo), nil
}

// goStart widens declarations to include their doc comment, which go/ast
// keeps outside the declaration's own position range.
func goStart(n goast.Node) token.Pos {
	switch d := n.(type) {
	case *goast.FuncDecl:
		if d.Doc != nil {
			return d.Doc.Pos()
		}
	case *goast.GenDecl:
		if d.Doc != nil {
			return d.Doc.Pos()
		}
	}
	return n.Pos()
}

func isBadGoNode(n goast.Node) bool {
	switch n.(type) {
	case *goast.BadExpr, *goast.BadStmt, *goast.BadDecl:
		return true
	}
	return false
}

// goKind turns *ast.FuncDecl into "func_decl".
func goKind(n goast.Node) string {
	t := reflect.TypeOf(n)
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return snakeCase(t.Name())
}

func snakeCase(s string) string {
	out := make([]byte, 0, len(s)+4)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 'A' && c <= 'Z' {
			if i > 0 && (s[i-1] < 'A' || s[i-1] > 'Z') {
				out = append(out, '_')
			}
			c += 'a' - 'A'
		}
		out = append(out, c)
	}
	return string(out)
}
