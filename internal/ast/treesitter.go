//go:build cgo

package ast

import (
	"context"
	"errors"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/bash"
	"github.com/smacker/go-tree-sitter/c"
	"github.com/smacker/go-tree-sitter/cpp"
	"github.com/smacker/go-tree-sitter/csharp"
	"github.com/smacker/go-tree-sitter/css"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/java"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/lua"
	"github.com/smacker/go-tree-sitter/php"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/ruby"
	"github.com/smacker/go-tree-sitter/rust"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
	"github.com/smacker/go-tree-sitter/yaml"
)

// treeSitterLanguages lists the grammars compiled into the binary.
var treeSitterLanguages = map[string]func() *sitter.Language{
	LangGo:         golang.GetLanguage,
	LangPython:     python.GetLanguage,
	LangTypeScript: typescript.GetLanguage,
	LangTSX:        tsx.GetLanguage,
	LangJavaScript: javascript.GetLanguage,
	LangJava:       java.GetLanguage,
	LangRust:       rust.GetLanguage,
	LangC:          c.GetLanguage,
	LangCPP:        cpp.GetLanguage,
	LangCSharp:     csharp.GetLanguage,
	LangRuby:       ruby.GetLanguage,
	LangPHP:        php.GetLanguage,
	LangBash:       bash.GetLanguage,
	LangLua:        lua.GetLanguage,
	LangCSS:        css.GetLanguage,
	LangYAML:       yaml.GetLanguage,
}

// registerNative registers the tree-sitter grammars.
func registerNative(r *Registry) {
	for lang, get := range treeSitterLanguages {
		r.Register(lang, func() (Grammar, error) {
			return NewTreeSitterGrammar(lang, get())
		})
	}
}

// TreeSitterGrammar adapts a tree-sitter language definition.
type TreeSitterGrammar struct {
	language string
	lang     *sitter.Language
}

// NewTreeSitterGrammar wraps a tree-sitter language under an identifier.
func NewTreeSitterGrammar(language string, lang *sitter.Language) (*TreeSitterGrammar, error) {
	if lang == nil {
		return nil, errors.New("nil tree-sitter language")
	}
	return &TreeSitterGrammar{language: language, lang: lang}, nil
}

// Language implements Grammar.
func (g *TreeSitterGrammar) Language() string { return g.language }

// Parse implements Grammar. A sitter.Parser is not safe for concurrent use,
// so each call gets its own; only the language definition is shared.
func (g *TreeSitterGrammar) Parse(ctx context.Context, src []byte) (*Tree, error) {
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(g.lang)

	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, err
	}
	if tree == nil {
		return nil, errors.New("tree-sitter returned no tree")
	}
	defer tree.Close()

	root := tree.RootNode()
	if root == nil || root.IsNull() {
		return nil, errors.New("tree-sitter returned an empty root")
	}

	return convertTree(g.language, root, len(src)), nil
}

// convertTree flattens a tree-sitter tree with an explicit stack so deeply
// nested expressions cannot exhaust the goroutine stack.
func convertTree(language string, root *sitter.Node, srcLen int) *Tree {
	b := NewBuilder(srcLen)
	b.Root(root.Type(), root.HasError())

	type frame struct {
		node   *sitter.Node
		parent int
	}

	var stack []frame
	pushChildren := func(n *sitter.Node, parent int) {
		for i := int(n.ChildCount()) - 1; i >= 0; i-- {
			if child := n.Child(i); child != nil {
				stack = append(stack, frame{node: child, parent: parent})
			}
		}
	}
	pushChildren(root, 0)

	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		n := f.node
		isError := n.IsMissing() || n.Type() == "ERROR"
		idx := b.Add(f.parent, n.Type(), int(n.StartByte()), int(n.EndByte()), isError)
		if idx < 0 {
			// Zero-width nodes (MISSING tokens) still taint their parent.
			if isError {
				b.MarkError(f.parent)
			}
			continue
		}
		pushChildren(n, idx)
	}

	return b.Tree(language)
}
