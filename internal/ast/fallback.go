//go:build !cgo

package ast

import "log/slog"

// registerNative registers the pure Go grammars used when tree-sitter is not
// compiled in. Only Go keeps a syntax-aware grammar; other code languages
// report UNSUPPORTED_LANGUAGE and callers fall back to line chunking.
func registerNative(r *Registry) {
	slog.Debug("tree-sitter not available (CGO disabled), using go/parser for Go only")
	r.Register(LangGo, func() (Grammar, error) { return NewGoGrammar(), nil })
}
