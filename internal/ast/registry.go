package ast

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"unicode/utf8"

	apperrors "github.com/ricesearch/rice-chunker/internal/pkg/errors"
)

// Grammar parses source text of one language into a Tree.
//
// Implementations must be safe for concurrent use: any per-call parser state
// is created inside Parse, only the grammar definition itself is shared.
type Grammar interface {
	// Language returns the registered language identifier.
	Language() string

	// Parse returns a best-effort tree. Syntax errors are reflected in
	// Node.HasError; an error is returned only when no tree can be built.
	Parse(ctx context.Context, src []byte) (*Tree, error)
}

// Loader constructs a Grammar. It runs at most once per registry entry.
type Loader func() (Grammar, error)

type entry struct {
	once    sync.Once
	load    Loader
	grammar Grammar
	err     error
}

// Registry maps language identifiers to lazily loaded grammars.
//
// The loaded grammars are the only shared state of the chunker: each entry
// is initialised behind its own sync.Once, so concurrent first use of a
// language performs exactly one load and later lookups see an immutable
// grammar.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*entry
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]*entry)}
}

// NewDefaultRegistry creates a registry with every built-in grammar.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(LangMarkdown, func() (Grammar, error) { return NewMarkdownGrammar(), nil })
	r.Register(LangHTML, func() (Grammar, error) { return NewHTMLGrammar(), nil })
	registerNative(r)
	return r
}

var defaultRegistry = sync.OnceValue(NewDefaultRegistry)

// Default returns the process-wide registry with the built-in grammars.
func Default() *Registry {
	return defaultRegistry()
}

// Register adds or replaces the loader for a language.
func (r *Registry) Register(language string, load Loader) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[Normalize(language)] = &entry{load: load}
}

// Supports reports whether a grammar is registered for language.
func (r *Registry) Supports(language string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.entries[Normalize(language)]
	return ok
}

// Languages returns the registered identifiers in sorted order.
func (r *Registry) Languages() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	langs := make([]string, 0, len(r.entries))
	for lang := range r.entries {
		langs = append(langs, lang)
	}
	sort.Strings(langs)
	return langs
}

// Grammar returns the grammar for language, loading it on first use.
func (r *Registry) Grammar(language string) (Grammar, error) {
	lang := Normalize(language)

	r.mu.RLock()
	e, ok := r.entries[lang]
	r.mu.RUnlock()
	if !ok {
		return nil, apperrors.UnsupportedLanguageError(language)
	}

	e.once.Do(func() {
		e.grammar, e.err = e.load()
		if e.err == nil && e.grammar == nil {
			e.err = fmt.Errorf("loader for %s returned no grammar", lang)
		}
	})
	if e.err != nil {
		return nil, apperrors.Wrap(apperrors.CodeUnsupportedLanguage, "grammar failed to load", e.err).
			WithDetail("language", lang)
	}
	return e.grammar, nil
}

// Parse parses src with the grammar registered for language.
//
// Input that is not text (invalid UTF-8 or NUL bytes) is rejected with a
// PARSE_FAILURE, as is any grammar that cannot produce a tree at all.
func (r *Registry) Parse(ctx context.Context, language string, src []byte) (*Tree, error) {
	g, err := r.Grammar(language)
	if err != nil {
		return nil, err
	}

	if !utf8.Valid(src) || bytes.IndexByte(src, 0) >= 0 {
		return nil, apperrors.ParseFailureError(g.Language(), errors.New("input is not valid UTF-8 text"))
	}

	tree, err := g.Parse(ctx, src)
	if err != nil {
		if apperrors.CodeOf(err) != "" {
			return nil, err
		}
		return nil, apperrors.ParseFailureError(g.Language(), err)
	}
	if tree == nil || tree.Len() == 0 {
		return nil, apperrors.ParseFailureError(g.Language(), errors.New("grammar produced no tree"))
	}
	tree.Language = g.Language()
	return tree, nil
}
