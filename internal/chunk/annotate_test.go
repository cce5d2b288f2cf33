package chunk

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ricesearch/rice-chunker/internal/ast"
)

// classTree models a class with two methods followed by a free function:
//
//	module
//	├── class
//	│   ├── class_header
//	│   └── body
//	│       ├── method
//	│       └── method
//	└── function
func classTree(src string) *ast.Tree {
	b := ast.NewBuilder(len(src))
	root := b.Root("module", false)
	class := b.Add(root, "class", 0, 40, false)
	b.Add(class, "class_header", 0, 8, false)
	body := b.Add(class, "body", 10, 40, false)
	b.Add(body, "method", 10, 25, false)
	b.Add(body, "method", 25, 40, false)
	b.Add(root, "function", 40, len(src), false)
	return b.Tree("python")
}

const classSrc = "class A:\n" + // 0..9
	"\n" + // 9..10
	"  def a(): 1\n" + // 10..23
	"\n\n" + // 23..25
	"  def b(): 2\n" + // 25..38
	"\n\n" + // 38..40
	"def f(): pass\n" // 40..54

func buildClass(t *testing.T, cfg Config) []Chunk {
	t.Helper()
	require.Len(t, classSrc, 54)
	return Build(classTree(classSrc), SourceDocument{Text: classSrc, Language: "py", FileID: "a.py"}, cfg)
}

func TestAnnotate_BreadcrumbOfSingleSeed(t *testing.T) {
	chunks := buildClass(t, Config{MaxChunkSize: 20})
	require.NotEmpty(t, chunks)

	last := chunks[len(chunks)-1]
	assert.Equal(t, "def f(): pass\n", last.Content)
	assert.Equal(t, []string{"module", "function"}, last.Breadcrumb())
	assert.Equal(t, "a.py", last.Metadata[MetaFile])
	assert.Equal(t, "python", last.Metadata[MetaLanguage])
	assert.Equal(t, len(chunks)-1, last.Metadata[MetaChunkIndex])
}

func TestAnnotate_CommonAncestorOfSiblings(t *testing.T) {
	chunks := buildClass(t, Config{MaxChunkSize: 28, MetadataTemplate: TemplateVerbose})
	require.Len(t, chunks, 3)

	// The header and the first method share a chunk, so the breadcrumb
	// stops at the class and lists the class's children involved.
	first := chunks[0]
	assert.Equal(t, "class A:\n\n  def a(): 1\n\n\n", first.Content)
	assert.Equal(t, []string{"module", "class"}, first.Breadcrumb())
	assert.Equal(t, []string{"class_header", "body"}, first.Metadata[MetaChildKinds])
	assert.Equal(t, 0, first.Metadata[MetaStartByte])
	assert.Equal(t, 25, first.Metadata[MetaEndByte])
	assert.Equal(t, 0, first.Metadata[MetaOverlapLines])

	second := chunks[1]
	assert.Equal(t, []string{"module", "class", "body", "method"}, second.Breadcrumb())
	assert.Nil(t, second.Metadata[MetaChildKinds], "single-seed chunks list no children")
}

func TestAnnotate_Templates(t *testing.T) {
	base := Config{MaxChunkSize: 30, ChunkOverlap: 1}

	minimal := base
	minimal.MetadataTemplate = TemplateMinimal
	verbose := base
	verbose.MetadataTemplate = TemplateVerbose

	mChunks := buildClass(t, minimal)
	dChunks := buildClass(t, base)
	vChunks := buildClass(t, verbose)

	require.Equal(t, len(dChunks), len(mChunks))
	require.Equal(t, len(dChunks), len(vChunks))
	for i := range dChunks {
		assert.Equal(t, dChunks[i].Content, mChunks[i].Content, "templates never move boundaries")
		assert.Equal(t, dChunks[i].Content, vChunks[i].Content, "templates never move boundaries")

		assert.ElementsMatch(t, []string{MetaFile, MetaLanguage, MetaStartLine, MetaEndLine}, keys(mChunks[i].Metadata))
		assert.Contains(t, dChunks[i].Metadata, MetaBreadcrumb)
		assert.Contains(t, dChunks[i].Metadata, MetaChunkIndex)
		assert.NotContains(t, dChunks[i].Metadata, MetaStartByte)
		assert.Contains(t, vChunks[i].Metadata, MetaStartByte)
		assert.Contains(t, vChunks[i].Metadata, MetaOverlapLines)
	}
	assert.Equal(t, 1, vChunks[1].Metadata[MetaOverlapLines])
}

func keys(m map[string]any) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

func TestCountLines(t *testing.T) {
	assert.Equal(t, 0, countLines(""))
	assert.Equal(t, 1, countLines("a"))
	assert.Equal(t, 1, countLines("a\n"))
	assert.Equal(t, 2, countLines("a\nb"))
	assert.Equal(t, 2, countLines("\n\n"))
}

func TestBreadcrumb_DecodedFromJSON(t *testing.T) {
	var c Chunk
	require.NoError(t, json.Unmarshal([]byte(`{"content":"x","metadata":{"breadcrumb":["module","class"]}}`), &c))
	assert.Equal(t, []string{"module", "class"}, c.Breadcrumb())

	c.Metadata = nil
	assert.Nil(t, c.Breadcrumb())
}
