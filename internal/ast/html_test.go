package ast

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTMLGrammar_Elements(t *testing.T) {
	src := "<!DOCTYPE html>\n<html>\n<body>\n<h1>Title</h1>\n<br>\n<p>One</p>\n</body>\n</html>\n"

	tree, err := NewHTMLGrammar().Parse(context.Background(), []byte(src))
	require.NoError(t, err)
	requireWellFormed(t, tree, len(src))
	assert.False(t, tree.HasError())

	root := tree.Node(0)
	require.Equal(t, []string{"doctype", "html"}, kindsOf(tree, root.Children))

	htmlNode := tree.Node(root.Children[1])
	assert.Equal(t, "<html>\n<body>\n<h1>Title</h1>\n<br>\n<p>One</p>\n</body>\n</html>",
		src[htmlNode.StartByte:htmlNode.EndByte])

	body := tree.Node(htmlNode.Children[0])
	assert.Equal(t, []string{"h1", "br", "p"}, kindsOf(tree, body.Children))
	assert.Equal(t, []string{"text"}, kindsOf(tree, tree.Node(body.Children[0]).Children))
}

func TestHTMLGrammar_RecoversUnbalancedMarkup(t *testing.T) {
	src := "<div><p>open paragraph</div></span><ul><li>dangling"

	tree, err := NewHTMLGrammar().Parse(context.Background(), []byte(src))
	require.NoError(t, err)
	requireWellFormed(t, tree, len(src))
	assert.True(t, tree.HasError())

	root := tree.Node(0)
	assert.Equal(t, []string{"div", "end_tag", "ul"}, kindsOf(tree, root.Children))
	assert.True(t, tree.Node(root.Children[1]).HasError)
}
