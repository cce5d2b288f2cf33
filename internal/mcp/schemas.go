package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// configProperties are the per-call chunking overrides shared by the chunk
// tools.
func configProperties() map[string]interface{} {
	return map[string]interface{}{
		"max_chunk_size": map[string]interface{}{
			"type":        "integer",
			"description": "Maximum characters of logical content per chunk",
			"minimum":     1,
		},
		"chunk_overlap": map[string]interface{}{
			"type":        "integer",
			"description": "Trailing lines of the previous chunk repeated at the start of the next",
			"minimum":     0,
		},
		"metadata_template": map[string]interface{}{
			"type":        "string",
			"description": "Metadata detail level",
			"enum":        []string{"minimal", "default", "verbose"},
		},
	}
}

func withConfig(props map[string]interface{}) map[string]interface{} {
	for k, v := range configProperties() {
		props[k] = v
	}
	return props
}

// chunkFileTool returns the tool definition for chunk_file
func chunkFileTool() mcp.Tool {
	return mcp.Tool{
		Name:        "chunk_file",
		Description: "Split a source file into syntax-aligned chunks with line ranges and breadcrumbs",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: withConfig(map[string]interface{}{
				"path": map[string]interface{}{
					"type":        "string",
					"description": "File path relative to the server root",
				},
				"language": map[string]interface{}{
					"type":        "string",
					"description": "Language identifier; detected from the extension when omitted",
				},
			}),
			Required: []string{"path"},
		},
	}
}

// chunkTextTool returns the tool definition for chunk_text
func chunkTextTool() mcp.Tool {
	return mcp.Tool{
		Name:        "chunk_text",
		Description: "Split source text into syntax-aligned chunks",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: withConfig(map[string]interface{}{
				"text": map[string]interface{}{
					"type":        "string",
					"description": "Source text",
				},
				"language": map[string]interface{}{
					"type":        "string",
					"description": "Language identifier (e.g. go, python, markdown)",
				},
				"file_id": map[string]interface{}{
					"type":        "string",
					"description": "Identifier copied into chunk metadata",
				},
			}),
			Required: []string{"text", "language"},
		},
	}
}

// listLanguagesTool returns the tool definition for list_languages
func listLanguagesTool() mcp.Tool {
	return mcp.Tool{
		Name:        "list_languages",
		Description: "List the languages that can be chunked by syntax",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}

// searchChunksTool returns the tool definition for search_chunks
func searchChunksTool() mcp.Tool {
	return mcp.Tool{
		Name:        "search_chunks",
		Description: "Full-text search over chunks written to the index",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Search terms",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of results to return (1-100)",
					"default":     10,
					"minimum":     1,
					"maximum":     100,
				},
			},
			Required: []string{"query"},
		},
	}
}
