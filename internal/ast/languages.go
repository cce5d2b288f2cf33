package ast

import (
	"path/filepath"
	"strings"
)

// Language constants used throughout the AST package
const (
	LangGo         = "go"
	LangPython     = "python"
	LangTypeScript = "typescript"
	LangTSX        = "tsx"
	LangJavaScript = "javascript"
	LangJava       = "java"
	LangRust       = "rust"
	LangC          = "c"
	LangCPP        = "cpp"
	LangCSharp     = "csharp"
	LangRuby       = "ruby"
	LangPHP        = "php"
	LangBash       = "bash"
	LangLua        = "lua"
	LangCSS        = "css"
	LangYAML       = "yaml"
	LangMarkdown   = "markdown"
	LangHTML       = "html"
)

// Language mapping from extension
var languageExtensions = map[string]string{
	".go":       LangGo,
	".py":       LangPython,
	".pyi":      LangPython,
	".ts":       LangTypeScript,
	".mts":      LangTypeScript,
	".tsx":      LangTSX,
	".js":       LangJavaScript,
	".mjs":      LangJavaScript,
	".cjs":      LangJavaScript,
	".jsx":      LangJavaScript,
	".java":     LangJava,
	".rs":       LangRust,
	".c":        LangC,
	".h":        LangC,
	".cpp":      LangCPP,
	".cc":       LangCPP,
	".cxx":      LangCPP,
	".hpp":      LangCPP,
	".cs":       LangCSharp,
	".rb":       LangRuby,
	".php":      LangPHP,
	".sh":       LangBash,
	".bash":     LangBash,
	".zsh":      LangBash,
	".lua":      LangLua,
	".css":      LangCSS,
	".yaml":     LangYAML,
	".yml":      LangYAML,
	".md":       LangMarkdown,
	".markdown": LangMarkdown,
	".html":     LangHTML,
	".htm":      LangHTML,

	// Recognised but without a grammar; callers decide on a fallback.
	".kt":    "kotlin",
	".scala": "scala",
	".swift": "swift",
	".sql":   "sql",
	".toml":  "toml",
	".json":  "json",
	".proto": "protobuf",
	".cob":   "cobol",
	".cbl":   "cobol",
	".txt":   "text",
}

var languageAliases = map[string]string{
	"golang":  LangGo,
	"py":      LangPython,
	"python3": LangPython,
	"ts":      LangTypeScript,
	"js":      LangJavaScript,
	"node":    LangJavaScript,
	"c++":     LangCPP,
	"cs":      LangCSharp,
	"c#":      LangCSharp,
	"rb":      LangRuby,
	"sh":      LangBash,
	"shell":   LangBash,
	"md":      LangMarkdown,
	"yml":     LangYAML,
	"htm":     LangHTML,
	"xhtml":   LangHTML,
}

// Normalize maps a user supplied language name to its registered identifier.
func Normalize(language string) string {
	l := strings.ToLower(strings.TrimSpace(language))
	if alias, ok := languageAliases[l]; ok {
		return alias
	}
	return l
}

// DetectLanguage detects the language identifier from a file path.
func DetectLanguage(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if lang, ok := languageExtensions[ext]; ok {
		return lang
	}

	base := strings.ToLower(filepath.Base(path))
	switch {
	case base == "dockerfile", strings.HasPrefix(base, "dockerfile."):
		return "dockerfile"
	case base == "makefile", base == "gnumakefile":
		return "makefile"
	case base == ".bashrc", base == ".zshrc", base == ".profile":
		return LangBash
	}

	return "unknown"
}
