// Package security validates caller supplied paths and sanitizes strings
// before they reach the logs.
package security

import (
	"path/filepath"
	"strings"
	"unicode"
)

// Path validation errors.
var (
	ErrPathEmpty        = &PathError{Reason: "path is empty"}
	ErrPathNullByte     = &PathError{Reason: "path contains null byte"}
	ErrPathTraversal    = &PathError{Reason: "path traversal detected"}
	ErrPathAbsolute     = &PathError{Reason: "absolute path not allowed"}
	ErrPathTooLong      = &PathError{Reason: "path exceeds maximum length"}
	ErrPathReservedName = &PathError{Reason: "path contains reserved name"}
	ErrPathOutsideRoot  = &PathError{Reason: "path resolves outside root"}
)

// PathError represents a path validation error.
type PathError struct {
	Reason string
	Path   string
}

func (e *PathError) Error() string {
	if e.Path != "" {
		return e.Reason + ": " + e.Path
	}
	return e.Reason
}

// Is matches errors with the same reason, so errors.Is works against the
// sentinel values.
func (e *PathError) Is(target error) bool {
	t, ok := target.(*PathError)
	return ok && t.Reason == e.Reason
}

// MaxPathLength is the maximum allowed path length.
const MaxPathLength = 1024

// reservedNames are Windows device names that cannot be file names.
var reservedNames = map[string]bool{
	"con": true, "prn": true, "aux": true, "nul": true,
	"com1": true, "com2": true, "com3": true, "com4": true,
	"com5": true, "com6": true, "com7": true, "com8": true, "com9": true,
	"lpt1": true, "lpt2": true, "lpt3": true, "lpt4": true,
	"lpt5": true, "lpt6": true, "lpt7": true, "lpt8": true, "lpt9": true,
}

// ValidatePath checks a relative path supplied by a client: it must be
// non-empty, relative, free of NUL bytes and ".." components, not too long
// and not a reserved device name.
func ValidatePath(path string) error {
	if path == "" {
		return ErrPathEmpty
	}
	if strings.ContainsRune(path, 0) {
		return &PathError{Reason: ErrPathNullByte.Reason, Path: "[contains null byte]"}
	}
	if len(path) > MaxPathLength {
		return &PathError{Reason: ErrPathTooLong.Reason, Path: path[:50] + "..."}
	}

	slashed := strings.ReplaceAll(path, "\\", "/")
	if filepath.IsAbs(path) || strings.HasPrefix(slashed, "/") || hasDriveLetter(slashed) {
		return &PathError{Reason: ErrPathAbsolute.Reason, Path: SanitizeForLog(path)}
	}

	for _, part := range strings.Split(slashed, "/") {
		if part == ".." {
			return &PathError{Reason: ErrPathTraversal.Reason, Path: SanitizeForLog(path)}
		}

		base := strings.ToLower(part)
		if idx := strings.Index(base, "."); idx > 0 {
			base = base[:idx]
		}
		if reservedNames[base] {
			return &PathError{Reason: ErrPathReservedName.Reason, Path: SanitizeForLog(path)}
		}
	}

	return nil
}

func hasDriveLetter(path string) bool {
	return len(path) >= 2 && path[1] == ':' &&
		(('a' <= path[0] && path[0] <= 'z') || ('A' <= path[0] && path[0] <= 'Z'))
}

// ResolveUnder validates path and joins it to root. Symlinks are resolved
// so the result cannot escape root through a link.
func ResolveUnder(root, path string) (string, error) {
	if err := ValidatePath(path); err != nil {
		return "", err
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", err
	}
	if real, err := filepath.EvalSymlinks(absRoot); err == nil {
		absRoot = real
	}

	full := filepath.Join(absRoot, filepath.FromSlash(path))
	if real, err := filepath.EvalSymlinks(full); err == nil {
		full = real
	}

	rel, err := filepath.Rel(absRoot, full)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", &PathError{Reason: ErrPathOutsideRoot.Reason, Path: SanitizeForLog(path)}
	}
	return full, nil
}

// SanitizeForLog makes s safe for a single log line: newlines, carriage
// returns and tabs are escaped, other control characters are removed, and
// the result is truncated to 200 characters.
func SanitizeForLog(s string) string {
	return SanitizeForLogWithLength(s, 200)
}

// SanitizeForLogWithLength sanitizes s for logging with a custom max length.
func SanitizeForLogWithLength(s string, maxLen int) string {
	if s == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(min(len(s), maxLen+10))

	count := 0
	for _, r := range s {
		if count >= maxLen {
			b.WriteString("...")
			break
		}

		switch r {
		case '\n':
			b.WriteString("\\n")
			count += 2
		case '\r':
			b.WriteString("\\r")
			count += 2
		case '\t':
			b.WriteString("\\t")
			count += 2
		default:
			if !unicode.IsControl(r) {
				b.WriteRune(r)
				count++
			}
		}
	}

	return b.String()
}
