package security

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestValidatePath(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		wantErr error
	}{
		{"simple", "file.txt", nil},
		{"nested", "src/main.go", nil},
		{"dots in name", "file.test.go", nil},
		{"hidden", ".gitignore", nil},
		{"current dir", "./file.txt", nil},
		{"three dots", "src/.../file.txt", nil},

		{"empty", "", ErrPathEmpty},
		{"null byte", "file\x00.txt", ErrPathNullByte},
		{"traversal", "../file.txt", ErrPathTraversal},
		{"traversal nested", "src/../../../etc/passwd", ErrPathTraversal},
		{"traversal inside", "src/../main.go", ErrPathTraversal},
		{"traversal backslash", "src\\..\\..\\secret", ErrPathTraversal},
		{"absolute unix", "/etc/passwd", ErrPathAbsolute},
		{"absolute windows", "C:\\Windows\\System32", ErrPathAbsolute},
		{"reserved con", "con.txt", ErrPathReservedName},
		{"reserved nested", "folder/prn.doc", ErrPathReservedName},
		{"reserved lpt1", "lpt1", ErrPathReservedName},
		{"too long", strings.Repeat("a", 2000), ErrPathTooLong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePath(tt.path)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidatePath(%q) = %v, want nil", tt.path, err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidatePath(%q) = %v, want %v", tt.path, err, tt.wantErr)
			}
		})
	}
}

func TestResolveUnder(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "src"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "src", "main.go"), []byte("package main\n"), 0644); err != nil {
		t.Fatal(err)
	}

	full, err := ResolveUnder(root, "src/main.go")
	if err != nil {
		t.Fatalf("ResolveUnder: %v", err)
	}
	if filepath.Base(full) != "main.go" || !filepath.IsAbs(full) {
		t.Errorf("unexpected resolved path %q", full)
	}

	// Missing files resolve; the caller's read reports them.
	if _, err := ResolveUnder(root, "src/missing.go"); err != nil {
		t.Errorf("missing file: %v", err)
	}

	if _, err := ResolveUnder(root, "../escape.go"); !errors.Is(err, ErrPathTraversal) {
		t.Errorf("traversal: got %v", err)
	}

	outside := t.TempDir()
	if err := os.Symlink(outside, filepath.Join(root, "link")); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}
	if _, err := ResolveUnder(root, "link"); !errors.Is(err, ErrPathOutsideRoot) {
		t.Errorf("symlink escape: got %v", err)
	}
}

func TestSanitizeForLog(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty", "", ""},
		{"simple", "hello world", "hello world"},
		{"newline", "line1\nline2", "line1\\nline2"},
		{"carriage return", "line1\rline2", "line1\\rline2"},
		{"tab", "col1\tcol2", "col1\\tcol2"},
		{"control chars", "hello\x00\x01\x02world", "helloworld"},
		{"long string", strings.Repeat("a", 300), strings.Repeat("a", 200) + "..."},
		{"unicode", "hello 世界", "hello 世界"},
		{"log injection", "user\nERROR: fake error", "user\\nERROR: fake error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeForLog(tt.input); got != tt.expected {
				t.Errorf("SanitizeForLog(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func BenchmarkValidatePath(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_ = ValidatePath("internal/chunk/builder.go")
	}
}
