package index

import (
	"context"
	"io/fs"
	"path/filepath"
)

// Walk returns the slash-separated paths, relative to root, of every regular
// file not excluded by ignore, in lexical order. root may be any directory
// at or below the filter's root.
func Walk(ctx context.Context, root string, ignore *IgnoreFilter) ([]string, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	var paths []string

	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}

		if ignore != nil && ignore.ShouldIgnore(filepath.Join(absRoot, rel), d.IsDir()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		paths = append(paths, filepath.ToSlash(rel))
		return nil
	})
	return paths, err
}
