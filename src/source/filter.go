// Package source produces filtered, content-addressed snapshots of a
// workspace. Only allowlisted paths participate, so cache keys stay stable
// under churn elsewhere in the repository (docs, CI config, editor files).
package source

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

var (
	// ErrNotFound means the workspace root does not exist.
	ErrNotFound = errors.New("workspace root not found")

	// ErrEmptyResult means the allowlist matched zero files. That is a
	// configuration error, never a valid (empty) build input.
	ErrEmptyResult = errors.New("allowlist matched no files")
)

// Tree is a filtered snapshot of a workspace. Files are sorted by path and
// identified by content only; filesystem metadata (mtimes, permissions) does
// not participate in its identity.
type Tree struct {
	Root      string
	Allowlist []string
	Files     []File
}

// File is one allowlisted file in the snapshot.
type File struct {
	Path string // slash-separated, relative to Root
	Size int64
}

// Filter walks root and keeps only paths matching the allowlist. Entries are
// exact relative paths or directory prefixes; no glob syntax, so matching is
// unambiguous. Entry order does not affect the result.
func Filter(root string, allowlist []string) (*Tree, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, root)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrNotFound, root)
	}

	normalized := make([]string, 0, len(allowlist))
	for _, entry := range allowlist {
		entry = strings.Trim(filepath.ToSlash(entry), "/")
		if entry == "" || entry == "." {
			continue
		}
		normalized = append(normalized, entry)
	}

	tree := &Tree{Root: root, Allowlist: normalized}

	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if rel == "." {
			return nil
		}

		if d.IsDir() {
			// Skip directories that can never match, so unrelated
			// subtrees are not even walked.
			if !mayContainMatch(rel, normalized) {
				return fs.SkipDir
			}
			return nil
		}

		if !matches(rel, normalized) {
			return nil
		}

		fi, err := d.Info()
		if err != nil {
			return err
		}
		tree.Files = append(tree.Files, File{Path: rel, Size: fi.Size()})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", root, err)
	}

	if len(tree.Files) == 0 {
		return nil, fmt.Errorf("%w under %s", ErrEmptyResult, root)
	}

	sort.Slice(tree.Files, func(i, j int) bool { return tree.Files[i].Path < tree.Files[j].Path })
	return tree, nil
}

// matches reports whether rel equals an allowlist entry or sits under one
// used as a directory prefix.
func matches(rel string, allowlist []string) bool {
	for _, entry := range allowlist {
		if rel == entry || strings.HasPrefix(rel, entry+"/") {
			return true
		}
	}
	return false
}

// mayContainMatch reports whether files under the directory rel could still
// match the allowlist.
func mayContainMatch(rel string, allowlist []string) bool {
	for _, entry := range allowlist {
		if rel == entry || strings.HasPrefix(rel, entry+"/") || strings.HasPrefix(entry, rel+"/") {
			return true
		}
	}
	return false
}

// Open opens an allowlisted file for reading.
func (t *Tree) Open(rel string) (io.ReadCloser, error) {
	return os.Open(filepath.Join(t.Root, filepath.FromSlash(rel)))
}

// Materialize copies the snapshot into dst, creating directories as needed.
// Used to stage hermetic build inputs.
func (t *Tree) Materialize(dst string) error {
	for _, f := range t.Files {
		target := filepath.Join(dst, filepath.FromSlash(f.Path))
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", filepath.Dir(target), err)
		}
		if err := copyFile(filepath.Join(t.Root, filepath.FromSlash(f.Path)), target); err != nil {
			return err
		}
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("copying %s: %w", src, err)
	}
	return out.Close()
}
