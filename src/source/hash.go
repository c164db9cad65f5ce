package source

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"lukechampine.com/blake3"
)

// Hash returns the content identity of the whole snapshot: a BLAKE3 digest
// over every file's path and bytes, in sorted path order. Each field is
// length-prefixed so adjacent fields can never alias.
func (t *Tree) Hash() (string, error) {
	return t.hashFiles(func(string) bool { return true })
}

// ManifestHash returns the content identity of the dependency-declaring
// subset only: every file named manifestName or lockfileName (at any depth)
// plus anything under .cargo/. This is the dependency-stage cache key input;
// first-party source changes do not move it.
func (t *Tree) ManifestHash(manifestName, lockfileName string) (string, error) {
	return t.hashFiles(func(rel string) bool {
		base := rel
		if i := strings.LastIndex(rel, "/"); i >= 0 {
			base = rel[i+1:]
		}
		if base == manifestName || base == lockfileName {
			return true
		}
		return strings.HasPrefix(rel, ".cargo/")
	})
}

// hashFiles digests the selected files in sorted order.
func (t *Tree) hashFiles(keep func(rel string) bool) (string, error) {
	h := blake3.New(32, nil)
	var sizeBuf [8]byte

	writeField := func(data []byte) {
		binary.BigEndian.PutUint64(sizeBuf[:], uint64(len(data)))
		h.Write(sizeBuf[:])
		h.Write(data)
	}

	matched := false
	for _, f := range t.Files {
		if !keep(f.Path) {
			continue
		}
		matched = true

		writeField([]byte(f.Path))

		r, err := t.Open(f.Path)
		if err != nil {
			return "", fmt.Errorf("hashing %s: %w", f.Path, err)
		}
		binary.BigEndian.PutUint64(sizeBuf[:], uint64(f.Size))
		h.Write(sizeBuf[:])
		if _, err := io.Copy(h, r); err != nil {
			r.Close()
			return "", fmt.Errorf("hashing %s: %w", f.Path, err)
		}
		r.Close()
	}

	if !matched {
		return "", fmt.Errorf("%w (no hashable files selected)", ErrEmptyResult)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// HashString digests a single string. Used for composing cache keys from
// identity strings alongside tree hashes.
func HashString(s string) string {
	h := blake3.New(32, nil)
	h.Write([]byte(s))
	return hex.EncodeToString(h.Sum(nil))
}
