// Package store is a content-addressed artifact store. Artifacts are built
// into a staging directory and published with a single atomic rename, so a
// killed or failed build never becomes visible under its key. Concurrent
// requests for the same key coalesce into one build.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/singleflight"
)

const metaFile = "meta.json"

// Store is a local content-addressed store with an optional remote tier.
type Store struct {
	Dir     string
	Remote  *Remote
	Verbose bool

	group singleflight.Group
}

// Meta describes a published artifact.
type Meta struct {
	Key       string            `json:"key"`
	Kind      string            `json:"kind"`
	CreatedAt time.Time         `json:"created_at"`
	Labels    map[string]string `json:"labels,omitempty"`
}

// Entry is a published artifact: its key, its directory, and its metadata.
// The directory is read-only once published.
type Entry struct {
	Key  string
	Dir  string
	Meta Meta
}

// New creates a store rooted at dir.
func New(dir string) *Store {
	return &Store{Dir: dir}
}

// BuildFunc produces an artifact into stageDir. Returned labels are recorded
// in the artifact metadata. Any error discards the stage; nothing is
// published.
type BuildFunc func(stageDir string) (labels map[string]string, err error)

// Get returns the published entry for key, if any. Local first, then the
// remote tier (pulled into the local store on hit).
func (s *Store) Get(ctx context.Context, key string) (*Entry, bool) {
	if e, ok := s.local(key); ok {
		return e, true
	}
	if s.Remote != nil {
		if e, ok := s.pullRemote(ctx, key); ok {
			return e, true
		}
	}
	return nil, false
}

// Ensure returns the artifact for key, building it with build if absent.
// At most one build runs per key at a time; concurrent callers share the
// one result (or the one failure).
func (s *Store) Ensure(ctx context.Context, key, kind string, build BuildFunc) (*Entry, error) {
	v, err, _ := s.group.Do(key, func() (any, error) {
		if e, ok := s.Get(ctx, key); ok {
			return e, nil
		}
		return s.buildAndPublish(ctx, key, kind, build)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Entry), nil
}

// buildAndPublish runs build in a staging dir and atomically publishes it.
func (s *Store) buildAndPublish(ctx context.Context, key, kind string, build BuildFunc) (*Entry, error) {
	if err := os.MkdirAll(filepath.Join(s.Dir, "stage"), 0o755); err != nil {
		return nil, fmt.Errorf("creating stage dir: %w", err)
	}

	stage, err := os.MkdirTemp(filepath.Join(s.Dir, "stage"), key[:8]+"-")
	if err != nil {
		return nil, fmt.Errorf("creating staging dir: %w", err)
	}
	defer os.RemoveAll(stage) // no-op after successful rename

	labels, err := build(stage)
	if err != nil {
		return nil, err
	}

	meta := Meta{Key: key, Kind: kind, CreatedAt: time.Now().UTC(), Labels: labels}
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(filepath.Join(stage, metaFile), data, 0o644); err != nil {
		return nil, fmt.Errorf("writing artifact metadata: %w", err)
	}

	final := s.path(key)
	if err := os.MkdirAll(filepath.Dir(final), 0o755); err != nil {
		return nil, fmt.Errorf("creating store shard: %w", err)
	}
	if err := os.Rename(stage, final); err != nil {
		// A concurrent process may have published the same key first;
		// content-addressing makes the existing copy equivalent.
		if e, ok := s.local(key); ok {
			return e, nil
		}
		return nil, fmt.Errorf("publishing artifact: %w", err)
	}

	entry := &Entry{Key: key, Dir: final, Meta: meta}

	if s.Remote != nil {
		// Best effort: a failed upload never fails the build.
		if err := s.Remote.Push(ctx, key, final); err != nil && s.Verbose {
			fmt.Fprintf(os.Stderr, "store: remote push failed for %s: %v\n", key[:12], err)
		}
	}

	return entry, nil
}

// local reads a published entry from the local store.
func (s *Store) local(key string) (*Entry, bool) {
	dir := s.path(key)
	data, err := os.ReadFile(filepath.Join(dir, metaFile))
	if err != nil {
		return nil, false
	}
	var meta Meta
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, false
	}
	return &Entry{Key: key, Dir: dir, Meta: meta}, true
}

// pullRemote fetches a packed artifact from the remote tier into the local
// store, using the same stage-then-rename publish path.
func (s *Store) pullRemote(ctx context.Context, key string) (*Entry, bool) {
	if err := os.MkdirAll(filepath.Join(s.Dir, "stage"), 0o755); err != nil {
		return nil, false
	}
	stage, err := os.MkdirTemp(filepath.Join(s.Dir, "stage"), key[:8]+"-pull-")
	if err != nil {
		return nil, false
	}
	defer os.RemoveAll(stage)

	if err := s.Remote.Pull(ctx, key, stage); err != nil {
		return nil, false
	}

	final := s.path(key)
	if err := os.MkdirAll(filepath.Dir(final), 0o755); err != nil {
		return nil, false
	}
	if err := os.Rename(stage, final); err != nil {
		return s.local(key)
	}
	e, ok := s.local(key)
	if ok && s.Verbose {
		fmt.Fprintf(os.Stderr, "store: pulled %s from remote cache\n", key[:12])
	}
	return e, ok
}

// Clear removes every published artifact and staging leftovers.
func (s *Store) Clear() error {
	return os.RemoveAll(s.Dir)
}

// Stats summarizes the local store.
type Stats struct {
	Artifacts int
	Bytes     int64
}

// Info walks the local store and reports artifact count and total size.
func (s *Store) Info() (Stats, error) {
	var st Stats
	err := filepath.WalkDir(s.Dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return filepath.SkipAll
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		if d.Name() == metaFile {
			st.Artifacts++
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		st.Bytes += info.Size()
		return nil
	})
	if os.IsNotExist(err) {
		err = nil
	}
	return st, err
}

// path returns the sharded filesystem location for a key.
func (s *Store) path(key string) string {
	return filepath.Join(s.Dir, key[:2], key)
}
