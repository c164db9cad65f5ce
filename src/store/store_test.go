package store

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return New(filepath.Join(t.TempDir(), "store"))
}

const testKey = "aabbccddeeff00112233445566778899aabbccddeeff00112233445566778899"

func TestEnsureBuildsOnceThenReuses(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	var builds atomic.Int64
	build := func(stage string) (map[string]string, error) {
		builds.Add(1)
		return map[string]string{"n": "1"}, os.WriteFile(filepath.Join(stage, "artifact"), []byte("out"), 0o644)
	}

	first, err := s.Ensure(ctx, testKey, "deps", build)
	if err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	second, err := s.Ensure(ctx, testKey, "deps", build)
	if err != nil {
		t.Fatalf("Ensure (cached): %v", err)
	}

	if builds.Load() != 1 {
		t.Errorf("build ran %d times, want 1", builds.Load())
	}
	if first.Dir != second.Dir {
		t.Errorf("entries diverge: %s vs %s", first.Dir, second.Dir)
	}
	if second.Meta.Labels["n"] != "1" {
		t.Errorf("metadata lost on reuse: %+v", second.Meta)
	}
}

func TestEnsureCoalescesConcurrentBuilds(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	var builds atomic.Int64
	release := make(chan struct{})
	build := func(stage string) (map[string]string, error) {
		builds.Add(1)
		<-release // hold the build open so every caller piles onto the key
		return nil, os.WriteFile(filepath.Join(stage, "artifact"), []byte("out"), 0o644)
	}

	const callers = 8
	var wg sync.WaitGroup
	dirs := make([]string, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			e, err := s.Ensure(ctx, testKey, "deps", build)
			if err != nil {
				errs[i] = err
				return
			}
			dirs[i] = e.Dir
		}(i)
	}

	// Let the in-flight build finish once all callers are queued.
	close(release)
	wg.Wait()

	for i := 0; i < callers; i++ {
		if errs[i] != nil {
			t.Fatalf("caller %d: %v", i, errs[i])
		}
		if dirs[i] != dirs[0] {
			t.Errorf("caller %d got a different artifact: %s", i, dirs[i])
		}
	}
	if builds.Load() != 1 {
		t.Errorf("build ran %d times under concurrency, want 1", builds.Load())
	}
}

func TestEnsureFailurePublishesNothing(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	boom := errors.New("compiler exploded")
	_, err := s.Ensure(ctx, testKey, "deps", func(stage string) (map[string]string, error) {
		// Partial output must never become visible.
		os.WriteFile(filepath.Join(stage, "partial"), []byte("junk"), 0o644)
		return nil, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected build error, got %v", err)
	}

	if _, ok := s.Get(ctx, testKey); ok {
		t.Fatal("failed build got published")
	}

	// The key stays buildable after the failure.
	entry, err := s.Ensure(ctx, testKey, "deps", func(stage string) (map[string]string, error) {
		return nil, os.WriteFile(filepath.Join(stage, "artifact"), []byte("ok"), 0o644)
	})
	if err != nil {
		t.Fatalf("rebuild after failure: %v", err)
	}
	if _, err := os.Stat(filepath.Join(entry.Dir, "partial")); !os.IsNotExist(err) {
		t.Error("stale partial output survived into the published artifact")
	}
}

func TestClearAndInfo(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.Ensure(ctx, testKey, "deps", func(stage string) (map[string]string, error) {
		return nil, os.WriteFile(filepath.Join(stage, "artifact"), []byte("out"), 0o644)
	})
	if err != nil {
		t.Fatalf("Ensure: %v", err)
	}

	stats, err := s.Info()
	if err != nil {
		t.Fatalf("Info: %v", err)
	}
	if stats.Artifacts != 1 || stats.Bytes == 0 {
		t.Errorf("stats = %+v, want 1 artifact with nonzero size", stats)
	}

	if err := s.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if _, ok := s.Get(ctx, testKey); ok {
		t.Error("artifact survived Clear")
	}
	stats, err = s.Info()
	if err != nil {
		t.Fatalf("Info after Clear: %v", err)
	}
	if stats.Artifacts != 0 {
		t.Errorf("stats after Clear = %+v", stats)
	}
}

func TestPackUnpackRejectsEscapes(t *testing.T) {
	src := t.TempDir()
	if err := os.MkdirAll(filepath.Join(src, "target", "release"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(src, "target", "release", "app"), []byte("bin"), 0o755); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := Pack(src, &buf); err != nil {
		t.Fatalf("Pack: %v", err)
	}

	dst := t.TempDir()
	if err := Unpack(bytes.NewReader(buf.Bytes()), dst); err != nil {
		t.Fatalf("Unpack: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dst, "target", "release", "app")); err != nil {
		t.Fatalf("unpacked file missing: %v", err)
	}
}
