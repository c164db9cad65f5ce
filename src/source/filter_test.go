package source

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()

	path := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
}

// fixtureWorkspace lays out a minimal workspace with allowlisted and
// unrelated content.
func fixtureWorkspace(t *testing.T) string {
	t.Helper()

	root := t.TempDir()
	writeFile(t, root, "Cargo.toml", "[workspace]\nmembers = [\"crates/app\"]\n")
	writeFile(t, root, "Cargo.lock", "version = 4\n")
	writeFile(t, root, ".cargo/config.toml", "[build]\n")
	writeFile(t, root, "crates/app/Cargo.toml", "[package]\nname = \"app\"\n")
	writeFile(t, root, "crates/app/src/main.rs", "fn main() {}\n")
	writeFile(t, root, "README.md", "docs\n")
	writeFile(t, root, ".github/workflows/ci.yml", "on: push\n")
	return root
}

var fixtureAllowlist = []string{"Cargo.toml", "Cargo.lock", ".cargo", "crates"}

func TestFilterExcludesUnlistedPaths(t *testing.T) {
	root := fixtureWorkspace(t)

	tree, err := Filter(root, fixtureAllowlist)
	if err != nil {
		t.Fatalf("Filter: %v", err)
	}

	for _, f := range tree.Files {
		if f.Path == "README.md" || f.Path == ".github/workflows/ci.yml" {
			t.Errorf("unlisted path %s leaked into the tree", f.Path)
		}
	}
	if len(tree.Files) != 5 {
		t.Errorf("expected 5 allowlisted files, got %d: %v", len(tree.Files), tree.Files)
	}
}

func TestFilterMissingRoot(t *testing.T) {
	_, err := Filter(filepath.Join(t.TempDir(), "nope"), fixtureAllowlist)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestFilterEmptyResult(t *testing.T) {
	root := fixtureWorkspace(t)

	_, err := Filter(root, []string{"does-not-exist"})
	if !errors.Is(err, ErrEmptyResult) {
		t.Fatalf("expected ErrEmptyResult, got %v", err)
	}
}

func TestHashIgnoresChangesOutsideAllowlist(t *testing.T) {
	s1 := fixtureWorkspace(t)
	s2 := fixtureWorkspace(t)
	writeFile(t, s2, "README.md", "completely different docs\n")
	writeFile(t, s2, "docs/design.md", "new file\n")

	t1, err := Filter(s1, fixtureAllowlist)
	if err != nil {
		t.Fatalf("Filter s1: %v", err)
	}
	t2, err := Filter(s2, fixtureAllowlist)
	if err != nil {
		t.Fatalf("Filter s2: %v", err)
	}

	h1, err := t1.Hash()
	if err != nil {
		t.Fatalf("Hash s1: %v", err)
	}
	h2, err := t2.Hash()
	if err != nil {
		t.Fatalf("Hash s2: %v", err)
	}

	if h1 != h2 {
		t.Errorf("hash moved under unrelated churn: %s vs %s", h1, h2)
	}
}

func TestHashTracksAllowlistedContent(t *testing.T) {
	root := fixtureWorkspace(t)
	tree, err := Filter(root, fixtureAllowlist)
	if err != nil {
		t.Fatalf("Filter: %v", err)
	}
	before, err := tree.Hash()
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}

	writeFile(t, root, "crates/app/src/main.rs", "fn main() { println!(\"hi\"); }\n")
	tree, err = Filter(root, fixtureAllowlist)
	if err != nil {
		t.Fatalf("Filter: %v", err)
	}
	after, err := tree.Hash()
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}

	if before == after {
		t.Error("hash did not move when allowlisted content changed")
	}
}

func TestManifestHashIgnoresFirstPartySource(t *testing.T) {
	root := fixtureWorkspace(t)
	tree, err := Filter(root, fixtureAllowlist)
	if err != nil {
		t.Fatalf("Filter: %v", err)
	}
	before, err := tree.ManifestHash("Cargo.toml", "Cargo.lock")
	if err != nil {
		t.Fatalf("ManifestHash: %v", err)
	}

	// Source edits must not move the dependency-stage key.
	writeFile(t, root, "crates/app/src/main.rs", "fn main() { unreachable!(); }\n")
	tree, err = Filter(root, fixtureAllowlist)
	if err != nil {
		t.Fatalf("Filter: %v", err)
	}
	after, err := tree.ManifestHash("Cargo.toml", "Cargo.lock")
	if err != nil {
		t.Fatalf("ManifestHash: %v", err)
	}
	if before != after {
		t.Error("manifest hash moved on a first-party source edit")
	}

	// Lockfile edits must move it.
	writeFile(t, root, "Cargo.lock", "version = 4\n\n[[package]]\nname = \"foo\"\nversion = \"1.0.0\"\n")
	tree, err = Filter(root, fixtureAllowlist)
	if err != nil {
		t.Fatalf("Filter: %v", err)
	}
	changed, err := tree.ManifestHash("Cargo.toml", "Cargo.lock")
	if err != nil {
		t.Fatalf("ManifestHash: %v", err)
	}
	if changed == after {
		t.Error("manifest hash ignored a lockfile change")
	}
}

func TestMaterializePreservesLayout(t *testing.T) {
	root := fixtureWorkspace(t)
	tree, err := Filter(root, fixtureAllowlist)
	if err != nil {
		t.Fatalf("Filter: %v", err)
	}

	dst := t.TempDir()
	if err := tree.Materialize(dst); err != nil {
		t.Fatalf("Materialize: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dst, "crates", "app", "src", "main.rs"))
	if err != nil {
		t.Fatalf("materialized file missing: %v", err)
	}
	if string(data) != "fn main() {}\n" {
		t.Errorf("materialized content mismatch: %q", data)
	}
	if _, err := os.Stat(filepath.Join(dst, "README.md")); !os.IsNotExist(err) {
		t.Error("unlisted file materialized")
	}
}
