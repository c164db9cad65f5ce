package source

import (
	"fmt"
	"os"
	"sort"

	"github.com/go-git/go-git/v5"
)

// Delta reports allowlisted files with uncommitted changes. Purely
// informational: it lets the CLI say whether the dependency layer is likely
// to hit cache, but it never feeds the cache key (content hashing does).
type Delta struct {
	RootDir string
	Verbose bool
}

// ChangedFiles returns allowlisted paths with staged or unstaged changes.
// Returns nil if the root is not a git repository — callers treat that as
// "no prediction available", not an error.
func (d *Delta) ChangedFiles(tree *Tree) ([]string, error) {
	repo, err := git.PlainOpen(d.RootDir)
	if err != nil {
		if d.Verbose {
			fmt.Fprintf(os.Stderr, "delta: not a git repo, skipping change detection\n")
		}
		return nil, nil
	}

	wt, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("opening worktree: %w", err)
	}

	status, err := wt.Status()
	if err != nil {
		return nil, fmt.Errorf("reading worktree status: %w", err)
	}

	var changed []string
	for path, s := range status {
		if s.Worktree == git.Unmodified && s.Staging == git.Unmodified {
			continue
		}
		if matches(path, tree.Allowlist) {
			changed = append(changed, path)
		}
	}

	sort.Strings(changed)
	return changed, nil
}
