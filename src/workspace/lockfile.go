package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/pelletier/go-toml/v2"
)

// LockedPackage is one pinned package from the lockfile.
type LockedPackage struct {
	Name    string `toml:"name"`
	Version string `toml:"version"`
	Source  string `toml:"source"`
}

// lockfile mirrors the Cargo.lock layout.
type lockfile struct {
	Version  int             `toml:"version"`
	Packages []LockedPackage `toml:"package"`
}

// ExternalDependencies parses the lockfile and returns the pinned external
// packages (entries with a source; sourceless entries are workspace members).
// The result is sorted by name then version.
func (w *Workspace) ExternalDependencies() ([]LockedPackage, error) {
	data, err := os.ReadFile(filepath.Join(w.RootDir, w.Lockfile))
	if err != nil {
		return nil, fmt.Errorf("reading lockfile: %w", err)
	}

	var lf lockfile
	if err := toml.Unmarshal(data, &lf); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", w.Lockfile, err)
	}

	var deps []LockedPackage
	for _, p := range lf.Packages {
		if p.Source == "" {
			continue
		}
		deps = append(deps, p)
	}

	sort.Slice(deps, func(i, j int) bool {
		if deps[i].Name != deps[j].Name {
			return deps[i].Name < deps[j].Name
		}
		return deps[i].Version < deps[j].Version
	})
	return deps, nil
}
