// Package workspace models a Cargo-style workspace: a root manifest naming
// first-party members, per-member manifests declaring executables, and a
// lockfile pinning the external dependency graph. The pipeline treats member
// sources as opaque bytes; this package only reads the manifest surface.
package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/pelletier/go-toml/v2"
)

// DefaultManifestName and DefaultLockfileName are the Cargo conventions.
const (
	DefaultManifestName = "Cargo.toml"
	DefaultLockfileName = "Cargo.lock"
)

// Workspace is the parsed manifest surface of a source tree.
type Workspace struct {
	RootDir  string
	Manifest string // manifest filename, relative to root
	Lockfile string // lockfile filename, relative to root
	Members  []Member
}

// Member is one first-party workspace package.
type Member struct {
	Name        string
	Path        string   // relative path from the workspace root
	Executables []string // bin target names this member produces
}

// rootManifest mirrors the [workspace] table of the root manifest.
type rootManifest struct {
	Workspace struct {
		Members []string `toml:"members"`
	} `toml:"workspace"`
	Package *memberPackage `toml:"package"`
}

// memberManifest mirrors the parts of a member manifest we care about.
type memberManifest struct {
	Package memberPackage `toml:"package"`
	Bin     []binTarget   `toml:"bin"`
}

type memberPackage struct {
	Name string `toml:"name"`
}

type binTarget struct {
	Name string `toml:"name"`
	Path string `toml:"path"`
}

// Load parses the workspace rooted at dir. A root manifest without a
// [workspace] table is treated as a single-member workspace.
func Load(dir, manifestName, lockfileName string) (*Workspace, error) {
	if manifestName == "" {
		manifestName = DefaultManifestName
	}
	if lockfileName == "" {
		lockfileName = DefaultLockfileName
	}

	data, err := os.ReadFile(filepath.Join(dir, manifestName))
	if err != nil {
		return nil, fmt.Errorf("reading workspace manifest: %w", err)
	}

	var root rootManifest
	if err := toml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", manifestName, err)
	}

	ws := &Workspace{
		RootDir:  dir,
		Manifest: manifestName,
		Lockfile: lockfileName,
	}

	if len(root.Workspace.Members) == 0 {
		// Single-package workspace: the root manifest is the member.
		if root.Package == nil || root.Package.Name == "" {
			return nil, fmt.Errorf("%s declares neither [workspace] members nor a [package]", manifestName)
		}
		m, err := loadMember(dir, ".", manifestName)
		if err != nil {
			return nil, err
		}
		ws.Members = []Member{m}
		return ws, nil
	}

	for _, rel := range root.Workspace.Members {
		m, err := loadMember(dir, rel, manifestName)
		if err != nil {
			return nil, err
		}
		ws.Members = append(ws.Members, m)
	}

	sort.Slice(ws.Members, func(i, j int) bool { return ws.Members[i].Name < ws.Members[j].Name })
	return ws, nil
}

// loadMember parses one member manifest and discovers its bin targets.
func loadMember(rootDir, rel, manifestName string) (Member, error) {
	memberDir := filepath.Join(rootDir, rel)
	data, err := os.ReadFile(filepath.Join(memberDir, manifestName))
	if err != nil {
		return Member{}, fmt.Errorf("reading member manifest %s: %w", rel, err)
	}

	var mm memberManifest
	if err := toml.Unmarshal(data, &mm); err != nil {
		return Member{}, fmt.Errorf("parsing member manifest %s: %w", rel, err)
	}
	if mm.Package.Name == "" {
		return Member{}, fmt.Errorf("member manifest %s has no package name", rel)
	}

	m := Member{Name: mm.Package.Name, Path: rel}

	// Explicit [[bin]] targets win; otherwise src/main.rs implies a bin
	// named after the package (the Cargo autodiscovery rule).
	for _, b := range mm.Bin {
		name := b.Name
		if name == "" {
			name = mm.Package.Name
		}
		m.Executables = append(m.Executables, name)
	}
	if len(m.Executables) == 0 {
		if _, err := os.Stat(filepath.Join(memberDir, "src", "main.rs")); err == nil {
			m.Executables = append(m.Executables, mm.Package.Name)
		}
	}

	sort.Strings(m.Executables)
	return m, nil
}

// MemberByName returns the named member, if present.
func (w *Workspace) MemberByName(name string) (Member, bool) {
	for _, m := range w.Members {
		if m.Name == name {
			return m, true
		}
	}
	return Member{}, false
}

// MemberNames returns the sorted member names.
func (w *Workspace) MemberNames() []string {
	names := make([]string, 0, len(w.Members))
	for _, m := range w.Members {
		names = append(names, m.Name)
	}
	sort.Strings(names)
	return names
}
