// Package extract carves a named package group out of a completed workspace
// build: a subset of members bundled as one distributable unit with a single
// designated executable entry point.
package extract

import (
	"errors"
	"fmt"
	"sort"

	"github.com/sofmeright/forgeline/src/pipeline"
)

// ErrEntryPointNotFound means the requested main program is not produced by
// any member in the group.
var ErrEntryPointNotFound = errors.New("entry point not found in package group")

// Group is an immutable view over workspace artifacts. It references the
// underlying build rather than copying it, so invalidating the build
// invalidates the group.
type Group struct {
	Name        string
	Members     []string
	MainProgram string

	// MainPath is the executable's location inside the workspace artifacts.
	MainPath string

	artifacts *pipeline.WorkspaceArtifacts
}

// Extract validates and builds a group view. Every member must exist in the
// workspace, and mainProgram must be an executable of one of the members.
func Extract(artifacts *pipeline.WorkspaceArtifacts, name string, members []string, mainProgram string) (*Group, error) {
	if artifacts == nil || artifacts.Workspace == nil {
		return nil, fmt.Errorf("extracting %s: no workspace artifacts", name)
	}
	if len(members) == 0 {
		return nil, fmt.Errorf("extracting %s: empty member set", name)
	}

	found := false
	for _, memberName := range members {
		m, ok := artifacts.Workspace.MemberByName(memberName)
		if !ok {
			return nil, fmt.Errorf("extracting %s: unknown workspace member %q", name, memberName)
		}
		for _, bin := range m.Executables {
			if bin == mainProgram {
				found = true
			}
		}
	}
	if !found {
		return nil, fmt.Errorf("%w: %q is not an executable of members %v (group %s)", ErrEntryPointNotFound, mainProgram, members, name)
	}

	g := &Group{
		Name:        name,
		Members:     append([]string(nil), members...),
		MainProgram: mainProgram,
		MainPath:    artifacts.ExecutablePath(mainProgram),
		artifacts:   artifacts,
	}
	sort.Strings(g.Members)
	return g, nil
}

// Artifacts returns the underlying workspace build the group references.
func (g *Group) Artifacts() *pipeline.WorkspaceArtifacts {
	return g.artifacts
}
