package platform

import (
	"fmt"
	"sort"
	"strings"
)

// BuildInputs is the platform-conditional set of native libraries and build
// tools required to link. Computed once per platform and shared read-only by
// the dependency build, the workspace build, and the dev shell — the three
// must never diverge for the same platform.
type BuildInputs struct {
	// NativeLibraries are OS frameworks/libraries linked into the binary.
	NativeLibraries []string

	// NativeBuildTools are build-time-only tools (library discovery,
	// build-system generators). Never empty: discovery itself needs a tool.
	NativeBuildTools []string
}

// FeatureSet selects which optional native inputs a build wants.
type FeatureSet struct {
	// Windowed pulls in the windowing/graphics framework set on the Apple
	// family. The base set is deliberately minimal; the two observed
	// configurations (minimal vs. windowed) are mutually inconsistent, so
	// the caller has to opt in rather than getting a silent merge.
	Windowed bool
}

// darwinBaseFrameworks is the minimal Apple framework set: system
// configuration access only.
var darwinBaseFrameworks = []string{
	"SystemConfiguration",
}

// darwinWindowedFrameworks extends the base set for windowed builds.
var darwinWindowedFrameworks = []string{
	"AppKit",
	"CoreGraphics",
	"Metal",
}

// NativeInputs resolves the native inputs for a platform. The returned value
// is the single source of truth for every pipeline stage on that platform.
func NativeInputs(p Platform, features FeatureSet) (BuildInputs, error) {
	if !p.Supported() {
		return BuildInputs{}, fmt.Errorf("%w: %s", ErrUnsupported, p)
	}

	in := BuildInputs{
		// pkg-config is required everywhere: library discovery is itself
		// a build tool, even when the native-library set is empty.
		NativeBuildTools: []string{"pkg-config"},
	}

	if p.IsDarwin() {
		in.NativeLibraries = append(in.NativeLibraries, darwinBaseFrameworks...)
		if features.Windowed {
			in.NativeLibraries = append(in.NativeLibraries, darwinWindowedFrameworks...)
		}
	} else {
		in.NativeBuildTools = append(in.NativeBuildTools, "cmake")
	}

	sort.Strings(in.NativeLibraries)
	sort.Strings(in.NativeBuildTools)
	return in, nil
}

// Identity returns a stable fingerprint component for cache keys.
func (b BuildInputs) Identity() string {
	return "libs=" + strings.Join(b.NativeLibraries, ",") +
		";tools=" + strings.Join(b.NativeBuildTools, ",")
}
