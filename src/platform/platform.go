// Package platform models build target platforms (OS × architecture) and
// the platform-conditional native inputs a build needs. Every decision in
// this package is a pure function of the Platform value — no global state,
// so builds for different platforms can run side by side.
package platform

import (
	"fmt"
	"runtime"
	"strings"
)

// Platform identifies an OS/architecture pair, e.g. "linux/amd64".
type Platform struct {
	OS   string
	Arch string
}

// ErrUnsupported is returned when no toolchain or native-input resolution
// exists for a platform.
var ErrUnsupported = fmt.Errorf("unsupported platform")

// supported lists the platforms forgeline can resolve a toolchain for.
var supported = map[Platform]bool{
	{OS: "linux", Arch: "amd64"}:  true,
	{OS: "linux", Arch: "arm64"}:  true,
	{OS: "darwin", Arch: "amd64"}: true,
	{OS: "darwin", Arch: "arm64"}: true,
}

// osAliases maps alternate OS spellings to the canonical name.
var osAliases = map[string]string{
	"macos": "darwin",
	"osx":   "darwin",
}

// Host returns the platform forgeline is running on.
func Host() Platform {
	return Platform{OS: runtime.GOOS, Arch: runtime.GOARCH}
}

// Parse parses an "os/arch" identifier. Accepts "macos" as an alias for
// "darwin". Returns ErrUnsupported for platforms with no resolution.
func Parse(s string) (Platform, error) {
	parts := strings.Split(s, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return Platform{}, fmt.Errorf("malformed platform %q (want os/arch)", s)
	}

	os := strings.ToLower(parts[0])
	if canonical, ok := osAliases[os]; ok {
		os = canonical
	}

	p := Platform{OS: os, Arch: strings.ToLower(parts[1])}
	if !supported[p] {
		return Platform{}, fmt.Errorf("%w: %s", ErrUnsupported, p)
	}
	return p, nil
}

// String returns the canonical "os/arch" form.
func (p Platform) String() string {
	return p.OS + "/" + p.Arch
}

// IsDarwin reports whether the platform is in the Apple desktop family.
// Used as the predicate for framework inputs and toolchain env overrides.
func (p Platform) IsDarwin() bool {
	return p.OS == "darwin"
}

// Supported reports whether a resolution exists for the platform.
func (p Platform) Supported() bool {
	return supported[p]
}

// All returns the supported platforms in stable order.
func All() []Platform {
	return []Platform{
		{OS: "linux", Arch: "amd64"},
		{OS: "linux", Arch: "arm64"},
		{OS: "darwin", Arch: "amd64"},
		{OS: "darwin", Arch: "arm64"},
	}
}
