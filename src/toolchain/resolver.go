// Package toolchain resolves the pinned compiler toolchain for a platform.
// One logical toolchain version is shared by every platform for
// reproducibility; platform differences are limited to auxiliary tool lists
// and env overrides layered on top under explicit predicates.
package toolchain

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/sofmeright/forgeline/src/platform"
)

// Component is one requested toolchain component.
type Component string

const (
	Compiler       Component = "rustc"
	PackageManager Component = "cargo"
	Linter         Component = "clippy"
	LanguageServer Component = "rust-analyzer"
	StdSources     Component = "rust-src"
)

// Target is an alternate compilation target.
type Target string

const (
	TargetNative Target = ""
	TargetWasm   Target = "wasm32-unknown-unknown"
)

// DefaultVersion is the pinned toolchain version used when the config does
// not override it.
const DefaultVersion = "1.82.0"

// ErrUnsupportedComponent is returned when a requested component has no
// resolution on the given platform.
var ErrUnsupportedComponent = errors.New("unsupported toolchain component")

// Request describes what the caller wants resolved.
type Request struct {
	Version    string // pinned semver; DefaultVersion when empty
	Channel    string // "stable" when empty
	Components []Component
	Target     Target
}

// Spec is the resolved, immutable toolchain bundle. Resolved once per
// (platform, request) at pipeline start and threaded through every stage as
// a value, never held as ambient global state.
type Spec struct {
	Platform   platform.Platform
	Version    string
	Channel    string
	Components []Component
	Target     Target

	// AuxiliaryTools are target-conditional extras, in resolution order.
	AuxiliaryTools []string

	// EnvOverrides apply only under the platform predicate that added them.
	EnvOverrides map[string]string
}

// knownComponents is the resolvable component set. Every component here is
// available on every supported platform at the pinned version.
var knownComponents = map[Component]bool{
	Compiler:       true,
	PackageManager: true,
	Linter:         true,
	LanguageServer: true,
	StdSources:     true,
}

// override is one platform-predicated adjustment. Overrides apply in
// declaration order; later writes win. Explicit ordering replaces the
// merge-order ambiguity of declarative attribute sets.
type override struct {
	when  func(platform.Platform, Target) bool
	apply func(*Spec)
}

var overrides = []override{
	{
		// Wasm targets need a glue-code generator, a bundler, and a
		// browser-automation driver for headless test runs.
		when: func(_ platform.Platform, t Target) bool { return t == TargetWasm },
		apply: func(s *Spec) {
			s.AuxiliaryTools = append(s.AuxiliaryTools, "wasm-bindgen-cli", "trunk", "chromedriver")
		},
	},
	{
		// chromedriver has no build for linux/arm64; drop it there rather
		// than failing the whole resolution.
		when: func(p platform.Platform, t Target) bool {
			return t == TargetWasm && p.OS == "linux" && p.Arch == "arm64"
		},
		apply: func(s *Spec) {
			s.AuxiliaryTools = remove(s.AuxiliaryTools, "chromedriver")
		},
	},
	{
		// Apple desktop family: point the linker at the system SDK and use
		// the clang frontend. Never applied elsewhere.
		when: func(p platform.Platform, _ Target) bool { return p.IsDarwin() },
		apply: func(s *Spec) {
			s.EnvOverrides["SDKROOT"] = "/Library/Developer/CommandLineTools/SDKs/MacOSX.sdk"
			s.EnvOverrides["CC"] = "clang"
		},
	},
}

// Resolve produces the toolchain spec for a platform. The pinned version is
// validated as semver and is identical across platforms; only auxiliary
// tools and env overrides vary.
func Resolve(p platform.Platform, req Request) (*Spec, error) {
	if !p.Supported() {
		return nil, fmt.Errorf("%w: %s", platform.ErrUnsupported, p)
	}

	version := req.Version
	if version == "" {
		version = DefaultVersion
	}
	if _, err := semver.StrictNewVersion(version); err != nil {
		return nil, fmt.Errorf("invalid toolchain version %q: %w", version, err)
	}

	channel := req.Channel
	if channel == "" {
		channel = "stable"
	}

	components := req.Components
	if len(components) == 0 {
		components = []Component{PackageManager, Compiler, Linter, LanguageServer, StdSources}
	}
	for _, c := range components {
		if !knownComponents[c] {
			return nil, fmt.Errorf("%w: %s on %s", ErrUnsupportedComponent, c, p)
		}
	}

	spec := &Spec{
		Platform:     p,
		Version:      version,
		Channel:      channel,
		Components:   append([]Component(nil), components...),
		Target:       req.Target,
		EnvOverrides: make(map[string]string),
	}
	sort.Slice(spec.Components, func(i, j int) bool { return spec.Components[i] < spec.Components[j] })

	for _, o := range overrides {
		if o.when(p, req.Target) {
			o.apply(spec)
		}
	}

	return spec, nil
}

// Identity returns a stable fingerprint component for cache keys. Env
// overrides and aux tools are included: two specs that would drive the
// compiler differently must never share artifacts.
func (s *Spec) Identity() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s-%s@%s", s.Channel, s.Version, s.Platform)
	if s.Target != TargetNative {
		fmt.Fprintf(&b, "+%s", s.Target)
	}
	for _, c := range s.Components {
		fmt.Fprintf(&b, ";c=%s", c)
	}
	for _, t := range s.AuxiliaryTools {
		fmt.Fprintf(&b, ";aux=%s", t)
	}
	keys := make([]string, 0, len(s.EnvOverrides))
	for k := range s.EnvOverrides {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, ";env=%s=%s", k, s.EnvOverrides[k])
	}
	return b.String()
}

// Env renders the override map as KEY=VALUE pairs in sorted order.
func (s *Spec) Env() []string {
	keys := make([]string, 0, len(s.EnvOverrides))
	for k := range s.EnvOverrides {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	env := make([]string, 0, len(keys))
	for _, k := range keys {
		env = append(env, k+"="+s.EnvOverrides[k])
	}
	return env
}

func remove(list []string, item string) []string {
	out := list[:0]
	for _, v := range list {
		if v != item {
			out = append(out, v)
		}
	}
	return out
}
