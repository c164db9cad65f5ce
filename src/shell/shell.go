// Package shell assembles the interactive development-shell specification:
// the resolved toolchain, the platform's native build inputs, and a fixed
// set of environment variables. It consumes the same resolver outputs as
// the build pipeline but is otherwise independent of it.
package shell

import (
	"fmt"
	"io"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/sofmeright/forgeline/src/platform"
	"github.com/sofmeright/forgeline/src/toolchain"
)

// Spec is a rendered development shell.
type Spec struct {
	Platform         string            `yaml:"platform"`
	ToolchainVersion string            `yaml:"toolchain_version"`
	Components       []string          `yaml:"components"`
	AuxiliaryTools   []string          `yaml:"auxiliary_tools,omitempty"`
	NativeLibraries  []string          `yaml:"native_libraries,omitempty"`
	NativeBuildTools []string          `yaml:"native_build_tools"`
	Env              map[string]string `yaml:"env"`
}

// Assemble builds the shell spec from resolved configuration. extraEnv
// entries override nothing: the fixed logging default and the toolchain's
// own overrides are applied first, explicit config last.
func Assemble(tc *toolchain.Spec, inputs platform.BuildInputs, extraEnv map[string]string) *Spec {
	env := map[string]string{
		// Interactive shells always get verbose-ish application logging.
		"RUST_LOG": "info",
	}
	for k, v := range tc.EnvOverrides {
		env[k] = v
	}
	for k, v := range extraEnv {
		env[k] = v
	}

	components := make([]string, 0, len(tc.Components))
	for _, c := range tc.Components {
		components = append(components, string(c))
	}

	return &Spec{
		Platform:         tc.Platform.String(),
		ToolchainVersion: tc.Channel + "-" + tc.Version,
		Components:       components,
		AuxiliaryTools:   tc.AuxiliaryTools,
		NativeLibraries:  inputs.NativeLibraries,
		NativeBuildTools: inputs.NativeBuildTools,
		Env:              env,
	}
}

// RenderExports writes the spec's environment as shell export lines, sorted
// for stable output.
func (s *Spec) RenderExports(w io.Writer) {
	keys := make([]string, 0, len(s.Env))
	for k := range s.Env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(w, "export %s=%q\n", k, s.Env[k])
	}
}

// RenderYAML writes the full spec as YAML for machine consumption.
func (s *Spec) RenderYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(s); err != nil {
		return fmt.Errorf("encoding shell spec: %w", err)
	}
	return enc.Close()
}
