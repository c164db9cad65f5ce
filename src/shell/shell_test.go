package shell

import (
	"bytes"
	"strings"
	"testing"

	"github.com/sofmeright/forgeline/src/platform"
	"github.com/sofmeright/forgeline/src/toolchain"
)

func assemble(t *testing.T, p platform.Platform, extra map[string]string) *Spec {
	t.Helper()

	tc, err := toolchain.Resolve(p, toolchain.Request{})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	inputs, err := platform.NativeInputs(p, platform.FeatureSet{})
	if err != nil {
		t.Fatalf("NativeInputs: %v", err)
	}
	return Assemble(tc, inputs, extra)
}

func TestAssembleFixedLoggingEnv(t *testing.T) {
	spec := assemble(t, platform.Platform{OS: "linux", Arch: "amd64"}, nil)

	if spec.Env["RUST_LOG"] != "info" {
		t.Errorf("RUST_LOG = %q, want info", spec.Env["RUST_LOG"])
	}
	if !contains(spec.NativeBuildTools, "pkg-config") {
		t.Errorf("shell lost the native build tools: %v", spec.NativeBuildTools)
	}
}

func TestAssembleCarriesToolchainOverrides(t *testing.T) {
	spec := assemble(t, platform.Platform{OS: "darwin", Arch: "arm64"}, nil)

	if spec.Env["CC"] != "clang" {
		t.Errorf("darwin toolchain override lost: %v", spec.Env)
	}
	if !contains(spec.NativeLibraries, "SystemConfiguration") {
		t.Errorf("darwin frameworks missing: %v", spec.NativeLibraries)
	}
}

func TestAssembleExtraEnvWins(t *testing.T) {
	spec := assemble(t, platform.Platform{OS: "linux", Arch: "amd64"}, map[string]string{
		"RUST_LOG": "debug",
		"EDITOR":   "vim",
	})

	if spec.Env["RUST_LOG"] != "debug" {
		t.Errorf("explicit env did not win: %q", spec.Env["RUST_LOG"])
	}
	if spec.Env["EDITOR"] != "vim" {
		t.Errorf("extra env lost: %v", spec.Env)
	}
}

func TestRenderExportsSortedAndQuoted(t *testing.T) {
	spec := assemble(t, platform.Platform{OS: "darwin", Arch: "arm64"}, map[string]string{"ZVAR": "z"})

	var buf bytes.Buffer
	spec.RenderExports(&buf)
	out := buf.String()

	if !strings.Contains(out, `export RUST_LOG="info"`) {
		t.Errorf("missing RUST_LOG export:\n%s", out)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	for i := 1; i < len(lines); i++ {
		if lines[i-1] > lines[i] {
			t.Errorf("exports not sorted:\n%s", out)
			break
		}
	}
}

func TestRenderYAML(t *testing.T) {
	spec := assemble(t, platform.Platform{OS: "linux", Arch: "amd64"}, nil)

	var buf bytes.Buffer
	if err := spec.RenderYAML(&buf); err != nil {
		t.Fatalf("RenderYAML: %v", err)
	}
	if !strings.Contains(buf.String(), "platform: linux/amd64") {
		t.Errorf("yaml missing platform:\n%s", buf.String())
	}
}

func contains(list []string, want string) bool {
	for _, v := range list {
		if v == want {
			return true
		}
	}
	return false
}
