package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/sofmeright/forgeline/src/platform"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), ".forgeline.yml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadMissingDefaultFileYieldsDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Workspace.Manifest != "Cargo.toml" || cfg.Cache.Dir != ".forgeline/store" {
		t.Errorf("defaults wrong: %+v", cfg)
	}
	if len(cfg.Workspace.Allowlist) == 0 {
		t.Error("default allowlist empty")
	}
}

func TestLoadMissingExplicitFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yml"))
	if !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig for explicit missing file, got %v", err)
	}
}

func TestLoadParsesGroupsAndOverrides(t *testing.T) {
	path := writeConfig(t, `
toolchain:
  version: "1.82.0"
  target: wasm32-unknown-unknown
groups:
  - name: notedeck
    members: [app]
    main_program: app
platforms:
  - platform: darwin/arm64
    windowed: true
  - platform: linux/amd64
    extra_native_build_tools: [mold]
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	g, err := cfg.Group("notedeck")
	if err != nil {
		t.Fatalf("Group: %v", err)
	}
	if g.MainProgram != "app" || len(g.Members) != 1 {
		t.Errorf("group = %+v", g)
	}

	if _, err := cfg.Group("nope"); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("unknown group error = %v", err)
	}
}

func TestLoadRejectsMalformedGroups(t *testing.T) {
	cases := []string{
		"groups:\n  - name: \"\"\n    members: [a]\n    main_program: a\n",
		"groups:\n  - name: g\n    members: []\n    main_program: a\n",
		"groups:\n  - name: g\n    members: [a]\n",
		"groups:\n  - name: g\n    members: [a]\n    main_program: a\n  - name: g\n    members: [b]\n    main_program: b\n",
	}
	for i, c := range cases {
		if _, err := Load(writeConfig(t, c)); !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("case %d: expected ErrInvalidConfig, got %v", i, err)
		}
	}
}

func TestNativeInputsAppliesOverridesInOrder(t *testing.T) {
	path := writeConfig(t, `
platforms:
  - platform: darwin/arm64
    windowed: false
  - platform: darwin/arm64
    windowed: true
    extra_native_libraries: [Security]
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	in, err := cfg.NativeInputs(platform.Platform{OS: "darwin", Arch: "arm64"})
	if err != nil {
		t.Fatalf("NativeInputs: %v", err)
	}

	// The later override wins: windowed frameworks plus the extra library.
	want := map[string]bool{"AppKit": true, "Security": true, "SystemConfiguration": true}
	for fw := range want {
		if !containsStr(in.NativeLibraries, fw) {
			t.Errorf("library %s missing: %v", fw, in.NativeLibraries)
		}
	}
}

func TestNativeInputsOtherPlatformUnaffected(t *testing.T) {
	path := writeConfig(t, `
platforms:
  - platform: darwin/arm64
    windowed: true
    extra_native_libraries: [Security]
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	in, err := cfg.NativeInputs(platform.Platform{OS: "linux", Arch: "amd64"})
	if err != nil {
		t.Fatalf("NativeInputs: %v", err)
	}
	if len(in.NativeLibraries) != 0 {
		t.Errorf("darwin override leaked onto linux: %v", in.NativeLibraries)
	}
}

func containsStr(list []string, want string) bool {
	for _, v := range list {
		if v == want {
			return true
		}
	}
	return false
}
