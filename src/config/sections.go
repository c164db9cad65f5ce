package config

import "os"

// WorkspaceConfig names the workspace root and the paths that participate
// in builds. Anything outside the allowlist never affects cache keys.
type WorkspaceConfig struct {
	Root      string   `yaml:"root"`
	Allowlist []string `yaml:"allowlist"`
	Manifest  string   `yaml:"manifest"`
	Lockfile  string   `yaml:"lockfile"`
}

// DefaultWorkspaceConfig covers the common Cargo workspace shape.
func DefaultWorkspaceConfig() WorkspaceConfig {
	return WorkspaceConfig{
		Root: ".",
		Allowlist: []string{
			"Cargo.toml",
			"Cargo.lock",
			".cargo",
			"crates",
			"src",
			"assets",
		},
		Manifest: "Cargo.toml",
		Lockfile: "Cargo.lock",
	}
}

// ToolchainConfig pins the toolchain. The version is shared by every
// platform; there is no per-platform version knob on purpose.
type ToolchainConfig struct {
	Channel    string   `yaml:"channel"`
	Version    string   `yaml:"version"`
	Components []string `yaml:"components"`
	Target     string   `yaml:"target"`
}

// DefaultToolchainConfig pins the stable channel with the full component set
// resolved by the toolchain package.
func DefaultToolchainConfig() ToolchainConfig {
	return ToolchainConfig{Channel: "stable"}
}

// GroupConfig declares a package group: a named subset of workspace members
// distributed as one unit with a single entry point.
type GroupConfig struct {
	Name        string   `yaml:"name"`
	Members     []string `yaml:"members"`
	MainProgram string   `yaml:"main_program"`
}

// CacheConfig locates the artifact store and the optional remote tier.
type CacheConfig struct {
	Dir    string        `yaml:"dir"`
	Remote *RemoteConfig `yaml:"remote,omitempty"`
}

// DefaultCacheConfig stores artifacts under the workspace.
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{Dir: ".forgeline/store"}
}

// RemoteConfig holds the S3-compatible remote cache settings. Credentials
// come from the named environment variables, never from the file itself.
type RemoteConfig struct {
	AccountID    string `yaml:"account_id"`
	Region       string `yaml:"region"`
	Bucket       string `yaml:"bucket"`
	Prefix       string `yaml:"prefix"`
	AccessKeyEnv string `yaml:"access_key_env"`
	SecretKeyEnv string `yaml:"secret_key_env"`
}

// AccessKey resolves the access key from the configured env var.
func (r *RemoteConfig) AccessKey() string {
	if r.AccessKeyEnv == "" {
		return os.Getenv("FORGELINE_CACHE_ACCESS_KEY")
	}
	return os.Getenv(r.AccessKeyEnv)
}

// SecretKey resolves the secret key from the configured env var.
func (r *RemoteConfig) SecretKey() string {
	if r.SecretKeyEnv == "" {
		return os.Getenv("FORGELINE_CACHE_SECRET_KEY")
	}
	return os.Getenv(r.SecretKeyEnv)
}

// PlatformOverride adjusts native inputs for one platform. Overrides apply
// in declaration order after the built-in resolution; later entries win.
type PlatformOverride struct {
	Platform              string   `yaml:"platform"`
	Windowed              *bool    `yaml:"windowed,omitempty"`
	ExtraNativeLibraries  []string `yaml:"extra_native_libraries,omitempty"`
	ExtraNativeBuildTools []string `yaml:"extra_native_build_tools,omitempty"`
}

// ShellConfig adds env vars to the development shell.
type ShellConfig struct {
	Env map[string]string `yaml:"env"`
}
