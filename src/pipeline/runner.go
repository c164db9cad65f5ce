package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"regexp"

	"github.com/sofmeright/forgeline/src/platform"
	"github.com/sofmeright/forgeline/src/toolchain"
)

// Runner executes the actual toolchain. The pipeline never invokes the
// compiler directly; tests substitute a counting stub here.
type Runner interface {
	// BuildDeps compiles the external dependency graph of the tree rooted
	// at srcDir into targetDir. First-party sources are stubs at this point.
	BuildDeps(ctx context.Context, srcDir, targetDir string, tc *toolchain.Spec, inputs platform.BuildInputs) error

	// BuildWorkspace compiles every workspace member in srcDir into
	// targetDir, reusing whatever dependency objects are already there.
	BuildWorkspace(ctx context.Context, srcDir, targetDir string, tc *toolchain.Spec, inputs platform.BuildInputs) error
}

// couldNotCompileRe extracts the failing crate from cargo's error output.
var couldNotCompileRe = regexp.MustCompile("could not compile `([^`]+)`")

// CargoRunner drives the real cargo binary.
type CargoRunner struct {
	// Cargo overrides the binary name, for pinned toolchain wrappers.
	Cargo   string
	Verbose bool
}

func (r *CargoRunner) BuildDeps(ctx context.Context, srcDir, targetDir string, tc *toolchain.Spec, inputs platform.BuildInputs) error {
	return r.run(ctx, srcDir, targetDir, tc, inputs)
}

func (r *CargoRunner) BuildWorkspace(ctx context.Context, srcDir, targetDir string, tc *toolchain.Spec, inputs platform.BuildInputs) error {
	return r.run(ctx, srcDir, targetDir, tc, inputs)
}

func (r *CargoRunner) run(ctx context.Context, srcDir, targetDir string, tc *toolchain.Spec, inputs platform.BuildInputs) error {
	bin := r.Cargo
	if bin == "" {
		bin = "cargo"
	}

	args := []string{"build", "--release", "--locked", "--workspace"}
	if tc.Target != toolchain.TargetNative {
		args = append(args, "--target", string(tc.Target))
	}

	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Dir = srcDir
	cmd.Env = append(os.Environ(), tc.Env()...)
	cmd.Env = append(cmd.Env, "CARGO_TARGET_DIR="+targetDir)
	for _, tool := range inputs.NativeBuildTools {
		// Native build tools are expected on PATH; record the requirement
		// for build scripts that probe it.
		cmd.Env = append(cmd.Env, "FORGELINE_REQUIRE_"+envName(tool)+"=1")
	}

	var out bytes.Buffer
	if r.Verbose {
		cmd.Stdout = os.Stderr
		cmd.Stderr = os.Stderr
	} else {
		cmd.Stdout = &out
		cmd.Stderr = &out
	}

	if err := cmd.Run(); err != nil {
		member := "workspace"
		if m := couldNotCompileRe.FindSubmatch(out.Bytes()); m != nil {
			member = string(m[1])
		}
		return fmt.Errorf("%w: %s: %v\n%s", ErrCompilationFailure, member, err, tail(out.Bytes(), 4096))
	}
	return nil
}

// tail returns at most n trailing bytes of b.
func tail(b []byte, n int) []byte {
	if len(b) <= n {
		return b
	}
	return b[len(b)-n:]
}

func envName(tool string) string {
	out := make([]byte, 0, len(tool))
	for i := 0; i < len(tool); i++ {
		c := tool[i]
		switch {
		case c >= 'a' && c <= 'z':
			out = append(out, c-'a'+'A')
		case c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
			out = append(out, c)
		default:
			out = append(out, '_')
		}
	}
	return string(out)
}
