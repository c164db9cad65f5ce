package cmd

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/sofmeright/forgeline/src/config"
	"github.com/sofmeright/forgeline/src/gitver"
	"github.com/sofmeright/forgeline/src/output"
	"github.com/sofmeright/forgeline/src/pipeline"
	"github.com/sofmeright/forgeline/src/platform"
	"github.com/sofmeright/forgeline/src/source"
	"github.com/sofmeright/forgeline/src/store"
	"github.com/sofmeright/forgeline/src/toolchain"
	"github.com/sofmeright/forgeline/src/workspace"
)

// buildContext is everything a pipeline invocation needs, resolved once per
// command from config and flags.
type buildContext struct {
	Config    *config.Config
	Platform  platform.Platform
	Toolchain *toolchain.Spec
	Inputs    platform.BuildInputs
	Tree      *source.Tree
	Workspace *workspace.Workspace
	Store     *store.Store
	Pipeline  *pipeline.Pipeline
	Printer   *output.Printer
}

// resolveBuildContext wires flags and config into the immutable per-run
// configuration threaded through every stage.
func resolveBuildContext(ctx context.Context, needTree bool) (*buildContext, error) {
	p := platform.Host()
	if platformArg != "" {
		var err error
		p, err = platform.Parse(platformArg)
		if err != nil {
			return nil, err
		}
	}

	req := cfg.ToolchainRequest()
	if targetArg != "" {
		req.Target = toolchain.Target(targetArg)
	}

	tc, err := toolchain.Resolve(p, req)
	if err != nil {
		return nil, fmt.Errorf("resolving toolchain: %w", err)
	}

	inputs, err := cfg.NativeInputs(p)
	if err != nil {
		return nil, fmt.Errorf("resolving native inputs: %w", err)
	}

	bc := &buildContext{
		Config:    cfg,
		Platform:  p,
		Toolchain: tc,
		Inputs:    inputs,
		Printer:   output.NewPrinter(verbose),
	}

	root := cfg.Workspace.Root
	if root == "" {
		root = "."
	}

	st := store.New(filepath.Join(root, cfg.Cache.Dir))
	st.Verbose = verbose
	if rc := cfg.Cache.Remote; rc != nil {
		remote, err := store.NewRemote(ctx, store.RemoteConfig{
			AccountID: rc.AccountID,
			Region:    rc.Region,
			Bucket:    rc.Bucket,
			Prefix:    rc.Prefix,
			AccessKey: rc.AccessKey(),
			SecretKey: rc.SecretKey(),
		})
		if err != nil {
			bc.Printer.Warnf("remote cache disabled: %v", err)
		} else {
			st.Remote = remote
		}
	}
	bc.Store = st

	bc.Pipeline = &pipeline.Pipeline{
		Store:  st,
		Runner: &pipeline.CargoRunner{Verbose: verbose},
		Labels: gitver.Detect(root).Labels(),
	}

	if needTree {
		tree, err := source.Filter(root, cfg.Workspace.Allowlist)
		if err != nil {
			return nil, err
		}
		bc.Tree = tree

		ws, err := workspace.Load(root, cfg.Workspace.Manifest, cfg.Workspace.Lockfile)
		if err != nil {
			return nil, err
		}
		bc.Workspace = ws
	}

	return bc, nil
}

// reportDelta tells the user whether allowlisted files have uncommitted
// changes, as a hint about expected cache behavior.
func (bc *buildContext) reportDelta() {
	d := &source.Delta{RootDir: bc.Tree.Root, Verbose: verbose}
	changed, err := d.ChangedFiles(bc.Tree)
	if err != nil {
		bc.Printer.Debugf("delta: %v", err)
		return
	}
	switch {
	case changed == nil:
		// not a git repo, no prediction
	case len(changed) == 0:
		bc.Printer.Step("delta", "working tree clean, cache hits expected")
	default:
		bc.Printer.Step("delta", "%d allowlisted file(s) modified", len(changed))
	}
}
