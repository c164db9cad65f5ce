package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var depsCmd = &cobra.Command{
	Use:   "deps",
	Short: "Build only the dependency layer",
	Long: `Compile the external dependency graph declared by the manifests and
lockfile, without touching first-party sources. Warms the cache so later
workspace builds start from a ready dependency layer.`,
	RunE: runDeps,
}

func init() {
	rootCmd.AddCommand(depsCmd)
}

func runDeps(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	bc, err := resolveBuildContext(ctx, true)
	if err != nil {
		return err
	}

	bc.Printer.Header("Dependencies " + bc.Platform.String())
	bc.reportDelta()

	deps, err := bc.Pipeline.BuildDependenciesOnly(ctx, bc.Tree, bc.Workspace, bc.Toolchain, bc.Inputs)
	if err != nil {
		return fmt.Errorf("dependency build: %w", err)
	}
	if deps.CacheHit {
		bc.Printer.Hit("dependencies", deps.Key)
	} else {
		bc.Printer.Built("dependencies", deps.Key)
	}

	bc.Printer.Successf("dependency layer ready (manifest %.12s)", deps.ManifestHash)
	return nil
}
