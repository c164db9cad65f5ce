package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/sofmeright/forgeline/src/extract"
)

var buildGroup string

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Run the full cached build pipeline",
	Long: `Filter the source tree, build (or reuse) the dependency layer, build the
workspace on top of it, and optionally extract a package group.`,
	RunE: runBuild,
}

func init() {
	buildCmd.Flags().StringVar(&buildGroup, "group", "", "package group to extract after the build")
	rootCmd.AddCommand(buildCmd)
}

func runBuild(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	start := time.Now()

	bc, err := resolveBuildContext(ctx, true)
	if err != nil {
		return err
	}

	bc.Printer.Header("Build " + bc.Platform.String())
	bc.Printer.Step("toolchain", "%s-%s", bc.Toolchain.Channel, bc.Toolchain.Version)
	if len(bc.Toolchain.AuxiliaryTools) > 0 {
		bc.Printer.Step("aux tools", "%v", bc.Toolchain.AuxiliaryTools)
	}
	bc.Printer.Step("native inputs", "%d libraries, %d build tools", len(bc.Inputs.NativeLibraries), len(bc.Inputs.NativeBuildTools))
	bc.Printer.Step("source", "%d allowlisted files", len(bc.Tree.Files))
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

	build, err := bc.Pipeline.BuildWorkspace(ctx, bc.Tree, bc.Workspace, bc.Toolchain, bc.Inputs, deps)
	if err != nil {
		return fmt.Errorf("workspace build: %w", err)
	}
	if build.CacheHit {
		bc.Printer.Hit("workspace", build.Key)
	} else {
		bc.Printer.Built("workspace", build.Key)
	}

	if buildGroup != "" {
		gc, err := bc.Config.Group(buildGroup)
		if err != nil {
			return err
		}
		group, err := extract.Extract(build, gc.Name, gc.Members, gc.MainProgram)
		if err != nil {
			return err
		}
		bc.Printer.Step("group "+group.Name, "%s", group.MainPath)
	}

	bc.Printer.Successf("pipeline finished in %s", time.Since(start).Round(time.Millisecond))
	return nil
}
