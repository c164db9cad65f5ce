package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sofmeright/forgeline/src/extract"
)

var extractGroup string

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Extract a package group from the workspace build",
	Long: `Produce a package group: a configured subset of workspace members with one
designated executable entry point. Reuses cached build stages; stages are
only compiled if the cache has no artifact for the current source tree.`,
	RunE: runExtract,
}

func init() {
	extractCmd.Flags().StringVar(&extractGroup, "group", "", "package group name (required)")
	extractCmd.MarkFlagRequired("group")
	rootCmd.AddCommand(extractCmd)
}

func runExtract(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	bc, err := resolveBuildContext(ctx, true)
	if err != nil {
		return err
	}

	gc, err := bc.Config.Group(extractGroup)
	if err != nil {
		return err
	}

	deps, err := bc.Pipeline.BuildDependenciesOnly(ctx, bc.Tree, bc.Workspace, bc.Toolchain, bc.Inputs)
	if err != nil {
		return fmt.Errorf("dependency build: %w", err)
	}
	build, err := bc.Pipeline.BuildWorkspace(ctx, bc.Tree, bc.Workspace, bc.Toolchain, bc.Inputs, deps)
	if err != nil {
		return fmt.Errorf("workspace build: %w", err)
	}

	group, err := extract.Extract(build, gc.Name, gc.Members, gc.MainProgram)
	if err != nil {
		return err
	}

	bc.Printer.Step("group", "%s", group.Name)
	bc.Printer.Step("members", "%v", group.Members)
	bc.Printer.Step("main program", "%s", group.MainProgram)
	bc.Printer.Successf("%s", group.MainPath)
	return nil
}
