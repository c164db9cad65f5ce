package cmd

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/sofmeright/forgeline/src/shell"
)

var shellYAML bool

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Print the development shell specification",
	Long: `Assemble the dev shell for the target platform: resolved toolchain,
native build inputs, and environment exports (RUST_LOG included).`,
	RunE: runShell,
}

func init() {
	shellCmd.Flags().BoolVar(&shellYAML, "yaml", false, "emit the full spec as YAML instead of export lines")
	rootCmd.AddCommand(shellCmd)
}

func runShell(cmd *cobra.Command, args []string) error {
	bc, err := resolveBuildContext(context.Background(), false)
	if err != nil {
		return err
	}

	spec := shell.Assemble(bc.Toolchain, bc.Inputs, bc.Config.Shell.Env)

	if shellYAML {
		return spec.RenderYAML(os.Stdout)
	}
	spec.RenderExports(os.Stdout)
	return nil
}
