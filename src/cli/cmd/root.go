package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sofmeright/forgeline/src/config"
)

var (
	cfgFile     string
	verbose     bool
	platformArg string
	targetArg   string
	cfg         *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "forgeline",
	Short: "Cache-aware workspace build orchestrator",
	Long: `Forgeline builds multi-platform Cargo workspaces in two cached stages:
a dependency layer keyed by manifest content, then the full workspace on
top of it. Package groups carve single-executable distributables out of a
finished build.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" {
			return nil
		}
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		return nil
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: .forgeline.yml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&platformArg, "platform", "", "target platform as os/arch (default: host)")
	rootCmd.PersistentFlags().StringVar(&targetArg, "target", "", "alternate compilation target (e.g. wasm32-unknown-unknown)")
}

// Execute runs the root command.
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return err
	}
	return nil
}
