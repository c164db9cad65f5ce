package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the artifact store",
}

var cacheInfoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show artifact store statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		bc, err := resolveBuildContext(context.Background(), false)
		if err != nil {
			return err
		}
		stats, err := bc.Store.Info()
		if err != nil {
			return fmt.Errorf("reading store: %w", err)
		}
		bc.Printer.Step("location", "%s", bc.Store.Dir)
		bc.Printer.Step("artifacts", "%d", stats.Artifacts)
		bc.Printer.Step("size", "%.1f MiB", float64(stats.Bytes)/(1<<20))
		return nil
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every cached artifact",
	RunE: func(cmd *cobra.Command, args []string) error {
		bc, err := resolveBuildContext(context.Background(), false)
		if err != nil {
			return err
		}
		if err := bc.Store.Clear(); err != nil {
			return fmt.Errorf("clearing store: %w", err)
		}
		bc.Printer.Successf("artifact store cleared")
		return nil
	},
}

func init() {
	cacheCmd.AddCommand(cacheInfoCmd)
	cacheCmd.AddCommand(cacheClearCmd)
	rootCmd.AddCommand(cacheCmd)
}
