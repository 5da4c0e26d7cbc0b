// Package main provides the entry point for the stackline CLI tool.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/stackline/cmd/stackline/commands"
	"github.com/Sumatoshi-tech/stackline/pkg/version"
)

func main() {
	version.InitBinaryVersion()

	rootCmd := newRootCommand()

	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(commands.ExitCode(err))
	}
}

func newRootCommand() *cobra.Command {
	var globals commands.Globals

	rootCmd := &cobra.Command{
		Use:   "stackline",
		Short: "Align and stack multi-series chart data",
		Long: `stackline aligns chart series onto a shared position domain and computes
stacking offsets for stacked area and bar charts.

Commands:
  align     Align series onto a shared position domain
  stack     Align and compute stacking offsets
  render    Render a stacked chart as an HTML page
  validate  Check a chart document without transforming it
  import    Store a chart document in the SQLite store
  batch     Recompute stacked rows for every published chart
  mcp       Start the MCP server`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	globals.Register(rootCmd)

	rootCmd.AddCommand(commands.NewAlignCommand(&globals))
	rootCmd.AddCommand(commands.NewStackCommand(&globals))
	rootCmd.AddCommand(commands.NewRenderCommand(&globals))
	rootCmd.AddCommand(commands.NewValidateCommand(&globals))
	rootCmd.AddCommand(commands.NewImportCommand(&globals))
	rootCmd.AddCommand(commands.NewBatchCommand(&globals))
	rootCmd.AddCommand(commands.NewMCPCommand(&globals))
	rootCmd.AddCommand(versionCmd())

	return rootCmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "stackline %s\n", version.String())
		},
	}
}
