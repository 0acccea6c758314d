// Package cli contains the clickboard command-line tools, built on Cobra.
package cli

import (
	"io"
	"log"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd builds the command tree. Each call returns fresh flag state.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "clickboard",
		Short: "Link click statistics from the command line.",
		Long: `clickboard exports link click statistics as CSV or JSON and can run a
local stand-in for the link API for development.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose/debug logging")

	root.AddCommand(newExportCmd())
	root.AddCommand(newFakeAPICmd())
	return root
}

// Execute runs the root command. This is called by main.main().
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// commandLogger discards output unless --verbose is set.
func commandLogger(cmd *cobra.Command, prefix string) *log.Logger {
	logger := log.New(io.Discard, prefix, log.LstdFlags)
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		logger.SetOutput(cmd.ErrOrStderr())
	}
	return logger
}
