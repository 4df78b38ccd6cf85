// Package cli wires the taskdeck commands.
package cli

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:     "taskdeck",
	Short:   "Project management backend with AI-assisted project bootstrap",
	Long:    `Taskdeck manages projects of nested tasks and subtasks over an HTTP API, and can bootstrap a project from an uploaded PDF via AI extraction.`,
	Version: "0.1.0",
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(browseCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
