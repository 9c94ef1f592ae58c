// Package cmd provides the command-line interface for the Bug Cutter backend.
package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "bugcutter",
	Short: "Bug Cutter collects bug reports and files them in Jira",
	Long: `Bug Cutter is the backend for the Vrtly bug reporting form. It accepts
structured bug drafts over HTTP, creates the corresponding Jira issue with
attachments and sub-tasks, and posts a summary to the team Slack channel.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
