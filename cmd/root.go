// Package cmd provides the command-line interface for the triage CLI tool.
package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "triage",
	Short: "Triage turns client feedback into issue-tracker actions",
	Long: `Triage is a CLI tool that converts unstructured client feedback into
structured issue-tracker actions. It extracts candidate issues with a language
model, reconciles them against the tracker's existing tickets, and applies the
reviewed change-set: creating new tickets, updating matched ones, or commenting
on related ones.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Persistent flags available to all commands
	rootCmd.PersistentFlags().StringP("tracker", "T", "", "tracker backend: jira, github, or trello (default from TRIAGE_TRACKER)")
	rootCmd.PersistentFlags().StringP("team", "t", "", "team key to file issues under (e.g. 'ACME' or 'owner/repo')")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(teamsCmd)
}
