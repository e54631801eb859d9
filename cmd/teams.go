package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/feedbackloop/triage/internal/config"
)

// teamsCmd lists the teams visible with the configured tracker credentials.
var teamsCmd = &cobra.Command{
	Use:   "teams",
	Short: "List the teams visible in the configured tracker",
	Long: `List the teams, projects, or boards the configured credentials can see.
Use a team's key with 'triage run --team' to skip interactive selection.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		backend, err := resolveTracker(cmd, cfg)
		if err != nil {
			return err
		}

		store, err := newStore(backend, cfg)
		if err != nil {
			return err
		}

		teams, err := store.ListTeams(cmd.Context())
		if err != nil {
			return err
		}

		if len(teams) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "no teams visible")
			return nil
		}

		for _, team := range teams {
			fmt.Fprintf(cmd.OutOrStdout(), "%-20s %s\n", team.Key, team.Name)
		}
		return nil
	},
}
