package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/feedbackloop/triage/internal/config"
	"github.com/feedbackloop/triage/internal/tracker"
	"github.com/feedbackloop/triage/internal/tracker/github"
	"github.com/feedbackloop/triage/internal/tracker/jira"
	"github.com/feedbackloop/triage/internal/tracker/trello"
)

// resolveTracker picks the backend from the --tracker flag, falling back to
// configuration.
func resolveTracker(cmd *cobra.Command, cfg *config.Config) (string, error) {
	backend, err := cmd.Flags().GetString("tracker")
	if err != nil {
		return "", err
	}
	if backend == "" {
		backend = cfg.Tracker
	}
	if err := config.ValidateTrackerConfig(cfg, backend); err != nil {
		return "", err
	}
	return backend, nil
}

// newStore constructs the ticket store for the chosen backend.
func newStore(backend string, cfg *config.Config) (tracker.Store, error) {
	switch backend {
	case config.TrackerJira:
		return jira.NewClient(cfg.Jira)
	case config.TrackerGitHub:
		return github.NewClient(cfg.GitHub)
	case config.TrackerTrello:
		return trello.NewClient(cfg.Trello)
	}
	return nil, fmt.Errorf("unknown tracker backend: %q", backend)
}
