package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/feedbackloop/triage/internal/config"
	"github.com/feedbackloop/triage/internal/llm"
	"github.com/feedbackloop/triage/internal/logging"
	"github.com/feedbackloop/triage/internal/triage"
	"github.com/feedbackloop/triage/internal/ui"
)

// runCmd drives the full pipeline for one piece of feedback.
var runCmd = &cobra.Command{
	Use:   "run [feedback-file]",
	Short: "Turn a piece of client feedback into tracker actions",
	Long: `Run the triage pipeline on client feedback.

The feedback text is read from the given file, or from stdin when no file is
given (or when the file is '-'). The pipeline asks up to three clarifying
questions, extracts candidate issues, matches them against the team's existing
tickets, and presents the change-set for review before anything is applied.

Example:
  triage run feedback.txt -T jira -t ACME
  pbpaste | triage run`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		fromStdin := len(args) == 0 || args[0] == "-"
		feedback, err := readFeedback(args, cmd.InOrStdin())
		if err != nil {
			return err
		}

		team, err := cmd.Flags().GetString("team")
		if err != nil {
			return err
		}
		assumeYes, err := cmd.Flags().GetBool("yes")
		if err != nil {
			return err
		}

		cfg, err := config.LoadConfig()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		if err := config.ValidateLLMConfig(cfg); err != nil {
			return err
		}

		backend, err := resolveTracker(cmd, cfg)
		if err != nil {
			return err
		}

		gateway, err := llm.New(cfg.LLM)
		if err != nil {
			return err
		}
		store, err := newStore(backend, cfg)
		if err != nil {
			return err
		}

		// Stdin is spent when the feedback was piped in; reopen the terminal
		// for the interactive prompts or fall back to non-interactive mode.
		promptIn := cmd.InOrStdin()
		if fromStdin && !assumeYes {
			tty, err := os.Open("/dev/tty")
			if err != nil {
				return fmt.Errorf("feedback was read from stdin and no terminal is available for review; pass --yes or a feedback file")
			}
			defer tty.Close()
			promptIn = tty
		}

		logging.Info("starting triage run",
			"tracker", backend,
			"team", team,
			"model", gateway.Model(),
			"feedback_bytes", len(feedback))

		pipeline, err := triage.New(triage.Config{
			Gateway:   gateway,
			Store:     store,
			Prompter:  ui.NewTerminal(promptIn, cmd.OutOrStdout()),
			Out:       cmd.OutOrStdout(),
			TeamKey:   team,
			AssumeYes: assumeYes,
		})
		if err != nil {
			return err
		}

		result, err := pipeline.Run(cmd.Context(), feedback)
		if err != nil {
			return err
		}

		logging.Info("triage run complete",
			"created", len(result.Created),
			"updated", len(result.Updated),
			"commented", len(result.Commented))
		return nil
	},
}

// readFeedback loads the feedback text from the file argument or stdin.
func readFeedback(args []string, stdin io.Reader) (string, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read feedback from stdin: %w", err)
		}
		return string(data), nil
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return "", fmt.Errorf("failed to read feedback file: %w", err)
	}
	return string(data), nil
}

func init() {
	runCmd.Flags().BoolP("yes", "y", false, "apply the change-set without interactive review")
}
