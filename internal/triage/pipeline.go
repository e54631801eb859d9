// Package triage drives the extraction-matching-reconciliation pipeline:
// feedback text in, tracker mutations and a run summary out.
package triage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/feedbackloop/triage/internal/enrich"
	"github.com/feedbackloop/triage/internal/execute"
	"github.com/feedbackloop/triage/internal/extract"
	"github.com/feedbackloop/triage/internal/llm"
	"github.com/feedbackloop/triage/internal/logging"
	"github.com/feedbackloop/triage/internal/match"
	"github.com/feedbackloop/triage/internal/tracker"
	"github.com/feedbackloop/triage/internal/ui"
	"github.com/feedbackloop/triage/pkg/models"
)

// ErrAborted is returned when the user declines the change-set without
// offering a refinement.
var ErrAborted = fmt.Errorf("change-set declined")

// Config wires the pipeline's collaborators. Everything is injected
// explicitly; the pipeline holds no ambient state.
type Config struct {
	Gateway  llm.Client
	Store    tracker.Store
	Prompter ui.Prompter

	// Out receives the rendered plan and summary; defaults to io.Discard
	Out io.Writer

	// TeamKey pre-selects the team by key or name, skipping the prompt
	TeamKey string

	// AssumeYes skips every interactive step: no clarifying questions, no
	// review loop, no per-issue enrichment, no deadlines
	AssumeYes bool

	// Now supplies the deadline reference date; defaults to time.Now
	Now func() time.Time
}

// Pipeline runs one triage pass. Every external call is attempted exactly
// once per logical step; there is no concurrency and no retry.
type Pipeline struct {
	store     tracker.Store
	prompter  ui.Prompter
	out       io.Writer
	teamKey   string
	assumeYes bool
	now       func() time.Time

	extractor *extract.Extractor
	engine    *enrich.Engine
	matcher   *match.Matcher
	executor  *execute.Executor
}

// New creates a pipeline, validating that the required collaborators are present.
func New(cfg Config) (*Pipeline, error) {
	if cfg.Gateway == nil {
		return nil, fmt.Errorf("gateway is required")
	}
	if cfg.Store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if cfg.Prompter == nil {
		return nil, fmt.Errorf("prompter is required")
	}

	out := cfg.Out
	if out == nil {
		out = io.Discard
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Pipeline{
		store:     cfg.Store,
		prompter:  cfg.Prompter,
		out:       out,
		teamKey:   cfg.TeamKey,
		assumeYes: cfg.AssumeYes,
		now:       now,
		extractor: extract.New(cfg.Gateway),
		engine:    enrich.New(cfg.Gateway),
		matcher:   match.New(cfg.Gateway),
		executor:  execute.New(cfg.Store),
	}, nil
}

// Run executes the full pipeline for one piece of feedback.
func (p *Pipeline) Run(ctx context.Context, feedback string) (models.RunResult, error) {
	feedback = strings.TrimSpace(feedback)
	if feedback == "" {
		return models.RunResult{}, fmt.Errorf("feedback text is empty")
	}

	enrichment, err := p.gatherContext(ctx, feedback)
	if err != nil {
		return models.RunResult{}, err
	}

	team, err := p.selectTeam(ctx)
	if err != nil {
		return models.RunResult{}, err
	}

	// One snapshot per run; matching is against this point-in-time view
	snapshot, err := p.store.ListIssues(ctx, team.ID)
	if err != nil {
		return models.RunResult{}, fmt.Errorf("fetching ticket snapshot: %w", err)
	}
	logging.Info("fetched ticket snapshot", "team", team.Key, "tickets", len(snapshot))

	actions, err := p.resolveActions(ctx, feedback, enrichment, snapshot)
	if err != nil {
		return models.RunResult{}, err
	}

	if len(actions) == 0 {
		fmt.Fprintln(p.out, ui.RenderPlan(actions))
		return models.RunResult{}, nil
	}

	if err := p.enrichCreates(ctx, feedback, actions); err != nil {
		return models.RunResult{}, err
	}

	dueDates, err := p.collectDeadlines(ctx, actions)
	if err != nil {
		return models.RunResult{}, err
	}

	result, err := p.executor.Apply(ctx, team.ID, actions, dueDates)
	fmt.Fprintln(p.out, ui.RenderResult(result))
	if err != nil {
		return result, err
	}

	return result, nil
}

// gatherContext asks the upfront clarifying questions and folds the answers
// into the enrichment context. A question-generation parse failure degrades
// to zero questions.
func (p *Pipeline) gatherContext(ctx context.Context, feedback string) (map[string]string, error) {
	if p.assumeYes {
		return nil, nil
	}

	questions, err := p.engine.GenerateTranscriptQuestions(ctx, feedback)
	if err != nil {
		var parseErr *enrich.QuestionParseError
		if !errors.As(err, &parseErr) {
			return nil, err
		}
		logging.Warn("clarifying question generation failed, continuing without context", "error", err)
		return nil, nil
	}

	if len(questions) == 0 {
		return nil, nil
	}

	enrichment := make(map[string]string, len(questions))
	for _, q := range questions {
		answer, err := p.prompter.Select(q.Question, q.Options)
		if err != nil {
			return nil, err
		}
		enrichment[q.Question] = answer
	}

	return enrichment, nil
}

func (p *Pipeline) selectTeam(ctx context.Context) (models.Team, error) {
	teams, err := p.store.ListTeams(ctx)
	if err != nil {
		return models.Team{}, fmt.Errorf("listing teams: %w", err)
	}
	if len(teams) == 0 {
		return models.Team{}, fmt.Errorf("no teams visible with the configured credentials")
	}

	if p.teamKey != "" {
		for _, team := range teams {
			if strings.EqualFold(team.Key, p.teamKey) || strings.EqualFold(team.Name, p.teamKey) {
				return team, nil
			}
		}
		return models.Team{}, fmt.Errorf("team %q not found", p.teamKey)
	}

	if len(teams) == 1 {
		return teams[0], nil
	}
	if p.assumeYes {
		return models.Team{}, fmt.Errorf("multiple teams available; --team is required with --yes")
	}

	options := make([]models.QuestionOption, len(teams))
	for i, team := range teams {
		options[i] = models.QuestionOption{
			Label: fmt.Sprintf("%s (%s)", team.Key, team.Name),
			Value: team.Key,
		}
	}

	chosen, err := p.prompter.Select("Which team should receive these issues?", options)
	if err != nil {
		return models.Team{}, err
	}
	for _, team := range teams {
		if strings.EqualFold(team.Key, chosen) {
			return team, nil
		}
	}
	return models.Team{}, fmt.Errorf("team %q not found", chosen)
}

// resolveActions runs extract + match, then loops through user review: a
// declined plan with a refinement note re-runs both steps with the note
// appended to the feedback.
func (p *Pipeline) resolveActions(ctx context.Context, feedback string, enrichment map[string]string, snapshot []models.ExternalTicket) ([]models.ResolvedAction, error) {
	for {
		candidates, err := p.extractor.Extract(ctx, feedback, enrichment)
		if err != nil {
			return nil, err
		}
		logging.Info("extracted candidate issues", "count", len(candidates))

		actions, err := p.matcher.Match(ctx, candidates, snapshot)
		if err != nil {
			return nil, err
		}

		fmt.Fprintln(p.out, ui.RenderPlan(actions))

		if p.assumeYes || len(actions) == 0 {
			return actions, nil
		}

		ok, err := p.prompter.Confirm("Apply this change-set?")
		if err != nil {
			return nil, err
		}
		if ok {
			return actions, nil
		}

		refinement, err := p.prompter.Input("What should change? (leave blank to abort)")
		if err != nil {
			return nil, err
		}
		if refinement == "" {
			return nil, ErrAborted
		}

		feedback = feedback + "\n\nReviewer note: " + refinement
		logging.Info("re-running extraction with reviewer note")
	}
}

// enrichCreates optionally asks per-issue follow-up questions for each create
// action, appending the answers to the candidate's description. This is the
// only in-place mutation between matching and execution.
func (p *Pipeline) enrichCreates(ctx context.Context, feedback string, actions []models.ResolvedAction) error {
	if p.assumeYes {
		return nil
	}

	for i := range actions {
		if actions[i].Action != models.ActionCreate {
			continue
		}

		ok, err := p.prompter.Confirm(fmt.Sprintf("Add more detail to %q?", actions[i].Candidate.Title))
		if err != nil {
			return err
		}
		if !ok {
			continue
		}

		questions, err := p.engine.GeneratePerIssueQuestions(ctx, actions[i].Candidate, feedback)
		if err != nil {
			var parseErr *enrich.QuestionParseError
			if !errors.As(err, &parseErr) {
				return err
			}
			logging.Warn("per-issue question generation failed, keeping description as is",
				"title", actions[i].Candidate.Title, "error", err)
			continue
		}

		var notes strings.Builder
		for _, q := range questions {
			answer, err := p.prompter.Select(q.Question, q.Options)
			if err != nil {
				return err
			}
			fmt.Fprintf(&notes, "\n\nQ: %s\nA: %s", q.Question, answer)
		}
		actions[i].Candidate.Description += notes.String()
	}

	return nil
}

// collectDeadlines asks for a deadline phrase per create action and resolves
// it to an ISO date. An empty phrase or an unresolvable one means no deadline.
func (p *Pipeline) collectDeadlines(ctx context.Context, actions []models.ResolvedAction) (map[int]string, error) {
	if p.assumeYes {
		return nil, nil
	}

	dueDates := make(map[int]string)
	for i := range actions {
		if actions[i].Action != models.ActionCreate {
			continue
		}

		phrase, err := p.prompter.Input(fmt.Sprintf("Deadline for %q? (blank for none)", actions[i].Candidate.Title))
		if err != nil {
			return nil, err
		}

		date, err := p.engine.ParseDeadline(ctx, phrase, p.now())
		if err != nil {
			return nil, err
		}
		if date != "" {
			dueDates[i] = date
		}
	}

	return dueDates, nil
}
