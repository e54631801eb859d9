// Package match reconciles candidate issues against the existing ticket
// snapshot, deciding create, update, or comment for each candidate.
package match

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/feedbackloop/triage/internal/llm"
	"github.com/feedbackloop/triage/internal/logging"
	"github.com/feedbackloop/triage/pkg/models"
)

const matchSystem = `You reconcile newly extracted issues against an existing issue-tracker
snapshot. You respond with a JSON array only, no prose and no markdown fences.`

// ParseError reports a matcher response that failed JSON decoding or the
// entry schema. Fatal to the step; no partial result is returned.
type ParseError struct {
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("match parse error: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("match parse error: %s", e.Reason)
}

func (e *ParseError) Unwrap() error { return e.Err }

// matchEntry is the wire shape of one matcher decision.
type matchEntry struct {
	IssueIndex             int               `json:"issueIndex"`
	Action                 models.ActionType `json:"action"`
	MatchedIssueIdentifier string            `json:"matchedIssueIdentifier"`
	Reason                 string            `json:"reason"`
}

// Matcher maps candidates onto actions against the snapshot.
type Matcher struct {
	gateway llm.Client
}

// New creates a matcher using the given gateway.
func New(gateway llm.Client) *Matcher {
	return &Matcher{gateway: gateway}
}

// Match classifies each candidate into create, update, or comment against the
// point-in-time snapshot. Entries with an out-of-range issueIndex are dropped
// with a warning, as are update/comment entries whose target identifier does
// not resolve against the snapshot; neither aborts the run. Duplicate indices
// are all kept. Output preserves the order the model emitted, which may
// differ from candidate order and may be shorter than the candidate list.
func (m *Matcher) Match(ctx context.Context, candidates []models.CandidateIssue, existing []models.ExternalTicket) ([]models.ResolvedAction, error) {
	prompt := buildPrompt(candidates, existing)

	raw, err := m.gateway.Complete(ctx, llm.CompletionRequest{
		System:         matchSystem,
		Prompt:         prompt,
		PrimeJSONArray: true,
	})
	if err != nil {
		return nil, fmt.Errorf("issue matching: %w", err)
	}

	raw = "[" + strings.TrimSpace(raw)

	var entries []matchEntry
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		return nil, &ParseError{Reason: "response is not a JSON array of match entries", Err: err}
	}

	byIdentifier := make(map[string]models.ExternalTicket, len(existing))
	for _, ticket := range existing {
		byIdentifier[strings.ToUpper(ticket.Identifier)] = ticket
	}

	actions := make([]models.ResolvedAction, 0, len(entries))
	for _, entry := range entries {
		if !entry.Action.Valid() {
			return nil, &ParseError{Reason: fmt.Sprintf("unknown action %q", entry.Action)}
		}

		if entry.IssueIndex < 0 || entry.IssueIndex >= len(candidates) {
			logging.Warn("dropping match entry with out-of-range issue index",
				"issue_index", entry.IssueIndex,
				"candidates", len(candidates))
			continue
		}

		action := models.ResolvedAction{
			Candidate: candidates[entry.IssueIndex],
			Action:    entry.Action,
			Reason:    entry.Reason,
		}

		if entry.Action != models.ActionCreate {
			ticket, ok := byIdentifier[strings.ToUpper(strings.TrimSpace(entry.MatchedIssueIdentifier))]
			if !ok {
				logging.Warn("dropping match entry with unresolvable target ticket",
					"issue_index", entry.IssueIndex,
					"action", entry.Action,
					"identifier", entry.MatchedIssueIdentifier)
				continue
			}
			action.MatchedTicketID = ticket.ID
			action.MatchedTicketIdentifier = ticket.Identifier
		}

		actions = append(actions, action)
	}

	return actions, nil
}

func buildPrompt(candidates []models.CandidateIssue, existing []models.ExternalTicket) string {
	var b strings.Builder

	b.WriteString("Existing tickets in the tracker:\n")
	if len(existing) == 0 {
		b.WriteString("(none)\n")
	}
	for _, ticket := range existing {
		fmt.Fprintf(&b, "- %s: %s\n", ticket.Identifier, ticket.Title)
		if ticket.Description != "" {
			fmt.Fprintf(&b, "  %s\n", ticket.Description)
		}
	}

	b.WriteString("\nNewly extracted issues:\n")
	for i, c := range candidates {
		fmt.Fprintf(&b, "%d. [%s/%s] %s\n   %s\n", i, c.Type, c.Priority, c.Title, c.Description)
	}

	b.WriteString(`
For each extracted issue, decide independently:
- "create" if no existing ticket covers it
- "update" if an existing ticket covers the same problem and the new
  description should replace it
- "comment" if an existing ticket is related and the new information belongs
  in a comment

Output a JSON array with one object per issue:
- "issueIndex": the issue's number from the list above
- "action": "create", "update", or "comment"
- "matchedIssueIdentifier": the existing ticket identifier (omit for create)
- "reason": one sentence explaining the decision

Output the JSON array and nothing else.`)

	return b.String()
}
