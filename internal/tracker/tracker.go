// Package tracker defines the contract between the pipeline and the external
// ticket store. Backends live in subpackages; the pipeline only sees this
// interface so a stub store can stand in during tests.
package tracker

import (
	"context"

	"github.com/feedbackloop/triage/pkg/models"
)

// Store is the ticket-store contract. ListTeams and ListIssues are read once
// per run, before matching; the mutation methods are called by the executor
// only, strictly sequentially.
type Store interface {
	// ListTeams returns the teams/projects/boards visible with the
	// configured credentials.
	ListTeams(ctx context.Context) ([]models.Team, error)

	// ListIssues returns a point-in-time snapshot of the team's tickets.
	ListIssues(ctx context.Context, teamID string) ([]models.ExternalTicket, error)

	// CreateIssue creates a ticket. priority uses the 1 (low) to 4 (urgent)
	// scale; dueDate is an ISO YYYY-MM-DD date or empty for none.
	CreateIssue(ctx context.Context, teamID, title, description string, priority int, dueDate string) (models.CreatedTicket, error)

	// UpdateIssue replaces the ticket's description.
	UpdateIssue(ctx context.Context, id, description string) error

	// CommentOnIssue posts a comment on the ticket.
	CommentOnIssue(ctx context.Context, id, body string) error
}
