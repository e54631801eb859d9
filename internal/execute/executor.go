// Package execute applies a resolved change-set against the external ticket
// store, strictly sequentially and fail-fast.
package execute

import (
	"context"
	"fmt"

	"github.com/feedbackloop/triage/internal/logging"
	"github.com/feedbackloop/triage/internal/tracker"
	"github.com/feedbackloop/triage/pkg/models"
)

// commentHeader prefixes every comment body posted by the executor.
const commentHeader = "Client feedback follow-up:\n\n"

// MutationError reports the first tracker call that failed. Actions already
// applied stay applied; actions after the failure are never attempted.
type MutationError struct {
	// CandidateTitle names the candidate whose action was in flight
	CandidateTitle string

	Err error
}

func (e *MutationError) Error() string {
	return fmt.Sprintf("tracker mutation failed for %q: %v", e.CandidateTitle, e.Err)
}

func (e *MutationError) Unwrap() error { return e.Err }

// Executor applies resolved actions against a ticket store.
type Executor struct {
	store tracker.Store
}

// New creates an executor over the given store.
func New(store tracker.Store) *Executor {
	return &Executor{store: store}
}

// Apply runs the actions in order, never concurrently, so error attribution
// stays unambiguous. dueDates is keyed by action position and only consulted
// for create actions. On the first failure Apply stops and returns the
// partial result alongside a *MutationError; there is no rollback.
//
// update and comment actions must arrive with a resolved target; the matcher
// guarantees this, and Apply refuses to guess when the guarantee is broken.
func (e *Executor) Apply(ctx context.Context, teamID string, actions []models.ResolvedAction, dueDates map[int]string) (models.RunResult, error) {
	var result models.RunResult

	for i, action := range actions {
		switch action.Action {
		case models.ActionCreate:
			created, err := e.store.CreateIssue(ctx, teamID,
				action.Candidate.Title,
				action.Candidate.Description,
				action.Candidate.Priority.Scale(),
				dueDates[i])
			if err != nil {
				return result, &MutationError{CandidateTitle: action.Candidate.Title, Err: err}
			}
			logging.Info("created ticket",
				"identifier", created.Identifier,
				"title", action.Candidate.Title,
				"due_date", dueDates[i])
			result.Created = append(result.Created, created.Identifier)

		case models.ActionUpdate:
			if action.MatchedTicketID == "" {
				return result, &MutationError{
					CandidateTitle: action.Candidate.Title,
					Err:            fmt.Errorf("update action has no resolved target ticket"),
				}
			}
			if err := e.store.UpdateIssue(ctx, action.MatchedTicketID, action.Candidate.Description); err != nil {
				return result, &MutationError{CandidateTitle: action.Candidate.Title, Err: err}
			}
			logging.Info("updated ticket",
				"identifier", action.MatchedTicketIdentifier,
				"title", action.Candidate.Title)
			result.Updated = append(result.Updated, action.MatchedTicketIdentifier)

		case models.ActionComment:
			if action.MatchedTicketID == "" {
				return result, &MutationError{
					CandidateTitle: action.Candidate.Title,
					Err:            fmt.Errorf("comment action has no resolved target ticket"),
				}
			}
			body := commentHeader + action.Candidate.Description
			if err := e.store.CommentOnIssue(ctx, action.MatchedTicketID, body); err != nil {
				return result, &MutationError{CandidateTitle: action.Candidate.Title, Err: err}
			}
			logging.Info("commented on ticket",
				"identifier", action.MatchedTicketIdentifier,
				"title", action.Candidate.Title)
			result.Commented = append(result.Commented, action.MatchedTicketIdentifier)

		default:
			return result, &MutationError{
				CandidateTitle: action.Candidate.Title,
				Err:            fmt.Errorf("unknown action type %q", action.Action),
			}
		}
	}

	return result, nil
}
