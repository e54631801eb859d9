// Package models defines data structures shared across the application.
package models

import (
	"fmt"
)

// IssueType classifies a candidate issue.
type IssueType string

const (
	TypeBug         IssueType = "bug"
	TypeFeature     IssueType = "feature"
	TypeImprovement IssueType = "improvement"
	TypeQuestion    IssueType = "question"
)

// Valid reports whether t is one of the known issue types.
func (t IssueType) Valid() bool {
	switch t {
	case TypeBug, TypeFeature, TypeImprovement, TypeQuestion:
		return true
	}
	return false
}

// Priority classifies how urgent a candidate issue is.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Valid reports whether p is one of the known priorities.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// Scale maps the priority onto the tracker's integer scale.
func (p Priority) Scale() int {
	switch p {
	case PriorityLow:
		return 1
	case PriorityMedium:
		return 2
	case PriorityHigh:
		return 3
	case PriorityUrgent:
		return 4
	}
	return 2
}

// CandidateIssue is a structured problem or request extracted from raw
// feedback text. It has no identity until a tracker ticket is created for it.
type CandidateIssue struct {
	// Title is a short summary, roughly ten words or fewer
	Title string `json:"title"`

	// Description is the full explanation of the problem or request
	Description string `json:"description"`

	// Type classifies the issue (bug, feature, improvement, question)
	Type IssueType `json:"type"`

	// Priority classifies the urgency (low, medium, high, urgent)
	Priority Priority `json:"priority"`
}

// Validate checks the structural contract of a candidate issue.
func (c CandidateIssue) Validate() error {
	if c.Title == "" {
		return fmt.Errorf("candidate issue has empty title")
	}
	if !c.Type.Valid() {
		return fmt.Errorf("candidate issue %q has invalid type %q", c.Title, c.Type)
	}
	if !c.Priority.Valid() {
		return fmt.Errorf("candidate issue %q has invalid priority %q", c.Title, c.Priority)
	}
	return nil
}

// Team is a project container in the external tracker (a Jira project, a
// GitHub repository, a Trello board).
type Team struct {
	// ID is the opaque handle the tracker API expects
	ID string

	// Name is the human-readable team name
	Name string

	// Key is the short code used in ticket identifiers (e.g. "ACME")
	Key string
}

// ExternalTicket is a read-only snapshot of a ticket that already exists in
// the external tracker. The snapshot is fetched once per run; matching
// happens against this point-in-time view.
type ExternalTicket struct {
	// ID is the opaque handle the tracker API expects
	ID string

	// Identifier is the human-readable code (e.g. "ACME-123")
	Identifier string

	// Title is the ticket's summary field
	Title string

	// Description is the full body text, possibly empty
	Description string

	// Priority is the tracker's numeric priority scale
	Priority int

	// State is the tracker's workflow state label
	State string
}

// ActionType is the kind of mutation resolved for a candidate.
type ActionType string

const (
	ActionCreate  ActionType = "create"
	ActionUpdate  ActionType = "update"
	ActionComment ActionType = "comment"
)

// Valid reports whether a is one of the known action types.
func (a ActionType) Valid() bool {
	switch a {
	case ActionCreate, ActionUpdate, ActionComment:
		return true
	}
	return false
}

// ResolvedAction pairs a candidate issue with the decided mutation against
// the external tracker. For update and comment actions the matched ticket
// fields always reference a ticket present in the snapshot.
type ResolvedAction struct {
	// Candidate is the extracted issue this action applies
	Candidate CandidateIssue

	// Action is create, update, or comment
	Action ActionType

	// MatchedTicketID is the opaque handle of the target ticket, empty for create
	MatchedTicketID string

	// MatchedTicketIdentifier is the human-readable code of the target ticket
	MatchedTicketIdentifier string

	// Reason is the model's explanation for the decision
	Reason string
}

// QuestionOption is one selectable answer of an enrichment question.
type QuestionOption struct {
	// Label is the text shown to the user
	Label string `json:"label"`

	// Value is the answer text recorded when the option is chosen
	Value string `json:"value"`
}

// EnrichmentQuestion is a clarifying multiple-choice question. It exists only
// during the interactive enrichment phase; answers are folded into the
// extraction context or appended to a candidate's description.
type EnrichmentQuestion struct {
	// Question is the clarifying question text
	Question string `json:"question"`

	// Options holds between two and four choices, in presentation order
	Options []QuestionOption `json:"options"`
}

// Validate checks the structural contract of an enrichment question.
func (q EnrichmentQuestion) Validate() error {
	if q.Question == "" {
		return fmt.Errorf("enrichment question has empty text")
	}
	if len(q.Options) < 2 || len(q.Options) > 4 {
		return fmt.Errorf("enrichment question %q has %d options, want 2-4", q.Question, len(q.Options))
	}
	for _, opt := range q.Options {
		if opt.Label == "" && opt.Value == "" {
			return fmt.Errorf("enrichment question %q has an empty option", q.Question)
		}
	}
	return nil
}

// Answer returns the value recorded for an option, falling back to its label.
func (o QuestionOption) Answer() string {
	if o.Value != "" {
		return o.Value
	}
	return o.Label
}

// CreatedTicket is the tracker's handle for a newly created ticket.
type CreatedTicket struct {
	// ID is the opaque handle the tracker API expects
	ID string

	// Identifier is the human-readable code (e.g. "ACME-124")
	Identifier string
}

// RunResult is the terminal artifact of a run: the identifiers touched by
// each kind of mutation, in execution order.
type RunResult struct {
	// Created holds identifiers of tickets created during the run
	Created []string

	// Updated holds identifiers of tickets whose description was replaced
	Updated []string

	// Commented holds identifiers of tickets that received a comment
	Commented []string
}

// Total returns the number of mutations recorded in the result.
func (r RunResult) Total() int {
	return len(r.Created) + len(r.Updated) + len(r.Commented)
}
