// Package jira provides the JIRA-backed ticket store.
package jira

import (
	"context"
	"fmt"
	"time"

	jira "github.com/andygrunwald/go-jira"

	"github.com/feedbackloop/triage/internal/config"
	"github.com/feedbackloop/triage/internal/logging"
	"github.com/feedbackloop/triage/pkg/models"
)

// createIssueType is the JIRA issue type used for created tickets. Candidate
// type and priority travel in the priority field and description instead of
// per-type JIRA screens, which vary per installation.
const createIssueType = "Task"

// Client handles interactions with the JIRA API.
type Client struct {
	client *jira.Client
}

// NewClient creates a new JIRA client from configuration.
func NewClient(cfg config.JiraConfig) (*Client, error) {
	if cfg.URL == "" || cfg.Username == "" || cfg.Token == "" {
		return nil, fmt.Errorf("JIRA_URL, JIRA_USERNAME, and JIRA_TOKEN must be set")
	}

	tp := jira.BasicAuthTransport{
		Username: cfg.Username,
		Password: cfg.Token,
	}

	client, err := jira.NewClient(tp.Client(), cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to create JIRA client: %w", err)
	}

	logging.Debug("jira client configured",
		"url", cfg.URL,
		"username", cfg.Username,
		"token", logging.MaskSensitive(cfg.Token))

	return &Client{client: client}, nil
}

// ListTeams returns the JIRA projects visible to the configured user.
func (c *Client) ListTeams(ctx context.Context) ([]models.Team, error) {
	projects, _, err := c.client.Project.GetListWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list JIRA projects: %w", err)
	}

	teams := make([]models.Team, 0, len(*projects))
	for _, p := range *projects {
		teams = append(teams, models.Team{
			ID:   p.Key,
			Name: p.Name,
			Key:  p.Key,
		})
	}

	return teams, nil
}

// ListIssues returns a snapshot of the project's issues. teamID is the
// project key.
func (c *Client) ListIssues(ctx context.Context, teamID string) ([]models.ExternalTicket, error) {
	jql := fmt.Sprintf("project = '%s' ORDER BY created DESC", teamID)

	issues, _, err := c.client.Issue.SearchWithContext(ctx, jql, &jira.SearchOptions{MaxResults: 200})
	if err != nil {
		return nil, fmt.Errorf("failed to search JIRA issues: %w", err)
	}

	tickets := make([]models.ExternalTicket, 0, len(issues))
	for _, issue := range issues {
		ticket := models.ExternalTicket{
			ID:          issue.ID,
			Identifier:  issue.Key,
			Title:       issue.Fields.Summary,
			Description: issue.Fields.Description,
			Priority:    2,
		}
		if issue.Fields.Priority != nil {
			ticket.Priority = priorityScale(issue.Fields.Priority.Name)
		}
		if issue.Fields.Status != nil {
			ticket.State = issue.Fields.Status.Name
		}
		tickets = append(tickets, ticket)
	}

	logging.Debug("fetched jira snapshot", "project", teamID, "issues", len(tickets))
	return tickets, nil
}

// CreateIssue creates a JIRA issue in the project. priority uses the 1-4
// scale; dueDate is YYYY-MM-DD or empty.
func (c *Client) CreateIssue(ctx context.Context, teamID, title, description string, priority int, dueDate string) (models.CreatedTicket, error) {
	fields := &jira.IssueFields{
		Project: jira.Project{
			Key: teamID,
		},
		Summary:     title,
		Description: description,
		Type: jira.IssueType{
			Name: createIssueType,
		},
		Priority: &jira.Priority{
			Name: priorityName(priority),
		},
	}

	if dueDate != "" {
		due, err := time.Parse("2006-01-02", dueDate)
		if err != nil {
			return models.CreatedTicket{}, fmt.Errorf("invalid due date %q: %w", dueDate, err)
		}
		fields.Duedate = jira.Date(due)
	}

	newIssue, _, err := c.client.Issue.CreateWithContext(ctx, &jira.Issue{Fields: fields})
	if err != nil {
		return models.CreatedTicket{}, fmt.Errorf("failed to create JIRA issue: %w", err)
	}

	return models.CreatedTicket{
		ID:         newIssue.ID,
		Identifier: newIssue.Key,
	}, nil
}

// UpdateIssue replaces the issue's description.
func (c *Client) UpdateIssue(ctx context.Context, id, description string) error {
	data := map[string]interface{}{
		"fields": map[string]interface{}{
			"description": description,
		},
	}

	if _, err := c.client.Issue.UpdateIssueWithContext(ctx, id, data); err != nil {
		return fmt.Errorf("failed to update JIRA issue %s: %w", id, err)
	}

	return nil
}

// CommentOnIssue posts a comment on the issue.
func (c *Client) CommentOnIssue(ctx context.Context, id, body string) error {
	if _, _, err := c.client.Issue.AddCommentWithContext(ctx, id, &jira.Comment{Body: body}); err != nil {
		return fmt.Errorf("failed to comment on JIRA issue %s: %w", id, err)
	}

	return nil
}

// priorityName maps the 1-4 scale onto default JIRA priority names.
func priorityName(scale int) string {
	switch scale {
	case 1:
		return "Low"
	case 2:
		return "Medium"
	case 3:
		return "High"
	case 4:
		return "Highest"
	}
	return "Medium"
}

// priorityScale maps default JIRA priority names back onto the 1-4 scale.
func priorityScale(name string) int {
	switch name {
	case "Lowest", "Low":
		return 1
	case "Medium":
		return 2
	case "High":
		return 3
	case "Highest", "Urgent", "Blocker":
		return 4
	}
	return 2
}
