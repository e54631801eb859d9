// Package github provides the GitHub-issues-backed ticket store.
package github

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/go-github/v41/github"
	"golang.org/x/oauth2"

	"github.com/feedbackloop/triage/internal/config"
	"github.com/feedbackloop/triage/internal/logging"
	"github.com/feedbackloop/triage/pkg/models"
)

// Client encapsulates the GitHub API client.
type Client struct {
	client *github.Client
}

// NewClient creates a new GitHub API client from configuration. Custom
// domains get the GitHub Enterprise /api/v3/ endpoint.
func NewClient(cfg config.GitHubConfig) (*Client, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("GITHUB_TOKEN must be set")
	}

	domain := cfg.Domain
	if domain == "" {
		domain = "github.com"
	}

	ts := oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: cfg.Token},
	)
	tc := oauth2.NewClient(context.Background(), ts)

	client := github.NewClient(tc)

	if domain != "github.com" {
		apiURL := fmt.Sprintf("https://%s/api/v3/", domain)
		parsedURL, err := url.Parse(apiURL)
		if err != nil {
			return nil, fmt.Errorf("invalid github api url: %w", err)
		}
		client.BaseURL = parsedURL
		client.UploadURL = parsedURL
	}

	logging.Debug("github client configured",
		"domain", domain,
		"token", logging.MaskSensitive(cfg.Token))

	return &Client{client: client}, nil
}

// ListTeams returns the repositories visible to the authenticated user. The
// full name ("owner/repo") serves as both team id and key.
func (c *Client) ListTeams(ctx context.Context) ([]models.Team, error) {
	opts := &github.RepositoryListOptions{
		ListOptions: github.ListOptions{PerPage: 100},
	}

	var teams []models.Team
	for {
		repos, resp, err := c.client.Repositories.List(ctx, "", opts)
		if err != nil {
			return nil, fmt.Errorf("failed to list GitHub repositories: %w", err)
		}

		for _, repo := range repos {
			teams = append(teams, models.Team{
				ID:   repo.GetFullName(),
				Name: repo.GetName(),
				Key:  repo.GetFullName(),
			})
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return teams, nil
}

// ListIssues returns a snapshot of the repository's open issues. teamID is
// "owner/repo". Pull requests are filtered out.
func (c *Client) ListIssues(ctx context.Context, teamID string) ([]models.ExternalTicket, error) {
	owner, repo, err := splitRepository(teamID)
	if err != nil {
		return nil, err
	}

	opts := &github.IssueListByRepoOptions{
		State: "open",
		ListOptions: github.ListOptions{
			PerPage: 100,
		},
	}

	var tickets []models.ExternalTicket
	for {
		issues, resp, err := c.client.Issues.ListByRepo(ctx, owner, repo, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch GitHub issues: %w", err)
		}

		for _, issue := range issues {
			// Skip pull requests (they're also returned by the Issues API)
			if issue.PullRequestLinks != nil {
				continue
			}

			identifier := fmt.Sprintf("%s#%d", teamID, issue.GetNumber())
			tickets = append(tickets, models.ExternalTicket{
				ID:          identifier,
				Identifier:  identifier,
				Title:       issue.GetTitle(),
				Description: issue.GetBody(),
				Priority:    priorityFromLabels(issue.Labels),
				State:       issue.GetState(),
			})
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	logging.Debug("fetched github snapshot", "repository", teamID, "issues", len(tickets))
	return tickets, nil
}

// CreateIssue creates a GitHub issue. GitHub has no native priority or due
// date; priority travels as a "priority:<name>" label and the due date is
// omitted.
func (c *Client) CreateIssue(ctx context.Context, teamID, title, description string, priority int, dueDate string) (models.CreatedTicket, error) {
	owner, repo, err := splitRepository(teamID)
	if err != nil {
		return models.CreatedTicket{}, err
	}

	if dueDate != "" {
		logging.Debug("github issues have no due date field, skipping",
			"repository", teamID, "due_date", dueDate)
	}

	labels := []string{"priority:" + priorityLabel(priority)}
	issue, _, err := c.client.Issues.Create(ctx, owner, repo, &github.IssueRequest{
		Title:  github.String(title),
		Body:   github.String(description),
		Labels: &labels,
	})
	if err != nil {
		return models.CreatedTicket{}, fmt.Errorf("failed to create GitHub issue: %w", err)
	}

	identifier := fmt.Sprintf("%s#%d", teamID, issue.GetNumber())
	return models.CreatedTicket{
		ID:         identifier,
		Identifier: identifier,
	}, nil
}

// UpdateIssue replaces the issue body. id is "owner/repo#N".
func (c *Client) UpdateIssue(ctx context.Context, id, description string) error {
	owner, repo, number, err := splitIssueRef(id)
	if err != nil {
		return err
	}

	_, _, err = c.client.Issues.Edit(ctx, owner, repo, number, &github.IssueRequest{
		Body: github.String(description),
	})
	if err != nil {
		return fmt.Errorf("failed to update GitHub issue %s: %w", id, err)
	}

	return nil
}

// CommentOnIssue posts a comment. id is "owner/repo#N".
func (c *Client) CommentOnIssue(ctx context.Context, id, body string) error {
	owner, repo, number, err := splitIssueRef(id)
	if err != nil {
		return err
	}

	_, _, err = c.client.Issues.CreateComment(ctx, owner, repo, number, &github.IssueComment{
		Body: github.String(body),
	})
	if err != nil {
		return fmt.Errorf("failed to comment on GitHub issue %s: %w", id, err)
	}

	return nil
}

func splitRepository(repository string) (owner, repo string, err error) {
	parts := strings.Split(repository, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid repository format: %s, expected format: owner/repo", repository)
	}
	return parts[0], parts[1], nil
}

func splitIssueRef(ref string) (owner, repo string, number int, err error) {
	parts := strings.Split(ref, "#")
	if len(parts) != 2 {
		return "", "", 0, fmt.Errorf("invalid issue reference: %s, expected format: owner/repo#number", ref)
	}

	owner, repo, err = splitRepository(parts[0])
	if err != nil {
		return "", "", 0, err
	}

	number, err = strconv.Atoi(parts[1])
	if err != nil {
		return "", "", 0, fmt.Errorf("invalid issue number in reference %s: %w", ref, err)
	}

	return owner, repo, number, nil
}

func priorityLabel(scale int) string {
	switch scale {
	case 1:
		return "low"
	case 3:
		return "high"
	case 4:
		return "urgent"
	}
	return "medium"
}

func priorityFromLabels(labels []*github.Label) int {
	for _, label := range labels {
		switch label.GetName() {
		case "priority:low":
			return 1
		case "priority:medium":
			return 2
		case "priority:high":
			return 3
		case "priority:urgent":
			return 4
		}
	}
	return 2
}
