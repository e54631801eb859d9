// Package trello provides the Trello-backed ticket store.
package trello

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/adlio/trello"

	"github.com/feedbackloop/triage/internal/config"
	"github.com/feedbackloop/triage/internal/logging"
	"github.com/feedbackloop/triage/pkg/models"
)

// Client handles interactions with the Trello API.
type Client struct {
	client *trello.Client
}

// NewClient creates a new Trello client from configuration.
func NewClient(cfg config.TrelloConfig) (*Client, error) {
	if cfg.APIKey == "" || cfg.Token == "" {
		return nil, fmt.Errorf("TRELLO_API_KEY and TRELLO_TOKEN must be set")
	}

	logging.Debug("trello client configured",
		"api_key", logging.MaskSensitive(cfg.APIKey),
		"token", logging.MaskSensitive(cfg.Token))

	return &Client{client: trello.NewClient(cfg.APIKey, cfg.Token)}, nil
}

// ListTeams returns the boards visible to the configured member.
func (c *Client) ListTeams(ctx context.Context) ([]models.Team, error) {
	member, err := c.client.GetMember("me", trello.Defaults())
	if err != nil {
		return nil, fmt.Errorf("failed to fetch Trello member: %w", err)
	}

	boards, err := member.GetBoards(trello.Defaults())
	if err != nil {
		return nil, fmt.Errorf("failed to fetch Trello boards: %w", err)
	}

	teams := make([]models.Team, 0, len(boards))
	for _, b := range boards {
		teams = append(teams, models.Team{
			ID:   b.ID,
			Name: b.Name,
			Key:  b.Name,
		})
	}

	return teams, nil
}

// ListIssues returns a snapshot of the board's cards. teamID is the board id.
func (c *Client) ListIssues(ctx context.Context, teamID string) ([]models.ExternalTicket, error) {
	board, err := c.client.GetBoard(teamID, trello.Defaults())
	if err != nil {
		return nil, fmt.Errorf("failed to fetch Trello board '%s': %w", teamID, err)
	}

	cards, err := board.GetCards(trello.Defaults())
	if err != nil {
		return nil, fmt.Errorf("failed to fetch cards for board '%s': %w", teamID, err)
	}

	tickets := make([]models.ExternalTicket, 0, len(cards))
	for _, card := range cards {
		state := "open"
		if card.Closed {
			state = "archived"
		}
		tickets = append(tickets, models.ExternalTicket{
			ID:          card.ID,
			Identifier:  fmt.Sprintf("#%d", card.IDShort),
			Title:       card.Name,
			Description: card.Desc,
			Priority:    priorityFromDesc(card.Desc),
			State:       state,
		})
	}

	logging.Debug("fetched trello snapshot", "board", teamID, "cards", len(tickets))
	return tickets, nil
}

// CreateIssue creates a card on the board, preferring a "To Do" or "Backlog"
// list and falling back to the first list. Trello has no priority field, so
// the priority travels as a trailing line in the description; the due date
// maps onto the card's due field.
func (c *Client) CreateIssue(ctx context.Context, teamID, title, description string, priority int, dueDate string) (models.CreatedTicket, error) {
	board, err := c.client.GetBoard(teamID, trello.Defaults())
	if err != nil {
		return models.CreatedTicket{}, fmt.Errorf("failed to fetch Trello board '%s': %w", teamID, err)
	}

	lists, err := board.GetLists(trello.Defaults())
	if err != nil {
		return models.CreatedTicket{}, fmt.Errorf("failed to fetch lists for board '%s': %w", teamID, err)
	}

	var list *trello.List
	for _, l := range lists {
		if strings.EqualFold(l.Name, "To Do") || strings.EqualFold(l.Name, "Backlog") {
			list = l
			break
		}
	}

	if list == nil && len(lists) > 0 {
		list = lists[0]
	} else if list == nil {
		newList, err := board.CreateList("To Do", trello.Defaults())
		if err != nil {
			return models.CreatedTicket{}, fmt.Errorf("failed to create 'To Do' list: %w", err)
		}
		list = newList
	}

	card := &trello.Card{
		Name:   title,
		Desc:   fmt.Sprintf("%s\n\n---\nPriority: %s", description, priorityText(priority)),
		IDList: list.ID,
	}

	if dueDate != "" {
		due, err := time.Parse("2006-01-02", dueDate)
		if err != nil {
			return models.CreatedTicket{}, fmt.Errorf("invalid due date %q: %w", dueDate, err)
		}
		card.Due = &due
	}

	if err := c.client.CreateCard(card, trello.Defaults()); err != nil {
		return models.CreatedTicket{}, fmt.Errorf("failed to create Trello card: %w", err)
	}

	return models.CreatedTicket{
		ID:         card.ID,
		Identifier: fmt.Sprintf("#%d", card.IDShort),
	}, nil
}

// UpdateIssue replaces the card description. id is the card id.
func (c *Client) UpdateIssue(ctx context.Context, id, description string) error {
	card, err := c.client.GetCard(id, trello.Defaults())
	if err != nil {
		return fmt.Errorf("failed to fetch Trello card %s: %w", id, err)
	}

	if err := card.Update(trello.Arguments{"desc": description}); err != nil {
		return fmt.Errorf("failed to update Trello card %s: %w", id, err)
	}

	return nil
}

// CommentOnIssue posts a comment on the card. id is the card id.
func (c *Client) CommentOnIssue(ctx context.Context, id, body string) error {
	card, err := c.client.GetCard(id, trello.Defaults())
	if err != nil {
		return fmt.Errorf("failed to fetch Trello card %s: %w", id, err)
	}

	if _, err := card.AddComment(body, trello.Defaults()); err != nil {
		return fmt.Errorf("failed to comment on Trello card %s: %w", id, err)
	}

	return nil
}

func priorityText(scale int) string {
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

func priorityFromDesc(desc string) int {
	switch {
	case strings.Contains(desc, "Priority: urgent"):
		return 4
	case strings.Contains(desc, "Priority: high"):
		return 3
	case strings.Contains(desc, "Priority: low"):
		return 1
	}
	return 2
}
