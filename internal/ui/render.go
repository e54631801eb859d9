package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/feedbackloop/triage/pkg/models"
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Underline(true)
	createStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Bold(true)
	updateStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("3")).Bold(true)
	commentStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("4")).Bold(true)
	reasonStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Italic(true)
)

func actionVerb(a models.ActionType) string {
	switch a {
	case models.ActionCreate:
		return createStyle.Render("create")
	case models.ActionUpdate:
		return updateStyle.Render("update")
	case models.ActionComment:
		return commentStyle.Render("comment")
	}
	return string(a)
}

// RenderPlan formats the resolved change-set for human review.
func RenderPlan(actions []models.ResolvedAction) string {
	var b strings.Builder

	b.WriteString(headerStyle.Render("Proposed change-set"))
	b.WriteString("\n")

	if len(actions) == 0 {
		b.WriteString("  (nothing to do)\n")
		return b.String()
	}

	for i, action := range actions {
		target := ""
		if action.MatchedTicketIdentifier != "" {
			target = " -> " + action.MatchedTicketIdentifier
		}
		fmt.Fprintf(&b, "%2d. %s%s  %s [%s/%s]\n", i+1,
			actionVerb(action.Action), target,
			action.Candidate.Title, action.Candidate.Type, action.Candidate.Priority)
		if action.Reason != "" {
			fmt.Fprintf(&b, "    %s\n", reasonStyle.Render(action.Reason))
		}
	}

	return b.String()
}

// RenderResult formats the run summary.
func RenderResult(result models.RunResult) string {
	var b strings.Builder

	b.WriteString(headerStyle.Render("Run summary"))
	b.WriteString("\n")

	if result.Total() == 0 {
		b.WriteString("  no changes applied\n")
		return b.String()
	}

	if len(result.Created) > 0 {
		fmt.Fprintf(&b, "  %s %s\n", createStyle.Render("created:"), strings.Join(result.Created, ", "))
	}
	if len(result.Updated) > 0 {
		fmt.Fprintf(&b, "  %s %s\n", updateStyle.Render("updated:"), strings.Join(result.Updated, ", "))
	}
	if len(result.Commented) > 0 {
		fmt.Fprintf(&b, "  %s %s\n", commentStyle.Render("commented:"), strings.Join(result.Commented, ", "))
	}

	return b.String()
}
