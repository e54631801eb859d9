// Package ui provides the interactive front-end primitives the pipeline is
// expressed in: free-text input, single-choice selection, and yes/no
// confirmation. Swapping the Prompter for a scripted driver makes the whole
// pipeline non-interactive.
package ui

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/feedbackloop/triage/pkg/models"
)

var (
	questionStyle = lipgloss.NewStyle().Bold(true)
	optionStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	hintStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
)

// writeInLabel is the synthetic escape choice appended to every selection.
const writeInLabel = "Other (write in)"

// Prompter supplies the three interaction primitives the pipeline needs.
type Prompter interface {
	// Input asks for free text and returns the trimmed line.
	Input(prompt string) (string, error)

	// Select asks a single-choice question. The option list is presented in
	// order with a synthetic write-in escape choice appended; selecting it
	// falls through to free-text input. The chosen option's value (or the
	// written-in text) is returned.
	Select(prompt string, options []models.QuestionOption) (string, error)

	// Confirm asks a yes/no question; empty input means no.
	Confirm(prompt string) (bool, error)
}

// Terminal is the line-oriented Prompter used by the CLI.
type Terminal struct {
	in  *bufio.Reader
	out io.Writer
}

// NewTerminal creates a Terminal reading answers from in and writing prompts to out.
func NewTerminal(in io.Reader, out io.Writer) *Terminal {
	return &Terminal{
		in:  bufio.NewReader(in),
		out: out,
	}
}

// Input implements Prompter.
func (t *Terminal) Input(prompt string) (string, error) {
	fmt.Fprintf(t.out, "%s\n> ", questionStyle.Render(prompt))

	line, err := t.readLine()
	if err != nil {
		return "", err
	}
	return line, nil
}

// Select implements Prompter.
func (t *Terminal) Select(prompt string, options []models.QuestionOption) (string, error) {
	fmt.Fprintf(t.out, "%s\n", questionStyle.Render(prompt))

	for i, opt := range options {
		fmt.Fprintf(t.out, "  %s\n", optionStyle.Render(fmt.Sprintf("%d) %s", i+1, opt.Label)))
	}
	writeIn := len(options) + 1
	fmt.Fprintf(t.out, "  %s\n", optionStyle.Render(fmt.Sprintf("%d) %s", writeIn, writeInLabel)))

	for {
		fmt.Fprintf(t.out, "%s ", hintStyle.Render(fmt.Sprintf("choose 1-%d:", writeIn)))

		line, err := t.readLine()
		if err != nil {
			return "", err
		}

		choice, err := strconv.Atoi(line)
		if err != nil || choice < 1 || choice > writeIn {
			fmt.Fprintf(t.out, "%s\n", errorStyle.Render("not a valid choice"))
			continue
		}

		if choice == writeIn {
			return t.Input("Your answer")
		}
		return options[choice-1].Answer(), nil
	}
}

// Confirm implements Prompter.
func (t *Terminal) Confirm(prompt string) (bool, error) {
	fmt.Fprintf(t.out, "%s %s ", questionStyle.Render(prompt), hintStyle.Render("[y/N]"))

	line, err := t.readLine()
	if err != nil {
		return false, err
	}

	switch strings.ToLower(line) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}

func (t *Terminal) readLine() (string, error) {
	line, err := t.in.ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("reading input: %w", err)
	}
	return strings.TrimSpace(line), nil
}
