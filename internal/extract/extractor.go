// Package extract turns raw feedback text into typed candidate issues.
package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/feedbackloop/triage/internal/llm"
	"github.com/feedbackloop/triage/pkg/models"
)

const extractionSystem = `You are an assistant that converts unstructured client feedback into a
structured list of issues for an issue tracker. You respond with a JSON array
only, no prose and no markdown fences.`

const extractionInstructions = `Enumerate every distinct problem, request, or question in the feedback
above. For each one output an object with exactly these fields:
- "title": a short summary of at most ten words
- "description": a full explanation in your own words, grounded in the feedback
- "type": one of "bug", "feature", "improvement", "question"
- "priority": one of "low", "medium", "high", "urgent"

Output a JSON array of these objects and nothing else.`

// ParseError reports a model response that failed JSON decoding or the
// candidate-issue schema. The whole extraction is discarded; there is no
// partial-success mode.
type ParseError struct {
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("extraction parse error: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("extraction parse error: %s", e.Reason)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Extractor produces candidate issues from feedback text.
type Extractor struct {
	gateway llm.Client
}

// New creates an extractor using the given gateway.
func New(gateway llm.Client) *Extractor {
	return &Extractor{gateway: gateway}
}

// Extract enumerates and classifies every distinct problem or request in the
// feedback text. Question/answer pairs in enrichment are appended verbatim as
// grounding text before the instructions; this is the only way upfront
// clarifying answers influence extraction.
func (e *Extractor) Extract(ctx context.Context, feedback string, enrichment map[string]string) ([]models.CandidateIssue, error) {
	prompt := buildPrompt(feedback, enrichment)

	raw, err := e.gateway.Complete(ctx, llm.CompletionRequest{
		System:         extractionSystem,
		Prompt:         prompt,
		PrimeJSONArray: true,
	})
	if err != nil {
		return nil, fmt.Errorf("issue extraction: %w", err)
	}

	// The gateway primed the response with "["; put it back before decoding
	raw = "[" + strings.TrimSpace(raw)

	var candidates []models.CandidateIssue
	if err := json.Unmarshal([]byte(raw), &candidates); err != nil {
		return nil, &ParseError{Reason: "response is not a JSON array of issues", Err: err}
	}

	for _, c := range candidates {
		if err := c.Validate(); err != nil {
			return nil, &ParseError{Reason: "issue failed structural validation", Err: err}
		}
	}

	return candidates, nil
}

func buildPrompt(feedback string, enrichment map[string]string) string {
	var b strings.Builder

	b.WriteString("Client feedback:\n\n")
	b.WriteString(feedback)
	b.WriteString("\n")

	if len(enrichment) > 0 {
		b.WriteString("\nAdditional context from clarifying questions:\n")

		// Sorted for a reproducible prompt under a stubbed model
		questions := make([]string, 0, len(enrichment))
		for q := range enrichment {
			questions = append(questions, q)
		}
		sort.Strings(questions)

		for _, q := range questions {
			fmt.Fprintf(&b, "Q: %s\nA: %s\n", q, enrichment[q])
		}
	}

	b.WriteString("\n")
	b.WriteString(extractionInstructions)

	return b.String()
}
