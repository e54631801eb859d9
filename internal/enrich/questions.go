// Package enrich generates clarifying questions and resolves free-text
// deadline phrases through the language-model gateway.
package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/feedbackloop/triage/internal/llm"
	"github.com/feedbackloop/triage/internal/logging"
	"github.com/feedbackloop/triage/pkg/models"
)

const (
	maxTranscriptQuestions = 3
	maxPerIssueQuestions   = 4
)

const questionSystem = `You are an assistant that writes clarifying multiple-choice questions about
client feedback. You respond with a JSON array only, no prose and no markdown
fences.`

// QuestionParseError reports a question-generation response that failed JSON
// decoding or the question schema. Fatal to the step; the caller may choose
// to treat it as zero questions for graceful degradation.
type QuestionParseError struct {
	Reason string
	Err    error
}

func (e *QuestionParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("question parse error: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("question parse error: %s", e.Reason)
}

func (e *QuestionParseError) Unwrap() error { return e.Err }

// Engine runs the three enrichment operations. They are independent; the
// orchestration shell composes them.
type Engine struct {
	gateway llm.Client
}

// New creates an enrichment engine using the given gateway.
func New(gateway llm.Client) *Engine {
	return &Engine{gateway: gateway}
}

// GenerateTranscriptQuestions produces up to three clarifying questions about
// the feedback as a whole, asked before extraction to build the enrichment
// context.
func (e *Engine) GenerateTranscriptQuestions(ctx context.Context, feedback string) ([]models.EnrichmentQuestion, error) {
	prompt := fmt.Sprintf(`Client feedback:

%s

Write at most %d multiple-choice questions whose answers would make this
feedback easier to turn into precise issue-tracker tickets. Only ask about
genuine ambiguities; if the feedback is already clear, output an empty array.
Each question is an object:
- "question": the question text
- "options": an array of 2 to 4 objects with "label" and "value"

Output a JSON array of these objects and nothing else.`, feedback, maxTranscriptQuestions)

	questions, err := e.generateQuestions(ctx, prompt)
	if err != nil {
		return nil, err
	}

	if len(questions) > maxTranscriptQuestions {
		logging.Warn("model produced too many transcript questions, truncating",
			"got", len(questions), "max", maxTranscriptQuestions)
		questions = questions[:maxTranscriptQuestions]
	}

	return questions, nil
}

// GeneratePerIssueQuestions produces two to four follow-up questions about a
// single candidate, asked post-match to refine its description before
// execution.
func (e *Engine) GeneratePerIssueQuestions(ctx context.Context, candidate models.CandidateIssue, feedback string) ([]models.EnrichmentQuestion, error) {
	prompt := fmt.Sprintf(`Client feedback:

%s

One issue extracted from this feedback:
Title: %s
Type: %s
Priority: %s
Description: %s

Write between 2 and %d multiple-choice questions whose answers would sharpen
this issue's description for the engineer picking it up. Each question is an
object:
- "question": the question text
- "options": an array of 2 to 4 objects with "label" and "value"

Output a JSON array of these objects and nothing else.`,
		feedback, candidate.Title, candidate.Type, candidate.Priority, candidate.Description, maxPerIssueQuestions)

	questions, err := e.generateQuestions(ctx, prompt)
	if err != nil {
		return nil, err
	}

	if len(questions) == 0 {
		return nil, &QuestionParseError{Reason: "model produced no per-issue questions"}
	}
	if len(questions) > maxPerIssueQuestions {
		logging.Warn("model produced too many per-issue questions, truncating",
			"got", len(questions), "max", maxPerIssueQuestions)
		questions = questions[:maxPerIssueQuestions]
	}

	return questions, nil
}

func (e *Engine) generateQuestions(ctx context.Context, prompt string) ([]models.EnrichmentQuestion, error) {
	raw, err := e.gateway.Complete(ctx, llm.CompletionRequest{
		System:         questionSystem,
		Prompt:         prompt,
		PrimeJSONArray: true,
	})
	if err != nil {
		return nil, fmt.Errorf("question generation: %w", err)
	}

	raw = "[" + strings.TrimSpace(raw)

	var questions []models.EnrichmentQuestion
	if err := json.Unmarshal([]byte(raw), &questions); err != nil {
		return nil, &QuestionParseError{Reason: "response is not a JSON array of questions", Err: err}
	}

	for _, q := range questions {
		if err := q.Validate(); err != nil {
			return nil, &QuestionParseError{Reason: "question failed structural validation", Err: err}
		}
	}

	return questions, nil
}
