// Package llm wraps the external language-model completion call behind a
// small gateway interface so a deterministic stub can stand in during tests.
package llm

import (
	"context"
	"fmt"
)

// Client is the language-model gateway. Callers construct the prompt and
// decode the response; the gateway's only added behavior is response-prefix
// priming for JSON-array completions.
type Client interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
	Model() string
}

// CompletionRequest describes one completion call.
type CompletionRequest struct {
	// System is the optional system prompt
	System string

	// Prompt is the user turn
	Prompt string

	// PrimeJSONArray seeds the assistant turn with a literal "[" so the
	// model cannot prefix commentary before the array. The returned text
	// does NOT include the primer; callers expecting an array must
	// re-prepend "[" before decoding.
	PrimeJSONArray bool

	// MaxTokens caps the completion length; 0 uses the gateway default
	MaxTokens int
}

// Validate checks that the request can be sent.
func (r CompletionRequest) Validate() error {
	if r.Prompt == "" {
		return fmt.Errorf("completion request has empty prompt")
	}
	return nil
}

// UnexpectedResponseKindError reports a completion whose payload was not
// plain text (no choices, or a tool-call-only turn). Fatal to the step; the
// gateway never retries.
type UnexpectedResponseKindError struct {
	Detail string
}

func (e *UnexpectedResponseKindError) Error() string {
	return fmt.Sprintf("unexpected response kind from model: %s", e.Detail)
}
