package extract

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feedbackloop/triage/internal/llm"
	"github.com/feedbackloop/triage/pkg/models"
)

// stubGateway returns a canned response and records the request it saw.
type stubGateway struct {
	response string
	err      error
	lastReq  llm.CompletionRequest
	calls    int
}

func (s *stubGateway) Complete(_ context.Context, req llm.CompletionRequest) (string, error) {
	s.calls++
	s.lastReq = req
	return s.response, s.err
}

func (s *stubGateway) Model() string { return "stub" }

func TestExtractParsesCandidates(t *testing.T) {
	// Primed response: the gateway already consumed the leading "["
	gw := &stubGateway{response: `{"title": "Login fails on Safari", "description": "Users cannot log in from Safari 17.", "type": "bug", "priority": "high"},
{"title": "Add CSV export", "description": "Reports should export to CSV.", "type": "feature", "priority": "medium"}]`}

	candidates, err := New(gw).Extract(context.Background(), "login broken, want csv export", nil)
	require.NoError(t, err)
	require.Len(t, candidates, 2)

	assert.Equal(t, "Login fails on Safari", candidates[0].Title)
	assert.Equal(t, models.TypeBug, candidates[0].Type)
	assert.Equal(t, models.PriorityHigh, candidates[0].Priority)
	assert.Equal(t, models.TypeFeature, candidates[1].Type)

	assert.True(t, gw.lastReq.PrimeJSONArray, "extraction must use prefix priming")
}

func TestExtractEnumConformance(t *testing.T) {
	tests := []struct {
		name     string
		response string
	}{
		{
			name:     "invalid type",
			response: `{"title": "t", "description": "d", "type": "task", "priority": "high"}]`,
		},
		{
			name:     "invalid priority",
			response: `{"title": "t", "description": "d", "type": "bug", "priority": "critical"}]`,
		},
		{
			name:     "empty title",
			response: `{"title": "", "description": "d", "type": "bug", "priority": "high"}]`,
		},
		{
			name:     "not json",
			response: `sure, here are the issues you asked for`,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			gw := &stubGateway{response: tc.response}

			_, err := New(gw).Extract(context.Background(), "feedback", nil)
			require.Error(t, err)

			var parseErr *ParseError
			assert.True(t, errors.As(err, &parseErr), "want *ParseError, got %T: %v", err, err)
		})
	}
}

func TestExtractFoldsEnrichmentContext(t *testing.T) {
	gw := &stubGateway{response: `]`}

	enrichment := map[string]string{
		"Which browser is affected?": "Safari",
		"How many users reported it?": "about 20",
	}

	_, err := New(gw).Extract(context.Background(), "login broken", enrichment)
	require.NoError(t, err)

	assert.Contains(t, gw.lastReq.Prompt, "Q: Which browser is affected?\nA: Safari")
	assert.Contains(t, gw.lastReq.Prompt, "Q: How many users reported it?\nA: about 20")
	assert.Contains(t, gw.lastReq.Prompt, "login broken")
}

func TestExtractEmptyContextOmitsSection(t *testing.T) {
	gw := &stubGateway{response: `]`}

	_, err := New(gw).Extract(context.Background(), "login broken", nil)
	require.NoError(t, err)

	assert.NotContains(t, gw.lastReq.Prompt, "clarifying questions")
}

func TestExtractGatewayErrorPropagates(t *testing.T) {
	gw := &stubGateway{err: &llm.UnexpectedResponseKindError{Detail: "no choices in response"}}

	_, err := New(gw).Extract(context.Background(), "feedback", nil)
	require.Error(t, err)

	var kindErr *llm.UnexpectedResponseKindError
	assert.True(t, errors.As(err, &kindErr))
}
