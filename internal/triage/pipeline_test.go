package triage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feedbackloop/triage/internal/execute"
	"github.com/feedbackloop/triage/internal/llm"
	"github.com/feedbackloop/triage/pkg/models"
)

// scriptedGateway pops canned responses in call order and records requests.
type scriptedGateway struct {
	responses []string
	requests  []llm.CompletionRequest
}

func (s *scriptedGateway) Complete(_ context.Context, req llm.CompletionRequest) (string, error) {
	s.requests = append(s.requests, req)
	if len(s.responses) == 0 {
		return "", fmt.Errorf("scripted gateway exhausted after %d calls", len(s.requests))
	}
	resp := s.responses[0]
	s.responses = s.responses[1:]
	return resp, nil
}

func (s *scriptedGateway) Model() string { return "scripted" }

// scriptedPrompter pops canned answers per primitive.
type scriptedPrompter struct {
	inputs   []string
	selects  []string
	confirms []bool
}

func (s *scriptedPrompter) Input(string) (string, error) {
	if len(s.inputs) == 0 {
		return "", errors.New("no scripted input left")
	}
	v := s.inputs[0]
	s.inputs = s.inputs[1:]
	return v, nil
}

func (s *scriptedPrompter) Select(_ string, options []models.QuestionOption) (string, error) {
	if len(s.selects) == 0 {
		return "", errors.New("no scripted selection left")
	}
	v := s.selects[0]
	s.selects = s.selects[1:]
	return v, nil
}

func (s *scriptedPrompter) Confirm(string) (bool, error) {
	if len(s.confirms) == 0 {
		return false, errors.New("no scripted confirmation left")
	}
	v := s.confirms[0]
	s.confirms = s.confirms[1:]
	return v, nil
}

// fakeStore is an in-memory ticket store.
type fakeStore struct {
	teams    []models.Team
	snapshot []models.ExternalTicket

	created           []string
	updated           []string
	commented         []string
	lastCreateDueDate string
	lastCreateDesc    string
	nextSeq           int
}

func (f *fakeStore) ListTeams(context.Context) ([]models.Team, error) { return f.teams, nil }

func (f *fakeStore) ListIssues(context.Context, string) ([]models.ExternalTicket, error) {
	return f.snapshot, nil
}

func (f *fakeStore) CreateIssue(_ context.Context, _, title, description string, _ int, dueDate string) (models.CreatedTicket, error) {
	f.nextSeq++
	identifier := fmt.Sprintf("ENG-%d", 200+f.nextSeq)
	f.created = append(f.created, identifier)
	f.lastCreateDueDate = dueDate
	f.lastCreateDesc = description
	return models.CreatedTicket{ID: "id-" + identifier, Identifier: identifier}, nil
}

func (f *fakeStore) UpdateIssue(_ context.Context, id, _ string) error {
	f.updated = append(f.updated, id)
	return nil
}

func (f *fakeStore) CommentOnIssue(_ context.Context, id, _ string) error {
	f.commented = append(f.commented, id)
	return nil
}

const feedbackText = "Login is broken on Safari and we would really like CSV export of reports."

var snapshot = []models.ExternalTicket{
	{ID: "id-101", Identifier: "ENG-101", Title: "Safari login broken", Description: "Login fails on Safari", Priority: 3, State: "Open"},
}

const extractionResponse = `{"title": "Login fails on Safari", "description": "Users cannot log in from Safari.", "type": "bug", "priority": "high"},
{"title": "Add CSV export", "description": "Reports should export to CSV.", "type": "feature", "priority": "medium"}]`

const matchResponse = `{"issueIndex": 0, "action": "update", "matchedIssueIdentifier": "ENG-101", "reason": "same safari bug"},
{"issueIndex": 1, "action": "create", "reason": "no export ticket"}]`

func TestPipelineEndToEnd(t *testing.T) {
	gw := &scriptedGateway{responses: []string{extractionResponse, matchResponse}}
	store := &fakeStore{
		teams:    []models.Team{{ID: "team-1", Name: "Engineering", Key: "ENG"}},
		snapshot: snapshot,
	}

	var out bytes.Buffer
	pipeline, err := New(Config{
		Gateway:   gw,
		Store:     store,
		Prompter:  &scriptedPrompter{},
		Out:       &out,
		TeamKey:   "ENG",
		AssumeYes: true,
	})
	require.NoError(t, err)

	result, err := pipeline.Run(context.Background(), feedbackText)
	require.NoError(t, err)

	assert.Equal(t, []string{"ENG-201"}, result.Created)
	assert.Equal(t, []string{"ENG-101"}, result.Updated)
	assert.Empty(t, result.Commented)

	assert.Equal(t, []string{"id-101"}, store.updated)
	assert.Contains(t, out.String(), "ENG-201")

	// Exactly two gateway calls in yes mode: extraction, then matching
	require.Len(t, gw.requests, 2)
	assert.Contains(t, gw.requests[1].Prompt, "ENG-101")
}

func TestPipelineInteractiveFlow(t *testing.T) {
	transcriptQuestions := `{"question": "Which browser version?", "options": [
		{"label": "Safari 16", "value": "Safari 16"},
		{"label": "Safari 17", "value": "Safari 17"}
	]}]`
	perIssueQuestions := `{"question": "Which reports need export?", "options": [
		{"label": "Weekly", "value": "weekly reports"},
		{"label": "All", "value": "all reports"}
	]},
	{"question": "Preferred format?", "options": [
		{"label": "CSV", "value": "csv"},
		{"label": "Excel", "value": "xlsx"}
	]}]`

	gw := &scriptedGateway{responses: []string{
		transcriptQuestions,
		extractionResponse, // first pass
		matchResponse,
		extractionResponse, // after refinement
		matchResponse,
		perIssueQuestions,
		"2025-01-17", // deadline
	}}
	store := &fakeStore{
		teams: []models.Team{
			{ID: "team-1", Name: "Engineering", Key: "ENG"},
			{ID: "team-2", Name: "Design", Key: "DES"},
		},
		snapshot: snapshot,
	}
	prompter := &scriptedPrompter{
		selects:  []string{"Safari 17", "ENG", "weekly reports", "csv"},
		inputs:   []string{"please split the export work", "next friday"},
		confirms: []bool{false, true, true},
	}

	pipeline, err := New(Config{
		Gateway:  gw,
		Store:    store,
		Prompter: prompter,
		Now:      func() time.Time { return time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC) },
	})
	require.NoError(t, err)

	result, err := pipeline.Run(context.Background(), feedbackText)
	require.NoError(t, err)

	assert.Equal(t, []string{"ENG-201"}, result.Created)
	assert.Equal(t, []string{"ENG-101"}, result.Updated)

	// Clarifying answer folded into both extraction prompts
	assert.Contains(t, gw.requests[1].Prompt, "A: Safari 17")
	assert.Contains(t, gw.requests[3].Prompt, "A: Safari 17")

	// Refinement note appended on the second extraction pass only
	assert.NotContains(t, gw.requests[1].Prompt, "Reviewer note:")
	assert.Contains(t, gw.requests[3].Prompt, "Reviewer note: please split the export work")

	// Per-issue answers appended to the created ticket's description
	assert.Contains(t, store.lastCreateDesc, "Q: Which reports need export?\nA: weekly reports")
	assert.Contains(t, store.lastCreateDesc, "A: csv")

	// Deadline resolved against the injected reference date
	assert.Equal(t, "2025-01-17", store.lastCreateDueDate)
	assert.Contains(t, gw.requests[6].Prompt, "Friday, 2025-01-10")

	// All scripted interactions consumed
	assert.Empty(t, prompter.selects)
	assert.Empty(t, prompter.inputs)
	assert.Empty(t, prompter.confirms)
}

func TestPipelineAbortWithoutRefinement(t *testing.T) {
	gw := &scriptedGateway{responses: []string{extractionResponse, matchResponse}}
	store := &fakeStore{
		teams:    []models.Team{{ID: "team-1", Name: "Engineering", Key: "ENG"}},
		snapshot: snapshot,
	}
	prompter := &scriptedPrompter{
		confirms: []bool{false},
		inputs:   []string{""},
	}

	pipeline, err := New(Config{
		Gateway:  gw,
		Store:    store,
		Prompter: prompter,
		TeamKey:  "ENG",
		// Transcript questions would consume a gateway response; skip them
		// by declining enrichment via an empty question set
	})
	require.NoError(t, err)

	// Route around transcript questions: the first scripted response would
	// be consumed by question generation, so run in a layout where the
	// question step returns zero questions.
	gw.responses = append([]string{"]"}, gw.responses...)

	_, err = pipeline.Run(context.Background(), feedbackText)
	require.ErrorIs(t, err, ErrAborted)

	assert.Empty(t, store.created)
	assert.Empty(t, store.updated)
}

func TestPipelineQuestionFailureDegradesGracefully(t *testing.T) {
	gw := &scriptedGateway{responses: []string{
		"I cannot answer that in JSON", // malformed question generation
		extractionResponse,
		matchResponse,
	}}
	store := &fakeStore{
		teams:    []models.Team{{ID: "team-1", Name: "Engineering", Key: "ENG"}},
		snapshot: snapshot,
	}
	prompter := &scriptedPrompter{confirms: []bool{true, false}, inputs: []string{""}}

	pipeline, err := New(Config{
		Gateway:  gw,
		Store:    store,
		Prompter: prompter,
		TeamKey:  "ENG",
	})
	require.NoError(t, err)

	result, err := pipeline.Run(context.Background(), feedbackText)
	require.NoError(t, err)
	assert.Equal(t, []string{"ENG-201"}, result.Created)
}

func TestPipelineExtractionFailureIsFatal(t *testing.T) {
	gw := &scriptedGateway{responses: []string{"not an array at all"}}
	store := &fakeStore{
		teams:    []models.Team{{ID: "team-1", Name: "Engineering", Key: "ENG"}},
		snapshot: snapshot,
	}

	pipeline, err := New(Config{
		Gateway:   gw,
		Store:     store,
		Prompter:  &scriptedPrompter{},
		TeamKey:   "ENG",
		AssumeYes: true,
	})
	require.NoError(t, err)

	_, err = pipeline.Run(context.Background(), feedbackText)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "extraction parse error")
	assert.Empty(t, store.created)
}

func TestPipelineUnknownTeam(t *testing.T) {
	pipeline, err := New(Config{
		Gateway:   &scriptedGateway{},
		Store:     &fakeStore{teams: []models.Team{{ID: "t", Name: "Engineering", Key: "ENG"}}},
		Prompter:  &scriptedPrompter{},
		TeamKey:   "NOPE",
		AssumeYes: true,
	})
	require.NoError(t, err)

	_, err = pipeline.Run(context.Background(), feedbackText)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `team "NOPE" not found`)
}

func TestPipelineEmptyFeedback(t *testing.T) {
	pipeline, err := New(Config{
		Gateway:  &scriptedGateway{},
		Store:    &fakeStore{},
		Prompter: &scriptedPrompter{},
	})
	require.NoError(t, err)

	_, err = pipeline.Run(context.Background(), "   ")
	require.Error(t, err)
}

func TestPipelineSurfacesMutationFailure(t *testing.T) {
	gw := &scriptedGateway{responses: []string{extractionResponse, matchResponse}}
	store := &failingStore{fakeStore: &fakeStore{
		teams:    []models.Team{{ID: "team-1", Name: "Engineering", Key: "ENG"}},
		snapshot: snapshot,
	}}

	pipeline, err := New(Config{
		Gateway:   gw,
		Store:     store,
		Prompter:  &scriptedPrompter{},
		TeamKey:   "ENG",
		AssumeYes: true,
	})
	require.NoError(t, err)

	result, err := pipeline.Run(context.Background(), feedbackText)
	require.Error(t, err)

	var mutErr *execute.MutationError
	require.True(t, errors.As(err, &mutErr))
	assert.Equal(t, "Add CSV export", mutErr.CandidateTitle)

	// The update before the failing create stays applied
	assert.Equal(t, []string{"ENG-101"}, result.Updated)
	assert.Empty(t, result.Created)
}

// failingStore fails every create.
type failingStore struct {
	*fakeStore
}

func (f *failingStore) CreateIssue(context.Context, string, string, string, int, string) (models.CreatedTicket, error) {
	return models.CreatedTicket{}, errors.New("tracker rejected the create")
}

func TestNewValidatesConfig(t *testing.T) {
	_, err := New(Config{})
	require.Error(t, err)

	_, err = New(Config{Gateway: &scriptedGateway{}})
	require.Error(t, err)

	_, err = New(Config{Gateway: &scriptedGateway{}, Store: &fakeStore{}})
	require.Error(t, err)
}

func TestRefinementLoopKeepsSnapshotFixed(t *testing.T) {
	// The snapshot is fetched once; a refinement pass must not re-fetch it.
	countingStore := &listCountingStore{fakeStore: &fakeStore{
		teams:    []models.Team{{ID: "team-1", Name: "Engineering", Key: "ENG"}},
		snapshot: snapshot,
	}}

	gw := &scriptedGateway{responses: []string{
		"]", // zero transcript questions
		extractionResponse,
		matchResponse,
		extractionResponse,
		matchResponse,
	}}
	prompter := &scriptedPrompter{
		confirms: []bool{false, true, false},
		inputs:   []string{"tighten the titles", ""},
	}

	pipeline, err := New(Config{
		Gateway:  gw,
		Store:    countingStore,
		Prompter: prompter,
		TeamKey:  "ENG",
	})
	require.NoError(t, err)

	_, err = pipeline.Run(context.Background(), feedbackText)
	require.NoError(t, err)
	assert.Equal(t, 1, countingStore.listCalls)
}

type listCountingStore struct {
	*fakeStore
	listCalls int
}

func (l *listCountingStore) ListIssues(ctx context.Context, teamID string) ([]models.ExternalTicket, error) {
	l.listCalls++
	return l.fakeStore.ListIssues(ctx, teamID)
}
