package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/feedbackloop/triage/internal/config"
	"github.com/feedbackloop/triage/internal/logging"
)

const (
	defaultModel     = "gpt-4o-mini"
	defaultMaxTokens = 4096

	// arrayPrimer is the literal prefix seeded into the assistant turn for
	// JSON-array completions.
	arrayPrimer = "["
)

type openaiClient struct {
	client openai.Client
	model  string
}

// New creates the production gateway backed by the OpenAI chat completions API.
func New(cfg config.LLMConfig) (Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("llm API key is required")
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	model := cfg.Model
	if model == "" {
		model = defaultModel
	}

	logging.Debug("llm gateway configured",
		"model", model,
		"api_key", logging.MaskSensitive(cfg.APIKey))

	return &openaiClient{
		client: openai.NewClient(opts...),
		model:  model,
	}, nil
}

func (c *openaiClient) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}

	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = defaultMaxTokens
	}

	var messages []openai.ChatCompletionMessageParamUnion
	if req.System != "" {
		messages = append(messages, openai.SystemMessage(req.System))
	}
	messages = append(messages, openai.UserMessage(req.Prompt))
	if req.PrimeJSONArray {
		messages = append(messages, openai.AssistantMessage(arrayPrimer))
	}

	params := openai.ChatCompletionNewParams{
		Model:               c.model,
		Messages:            messages,
		MaxCompletionTokens: openai.Int(int64(maxTokens)),
	}

	start := time.Now()
	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("llm completion: %w", err)
	}

	logging.Debug("llm completion finished",
		"model", c.model,
		"duration_ms", time.Since(start).Milliseconds(),
		"prompt_tokens", resp.Usage.PromptTokens,
		"completion_tokens", resp.Usage.CompletionTokens)

	if len(resp.Choices) == 0 {
		return "", &UnexpectedResponseKindError{Detail: "no choices in response"}
	}

	choice := resp.Choices[0]
	if choice.Message.Content == "" {
		if len(choice.Message.ToolCalls) > 0 {
			return "", &UnexpectedResponseKindError{Detail: "tool call payload instead of text"}
		}
		return "", &UnexpectedResponseKindError{Detail: "empty text content"}
	}

	return choice.Message.Content, nil
}

func (c *openaiClient) Model() string {
	return c.model
}
