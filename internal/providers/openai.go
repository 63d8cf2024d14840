package providers

import (
	"context"
	"fmt"
	"time"

	openai "github.com/meguminnnnnnnnn/go-openai"
)

// OpenAIGenerator implements TextGenerator over any OpenAI-compatible chat
// completions endpoint — used directly for the openai provider, and (via a
// different baseURL) for gemini, per the router's role table (spec §4.4).
type OpenAIGenerator struct {
	client   *openai.Client
	model    string
	provider string
}

// NewOpenAIGenerator creates a generator against baseURL (empty = OpenAI's
// default endpoint) reporting providerName for cost-ledger attribution.
func NewOpenAIGenerator(apiKey, modelName, baseURL, providerName string) *OpenAIGenerator {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIGenerator{
		client:   openai.NewClientWithConfig(cfg),
		model:    modelName,
		provider: providerName,
	}
}

func (c *OpenAIGenerator) Provider() string { return c.provider }
func (c *OpenAIGenerator) Model() string    { return c.model }

// Generate sends one user turn (plus an optional system message).
func (c *OpenAIGenerator) Generate(ctx context.Context, req GenerateRequest) (GenerateResult, error) {
	start := time.Now()

	var msgs []openai.ChatCompletionMessage
	if req.SystemPrompt != "" {
		msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: req.SystemPrompt})
	}
	msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: req.UserPrompt})

	chatReq := openai.ChatCompletionRequest{
		Model:    c.model,
		Messages: msgs,
	}
	if req.JSONMode {
		chatReq.ResponseFormat = &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject}
	}

	resp, err := c.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return GenerateResult{}, fmt.Errorf("%s generate: %w", c.provider, err)
	}
	if len(resp.Choices) == 0 {
		return GenerateResult{}, fmt.Errorf("%s generate: no choices returned", c.provider)
	}

	return GenerateResult{
		Text:         resp.Choices[0].Message.Content,
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
		LatencyMs:    time.Since(start).Milliseconds(),
		CostUsd:      estimateCost(c.model, resp.Usage.PromptTokens, resp.Usage.CompletionTokens),
	}, nil
}
