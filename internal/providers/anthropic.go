package providers

import (
	"context"
	"fmt"
	"time"

	anthropic "github.com/liushuangls/go-anthropic/v2"
)

// AnthropicGenerator implements TextGenerator over the Anthropic Messages
// API with a single user turn — this spec's phases each wrap exactly one
// adapter call (spec §1), unlike the teacher's multi-turn tool-calling
// engine this client was originally written for.
type AnthropicGenerator struct {
	client *anthropic.Client
	model  string
}

// NewAnthropicGenerator creates a generator for modelName.
func NewAnthropicGenerator(apiKey, modelName string) *AnthropicGenerator {
	return &AnthropicGenerator{client: anthropic.NewClient(apiKey), model: modelName}
}

func (c *AnthropicGenerator) Provider() string { return "claude" }
func (c *AnthropicGenerator) Model() string    { return c.model }

// Generate sends one user turn (plus an optional system prompt) and returns
// the concatenated text content.
func (c *AnthropicGenerator) Generate(ctx context.Context, req GenerateRequest) (GenerateResult, error) {
	start := time.Now()

	userPrompt := req.UserPrompt
	if req.JSONMode {
		userPrompt += "\n\nRespond with JSON only, no surrounding prose."
	}

	msgReq := anthropic.MessagesRequest{
		Model: anthropic.Model(c.model),
		Messages: []anthropic.Message{
			{Role: anthropic.RoleUser, Content: []anthropic.MessageContent{anthropic.NewTextMessageContent(userPrompt)}},
		},
		MaxTokens: 4096,
	}
	if req.SystemPrompt != "" {
		msgReq.MultiSystem = []anthropic.MessageSystemPart{{Type: "text", Text: req.SystemPrompt}}
	}

	resp, err := c.client.CreateMessages(ctx, msgReq)
	if err != nil {
		return GenerateResult{}, fmt.Errorf("anthropic generate: %w", err)
	}

	var text string
	for _, block := range resp.Content {
		if block.Type == anthropic.MessagesContentTypeText && block.Text != nil {
			text += *block.Text
		}
	}

	return GenerateResult{
		Text:         text,
		InputTokens:  resp.Usage.InputTokens,
		OutputTokens: resp.Usage.OutputTokens,
		LatencyMs:    time.Since(start).Milliseconds(),
		CostUsd:      estimateCost(c.model, resp.Usage.InputTokens, resp.Usage.OutputTokens),
	}, nil
}

// estimateCost applies one flat per-million-token rate (3 in, 15 out) to the
// reported token usage, whatever the model; real billing is reported by the
// provider's invoice, not reproduced here. Every live Generate call's CostUsd
// comes from this estimate (mocks report zero per spec §6.2).
func estimateCost(model string, inputTokens, outputTokens int) float64 {
	const inRatePerM, outRatePerM = 3.0, 15.0
	return float64(inputTokens)/1_000_000*inRatePerM + float64(outputTokens)/1_000_000*outRatePerM
}
