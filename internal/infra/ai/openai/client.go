package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/pulsemsp/pulse/internal/domain/narrative"
	"github.com/pulsemsp/pulse/internal/infra/ai/prompt"
)

const maxTokens = 4096

// Generator produces review narratives through the OpenAI chat API with a
// forced JSON response. It implements narrative.Generator.
type Generator struct {
	*openai.Client
	Model string
}

func NewGenerator(apiKey, model string) *Generator {
	return &Generator{Client: openai.NewClient(apiKey), Model: model}
}

func (g *Generator) Generate(ctx context.Context, in *narrative.Input) (*narrative.Output, error) {
	model := g.Model
	if model == "" {
		model = "o3-2025-04-16"
	}

	userPrompt, err := prompt.GetUserPrompt(in)
	if err != nil {
		return nil, err
	}

	req := openai.ChatCompletionRequest{
		Model: model,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: prompt.GetSystemPrompt()},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
	}
	// For reasoning models (o1/o3/o4/gpt-5*) use MaxCompletionTokens instead of MaxTokens
	if strings.HasPrefix(model, "o1") || strings.HasPrefix(model, "o3") || strings.HasPrefix(model, "o4") || strings.HasPrefix(model, "gpt-5") {
		req.MaxCompletionTokens = maxTokens
	} else {
		req.MaxTokens = maxTokens
	}

	resp, err := g.CreateChatCompletion(ctx, req)
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) && apiErr.HTTPStatusCode == http.StatusTooManyRequests {
			return nil, fmt.Errorf("%w: %s", narrative.ErrQuotaExceeded, apiErr.Message)
		}
		return nil, fmt.Errorf("failed to create chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("chat completion returned no choices")
	}

	var out narrative.Output
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &out); err != nil {
		return nil, fmt.Errorf("failed to decode narrative json: %w", err)
	}
	return &out, nil
}

var _ narrative.Generator = (*Generator)(nil)
