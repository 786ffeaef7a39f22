package quizcoach

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// GenerateOptions control a single text-generation call.
type GenerateOptions struct {
	Temperature float32
	MaxTokens   int
}

// TextGenerator is the capability that produces free-form model output. The
// returned string carries no guarantee of valid JSON, completeness, or
// schema adherence, and calls may fail transiently.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error)
}

// OpenAIGenerator backs TextGenerator with GPT-4o chat completions.
type OpenAIGenerator struct {
	client *openai.Client
	model  string
	system string
}

// NewOpenAIGenerator creates a generator with the given system prompt.
func NewOpenAIGenerator(apiKey, systemPrompt string) *OpenAIGenerator {
	return &OpenAIGenerator{
		client: openai.NewClient(apiKey),
		model:  openai.GPT4o,
		system: systemPrompt,
	}
}

func (g *OpenAIGenerator) Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error) {
	resp, err := g.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model:       g.model,
			Temperature: opts.Temperature,
			MaxTokens:   opts.MaxTokens,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleSystem,
					Content: g.system,
				},
				{
					Role:    openai.ChatMessageRoleUser,
					Content: prompt,
				},
			},
		},
	)
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices in completion response")
	}
	return resp.Choices[0].Message.Content, nil
}
