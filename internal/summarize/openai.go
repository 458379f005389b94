package summarize

import (
	"context"
	"fmt"
	"log/slog"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIOptions tune the chat completion request. Zero values take defaults.
type OpenAIOptions struct {
	Model       string
	BaseURL     string
	Temperature float32
	MaxTokens   int
}

// OpenAI summarizes with a chat completion.
type OpenAI struct {
	client      *openai.Client
	model       string
	temperature float32
	maxTokens   int
}

// NewOpenAI creates an OpenAI backend.
func NewOpenAI(apiKey string, opts OpenAIOptions) *OpenAI {
	if opts.Model == "" {
		opts.Model = openai.GPT4oMini
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 800
	}

	clientCfg := openai.DefaultConfig(apiKey)
	if opts.BaseURL != "" {
		clientCfg.BaseURL = opts.BaseURL
	}

	slog.Debug("initializing openai summarizer", "model", opts.Model)
	return &OpenAI{
		client:      openai.NewClientWithConfig(clientCfg),
		model:       opts.Model,
		temperature: opts.Temperature,
		maxTokens:   opts.MaxTokens,
	}
}

// Summarize implements Summarizer.
func (o *OpenAI) Summarize(ctx context.Context, texts []string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: SystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: BuildPrompt(texts)},
		},
		Temperature: o.temperature,
		MaxTokens:   o.maxTokens,
	}

	resp, err := o.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("openai chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai returned no choices")
	}
	slog.Debug("openai summary received", "finish_reason", resp.Choices[0].FinishReason)
	return resp.Choices[0].Message.Content, nil
}
