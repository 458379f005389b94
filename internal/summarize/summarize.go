// Package summarize turns the texts of many pieces into one summary.
package summarize

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/AO-5002/piecewall/internal/config"
)

// Summarizer produces a consolidated summary of piece texts, given in wall order.
type Summarizer interface {
	Summarize(ctx context.Context, texts []string) (string, error)
}

// Func adapts a plain function to Summarizer.
type Func func(ctx context.Context, texts []string) (string, error)

// Summarize calls f.
func (f Func) Summarize(ctx context.Context, texts []string) (string, error) {
	return f(ctx, texts)
}

// SystemPrompt frames the model for every backend that takes one.
const SystemPrompt = "You are a helpful assistant that consolidates team ideas into clear, actionable summaries."

// BuildPrompt renders the consolidation request for texts.
func BuildPrompt(texts []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are consolidating ideas from a collaborative workspace. Here are %d ideas from team members:\n\n", len(texts))
	for _, t := range texts {
		b.WriteString("• ")
		b.WriteString(t)
		b.WriteString("\n")
	}
	b.WriteString(`
Create a consolidated summary with:
- Key themes and patterns
- Main takeaways (3-5 bullet points)
- Connections between ideas
- Actionable insights

Keep it concise and well-organized. Use bullet points and short paragraphs.`)
	return b.String()
}

// New builds the backend named by cfg.Summarizer.
func New(cfg *config.Config) (Summarizer, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	timeout := time.Duration(cfg.SummarizeTimeoutSeconds) * time.Second

	switch cfg.Summarizer {
	case "", config.SummarizerOpenAI:
		apiKey := strings.TrimSpace(os.Getenv("OPENAI_API_KEY"))
		if apiKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY environment variable not set")
		}
		return NewOpenAI(apiKey, OpenAIOptions{
			Model:       cfg.OpenAIModel,
			BaseURL:     cfg.OpenAIBaseURL,
			Temperature: cfg.Temperature,
			MaxTokens:   cfg.MaxTokens,
		}), nil
	case config.SummarizerOllama:
		return NewOllama(cfg.OllamaURL, cfg.OllamaModel, timeout), nil
	case config.SummarizerEcho:
		return Echo{}, nil
	default:
		return nil, fmt.Errorf("unknown summarizer %q (want openai, ollama or echo)", cfg.Summarizer)
	}
}
