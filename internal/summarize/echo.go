package summarize

import (
	"context"
	"fmt"
	"strings"
)

// Echo is an offline backend that lists the ideas it was given.
type Echo struct{}

// Summarize implements Summarizer.
func (Echo) Summarize(ctx context.Context, texts []string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	var b strings.Builder
	fmt.Fprintf(&b, "## Consolidated ideas (%d)\n\n", len(texts))
	for _, t := range texts {
		b.WriteString("- ")
		b.WriteString(strings.TrimSpace(t))
		b.WriteString("\n")
	}
	return b.String(), nil
}
