// Package insights produces the prose layer around computed results: dataset
// executive summaries, business-language answers, and chart suggestions.
// Everything here is presentation; nothing feeds back into code generation or
// execution.
package insights

import (
	"context"
	"fmt"
	"strings"

	"datanerd/internal/dataset"
	"datanerd/internal/llm"
	"datanerd/internal/logging"
	"datanerd/internal/prompt"
	"datanerd/internal/result"
	"datanerd/internal/session"

	"go.uber.org/zap"
)

// Generator turns computed artifacts into prose via the model.
type Generator struct {
	client  llm.Client
	prompts *prompt.Builder
	log     *zap.Logger
}

// NewGenerator wires a generator.
func NewGenerator(client llm.Client, prompts *prompt.Builder) *Generator {
	return &Generator{
		client:  client,
		prompts: prompts,
		log:     logging.Get(logging.CategoryAnalyst),
	}
}

// ExecutiveSummary asks the model for a short overview of the session's
// dataset, grounded in its schema and numeric summary statistics.
func (g *Generator) ExecutiveSummary(ctx context.Context, s *session.Session) (string, error) {
	stats := numericStats(s.Frame())
	p := g.prompts.Insights(s.Descriptor(), stats)

	text, err := g.client.CompleteWithSystem(ctx, g.prompts.InsightsSystem(), p)
	if err != nil {
		return "", fmt.Errorf("executive summary: %w", err)
	}
	g.log.Info("executive summary generated",
		zap.String("session_id", s.ID),
		zap.Int("chars", len(text)))
	return strings.TrimSpace(text), nil
}

// BusinessAnswer asks the model to phrase a computed result as an answer to
// the original question. Error results are answered directly without a model
// round trip.
func (g *Generator) BusinessAnswer(ctx context.Context, question string, res *result.Result) (string, error) {
	if res == nil || !res.OK() {
		return "", fmt.Errorf("no result to explain")
	}

	p := g.prompts.BusinessAnswer(question, res)
	text, err := g.client.CompleteWithSystem(ctx, g.prompts.BusinessSystem(), p)
	if err != nil {
		return "", fmt.Errorf("business answer: %w", err)
	}
	return strings.TrimSpace(text), nil
}

// numericStats renders one line of summary statistics per numeric column.
func numericStats(f *dataset.Frame) string {
	var sb strings.Builder
	for _, desc := range f.Describe().Columns {
		if desc.Kind != "numeric" {
			continue
		}
		s := f.Col(desc.Name)
		fmt.Fprintf(&sb, "%s: mean=%.4g min=%.4g max=%.4g std=%.4g\n",
			desc.Name, s.Mean(), s.Min(), s.Max(), s.Std())
	}
	return sb.String()
}
