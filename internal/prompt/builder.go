// Package prompt assembles the prompts sent to the model. Static instruction
// text is an embedded YAML corpus; everything dynamic (schema, history,
// result previews) is rendered deterministically so identical inputs always
// produce byte-identical prompts.
package prompt

import (
	_ "embed"
	"fmt"
	"strings"

	"datanerd/internal/dataset"
	"datanerd/internal/result"
	"datanerd/internal/session"

	"gopkg.in/yaml.v3"
)

//go:embed templates.yaml
var corpusYAML []byte

// HistoryWindow caps how many prior turns travel in a code prompt.
const HistoryWindow = 4

// previewRows caps the result rows shown when asking for a business answer.
const previewRows = 20

type corpus struct {
	CodeSystem     string `yaml:"code_system"`
	InsightsSystem string `yaml:"insights_system"`
	BusinessSystem string `yaml:"business_system"`
}

// Builder renders prompts from the embedded corpus.
type Builder struct {
	c corpus
}

// NewBuilder parses the embedded corpus.
func NewBuilder() (*Builder, error) {
	var c corpus
	if err := yaml.Unmarshal(corpusYAML, &c); err != nil {
		return nil, fmt.Errorf("parse prompt corpus: %w", err)
	}
	if c.CodeSystem == "" || c.InsightsSystem == "" || c.BusinessSystem == "" {
		return nil, fmt.Errorf("prompt corpus is missing a template")
	}
	return &Builder{c: c}, nil
}

// CodeSystem returns the system instruction for code generation.
func (b *Builder) CodeSystem() string { return strings.TrimSpace(b.c.CodeSystem) }

// InsightsSystem returns the system instruction for executive summaries.
func (b *Builder) InsightsSystem() string { return strings.TrimSpace(b.c.InsightsSystem) }

// BusinessSystem returns the system instruction for business answers.
func (b *Builder) BusinessSystem() string { return strings.TrimSpace(b.c.BusinessSystem) }

// Code renders the user prompt for one question: dataset schema, up to
// HistoryWindow prior turns, then the question.
func (b *Builder) Code(desc dataset.Descriptor, history []session.Turn, question string) string {
	var sb strings.Builder
	writeSchema(&sb, desc)

	if len(history) > HistoryWindow {
		history = history[len(history)-HistoryWindow:]
	}
	if len(history) > 0 {
		sb.WriteString("\nEarlier in this conversation:\n")
		for _, t := range history {
			fmt.Fprintf(&sb, "Q: %s\n", t.Question)
			if t.Code != "" {
				fmt.Fprintf(&sb, "Code:\n%s\n", strings.TrimSpace(t.Code))
			}
			fmt.Fprintf(&sb, "Outcome: %s\n", outcome(t.Result))
		}
	}

	fmt.Fprintf(&sb, "\nQuestion: %s\n", question)
	return sb.String()
}

// Insights renders the user prompt for an executive summary of the dataset.
func (b *Builder) Insights(desc dataset.Descriptor, stats string) string {
	var sb strings.Builder
	writeSchema(&sb, desc)
	if stats != "" {
		sb.WriteString("\nSummary statistics:\n")
		sb.WriteString(stats)
		if !strings.HasSuffix(stats, "\n") {
			sb.WriteString("\n")
		}
	}
	sb.WriteString("\nWrite the executive summary.\n")
	return sb.String()
}

// BusinessAnswer renders the user prompt turning a computed result into
// prose. Tables are previewed to at most previewRows rows.
func (b *Builder) BusinessAnswer(question string, res *result.Result) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Question: %s\n\nComputed result:\n%s", question, renderResult(res))
	sb.WriteString("\nAnswer the question.\n")
	return sb.String()
}

func writeSchema(sb *strings.Builder, desc dataset.Descriptor) {
	fmt.Fprintf(sb, "Dataset: %d rows, %d columns\n", desc.RowCount, len(desc.Columns))
	for _, c := range desc.Columns {
		fmt.Fprintf(sb, "- %s (%s", c.Name, c.Kind)
		if c.NullCount > 0 {
			fmt.Fprintf(sb, ", %d nulls", c.NullCount)
		}
		sb.WriteString(")")
		if len(c.Samples) > 0 {
			fmt.Fprintf(sb, " e.g. %s", strings.Join(c.Samples, ", "))
		}
		sb.WriteString("\n")
	}
}

func outcome(res *result.Result) string {
	if res == nil {
		return "no result"
	}
	switch res.Kind {
	case result.KindScalar:
		return fmt.Sprintf("scalar %s", res.Scalar)
	case result.KindTable:
		return fmt.Sprintf("table with %d rows", len(res.Table.Rows))
	default:
		return fmt.Sprintf("error (%s): %s", res.Code, res.Message)
	}
}

func renderResult(res *result.Result) string {
	if res == nil {
		return "(none)\n"
	}
	switch res.Kind {
	case result.KindScalar:
		return res.Scalar + "\n"
	case result.KindTable:
		var sb strings.Builder
		sb.WriteString(strings.Join(res.Table.Columns, " | "))
		sb.WriteString("\n")
		rows := res.Table.Rows
		clipped := false
		if len(rows) > previewRows {
			rows = rows[:previewRows]
			clipped = true
		}
		for _, r := range rows {
			sb.WriteString(strings.Join(r, " | "))
			sb.WriteString("\n")
		}
		if clipped || res.Table.Truncated {
			sb.WriteString("(preview; more rows exist)\n")
		}
		return sb.String()
	default:
		return fmt.Sprintf("the computation failed (%s): %s\n", res.Code, res.Message)
	}
}
