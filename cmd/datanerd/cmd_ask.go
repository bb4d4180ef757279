package main

import (
	"fmt"
	"strings"

	"datanerd/internal/insights"
	"datanerd/internal/result"
	"datanerd/internal/session"

	"github.com/spf13/cobra"
)

var (
	askDataPath string
	askBusiness bool
	askChart    bool
	askShowCode bool
)

// askCmd answers one question about a CSV file
var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a question about a CSV file",
	Long: `Asks one plain-language question about the dataset.

Examples:
  datanerd ask --data sales.csv "what is the average order value?"
  datanerd ask --data sales.csv --business "which region sells the most?"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	question := strings.Join(args, " ")

	p, err := buildPipeline(ctx)
	if err != nil {
		return err
	}
	defer p.close()

	s, err := openDataset(p, askDataPath)
	if err != nil {
		return err
	}

	turn := p.analyst.Ask(ctx, s, question)
	if askShowCode && turn.Code != "" {
		fmt.Println("Generated code:")
		fmt.Println(indent(turn.Code))
		fmt.Println()
	}

	printResult(turn)
	if !turn.Result.OK() {
		return fmt.Errorf("turn failed (%s)", turn.Result.Code)
	}

	if askBusiness {
		answer, err := p.generator.BusinessAnswer(ctx, question, turn.Result)
		if err != nil {
			return err
		}
		fmt.Printf("\n%s\n", answer)
	}
	if askChart {
		printChart(insights.SuggestChart(s.Frame()))
	}
	return nil
}

func printResult(turn session.Turn) {
	switch turn.Result.Kind {
	case result.KindScalar:
		fmt.Println(turn.Result.Scalar)
	case result.KindTable:
		printTable(turn.Result.Table)
	default:
		fmt.Printf("The question could not be answered: %s\n", turn.Result.Message)
		for _, reason := range turn.Result.Reasons {
			fmt.Printf("  - %s\n", reason)
		}
	}
}

func printTable(t *result.Table) {
	widths := make([]int, len(t.Columns))
	for i, c := range t.Columns {
		widths[i] = len(c)
	}
	for _, row := range t.Rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	line := func(cells []string) string {
		parts := make([]string, len(cells))
		for i, c := range cells {
			parts[i] = fmt.Sprintf("%-*s", widths[i], c)
		}
		return strings.TrimRight(strings.Join(parts, "  "), " ")
	}

	fmt.Println(line(t.Columns))
	fmt.Println(strings.Repeat("─", len(line(t.Columns))))
	for _, row := range t.Rows {
		fmt.Println(line(row))
	}
	if t.Truncated {
		fmt.Println("(truncated)")
	}
}

func printChart(c insights.Chart) {
	switch c.Kind {
	case insights.ChartNone:
		fmt.Println("\nNo obvious chart for this dataset.")
	case insights.ChartHistogram:
		fmt.Printf("\nSuggested chart: histogram of %s\n", c.X)
	default:
		fmt.Printf("\nSuggested chart: %s of %s by %s\n", c.Kind, c.Y, c.X)
	}
}

func indent(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	for i, l := range lines {
		lines[i] = "  " + l
	}
	return strings.Join(lines, "\n")
}

func init() {
	askCmd.Flags().StringVar(&askDataPath, "data", "", "CSV file to analyze (required)")
	askCmd.Flags().BoolVar(&askBusiness, "business", false, "add a business-language answer")
	askCmd.Flags().BoolVar(&askChart, "chart", false, "suggest a chart for the dataset")
	askCmd.Flags().BoolVar(&askShowCode, "show-code", false, "print the generated snippet")
	_ = askCmd.MarkFlagRequired("data")
	rootCmd.AddCommand(askCmd)
}
