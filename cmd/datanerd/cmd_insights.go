package main

import (
	"fmt"

	"datanerd/internal/insights"

	"github.com/spf13/cobra"
)

var insightsDataPath string

// insightsCmd summarizes a dataset without a specific question
var insightsCmd = &cobra.Command{
	Use:   "insights",
	Short: "Generate an executive summary of a CSV file",
	Long: `Profiles the dataset and asks the model for a short executive summary:
what the data covers, notable patterns, and questions worth asking next.`,
	RunE: runInsights,
}

func runInsights(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	p, err := buildPipeline(ctx)
	if err != nil {
		return err
	}
	defer p.close()

	s, err := openDataset(p, insightsDataPath)
	if err != nil {
		return err
	}

	desc := s.Descriptor()
	fmt.Printf("Dataset: %d rows, %d columns\n", desc.RowCount, len(desc.Columns))
	for _, c := range desc.Columns {
		fmt.Printf("  %-20s %-12s %d nulls\n", c.Name, c.Kind, c.NullCount)
	}

	summary, err := p.generator.ExecutiveSummary(ctx, s)
	if err != nil {
		return err
	}
	fmt.Printf("\n%s\n", summary)

	printChart(insights.SuggestChart(s.Frame()))
	return nil
}

func init() {
	insightsCmd.Flags().StringVar(&insightsDataPath, "data", "", "CSV file to analyze (required)")
	_ = insightsCmd.MarkFlagRequired("data")
	rootCmd.AddCommand(insightsCmd)
}
