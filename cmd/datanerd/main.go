// Package main implements the datanerd CLI: load a CSV, ask questions in
// plain language, get computed answers back.
package main

import (
	"context"
	"fmt"
	"os"

	"datanerd/internal/analyst"
	"datanerd/internal/config"
	"datanerd/internal/insights"
	"datanerd/internal/llm"
	"datanerd/internal/logging"
	"datanerd/internal/prompt"
	"datanerd/internal/sandbox"
	"datanerd/internal/session"
	"datanerd/internal/store"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	configPath string
	debug      bool

	cfg *config.Config
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "datanerd",
	Short: "datanerd - conversational analysis over CSV data",
	Long: `datanerd answers plain-language questions about a CSV file.

Each question is turned into a small analysis snippet by a language model,
statically checked against an allowlist policy, and executed in a sandbox
against the loaded dataset. You get the computed answer, never a guess.

Set GEMINI_API_KEY (or api_key in the config file) before use.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		return logging.Initialize(debug || cfg.Debug)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath, "config file path")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "verbose logging")
}

// pipeline bundles everything a command needs for one invocation.
type pipeline struct {
	manager   *session.Manager
	analyst   *analyst.Analyst
	generator *insights.Generator
	archive   *store.Store
}

func (p *pipeline) close() {
	if p.archive != nil {
		_ = p.archive.Close()
	}
}

func buildPipeline(ctx context.Context) (*pipeline, error) {
	gemini, err := llm.NewGemini(ctx, cfg.APIKey, cfg.Model)
	if err != nil {
		return nil, err
	}
	client := llm.WithRetry(gemini, cfg.LLMAttempts)

	prompts, err := prompt.NewBuilder()
	if err != nil {
		return nil, err
	}

	var archive *store.Store
	if cfg.HistoryDB != "" {
		if archive, err = store.Open(cfg.HistoryDB); err != nil {
			return nil, err
		}
	}

	manager := session.NewManager(cfg.MaxConcurrent)
	a := analyst.New(analyst.Options{
		Manager: manager,
		Client:  client,
		Prompts: prompts,
		Runner: sandbox.NewExecutor(sandbox.Options{
			Timeout:    cfg.Timeout(),
			CellBudget: cfg.CellBudget,
		}),
		Archive: archive,
	})

	return &pipeline{
		manager:   manager,
		analyst:   a,
		generator: insights.NewGenerator(client, prompts),
		archive:   archive,
	}, nil
}

func openDataset(p *pipeline, path string) (*session.Session, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read dataset: %w", err)
	}
	return p.manager.Open(data)
}
