package llm

import (
	"context"
	"fmt"
	"time"

	"datanerd/internal/logging"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

const (
	// DefaultModel balances code quality against latency for snippet-sized
	// completions.
	DefaultModel = "gemini-2.0-flash"

	// codeTemperature keeps generation close to deterministic so the same
	// question yields structurally similar code across turns.
	codeTemperature float32 = 0.2

	maxOutputTokens int32 = 2048
)

// Gemini is the production Client backed by Google's Gemini API.
type Gemini struct {
	client *genai.Client
	model  string
	log    *zap.Logger
}

// NewGemini builds a Gemini client. The API key comes from configuration or
// the GEMINI_API_KEY environment variable upstream; an empty key is an error
// here so misconfiguration fails at startup, not mid-turn.
func NewGemini(ctx context.Context, apiKey, model string) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	if model == "" {
		model = DefaultModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	return &Gemini{
		client: client,
		model:  model,
		log:    logging.Get(logging.CategoryLLM),
	}, nil
}

// Complete sends a bare prompt.
func (g *Gemini) Complete(ctx context.Context, prompt string) (string, error) {
	return g.generate(ctx, nil, prompt)
}

// CompleteWithSystem sends a prompt under a system instruction.
func (g *Gemini) CompleteWithSystem(ctx context.Context, system, prompt string) (string, error) {
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
	}
	return g.generate(ctx, cfg, prompt)
}

func (g *Gemini) generate(ctx context.Context, cfg *genai.GenerateContentConfig, prompt string) (string, error) {
	if cfg == nil {
		cfg = &genai.GenerateContentConfig{}
	}
	cfg.Temperature = genai.Ptr(codeTemperature)
	cfg.MaxOutputTokens = maxOutputTokens

	start := time.Now()
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), cfg)
	if err != nil {
		return "", fmt.Errorf("gemini completion: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("gemini returned an empty completion")
	}

	g.log.Debug("completion succeeded",
		zap.String("model", g.model),
		zap.Duration("elapsed", time.Since(start)),
		zap.Int("prompt_chars", len(prompt)),
		zap.Int("response_chars", len(text)))
	return text, nil
}
