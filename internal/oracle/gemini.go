package oracle

import (
	"context"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

// Config is read from the environment.
type Config struct {
	APIKey      string        `env:"GOOGLE_API_KEY"`
	Model       string        `env:"TALECRAFT_MODEL" envDefault:"gemini-2.0-flash"`
	Timeout     time.Duration `env:"TALECRAFT_ORACLE_TIMEOUT" envDefault:"30s"`
	MaxRetries  int           `env:"TALECRAFT_ORACLE_RETRIES" envDefault:"2"`
	Temperature float32       `env:"TALECRAFT_ORACLE_TEMPERATURE" envDefault:"0.2"`
}

func ConfigFromEnv() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parsing oracle config: %w", err)
	}
	return cfg, nil
}

// Gemini implements Oracle against the Gemini API in JSON mode.
type Gemini struct {
	client *genai.Client
	cfg    Config
	log    *zap.Logger
}

// NewGemini builds the client. An empty API key is ErrUnavailable so
// callers go straight to the fallback path.
func NewGemini(ctx context.Context, cfg Config, log *zap.Logger) (*Gemini, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("GOOGLE_API_KEY is not set: %w", ErrUnavailable)
	}
	if log == nil {
		log = zap.NewNop()
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w: %v", ErrUnavailable, err)
	}
	return &Gemini{client: client, cfg: cfg, log: log}, nil
}

var _ Oracle = (*Gemini)(nil)

func (g *Gemini) Extract(ctx context.Context, text, question, hint string) (*Extraction, error) {
	prompt := extractionPrompt(text, question, hint)
	raw, err := g.generateJSON(ctx, prompt)
	if err != nil {
		return nil, err
	}
	ext, err := parseExtraction(raw)
	if err != nil {
		return nil, err
	}
	g.log.Debug("oracle extraction",
		zap.Int("candidates", len(ext.Candidates)),
		zap.Float64("confidence", ext.Confidence))
	return ext, nil
}

func (g *Gemini) Relevance(ctx context.Context, answer, question string) (*Relevance, error) {
	prompt := relevancePrompt(answer, question)
	raw, err := g.generateJSON(ctx, prompt)
	if err != nil {
		return nil, err
	}
	rel, err := parseRelevance(raw)
	if err != nil {
		return nil, err
	}
	g.log.Debug("oracle relevance", zap.String("status", rel.Status))
	return rel, nil
}

func (g *Gemini) Questions(ctx context.Context, answer string, entities []string, hint string) ([]GeneratedQuestion, error) {
	prompt := questionsPrompt(answer, entities, hint)
	raw, err := g.generateJSON(ctx, prompt)
	if err != nil {
		return nil, err
	}
	qs, err := parseQuestions(raw)
	if err != nil {
		return nil, err
	}
	g.log.Debug("oracle questions", zap.Int("count", len(qs)))
	return qs, nil
}

// generateJSON runs one model call with limited retries on transport
// failure. Malformed output is not retried; the model already had its
// chance and the caller decides how to degrade.
func (g *Gemini) generateJSON(ctx context.Context, prompt string) (string, error) {
	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		Temperature:      genai.Ptr(g.cfg.Temperature),
	}

	var lastErr error
	for attempt := 0; attempt <= g.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", fmt.Errorf("%w: %v", ErrUnavailable, ctx.Err())
			case <-time.After(time.Duration(attempt) * time.Second):
			}
		}

		callCtx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
		resp, err := g.client.Models.GenerateContent(callCtx, g.cfg.Model, genai.Text(prompt), config)
		cancel()
		if err != nil {
			lastErr = err
			g.log.Warn("oracle call failed",
				zap.Int("attempt", attempt+1),
				zap.Error(err))
			continue
		}

		text := resp.Text()
		if text == "" {
			return "", fmt.Errorf("empty response: %w", ErrMalformedResponse)
		}
		return text, nil
	}
	return "", fmt.Errorf("%w: %v", ErrUnavailable, lastErr)
}
