package summarizer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/genai"
)

type GeminiOptions struct {
	APIKey  string
	Model   string
	Timeout time.Duration
}

type generateFunc func(ctx context.Context, model string, contents []*genai.Content) (*genai.GenerateContentResponse, error)

type Gemini struct {
	model    string
	timeout  time.Duration
	generate generateFunc
	log      *slog.Logger
}

func NewGemini(ctx context.Context, opts GeminiOptions, log *slog.Logger) (*Gemini, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  opts.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	log.Debug("creating gemini summarizer", slog.String("model", opts.Model))

	return &Gemini{
		model:   opts.Model,
		timeout: opts.Timeout,
		generate: func(ctx context.Context, model string, contents []*genai.Content) (*genai.GenerateContentResponse, error) {
			return client.Models.GenerateContent(ctx, model, contents, nil)
		},
		log: log,
	}, nil
}

func (g *Gemini) Summarize(ctx context.Context, transcript string) (string, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	result, err := g.generate(ctx, g.model, genai.Text(prompt(transcript)))
	if err != nil {
		return "", fmt.Errorf("failed to generate summary: %w", err)
	}
	if result == nil || len(result.Candidates) == 0 || result.Candidates[0].Content == nil {
		return "", errors.New("empty response from gemini")
	}

	var text strings.Builder
	for _, part := range result.Candidates[0].Content.Parts {
		if part.Text != "" {
			text.WriteString(part.Text)
		}
	}

	g.log.Debug("summary generated", slog.String("model", g.model), slog.Int("length", text.Len()))
	return clean(text.String())
}
