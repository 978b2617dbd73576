package summarizer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	pkgjson "github.com/xilidan/vidscribe/pkg/json"
	"github.com/xilidan/vidscribe/pkg/retry"
)

type CohereOptions struct {
	APIKey         string
	BaseURL        string
	Model          string
	Length         string
	Format         string
	Extractiveness string
	Timeout        time.Duration
	Retry          retry.Policy
}

type cohereRequest struct {
	Text           string `json:"text"`
	Length         string `json:"length"`
	Format         string `json:"format"`
	Extractiveness string `json:"extractiveness"`
	Model          string `json:"model"`
}

type cohereResponse struct {
	ID      string `json:"id"`
	Summary string `json:"summary"`
	Message string `json:"message,omitempty"`
}

type Cohere struct {
	opts       CohereOptions
	httpClient *http.Client
	log        *slog.Logger
}

func NewCohere(opts CohereOptions, httpClient *http.Client, log *slog.Logger) *Cohere {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")

	log.Debug("creating cohere summarizer",
		slog.String("base_url", opts.BaseURL),
		slog.String("model", opts.Model),
		slog.Bool("api_key_set", opts.APIKey != ""))

	return &Cohere{
		opts:       opts,
		httpClient: httpClient,
		log:        log,
	}
}

func (c *Cohere) Summarize(ctx context.Context, transcript string) (string, error) {
	body, err := json.Marshal(cohereRequest{
		Text:           prompt(transcript),
		Length:         c.opts.Length,
		Format:         c.opts.Format,
		Extractiveness: c.opts.Extractiveness,
		Model:          c.opts.Model,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	var out cohereResponse
	err = retry.Do(ctx, c.opts.Retry, func() error {
		return c.post(ctx, body, &out)
	}, func(err error, next time.Duration) {
		c.log.Warn("summarize request failed, retrying",
			slog.String("error", err.Error()),
			slog.Duration("next", next))
	})
	if err != nil {
		return "", fmt.Errorf("failed to summarize transcript: %w", err)
	}

	c.log.Debug("summary received", slog.String("id", out.ID), slog.Int("length", len(out.Summary)))
	return clean(out.Summary)
}

func (c *Cohere) post(ctx context.Context, body []byte, out *cohereResponse) error {
	if c.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.opts.BaseURL+"/v1/summarize", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.opts.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	return pkgjson.DecodeResponse(resp, out)
}
