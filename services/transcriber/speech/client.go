package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	pkgjson "github.com/xilidan/vidscribe/pkg/json"
	"github.com/xilidan/vidscribe/pkg/retry"
	"github.com/xilidan/vidscribe/services/transcriber/consts"
)

var (
	ErrInvalidURI   = errors.New("audio uri must use the gs:// scheme")
	ErrSubmitFailed = errors.New("failed to start recognition operation")
)

type Options struct {
	APIKey         string
	BaseURL        string
	Encoding       string
	SampleRate     int
	Language       string
	Punctuation    bool
	Model          string
	RequestTimeout time.Duration
	Retry          retry.Policy
}

type Client struct {
	opts       Options
	httpClient *http.Client
	log        *slog.Logger
}

func New(opts Options, httpClient *http.Client, log *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if opts.SampleRate == 0 {
		opts.SampleRate = consts.DefaultSampleRate
	}
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")

	log.Debug("creating speech client",
		slog.String("base_url", opts.BaseURL),
		slog.Bool("api_key_set", opts.APIKey != ""),
		slog.String("language", opts.Language),
		slog.String("model", opts.Model))

	return &Client{
		opts:       opts,
		httpClient: httpClient,
		log:        log,
	}
}

// Submit starts a long-running recognition of the object at uri and returns
// the operation name. It is never retried.
func (c *Client) Submit(ctx context.Context, uri string) (string, error) {
	if !strings.HasPrefix(uri, consts.CanonicalURIScheme) {
		return "", fmt.Errorf("%w: %q", ErrInvalidURI, uri)
	}

	body, err := json.Marshal(LongRunningRecognizeRequest{
		Config: RecognitionConfig{
			Encoding:                   c.opts.Encoding,
			SampleRateHertz:            c.opts.SampleRate,
			LanguageCode:               c.opts.Language,
			EnableAutomaticPunctuation: c.opts.Punctuation,
			Model:                      c.opts.Model,
		},
		Audio: RecognitionAudio{URI: uri},
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("/v1/speech:longrunningrecognize"), bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	c.log.Info("submitting recognition", slog.String("uri", uri))
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrSubmitFailed, err)
	}

	var op Operation
	if err := pkgjson.DecodeResponse(resp, &op); err != nil {
		return "", fmt.Errorf("%w: %w", ErrSubmitFailed, err)
	}
	if op.Error != nil {
		return "", fmt.Errorf("%w: %s", ErrSubmitFailed, op.Error)
	}
	if op.Name == "" {
		return "", fmt.Errorf("%w: response carries no operation name", ErrSubmitFailed)
	}

	c.log.Info("recognition started", slog.String("operation", op.Name))
	return op.Name, nil
}

// Operation fetches the current state of the named operation. Transient
// transport failures are retried according to the retry policy.
func (c *Client) Operation(ctx context.Context, name string) (*Operation, error) {
	var op *Operation
	err := retry.Do(ctx, c.opts.Retry, func() error {
		var err error
		op, err = c.getOperation(ctx, name)
		return err
	}, func(err error, next time.Duration) {
		c.log.Warn("operation status check failed, retrying",
			slog.String("operation", name),
			slog.String("error", err.Error()),
			slog.Duration("next", next))
	})
	if err != nil {
		return nil, err
	}
	return op, nil
}

func (c *Client) getOperation(ctx context.Context, name string) (*Operation, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint("/v1/operations/"+url.PathEscape(name)), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to check operation status: %w", err)
	}

	var op Operation
	if err := pkgjson.DecodeResponse(resp, &op); err != nil {
		return nil, fmt.Errorf("failed to check operation status: %w", err)
	}
	return &op, nil
}

func (c *Client) endpoint(path string) string {
	q := url.Values{}
	q.Set("key", c.opts.APIKey)
	return c.opts.BaseURL + path + "?" + q.Encode()
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.opts.RequestTimeout > 0 {
		return context.WithTimeout(ctx, c.opts.RequestTimeout)
	}
	return context.WithCancel(ctx)
}
