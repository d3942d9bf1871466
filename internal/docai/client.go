package docai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/avast/retry-go/v4"

	"github.com/joseph-ayodele/policy-intake/internal/utils"
)

// Config configures the HTTP client of the document-AI service.
type Config struct {
	Endpoint          string
	APIKey            string
	Timeout           time.Duration
	Attempts          uint
	RetryDelay        time.Duration
	DefaultConfidence float64
}

// Client posts PDFs to the document-AI service.
type Client struct {
	cfg    Config
	http   *http.Client
	logger *slog.Logger
}

func NewClient(cfg Config, httpClient *http.Client, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 90 * time.Second
	}
	if cfg.Attempts == 0 {
		cfg.Attempts = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 500 * time.Millisecond
	}
	if cfg.DefaultConfidence <= 0 {
		cfg.DefaultConfidence = DefaultConfidence
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{cfg: cfg, http: httpClient, logger: logger}
}

// Process uploads doc and normalizes the answer. Transport failures and 5xx answers are
// retried; a cancelled ctx stops immediately.
func (c *Client) Process(ctx context.Context, doc Document) (Result, error) {
	endpoint, err := url.JoinPath(c.cfg.Endpoint, "process")
	if err != nil {
		return Result{}, fmt.Errorf("docai endpoint: %w", err)
	}
	endpoint += "?filename=" + url.QueryEscape(doc.Filename)

	start := time.Now()
	var raw []byte
	err = retry.Do(
		func() error {
			b, err := utils.Send(ctx, c.http, utils.Request{
				Method:      http.MethodPost,
				URL:         endpoint,
				Body:        doc.Content,
				ContentType: "application/pdf",
				Headers:     map[string]string{"X-API-Key": c.cfg.APIKey},
			}, "docai.http", c.logger)
			if err != nil {
				var se *utils.StatusError
				if errors.As(err, &se) && !se.Retryable() {
					return retry.Unrecoverable(err)
				}
				return err
			}
			raw = b
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(c.cfg.Attempts),
		retry.Delay(c.cfg.RetryDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			c.logger.Warn("docai.process.retry", "attempt", n+1, "file", doc.Filename, "error", err)
		}),
	)
	if err != nil {
		c.logger.Error("docai.process.failed", "file", doc.Filename, "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return Result{}, fmt.Errorf("docai process %s: %w", doc.Filename, err)
	}

	res, err := Normalize(raw, c.cfg.DefaultConfidence)
	if err != nil {
		c.logger.Error("docai.process.bad_payload", "file", doc.Filename, "error", err)
		return Result{}, err
	}
	c.logger.Info("docai.process.ok",
		"file", doc.Filename,
		"fields", len(res.Fields),
		"completeness", res.CompletenessPercent,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return res, nil
}
