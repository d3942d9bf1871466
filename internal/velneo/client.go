// Package velneo is the HTTP client of the Velneo backend: master data, directory lookups and
// policy submission.
package velneo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/avast/retry-go/v4"

	"github.com/joseph-ayodele/policy-intake/internal/common"
	"github.com/joseph-ayodele/policy-intake/internal/utils"
	"github.com/joseph-ayodele/policy-intake/internal/vocabulary"
)

type Config struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	Attempts   uint
	RetryDelay time.Duration
}

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
		cfg.Timeout = 20 * time.Second
	}
	if cfg.Attempts == 0 {
		cfg.Attempts = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 500 * time.Millisecond
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{cfg: cfg, http: httpClient, logger: logger}
}

func (c *Client) endpoint(query url.Values, elem ...string) (string, error) {
	u, err := url.JoinPath(c.cfg.BaseURL, elem...)
	if err != nil {
		return "", fmt.Errorf("velneo url: %w", err)
	}
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u, nil
}

// call runs one request with up to attempts tries and decodes the answer into out. 404 maps to
// common.ErrNotFound; exhausted retries map to common.ErrUnavailable.
func (c *Client) call(ctx context.Context, op, method, endpoint string, attempts uint, body any, out any) error {
	start := time.Now()
	var raw []byte
	err := retry.Do(
		func() error {
			b, err := utils.SendJSON(ctx, c.http, method, endpoint, body, map[string]string{"X-API-Key": c.cfg.APIKey}, "velneo.http", c.logger)
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
		retry.Attempts(attempts),
		retry.Delay(c.cfg.RetryDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			c.logger.Warn("velneo.retry", "op", op, "attempt", n+1, "error", err)
		}),
	)
	if err != nil {
		c.logger.Error("velneo.failed", "op", op, "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		var se *utils.StatusError
		switch {
		case ctx.Err() != nil:
			return fmt.Errorf("velneo %s: %w", op, ctx.Err())
		case errors.As(err, &se) && se.Status == http.StatusNotFound:
			return fmt.Errorf("velneo %s: %w", op, common.ErrNotFound)
		case errors.As(err, &se) && !se.Retryable():
			return fmt.Errorf("velneo %s: status %d: %s", op, se.Status, truncate(se.Body, 200))
		}
		return common.NewAppError("VELNEO_UNAVAILABLE", op, errors.Join(common.ErrUnavailable, err))
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("velneo %s: decode response: %w", op, err)
	}
	c.logger.Debug("velneo.ok", "op", op, "elapsed_ms", time.Since(start).Milliseconds())
	return nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}

// FetchMasterData downloads the master-data vocabulary. It satisfies vocabulary.Source.
func (c *Client) FetchMasterData(ctx context.Context) (vocabulary.MasterData, error) {
	endpoint, err := c.endpoint(nil, "maestros")
	if err != nil {
		return vocabulary.MasterData{}, err
	}
	var md vocabulary.MasterData
	if err := c.call(ctx, "master_data", http.MethodGet, endpoint, c.cfg.Attempts, nil, &md); err != nil {
		return vocabulary.MasterData{}, err
	}
	return md, nil
}

var _ vocabulary.Source = (*Client)(nil)
