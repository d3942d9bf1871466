package utils

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// StatusError is a non-2xx response.
type StatusError struct {
	Status int
	Body   []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("non-2xx status: %d", e.Status)
}

// Retryable reports whether repeating the request may succeed.
func (e *StatusError) Retryable() bool {
	return e.Status == http.StatusTooManyRequests || e.Status >= 500
}

// Request describes one HTTP exchange.
type Request struct {
	Method      string
	URL         string
	Body        []byte
	ContentType string
	Headers     map[string]string
}

// Send performs req and returns the raw response body. Non-2xx answers return the body and a
// *StatusError. The event prefix names the collaborator in log lines.
func Send(ctx context.Context, client *http.Client, req Request, event string, logger *slog.Logger) ([]byte, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if client == nil {
		client = &http.Client{Timeout: 45 * time.Second}
	}
	if req.Method == "" {
		req.Method = http.MethodGet
	}

	reqID := uuid.New().String()
	start := time.Now()

	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}
	hr, err := http.NewRequestWithContext(ctx, req.Method, req.URL, body)
	if err != nil {
		logger.Error(event+".build_request_error", "req_id", reqID, "error", err)
		return nil, fmt.Errorf("build request: %w", err)
	}
	if req.ContentType != "" {
		hr.Header.Set("Content-Type", req.ContentType)
	}
	hr.Header.Set("Accept", "application/json")
	hr.Header.Set("X-Request-ID", reqID)
	for k, v := range req.Headers {
		hr.Header.Set(k, v)
	}

	logger.Info(event+".request", "req_id", reqID, "method", req.Method, "url", req.URL, "content_length", len(req.Body))

	resp, err := client.Do(hr)
	if err != nil {
		logger.Error(event+".send_error", "req_id", reqID, "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return nil, err
	}
	defer func(Body io.ReadCloser) {
		if err := Body.Close(); err != nil {
			logger.Warn(event+".response_body_close_error", "req_id", reqID, "error", err)
		}
	}(resp.Body)

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	logger.Info(event+".response",
		"req_id", reqID,
		"status", resp.StatusCode,
		"bytes", len(raw),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode/100 != 2 {
		return raw, &StatusError{Status: resp.StatusCode, Body: raw}
	}
	return raw, nil
}

// SendJSON encodes body as JSON and sends it with Send.
func SendJSON(ctx context.Context, client *http.Client, method, url string, body any, headers map[string]string, event string, logger *slog.Logger) ([]byte, error) {
	var bs []byte
	if body != nil {
		var err error
		if bs, err = json.Marshal(body); err != nil {
			return nil, fmt.Errorf("encode json: %w", err)
		}
	}
	return Send(ctx, client, Request{
		Method:      method,
		URL:         url,
		Body:        bs,
		ContentType: "application/json",
		Headers:     headers,
	}, event, logger)
}
