// Package mistral implements the provider contracts against the Mistral REST
// API: /v1/ocr for text extraction and /v1/chat/completions for cleanup.
package mistral

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/novaocr/novaocr/internal/common"
	"github.com/novaocr/novaocr/internal/provider"
)

// Config for the Mistral client.
type Config struct {
	APIKey   string        // if empty, falls back to env MISTRAL_API_KEY
	BaseURL  string        // default https://api.mistral.ai/v1
	OCRModel string        // e.g. "mistral-ocr-latest"
	LLMModel string        // e.g. "mistral-large-latest"
	Timeout  time.Duration // http client timeout
}

type Client struct {
	cfg    Config
	http   *http.Client
	logger *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("MISTRAL_API_KEY")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.mistral.ai/v1"
	}
	if cfg.OCRModel == "" {
		cfg.OCRModel = "mistral-ocr-latest"
	}
	if cfg.LLMModel == "" {
		cfg.LLMModel = "mistral-large-latest"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

// postJSON sends a JSON request and returns the raw response body. Failures
// come back as classified *provider.ServiceError values.
func (c *Client) postJSON(ctx context.Context, op, url string, body any) ([]byte, error) {
	reqID := uuid.New().String()
	start := time.Now()

	bs, err := json.Marshal(body)
	if err != nil {
		return nil, provider.NewServiceError(provider.KindMalformed, op, 0, fmt.Errorf("encode json: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bs))
	if err != nil {
		return nil, provider.NewServiceError(provider.KindMalformed, op, 0, fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	c.logger.Debug("mistral.http.request",
		"run_id", common.RunIDFromContext(ctx),
		"req_id", reqID,
		"op", op,
		"url", url,
		"content_length", len(bs),
	)

	resp, err := c.http.Do(req)
	if err != nil {
		kind := provider.KindUnknown
		if isTimeout(err) {
			kind = provider.KindTimeout
		}
		c.logger.Error("mistral.http.send_error",
			"req_id", reqID, "op", op, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return nil, provider.NewServiceError(kind, op, 0, err)
	}
	defer func(body io.ReadCloser) {
		if cerr := body.Close(); cerr != nil {
			c.logger.Warn("mistral.http.response_body_close_error", "req_id", reqID, "error", cerr)
		}
	}(resp.Body)

	raw, _ := io.ReadAll(resp.Body)

	c.logger.Info("mistral.http.response",
		"req_id", reqID,
		"op", op,
		"status", resp.StatusCode,
		"bytes", len(raw),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode/100 != 2 {
		kind := provider.KindForStatus(resp.StatusCode)
		return nil, provider.NewServiceError(kind, op, resp.StatusCode,
			fmt.Errorf("non-2xx status: %d: %s", resp.StatusCode, truncate(string(raw), 512)))
	}
	return raw, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "...(truncated)"
}
