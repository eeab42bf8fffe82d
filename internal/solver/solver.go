// Package solver wraps the remote captcha-recognition service and the
// human-entry fallback used when automation is disabled, fails, or runs out
// of retries.
package solver

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// CaptchaLength is the number of characters the remote form expects.
const CaptchaLength = 5

// Recognition is the outcome of one automated solve. A failed recognition is
// a normal value, never an error: the orchestrator treats it as "needs retry
// or fallback".
type Recognition struct {
	Success bool
	Text    string
}

// Solver turns a captcha image into text, best effort.
type Solver interface {
	Solve(ctx context.Context, image []byte, mimeType string) Recognition
}

// Client calls the remote recognition service.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *zap.Logger
}

// NewClient returns a recognition client for the service at baseURL.
func NewClient(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

type solveResponse struct {
	Success     bool   `json:"success"`
	CaptchaText string `json:"captchaText"`
	Error       string `json:"error"`
}

// Solve posts the image to POST {base}/captcha/solve as multipart form data.
// Network failures, non-2xx responses, and malformed bodies all degrade to
// an unsuccessful recognition.
func (c *Client) Solve(ctx context.Context, image []byte, mimeType string) Recognition {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("image", "captcha.png")
	if err != nil {
		c.logger.Warn("building multipart payload failed", zap.Error(err))
		return Recognition{}
	}
	if _, err := part.Write(image); err != nil {
		c.logger.Warn("writing captcha image failed", zap.Error(err))
		return Recognition{}
	}
	if mimeType != "" {
		_ = mw.WriteField("mimeType", mimeType)
	}
	if err := mw.Close(); err != nil {
		return Recognition{}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/captcha/solve", &body)
	if err != nil {
		return Recognition{}
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("recognition request failed", zap.Error(err))
		return Recognition{}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Warn("recognition service returned non-2xx",
			zap.Int("status", resp.StatusCode))
		return Recognition{}
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return Recognition{}
	}

	var out solveResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		c.logger.Warn("recognition response malformed", zap.Error(err))
		return Recognition{}
	}
	if !out.Success {
		c.logger.Debug("recognition unsuccessful", zap.String("error", out.Error))
		return Recognition{}
	}
	return Recognition{Success: true, Text: out.CaptchaText}
}

// Disabled is a Solver that never recognizes anything, routing every attempt
// straight to the manual fallback.
type Disabled struct{}

// Solve always reports failure.
func (Disabled) Solve(context.Context, []byte, string) Recognition {
	return Recognition{}
}
