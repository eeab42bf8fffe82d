// Package ipo fetches the current IPO pipeline from the companion backend,
// with a built-in static fallback when the backend is unreachable.
package ipo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// IPO is one issue in the pipeline.
type IPO struct {
	ID          string `json:"id"`
	Company     string `json:"company"`
	Type        string `json:"type"`
	Units       string `json:"units"`
	Price       string `json:"price"`
	Status      string `json:"status"` // Open, Upcoming, Closed
	OpeningDate string `json:"openingDate"`
	ClosingDate string `json:"closingDate"`
}

// Client talks to the listing backend.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *zap.Logger
}

// NewClient returns a listing client. An empty baseURL serves the fallback
// list only.
func NewClient(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

type listResponse struct {
	Success bool  `json:"success"`
	Data    []IPO `json:"data"`
}

// List returns the IPO pipeline. Backend failures degrade to the static
// fallback rather than erroring: the listing is advisory.
func (c *Client) List(ctx context.Context) []IPO {
	if c.baseURL == "" {
		return fallbackIPOs
	}

	ipos, err := c.fetch(ctx)
	if err != nil {
		c.logger.Warn("listing backend unavailable, using fallback data", zap.Error(err))
		return fallbackIPOs
	}
	return ipos
}

func (c *Client) fetch(ctx context.Context) ([]IPO, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/ipos", nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("backend returned %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}

	var out listResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		// The backend fronts an HTML error page when it is down.
		return nil, fmt.Errorf("response is not JSON: %w", err)
	}
	if !out.Success || out.Data == nil {
		return nil, fmt.Errorf("backend reported failure")
	}
	return out.Data, nil
}

// fallbackIPOs mirrors a recent snapshot of the pipeline so the listing
// keeps working offline.
var fallbackIPOs = []IPO{
	{
		ID: "1", Company: "Reliance Spinning Mills Ltd.", Type: "IPO (Book Building)",
		Units: "10,14,000", Price: "Rs. 820.80", Status: "Open",
		OpeningDate: "2024-11-28", ClosingDate: "2024-12-05",
	},
	{
		ID: "2", Company: "Nepal Infrastructure Bank Limited", Type: "IPO",
		Units: "1,50,00,000", Price: "Rs. 100", Status: "Open",
		OpeningDate: "2024-11-25", ClosingDate: "2024-12-02",
	},
	{
		ID: "3", Company: "Sunrise Bluechip Fund", Type: "Mutual Fund",
		Units: "50,00,000", Price: "Rs. 10", Status: "Open",
		OpeningDate: "2024-11-30", ClosingDate: "2024-12-10",
	},
	{
		ID: "4", Company: "Sarbottam Cement Limited", Type: "IPO (Book Building)",
		Units: "24,00,000", Price: "Rs. 360.90", Status: "Upcoming",
		OpeningDate: "2024-12-15", ClosingDate: "2024-12-20",
	},
	{
		ID: "5", Company: "Himalayan Power Partner Ltd.", Type: "FPO",
		Units: "80,00,000", Price: "Rs. 250", Status: "Upcoming",
		OpeningDate: "2024-12-08", ClosingDate: "2024-12-12",
	},
	{
		ID: "6", Company: "Himalayan Reinsurance Limited", Type: "IPO",
		Units: "2,49,00,000", Price: "Rs. 206", Status: "Closed",
		OpeningDate: "2023-12-13", ClosingDate: "2023-12-17",
	},
}
