package priceapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"brent-dashboard-api/internal/dashboard"
	"brent-dashboard-api/internal/models"
)

// Upstream resource paths.
const (
	DataPath     = "/api/data"
	AnalysisPath = "/api/analysis"
)

// Client reads the price series, events and change-point analysis from
// the analysis service.
type Client struct {
	baseURL    string
	httpClient *http.Client
	validate   *validator.Validate
	logger     zerolog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		validate: NewValidator(),
		logger:   zerolog.Nop(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// FetchData fetches GET /api/data.
func (c *Client) FetchData(ctx context.Context) (*models.DataPayload, error) {
	var payload wireDataPayload
	if err := c.getJSON(ctx, DataPath, &payload); err != nil {
		return nil, err
	}
	return payload.toModel(), nil
}

// FetchAnalysis fetches GET /api/analysis.
func (c *Client) FetchAnalysis(ctx context.Context) (*models.ChangePointAnalysis, error) {
	var analysis wireAnalysis
	if err := c.getJSON(ctx, AnalysisPath, &analysis); err != nil {
		return nil, err
	}
	return analysis.toModel(), nil
}

// getJSON fetches path, decodes it into out and validates the result.
// Transport and status failures are network errors; decode and schema
// failures are malformed payload errors.
func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return dashboard.NewNetworkError(path, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logCall(path, start, err)
		return dashboard.NewNetworkError(path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.logCall(path, start, err)
		return dashboard.NewNetworkError(path, err)
	}

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("upstream returned %d: %s", resp.StatusCode, truncate(string(body), 200))
		c.logCall(path, start, err)
		return dashboard.NewNetworkError(path, err)
	}

	if err := json.Unmarshal(body, out); err != nil {
		c.logCall(path, start, err)
		return dashboard.NewMalformedPayloadError(path, err)
	}

	if err := c.validate.Struct(out); err != nil {
		c.logCall(path, start, err)
		return dashboard.NewMalformedPayloadError(path, err)
	}

	c.logCall(path, start, nil)
	return nil
}

func (c *Client) logCall(path string, start time.Time, err error) {
	event := c.logger.Debug().
		Str("event", "api_call").
		Str("method", http.MethodGet).
		Str("endpoint", path).
		Dur("duration", time.Since(start))

	if err != nil {
		event.Err(err).Msg("API call failed")
	} else {
		event.Msg("API call completed")
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
