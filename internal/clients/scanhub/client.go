// Package scanhub is the client for the upstream scan feed: a REST API
// serving raw screener results and candle history, plus a WebSocket stream
// of live stock quotes.
package scanhub

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/alevras/covercall/internal/domain"
	"github.com/alevras/covercall/internal/modules/screener"
)

// Client fetches scan results from the scanhub REST API
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
	log     zerolog.Logger
}

// NewClient creates a new scanhub client
func NewClient(baseURL, apiKey string, log zerolog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 30 * time.Second},
		log:     log.With().Str("client", "scanhub").Logger(),
	}
}

// FetchOpportunities returns the current raw scan results. The feed has
// returned several payload shapes over time; decoding is left tolerant and
// normalization happens downstream.
func (c *Client) FetchOpportunities(ctx context.Context) ([]screener.RawOpportunity, error) {
	var payload struct {
		Opportunities []screener.RawOpportunity `json:"opportunities"`
	}
	if err := c.getJSON(ctx, "/v1/opportunities", nil, &payload); err != nil {
		return nil, err
	}

	c.log.Debug().Int("count", len(payload.Opportunities)).Msg("Fetched scan results")
	return payload.Opportunities, nil
}

// FetchCandles returns recent daily candles for a symbol
func (c *Client) FetchCandles(ctx context.Context, symbol string, days int) ([]domain.Candle, error) {
	var payload struct {
		Candles []domain.Candle `json:"candles"`
	}
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("days", strconv.Itoa(days))

	if err := c.getJSON(ctx, "/v1/candles", params, &payload); err != nil {
		return nil, err
	}
	return payload.Candles, nil
}

func (c *Client) getJSON(ctx context.Context, path string, params url.Values, out any) error {
	endpoint := c.baseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("scanhub request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("scanhub returned status %d for %s", resp.StatusCode, path)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode scanhub response: %w", err)
	}
	return nil
}
