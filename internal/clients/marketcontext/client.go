// Package marketcontext provides client functionality for the external
// market-context API: daily technical indicators and daily close prices
// used to enrich a symbol timeline. Authentication is a username/password
// login exchanged for a bearer token attached to every data request.
package marketcontext

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// placeholderToken is the unconfigured sentinel some deployments ship in
// their env files. Treated the same as no token at all.
const placeholderToken = "YOUR_JWT_TOKEN_HERE"

// ErrNoToken means no usable bearer token is held. Data requests fail
// fast with this error before any network I/O.
var ErrNoToken = errors.New("market context API token missing or not configured")

// Client for the market-context API. Safe for concurrent use.
// Requests are never retried; a failed fetch is surfaced to the caller
// and does not affect the imported trade set.
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        zerolog.Logger

	mu    sync.RWMutex
	token string
}

// NewClient creates a new market-context client.
func NewClient(baseURL string, log zerolog.Logger) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		log:        log.With().Str("client", "marketcontext").Logger(),
	}
}

// SetToken installs a bearer token obtained out of band.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

// HasToken reports whether a usable token is held.
func (c *Client) HasToken() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token != "" && c.token != placeholderToken
}

// Login exchanges credentials for a bearer token and stores it on the
// client for subsequent requests.
func (c *Client) Login(ctx context.Context, username, password string) error {
	if c.baseURL == "" {
		return fmt.Errorf("market context API base URL not configured")
	}

	payload, err := json.Marshal(map[string]string{
		"username": username,
		"password": password,
	})
	if err != nil {
		return fmt.Errorf("failed to encode login request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/login", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("login request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("login failed with status %d", resp.StatusCode)
	}

	var body struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fmt.Errorf("failed to decode login response: %w", err)
	}
	if body.Token == "" {
		return fmt.Errorf("login response carried no token")
	}

	c.SetToken(body.Token)
	c.log.Info().Msg("Market context login succeeded")
	return nil
}

// IndicatorPoint is one day of indicator values. Missing indicators are
// null in the upstream response and stay nil here.
type IndicatorPoint struct {
	Date  string   `json:"date"`
	EMA10 *float64 `json:"ema_10"`
	EMA20 *float64 `json:"ema_20"`
	SMA50 *float64 `json:"sma_50"`
}

// PricePoint is one day's closing price.
type PricePoint struct {
	Date  string  `json:"date"`
	Close float64 `json:"close_price"`
}

// GetIndicators fetches daily indicator values for a symbol over an
// inclusive date range.
func (c *Client) GetIndicators(ctx context.Context, symbol, start, end string) ([]IndicatorPoint, error) {
	var points []IndicatorPoint
	if err := c.get(ctx, "/indicators", symbol, start, end, &points); err != nil {
		return nil, err
	}
	return points, nil
}

// GetDailyPrices fetches daily closing prices for a symbol over an
// inclusive date range.
func (c *Client) GetDailyPrices(ctx context.Context, symbol, start, end string) ([]PricePoint, error) {
	var points []PricePoint
	if err := c.get(ctx, "/daily-prices", symbol, start, end, &points); err != nil {
		return nil, err
	}
	return points, nil
}

func (c *Client) get(ctx context.Context, path, symbol, start, end string, out interface{}) error {
	c.mu.RLock()
	token := c.token
	c.mu.RUnlock()

	if token == "" || token == placeholderToken {
		return ErrNoToken
	}

	query := url.Values{}
	query.Set("symbol", symbol)
	query.Set("start", start)
	query.Set("end", end)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+query.Encode(), nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("market context API returned status %d for %s", resp.StatusCode, path)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
