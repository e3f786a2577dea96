// Package cli is the HTTP client behind the qb operator tool.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"quickbuck/internal/engine"
)

type Client struct {
	BaseURL    string
	AdminToken string
	HTTP       *http.Client
}

func NewClient(baseURL, adminToken string) *Client {
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		AdminToken: adminToken,
		HTTP: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// TriggerTick runs a full cycle synchronously. A 409 from the API means
// another runner holds the tick lock.
func (c *Client) TriggerTick(ctx context.Context) (engine.TickResult, error) {
	var out engine.TickResult
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/admin/tick", c.AdminToken, &out)
	return out, err
}

func (c *Client) LatestTick(ctx context.Context) (engine.TickRecord, error) {
	var out engine.TickRecord
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/ticks/latest", "", &out)
	return out, err
}

func (c *Client) Stocks(ctx context.Context) ([]engine.Instrument, error) {
	var out struct {
		Stocks []engine.Instrument `json:"stocks"`
	}
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/stocks", "", &out)
	return out.Stocks, err
}

func (c *Client) Cryptos(ctx context.Context) ([]engine.Instrument, error) {
	var out struct {
		Cryptos []engine.Instrument `json:"cryptos"`
	}
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/cryptos", "", &out)
	return out.Cryptos, err
}

func (c *Client) StockDetail(ctx context.Context, symbol string) (engine.Instrument, error) {
	var out engine.Instrument
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/stocks/"+url.PathEscape(symbol), "", &out)
	return out, err
}

func (c *Client) Candles(ctx context.Context, symbol string, limit int) ([]engine.Candle, error) {
	var out struct {
		Candles []engine.Candle `json:"candles"`
	}
	path := fmt.Sprintf("/v1/stocks/%s/candles?limit=%d", url.PathEscape(symbol), limit)
	err := c.jsonRequest(ctx, http.MethodGet, path, "", &out)
	return out.Candles, err
}

func (c *Client) Quote(ctx context.Context, symbol, side string, shares int64) (engine.Quote, error) {
	var out engine.Quote
	path := fmt.Sprintf("/v1/stocks/%s/quote?side=%s&shares=%d", url.PathEscape(symbol), url.QueryEscape(side), shares)
	err := c.jsonRequest(ctx, http.MethodGet, path, "", &out)
	return out, err
}

func (c *Client) jsonRequest(ctx context.Context, method, path, token string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("api status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
