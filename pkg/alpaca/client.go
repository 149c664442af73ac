// Package alpaca is a minimal client for the Alpaca trading and market data
// REST APIs. It covers the endpoints the pipeline needs: account snapshot,
// latest trade, market order submission, and historical daily bars.
//
// Usage example:
//
//	c := alpaca.NewClient(alpaca.Config{APIKey: "key", APISecret: "secret"})
//	acct, err := c.GetAccount(ctx)
//	if err != nil { log.Fatal(err) }
//	fmt.Println("cash:", acct.Cash)
package alpaca

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"stockbotv1/internal/model"
)

const (
	defaultBaseURL     = "https://paper-api.alpaca.markets"
	defaultDataBaseURL = "https://data.alpaca.markets"
	defaultTimeout     = 10 * time.Second
)

// Config configures the Alpaca client.
type Config struct {
	APIKey    string
	APISecret string

	BaseURL     string        // trading API, default paper endpoint
	DataBaseURL string        // market data API
	Timeout     time.Duration // per-request timeout, default 10s
}

// APIError is a non-2xx response from the Alpaca API.
type APIError struct {
	StatusCode int    `json:"-"`
	Code       int    `json:"code"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("alpaca: status %d: %s", e.StatusCode, e.Message)
}

// Temporary reports whether the failure is transient: rate limiting or a
// server-side error. Transient failures leave signals pending for retry.
func (e *APIError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// Client talks to the Alpaca REST APIs. It implements model.Broker and
// model.BarProvider.
type Client struct {
	apiKey    string
	apiSecret string

	baseURL     string
	dataBaseURL string
	httpClient  *http.Client
}

// NewClient creates a Client from the given Config.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.DataBaseURL == "" {
		cfg.DataBaseURL = defaultDataBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	return &Client{
		apiKey:      cfg.APIKey,
		apiSecret:   cfg.APISecret,
		baseURL:     cfg.BaseURL,
		dataBaseURL: cfg.DataBaseURL,
		httpClient:  &http.Client{Timeout: cfg.Timeout},
	}
}

// do performs one authenticated request and decodes the JSON response into out.
func (c *Client) do(ctx context.Context, method, rawURL string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("alpaca: marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
	if err != nil {
		return fmt.Errorf("alpaca: create request: %w", err)
	}
	req.Header.Set("APCA-API-KEY-ID", c.apiKey)
	req.Header.Set("APCA-API-SECRET-KEY", c.apiSecret)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("alpaca: %s %s: %w", method, rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if err := json.Unmarshal(data, apiErr); err != nil || apiErr.Message == "" {
			apiErr.Message = string(data)
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("alpaca: decode response: %w", err)
	}
	return nil
}

// GetAccount returns the current account snapshot. Alpaca serializes money
// amounts as strings; they are parsed into floats here.
func (c *Client) GetAccount(ctx context.Context) (model.Account, error) {
	var raw struct {
		Cash        string `json:"cash"`
		BuyingPower string `json:"buying_power"`
	}
	if err := c.do(ctx, http.MethodGet, c.baseURL+"/v2/account", nil, &raw); err != nil {
		return model.Account{}, err
	}

	cash, err := strconv.ParseFloat(raw.Cash, 64)
	if err != nil {
		return model.Account{}, fmt.Errorf("alpaca: parse cash %q: %w", raw.Cash, err)
	}
	bp, err := strconv.ParseFloat(raw.BuyingPower, 64)
	if err != nil {
		return model.Account{}, fmt.Errorf("alpaca: parse buying_power %q: %w", raw.BuyingPower, err)
	}
	return model.Account{Cash: cash, BuyingPower: bp}, nil
}

// GetLatestTrade returns the most recent trade for symbol.
func (c *Client) GetLatestTrade(ctx context.Context, symbol string) (model.Trade, error) {
	var raw struct {
		Trade struct {
			Price float64   `json:"p"`
			TS    time.Time `json:"t"`
		} `json:"trade"`
	}
	u := fmt.Sprintf("%s/v2/stocks/%s/trades/latest", c.dataBaseURL, url.PathEscape(symbol))
	if err := c.do(ctx, http.MethodGet, u, nil, &raw); err != nil {
		return model.Trade{}, err
	}
	return model.Trade{Symbol: symbol, Price: raw.Trade.Price, TS: raw.Trade.TS}, nil
}

// SubmitOrder places an order and returns the broker's view of it.
func (c *Client) SubmitOrder(ctx context.Context, req model.OrderRequest) (model.Order, error) {
	payload := map[string]interface{}{
		"symbol":        req.Symbol,
		"qty":           strconv.FormatInt(req.Qty, 10),
		"side":          req.Side,
		"type":          req.Type,
		"time_in_force": req.TimeInForce,
	}

	var raw struct {
		ID          string    `json:"id"`
		Symbol      string    `json:"symbol"`
		Qty         string    `json:"qty"`
		Side        string    `json:"side"`
		Status      string    `json:"status"`
		SubmittedAt time.Time `json:"submitted_at"`
	}
	if err := c.do(ctx, http.MethodPost, c.baseURL+"/v2/orders", payload, &raw); err != nil {
		return model.Order{}, err
	}

	qty, _ := strconv.ParseInt(raw.Qty, 10, 64)
	return model.Order{
		ID:          raw.ID,
		Symbol:      raw.Symbol,
		Qty:         qty,
		Side:        raw.Side,
		Status:      raw.Status,
		SubmittedAt: raw.SubmittedAt,
	}, nil
}

// GetBars returns daily bars for symbol in [start, end), oldest first,
// following pagination until exhausted.
func (c *Client) GetBars(ctx context.Context, symbol string, start, end time.Time) ([]model.PriceBar, error) {
	var bars []model.PriceBar
	pageToken := ""

	for {
		q := url.Values{}
		q.Set("timeframe", "1Day")
		q.Set("start", start.UTC().Format(time.RFC3339))
		q.Set("end", end.UTC().Format(time.RFC3339))
		q.Set("limit", "1000")
		if pageToken != "" {
			q.Set("page_token", pageToken)
		}

		var raw struct {
			Bars []struct {
				TS     time.Time `json:"t"`
				Open   float64   `json:"o"`
				High   float64   `json:"h"`
				Low    float64   `json:"l"`
				Close  float64   `json:"c"`
				Volume int64     `json:"v"`
			} `json:"bars"`
			NextPageToken *string `json:"next_page_token"`
		}
		u := fmt.Sprintf("%s/v2/stocks/%s/bars?%s", c.dataBaseURL, url.PathEscape(symbol), q.Encode())
		if err := c.do(ctx, http.MethodGet, u, nil, &raw); err != nil {
			return nil, err
		}

		for _, b := range raw.Bars {
			bars = append(bars, model.PriceBar{
				Symbol: symbol,
				TS:     b.TS.UTC(),
				Open:   b.Open,
				High:   b.High,
				Low:    b.Low,
				Close:  b.Close,
				Volume: b.Volume,
			})
		}
		if raw.NextPageToken == nil || *raw.NextPageToken == "" {
			return bars, nil
		}
		pageToken = *raw.NextPageToken
	}
}
