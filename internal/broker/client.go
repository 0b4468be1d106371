package broker

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"congress-alpha/internal/config"
	"congress-alpha/internal/logger"
)

// Rate limits from the Trading212 API docs, expressed as the minimum
// interval between calls per endpoint bucket.
var rateLimits = map[string]time.Duration{
	"market_order":    60 * time.Second / 50,
	"account_summary": 5 * time.Second,
	"positions":       1 * time.Second,
	"default":         1 * time.Second,
}

type Client struct {
	baseURL    string
	authHeader string
	httpClient *http.Client
	symbols    *SymbolMapper
	logger     *logger.Logger

	mu        sync.Mutex
	lastCalls map[string]time.Time
}

func NewClient(cfg *config.Config, log *logger.Logger) *Client {
	credentials := cfg.Trading212.APIKey + ":" + cfg.Trading212.APISecret
	encoded := base64.StdEncoding.EncodeToString([]byte(credentials))

	return &Client{
		baseURL:    cfg.BaseURL(),
		authHeader: "Basic " + encoded,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		symbols:    NewSymbolMapper(cfg.Symbols),
		logger:     log,
		lastCalls:  make(map[string]time.Time),
	}
}

func (c *Client) Symbols() *SymbolMapper {
	return c.symbols
}

func (c *Client) rateLimit(bucket string) {
	interval, ok := rateLimits[bucket]
	if !ok {
		interval = rateLimits["default"]
	}

	c.mu.Lock()
	last := c.lastCalls[bucket]
	wait := interval - time.Since(last)
	if wait > 0 {
		c.lastCalls[bucket] = last.Add(interval)
	} else {
		c.lastCalls[bucket] = time.Now()
	}
	c.mu.Unlock()

	if wait > 0 {
		time.Sleep(wait)
	}
}

func (c *Client) request(ctx context.Context, method, path, bucket string, payload, out interface{}) error {
	c.rateLimit(bucket)

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", c.authHeader)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("trading212 request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized:
		return fmt.Errorf("trading212: invalid credentials")
	case http.StatusTooManyRequests:
		return fmt.Errorf("trading212: rate limited")
	default:
		return fmt.Errorf("trading212: status %d: %s", resp.StatusCode, string(data))
	}

	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("parse response: %w", err)
		}
	}
	return nil
}
