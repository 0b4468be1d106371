package marketdata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"congress-alpha/internal/logger"
)

const quoteURL = "https://query1.finance.yahoo.com/v7/finance/quote?symbols="

// ErrUnavailable means the venue answered but had no usable data for the
// ticker. Callers treat it the same as a transport failure.
var ErrUnavailable = errors.New("market data unavailable")

type Client struct {
	httpClient *http.Client
	logger     *logger.Logger
}

func NewClient(log *logger.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		logger:     log,
	}
}

type Quote struct {
	Price             float64
	PreviousClose     float64
	MarketCap         float64
	SharesOutstanding float64
}

type quoteResponse struct {
	QuoteResponse struct {
		Result []struct {
			RegularMarketPrice         float64 `json:"regularMarketPrice"`
			RegularMarketPreviousClose float64 `json:"regularMarketPreviousClose"`
			MarketCap                  float64 `json:"marketCap"`
			SharesOutstanding          float64 `json:"sharesOutstanding"`
		} `json:"result"`
	} `json:"quoteResponse"`
}

func (c *Client) getQuote(ctx context.Context, ticker string) (*Quote, error) {
	reqURL := quoteURL + url.QueryEscape(strings.ToUpper(ticker))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch quote %s: %w", ticker, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("quote %s: status %d", ticker, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var qr quoteResponse
	if err := json.Unmarshal(body, &qr); err != nil {
		return nil, fmt.Errorf("parse quote %s: %w", ticker, err)
	}
	if len(qr.QuoteResponse.Result) == 0 {
		return nil, fmt.Errorf("quote %s: %w", ticker, ErrUnavailable)
	}

	r := qr.QuoteResponse.Result[0]
	return &Quote{
		Price:             r.RegularMarketPrice,
		PreviousClose:     r.RegularMarketPreviousClose,
		MarketCap:         r.MarketCap,
		SharesOutstanding: r.SharesOutstanding,
	}, nil
}

// GetPrice returns the last market price, falling back to the previous
// close, as the disclosure venue sometimes omits the live price.
func (c *Client) GetPrice(ctx context.Context, ticker string) (float64, error) {
	q, err := c.getQuote(ctx, ticker)
	if err != nil {
		return 0, err
	}
	if q.Price > 0 {
		return q.Price, nil
	}
	if q.PreviousClose > 0 {
		return q.PreviousClose, nil
	}
	return 0, fmt.Errorf("price %s: %w", ticker, ErrUnavailable)
}

// GetMarketCap returns the market capitalization, estimated from shares
// outstanding when the venue does not report it directly.
func (c *Client) GetMarketCap(ctx context.Context, ticker string) (float64, error) {
	q, err := c.getQuote(ctx, ticker)
	if err != nil {
		return 0, err
	}
	if q.MarketCap > 0 {
		return q.MarketCap, nil
	}

	price := q.Price
	if price == 0 {
		price = q.PreviousClose
	}
	if q.SharesOutstanding > 0 && price > 0 {
		return q.SharesOutstanding * price, nil
	}
	return 0, fmt.Errorf("market cap %s: %w", ticker, ErrUnavailable)
}
