package broker

import (
	"context"
	"fmt"
)

type OrderResult struct {
	OrderID string
}

type marketOrderRequest struct {
	Ticker        string  `json:"ticker"`
	Quantity      float64 `json:"quantity"`
	ExtendedHours bool    `json:"extendedHours"`
}

type marketOrderResponse struct {
	ID     int64  `json:"id"`
	Status string `json:"status"`
}

// PlaceMarketOrder submits a market order for a standard ticker. Positive
// quantity buys, negative sells.
func (c *Client) PlaceMarketOrder(ctx context.Context, ticker string, quantity float64) (*OrderResult, error) {
	symbol := c.symbols.ToTrading212(ticker)

	req := marketOrderRequest{
		Ticker:   symbol,
		Quantity: quantity,
	}

	var resp marketOrderResponse
	if err := c.request(ctx, "POST", "/api/v0/equity/orders/market", "market_order", req, &resp); err != nil {
		return nil, fmt.Errorf("market order %s: %w", ticker, err)
	}
	if resp.ID == 0 {
		return nil, fmt.Errorf("market order %s: no order id returned", ticker)
	}

	c.logger.Info("market order submitted",
		"ticker", ticker, "symbol", symbol, "quantity", quantity, "order_id", resp.ID)

	return &OrderResult{OrderID: fmt.Sprint(resp.ID)}, nil
}
