package broker

import (
	"context"
	"fmt"
)

type AccountSummary struct {
	TotalValue    float64
	AvailableCash float64
}

type Position struct {
	Ticker       string
	Quantity     float64
	AvgCost      float64
	CurrentPrice float64
}

type accountSummaryResponse struct {
	TotalValue float64 `json:"totalValue"`
	Cash       struct {
		AvailableToTrade float64 `json:"availableToTrade"`
	} `json:"cash"`
}

type positionResponse struct {
	Instrument struct {
		Ticker string `json:"ticker"`
	} `json:"instrument"`
	Quantity         float64 `json:"quantity"`
	AveragePricePaid float64 `json:"averagePricePaid"`
	CurrentPrice     float64 `json:"currentPrice"`
}

func (c *Client) GetAccountSummary(ctx context.Context) (*AccountSummary, error) {
	var resp accountSummaryResponse
	if err := c.request(ctx, "GET", "/api/v0/equity/account/summary", "account_summary", nil, &resp); err != nil {
		return nil, fmt.Errorf("account summary: %w", err)
	}
	return &AccountSummary{
		TotalValue:    resp.TotalValue,
		AvailableCash: resp.Cash.AvailableToTrade,
	}, nil
}

// GetPosition returns the open position for a standard ticker, or nil when
// nothing is held.
func (c *Client) GetPosition(ctx context.Context, ticker string) (*Position, error) {
	symbol := c.symbols.ToTrading212(ticker)

	var resp []positionResponse
	path := "/api/v0/equity/positions?ticker=" + symbol
	if err := c.request(ctx, "GET", path, "positions", nil, &resp); err != nil {
		return nil, fmt.Errorf("position %s: %w", ticker, err)
	}
	if len(resp) == 0 || resp[0].Quantity == 0 {
		return nil, nil
	}

	return &Position{
		Ticker:       ticker,
		Quantity:     resp[0].Quantity,
		AvgCost:      resp[0].AveragePricePaid,
		CurrentPrice: resp[0].CurrentPrice,
	}, nil
}

func (c *Client) GetPositions(ctx context.Context) ([]Position, error) {
	var resp []positionResponse
	if err := c.request(ctx, "GET", "/api/v0/equity/positions", "positions", nil, &resp); err != nil {
		return nil, fmt.Errorf("positions: %w", err)
	}

	positions := make([]Position, 0, len(resp))
	for _, p := range resp {
		if p.Quantity == 0 {
			continue
		}
		positions = append(positions, Position{
			Ticker:       c.symbols.FromTrading212(p.Instrument.Ticker),
			Quantity:     p.Quantity,
			AvgCost:      p.AveragePricePaid,
			CurrentPrice: p.CurrentPrice,
		})
	}
	return positions, nil
}
