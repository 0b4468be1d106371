package engine

import (
	"fmt"
	"math"

	"congress-alpha/internal/config"
)

// SizeRequest carries everything the position sizer needs. All values are
// dollars except Price, which is per share.
type SizeRequest struct {
	PortfolioValue        float64
	AvailableCash         float64
	ConvictionAmount      float64 // midpoint of the politician's disclosed trade
	Price                 float64
	ExistingPositionValue float64
}

// CalculatePosition maps a buy signal to a fractional share quantity.
// The conviction amount interpolates the target position between the base
// and max portfolio fractions. Deterministic and side-effect free; zero
// shares means the trade is rejected for the returned reason.
func CalculatePosition(cfg config.TradingConfig, req SizeRequest) (float64, string) {
	if req.PortfolioValue <= 0 {
		return 0, "portfolio value is zero or negative"
	}
	if req.AvailableCash < cfg.MinTradeAmount {
		return 0, fmt.Sprintf("insufficient cash: $%.2f < $%.2f minimum", req.AvailableCash, cfg.MinTradeAmount)
	}
	if req.Price <= 0 {
		return 0, "invalid stock price"
	}

	// Conviction multiplier in [0,1], linear between the thresholds.
	var conviction float64
	switch {
	case req.ConvictionAmount <= cfg.LowConviction:
		conviction = 0
	case req.ConvictionAmount >= cfg.HighConviction:
		conviction = 1
	default:
		conviction = (req.ConvictionAmount - cfg.LowConviction) / (cfg.HighConviction - cfg.LowConviction)
	}

	targetPct := cfg.BasePositionPct + conviction*(cfg.MaxPositionPct-cfg.BasePositionPct)
	targetValue := req.PortfolioValue * targetPct

	additionalValue := targetValue - req.ExistingPositionValue
	if additionalValue < 0 {
		additionalValue = 0
	}
	if additionalValue < cfg.MinTradeAmount {
		return 0, fmt.Sprintf("already have sufficient position ($%.2f)", req.ExistingPositionValue)
	}

	buyValue := math.Min(additionalValue, req.AvailableCash*(1-cfg.CashBufferPct))
	if buyValue < cfg.MinTradeAmount {
		return 0, fmt.Sprintf("insufficient cash after buffer: $%.2f", buyValue)
	}

	// Trading212 supports fractional shares to 4 decimal places.
	shares := math.Round(buyValue/req.Price*1e4) / 1e4

	explanation := fmt.Sprintf(
		"position sizing: %.1f%% of portfolio (conviction %.0f%%, politician traded $%.0f), buying $%.2f worth = %v shares",
		targetPct*100, conviction*100, req.ConvictionAmount, buyValue, shares)

	return shares, explanation
}
