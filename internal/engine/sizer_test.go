package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCalculatePositionConvictionFloor(t *testing.T) {
	cfg := testConfig().Trading
	shares, detail := CalculatePosition(cfg, SizeRequest{
		PortfolioValue:   100_000,
		AvailableCash:    50_000,
		ConvictionAmount: 5_000,
		Price:            50,
	})

	// Conviction below the low threshold stays at the 2% base.
	assert.Equal(t, 40.0, shares)
	assert.Contains(t, detail, "2.0% of portfolio")
	assert.Contains(t, detail, "conviction 0%")
}

func TestCalculatePositionConvictionInterpolates(t *testing.T) {
	cfg := testConfig().Trading

	// Exactly halfway between the thresholds: 4% target.
	shares, detail := CalculatePosition(cfg, SizeRequest{
		PortfolioValue:   100_000,
		AvailableCash:    50_000,
		ConvictionAmount: 132_500,
		Price:            50,
	})
	assert.Equal(t, 80.0, shares)
	assert.Contains(t, detail, "conviction 50%")

	// Above the high threshold caps at 6%.
	shares, _ = CalculatePosition(cfg, SizeRequest{
		PortfolioValue:   100_000,
		AvailableCash:    50_000,
		ConvictionAmount: 1_000_000,
		Price:            50,
	})
	assert.Equal(t, 120.0, shares)
}

func TestCalculatePositionCashBufferCapsBuy(t *testing.T) {
	cfg := testConfig().Trading
	shares, _ := CalculatePosition(cfg, SizeRequest{
		PortfolioValue:   100_000,
		AvailableCash:    1_000,
		ConvictionAmount: 5_000,
		Price:            50,
	})

	// $2000 target clamped to 95% of $1000 cash.
	assert.Equal(t, 19.0, shares)
}

func TestCalculatePositionExistingHoldingReducesBuy(t *testing.T) {
	cfg := testConfig().Trading
	shares, _ := CalculatePosition(cfg, SizeRequest{
		PortfolioValue:        100_000,
		AvailableCash:         50_000,
		ConvictionAmount:      5_000,
		Price:                 50,
		ExistingPositionValue: 1_500,
	})
	assert.Equal(t, 10.0, shares)
}

func TestCalculatePositionRejections(t *testing.T) {
	cfg := testConfig().Trading

	shares, reason := CalculatePosition(cfg, SizeRequest{AvailableCash: 50_000, ConvictionAmount: 5_000, Price: 50})
	assert.Zero(t, shares)
	assert.Contains(t, reason, "portfolio value")

	shares, reason = CalculatePosition(cfg, SizeRequest{PortfolioValue: 100_000, AvailableCash: 50, ConvictionAmount: 5_000, Price: 50})
	assert.Zero(t, shares)
	assert.Contains(t, reason, "insufficient cash")

	shares, reason = CalculatePosition(cfg, SizeRequest{PortfolioValue: 100_000, AvailableCash: 50_000, ConvictionAmount: 5_000})
	assert.Zero(t, shares)
	assert.Contains(t, reason, "invalid stock price")

	shares, reason = CalculatePosition(cfg, SizeRequest{
		PortfolioValue: 100_000, AvailableCash: 50_000, ConvictionAmount: 5_000, Price: 50,
		ExistingPositionValue: 5_000,
	})
	assert.Zero(t, shares)
	assert.Contains(t, reason, "already have sufficient position")

	// Cash clears the minimum but not once the buffer is applied.
	shares, reason = CalculatePosition(cfg, SizeRequest{
		PortfolioValue: 100_000, AvailableCash: 104, ConvictionAmount: 5_000, Price: 50,
	})
	assert.Zero(t, shares)
	assert.Contains(t, reason, "insufficient cash after buffer")
}

func TestCalculatePositionFractionalRounding(t *testing.T) {
	cfg := testConfig().Trading
	shares, _ := CalculatePosition(cfg, SizeRequest{
		PortfolioValue:   100_000,
		AvailableCash:    50_000,
		ConvictionAmount: 5_000,
		Price:            3,
	})
	// Four decimal places of fractional shares.
	assert.Equal(t, 666.6667, shares)
}

func TestCalculatePositionDeterministic(t *testing.T) {
	cfg := testConfig().Trading
	req := SizeRequest{
		PortfolioValue:   100_000,
		AvailableCash:    50_000,
		ConvictionAmount: 87_654,
		Price:            123.45,
	}
	a, da := CalculatePosition(cfg, req)
	b, db := CalculatePosition(cfg, req)
	assert.Equal(t, a, b)
	assert.Equal(t, da, db)
}
