package engine

import (
	"context"
	"fmt"
	"strings"

	"congress-alpha/internal/config"
	"congress-alpha/internal/storage"
)

// GuardResult is the outcome of one pre-trade check. Retryable failures
// (market data could not be retrieved) leave the signal eligible for the
// next cycle instead of rejecting it for good.
type GuardResult struct {
	Passed    bool
	Retryable bool
	Reason    string
}

// Guards holds the pre-buy rule checks. Both checks read external state
// only and must be re-evaluated on every buy attempt.
type Guards struct {
	marketData MarketData
	repo       *storage.Repository
	cfg        config.TradingConfig
}

func NewGuards(md MarketData, repo *storage.Repository, cfg config.TradingConfig) *Guards {
	return &Guards{marketData: md, repo: repo, cfg: cfg}
}

// CheckLiquidity rejects micro-cap tickers. A failed lookup is a fail,
// never a pass.
func (g *Guards) CheckLiquidity(ctx context.Context, ticker string) GuardResult {
	marketCap, err := g.marketData.GetMarketCap(ctx, ticker)
	if err != nil {
		return GuardResult{
			Retryable: true,
			Reason:    fmt.Sprintf("could not verify market cap for %s: %v", ticker, err),
		}
	}

	if marketCap < g.cfg.MinMarketCap {
		return GuardResult{
			Reason: fmt.Sprintf("market cap $%.0f < $%.0f (micro-cap rejected)", marketCap, g.cfg.MinMarketCap),
		}
	}
	return GuardResult{
		Passed: true,
		Reason: fmt.Sprintf("market cap $%.0f OK", marketCap),
	}
}

// CheckWashSale blocks a buy when the ticker was sold at a loss within the
// lookback window. Sells are never blocked by this guard.
func (g *Guards) CheckWashSale(ticker string) GuardResult {
	hit, err := g.repo.HasRecentLosingSell(ticker, g.cfg.WashSaleDays)
	if err != nil {
		return GuardResult{
			Retryable: true,
			Reason:    fmt.Sprintf("could not check trade history for %s: %v", ticker, err),
		}
	}
	if hit {
		return GuardResult{
			Reason: fmt.Sprintf("wash sale: %s sold at a loss within %d days, do not buy", ticker, g.cfg.WashSaleDays),
		}
	}
	return GuardResult{Passed: true, Reason: "wash sale check passed"}
}

// RunBuyChecks runs every pre-buy guard and aggregates the outcome. The
// combined result is retryable only if no check failed terminally.
func (g *Guards) RunBuyChecks(ctx context.Context, ticker string) GuardResult {
	liquidity := g.CheckLiquidity(ctx, ticker)
	washSale := g.CheckWashSale(ticker)

	reasons := []string{
		"liquidity: " + liquidity.Reason,
		"wash sale: " + washSale.Reason,
	}
	combined := GuardResult{
		Passed: liquidity.Passed && washSale.Passed,
		Reason: strings.Join(reasons, "; "),
	}
	if !combined.Passed {
		terminal := (!liquidity.Passed && !liquidity.Retryable) ||
			(!washSale.Passed && !washSale.Retryable)
		combined.Retryable = !terminal
	}
	return combined
}
