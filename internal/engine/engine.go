package engine

import (
	"context"
	"fmt"
	"math"

	"congress-alpha/internal/broker"
	"congress-alpha/internal/config"
	"congress-alpha/internal/logger"
	"congress-alpha/internal/sector"
	"congress-alpha/internal/storage"
)

// Broker is the execution adapter boundary. The live implementation is the
// Trading212 client; tests substitute a fake.
type Broker interface {
	GetAccountSummary(ctx context.Context) (*broker.AccountSummary, error)
	GetPosition(ctx context.Context, ticker string) (*broker.Position, error)
	PlaceMarketOrder(ctx context.Context, ticker string, quantity float64) (*broker.OrderResult, error)
}

type MarketData interface {
	GetPrice(ctx context.Context, ticker string) (float64, error)
	GetMarketCap(ctx context.Context, ticker string) (float64, error)
}

type Notifier interface {
	NotifyBuy(ticker string, shares, price float64)
	NotifySell(ticker string, shares, price, pnl float64)
	NotifyAwaitingConfirmation(s *storage.Signal)
	NotifyError(context string, err error)
}

// TradeResult is the per-signal outcome of one processing attempt. Ticker
// is the instrument actually traded, which differs from the disclosed one
// for sector-ETF routes.
type TradeResult struct {
	SignalID       uint    `json:"signal_id"`
	Ticker         string  `json:"ticker"`
	Side           string  `json:"side"` // buy or sell
	Success        bool    `json:"success"`
	Shares         float64 `json:"shares,omitempty"`
	Price          float64 `json:"price,omitempty"`
	OrderID        string  `json:"order_id,omitempty"`
	RejectedReason string  `json:"rejected_reason,omitempty"`
	Message        string  `json:"message"`
}

// Engine drives one signal at a time through the status state machine:
// routing, guards, sizing, order submission, bookkeeping. Signals are only
// ever mutated through status transitions in the store, so a re-run against
// the same backlog is idempotent.
type Engine struct {
	repo       *storage.Repository
	broker     Broker
	marketData MarketData
	guards     *Guards
	router     *Router
	notifier   Notifier
	cfg        *config.Config
	logger     *logger.Logger
}

func NewEngine(
	repo *storage.Repository,
	bk Broker,
	md MarketData,
	sectors *sector.Mapper,
	notifier Notifier,
	cfg *config.Config,
	log *logger.Logger,
) *Engine {
	return &Engine{
		repo:       repo,
		broker:     bk,
		marketData: md,
		guards:     NewGuards(md, repo, cfg.Trading),
		router:     NewRouter(sectors, repo, cfg.Trading),
		notifier:   notifier,
		cfg:        cfg,
		logger:     log,
	}
}

// ProcessPending processes the whole actionable backlog sequentially in
// creation order. Signals awaiting confirmation are excluded by the query;
// executed and rejected ones never enter the working set at all.
func (e *Engine) ProcessPending(ctx context.Context) ([]TradeResult, error) {
	signals, err := e.repo.SignalsByStatus(storage.StatusPending, storage.StatusConfirmed)
	if err != nil {
		return nil, fmt.Errorf("load actionable signals: %w", err)
	}

	e.logger.Info("processing signal backlog", "count", len(signals))

	results := make([]TradeResult, 0, len(signals))
	for i := range signals {
		r := e.processSignal(ctx, &signals[i])
		results = append(results, r)
		e.logger.Info("signal processed",
			"signal_id", r.SignalID, "ticker", r.Ticker, "side", r.Side,
			"success", r.Success, "message", r.Message)
	}
	return results, nil
}

// ProcessSignal processes a single signal by id, used after a human
// confirms or rejects it through the API.
func (e *Engine) ProcessSignal(ctx context.Context, id uint) (*TradeResult, error) {
	s, err := e.repo.GetSignal(id)
	if err != nil {
		return nil, err
	}
	if s.Processed() {
		return nil, fmt.Errorf("%w: signal %d is already %s", storage.ErrInvalidTransition, id, s.Status)
	}
	r := e.processSignal(ctx, s)
	return &r, nil
}

func (e *Engine) processSignal(ctx context.Context, s *storage.Signal) TradeResult {
	switch s.TradeType {
	case storage.TradePurchase:
		return e.processBuy(ctx, s)
	case storage.TradeSale:
		return e.processSell(ctx, s)
	default:
		e.setStatus(s.ID, storage.StatusRejected)
		return TradeResult{
			SignalID:       s.ID,
			Ticker:         s.Ticker,
			Side:           "unknown",
			RejectedReason: fmt.Sprintf("unknown trade type %q", s.TradeType),
			Message:        "invalid signal",
		}
	}
}

// Buy path

func (e *Engine) processBuy(ctx context.Context, s *storage.Signal) TradeResult {
	decision := e.router.RouteBuy(s)

	// Expiry is terminal and pre-empts confirmation entirely.
	if decision.Expired {
		e.logger.Info("buy signal expired",
			"ticker", s.Ticker, "lag_days", s.LagDays, "max", e.cfg.Trading.MaxSignalAgeDays)
		e.setStatus(s.ID, storage.StatusRejected)
		return TradeResult{
			SignalID:       s.ID,
			Ticker:         s.Ticker,
			Side:           "buy",
			RejectedReason: fmt.Sprintf("signal too stale: %d days > %d max", s.LagDays, e.cfg.Trading.MaxSignalAgeDays),
			Message:        "signal expired, trade date too old",
		}
	}

	if r, done := e.gateConfirmation(s, "buy"); done {
		return r
	}

	if decision.SignalType == storage.SignalSectorETF {
		e.logger.Info("sector rotation",
			"original", decision.OriginalTicker, "etf", decision.ExecutionTicker,
			"lag_days", s.LagDays, "stale_threshold", e.cfg.Trading.StaleSignalDays)
	}

	return e.executeBuy(ctx, s, decision)
}

func (e *Engine) executeBuy(ctx context.Context, s *storage.Signal, decision RoutingDecision) TradeResult {
	ticker := decision.ExecutionTicker
	result := TradeResult{SignalID: s.ID, Ticker: ticker, Side: "buy"}

	e.logger.Info("processing BUY signal", "ticker", ticker, "politician", s.Politician)

	guard := e.guards.RunBuyChecks(ctx, ticker)
	e.logger.Info("pre-buy checks", "ticker", ticker, "passed", guard.Passed, "detail", guard.Reason)
	if !guard.Passed {
		if !guard.Retryable {
			e.setStatus(s.ID, storage.StatusRejected)
		}
		result.RejectedReason = guard.Reason
		result.Message = "buy rejected by risk guards"
		return result
	}

	price, err := e.marketData.GetPrice(ctx, ticker)
	if err != nil {
		// Transient: the signal stays confirmed and retries next cycle.
		e.logger.Warn("price lookup failed", "ticker", ticker, "error", err)
		result.RejectedReason = fmt.Sprintf("could not get current price: %v", err)
		result.Message = "price lookup failed"
		return result
	}

	summary, err := e.broker.GetAccountSummary(ctx)
	if err != nil {
		e.logger.Warn("account summary failed", "error", err)
		result.RejectedReason = fmt.Sprintf("could not get account summary: %v", err)
		result.Message = "account lookup failed"
		return result
	}

	existing, err := e.broker.GetPosition(ctx, ticker)
	if err != nil {
		e.logger.Warn("position lookup failed", "ticker", ticker, "error", err)
		result.RejectedReason = fmt.Sprintf("could not get position: %v", err)
		result.Message = "position lookup failed"
		return result
	}
	var existingValue float64
	if existing != nil {
		existingValue = existing.Quantity * existing.CurrentPrice
	}

	shares, sizing := CalculatePosition(e.cfg.Trading, SizeRequest{
		PortfolioValue:        summary.TotalValue,
		AvailableCash:         summary.AvailableCash,
		ConvictionAmount:      s.AmountMidpoint,
		Price:                 price,
		ExistingPositionValue: existingValue,
	})
	e.logger.Info("position sizing", "ticker", ticker, "detail", sizing)
	if shares <= 0 {
		e.setStatus(s.ID, storage.StatusRejected)
		result.RejectedReason = sizing
		result.Message = "position sizing rejected trade"
		return result
	}

	order, err := e.broker.PlaceMarketOrder(ctx, ticker, shares)
	if err != nil {
		// Left confirmed: the next cycle retries naturally.
		e.logger.Error("buy order failed", "ticker", ticker, "error", err)
		e.notifyError("BUY "+ticker, err)
		result.RejectedReason = err.Error()
		result.Message = "order submission failed"
		return result
	}

	if err := e.repo.AppendTrade(&storage.TradeRecord{
		Ticker:    ticker,
		TradeType: "buy",
		Shares:    shares,
		Price:     price,
		SignalID:  s.ID,
		OrderID:   order.OrderID,
	}); err != nil {
		e.logger.Error("record trade history", "error", err)
	}

	if decision.SignalType == storage.SignalSectorETF {
		if _, err := e.repo.RecordProxy(decision.OriginalTicker, ticker, s.Politician, shares, s.ID); err != nil {
			e.logger.Error("record proxy trade", "error", err)
		} else {
			e.logger.Info("recorded proxy", "original", decision.OriginalTicker, "proxy", ticker, "shares", shares)
		}
	}

	e.repo.UpdateSignalType(s.ID, decision.SignalType)
	e.setStatus(s.ID, storage.StatusExecuted)

	if e.notifier != nil {
		e.notifier.NotifyBuy(ticker, shares, price)
	}
	e.logger.Info("BUY executed", "ticker", ticker, "shares", shares, "price", price, "order_id", order.OrderID)

	result.Success = true
	result.Shares = shares
	result.Price = price
	result.OrderID = order.OrderID
	result.Message = fmt.Sprintf("BUY order submitted: %v shares @ $%.2f", shares, price)
	return result
}

// Sell path

func (e *Engine) processSell(ctx context.Context, s *storage.Signal) TradeResult {
	if r, done := e.gateConfirmation(s, "sell"); done {
		return r
	}

	decision, err := e.router.RouteSell(s)
	if err != nil {
		e.logger.Warn("sell routing failed", "ticker", s.Ticker, "error", err)
		return TradeResult{
			SignalID:       s.ID,
			Ticker:         s.Ticker,
			Side:           "sell",
			RejectedReason: err.Error(),
			Message:        "proxy lookup failed",
		}
	}
	if decision.Proxy != nil {
		e.logger.Info("proxy sell",
			"original", decision.OriginalTicker, "proxy", decision.ExecutionTicker,
			"proxy_shares", decision.Proxy.Shares)
	}

	return e.executeSell(ctx, s, decision)
}

func (e *Engine) executeSell(ctx context.Context, s *storage.Signal, decision RoutingDecision) TradeResult {
	ticker := decision.ExecutionTicker
	result := TradeResult{SignalID: s.ID, Ticker: ticker, Side: "sell"}

	e.logger.Info("processing SELL signal", "ticker", ticker, "politician", s.Politician)

	position, err := e.broker.GetPosition(ctx, ticker)
	if err != nil {
		e.logger.Warn("position lookup failed", "ticker", ticker, "error", err)
		result.RejectedReason = fmt.Sprintf("could not get position: %v", err)
		result.Message = "position lookup failed"
		return result
	}
	if position == nil {
		// Nothing to sell can never succeed: force the terminal state.
		e.logger.Info("no position to sell, rejecting signal", "ticker", ticker)
		e.setStatus(s.ID, storage.StatusRejected)
		result.RejectedReason = "no position to sell, signal cancelled"
		result.Message = "sell cancelled, no position owned"
		return result
	}

	// Never submit more than the broker reports held.
	shares := position.Quantity
	if decision.Proxy != nil {
		shares = math.Min(decision.Proxy.Shares, position.Quantity)
		if shares < decision.Proxy.Shares {
			e.logger.Warn("proxy bookkeeping exceeds holding",
				"proxy_shares", decision.Proxy.Shares, "held", position.Quantity, "selling", shares)
		}
	}

	price, err := e.marketData.GetPrice(ctx, ticker)
	if err != nil || price <= 0 {
		price = position.CurrentPrice
	}
	if price <= 0 {
		price = position.AvgCost
	}
	pnl := (price - position.AvgCost) * shares

	order, err := e.broker.PlaceMarketOrder(ctx, ticker, -shares)
	if err != nil {
		e.logger.Error("sell order failed", "ticker", ticker, "error", err)
		e.notifyError("SELL "+ticker, err)
		result.RejectedReason = err.Error()
		result.Message = "order submission failed"
		return result
	}

	if err := e.repo.AppendTrade(&storage.TradeRecord{
		Ticker:    ticker,
		TradeType: "sell",
		Shares:    shares,
		Price:     price,
		PnL:       &pnl,
		SignalID:  s.ID,
		OrderID:   order.OrderID,
	}); err != nil {
		e.logger.Error("record trade history", "error", err)
	}

	if decision.Proxy != nil {
		if err := e.repo.CloseProxy(decision.Proxy.ID); err != nil {
			e.logger.Error("close proxy trade", "proxy_id", decision.Proxy.ID, "error", err)
		} else {
			e.logger.Info("closed proxy trade", "proxy_id", decision.Proxy.ID)
		}
	}

	e.repo.UpdateSignalType(s.ID, decision.SignalType)
	e.setStatus(s.ID, storage.StatusExecuted)

	if e.notifier != nil {
		e.notifier.NotifySell(ticker, shares, price, pnl)
	}
	e.logger.Info("SELL executed",
		"ticker", ticker, "shares", shares, "price", price, "pnl", pnl, "order_id", order.OrderID)

	result.Success = true
	result.Shares = shares
	result.Price = price
	result.OrderID = order.OrderID
	result.Message = fmt.Sprintf("SELL order submitted: %v shares @ $%.2f (P&L $%.2f)", shares, price, pnl)
	return result
}

// gateConfirmation holds fresh signals for manual approval. Every trade
// requires confirmation; done reports whether processing stops here.
func (e *Engine) gateConfirmation(s *storage.Signal, side string) (TradeResult, bool) {
	switch s.Status {
	case storage.StatusPending:
		e.setStatus(s.ID, storage.StatusPendingConfirmation)
		e.logger.Info("signal awaiting confirmation",
			"ticker", s.Ticker, "side", side, "lag_days", s.LagDays)
		if e.notifier != nil {
			e.notifier.NotifyAwaitingConfirmation(s)
		}
		return TradeResult{
			SignalID:       s.ID,
			Ticker:         s.Ticker,
			Side:           side,
			RejectedReason: fmt.Sprintf("waiting for confirmation (lag: %d days)", s.LagDays),
			Message:        "signal pending user confirmation",
		}, true
	case storage.StatusPendingConfirmation:
		return TradeResult{
			SignalID:       s.ID,
			Ticker:         s.Ticker,
			Side:           side,
			RejectedReason: "awaiting user confirmation",
			Message:        "signal pending user confirmation",
		}, true
	}
	return TradeResult{}, false
}

func (e *Engine) setStatus(id uint, to storage.SignalStatus) {
	if err := e.repo.SetStatus(id, to); err != nil {
		e.logger.Error("status transition failed", "signal_id", id, "to", to, "error", err)
	}
}

func (e *Engine) notifyError(context string, err error) {
	if e.notifier != nil {
		e.notifier.NotifyError(context, err)
	}
}
