package engine

import (
	"fmt"

	"congress-alpha/internal/config"
	"congress-alpha/internal/sector"
	"congress-alpha/internal/storage"
)

// RoutingDecision maps one signal to the instrument actually traded. It is
// produced once per signal and the signal record is never mutated to carry
// routing state.
type RoutingDecision struct {
	OriginalTicker  string
	ExecutionTicker string
	SignalType      string // storage.SignalDirect or storage.SignalSectorETF
	Expired         bool
	Proxy           *storage.ProxyTrade // sells redirected to an open proxy
}

// Router applies the age-decay policy: fresh buys trade the disclosed
// ticker, stale buys rotate into the sector ETF, expired buys are dropped.
// Sells follow any open proxy back to the instrument that was bought.
type Router struct {
	sectors *sector.Mapper
	repo    *storage.Repository
	cfg     config.TradingConfig
}

func NewRouter(sectors *sector.Mapper, repo *storage.Repository, cfg config.TradingConfig) *Router {
	return &Router{sectors: sectors, repo: repo, cfg: cfg}
}

func (r *Router) RouteBuy(s *storage.Signal) RoutingDecision {
	d := RoutingDecision{
		OriginalTicker:  s.Ticker,
		ExecutionTicker: s.Ticker,
		SignalType:      storage.SignalDirect,
	}

	switch {
	case s.LagDays > r.cfg.MaxSignalAgeDays:
		d.Expired = true
	case s.LagDays > r.cfg.StaleSignalDays:
		d.ExecutionTicker = r.sectors.ETFFor(s.Ticker)
		d.SignalType = storage.SignalSectorETF
	}
	return d
}

func (r *Router) RouteSell(s *storage.Signal) (RoutingDecision, error) {
	d := RoutingDecision{
		OriginalTicker:  s.Ticker,
		ExecutionTicker: s.Ticker,
		SignalType:      storage.SignalDirect,
	}

	proxy, err := r.repo.OpenProxy(s.Ticker, s.Politician)
	if err != nil {
		return d, fmt.Errorf("look up open proxy for %s/%s: %w", s.Ticker, s.Politician, err)
	}
	if proxy != nil {
		d.ExecutionTicker = proxy.ProxyTicker
		d.SignalType = storage.SignalSectorETF
		d.Proxy = proxy
	}
	return d, nil
}
