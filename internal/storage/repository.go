package storage

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrDuplicate         = errors.New("signal already exists")
	ErrNotFound          = errors.New("not found")
	ErrInvalidTransition = errors.New("illegal status transition")
)

// legalTransitions is the whole state machine: pending enters once at
// creation, executed and rejected are terminal.
var legalTransitions = map[SignalStatus][]SignalStatus{
	StatusPending:             {StatusPendingConfirmation, StatusRejected},
	StatusPendingConfirmation: {StatusConfirmed, StatusRejected},
	StatusConfirmed:           {StatusExecuted, StatusRejected},
}

func transitionAllowed(from, to SignalStatus) bool {
	for _, s := range legalTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Signals

// InsertSignal inserts a signal unless one already exists for the same
// (ticker, politician, trade date, trade type). Returns ErrDuplicate on a
// re-ingested disclosure.
func (r *Repository) InsertSignal(s *Signal) error {
	if s.Status == "" {
		s.Status = StatusPending
	}
	if s.LagDays < 0 {
		s.LagDays = 0
	}
	res := r.db.Clauses(clause.OnConflict{DoNothing: true}).Create(s)
	if res.Error != nil {
		return fmt.Errorf("insert signal: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrDuplicate
	}
	return nil
}

func (r *Repository) GetSignal(id uint) (*Signal, error) {
	var s Signal
	if err := r.db.First(&s, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &s, nil
}

// SignalsByStatus returns signals in the given states in creation order.
func (r *Repository) SignalsByStatus(statuses ...SignalStatus) ([]Signal, error) {
	var signals []Signal
	err := r.db.Where("status IN ?", statuses).
		Order("created_at ASC, id ASC").Find(&signals).Error
	return signals, err
}

// SetStatus applies a status transition. Illegal transitions (including a
// concurrent change between read and write) return ErrInvalidTransition and
// leave the row untouched.
func (r *Repository) SetStatus(id uint, to SignalStatus) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var s Signal
		if err := tx.First(&s, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if !transitionAllowed(s.Status, to) {
			return fmt.Errorf("%w: %s -> %s (signal %d)", ErrInvalidTransition, s.Status, to, id)
		}
		res := tx.Model(&Signal{}).
			Where("id = ? AND status = ?", id, s.Status).
			Update("status", to)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: signal %d changed concurrently", ErrInvalidTransition, id)
		}
		return nil
	})
}

// UpdateSignalType records the routing class a signal was executed under.
func (r *Repository) UpdateSignalType(id uint, signalType string) {
	// Bookkeeping only; failure never blocks the trade outcome.
	_ = r.db.Model(&Signal{}).Where("id = ?", id).Update("signal_type", signalType).Error
}

// DeleteSignal removes a signal entirely (operator purge). Executed and
// rejected signals are kept for the audit trail.
func (r *Repository) DeleteSignal(id uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var s Signal
		if err := tx.First(&s, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if s.Processed() {
			return fmt.Errorf("%w: cannot delete %s signal %d", ErrInvalidTransition, s.Status, id)
		}
		return tx.Delete(&s).Error
	})
}

// ListSignals returns a page of signals, newest first, with optional filters.
func (r *Repository) ListSignals(page, pageSize int, processed *bool, politician, ticker string) ([]Signal, int64, error) {
	query := r.db.Model(&Signal{})

	if processed != nil {
		terminal := []SignalStatus{StatusExecuted, StatusRejected}
		if *processed {
			query = query.Where("status IN ?", terminal)
		} else {
			query = query.Where("status NOT IN ?", terminal)
		}
	}
	if politician != "" {
		query = query.Where("politician LIKE ?", "%"+politician+"%")
	}
	if ticker != "" {
		query = query.Where("ticker = ?", ticker)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var signals []Signal
	err := query.Order("created_at DESC, id DESC").
		Limit(pageSize).Offset((page - 1) * pageSize).
		Find(&signals).Error
	return signals, total, err
}

// Proxy trades

// OpenProxy returns the most recently opened proxy trade for the pair, or
// nil when none is open.
func (r *Repository) OpenProxy(originalTicker, politician string) (*ProxyTrade, error) {
	var p ProxyTrade
	err := r.db.Where("original_ticker = ? AND politician = ? AND closed = ?",
		originalTicker, politician, false).
		Order("created_at DESC, id DESC").First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

// RecordProxy records a proxy buy. If a proxy is already open for the pair
// the shares accumulate into it, keeping at most one open row per pair.
func (r *Repository) RecordProxy(originalTicker, proxyTicker, politician string, shares float64, signalID uint) (*ProxyTrade, error) {
	var result *ProxyTrade
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var open ProxyTrade
		err := tx.Where("original_ticker = ? AND politician = ? AND closed = ?",
			originalTicker, politician, false).
			Order("created_at DESC, id DESC").First(&open).Error
		switch {
		case err == nil:
			open.Shares += shares
			if err := tx.Model(&open).Update("shares", open.Shares).Error; err != nil {
				return err
			}
			result = &open
			return nil
		case errors.Is(err, gorm.ErrRecordNotFound):
			p := ProxyTrade{
				OriginalTicker: originalTicker,
				ProxyTicker:    proxyTicker,
				Politician:     politician,
				Shares:         shares,
				BuySignalID:    signalID,
			}
			if err := tx.Create(&p).Error; err != nil {
				return err
			}
			result = &p
			return nil
		default:
			return err
		}
	})
	if err != nil {
		return nil, fmt.Errorf("record proxy: %w", err)
	}
	return result, nil
}

func (r *Repository) CloseProxy(id uint) error {
	now := time.Now().UTC()
	res := r.db.Model(&ProxyTrade{}).
		Where("id = ? AND closed = ?", id, false).
		Updates(map[string]interface{}{"closed": true, "closed_at": &now})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) OpenProxies() ([]ProxyTrade, error) {
	var proxies []ProxyTrade
	err := r.db.Where("closed = ?", false).
		Order("created_at DESC").Find(&proxies).Error
	return proxies, err
}

// Trade history

func (r *Repository) AppendTrade(t *TradeRecord) error {
	if t.ExecutedAt.IsZero() {
		t.ExecutedAt = time.Now().UTC()
	}
	return r.db.Create(t).Error
}

// HasRecentLosingSell reports whether the ticker was sold at a loss within
// the lookback window. True means a buy would constitute a wash sale.
func (r *Repository) HasRecentLosingSell(ticker string, lookbackDays int) (bool, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -lookbackDays)
	var count int64
	err := r.db.Model(&TradeRecord{}).
		Where("ticker = ? AND trade_type = ? AND pnl < 0 AND executed_at >= ?",
			ticker, "sell", cutoff).
		Count(&count).Error
	return count > 0, err
}

func (r *Repository) RecentTrades(limit int) ([]TradeRecord, error) {
	var trades []TradeRecord
	err := r.db.Order("executed_at DESC, id DESC").Limit(limit).Find(&trades).Error
	return trades, err
}

// Event log

func (r *Repository) LogEvent(level, module, message string) {
	// Best effort; the event log never blocks trading.
	_ = r.db.Create(&EventLog{Level: level, Module: module, Message: message}).Error
}

func (r *Repository) RecentEvents(limit int) ([]EventLog, error) {
	var events []EventLog
	err := r.db.Order("created_at DESC, id DESC").Limit(limit).Find(&events).Error
	return events, err
}

// Stats

type Stats struct {
	TotalSignals   int64 `json:"total_signals"`
	PendingSignals int64 `json:"pending_signals"`
	TotalTrades    int64 `json:"total_trades"`
	TotalBuys      int64 `json:"total_buys"`
	TotalSells     int64 `json:"total_sells"`
	OpenProxies    int64 `json:"open_proxies"`
}

func (r *Repository) GetStats() (*Stats, error) {
	stats := &Stats{}
	if err := r.db.Model(&Signal{}).Count(&stats.TotalSignals).Error; err != nil {
		return nil, err
	}
	if err := r.db.Model(&Signal{}).
		Where("status NOT IN ?", []SignalStatus{StatusExecuted, StatusRejected}).
		Count(&stats.PendingSignals).Error; err != nil {
		return nil, err
	}
	if err := r.db.Model(&TradeRecord{}).Count(&stats.TotalTrades).Error; err != nil {
		return nil, err
	}
	if err := r.db.Model(&TradeRecord{}).Where("trade_type = ?", "buy").Count(&stats.TotalBuys).Error; err != nil {
		return nil, err
	}
	if err := r.db.Model(&TradeRecord{}).Where("trade_type = ?", "sell").Count(&stats.TotalSells).Error; err != nil {
		return nil, err
	}
	if err := r.db.Model(&ProxyTrade{}).Where("closed = ?", false).Count(&stats.OpenProxies).Error; err != nil {
		return nil, err
	}
	return stats, nil
}
