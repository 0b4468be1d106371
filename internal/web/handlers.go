package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"congress-alpha/internal/storage"
)

func (s *Server) listSignals(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	var processed *bool
	if raw := c.Query("processed"); raw != "" {
		v := raw == "true" || raw == "1"
		processed = &v
	}

	signals, total, err := s.repo.ListSignals(page, pageSize, processed, c.Query("politician"), c.Query("ticker"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	pages := (total + int64(pageSize) - 1) / int64(pageSize)
	if pages < 1 {
		pages = 1
	}
	c.JSON(http.StatusOK, gin.H{
		"items":     signals,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
		"pages":     pages,
	})
}

type createSignalRequest struct {
	Ticker         string  `json:"ticker" binding:"required"`
	Politician     string  `json:"politician" binding:"required"`
	TradeType      string  `json:"trade_type" binding:"required"`
	AmountMidpoint float64 `json:"amount_midpoint" binding:"required"`
	TradeDate      string  `json:"trade_date" binding:"required"`
	DisclosureDate string  `json:"disclosure_date" binding:"required"`
	LagDays        int     `json:"lag_days"`
	Chamber        string  `json:"chamber"`
	AssetName      string  `json:"asset_name"`
	PDFURL         string  `json:"pdf_url"`
}

// createSignal is the ingestion boundary: the disclosure extraction
// pipeline delivers candidate signals here. Re-delivery of the same
// disclosure is a 409.
func (s *Server) createSignal(c *gin.Context) {
	var req createSignalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.TradeType != storage.TradePurchase && req.TradeType != storage.TradeSale {
		c.JSON(http.StatusBadRequest, gin.H{"error": "trade_type must be purchase or sale"})
		return
	}

	lagDays := req.LagDays
	if lagDays == 0 {
		traded, err1 := time.Parse("2006-01-02", req.TradeDate)
		disclosed, err2 := time.Parse("2006-01-02", req.DisclosureDate)
		if err1 == nil && err2 == nil {
			lagDays = int(disclosed.Sub(traded).Hours() / 24)
		}
	}

	signal := &storage.Signal{
		Ticker:         strings.ToUpper(req.Ticker),
		Politician:     req.Politician,
		TradeType:      req.TradeType,
		AmountMidpoint: req.AmountMidpoint,
		TradeDate:      req.TradeDate,
		DisclosureDate: req.DisclosureDate,
		LagDays:        lagDays,
		Chamber:        req.Chamber,
		AssetName:      req.AssetName,
		PDFURL:         req.PDFURL,
	}
	if err := s.repo.InsertSignal(signal); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			c.JSON(http.StatusConflict, gin.H{"error": "signal already exists"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	s.repo.LogEvent("INFO", "web", fmt.Sprintf("signal %d ingested (%s %s by %s)",
		signal.ID, signal.TradeType, signal.Ticker, signal.Politician))
	c.JSON(http.StatusCreated, signal)
}

func (s *Server) pendingSignals(c *gin.Context) {
	signals, err := s.repo.SignalsByStatus(
		storage.StatusPending, storage.StatusPendingConfirmation, storage.StatusConfirmed)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, signals)
}

func (s *Server) getSignal(c *gin.Context) {
	signal, ok := s.signalFromPath(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, signal)
}

// confirmSignal approves a signal awaiting confirmation. When no cycle is
// running it executes immediately; otherwise the running cycle's successor
// picks it up.
func (s *Server) confirmSignal(c *gin.Context) {
	signal, ok := s.signalFromPath(c)
	if !ok {
		return
	}

	if err := s.repo.SetStatus(signal.ID, storage.StatusConfirmed); err != nil {
		s.statusError(c, err)
		return
	}
	s.repo.LogEvent("INFO", "web", fmt.Sprintf("signal %d confirmed (%s %s)", signal.ID, signal.TradeType, signal.Ticker))

	if !s.lock.TryAcquire() {
		c.JSON(http.StatusOK, gin.H{
			"status":  "confirmed",
			"message": "trade cycle running, signal will execute on the next pass",
		})
		return
	}
	defer s.lock.Release()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	result, err := s.engine.ProcessSignal(ctx, signal.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"status": "confirmed", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "confirmed", "result": result})
}

func (s *Server) rejectSignal(c *gin.Context) {
	signal, ok := s.signalFromPath(c)
	if !ok {
		return
	}

	if err := s.repo.SetStatus(signal.ID, storage.StatusRejected); err != nil {
		s.statusError(c, err)
		return
	}
	s.repo.LogEvent("INFO", "web", fmt.Sprintf("signal %d rejected by operator", signal.ID))
	c.JSON(http.StatusOK, gin.H{"status": "rejected"})
}

func (s *Server) deleteSignal(c *gin.Context) {
	signal, ok := s.signalFromPath(c)
	if !ok {
		return
	}

	if err := s.repo.DeleteSignal(signal.ID); err != nil {
		s.statusError(c, err)
		return
	}
	s.repo.LogEvent("WARNING", "web", fmt.Sprintf("signal %d purged by operator", signal.ID))
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

func (s *Server) triggerTrade(c *gin.Context) {
	if !s.lock.TryAcquire() {
		c.JSON(http.StatusConflict, gin.H{"error": "trade cycle is already running"})
		return
	}

	s.repo.LogEvent("INFO", "web", "trade cycle triggered via API")

	go func() {
		defer s.lock.Release()
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
		defer cancel()

		results, err := s.engine.ProcessPending(ctx)
		if err != nil {
			s.logger.Error("API-triggered trade cycle failed", "error", err)
			s.repo.LogEvent("ERROR", "web", fmt.Sprintf("trade cycle failed: %v", err))
			return
		}
		s.logger.Info("API-triggered trade cycle complete", "signals", len(results))
	}()

	c.JSON(http.StatusAccepted, gin.H{
		"success": true,
		"message": "trade cycle started in background",
	})
}

func (s *Server) actionStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"trader_running": s.lock.Running()})
}

func (s *Server) portfolio(c *gin.Context) {
	summary, err := s.broker.GetAccountSummary(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	positions, err := s.broker.GetPositions(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"total_value":    summary.TotalValue,
		"available_cash": summary.AvailableCash,
		"positions":      positions,
	})
}

func (s *Server) openProxies(c *gin.Context) {
	proxies, err := s.repo.OpenProxies()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, proxies)
}

func (s *Server) tradeHistory(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	if limit < 1 || limit > 500 {
		limit = 100
	}
	trades, err := s.repo.RecentTrades(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, trades)
}

func (s *Server) recentEvents(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	if limit < 1 || limit > 500 {
		limit = 100
	}
	events, err := s.repo.RecentEvents(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, events)
}

func (s *Server) health(c *gin.Context) {
	stats, err := s.repo.GetStats()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"status": "unhealthy", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":         "healthy",
		"environment":    s.config.Trading212.Environment,
		"trader_running": s.lock.Running(),
		"stats":          stats,
	})
}

func (s *Server) signalFromPath(c *gin.Context) (*storage.Signal, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid signal id"})
		return nil, false
	}
	signal, err := s.repo.GetSignal(uint(id))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "signal not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return nil, false
	}
	return signal, true
}

func (s *Server) statusError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, storage.ErrInvalidTransition):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, storage.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "signal not found"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
