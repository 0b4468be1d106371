package web

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"congress-alpha/internal/broker"
	"congress-alpha/internal/config"
	"congress-alpha/internal/engine"
	"congress-alpha/internal/logger"
	"congress-alpha/internal/sector"
	"congress-alpha/internal/storage"
)

type stubBroker struct {
	orders int
}

func (f *stubBroker) GetAccountSummary(ctx context.Context) (*broker.AccountSummary, error) {
	return &broker.AccountSummary{TotalValue: 100_000, AvailableCash: 50_000}, nil
}

func (f *stubBroker) GetPosition(ctx context.Context, ticker string) (*broker.Position, error) {
	return nil, nil
}

func (f *stubBroker) PlaceMarketOrder(ctx context.Context, ticker string, quantity float64) (*broker.OrderResult, error) {
	f.orders++
	return &broker.OrderResult{OrderID: fmt.Sprintf("order-%d", f.orders)}, nil
}

type stubMarketData struct{}

func (f *stubMarketData) GetPrice(ctx context.Context, ticker string) (float64, error) {
	return 50, nil
}

func (f *stubMarketData) GetMarketCap(ctx context.Context, ticker string) (float64, error) {
	return 1e12, nil
}

func newTestServer(t *testing.T) (*Server, *storage.Repository, *stubBroker) {
	t.Helper()

	cfg := &config.Config{}
	cfg.Trading212 = config.Trading212Config{APIKey: "k", APISecret: "s", Environment: "demo"}
	cfg.Trading = config.TradingConfig{
		MinMarketCap: 300_000_000, WashSaleDays: 30,
		StaleSignalDays: 45, MaxSignalAgeDays: 90,
		LowConviction: 15_000, HighConviction: 250_000,
		BasePositionPct: 0.02, MaxPositionPct: 0.06,
		MinTradeAmount: 100, CashBufferPct: 0.05,
	}
	cfg.Sector = config.SectorConfig{DefaultETF: "SPY"}
	cfg.Web = config.WebConfig{Port: 0}

	db, err := storage.NewDatabase(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	repo := storage.NewRepository(db)

	log := logger.New("error")
	fb := &stubBroker{}
	eng := engine.NewEngine(repo, fb, &stubMarketData{}, sector.NewMapper(cfg.Sector), nil, cfg, log)

	srv := NewServer(eng, &engine.CycleLock{}, broker.NewClient(cfg, log), repo, cfg, log)
	return srv, repo, fb
}

func doRequest(srv *Server, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.httpServer.Handler.ServeHTTP(w, req)
	return w
}

func TestCreateSignal(t *testing.T) {
	srv, _, _ := newTestServer(t)

	payload := `{
		"ticker": "aapl",
		"politician": "Jane Doe",
		"trade_type": "purchase",
		"amount_midpoint": 32500,
		"trade_date": "2026-01-05",
		"disclosure_date": "2026-01-25",
		"chamber": "house"
	}`

	w := doRequest(srv, http.MethodPost, "/api/signals", payload)
	require.Equal(t, http.StatusCreated, w.Code)

	var created storage.Signal
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, "AAPL", created.Ticker)
	assert.Equal(t, storage.StatusPending, created.Status)
	// Lag derived from the two dates when not supplied.
	assert.Equal(t, 20, created.LagDays)

	// Re-delivering the same disclosure conflicts.
	w = doRequest(srv, http.MethodPost, "/api/signals", payload)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestCreateSignalValidation(t *testing.T) {
	srv, _, _ := newTestServer(t)

	w := doRequest(srv, http.MethodPost, "/api/signals", `{"ticker": "AAPL"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(srv, http.MethodPost, "/api/signals", `{
		"ticker": "AAPL", "politician": "Jane Doe", "trade_type": "short",
		"amount_midpoint": 1000, "trade_date": "2026-01-05", "disclosure_date": "2026-01-06"
	}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestConfirmFlow(t *testing.T) {
	srv, repo, fb := newTestServer(t)

	s := &storage.Signal{
		Ticker: "AAPL", Politician: "Jane Doe", TradeType: storage.TradePurchase,
		AmountMidpoint: 32_500, TradeDate: "2026-01-05", DisclosureDate: "2026-01-10",
		LagDays: 5, Chamber: "house",
	}
	require.NoError(t, repo.InsertSignal(s))

	// A signal the engine has not yet held for review cannot be confirmed.
	w := doRequest(srv, http.MethodPost, fmt.Sprintf("/api/signals/%d/confirm", s.ID), "")
	assert.Equal(t, http.StatusConflict, w.Code)

	require.NoError(t, repo.SetStatus(s.ID, storage.StatusPendingConfirmation))

	w = doRequest(srv, http.MethodPost, fmt.Sprintf("/api/signals/%d/confirm", s.ID), "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, fb.orders)

	got, err := repo.GetSignal(s.ID)
	require.NoError(t, err)
	assert.Equal(t, storage.StatusExecuted, got.Status)
}

func TestRejectSignal(t *testing.T) {
	srv, repo, fb := newTestServer(t)

	s := &storage.Signal{
		Ticker: "MSFT", Politician: "John Roe", TradeType: storage.TradePurchase,
		AmountMidpoint: 32_500, TradeDate: "2026-01-05", DisclosureDate: "2026-01-10",
		LagDays: 5, Chamber: "senate",
	}
	require.NoError(t, repo.InsertSignal(s))
	require.NoError(t, repo.SetStatus(s.ID, storage.StatusPendingConfirmation))

	w := doRequest(srv, http.MethodPost, fmt.Sprintf("/api/signals/%d/reject", s.ID), "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Zero(t, fb.orders)

	got, err := repo.GetSignal(s.ID)
	require.NoError(t, err)
	assert.Equal(t, storage.StatusRejected, got.Status)

	// Rejection is terminal.
	w = doRequest(srv, http.MethodPost, fmt.Sprintf("/api/signals/%d/confirm", s.ID), "")
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestTriggerTradeConflictsWhileRunning(t *testing.T) {
	srv, _, _ := newTestServer(t)

	require.True(t, srv.lock.TryAcquire())
	defer srv.lock.Release()

	w := doRequest(srv, http.MethodPost, "/api/actions/trade", "")
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestSignalNotFound(t *testing.T) {
	srv, _, _ := newTestServer(t)

	w := doRequest(srv, http.MethodGet, "/api/signals/999", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doRequest(srv, http.MethodGet, "/api/signals/abc", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHealth(t *testing.T) {
	srv, _, _ := newTestServer(t)

	w := doRequest(srv, http.MethodGet, "/api/health", "")
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "demo", body["environment"])
	assert.Equal(t, false, body["trader_running"])
}
