package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"congress-alpha/internal/sector"
	"congress-alpha/internal/storage"
)

func newTestRouter(t *testing.T) (*Router, *storage.Repository) {
	t.Helper()
	cfg := testConfig()
	repo := newTestRepo(t)
	return NewRouter(sector.NewMapper(cfg.Sector), repo, cfg.Trading), repo
}

func TestRouteBuyAgeBands(t *testing.T) {
	router, _ := newTestRouter(t)

	tests := []struct {
		name       string
		ticker     string
		lagDays    int
		wantTicker string
		wantType   string
		wantExpire bool
	}{
		{"fresh", "AAPL", 5, "AAPL", storage.SignalDirect, false},
		{"stale boundary is still fresh", "AAPL", 45, "AAPL", storage.SignalDirect, false},
		{"stale rotates to sector etf", "AAPL", 46, "XLK", storage.SignalSectorETF, false},
		{"unmapped stale falls back to default etf", "ZZZZ", 60, "SPY", storage.SignalSectorETF, false},
		{"expiry boundary still trades", "AAPL", 90, "XLK", storage.SignalSectorETF, false},
		{"past expiry", "AAPL", 91, "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := router.RouteBuy(&storage.Signal{Ticker: tt.ticker, LagDays: tt.lagDays})
			if tt.wantExpire {
				assert.True(t, d.Expired)
				return
			}
			assert.False(t, d.Expired)
			assert.Equal(t, tt.ticker, d.OriginalTicker)
			assert.Equal(t, tt.wantTicker, d.ExecutionTicker)
			assert.Equal(t, tt.wantType, d.SignalType)
		})
	}
}

func TestRouteSellWithoutProxyIsDirect(t *testing.T) {
	router, _ := newTestRouter(t)

	d, err := router.RouteSell(&storage.Signal{Ticker: "AAPL", Politician: "Jane Doe"})
	require.NoError(t, err)
	assert.Equal(t, "AAPL", d.ExecutionTicker)
	assert.Equal(t, storage.SignalDirect, d.SignalType)
	assert.Nil(t, d.Proxy)
}

func TestRouteSellFollowsOpenProxy(t *testing.T) {
	router, repo := newTestRouter(t)
	_, err := repo.RecordProxy("AAPL", "XLK", "Jane Doe", 10, 1)
	require.NoError(t, err)

	d, err := router.RouteSell(&storage.Signal{Ticker: "AAPL", Politician: "Jane Doe"})
	require.NoError(t, err)
	assert.Equal(t, "XLK", d.ExecutionTicker)
	assert.Equal(t, storage.SignalSectorETF, d.SignalType)
	require.NotNil(t, d.Proxy)
	assert.Equal(t, 10.0, d.Proxy.Shares)

	// Another politician's sell of the same ticker stays direct.
	d, err = router.RouteSell(&storage.Signal{Ticker: "AAPL", Politician: "John Roe"})
	require.NoError(t, err)
	assert.Equal(t, "AAPL", d.ExecutionTicker)
	assert.Nil(t, d.Proxy)
}

func TestRouteSellIgnoresClosedProxy(t *testing.T) {
	router, repo := newTestRouter(t)
	p, err := repo.RecordProxy("AAPL", "XLK", "Jane Doe", 10, 1)
	require.NoError(t, err)
	require.NoError(t, repo.CloseProxy(p.ID))

	d, err := router.RouteSell(&storage.Signal{Ticker: "AAPL", Politician: "Jane Doe"})
	require.NoError(t, err)
	assert.Equal(t, "AAPL", d.ExecutionTicker)
	assert.Nil(t, d.Proxy)
}
