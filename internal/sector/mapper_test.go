package sector

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"congress-alpha/internal/config"
)

func TestMapperLookup(t *testing.T) {
	m := NewMapper(config.SectorConfig{
		DefaultETF: "SPY",
		Map: map[string]string{
			"AAPL": "XLK",
			"xom":  "xle",
		},
	})

	assert.Equal(t, "XLK", m.ETFFor("AAPL"))
	// Lookup and configuration are both case insensitive.
	assert.Equal(t, "XLK", m.ETFFor("aapl"))
	assert.Equal(t, "XLE", m.ETFFor("XOM"))

	// Unmapped tickers fall back to the broad-market default.
	assert.Equal(t, "SPY", m.ETFFor("ZZZZ"))
}

func TestMapperEmptyConfig(t *testing.T) {
	m := NewMapper(config.SectorConfig{DefaultETF: "SPY"})
	assert.Equal(t, "SPY", m.ETFFor("AAPL"))
}
