package sector

import (
	"strings"

	"congress-alpha/internal/config"
)

// Mapper resolves the sector ETF that substitutes for a stale ticker.
// The mapping is configuration data; unknown tickers fall back to the
// default broad-market ETF.
type Mapper struct {
	defaultETF string
	mapping    map[string]string
}

func NewMapper(cfg config.SectorConfig) *Mapper {
	m := &Mapper{
		defaultETF: cfg.DefaultETF,
		mapping:    make(map[string]string, len(cfg.Map)),
	}
	for ticker, etf := range cfg.Map {
		m.mapping[strings.ToUpper(ticker)] = strings.ToUpper(etf)
	}
	return m
}

func (m *Mapper) ETFFor(ticker string) string {
	if etf, ok := m.mapping[strings.ToUpper(ticker)]; ok {
		return etf
	}
	return m.defaultETF
}
