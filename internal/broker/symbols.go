package broker

import (
	"strings"

	"congress-alpha/internal/config"
)

// SymbolMapper converts standard tickers to Trading212 instrument symbols
// and back (AAPL <-> AAPL_US_EQ). Irregular tickers like BRK.B come from
// the configured overrides.
type SymbolMapper struct {
	defaultSuffix string
	overrides     map[string]string
	reverse       map[string]string
}

func NewSymbolMapper(cfg config.SymbolsConfig) *SymbolMapper {
	m := &SymbolMapper{
		defaultSuffix: cfg.DefaultSuffix,
		overrides:     make(map[string]string, len(cfg.Overrides)),
		reverse:       make(map[string]string, len(cfg.Overrides)),
	}
	for ticker, symbol := range cfg.Overrides {
		upper := strings.ToUpper(ticker)
		m.overrides[upper] = symbol
		m.reverse[symbol] = upper
	}
	return m
}

func (m *SymbolMapper) ToTrading212(ticker string) string {
	upper := strings.ToUpper(ticker)
	if symbol, ok := m.overrides[upper]; ok {
		return symbol
	}
	return upper + m.defaultSuffix
}

func (m *SymbolMapper) FromTrading212(symbol string) string {
	if ticker, ok := m.reverse[symbol]; ok {
		return ticker
	}
	return strings.TrimSuffix(symbol, m.defaultSuffix)
}
