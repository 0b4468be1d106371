package broker

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"congress-alpha/internal/config"
)

func TestSymbolMapper(t *testing.T) {
	m := NewSymbolMapper(config.SymbolsConfig{
		DefaultSuffix: "_US_EQ",
		Overrides: map[string]string{
			"BRK.B": "BRK_B_US_EQ",
		},
	})

	assert.Equal(t, "AAPL_US_EQ", m.ToTrading212("AAPL"))
	assert.Equal(t, "AAPL_US_EQ", m.ToTrading212("aapl"))
	assert.Equal(t, "BRK_B_US_EQ", m.ToTrading212("BRK.B"))

	assert.Equal(t, "AAPL", m.FromTrading212("AAPL_US_EQ"))
	assert.Equal(t, "BRK.B", m.FromTrading212("BRK_B_US_EQ"))

	// Unknown symbols without the suffix come back untouched.
	assert.Equal(t, "SPYL", m.FromTrading212("SPYL"))
}
