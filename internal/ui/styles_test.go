package ui

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormattersKeepMessage(t *testing.T) {
	formatters := map[string]func(string) string{
		"Success":   Success,
		"Warn":      Warn,
		"Err":       Err,
		"Info":      Info,
		"Hint":      Hint,
		"Addr":      Addr,
		"Val":       Val,
		"Meta":      Meta,
		"ChainName": ChainName,
		"DangerBox": DangerBox,
	}
	for name, fn := range formatters {
		t.Run(name, func(t *testing.T) {
			assert.Contains(t, fn("sweep"), "sweep")
		})
	}
}

func TestPrefixes(t *testing.T) {
	assert.Contains(t, Success("x"), "✓")
	assert.Contains(t, Warn("x"), "⚠")
	assert.Contains(t, Err("x"), "✗")
	assert.Contains(t, Info("x"), "ℹ")
	assert.NotEqual(t, Info("x"), Hint("x"))
}

func TestTruncateAddr(t *testing.T) {
	assert.Equal(t, "", TruncateAddr(""))
	assert.Equal(t, "0x12345678", TruncateAddr("0x12345678"))
	assert.Equal(t, "0x1234…5678", TruncateAddr("0x1234567890abcdef1234567890abcdef12345678"))
}

func TestFormatUSD(t *testing.T) {
	tests := []struct {
		v      float64
		priced bool
		want   string
	}{
		{0, false, "-"},
		{12.5, false, "-"},
		{0, true, "$0.00"},
		{0.004, true, "<$0.01"},
		{0.42, true, "$0.42"},
		{999.999, true, "$1000.00"},
		{1234.5, true, "$1,234.50"},
		{1234567.891, true, "$1,234,567.89"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatUSD(tt.v, tt.priced), "%v", tt.v)
	}
}

func TestPadR(t *testing.T) {
	assert.Equal(t, "hi   ", padR("hi", 5))
	assert.Equal(t, "hello", padR("hello", 3))
	assert.Equal(t, "    ", padR("", 4))
}

func TestBanner(t *testing.T) {
	b := Banner("v0.3.0")
	assert.Contains(t, b, "v0.3.0")
	assert.Contains(t, b, "dust")
}
