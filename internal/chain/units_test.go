package chain

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatUnits(t *testing.T) {
	tests := []struct {
		raw      string
		decimals int
		want     string
	}{
		{"0", 18, "0"},
		{"1000000000000000000", 18, "1"},
		{"1500000000000000000", 18, "1.5"},
		{"1", 6, "0.000001"},
		{"42", 0, "42"},
		{"123456789", 6, "123.456789"},
	}
	for _, tt := range tests {
		raw, _ := new(big.Int).SetString(tt.raw, 10)
		assert.Equal(t, tt.want, FormatUnits(raw, tt.decimals), "FormatUnits(%s, %d)", tt.raw, tt.decimals)
	}
	assert.Equal(t, "0", FormatUnits(nil, 18))
}

func TestParseUnits(t *testing.T) {
	v, err := ParseUnits("1.5", 18)
	require.NoError(t, err)
	assert.Equal(t, "1500000000000000000", v.String())

	v, err = ParseUnits(".25", 6)
	require.NoError(t, err)
	assert.Equal(t, "250000", v.String())

	v, err = ParseUnits("7", 0)
	require.NoError(t, err)
	assert.Equal(t, "7", v.String())
}

func TestParseUnitsRejects(t *testing.T) {
	for _, in := range []string{"", "-1", "abc", "1.1234567"} {
		_, err := ParseUnits(in, 6)
		assert.Error(t, err, "input %q", in)
	}
}

func TestParseFormatRoundTrip(t *testing.T) {
	v, err := ParseUnits("0.000123", 18)
	require.NoError(t, err)
	assert.Equal(t, "0.000123", FormatUnits(v, 18))
}
