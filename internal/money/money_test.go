package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRound_HalfUp(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"half rounds up", "8540.5320", "8540.53"},
		{"exact half", "0.125", "0.13"},
		{"below half", "0.124", "0.12"},
		{"negative half away from zero", "-0.125", "-0.13"},
		{"already rounded", "42.00", "42"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Round(decimal.RequireFromString(tt.in))
			assert.True(t, got.Equal(decimal.RequireFromString(tt.want)), "got %s", got)
		})
	}
}

func TestDiv_ZeroDivisor(t *testing.T) {
	assert.True(t, Div(decimal.NewFromInt(10), Zero).IsZero())
	assert.Equal(t, "3.33", Div(decimal.NewFromInt(10), decimal.NewFromInt(3)).StringFixed(2))
}

func TestPercent(t *testing.T) {
	assert.Equal(t, "50.00", Percent(decimal.NewFromInt(1), decimal.NewFromInt(2), Zero).StringFixed(2))
	assert.True(t, Percent(decimal.NewFromInt(1), Zero, Hundred).Equal(Hundred))
}

func TestNonNegative(t *testing.T) {
	assert.True(t, NonNegative(decimal.NewFromInt(-5)).IsZero())
	assert.True(t, NonNegative(decimal.NewFromInt(5)).Equal(decimal.NewFromInt(5)))
}

func TestParse(t *testing.T) {
	d, err := Parse(" 11400.004 ")
	require.NoError(t, err)
	assert.Equal(t, "11400.00", d.StringFixed(2))

	_, err = Parse("abc")
	assert.Error(t, err)
}

func TestEuro(t *testing.T) {
	assert.Equal(t, "1234.50€", Euro(decimal.RequireFromString("1234.5")))
}
