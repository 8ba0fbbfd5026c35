package money

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in   string
		want Milliunits
	}{
		{"123.45", 123450},
		{"-45.23", -45230},
		{"$1,234.56", 1234560},
		{"($12.34)", -12340},
		{"12.34-", -12340},
		{"  -$0.01 ", -10},
		{"R$ -2.327,00", -2327000},
		{"-287,00", -287000},
		{"1,234", 1234000},
		{"€ 99", 99000},
		{"+5", 5000},
		{"0.0015", 2},
		{"-0.0015", -2},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Parse(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseInvalid(t *testing.T) {
	for _, in := range []string{"", "abc", "--", "1-2"} {
		_, err := Parse(in)
		assert.ErrorIs(t, err, ErrInvalidAmount, "input %q", in)
	}
}

func TestStringRoundTrip(t *testing.T) {
	for _, m := range []Milliunits{0, 10, -10, 45230, -45230, 1234560, -99990} {
		back, err := Parse(m.String())
		require.NoError(t, err)
		assert.Equal(t, m, back)
	}

	// sub-cent values round at the cent boundary
	back, err := Parse(Milliunits(12345).String())
	require.NoError(t, err)
	assert.Equal(t, Milliunits(12350), back)
}

func TestFromFloat(t *testing.T) {
	assert.Equal(t, Milliunits(-45230), FromFloat(-45.23))
	assert.Equal(t, Milliunits(127430), FromFloat(127.43))
	assert.Equal(t, Milliunits(10), FromCents(1))
}

func TestDisplay(t *testing.T) {
	assert.Equal(t, "-$45.23", Milliunits(-45230).Display("$"))
	assert.Equal(t, "$0.00", Milliunits(0).Display("$"))
	assert.True(t, Milliunits(-5000).IsMultipleOf(PerUnit))
	assert.False(t, Milliunits(0).IsMultipleOf(PerUnit))
	assert.Equal(t, -1, Milliunits(-1).Sign())
}
