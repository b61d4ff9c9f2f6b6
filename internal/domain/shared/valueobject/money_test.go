package valueobject

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
)

func TestNewMoney(t *testing.T) {
	t.Run("creates money with valid amount and currency", func(t *testing.T) {
		m, err := NewMoney(decimal.NewFromFloat(100.50), USD)
		require.NoError(t, err)
		assert.Equal(t, USD, m.Currency())
		assert.True(t, m.Amount().Equal(decimal.NewFromFloat(100.50)))
	})

	t.Run("returns error for empty currency", func(t *testing.T) {
		_, err := NewMoney(decimal.NewFromFloat(100), "")
		assert.ErrorIs(t, err, ErrEmptyCurrency)
	})
}

func TestMoney_MinorUnits(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{"40.00", 4000},
		{"40", 4000},
		{"12.345", 1235},
		{"12.344", 1234},
		{"0.01", 1},
		{"1234.5", 123450},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			m, err := NewMoneyFromString(tt.in, USD)
			require.NoError(t, err)
			assert.Equal(t, tt.want, m.MinorUnits())
		})
	}
}

func TestNewMoneyFromString_Invalid(t *testing.T) {
	_, err := NewMoneyFromString("N/A", USD)
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestNewMoneyFromMinorUnits(t *testing.T) {
	m, err := NewMoneyFromMinorUnits(4050, USD)
	require.NoError(t, err)
	assert.Equal(t, "40.50 USD", m.String())
	assert.Equal(t, int64(4050), m.MinorUnits())
}

func TestMoney_Add(t *testing.T) {
	a, _ := NewMoneyFromString("10.25", USD)
	b, _ := NewMoneyFromString("4.75", USD)

	sum, err := a.Add(b)
	require.NoError(t, err)
	assert.Equal(t, int64(1500), sum.MinorUnits())

	c, _ := NewMoneyFromString("1", CAD)
	_, err = a.Add(c)
	assert.ErrorIs(t, err, ErrCurrencyMismatch)
}

func TestMoney_MultiplyByInt(t *testing.T) {
	m, _ := NewMoneyFromString("9.85", USD)
	assert.Equal(t, int64(2955), m.MultiplyByInt(3).MinorUnits())
}

func TestMoney_Label(t *testing.T) {
	m, _ := NewMoneyFromString("40", USD)

	label := m.Label(language.AmericanEnglish)
	assert.Contains(t, label, "$")
	assert.Contains(t, label, "40.00")

	unknown, _ := NewMoney(decimal.NewFromInt(5), Currency("XYZ1"))
	assert.Equal(t, "5.00 XYZ1", unknown.Label(language.AmericanEnglish))
}
