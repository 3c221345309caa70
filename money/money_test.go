package money_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/courtside/booking-engine/money"
)

func TestPercentOf_WholeRates(t *testing.T) {
	cases := []struct {
		name   string
		amount money.Amount
		rate   int64
		want   money.Amount
	}{
		{"quarter of 6000", 6000, 25, 1500},
		{"half of 6000", 6000, 50, 3000},
		{"full refund", 6000, 100, 6000},
		{"zero rate", 6000, 0, 0},
		{"zero amount", 0, 25, 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := money.PercentOf(tc.amount, money.NewPercent(tc.rate))
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestPercentOf_RoundsHalfAwayFromZero(t *testing.T) {
	// 25% of 3001 = 750.25 -> 750; 50% of 3001 = 1500.5 -> 1501
	assert.Equal(t, money.Amount(750), money.PercentOf(3001, money.NewPercent(25)))
	assert.Equal(t, money.Amount(1501), money.PercentOf(3001, money.NewPercent(50)))
}

func TestPercentOf_FractionalRate(t *testing.T) {
	// 12.5% of 6000 = 750, exactly
	rate := money.MustParsePercent("12.5")
	assert.Equal(t, money.Amount(750), money.PercentOf(6000, rate))
}

func TestMustParsePercent_InvalidIsZero(t *testing.T) {
	assert.True(t, money.MustParsePercent("not-a-number").Equal(decimal.Zero))
}

func TestAmount_String(t *testing.T) {
	assert.Equal(t, "60.00", money.Amount(6000).String())
	assert.Equal(t, "0.05", money.Amount(5).String())
	assert.Equal(t, "-5.00", money.Amount(-500).String())
}
