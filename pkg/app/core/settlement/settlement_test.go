package settlement

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uhyunpark/optionpit/pkg/app/core/ledger"
	"github.com/uhyunpark/optionpit/pkg/app/core/market"
	"github.com/uhyunpark/optionpit/pkg/app/core/orderbook"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestPayoff(t *testing.T) {
	tests := []struct {
		name       string
		sym        market.Symbol
		underlying string
		want       string
	}{
		{"call in the money", market.Symbol{Strike: 50, Kind: market.Call}, "75", "25"},
		{"call at the money", market.Symbol{Strike: 50, Kind: market.Call}, "50", "0"},
		{"call out of the money", market.Symbol{Strike: 50, Kind: market.Call}, "20", "0"},
		{"put in the money", market.Symbol{Strike: 60, Kind: market.Put}, "45.5", "14.5"},
		{"put out of the money", market.Symbol{Strike: 60, Kind: market.Put}, "61", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Payoff(tt.sym, dec(tt.underlying))
			assert.True(t, got.Equal(dec(tt.want)), "got %s want %s", got, tt.want)
		})
	}
}

func TestSettle_Example(t *testing.T) {
	call50 := market.Symbol{Strike: 50, Kind: market.Call}
	l := ledger.New(2, market.Universe([]int64{50, 60}))
	l.Debit(0, dec("2.0"))
	l.Credit(1, dec("2.0"))
	l.AdjustPosition(0, call50, 1)
	l.AdjustPosition(1, call50, -1)

	pnl := Settle(l, dec("75"))
	require.Len(t, pnl, 2)
	assert.True(t, pnl[0].Equal(dec("23")), "team 0 pnl %s", pnl[0])
	assert.True(t, pnl[1].Equal(dec("-23")), "team 1 pnl %s", pnl[1])

	// settling does not touch the ledger
	assert.True(t, l.Cash(0).Equal(dec("-2")))
	assert.Equal(t, int64(1), l.Position(0, call50))
}

func TestBreakdown(t *testing.T) {
	put70 := market.Symbol{Strike: 70, Kind: market.Put}
	call60 := market.Symbol{Strike: 60, Kind: market.Call}
	l := ledger.New(1, market.Universe([]int64{60, 70}))
	l.Credit(0, dec("3"))
	l.AdjustPosition(0, put70, -2)
	l.AdjustPosition(0, call60, 1)

	// U=65: put70 pays 5 (x -2 = -10), call60 pays 5 (x 1 = 5)
	res := Breakdown(l, dec("65"))
	require.Len(t, res, 1)
	assert.True(t, res[0].Cash.Equal(dec("3")))
	assert.True(t, res[0].Payoff.Equal(dec("-5")))
	assert.True(t, res[0].PnL.Equal(dec("-2")))
}

func TestSettle_ZeroSumAcrossTeams(t *testing.T) {
	universe := market.Universe([]int64{50, 60, 70})
	l := ledger.New(3, universe)
	// every trade is between two teams, so cash and positions net to zero
	trades := []struct {
		buyer, seller int
		sym           market.Symbol
		price         string
		size          int64
	}{
		{0, 1, universe[0], "1.5", 2},
		{2, 0, universe[3], "0.75", 1},
		{1, 2, universe[5], "4", 3},
	}
	for _, tr := range trades {
		n := dec(tr.price).Mul(decimal.NewFromInt(tr.size))
		l.Debit(teamID(tr.buyer), n)
		l.Credit(teamID(tr.seller), n)
		l.AdjustPosition(teamID(tr.buyer), tr.sym, tr.size)
		l.AdjustPosition(teamID(tr.seller), tr.sym, -tr.size)
	}

	total := decimal.Zero
	for _, v := range Settle(l, dec("57")) {
		total = total.Add(v)
	}
	assert.True(t, total.IsZero(), "total pnl %s", total)
}

func teamID(i int) orderbook.TeamID { return orderbook.TeamID(i) }
