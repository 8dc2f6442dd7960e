// Package settlement values positions at expiry by intrinsic value
package settlement

import (
	"github.com/shopspring/decimal"

	"github.com/uhyunpark/optionpit/pkg/app/core/ledger"
	"github.com/uhyunpark/optionpit/pkg/app/core/market"
	"github.com/uhyunpark/optionpit/pkg/app/core/orderbook"
)

// Payoff returns the intrinsic value of one contract:
// Call max(0, U-K), Put max(0, K-U)
func Payoff(sym market.Symbol, underlying decimal.Decimal) decimal.Decimal {
	strike := decimal.NewFromInt(sym.Strike)
	var v decimal.Decimal
	if sym.Kind == market.Put {
		v = strike.Sub(underlying)
	} else {
		v = underlying.Sub(strike)
	}
	if v.IsNegative() {
		return decimal.Zero
	}
	return v
}

// TeamResult breaks a team's final PnL down
type TeamResult struct {
	Team   orderbook.TeamID
	Cash   decimal.Decimal
	Payoff decimal.Decimal // sum of position x payoff
	PnL    decimal.Decimal // Cash + Payoff
}

// Settle computes final PnL per team: cash plus position x payoff summed
// over every symbol with a non-zero position. It reads the ledger only.
func Settle(view ledger.View, underlying decimal.Decimal) map[orderbook.TeamID]decimal.Decimal {
	out := make(map[orderbook.TeamID]decimal.Decimal)
	for _, r := range Breakdown(view, underlying) {
		out[r.Team] = r.PnL
	}
	return out
}

// Breakdown is Settle with the cash and payoff legs kept apart, in team order
func Breakdown(view ledger.View, underlying decimal.Decimal) []TeamResult {
	teams := view.Teams()
	out := make([]TeamResult, 0, len(teams))
	for _, team := range teams {
		payoff := decimal.Zero
		for sym, qty := range view.Positions(team) {
			if qty == 0 {
				continue
			}
			payoff = payoff.Add(decimal.NewFromInt(qty).Mul(Payoff(sym, underlying)))
		}
		cash := view.Cash(team)
		out = append(out, TeamResult{
			Team:   team,
			Cash:   cash,
			Payoff: payoff,
			PnL:    cash.Add(payoff),
		})
	}
	return out
}
