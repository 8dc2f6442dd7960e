package ledger

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/uhyunpark/optionpit/pkg/app/core/market"
	"github.com/uhyunpark/optionpit/pkg/app/core/orderbook"
)

// View is the read side of the ledger handed to everything except the engine
type View interface {
	Teams() []orderbook.TeamID
	Cash(team orderbook.TeamID) decimal.Decimal
	Position(team orderbook.TeamID, sym market.Symbol) int64
	Positions(team orderbook.TeamID) map[market.Symbol]int64
	MarkToMarket(team orderbook.TeamID) decimal.Decimal
}

// account is one team's cash and per-symbol position
type account struct {
	cash      decimal.Decimal
	positions map[market.Symbol]int64
}

// Ledger tracks cash and positions for every team.
// Accounts are created up front with zero cash and a zero position in every
// universe symbol, and are never removed. There is no validation: cash may go
// negative and positions are unbounded.
type Ledger struct {
	accounts map[orderbook.TeamID]*account
	teams    []orderbook.TeamID
}

// New creates accounts for teams 0..teams-1 over the given universe
func New(teams int, universe []market.Symbol) *Ledger {
	l := &Ledger{
		accounts: make(map[orderbook.TeamID]*account, teams),
		teams:    make([]orderbook.TeamID, 0, teams),
	}
	for i := 0; i < teams; i++ {
		id := orderbook.TeamID(i)
		acc := &account{positions: make(map[market.Symbol]int64, len(universe))}
		for _, s := range universe {
			acc.positions[s] = 0
		}
		l.accounts[id] = acc
		l.teams = append(l.teams, id)
	}
	return l
}

// get returns the team's account, opening it on first use for ids outside
// the initial range
func (l *Ledger) get(team orderbook.TeamID) *account {
	acc, ok := l.accounts[team]
	if !ok {
		acc = &account{positions: make(map[market.Symbol]int64)}
		l.accounts[team] = acc
		l.teams = append(l.teams, team)
		sort.Slice(l.teams, func(i, j int) bool { return l.teams[i] < l.teams[j] })
	}
	return acc
}

func (l *Ledger) Debit(team orderbook.TeamID, amount decimal.Decimal) {
	acc := l.get(team)
	acc.cash = acc.cash.Sub(amount)
}

func (l *Ledger) Credit(team orderbook.TeamID, amount decimal.Decimal) {
	acc := l.get(team)
	acc.cash = acc.cash.Add(amount)
}

func (l *Ledger) AdjustPosition(team orderbook.TeamID, sym market.Symbol, delta int64) {
	acc := l.get(team)
	acc.positions[sym] += delta
}

// Teams returns team ids in ascending order
func (l *Ledger) Teams() []orderbook.TeamID {
	out := make([]orderbook.TeamID, len(l.teams))
	copy(out, l.teams)
	return out
}

func (l *Ledger) Cash(team orderbook.TeamID) decimal.Decimal {
	if acc, ok := l.accounts[team]; ok {
		return acc.cash
	}
	return decimal.Zero
}

func (l *Ledger) Position(team orderbook.TeamID, sym market.Symbol) int64 {
	if acc, ok := l.accounts[team]; ok {
		return acc.positions[sym]
	}
	return 0
}

// Positions returns a copy of the team's positions, zeros included
func (l *Ledger) Positions(team orderbook.TeamID) map[market.Symbol]int64 {
	acc, ok := l.accounts[team]
	if !ok {
		return map[market.Symbol]int64{}
	}
	out := make(map[market.Symbol]int64, len(acc.positions))
	for s, q := range acc.positions {
		out[s] = q
	}
	return out
}

// MarkToMarket values a team at its cash alone. Option positions are only
// valued at expiry.
func (l *Ledger) MarkToMarket(team orderbook.TeamID) decimal.Decimal {
	return l.Cash(team)
}

var _ View = (*Ledger)(nil)
