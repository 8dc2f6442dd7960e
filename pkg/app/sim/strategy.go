package sim

import (
	"fmt"
	"math/rand"

	"github.com/shopspring/decimal"

	"github.com/uhyunpark/optionpit/pkg/app/core/engine"
	"github.com/uhyunpark/optionpit/pkg/app/core/market"
	"github.com/uhyunpark/optionpit/pkg/app/core/orderbook"
)

// TeamOrders is one team's requests for one tick
type TeamOrders struct {
	Team     orderbook.TeamID
	Requests []engine.OrderRequest
}

// Strategy decides a team's orders for the current tick given everything
// every team requested on the previous tick (empty on tick 1).
// Ticks start at 1.
type Strategy interface {
	Orders(last []TeamOrders, team orderbook.TeamID, tick int) ([]engine.OrderRequest, error)
}

// StrategyFunc adapts a plain function to Strategy
type StrategyFunc func(last []TeamOrders, team orderbook.TeamID, tick int) ([]engine.OrderRequest, error)

func (f StrategyFunc) Orders(last []TeamOrders, team orderbook.TeamID, tick int) ([]engine.OrderRequest, error) {
	return f(last, team, tick)
}

// Idle never trades
var Idle = StrategyFunc(func([]TeamOrders, orderbook.TeamID, int) ([]engine.OrderRequest, error) {
	return nil, nil
})

// RandomStrategy places zero to two orders per tick on random symbols, with
// prices uniform in [0, MaxPrice) rounded to cents and sizes 1..MaxSize.
type RandomStrategy struct {
	rng      *rand.Rand
	symbols  []market.Symbol
	MaxPrice decimal.Decimal
	MaxSize  int64
}

func NewRandomStrategy(seed int64, symbols []market.Symbol) *RandomStrategy {
	return &RandomStrategy{
		rng:      rand.New(rand.NewSource(seed)),
		symbols:  symbols,
		MaxPrice: decimal.NewFromInt(5),
		MaxSize:  3,
	}
}

func (r *RandomStrategy) Orders(_ []TeamOrders, _ orderbook.TeamID, _ int) ([]engine.OrderRequest, error) {
	if len(r.symbols) == 0 {
		return nil, fmt.Errorf("random strategy has no symbols")
	}
	n := r.rng.Intn(3)
	out := make([]engine.OrderRequest, 0, n)
	for i := 0; i < n; i++ {
		side := orderbook.Buy
		if r.rng.Intn(2) == 1 {
			side = orderbook.Sell
		}
		price := decimal.NewFromFloat(r.rng.Float64()).Mul(r.MaxPrice).Round(2)
		out = append(out, engine.OrderRequest{
			Symbol: r.symbols[r.rng.Intn(len(r.symbols))],
			Side:   side,
			Price:  price,
			Size:   1 + r.rng.Int63n(r.MaxSize),
		})
	}
	return out, nil
}

func cloneOrders(in []TeamOrders) []TeamOrders {
	out := make([]TeamOrders, len(in))
	for i, t := range in {
		out[i] = TeamOrders{Team: t.Team, Requests: append([]engine.OrderRequest(nil), t.Requests...)}
	}
	return out
}
