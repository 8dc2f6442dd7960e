package orderbook

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/uhyunpark/optionpit/pkg/app/core/market"
)

// OrderKey addresses an order the way participants see it
type OrderKey struct {
	Team TeamID
	ID   OrderID
}

// OrderInfo mirrors a resting order's current state
type OrderInfo struct {
	Symbol market.Symbol
	Side   Side
	Price  decimal.Decimal
	Size   int64
}

// Registry maps (team, order id) to the order's current state.
// The engine keeps it in step with the books: an entry exists exactly while
// the order rests in a queue.
type Registry struct {
	entries map[OrderKey]OrderInfo
}

func NewRegistry() *Registry {
	return &Registry{entries: make(map[OrderKey]OrderInfo)}
}

func (r *Registry) Add(o *Order) {
	r.entries[OrderKey{Team: o.Team, ID: o.ID}] = OrderInfo{
		Symbol: o.Symbol,
		Side:   o.Side,
		Price:  o.Price,
		Size:   o.Size,
	}
}

// Resize records a partial fill
func (r *Registry) Resize(k OrderKey, size int64) {
	info, ok := r.entries[k]
	if !ok {
		return
	}
	info.Size = size
	r.entries[k] = info
}

func (r *Registry) Remove(k OrderKey) {
	delete(r.entries, k)
}

func (r *Registry) Get(k OrderKey) (OrderInfo, bool) {
	info, ok := r.entries[k]
	return info, ok
}

func (r *Registry) Len() int {
	return len(r.entries)
}

// OpenOrder pairs a registry key with its state
type OpenOrder struct {
	OrderKey
	OrderInfo
}

// ByTeam lists a team's open orders in id order
func (r *Registry) ByTeam(team TeamID) []OpenOrder {
	var out []OpenOrder
	for k, info := range r.entries {
		if k.Team == team {
			out = append(out, OpenOrder{OrderKey: k, OrderInfo: info})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
