package orderbook

import (
	"github.com/tidwall/btree"

	"github.com/uhyunpark/optionpit/pkg/app/core/market"
)

// OrderBook holds the resting orders of one symbol.
//
// Each side is a btree ordered by price (bids high to low, asks low to high)
// and then by arrival. Inserting a new order therefore lands it right before
// the first resting order with a strictly worse price, behind every order at
// the same price: price-time priority without a separate timestamp.
//
// Not safe for concurrent use; the engine owns its books.
type OrderBook struct {
	symbol market.Symbol
	bids   *btree.BTreeG[*Order]
	asks   *btree.BTreeG[*Order]
	seq    uint64
}

func bidLess(a, b *Order) bool {
	if c := a.Price.Cmp(b.Price); c != 0 {
		return c > 0
	}
	return a.seq < b.seq
}

func askLess(a, b *Order) bool {
	if c := a.Price.Cmp(b.Price); c != 0 {
		return c < 0
	}
	return a.seq < b.seq
}

func NewOrderBook(sym market.Symbol) *OrderBook {
	opts := btree.Options{NoLocks: true}
	return &OrderBook{
		symbol: sym,
		bids:   btree.NewBTreeGOptions(bidLess, opts),
		asks:   btree.NewBTreeGOptions(askLess, opts),
	}
}

func (ob *OrderBook) Symbol() market.Symbol { return ob.symbol }

// Insert rests o on its side of the book. The caller must not insert an
// order with a non-positive size; the engine filters those out.
// Only Buy rests on the bid side: any other Side value, the zero value
// included, rests as a sell.
func (ob *OrderBook) Insert(o *Order) {
	ob.seq++
	o.seq = ob.seq
	o.Symbol = ob.symbol
	if o.Side == Buy {
		ob.bids.Set(o)
	} else {
		ob.asks.Set(o)
	}
}

// BestBid returns the front of the bid queue
func (ob *OrderBook) BestBid() (*Order, bool) {
	return ob.bids.Min()
}

// BestAsk returns the front of the ask queue
func (ob *OrderBook) BestAsk() (*Order, bool) {
	return ob.asks.Min()
}

// Crossed reports whether the best bid is at or above the best ask
func (ob *OrderBook) Crossed() bool {
	bid, ok := ob.bids.Min()
	if !ok {
		return false
	}
	ask, ok := ob.asks.Min()
	if !ok {
		return false
	}
	return bid.Price.GreaterThanOrEqual(ask.Price)
}

// Match crosses the book until it is no longer crossed.
// Every step trades min(bid, ask) at the ask's price; fully filled orders
// leave the front of their queue, a partially filled one keeps its place
// with a reduced size.
func (ob *OrderBook) Match() []Fill {
	var fills []Fill
	for ob.Crossed() {
		bid, _ := ob.bids.Min()
		ask, _ := ob.asks.Min()

		size := min(bid.Size, ask.Size)
		bid.Size -= size
		ask.Size -= size

		fills = append(fills, Fill{
			Symbol:        ob.symbol,
			Price:         ask.Price,
			Size:          size,
			BuyOrder:      bid.ID,
			Buyer:         bid.Team,
			SellOrder:     ask.ID,
			Seller:        ask.Team,
			BuyRemaining:  max(bid.Size, 0),
			SellRemaining: max(ask.Size, 0),
		})

		if bid.Size <= 0 {
			ob.bids.PopMin()
		}
		if ask.Size <= 0 {
			ob.asks.PopMin()
		}
	}
	return fills
}

// Bids returns copies of the bid queue, best first
func (ob *OrderBook) Bids() []Order {
	return snapshot(ob.bids)
}

// Asks returns copies of the ask queue, best first
func (ob *OrderBook) Asks() []Order {
	return snapshot(ob.asks)
}

func snapshot(side *btree.BTreeG[*Order]) []Order {
	out := make([]Order, 0, side.Len())
	side.Scan(func(o *Order) bool {
		out = append(out, *o)
		return true
	})
	return out
}

// BidLevels aggregates the bid queue by price, best (highest) first
func (ob *OrderBook) BidLevels() []PriceLevel {
	return levels(ob.bids)
}

// AskLevels aggregates the ask queue by price, best (lowest) first
func (ob *OrderBook) AskLevels() []PriceLevel {
	return levels(ob.asks)
}

func levels(side *btree.BTreeG[*Order]) []PriceLevel {
	var out []PriceLevel
	side.Scan(func(o *Order) bool {
		if n := len(out); n > 0 && out[n-1].Price.Equal(o.Price) {
			out[n-1].Size += o.Size
			out[n-1].Orders++
			return true
		}
		out = append(out, PriceLevel{Price: o.Price, Size: o.Size, Orders: 1})
		return true
	})
	return out
}

// Len returns the number of resting bids and asks
func (ob *OrderBook) Len() (bids, asks int) {
	return ob.bids.Len(), ob.asks.Len()
}
