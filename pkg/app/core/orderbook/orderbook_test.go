package orderbook

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/uhyunpark/optionpit/pkg/app/core/market"
)

var sym50C = market.Symbol{Strike: 50, Kind: market.Call}

func px(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newOrder(id OrderID, team TeamID, side Side, price string, size int64) *Order {
	return &Order{ID: id, Team: team, Side: side, Price: px(price), Size: size}
}

func ids(orders []Order) []OrderID {
	out := make([]OrderID, len(orders))
	for i, o := range orders {
		out[i] = o.ID
	}
	return out
}

func TestInsert_BidsDescendingFIFO(t *testing.T) {
	ob := NewOrderBook(sym50C)
	ob.Insert(newOrder(1, 0, Buy, "2.0", 1))
	ob.Insert(newOrder(2, 1, Buy, "3.0", 1))
	ob.Insert(newOrder(3, 2, Buy, "2.0", 1))
	ob.Insert(newOrder(4, 0, Buy, "1.5", 1))
	ob.Insert(newOrder(5, 1, Buy, "3.0", 1))

	assert.Equal(t, []OrderID{2, 5, 1, 3, 4}, ids(ob.Bids()))

	best, ok := ob.BestBid()
	require.True(t, ok)
	assert.Equal(t, OrderID(2), best.ID)
}

func TestInsert_AsksAscendingFIFO(t *testing.T) {
	ob := NewOrderBook(sym50C)
	ob.Insert(newOrder(1, 0, Sell, "2.0", 1))
	ob.Insert(newOrder(2, 1, Sell, "1.0", 1))
	ob.Insert(newOrder(3, 2, Sell, "2.0", 1))
	ob.Insert(newOrder(4, 0, Sell, "4.0", 1))
	ob.Insert(newOrder(5, 1, Sell, "1.0", 1))

	assert.Equal(t, []OrderID{2, 5, 1, 3, 4}, ids(ob.Asks()))
}

func TestMatch_PartialFill(t *testing.T) {
	ob := NewOrderBook(sym50C)
	ob.Insert(newOrder(1, 0, Buy, "3.0", 5))
	ob.Insert(newOrder(2, 1, Sell, "2.0", 2))

	fills := ob.Match()
	require.Len(t, fills, 1)
	f := fills[0]
	assert.True(t, f.Price.Equal(px("2.0")), "trades at the ask, got %s", f.Price)
	assert.Equal(t, int64(2), f.Size)
	assert.Equal(t, int64(3), f.BuyRemaining)
	assert.Equal(t, int64(0), f.SellRemaining)
	assert.True(t, f.Notional().Equal(px("4")))

	bid, ok := ob.BestBid()
	require.True(t, ok)
	assert.Equal(t, OrderID(1), bid.ID)
	assert.Equal(t, int64(3), bid.Size)
	_, ok = ob.BestAsk()
	assert.False(t, ok)
}

func TestMatch_SweepsLevelsAtAskPrices(t *testing.T) {
	ob := NewOrderBook(sym50C)
	ob.Insert(newOrder(1, 1, Sell, "1.0", 1))
	ob.Insert(newOrder(2, 1, Sell, "2.0", 2))
	ob.Insert(newOrder(3, 1, Sell, "5.0", 1))
	ob.Insert(newOrder(4, 0, Buy, "2.5", 4))

	fills := ob.Match()
	require.Len(t, fills, 2)
	assert.True(t, fills[0].Price.Equal(px("1.0")))
	assert.Equal(t, int64(1), fills[0].Size)
	assert.True(t, fills[1].Price.Equal(px("2.0")))
	assert.Equal(t, int64(2), fills[1].Size)

	assert.False(t, ob.Crossed())
	bid, _ := ob.BestBid()
	assert.Equal(t, int64(1), bid.Size)
	ask, _ := ob.BestAsk()
	assert.Equal(t, OrderID(3), ask.ID)
}

func TestMatch_EqualPriceCrosses(t *testing.T) {
	ob := NewOrderBook(sym50C)
	ob.Insert(newOrder(1, 0, Buy, "2.0", 1))
	ob.Insert(newOrder(2, 0, Sell, "2.0", 1))

	fills := ob.Match()
	require.Len(t, fills, 1)
	// same team on both sides: self-trades are allowed
	assert.Equal(t, fills[0].Buyer, fills[0].Seller)
	bids, asks := ob.Len()
	assert.Zero(t, bids)
	assert.Zero(t, asks)
}

func TestMatch_OneSidedBookDoesNothing(t *testing.T) {
	ob := NewOrderBook(sym50C)
	ob.Insert(newOrder(1, 0, Buy, "2.0", 1))
	assert.Empty(t, ob.Match())
	assert.False(t, ob.Crossed())
}

func TestLevels(t *testing.T) {
	ob := NewOrderBook(sym50C)
	ob.Insert(newOrder(1, 0, Buy, "2.0", 1))
	ob.Insert(newOrder(2, 1, Buy, "2.00", 3))
	ob.Insert(newOrder(3, 1, Buy, "1.0", 2))

	levels := ob.BidLevels()
	require.Len(t, levels, 2)
	assert.True(t, levels[0].Price.Equal(px("2")))
	assert.Equal(t, int64(4), levels[0].Size)
	assert.Equal(t, 2, levels[0].Orders)
	assert.Equal(t, int64(2), levels[1].Size)
	assert.Empty(t, ob.AskLevels())
}

// Every sequence of inserts leaves both queues sorted with FIFO ties, and
// matching always leaves the book uncrossed with positive sizes.
func TestProperty_SortedAndUncrossed(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		ob := NewOrderBook(sym50C)
		n := rapid.IntRange(1, 60).Draw(t, "n")
		for i := 1; i <= n; i++ {
			side := rapid.SampledFrom([]Side{Buy, Sell}).Draw(t, "side")
			cents := rapid.Int64Range(0, 20).Draw(t, "cents")
			size := rapid.Int64Range(1, 5).Draw(t, "size")
			ob.Insert(&Order{
				ID:    OrderID(i),
				Team:  TeamID(i % 3),
				Side:  side,
				Price: decimal.New(cents, -1),
				Size:  size,
			})
			checkSorted(t, ob)
		}

		for _, f := range ob.Match() {
			if f.Size <= 0 {
				t.Fatalf("fill with non-positive size %d", f.Size)
			}
		}
		if ob.Crossed() {
			t.Fatalf("book still crossed after match")
		}
		checkSorted(t, ob)
		for _, o := range append(ob.Bids(), ob.Asks()...) {
			if o.Size <= 0 {
				t.Fatalf("resting order %d has size %d", o.ID, o.Size)
			}
		}
	})
}

func checkSorted(t *rapid.T, ob *OrderBook) {
	bids := ob.Bids()
	for i := 1; i < len(bids); i++ {
		prev, cur := bids[i-1], bids[i]
		c := prev.Price.Cmp(cur.Price)
		if c < 0 || (c == 0 && prev.ID > cur.ID) {
			t.Fatalf("bids out of order at %d: %s#%d before %s#%d", i, prev.Price, prev.ID, cur.Price, cur.ID)
		}
	}
	asks := ob.Asks()
	for i := 1; i < len(asks); i++ {
		prev, cur := asks[i-1], asks[i]
		c := prev.Price.Cmp(cur.Price)
		if c > 0 || (c == 0 && prev.ID > cur.ID) {
			t.Fatalf("asks out of order at %d: %s#%d before %s#%d", i, prev.Price, prev.ID, cur.Price, cur.ID)
		}
	}
}

func TestInsert_NonBuySideRestsAsAsk(t *testing.T) {
	ob := NewOrderBook(sym50C)
	ob.Insert(newOrder(1, 0, Side(0), "2.0", 1))
	ob.Insert(newOrder(2, 0, Side(7), "1.0", 1))

	bids, asks := ob.Len()
	assert.Equal(t, 0, bids)
	assert.Equal(t, 2, asks)
	assert.Equal(t, []OrderID{2, 1}, ids(ob.Asks()))
}
