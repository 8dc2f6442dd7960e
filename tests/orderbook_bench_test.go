package tests

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/uhyunpark/optionpit/pkg/app/core/engine"
	"github.com/uhyunpark/optionpit/pkg/app/core/market"
	"github.com/uhyunpark/optionpit/pkg/app/core/orderbook"
)

// BenchmarkOrderbookInsert measures resting order insertion into a deep book
func BenchmarkOrderbookInsert(b *testing.B) {
	ob := orderbook.NewOrderBook(call50)

	// Pre-fill with 100 levels a side, 5 orders each
	for i := 0; i < 100; i++ {
		for j := 0; j < 5; j++ {
			ob.Insert(&orderbook.Order{Side: orderbook.Buy, Price: decimal.NewFromInt(int64(1000 - i)), Size: 100})
			ob.Insert(&orderbook.Order{Side: orderbook.Sell, Price: decimal.NewFromInt(int64(1100 + i)), Size: 100})
		}
	}

	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		side := orderbook.Buy
		price := int64(1000 - i%100)
		if i%2 == 0 {
			side = orderbook.Sell
			price = int64(1100 + i%100)
		}
		ob.Insert(&orderbook.Order{Side: side, Price: decimal.NewFromInt(price), Size: 10})
	}
}

// BenchmarkOrderbookBestPrice measures best bid/ask lookup
func BenchmarkOrderbookBestPrice(b *testing.B) {
	ob := orderbook.NewOrderBook(call50)
	for i := 0; i < 1000; i++ {
		ob.Insert(&orderbook.Order{Side: orderbook.Buy, Price: decimal.NewFromInt(int64(10000 - i)), Size: 100})
		ob.Insert(&orderbook.Order{Side: orderbook.Sell, Price: decimal.NewFromInt(int64(11000 + i)), Size: 100})
	}

	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		_, _ = ob.BestBid()
		_, _ = ob.BestAsk()
	}
}

// BenchmarkOrderbookLevels measures price level aggregation, used by the API feed
func BenchmarkOrderbookLevels(b *testing.B) {
	ob := orderbook.NewOrderBook(call50)
	for i := 0; i < 500; i++ {
		for j := 0; j < 5; j++ {
			ob.Insert(&orderbook.Order{Side: orderbook.Buy, Price: decimal.NewFromInt(int64(10000 - i)), Size: 100})
			ob.Insert(&orderbook.Order{Side: orderbook.Sell, Price: decimal.NewFromInt(int64(11000 + i)), Size: 100})
		}
	}

	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		_ = ob.BidLevels()
		_ = ob.AskLevels()
	}
}

// BenchmarkEngineTick simulates one busy tick: 4 teams placing crossing flow
// across the full universe, then a single match pass
func BenchmarkEngineTick(b *testing.B) {
	reg, _ := market.NewRegistry([]int64{50, 60, 70, 80, 90})
	eng := engine.New(reg, 4)
	symbols := eng.Symbols()

	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		for team := 0; team < 4; team++ {
			for k, sym := range symbols {
				side := orderbook.Buy
				if (team+k)%2 == 0 {
					side = orderbook.Sell
				}
				eng.Place(orderbook.TeamID(team), engine.OrderRequest{
					Symbol: sym,
					Side:   side,
					Price:  decimal.NewFromInt(int64(1 + (i+team+k)%5)),
					Size:   int64(1 + team),
				})
			}
		}
		eng.MatchAll()
	}
}
