package orderbook

import (
	"github.com/shopspring/decimal"

	"github.com/uhyunpark/optionpit/pkg/app/core/market"
)

type Side int8

const (
	Buy  Side = 1
	Sell Side = -1
)

func (s Side) String() string {
	switch s {
	case Buy:
		return "BUY"
	case Sell:
		return "SELL"
	default:
		return "UNKNOWN"
	}
}

// OrderID is unique for the lifetime of one engine
type OrderID uint64

// TeamID identifies a participant. Teams are numbered 0..N-1.
type TeamID int

type Order struct {
	ID     OrderID
	Team   TeamID
	Side   Side
	Price  decimal.Decimal // no sign check: negative prices are accepted
	Size   int64           // remaining size, always > 0 while resting
	Symbol market.Symbol

	seq uint64 // arrival order within the book, set on insert
}

// Fill is one crossing step between the best bid and the best ask.
// Price is always the ask's price.
type Fill struct {
	Symbol market.Symbol
	Price  decimal.Decimal
	Size   int64

	BuyOrder  OrderID
	Buyer     TeamID
	SellOrder OrderID
	Seller    TeamID

	// remaining sizes after the fill; 0 means the order left the book
	BuyRemaining  int64
	SellRemaining int64
}

// Notional returns price x size
func (f Fill) Notional() decimal.Decimal {
	return f.Price.Mul(decimal.NewFromInt(f.Size))
}

type PriceLevel struct {
	Price  decimal.Decimal
	Size   int64 // total size at this price level
	Orders int
}
