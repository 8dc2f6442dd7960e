// Package engine is the batch matching engine: it owns the order books, the
// order registry, the ledger and the order id counter for one run.
package engine

import (
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/uhyunpark/optionpit/pkg/app/core/ledger"
	"github.com/uhyunpark/optionpit/pkg/app/core/market"
	"github.com/uhyunpark/optionpit/pkg/app/core/orderbook"
	"github.com/uhyunpark/optionpit/pkg/metrics"
)

// OrderRequest is what a team asks the engine to rest
type OrderRequest struct {
	Symbol market.Symbol
	Side   orderbook.Side
	Price  decimal.Decimal
	Size   int64
}

// Trade is one executed crossing step
type Trade = orderbook.Fill

// BookSnapshot is a copy of one symbol's queues, best first
type BookSnapshot struct {
	Symbol market.Symbol
	Bids   []orderbook.Order
	Asks   []orderbook.Order
}

// Engine is not safe for concurrent use. Placement and matching are
// sequential by construction: all of a tick's orders go in, then MatchAll
// runs once.
type Engine struct {
	symbols []market.Symbol
	markets *market.Registry
	books   map[market.Symbol]*orderbook.OrderBook
	orders  *orderbook.Registry
	ledger  *ledger.Ledger
	lastID  orderbook.OrderID

	Logger  *zap.Logger
	Metrics *metrics.Collector
}

// New creates an engine over the registry's universe with accounts for
// teams 0..teams-1
func New(markets *market.Registry, teams int) *Engine {
	symbols := markets.Symbols()
	books := make(map[market.Symbol]*orderbook.OrderBook, len(symbols))
	for _, s := range symbols {
		books[s] = orderbook.NewOrderBook(s)
	}
	return &Engine{
		symbols: symbols,
		markets: markets,
		books:   books,
		orders:  orderbook.NewRegistry(),
		ledger:  ledger.New(teams, symbols),
		Logger:  zap.NewNop(),
	}
}

// Place rests a new order and returns its id.
//
// A request with a non-positive size, or for a symbol outside the universe,
// is dropped without error: ok is false and nothing is added to a book or
// the registry. The id is consumed either way.
func (e *Engine) Place(team orderbook.TeamID, req OrderRequest) (id orderbook.OrderID, ok bool) {
	e.lastID++
	id = e.lastID

	if req.Size <= 0 {
		e.Logger.Debug("order_ignored",
			zap.Int("team", int(team)),
			zap.Uint64("order_id", uint64(id)),
			zap.Int64("size", req.Size),
			zap.String("reason", "non_positive_size"))
		e.Metrics.OrderIgnored()
		return id, false
	}
	book, exists := e.books[req.Symbol]
	if !exists {
		e.Logger.Debug("order_ignored",
			zap.Int("team", int(team)),
			zap.Uint64("order_id", uint64(id)),
			zap.Stringer("symbol", req.Symbol),
			zap.String("reason", "unknown_symbol"))
		e.Metrics.OrderIgnored()
		return id, false
	}

	o := &orderbook.Order{
		ID:    id,
		Team:  team,
		Side:  req.Side,
		Price: req.Price,
		Size:  req.Size,
	}
	book.Insert(o)
	e.orders.Add(o)
	e.Metrics.OrderPlaced()
	return id, true
}

// MatchAll crosses every book once, in universe order, and settles each
// trade into the ledger. Trades execute at the resting ask's price.
// Self-trades are not prevented.
func (e *Engine) MatchAll() []Trade {
	var trades []Trade
	for _, s := range e.symbols {
		fills := e.books[s].Match()
		for _, f := range fills {
			e.apply(f)
		}
		trades = append(trades, fills...)
	}
	return trades
}

func (e *Engine) apply(f orderbook.Fill) {
	notional := f.Notional()
	e.ledger.Debit(f.Buyer, notional)
	e.ledger.Credit(f.Seller, notional)
	e.ledger.AdjustPosition(f.Buyer, f.Symbol, f.Size)
	e.ledger.AdjustPosition(f.Seller, f.Symbol, -f.Size)

	buyKey := orderbook.OrderKey{Team: f.Buyer, ID: f.BuyOrder}
	if f.BuyRemaining <= 0 {
		e.orders.Remove(buyKey)
	} else {
		e.orders.Resize(buyKey, f.BuyRemaining)
	}
	sellKey := orderbook.OrderKey{Team: f.Seller, ID: f.SellOrder}
	if f.SellRemaining <= 0 {
		e.orders.Remove(sellKey)
	} else {
		e.orders.Resize(sellKey, f.SellRemaining)
	}

	e.Metrics.Trade(f.Symbol.String(), f.Size)
	e.Logger.Debug("trade_executed",
		zap.Stringer("symbol", f.Symbol),
		zap.Stringer("price", f.Price),
		zap.Int64("size", f.Size),
		zap.Int("buyer", int(f.Buyer)),
		zap.Int("seller", int(f.Seller)),
		zap.Uint64("buy_order", uint64(f.BuyOrder)),
		zap.Uint64("sell_order", uint64(f.SellOrder)))
}

// MarkToMarket returns the team's interim valuation (cash only)
func (e *Engine) MarkToMarket(team orderbook.TeamID) decimal.Decimal {
	return e.ledger.MarkToMarket(team)
}

// Ledger exposes the read side of the ledger
func (e *Engine) Ledger() ledger.View {
	return e.ledger
}

// Symbols returns the universe in matching order
func (e *Engine) Symbols() []market.Symbol {
	out := make([]market.Symbol, len(e.symbols))
	copy(out, e.symbols)
	return out
}

// Markets returns the symbol registry the engine was built on
func (e *Engine) Markets() *market.Registry {
	return e.markets
}

// Book returns a copy of a symbol's queues
func (e *Engine) Book(sym market.Symbol) (BookSnapshot, bool) {
	book, ok := e.books[sym]
	if !ok {
		return BookSnapshot{}, false
	}
	return BookSnapshot{Symbol: sym, Bids: book.Bids(), Asks: book.Asks()}, true
}

// Depth returns a symbol's aggregated price levels, best first
func (e *Engine) Depth(sym market.Symbol) (bids, asks []orderbook.PriceLevel, ok bool) {
	book, ok := e.books[sym]
	if !ok {
		return nil, nil, false
	}
	return book.BidLevels(), book.AskLevels(), true
}

// Order looks up a resting order by (team, id)
func (e *Engine) Order(team orderbook.TeamID, id orderbook.OrderID) (orderbook.OrderInfo, bool) {
	return e.orders.Get(orderbook.OrderKey{Team: team, ID: id})
}

// OpenOrders lists a team's resting orders in id order
func (e *Engine) OpenOrders(team orderbook.TeamID) []orderbook.OpenOrder {
	return e.orders.ByTeam(team)
}

// OpenOrderCount returns the number of resting orders across all books
func (e *Engine) OpenOrderCount() int {
	return e.orders.Len()
}
