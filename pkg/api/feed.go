package api

import (
	"sync"

	"github.com/shopspring/decimal"

	"github.com/uhyunpark/optionpit/pkg/app/core/engine"
	"github.com/uhyunpark/optionpit/pkg/app/core/market"
	"github.com/uhyunpark/optionpit/pkg/app/core/orderbook"
	"github.com/uhyunpark/optionpit/pkg/app/sim"
)

const maxRecentTrades = 500

// Feed copies engine state after every tick so HTTP handlers never touch the
// engine. RecordTick and RecordResult must be called from the goroutine that
// drives the engine; reads are safe from any goroutine.
type Feed struct {
	eng     *engine.Engine
	markets *market.Registry // immutable, safe to read from any goroutine
	hub     *Hub             // optional

	mu         sync.RWMutex
	status     StatusInfo
	symbols    []SymbolInfo
	books      map[string]OrderbookSnapshot
	teams      map[int]TeamInfo
	trades     []TradeInfo
	history    map[int][]decimal.Decimal
	final      map[int]decimal.Decimal
	underlying *decimal.Decimal
}

func NewFeed(eng *engine.Engine, hub *Hub) *Feed {
	f := &Feed{
		eng:     eng,
		markets: eng.Markets(),
		hub:     hub,
		books:   make(map[string]OrderbookSnapshot),
		teams:   make(map[int]TeamInfo),
		history: make(map[int][]decimal.Decimal),
	}
	for _, s := range eng.Symbols() {
		f.symbols = append(f.symbols, SymbolInfo{Symbol: s.String(), Strike: s.Strike, Kind: s.Kind.String()})
	}
	f.status = StatusInfo{
		Teams:   len(eng.Ledger().Teams()),
		Symbols: len(f.symbols),
	}
	f.capture(0)
	return f
}

// capture snapshots books and teams; caller must be on the engine goroutine
func (f *Feed) capture(tick int) {
	books := make(map[string]OrderbookSnapshot, len(f.symbols))
	for _, s := range f.eng.Symbols() {
		bids, asks, _ := f.eng.Depth(s)
		books[s.String()] = OrderbookSnapshot{
			Symbol: s.String(),
			Tick:   tick,
			Bids:   toLevels(bids),
			Asks:   toLevels(asks),
		}
	}

	view := f.eng.Ledger()
	teams := make(map[int]TeamInfo)
	for _, t := range view.Teams() {
		positions := make(map[string]int64)
		for sym, q := range view.Positions(t) {
			if q != 0 {
				positions[sym.String()] = q
			}
		}
		var open []OrderInfo
		for _, o := range f.eng.OpenOrders(t) {
			open = append(open, OrderInfo{
				ID:     uint64(o.ID),
				Symbol: o.Symbol.String(),
				Side:   o.Side.String(),
				Price:  o.Price,
				Size:   o.Size,
			})
		}
		teams[int(t)] = TeamInfo{
			Team:       int(t),
			Cash:       view.Cash(t),
			Mark:       view.MarkToMarket(t),
			Positions:  positions,
			OpenOrders: open,
		}
	}

	f.mu.Lock()
	f.books = books
	f.teams = teams
	f.status.Tick = tick
	f.status.OpenOrders = f.eng.OpenOrderCount()
	f.mu.Unlock()
}

func (f *Feed) RecordTick(r sim.TickReport) error {
	f.capture(r.Tick)

	trades := make([]TradeInfo, 0, len(r.Trades))
	for _, t := range r.Trades {
		trades = append(trades, TradeInfo{
			Tick:      r.Tick,
			Symbol:    t.Symbol.String(),
			Price:     t.Price,
			Size:      t.Size,
			Buyer:     int(t.Buyer),
			Seller:    int(t.Seller),
			BuyOrder:  uint64(t.BuyOrder),
			SellOrder: uint64(t.SellOrder),
		})
	}
	marks := make(map[int]decimal.Decimal, len(r.Marks))
	for team, m := range r.Marks {
		marks[int(team)] = m
	}

	f.mu.Lock()
	f.status.RunID = r.RunID
	f.trades = append(f.trades, trades...)
	if n := len(f.trades); n > maxRecentTrades {
		f.trades = append([]TradeInfo(nil), f.trades[n-maxRecentTrades:]...)
	}
	for team, m := range marks {
		f.history[team] = append(f.history[team], m)
	}
	books := make([]OrderbookSnapshot, 0, len(f.books))
	for _, s := range f.symbols {
		books = append(books, f.books[s.Symbol])
	}
	f.mu.Unlock()

	if f.hub != nil {
		if len(trades) > 0 {
			f.hub.Broadcast(channelTrades, TradesUpdate{Type: channelTrades, Tick: r.Tick, Trades: trades})
		}
		f.hub.Broadcast(channelMarks, MarksUpdate{Type: channelMarks, Tick: r.Tick, Marks: marks})
		for _, b := range books {
			f.hub.Broadcast(channelBookPrefix+b.Symbol, OrderbookUpdate{Type: "orderbook", OrderbookSnapshot: b})
		}
	}
	return nil
}

func (f *Feed) RecordResult(r sim.Result) error {
	final := make(map[int]decimal.Decimal, len(r.PnL))
	for team, v := range r.PnL {
		final[int(team)] = v
	}
	u := r.Underlying

	f.mu.Lock()
	f.status.RunID = r.RunID
	f.status.Settled = true
	f.final = final
	f.underlying = &u
	f.mu.Unlock()

	if f.hub != nil {
		f.hub.Broadcast(channelSettlement, SettlementUpdate{Type: channelSettlement, Underlying: u, PnL: final})
	}
	return nil
}

func (f *Feed) Status() StatusInfo {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.status
}

func (f *Feed) Symbols() []SymbolInfo {
	return append([]SymbolInfo(nil), f.symbols...)
}

// Lookup resolves a symbol string against the run's universe. Errors wrap
// market.ErrUnknownSymbol when the symbol parses but is not listed.
func (f *Feed) Lookup(symbol string) (market.Symbol, error) {
	return f.markets.Lookup(symbol)
}

func (f *Feed) Book(symbol string) (OrderbookSnapshot, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	b, ok := f.books[symbol]
	return b, ok
}

func (f *Feed) Team(team int) (TeamInfo, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	t, ok := f.teams[team]
	return t, ok
}

// RecentTrades returns up to limit of the latest trades, oldest first
func (f *Feed) RecentTrades(limit int) []TradeInfo {
	f.mu.RLock()
	defer f.mu.RUnlock()
	start := 0
	if limit > 0 && len(f.trades) > limit {
		start = len(f.trades) - limit
	}
	return append([]TradeInfo(nil), f.trades[start:]...)
}

func (f *Feed) PnL() PnLInfo {
	f.mu.RLock()
	defer f.mu.RUnlock()
	history := make(map[int][]decimal.Decimal, len(f.history))
	for team, h := range f.history {
		history[team] = append([]decimal.Decimal(nil), h...)
	}
	out := PnLInfo{History: history}
	if f.final != nil {
		out.Final = make(map[int]decimal.Decimal, len(f.final))
		for team, v := range f.final {
			out.Final[team] = v
		}
		u := *f.underlying
		out.Underlying = &u
	}
	return out
}

func toLevels(in []orderbook.PriceLevel) []PriceLevel {
	out := make([]PriceLevel, 0, len(in))
	for _, l := range in {
		out = append(out, PriceLevel{Price: l.Price, Size: l.Size, Orders: l.Orders})
	}
	return out
}

var _ sim.Recorder = (*Feed)(nil)
