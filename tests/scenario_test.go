package tests

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/uhyunpark/optionpit/pkg/app/core/engine"
	"github.com/uhyunpark/optionpit/pkg/app/core/market"
	"github.com/uhyunpark/optionpit/pkg/app/core/orderbook"
	"github.com/uhyunpark/optionpit/pkg/app/core/settlement"
	"github.com/uhyunpark/optionpit/pkg/app/sim"
	"github.com/uhyunpark/optionpit/pkg/storage"
)

var call50 = market.Symbol{Strike: 50, Kind: market.Call}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newEngine(t testing.TB, strikes []int64, teams int) *engine.Engine {
	t.Helper()
	reg, err := market.NewRegistry(strikes)
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	return engine.New(reg, teams)
}

// TestTwoTeamScenario places a crossing pair and checks ledger, book and registry
func TestTwoTeamScenario(t *testing.T) {
	eng := newEngine(t, []int64{50, 60}, 2)

	bidID, _ := eng.Place(0, engine.OrderRequest{Symbol: call50, Side: orderbook.Buy, Price: d("3.0"), Size: 2})
	askID, _ := eng.Place(1, engine.OrderRequest{Symbol: call50, Side: orderbook.Sell, Price: d("2.0"), Size: 1})

	trades := eng.MatchAll()
	if len(trades) != 1 {
		t.Fatalf("expected 1 trade, got %d", len(trades))
	}
	if !trades[0].Price.Equal(d("2.0")) || trades[0].Size != 1 {
		t.Errorf("trade = %s x %d, want 2.0 x 1", trades[0].Price, trades[0].Size)
	}

	l := eng.Ledger()
	if !l.Cash(0).Equal(d("-2.0")) {
		t.Errorf("team 0 cash = %s, want -2.0", l.Cash(0))
	}
	if !l.Cash(1).Equal(d("2.0")) {
		t.Errorf("team 1 cash = %s, want 2.0", l.Cash(1))
	}
	if p := l.Position(0, call50); p != 1 {
		t.Errorf("team 0 position = %d, want 1", p)
	}
	if p := l.Position(1, call50); p != -1 {
		t.Errorf("team 1 position = %d, want -1", p)
	}

	book, _ := eng.Book(call50)
	if len(book.Bids) != 1 || book.Bids[0].Size != 1 || !book.Bids[0].Price.Equal(d("3.0")) {
		t.Errorf("unexpected bids: %+v", book.Bids)
	}
	if len(book.Asks) != 0 {
		t.Errorf("expected no asks, got %d", len(book.Asks))
	}

	if info, ok := eng.Order(0, bidID); !ok || info.Size != 1 {
		t.Errorf("bid registry entry = %+v, %v", info, ok)
	}
	if _, ok := eng.Order(1, askID); ok {
		t.Errorf("filled ask still registered")
	}
}

// TestSettlementExample settles a long call bought at 2.0 with the underlying at 75
func TestSettlementExample(t *testing.T) {
	eng := newEngine(t, []int64{50}, 2)
	eng.Place(0, engine.OrderRequest{Symbol: call50, Side: orderbook.Buy, Price: d("2.0"), Size: 1})
	eng.Place(1, engine.OrderRequest{Symbol: call50, Side: orderbook.Sell, Price: d("2.0"), Size: 1})
	eng.MatchAll()

	pnl := settlement.Settle(eng.Ledger(), d("75"))
	if !pnl[0].Equal(d("23.0")) {
		t.Errorf("team 0 pnl = %s, want 23.0", pnl[0])
	}
	if !pnl[1].Equal(d("-23.0")) {
		t.Errorf("team 1 pnl = %s, want -23.0", pnl[1])
	}
}

// TestRandomRunZeroSum plays a seeded random run end to end with a journal
// and checks that final PnL always sums to zero
func TestRandomRunZeroSum(t *testing.T) {
	const teams = 4
	strikes := []int64{50, 60, 70, 80, 90}
	eng := newEngine(t, strikes, teams)

	deck, err := sim.NewCardDeck(teams, 7)
	if err != nil {
		t.Fatal(err)
	}
	strategies := make([]sim.Strategy, teams)
	for i := range strategies {
		strategies[i] = sim.NewRandomStrategy(int64(100+i), eng.Symbols())
	}
	s, err := sim.New(eng, strategies, deck, sim.Config{Ticks: 100})
	if err != nil {
		t.Fatal(err)
	}

	j, err := storage.OpenJournal(t.TempDir()+"/journal", s.RunID)
	if err != nil {
		t.Fatal(err)
	}
	defer j.Close()
	s.AddRecorder(j)

	res, err := s.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	sum := decimal.Zero
	for _, v := range res.PnL {
		sum = sum.Add(v)
	}
	if !sum.IsZero() {
		t.Errorf("final pnl sums to %s, want 0", sum)
	}
	if !res.Underlying.Equal(deck.FinalUnderlying()) {
		t.Errorf("underlying = %s, want %s", res.Underlying, deck.FinalUnderlying())
	}

	for _, sym := range eng.Symbols() {
		book, _ := eng.Book(sym)
		if len(book.Bids) > 0 && len(book.Asks) > 0 && !book.Bids[0].Price.LessThan(book.Asks[0].Price) {
			t.Errorf("%s left crossed: bid %s ask %s", sym, book.Bids[0].Price, book.Asks[0].Price)
		}
	}

	// every journaled trade moves cash between two teams, so the journal
	// replays to the same cash balances
	trades, err := j.AllTrades()
	if err != nil {
		t.Fatal(err)
	}
	cash := make(map[int]decimal.Decimal)
	for _, tr := range trades {
		n := tr.Price.Mul(decimal.NewFromInt(tr.Size))
		cash[tr.Buyer] = cash[tr.Buyer].Sub(n)
		cash[tr.Seller] = cash[tr.Seller].Add(n)
	}
	for i := 0; i < teams; i++ {
		team := orderbook.TeamID(i)
		if !cash[i].Equal(eng.Ledger().Cash(team)) {
			t.Errorf("team %d replayed cash %s, ledger %s", i, cash[i], eng.Ledger().Cash(team))
		}
	}
}

// TestIndependentRuns checks two engines share no state
func TestIndependentRuns(t *testing.T) {
	a := newEngine(t, []int64{50}, 1)
	b := newEngine(t, []int64{50}, 1)

	idA, _ := a.Place(0, engine.OrderRequest{Symbol: call50, Side: orderbook.Buy, Price: d("1"), Size: 1})
	idB, _ := b.Place(0, engine.OrderRequest{Symbol: call50, Side: orderbook.Buy, Price: d("1"), Size: 1})
	if idA != idB {
		t.Errorf("ids differ across engines: %d vs %d", idA, idB)
	}
	if a.OpenOrderCount() != 1 || b.OpenOrderCount() != 1 {
		t.Errorf("open orders = %d/%d, want 1/1", a.OpenOrderCount(), b.OpenOrderCount())
	}
}
