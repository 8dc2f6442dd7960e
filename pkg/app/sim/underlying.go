package sim

import (
	"fmt"
	"math/rand"

	"github.com/shopspring/decimal"

	"github.com/uhyunpark/optionpit/pkg/app/core/orderbook"
)

// UnderlyingProvider supplies the final underlying value, read once at expiry
type UnderlyingProvider interface {
	FinalUnderlying() decimal.Decimal
}

// UnderlyingFunc adapts a function to UnderlyingProvider
type UnderlyingFunc func() decimal.Decimal

func (f UnderlyingFunc) FinalUnderlying() decimal.Decimal { return f() }

// FixedUnderlying always settles at v
func FixedUnderlying(v decimal.Decimal) UnderlyingProvider {
	return UnderlyingFunc(func() decimal.Decimal { return v })
}

const (
	ranks    = 13
	suits    = 4
	deckSize = ranks * suits
)

// CardDeck deals one card (rank 1..13) to each team from a shuffled 52-card
// deck. The underlying is the sum of the dealt cards.
type CardDeck struct {
	cards map[orderbook.TeamID]int
}

func NewCardDeck(teams int, seed int64) (*CardDeck, error) {
	if teams < 1 || teams > deckSize {
		return nil, fmt.Errorf("card deck deals to 1..%d teams, got %d", deckSize, teams)
	}

	deck := make([]int, 0, deckSize)
	for rank := 1; rank <= ranks; rank++ {
		for i := 0; i < suits; i++ {
			deck = append(deck, rank)
		}
	}
	rng := rand.New(rand.NewSource(seed))
	rng.Shuffle(len(deck), func(i, j int) { deck[i], deck[j] = deck[j], deck[i] })

	d := &CardDeck{cards: make(map[orderbook.TeamID]int, teams)}
	for t := 0; t < teams; t++ {
		d.cards[orderbook.TeamID(t)] = deck[len(deck)-1]
		deck = deck[:len(deck)-1]
	}
	return d, nil
}

// Card returns the card dealt to a team, 0 if none
func (d *CardDeck) Card(team orderbook.TeamID) int {
	return d.cards[team]
}

func (d *CardDeck) FinalUnderlying() decimal.Decimal {
	sum := 0
	for _, c := range d.cards {
		sum += c
	}
	return decimal.NewFromInt(int64(sum))
}
