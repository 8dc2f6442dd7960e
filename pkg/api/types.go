package api

import "github.com/shopspring/decimal"

// API response types for REST endpoints and WebSocket messages.
// Decimals are encoded as JSON strings.

// StatusInfo describes the run being observed
type StatusInfo struct {
	RunID      string `json:"runId"`
	Tick       int    `json:"tick"`
	Teams      int    `json:"teams"`
	Symbols    int    `json:"symbols"`
	OpenOrders int    `json:"openOrders"`
	Settled    bool   `json:"settled"`
	Observers  int    `json:"observers"` // connected websocket clients
}

// SymbolInfo describes one option in the universe
type SymbolInfo struct {
	Symbol string `json:"symbol"` // e.g. "50C"
	Strike int64  `json:"strike"`
	Kind   string `json:"kind"` // "Call" or "Put"
}

// OrderbookSnapshot is a symbol's aggregated depth
type OrderbookSnapshot struct {
	Symbol string       `json:"symbol"`
	Tick   int          `json:"tick"`
	Bids   []PriceLevel `json:"bids"` // Sorted high to low
	Asks   []PriceLevel `json:"asks"` // Sorted low to high
}

type PriceLevel struct {
	Price  decimal.Decimal `json:"price"`
	Size   int64           `json:"size"`
	Orders int             `json:"orders"`
}

type TradeInfo struct {
	Tick      int             `json:"tick"`
	Symbol    string          `json:"symbol"`
	Price     decimal.Decimal `json:"price"`
	Size      int64           `json:"size"`
	Buyer     int             `json:"buyer"`
	Seller    int             `json:"seller"`
	BuyOrder  uint64          `json:"buyOrder"`
	SellOrder uint64          `json:"sellOrder"`
}

// TeamInfo is a team's ledger state after the latest tick
type TeamInfo struct {
	Team       int              `json:"team"`
	Cash       decimal.Decimal  `json:"cash"`
	Mark       decimal.Decimal  `json:"mark"`
	Positions  map[string]int64 `json:"positions"` // non-zero only
	OpenOrders []OrderInfo      `json:"openOrders"`
}

type OrderInfo struct {
	ID     uint64          `json:"id"`
	Symbol string          `json:"symbol"`
	Side   string          `json:"side"`
	Price  decimal.Decimal `json:"price"`
	Size   int64           `json:"size"`
}

// PnLInfo is the mark history of every team plus the final result once settled
type PnLInfo struct {
	History    map[int][]decimal.Decimal `json:"history"`
	Underlying *decimal.Decimal          `json:"underlying,omitempty"`
	Final      map[int]decimal.Decimal   `json:"final,omitempty"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// ==============================
// WebSocket Message Types
// ==============================

// WSSubscribeRequest is sent by clients: {"op":"subscribe","channels":["trades","marks"]}
type WSSubscribeRequest struct {
	Op       string   `json:"op"` // "subscribe" or "unsubscribe"
	Channels []string `json:"channels"`
}

type TradesUpdate struct {
	Type   string      `json:"type"` // "trades"
	Tick   int         `json:"tick"`
	Trades []TradeInfo `json:"trades"`
}

type MarksUpdate struct {
	Type  string                  `json:"type"` // "marks"
	Tick  int                     `json:"tick"`
	Marks map[int]decimal.Decimal `json:"marks"`
}

type OrderbookUpdate struct {
	Type string `json:"type"` // "orderbook"
	OrderbookSnapshot
}

type SettlementUpdate struct {
	Type       string                  `json:"type"` // "settlement"
	Underlying decimal.Decimal         `json:"underlying"`
	PnL        map[int]decimal.Decimal `json:"pnl"`
}
