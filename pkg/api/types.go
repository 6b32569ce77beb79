package api

// API request/response types for REST endpoints and WebSocket messages.
// Amounts and prices travel as decimal strings: order sizes are exact
// integers in the token's smallest unit and do not fit int64 in general.

// ==============================
// REST Response Types
// ==============================

// TokenInfo is a registered asset's static configuration.
type TokenInfo struct {
	Symbol   string `json:"symbol"`
	Decimals uint32 `json:"decimals"`
	Fungible bool   `json:"fungible"`
}

// OrderInfo is one resting order.
type OrderInfo struct {
	UID         uint64 `json:"uid"`
	Creator     string `json:"creator"`
	Side        string `json:"side"` // "buy" or "sell"
	Type        string `json:"type"` // "limit", "ioc", "market"
	BaseSymbol  string `json:"baseSymbol"`
	QuoteSymbol string `json:"quoteSymbol"`
	Size        string `json:"size"`
	Price       string `json:"price"`
	Filled      string `json:"filled"`
	Timestamp   uint64 `json:"timestamp"` // Unix seconds
}

// OrderbookSnapshot is the current two-sided book for one pair.
type OrderbookSnapshot struct {
	BaseSymbol  string      `json:"baseSymbol"`
	QuoteSymbol string      `json:"quoteSymbol"`
	Bids        []OrderInfo `json:"bids"`
	Asks        []OrderInfo `json:"asks"`
	Timestamp   int64       `json:"timestamp"` // Unix milliseconds
}

// EscrowInfo is the unspent escrow still locked behind an order.
type EscrowInfo struct {
	UID      uint64 `json:"uid"`
	Symbol   string `json:"symbol"`
	Leftover string `json:"leftover"`
}

// BalanceInfo is one account's holding of one asset.
type BalanceInfo struct {
	Address string `json:"address"`
	Symbol  string `json:"symbol"`
	Balance string `json:"balance"`
}

// EventInfo mirrors one ledger event from a committed call.
type EventInfo struct {
	Kind    string `json:"kind"`
	Address string `json:"address"`
	Data    any    `json:"data"`
}

// TokenEventInfo is the payload of TokenReceive/TokenSend events.
type TokenEventInfo struct {
	ChainAddress string `json:"chainAddress"`
	Symbol       string `json:"symbol"`
	Value        string `json:"value"`
}

// SubmitOrderResponse acknowledges a committed order call.
type SubmitOrderResponse struct {
	Status  string      `json:"status"` // "committed"
	OrderID uint64      `json:"orderId"`
	Events  []EventInfo `json:"events"`
}

// SwapResponse acknowledges a committed OTC settlement.
type SwapResponse struct {
	Status string      `json:"status"`
	Events []EventInfo `json:"events"`
}

// ErrorResponse is returned for all errors.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// ==============================
// REST Request Types
// ==============================

// SubmitOrderRequest is the payload for POST /api/v1/orders.
type SubmitOrderRequest struct {
	From        string `json:"from"`
	BaseSymbol  string `json:"baseSymbol"`
	QuoteSymbol string `json:"quoteSymbol"`
	Side        string `json:"side"` // "buy" or "sell"
	Type        string `json:"type"` // "limit", "ioc", "market"
	Size        string `json:"size"`
	Price       string `json:"price"` // ignored for market orders
}

// CancelOrderRequest is the payload for POST /api/v1/orders/cancel.
type CancelOrderRequest struct {
	From    string `json:"from"`
	OrderID uint64 `json:"orderId"`
}

// SwapRequest is the payload for POST /api/v1/swaps. For non-fungible
// trades Value carries the item id instead of an amount. Signature is
// the seller's hex-encoded signature over the canonical swap terms.
type SwapRequest struct {
	Buyer       string `json:"buyer"`
	Seller      string `json:"seller"`
	BaseSymbol  string `json:"baseSymbol"`
	QuoteSymbol string `json:"quoteSymbol"`
	Value       string `json:"value"`
	Price       string `json:"price"`
	Signature   string `json:"signature"`
	NonFungible bool   `json:"nonFungible,omitempty"`
}

// ==============================
// WebSocket Message Types
// ==============================

// WSSubscribeRequest is sent by clients to manage channel subscriptions,
// e.g. ["orderbook:UMB-USDC", "events"].
type WSSubscribeRequest struct {
	Op       string   `json:"op"` // "subscribe" or "unsubscribe"
	Channels []string `json:"channels"`
}

// OrderbookUpdate is broadcast after every committed order call.
type OrderbookUpdate struct {
	Type        string      `json:"type"` // "orderbook"
	BaseSymbol  string      `json:"baseSymbol"`
	QuoteSymbol string      `json:"quoteSymbol"`
	Bids        []OrderInfo `json:"bids"`
	Asks        []OrderInfo `json:"asks"`
	Timestamp   int64       `json:"timestamp"`
}

// EventUpdate is broadcast for every ledger event of a committed call.
type EventUpdate struct {
	Type  string      `json:"type"` // "events"
	Items []EventInfo `json:"items"`
}
