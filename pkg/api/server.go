package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math/big"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/umbra-chain/umbra/pkg/app/dex"
	"github.com/umbra-chain/umbra/pkg/chain"
	"github.com/umbra-chain/umbra/pkg/exchange"
)

// Server handles REST API and WebSocket connections
type Server struct {
	app    *dex.App
	router *mux.Router
	hub    *Hub
}

// NewServer creates a new API server
func NewServer(app *dex.App) *Server {
	s := &Server{
		app:    app,
		router: mux.NewRouter(),
		hub:    NewHub(),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api/v1").Subrouter()

	// Pair endpoints
	api.HandleFunc("/pairs/{base}/{quote}/orderbook", s.handleGetOrderbook).Methods("GET")

	// Token and account endpoints
	api.HandleFunc("/tokens/{symbol}", s.handleGetToken).Methods("GET")
	api.HandleFunc("/accounts/{address}/balances/{symbol}", s.handleGetBalance).Methods("GET")

	// Order endpoints
	api.HandleFunc("/orders/{uid:[0-9]+}", s.handleGetOrder).Methods("GET")
	api.HandleFunc("/orders/{uid:[0-9]+}/escrow", s.handleGetEscrow).Methods("GET")
	api.HandleFunc("/orders", s.handleSubmitOrder).Methods("POST")
	api.HandleFunc("/orders/cancel", s.handleCancelOrder).Methods("POST")

	// OTC settlement
	api.HandleFunc("/swaps", s.handleSubmitSwap).Methods("POST")

	// WebSocket endpoint
	s.router.HandleFunc("/ws", s.handleWebSocket)

	// Health check
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
}

// Start starts the API server
func (s *Server) Start(addr string) error {
	go s.hub.Run()

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"http://localhost:3000", "http://localhost:3001"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	})

	log.Printf("[api] server starting on %s", addr)
	return http.ListenAndServe(addr, c.Handler(s.router))
}

// ==============================
// REST Handlers
// ==============================

func (s *Server) handleGetToken(w http.ResponseWriter, r *http.Request) {
	symbol := mux.Vars(r)["symbol"]
	info, ok := s.app.Token(symbol)
	if !ok {
		respondError(w, http.StatusNotFound, "token not found", symbol)
		return
	}
	respondJSON(w, TokenInfo{Symbol: info.Symbol, Decimals: info.Decimals, Fungible: info.Fungible})
}

func (s *Server) handleGetBalance(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	addr, ok := parseAddress(vars["address"])
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid address", vars["address"])
		return
	}
	symbol := vars["symbol"]
	respondJSON(w, BalanceInfo{
		Address: addr.Hex(),
		Symbol:  symbol,
		Balance: s.app.Balance(symbol, addr).String(),
	})
}

func (s *Server) handleGetOrderbook(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	base, quote := vars["base"], vars["quote"]

	switch r.URL.Query().Get("side") {
	case "buy":
		respondJSON(w, s.orderInfos(s.app.OrderBookSide(base, quote, exchange.Buy)))
	case "sell":
		respondJSON(w, s.orderInfos(s.app.OrderBookSide(base, quote, exchange.Sell)))
	case "":
		respondJSON(w, s.snapshot(base, quote))
	default:
		respondError(w, http.StatusBadRequest, "invalid side", "expected buy or sell")
	}
}

func (s *Server) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	uid, _ := strconv.ParseUint(mux.Vars(r)["uid"], 10, 64)
	order, err := s.app.Order(uid)
	if err != nil {
		respondChainError(w, err)
		return
	}
	respondJSON(w, s.orderInfo(order))
}

func (s *Server) handleGetEscrow(w http.ResponseWriter, r *http.Request) {
	uid, _ := strconv.ParseUint(mux.Vars(r)["uid"], 10, 64)
	order, err := s.app.Order(uid)
	if err != nil {
		respondChainError(w, err)
		return
	}
	left, err := s.app.OrderLeftoverEscrow(uid)
	if err != nil {
		respondChainError(w, err)
		return
	}
	symbol := order.QuoteSymbol
	if order.Side == exchange.Sell {
		symbol = order.BaseSymbol
	}
	respondJSON(w, EscrowInfo{UID: uid, Symbol: symbol, Leftover: left.String()})
}

func (s *Server) handleSubmitOrder(w http.ResponseWriter, r *http.Request) {
	var req SubmitOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	from, ok := parseAddress(req.From)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid address", req.From)
		return
	}
	side, ok := parseSide(req.Side)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid side", req.Side)
		return
	}
	size, ok := parseAmount(req.Size)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid size", req.Size)
		return
	}

	var (
		events []chain.Event
		err    error
	)
	switch strings.ToLower(req.Type) {
	case "market":
		events, err = s.app.OpenMarketOrder(from, req.BaseSymbol, req.QuoteSymbol, size, side)
	case "limit", "ioc", "":
		price, ok := parseAmount(req.Price)
		if !ok {
			respondError(w, http.StatusBadRequest, "invalid price", req.Price)
			return
		}
		ioc := strings.ToLower(req.Type) == "ioc"
		events, err = s.app.OpenLimitOrder(from, req.BaseSymbol, req.QuoteSymbol, size, price, side, ioc)
	default:
		respondError(w, http.StatusBadRequest, "invalid order type", req.Type)
		return
	}
	if err != nil {
		respondChainError(w, err)
		return
	}

	var orderID uint64
	for _, ev := range events {
		if ev.Kind == chain.EventOrderCreated {
			orderID = ev.Data.(uint64)
		}
	}
	log.Printf("[api] order committed: id=%d %s %s %s/%s", orderID, req.Side, req.Size, req.BaseSymbol, req.QuoteSymbol)

	s.broadcast(req.BaseSymbol, req.QuoteSymbol, events)
	respondJSON(w, SubmitOrderResponse{Status: "committed", OrderID: orderID, Events: eventInfos(events)})
}

func (s *Server) handleCancelOrder(w http.ResponseWriter, r *http.Request) {
	var req CancelOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	from, ok := parseAddress(req.From)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid address", req.From)
		return
	}

	// Snapshot the pair before the order disappears so the book update
	// can still be routed to its channel.
	var base, quote string
	if order, err := s.app.Order(req.OrderID); err == nil {
		base, quote = order.BaseSymbol, order.QuoteSymbol
	}

	events, err := s.app.CancelOrder(from, req.OrderID)
	if err != nil {
		respondChainError(w, err)
		return
	}
	log.Printf("[api] cancel committed: id=%d", req.OrderID)

	if base != "" {
		s.broadcast(base, quote, events)
	}
	respondJSON(w, SubmitOrderResponse{Status: "committed", OrderID: req.OrderID, Events: eventInfos(events)})
}

func (s *Server) handleSubmitSwap(w http.ResponseWriter, r *http.Request) {
	var req SwapRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	buyer, ok := parseAddress(req.Buyer)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid buyer address", req.Buyer)
		return
	}
	seller, ok := parseAddress(req.Seller)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid seller address", req.Seller)
		return
	}
	value, ok := parseAmount(req.Value)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid value", req.Value)
		return
	}
	price, ok := parseAmount(req.Price)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid price", req.Price)
		return
	}
	sig := common.FromHex(req.Signature)
	if len(sig) == 0 {
		respondError(w, http.StatusBadRequest, "missing signature", "")
		return
	}

	var (
		events []chain.Event
		err    error
	)
	if req.NonFungible {
		events, err = s.app.SwapToken(buyer, seller, req.BaseSymbol, req.QuoteSymbol, value, price, sig)
	} else {
		events, err = s.app.SwapTokens(buyer, seller, req.BaseSymbol, req.QuoteSymbol, value, price, sig)
	}
	if err != nil {
		respondChainError(w, err)
		return
	}
	log.Printf("[api] swap committed: %s/%s value=%s price=%s", req.BaseSymbol, req.QuoteSymbol, req.Value, req.Price)

	s.hub.BroadcastToChannel("events", EventUpdate{Type: "events", Items: eventInfos(events)})
	respondJSON(w, SwapResponse{Status: "committed", Events: eventInfos(events)})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, map[string]string{"status": "ok"})
}

// ==============================
// Broadcast
// ==============================

func (s *Server) broadcast(base, quote string, events []chain.Event) {
	snap := s.snapshot(base, quote)
	s.hub.BroadcastToChannel("orderbook:"+base+"-"+quote, OrderbookUpdate{
		Type:        "orderbook",
		BaseSymbol:  base,
		QuoteSymbol: quote,
		Bids:        snap.Bids,
		Asks:        snap.Asks,
		Timestamp:   snap.Timestamp,
	})
	s.hub.BroadcastToChannel("events", EventUpdate{Type: "events", Items: eventInfos(events)})
}

// ==============================
// Helper Functions
// ==============================

func (s *Server) snapshot(base, quote string) OrderbookSnapshot {
	return OrderbookSnapshot{
		BaseSymbol:  base,
		QuoteSymbol: quote,
		Bids:        s.orderInfos(s.app.OrderBookSide(base, quote, exchange.Buy)),
		Asks:        s.orderInfos(s.app.OrderBookSide(base, quote, exchange.Sell)),
		Timestamp:   time.Now().UnixMilli(),
	}
}

func (s *Server) orderInfo(o exchange.Order) OrderInfo {
	return OrderInfo{
		UID:         o.UID,
		Creator:     o.Creator.Hex(),
		Side:        strings.ToLower(o.Side.String()),
		Type:        orderTypeLabel(o.Type),
		BaseSymbol:  o.BaseSymbol,
		QuoteSymbol: o.QuoteSymbol,
		Size:        o.Amount.String(),
		Price:       o.Price.String(),
		Filled:      s.app.OrderFilled(o.UID).String(),
		Timestamp:   o.Timestamp,
	}
}

func (s *Server) orderInfos(orders []exchange.Order) []OrderInfo {
	out := make([]OrderInfo, len(orders))
	for i, o := range orders {
		out[i] = s.orderInfo(o)
	}
	return out
}

func orderTypeLabel(t exchange.OrderType) string {
	switch t {
	case exchange.ImmediateOrCancel:
		return "ioc"
	case exchange.Market:
		return "market"
	default:
		return "limit"
	}
}

func parseSide(s string) (exchange.Side, bool) {
	switch strings.ToLower(s) {
	case "buy":
		return exchange.Buy, true
	case "sell":
		return exchange.Sell, true
	default:
		return 0, false
	}
}

func parseAddress(s string) (common.Address, bool) {
	if !common.IsHexAddress(s) {
		return common.Address{}, false
	}
	return common.HexToAddress(s), true
}

func parseAmount(s string) (*big.Int, bool) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok || v.Sign() < 0 {
		return nil, false
	}
	return v, true
}

func eventInfos(events []chain.Event) []EventInfo {
	out := make([]EventInfo, len(events))
	for i, ev := range events {
		info := EventInfo{Kind: ev.Kind.String(), Address: ev.Address.Hex()}
		switch data := ev.Data.(type) {
		case uint64:
			info.Data = data
		case chain.TokenEventData:
			info.Data = TokenEventInfo{
				ChainAddress: data.ChainAddress.Hex(),
				Symbol:       data.Symbol,
				Value:        data.Value.String(),
			}
		default:
			info.Data = fmt.Sprintf("%v", data)
		}
		out[i] = info
	}
	return out
}

func respondJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, error string, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{
		Error:   error,
		Message: message,
	})
}

// respondChainError maps the ledger error taxonomy onto HTTP statuses.
func respondChainError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, chain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, chain.ErrAuthorization):
		status = http.StatusForbidden
	case errors.Is(err, chain.ErrValidation), errors.Is(err, chain.ErrSignature):
		status = http.StatusBadRequest
	case errors.Is(err, chain.ErrInsufficientFunds), errors.Is(err, chain.ErrTransferRejected):
		status = http.StatusUnprocessableEntity
	}
	respondError(w, status, "call rejected", err.Error())
}
