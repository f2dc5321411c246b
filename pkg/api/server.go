// Package api exposes the platform over REST and WebSocket. Handlers
// translate JSON requests into platform calls and sentinel errors into
// HTTP statuses; the hub fans committed events out to subscribers.
package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/uhyunpark/acdex/pkg/exchange"
	"github.com/uhyunpark/acdex/pkg/exchange/orderbook"
	"github.com/uhyunpark/acdex/pkg/exchange/round"
	"github.com/uhyunpark/acdex/pkg/exchange/treasury"
)

// Server handles REST API and WebSocket connections
type Server struct {
	platform *exchange.Platform
	router   *mux.Router
	hub      *Hub
}

// NewServer creates a new API server
func NewServer(platform *exchange.Platform) *Server {
	s := &Server{
		platform: platform,
		router:   mux.NewRouter(),
		hub:      NewHub(),
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	// API v1 routes
	api := s.router.PathPrefix("/api/v1").Subrouter()

	// Market state
	api.HandleFunc("/round", s.handleGetRound).Methods("GET")
	api.HandleFunc("/orders", s.handleGetOrders).Methods("GET")
	api.HandleFunc("/orders/{id}", s.handleGetOrder).Methods("GET")
	api.HandleFunc("/accounts/{address}", s.handleGetAccount).Methods("GET")
	api.HandleFunc("/treasury", s.handleGetTreasury).Methods("GET")

	// Round transitions
	api.HandleFunc("/round/trade", s.handleStartTradeRound).Methods("POST")
	api.HandleFunc("/round/sale", s.handleStartSaleRound).Methods("POST")

	// Trading
	api.HandleFunc("/referrals", s.handleRegister).Methods("POST")
	api.HandleFunc("/purchases", s.handleBuy).Methods("POST")
	api.HandleFunc("/orders", s.handleAddOrder).Methods("POST")
	api.HandleFunc("/orders/cancel", s.handleCancelOrder).Methods("POST")
	api.HandleFunc("/redemptions", s.handleRedeem).Methods("POST")

	// Treasury
	api.HandleFunc("/treasury/withdraw", s.handleWithdraw).Methods("POST")

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

	handler := c.Handler(s.router)

	log.Printf("[api] server starting on %s", addr)
	return http.ListenAndServe(addr, handler)
}

// BroadcastEvent routes a committed platform event to its channel.
// Wire it as the platform's OnEvent callback.
func (s *Server) BroadcastEvent(ev exchange.Event) {
	switch ev.Type {
	case exchange.EventRoundStarted:
		s.hub.BroadcastToChannel("rounds", ev)
	case exchange.EventOrderAdded, exchange.EventOrderRemoved:
		s.hub.BroadcastToChannel("orders", ev)
	case exchange.EventTokensSold, exchange.EventOrderRedeemed:
		s.hub.BroadcastToChannel("trades", ev)
	}
}

// ==============================
// REST Handlers
// ==============================

func (s *Server) handleGetRound(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, roundInfo(s.platform.Round()))
}

func (s *Server) handleGetOrders(w http.ResponseWriter, r *http.Request) {
	open := s.platform.OpenOrders()
	response := make([]OrderInfo, len(open))
	for i, o := range open {
		response[i] = orderInfo(o)
	}
	respondJSON(w, response)
}

func (s *Server) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid order id", err.Error())
		return
	}
	respondJSON(w, orderInfo(s.platform.Order(id)))
}

func (s *Server) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	addr, ok := parseAddress(w, mux.Vars(r)["address"])
	if !ok {
		return
	}

	response := AccountInfo{
		Address:         addr.Hex(),
		TokenBalance:    s.platform.TokenBalance(addr),
		CurrencyBalance: s.platform.CurrencyBalance(addr),
	}
	if ref, ok := s.platform.Referrer(addr); ok {
		response.Referrer = ref.Hex()
	}

	respondJSON(w, response)
}

func (s *Server) handleGetTreasury(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, TreasuryInfo{
		Account: s.platform.Account().Hex(),
		Balance: s.platform.TreasuryBalance(),
	})
}

func (s *Server) handleStartTradeRound(w http.ResponseWriter, r *http.Request) {
	if err := s.platform.StartTradeRound(); err != nil {
		respondPlatformError(w, err)
		return
	}
	respondJSON(w, StatusResponse{Status: "ok"})
}

func (s *Server) handleStartSaleRound(w http.ResponseWriter, r *http.Request) {
	if err := s.platform.StartSaleRound(); err != nil {
		respondPlatformError(w, err)
		return
	}
	respondJSON(w, StatusResponse{Status: "ok"})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	addr, ok := parseAddress(w, req.Address)
	if !ok {
		return
	}
	referrer, ok := parseAddress(w, req.Referrer)
	if !ok {
		return
	}

	if err := s.platform.Register(addr, referrer); err != nil {
		respondPlatformError(w, err)
		return
	}
	respondJSON(w, StatusResponse{Status: "ok"})
}

func (s *Server) handleBuy(w http.ResponseWriter, r *http.Request) {
	var req BuyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	buyer, ok := parseAddress(w, req.Buyer)
	if !ok {
		return
	}

	if err := s.platform.BuyACDM(buyer, req.Amount, req.Payment); err != nil {
		respondPlatformError(w, err)
		return
	}
	respondJSON(w, StatusResponse{Status: "ok"})
}

func (s *Server) handleAddOrder(w http.ResponseWriter, r *http.Request) {
	var req AddOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	seller, ok := parseAddress(w, req.Seller)
	if !ok {
		return
	}

	id, err := s.platform.AddOrder(seller, req.Amount, req.UnitPrice)
	if err != nil {
		respondPlatformError(w, err)
		return
	}
	respondJSON(w, StatusResponse{Status: "ok", OrderID: &id})
}

func (s *Server) handleCancelOrder(w http.ResponseWriter, r *http.Request) {
	var req CancelOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	seller, ok := parseAddress(w, req.Seller)
	if !ok {
		return
	}

	if err := s.platform.RemoveOrder(seller, req.OrderID); err != nil {
		respondPlatformError(w, err)
		return
	}
	respondJSON(w, StatusResponse{Status: "ok"})
}

func (s *Server) handleRedeem(w http.ResponseWriter, r *http.Request) {
	var req RedeemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	buyer, ok := parseAddress(w, req.Buyer)
	if !ok {
		return
	}

	if err := s.platform.RedeemOrder(buyer, req.Amount, req.OrderID, req.Payment); err != nil {
		respondPlatformError(w, err)
		return
	}
	respondJSON(w, StatusResponse{Status: "ok"})
}

func (s *Server) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	var req WithdrawRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	to, ok := parseAddress(w, req.To)
	if !ok {
		return
	}

	if err := s.platform.WithdrawTreasury(to, req.Amount); err != nil {
		respondPlatformError(w, err)
		return
	}
	respondJSON(w, StatusResponse{Status: "ok"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, map[string]string{"status": "ok"})
}

// ==============================
// Helper Functions
// ==============================

func roundInfo(st round.State) RoundInfo {
	return RoundInfo{
		Kind:        st.Kind.String(),
		Number:      st.Number,
		StartTime:   st.StartTime.UnixMilli(),
		EndTime:     st.EndTime.UnixMilli(),
		Price:       st.Price,
		SaleVolume:  st.SaleVolume,
		TradeVolume: st.TradeVolume,
	}
}

func orderInfo(o orderbook.Order) OrderInfo {
	return OrderInfo{
		ID:        o.ID,
		Seller:    o.Seller.Hex(),
		Remaining: o.Remaining,
		UnitPrice: o.UnitPrice,
		Round:     o.Round,
		Open:      !o.Closed(),
	}
}

func parseAddress(w http.ResponseWriter, raw string) (common.Address, bool) {
	if !common.IsHexAddress(raw) {
		respondError(w, http.StatusBadRequest, "invalid address", raw)
		return common.Address{}, false
	}
	return common.HexToAddress(raw), true
}

// respondPlatformError maps sentinel errors onto HTTP statuses: missing
// orders are 404, ownership violations 403, round-phase conflicts 409,
// everything else a plain 400.
func respondPlatformError(w http.ResponseWriter, err error) {
	status := http.StatusBadRequest
	switch {
	case errors.Is(err, orderbook.ErrOrderNotFound):
		status = http.StatusNotFound
	case errors.Is(err, orderbook.ErrOrderNotOwned):
		status = http.StatusForbidden
	case errors.Is(err, exchange.ErrWrongRound),
		errors.Is(err, round.ErrRoundActive),
		errors.Is(err, round.ErrSaleNotOver),
		errors.Is(err, round.ErrTradeNotOver),
		errors.Is(err, treasury.ErrNoFunds):
		status = http.StatusConflict
	}
	respondError(w, status, "request rejected", err.Error())
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
