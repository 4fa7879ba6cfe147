package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"ge-flipper/internal/config"
	"ge-flipper/internal/db"
	"ge-flipper/internal/ge"
	"ge-flipper/internal/logger"
	"ge-flipper/internal/prices"
)

// Server is the HTTP API server that connects the offer tracker, the
// prices client, and the database.
type Server struct {
	mu      sync.RWMutex
	cfg     *config.Config
	tracker *ge.Tracker
	prices  *prices.Client
	db      *db.DB
}

// NewServer creates a Server with the given config, tracker, prices
// client, and database.
func NewServer(cfg *config.Config, tracker *ge.Tracker, pricesClient *prices.Client, database *db.DB) *Server {
	return &Server{
		cfg:     cfg,
		tracker: tracker,
		prices:  pricesClient,
		db:      database,
	}
}

// Handler returns the HTTP handler with all API routes and CORS middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("GET /api/config", s.handleGetConfig)
	mux.HandleFunc("POST /api/config", s.handleSetConfig)
	mux.HandleFunc("POST /api/offers", s.handleOffer)
	mux.HandleFunc("POST /api/login", s.handleLogin)
	mux.HandleFunc("GET /api/accounts", s.handleAccounts)
	mux.HandleFunc("DELETE /api/accounts/{name}", s.handleDeleteAccount)
	mux.HandleFunc("GET /api/flips", s.handleFlips)
	mux.HandleFunc("GET /api/flips/{itemID}/history", s.handleFlipHistory)
	mux.HandleFunc("GET /api/slots", s.handleSlots)
	mux.HandleFunc("GET /api/session", s.handleSession)
	mux.HandleFunc("POST /api/reset", s.handleReset)
	mux.HandleFunc("GET /api/quotes/{itemID}", s.handleQuote)
	return corsMiddleware(mux)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(204)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := map[string]interface{}{
		"accounts":        s.tracker.Accounts(),
		"current_account": s.tracker.CurrentAccount(),
	}
	if s.prices != nil {
		status["prices_online"] = s.prices.HealthCheck()
	}
	writeJSON(w, status)
}

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	writeJSON(w, s.cfg)
}

func (s *Server) handleSetConfig(w http.ResponseWriter, r *http.Request) {
	var cfg config.Config
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid config: %v", err))
		return
	}
	s.mu.Lock()
	*s.cfg = cfg
	s.mu.Unlock()
	if s.db != nil {
		if err := s.db.SaveConfig(&cfg); err != nil {
			logger.Error("API", fmt.Sprintf("Save config: %v", err))
		}
	}
	writeJSON(w, s.cfg)
}

// offerRequest is one host-reported offer change.
type offerRequest struct {
	Account         string `json:"account"`
	Buy             bool   `json:"buy"`
	ItemID          int    `json:"item_id"`
	CurrentQuantity int    `json:"current_quantity"`
	TotalQuantity   int    `json:"total_quantity"`
	QuantityDelta   int    `json:"quantity_delta,omitempty"` // imported entries only
	Price           int    `json:"price"`
	Time            int64  `json:"time,omitempty"` // unix seconds, 0 = now
	Slot            int    `json:"slot"`
	State           string `json:"state"`
	Tick            int    `json:"tick"`
	TicksSinceFirst int    `json:"ticks_since_first,omitempty"`
	BeforeLogin     bool   `json:"before_login,omitempty"`
}

var validStates = map[ge.OfferState]bool{
	ge.StateEmpty:         true,
	ge.StateBuying:        true,
	ge.StateSelling:       true,
	ge.StateBought:        true,
	ge.StateSold:          true,
	ge.StateCancelledBuy:  true,
	ge.StateCancelledSell: true,
}

func (s *Server) handleOffer(w http.ResponseWriter, r *http.Request) {
	var req offerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid offer: %v", err))
		return
	}
	state := ge.OfferState(strings.ToLower(req.State))
	if !validStates[state] {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown offer state %q", req.State))
		return
	}
	if req.Slot != ge.ImportedSlot && (req.Slot < 0 || req.Slot >= ge.NumSlots) {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("slot %d out of range", req.Slot))
		return
	}

	when := time.Now()
	if req.Time > 0 {
		when = time.Unix(req.Time, 0)
	}
	ev := ge.OfferEvent{
		Buy:             req.Buy,
		ItemID:          req.ItemID,
		CurrentQuantity: req.CurrentQuantity,
		TotalQuantity:   req.TotalQuantity,
		QuantityDelta:   req.QuantityDelta,
		Price:           req.Price,
		Time:            when,
		Slot:            req.Slot,
		State:           state,
		Tick:            req.Tick,
		TicksSinceFirst: req.TicksSinceFirst,
		MadeBy:          req.Account,
		BeforeLogin:     req.BeforeLogin,
	}

	accepted, ok := s.tracker.OnRawOffer(req.Account, ev)
	resp := map[string]interface{}{"accepted": ok}
	if ok {
		resp["event"] = accepted
	}
	writeJSON(w, resp)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DisplayName string `json:"display_name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.DisplayName == "" {
		writeError(w, http.StatusBadRequest, "display_name required")
		return
	}
	s.tracker.OnAccountIdentified(req.DisplayName)
	writeJSON(w, map[string]string{"current_account": req.DisplayName})
}

func (s *Server) handleAccounts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]interface{}{
		"accounts": s.tracker.Accounts(),
		"current":  s.tracker.CurrentAccount(),
	})
}

func (s *Server) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if name == "" || name == ge.AccountWide {
		writeError(w, http.StatusBadRequest, "invalid account name")
		return
	}
	s.tracker.DeleteAccount(name)
	if s.db != nil {
		if err := s.db.DeleteAccount(name); err != nil {
			logger.Error("API", fmt.Sprintf("Delete account %q: %v", name, err))
		}
	}
	writeJSON(w, map[string]string{"deleted": name})
}

// accountSelector resolves the ?account= query parameter; missing or
// "all" selects the account-wide merged view.
func accountSelector(r *http.Request) string {
	account := r.URL.Query().Get("account")
	if account == "" {
		return ge.AccountWide
	}
	return account
}

// sinceParam parses ?since= as unix seconds; 0 or missing means the
// whole retained history.
func sinceParam(r *http.Request) time.Time {
	if v := r.URL.Query().Get("since"); v != "" {
		if sec, err := strconv.ParseInt(v, 10, 64); err == nil && sec > 0 {
			return time.Unix(sec, 0)
		}
	}
	return time.Time{}
}

func (s *Server) handleFlips(w http.ResponseWriter, r *http.Request) {
	account := accountSelector(r)
	since := sinceParam(r)
	views := s.tracker.FlipViews(account, since, time.Now())
	writeJSON(w, map[string]interface{}{
		"account": account,
		"flips":   views,
		"summary": ge.SummarizeFlips(views),
	})
}

func (s *Server) handleFlipHistory(w http.ResponseWriter, r *http.Request) {
	itemID, err := strconv.Atoi(r.PathValue("itemID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid item id")
		return
	}
	account := accountSelector(r)
	since := sinceParam(r)

	name, history, ok := s.tracker.ItemHistory(account, itemID, since)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("no trades for item %d", itemID))
		return
	}
	writeJSON(w, map[string]interface{}{
		"item_id":   itemID,
		"item_name": name,
		"history":   history,
	})
}

func (s *Server) handleSlots(w http.ResponseWriter, r *http.Request) {
	account := r.URL.Query().Get("account")
	if account == "" {
		account = s.tracker.CurrentAccount()
	}
	open, ok := s.tracker.OpenOffers(account)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("unknown account %q", account))
		return
	}
	writeJSON(w, map[string]interface{}{
		"account":     account,
		"open_offers": open,
		"flipping":    len(open) > 0,
	})
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	account := r.URL.Query().Get("account")
	if account == "" {
		account = s.tracker.CurrentAccount()
	}
	d, ok := s.tracker.SessionTime(account)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("unknown account %q", account))
		return
	}
	writeJSON(w, map[string]interface{}{
		"account":         account,
		"session_seconds": int64(d / time.Second),
	})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Account string `json:"account"`
		Since   int64  `json:"since"` // unix seconds; 0 = wipe everything retained
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid reset: %v", err))
		return
	}
	selector := req.Account
	if selector == "" {
		selector = ge.AccountWide
	}
	cutoff := time.Unix(req.Since, 0)
	if req.Since <= 0 {
		cutoff = time.Now()
	}
	s.tracker.ResetInterval(selector, cutoff)
	writeJSON(w, map[string]interface{}{"reset": selector, "before": cutoff.Unix()})
}

func (s *Server) handleQuote(w http.ResponseWriter, r *http.Request) {
	if s.prices == nil {
		writeError(w, http.StatusServiceUnavailable, "prices client not configured")
		return
	}
	itemID, err := strconv.Atoi(r.PathValue("itemID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid item id")
		return
	}
	quote, ok := s.prices.LatestQuote(itemID)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("no quote for item %d", itemID))
		return
	}
	name, limit := s.prices.ItemMeta(itemID)
	writeJSON(w, map[string]interface{}{
		"item_id":   itemID,
		"item_name": name,
		"ge_limit":  limit,
		"quote":     quote,
	})
}
