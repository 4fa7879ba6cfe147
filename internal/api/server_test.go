package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"ge-flipper/internal/config"
	"ge-flipper/internal/ge"
)

// GET /api/status includes a prices health probe when a client is wired, so
// tests run with a nil prices client.

func testMeta(itemID int) (string, int) {
	if itemID == 4151 {
		return "Abyssal whip", 70
	}
	return "", 0
}

func newTestServer() *Server {
	tracker := ge.NewTracker(testMeta, 0, 0, false)
	return NewServer(config.Default(), tracker, nil, nil)
}

func postJSON(t *testing.T, srv *Server, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func getJSON(t *testing.T, srv *Server, target string, out interface{}) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if out != nil && rec.Code == http.StatusOK {
		if err := json.NewDecoder(rec.Body).Decode(out); err != nil {
			t.Fatalf("decode %s: %v", target, err)
		}
	}
	return rec
}

func offerBody(account string, buy bool, itemID, qty, price int, at time.Time, state string) string {
	return fmt.Sprintf(`{
		"account": %q, "buy": %v, "item_id": %d,
		"current_quantity": %d, "total_quantity": %d, "price": %d,
		"time": %d, "slot": -1, "state": %q
	}`, account, buy, itemID, qty, qty, price, at.Unix(), state)
}

func TestHandleGetConfig_ReturnsDefaults(t *testing.T) {
	srv := newTestServer()

	var out config.Config
	rec := getJSON(t, srv, "/api/config", &out)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /api/config status = %d, want 200", rec.Code)
	}
	if out.MaxHistoryPerItem != 500 || out.DefaultInterval != "session" {
		t.Errorf("config = %+v", out)
	}
}

func TestHandleSetConfig_Updates(t *testing.T) {
	srv := newTestServer()

	rec := postJSON(t, srv, "/api/config", `{"max_history_per_item": 250, "default_interval": "day"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("POST /api/config status = %d, want 200", rec.Code)
	}
	var out config.Config
	getJSON(t, srv, "/api/config", &out)
	if out.MaxHistoryPerItem != 250 || out.DefaultInterval != "day" {
		t.Errorf("config after update = %+v", out)
	}
}

func TestHandleOffer_RecordsFlip(t *testing.T) {
	srv := newTestServer()
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	rec := postJSON(t, srv, "/api/offers", offerBody("Zezima", true, 4151, 10, 100, at, "bought"))
	if rec.Code != http.StatusOK {
		t.Fatalf("POST /api/offers status = %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Accepted bool          `json:"accepted"`
		Event    ge.OfferEvent `json:"event"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode offer response: %v", err)
	}
	if !resp.Accepted || resp.Event.QuantityDelta != 10 {
		t.Fatalf("offer response = %+v", resp)
	}

	postJSON(t, srv, "/api/offers", offerBody("Zezima", false, 4151, 10, 105, at.Add(time.Minute), "sold"))

	var flips struct {
		Flips   []ge.FlipView  `json:"flips"`
		Summary ge.FlipSummary `json:"summary"`
	}
	getJSON(t, srv, "/api/flips?account=Zezima", &flips)
	if len(flips.Flips) != 1 {
		t.Fatalf("flips = %d, want 1", len(flips.Flips))
	}
	if flips.Flips[0].Profit != 50 || flips.Flips[0].ItemName != "Abyssal whip" {
		t.Errorf("flip row = %+v", flips.Flips[0])
	}
	if flips.Summary.TotalProfit != 50 {
		t.Errorf("summary profit = %d, want 50", flips.Summary.TotalProfit)
	}
}

func TestHandleOffer_RejectsBadInput(t *testing.T) {
	srv := newTestServer()
	at := time.Now()

	rec := postJSON(t, srv, "/api/offers", offerBody("Zezima", true, 4151, 10, 100, at, "teleported"))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("unknown state status = %d, want 400", rec.Code)
	}

	body := `{"account": "Zezima", "item_id": 4151, "slot": 9, "state": "buying"}`
	rec = postJSON(t, srv, "/api/offers", body)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("out-of-range slot status = %d, want 400", rec.Code)
	}
}

func TestHandleLoginAndAccounts(t *testing.T) {
	srv := newTestServer()

	rec := postJSON(t, srv, "/api/login", `{"display_name": "Zezima"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("POST /api/login status = %d", rec.Code)
	}

	at := time.Now().Add(-time.Hour)
	postJSON(t, srv, "/api/offers", offerBody("Zezima", true, 4151, 10, 100, at, "bought"))

	var out struct {
		Accounts []string `json:"accounts"`
		Current  string   `json:"current"`
	}
	getJSON(t, srv, "/api/accounts", &out)
	if out.Current != "Zezima" || len(out.Accounts) != 1 {
		t.Errorf("accounts = %+v", out)
	}
}

func TestHandleLogin_RequiresName(t *testing.T) {
	srv := newTestServer()
	rec := postJSON(t, srv, "/api/login", `{}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("empty login status = %d, want 400", rec.Code)
	}
}

func TestHandleDeleteAccount(t *testing.T) {
	srv := newTestServer()
	at := time.Now().Add(-time.Hour)
	postJSON(t, srv, "/api/offers", offerBody("Zezima", true, 4151, 10, 100, at, "bought"))

	req := httptest.NewRequest(http.MethodDelete, "/api/accounts/Zezima", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("DELETE status = %d", rec.Code)
	}

	var out struct {
		Accounts []string `json:"accounts"`
	}
	getJSON(t, srv, "/api/accounts", &out)
	if len(out.Accounts) != 0 {
		t.Errorf("accounts after delete = %v, want none", out.Accounts)
	}
}

func TestHandleDeleteAccount_RejectsMergedSelector(t *testing.T) {
	srv := newTestServer()
	req := httptest.NewRequest(http.MethodDelete, "/api/accounts/all", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("delete 'all' status = %d, want 400", rec.Code)
	}
}

func TestHandleFlips_MergedView(t *testing.T) {
	srv := newTestServer()
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	postJSON(t, srv, "/api/offers", offerBody("Alice", true, 4151, 10, 100, at, "bought"))
	postJSON(t, srv, "/api/offers", offerBody("Bob", false, 4151, 10, 105, at.Add(time.Minute), "sold"))

	var flips struct {
		Account string         `json:"account"`
		Flips   []ge.FlipView  `json:"flips"`
		Summary ge.FlipSummary `json:"summary"`
	}
	getJSON(t, srv, "/api/flips", &flips)
	if flips.Account != ge.AccountWide {
		t.Errorf("default selector = %q, want %q", flips.Account, ge.AccountWide)
	}
	if len(flips.Flips) != 1 || flips.Flips[0].Profit != 50 {
		t.Errorf("merged flips = %+v", flips.Flips)
	}
}

func TestHandleFlipHistory(t *testing.T) {
	srv := newTestServer()
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	postJSON(t, srv, "/api/offers", offerBody("Zezima", true, 4151, 10, 100, at, "bought"))

	var out struct {
		ItemID  int             `json:"item_id"`
		History []ge.OfferEvent `json:"history"`
	}
	rec := getJSON(t, srv, "/api/flips/4151/history?account=Zezima", &out)
	if rec.Code != http.StatusOK {
		t.Fatalf("history status = %d", rec.Code)
	}
	if len(out.History) != 1 || out.History[0].Price != 100 {
		t.Errorf("history = %+v", out.History)
	}

	rec = getJSON(t, srv, "/api/flips/9999/history?account=Zezima", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown item status = %d, want 404", rec.Code)
	}
}

func TestHandleSlots_OpenOffers(t *testing.T) {
	srv := newTestServer()
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	start := fmt.Sprintf(`{
		"account": "Zezima", "buy": true, "item_id": 4151,
		"total_quantity": 10, "price": 100, "time": %d,
		"slot": 0, "state": "buying", "tick": 1
	}`, at.Unix())
	postJSON(t, srv, "/api/offers", start)
	fill := fmt.Sprintf(`{
		"account": "Zezima", "buy": true, "item_id": 4151,
		"current_quantity": 4, "total_quantity": 10, "price": 100,
		"time": %d, "slot": 0, "state": "buying", "tick": 50
	}`, at.Add(time.Minute).Unix())
	postJSON(t, srv, "/api/offers", fill)

	var out struct {
		OpenOffers []ge.OfferEvent `json:"open_offers"`
		Flipping   bool            `json:"flipping"`
	}
	rec := getJSON(t, srv, "/api/slots?account=Zezima", &out)
	if rec.Code != http.StatusOK {
		t.Fatalf("slots status = %d", rec.Code)
	}
	if !out.Flipping || len(out.OpenOffers) != 1 {
		t.Fatalf("slots = %+v, want one open flipping offer", out)
	}
	if out.OpenOffers[0].CurrentQuantity != 4 {
		t.Errorf("open offer quantity = %d, want 4", out.OpenOffers[0].CurrentQuantity)
	}
}

func TestHandleSlots_UnknownAccount(t *testing.T) {
	srv := newTestServer()
	rec := getJSON(t, srv, "/api/slots?account=Nobody", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown account status = %d, want 404", rec.Code)
	}
}

func TestHandleSession(t *testing.T) {
	srv := newTestServer()
	at := time.Now().Add(-time.Hour)
	postJSON(t, srv, "/api/offers", offerBody("Zezima", true, 4151, 10, 100, at, "bought"))

	var out struct {
		SessionSeconds int64 `json:"session_seconds"`
	}
	rec := getJSON(t, srv, "/api/session?account=Zezima", &out)
	if rec.Code != http.StatusOK {
		t.Fatalf("session status = %d", rec.Code)
	}
	if out.SessionSeconds != 0 {
		t.Errorf("session seconds = %d, want 0", out.SessionSeconds)
	}
}

func TestHandleReset(t *testing.T) {
	srv := newTestServer()
	at := time.Now().Add(-time.Hour)
	postJSON(t, srv, "/api/offers", offerBody("Zezima", true, 4151, 10, 100, at, "bought"))

	rec := postJSON(t, srv, "/api/reset", `{"account": "Zezima"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("reset status = %d", rec.Code)
	}

	var flips struct {
		Flips []ge.FlipView `json:"flips"`
	}
	getJSON(t, srv, "/api/flips?account=Zezima", &flips)
	if len(flips.Flips) != 0 {
		t.Errorf("flips after reset = %+v, want none", flips.Flips)
	}
}

func TestCORSPreflight(t *testing.T) {
	srv := newTestServer()
	req := httptest.NewRequest(http.MethodOptions, "/api/flips", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != 204 {
		t.Errorf("preflight status = %d, want 204", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("missing CORS allow-origin header")
	}
}
