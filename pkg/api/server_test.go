package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/uhyunpark/acdex/pkg/exchange"
	"github.com/uhyunpark/acdex/pkg/exchange/round"
	"github.com/uhyunpark/acdex/pkg/ledger"
	"github.com/uhyunpark/acdex/pkg/util"
)

const testPrice = 10_000_000_000_000

var (
	platformAddr = common.HexToAddress("0x00000000000000000000000000000000acde0000")
	alice        = common.HexToAddress("0x0000000000000000000000000000000000000a11")
	bob          = common.HexToAddress("0x0000000000000000000000000000000000000b0b")
)

func newTestServer(t *testing.T) (*Server, *util.ManualClock) {
	t.Helper()

	tokens := ledger.NewTokenLedger("Academ Coin", "ACDM")
	tokens.Mint(platformAddr, 100_000)
	bank := ledger.NewBank()
	bank.Deposit(alice, 10_000_000_000_000_000_000)
	bank.Deposit(bob, 10_000_000_000_000_000_000)

	clock := util.NewManualClock(time.Unix(1_700_000_000, 0).UTC())
	p, err := exchange.New(exchange.Config{
		Account:       platformAddr,
		RoundDuration: 72 * time.Hour,
		InitialPrice:  testPrice,
		Pricing:       round.GrowthPricing(10_300, 4_000_000_000_000),
	}, tokens, bank, clock, exchange.Options{})
	if err != nil {
		t.Fatalf("platform: %v", err)
	}
	return NewServer(p), clock
}

func do(t *testing.T, s *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func TestGetRound(t *testing.T) {
	s, _ := newTestServer(t)

	rec := do(t, s, "GET", "/api/v1/round", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var info RoundInfo
	if err := json.Unmarshal(rec.Body.Bytes(), &info); err != nil {
		t.Fatal(err)
	}
	if info.Kind != "sale" || info.Price != testPrice || info.SaleVolume != 100_000 {
		t.Errorf("round = %+v", info)
	}
}

func TestBuyEndpoint(t *testing.T) {
	s, _ := newTestServer(t)

	rec := do(t, s, "POST", "/api/v1/purchases", BuyRequest{
		Buyer: alice.Hex(), Amount: 1_000, Payment: 1_000 * testPrice,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
	}

	rec = do(t, s, "GET", "/api/v1/accounts/"+alice.Hex(), nil)
	var acct AccountInfo
	if err := json.Unmarshal(rec.Body.Bytes(), &acct); err != nil {
		t.Fatal(err)
	}
	if acct.TokenBalance != 1_000 {
		t.Errorf("token balance = %d, want 1000", acct.TokenBalance)
	}
}

func TestErrorStatusMapping(t *testing.T) {
	s, clock := newTestServer(t)

	// Add order during sale round: phase conflict.
	rec := do(t, s, "POST", "/api/v1/orders", AddOrderRequest{
		Seller: alice.Hex(), Amount: 10, UnitPrice: testPrice,
	})
	if rec.Code != http.StatusConflict {
		t.Errorf("add during sale: status = %d, want 409", rec.Code)
	}

	// Redeeming an unknown order inside a trade round: 404.
	clock.Advance(72 * time.Hour)
	if rec := do(t, s, "POST", "/api/v1/round/trade", nil); rec.Code != http.StatusOK {
		t.Fatalf("start trade round: %d %s", rec.Code, rec.Body.String())
	}
	rec = do(t, s, "POST", "/api/v1/redemptions", RedeemRequest{
		Buyer: bob.Hex(), OrderID: 42, Amount: 1, Payment: testPrice,
	})
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown order: status = %d, want 404", rec.Code)
	}

	// Bad address: plain 400.
	rec = do(t, s, "POST", "/api/v1/purchases", BuyRequest{Buyer: "nope", Amount: 1, Payment: 1})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad address: status = %d, want 400", rec.Code)
	}
}

func TestHubEventRouting(t *testing.T) {
	s, _ := newTestServer(t)

	trades := &Client{send: make(chan exchange.Event, 4), subscriptions: map[string]bool{"trades": true}}
	rounds := &Client{send: make(chan exchange.Event, 4), subscriptions: map[string]bool{"rounds": true}}
	s.hub.clients[trades] = true
	s.hub.clients[rounds] = true

	s.BroadcastEvent(exchange.Event{Type: exchange.EventTokensSold, Amount: 5})

	select {
	case ev := <-trades.send:
		if ev.Type != exchange.EventTokensSold || ev.Amount != 5 {
			t.Errorf("trades event = %+v", ev)
		}
	default:
		t.Fatal("trades subscriber received nothing")
	}
	select {
	case ev := <-rounds.send:
		t.Errorf("rounds subscriber got %s", ev.Type)
	default:
	}
}

func TestCancelOrderForbiddenForNonSeller(t *testing.T) {
	s, clock := newTestServer(t)

	rec := do(t, s, "POST", "/api/v1/purchases", BuyRequest{
		Buyer: alice.Hex(), Amount: 100, Payment: 100 * testPrice,
	})
	if rec.Code != http.StatusOK {
		t.Fatal(rec.Body.String())
	}
	clock.Advance(72 * time.Hour)
	if rec := do(t, s, "POST", "/api/v1/round/trade", nil); rec.Code != http.StatusOK {
		t.Fatal(rec.Body.String())
	}
	rec = do(t, s, "POST", "/api/v1/orders", AddOrderRequest{
		Seller: alice.Hex(), Amount: 100, UnitPrice: testPrice,
	})
	if rec.Code != http.StatusOK {
		t.Fatal(rec.Body.String())
	}
	var resp StatusResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil || resp.OrderID == nil {
		t.Fatalf("add order response: %s", rec.Body.String())
	}

	rec = do(t, s, "POST", "/api/v1/orders/cancel", CancelOrderRequest{
		Seller: bob.Hex(), OrderID: *resp.OrderID,
	})
	if rec.Code != http.StatusForbidden {
		t.Errorf("foreign cancel: status = %d, want 403", rec.Code)
	}
}
