package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/mohtashimnawaz/Decentralized-Event-Ticketing/internal/app"
	"github.com/mohtashimnawaz/Decentralized-Event-Ticketing/internal/clock"
	"github.com/mohtashimnawaz/Decentralized-Event-Ticketing/internal/idempotency"
	"github.com/mohtashimnawaz/Decentralized-Event-Ticketing/internal/storage/memory"
)

var routerStart = time.Date(2025, 3, 1, 18, 0, 0, 0, time.UTC)

type routerEnv struct {
	handler http.Handler
	clock   *clock.Manual
}

func newRouterEnv(t *testing.T, withDedup bool) *routerEnv {
	t.Helper()

	store := memory.New()
	clk := clock.NewManual(routerStart)
	ledger := app.NewLedger(store, clk)

	svc := Services{
		Events:   app.NewEventService(store, clk),
		Sales:    app.NewSaleService(store, ledger, store, clk),
		Ledger:   ledger,
		Resales:  app.NewResaleService(store, store, ledger, store, clk),
		Accounts: app.NewAccountService(store),
	}
	if withDedup {
		m, err := miniredis.Run()
		if err != nil {
			t.Fatalf("start miniredis: %v", err)
		}
		t.Cleanup(m.Close)

		client, err := idempotency.NewRedisClient("redis://" + m.Addr())
		if err != nil {
			t.Fatalf("redis client: %v", err)
		}
		t.Cleanup(func() { _ = client.Close() })
		svc.Dedup = idempotency.NewRedisDeduper(client, time.Hour)
	}

	logger, _ := test.NewNullLogger()
	return &routerEnv{
		handler: NewRouter(svc, RouterConfig{Logger: logger}),
		clock:   clk,
	}
}

func (e *routerEnv) do(t *testing.T, method, path, caller, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, bytes.NewReader([]byte(body)))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if caller != "" {
		req.Header.Set(callerHeader, caller)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v (body %q)", err, rec.Body.String())
	}
	return v
}

func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, status int, code string) {
	t.Helper()

	if rec.Code != status {
		t.Fatalf("expected status %d, got %d (body %q)", status, rec.Code, rec.Body.String())
	}
	if code == "" {
		return
	}
	resp := decodeBody[errorResponse](t, rec)
	if resp.Code != code {
		t.Fatalf("expected code %s, got %s", code, resp.Code)
	}
}

const showBody = `{"name":"Spring Show","total_tickets":2,"ticket_price":100,"royalty_bps":500,"event_date":"2025-04-01T20:00:00Z","venue":"Main Hall"}`

func TestRouter_SaleAndResaleFlow(t *testing.T) {
	t.Parallel()

	env := newRouterEnv(t, true)

	rec := env.do(t, http.MethodPost, "/events", "organizer", showBody)
	expectStatus(t, rec, http.StatusCreated, "")
	event := decodeBody[eventResponse](t, rec)
	if event.Organizer != "organizer" || event.Remaining != 2 {
		t.Fatalf("unexpected event %+v", event)
	}
	mintPath := "/events/" + event.ID + "/tickets"

	for _, who := range []string{"alice", "carol"} {
		expectStatus(t, env.do(t, http.MethodPost, "/account/deposit", who, `{"amount":100}`), http.StatusOK, "")
	}

	rec = env.do(t, http.MethodPost, mintPath, "alice", "", idempotencyHeader, "alice-1")
	expectStatus(t, rec, http.StatusCreated, "")
	ticket := decodeBody[ticketResponse](t, rec)
	if ticket.Owner != "alice" || ticket.Serial != 1 || ticket.PurchasePrice != 100 {
		t.Fatalf("unexpected ticket %+v", ticket)
	}

	// retried submission is rejected
	expectStatus(t, env.do(t, http.MethodPost, mintPath, "alice", "", idempotencyHeader, "alice-1"), http.StatusConflict, codeDuplicateRequest)

	// failed mint releases the key
	expectStatus(t, env.do(t, http.MethodPost, mintPath, "bob", "", idempotencyHeader, "bob-1"), http.StatusPaymentRequired, codeInsufficientFunds)
	expectStatus(t, env.do(t, http.MethodPost, "/account/deposit", "bob", `{"amount":100}`), http.StatusOK, "")
	expectStatus(t, env.do(t, http.MethodPost, mintPath, "bob", "", idempotencyHeader, "bob-1"), http.StatusCreated, "")

	expectStatus(t, env.do(t, http.MethodPost, mintPath, "carol", ""), http.StatusConflict, codeSoldOut)

	rec = env.do(t, http.MethodGet, "/events/"+event.ID, "", "")
	expectStatus(t, rec, http.StatusOK, "")
	if got := decodeBody[eventResponse](t, rec); got.TicketsSold != 2 || got.Remaining != 0 {
		t.Fatalf("expected sold out event, got %+v", got)
	}

	resalePath := "/tickets/" + ticket.ID + "/resale"
	expectStatus(t, env.do(t, http.MethodPost, resalePath, "alice", `{"new_price":200,"buyer":"carol"}`), http.StatusConflict, codeHoldingPeriodNotMet)

	env.clock.Advance(24 * time.Hour)
	expectStatus(t, env.do(t, http.MethodPost, resalePath, "alice", `{"new_price":200,"buyer":"carol"}`), http.StatusPaymentRequired, codeInsufficientFunds)
	expectStatus(t, env.do(t, http.MethodPost, "/account/deposit", "carol", `{"amount":100}`), http.StatusOK, "")

	rec = env.do(t, http.MethodPost, resalePath, "alice", `{"new_price":200,"buyer":"carol"}`)
	expectStatus(t, rec, http.StatusOK, "")
	sale := decodeBody[resellResponse](t, rec)
	if sale.Resale.Royalty != 10 || sale.Resale.SellerProceeds != 190 {
		t.Fatalf("unexpected split %+v", sale.Resale)
	}
	if sale.Ticket.Owner != "carol" || sale.Ticket.TransferCount != 1 {
		t.Fatalf("unexpected ticket after resale %+v", sale.Ticket)
	}

	expectStatus(t, env.do(t, http.MethodPost, resalePath, "alice", `{"new_price":200,"buyer":"bob"}`), http.StatusConflict, codeNotOwner)

	rec = env.do(t, http.MethodGet, "/tickets/"+ticket.ID+"/transfers", "", "")
	expectStatus(t, rec, http.StatusOK, "")
	transfers := decodeBody[[]transferResponse](t, rec)
	if len(transfers) != 1 || transfers[0].FromOwner != "alice" || transfers[0].ToOwner != "carol" || transfers[0].Sequence != 1 {
		t.Fatalf("unexpected transfers %+v", transfers)
	}

	rec = env.do(t, http.MethodGet, "/tickets/"+ticket.ID+"/resales", "", "")
	expectStatus(t, rec, http.StatusOK, "")
	if receipts := decodeBody[[]resaleResponse](t, rec); len(receipts) != 1 || receipts[0].Price != 200 {
		t.Fatalf("unexpected receipts %+v", receipts)
	}

	balances := map[string]uint64{"organizer": 210, "alice": 190, "carol": 0, "bob": 0}
	for who, want := range balances {
		rec = env.do(t, http.MethodGet, "/account", who, "")
		expectStatus(t, rec, http.StatusOK, "")
		if got := decodeBody[accountResponse](t, rec); got.Balance != want {
			t.Fatalf("expected %s balance %d, got %d", who, want, got.Balance)
		}
	}

	rec = env.do(t, http.MethodGet, "/me/tickets", "carol", "")
	expectStatus(t, rec, http.StatusOK, "")
	if mine := decodeBody[[]ticketResponse](t, rec); len(mine) != 1 || mine[0].ID != ticket.ID {
		t.Fatalf("unexpected tickets for carol %+v", mine)
	}

	rec = env.do(t, http.MethodGet, "/me/tickets", "alice", "")
	expectStatus(t, rec, http.StatusOK, "")
	if mine := decodeBody[[]ticketResponse](t, rec); len(mine) != 0 {
		t.Fatalf("expected alice to hold nothing, got %+v", mine)
	}
}

func TestRouter_Rejections(t *testing.T) {
	t.Parallel()

	env := newRouterEnv(t, false)

	rec := env.do(t, http.MethodPost, "/events", "organizer", showBody)
	expectStatus(t, rec, http.StatusCreated, "")
	event := decodeBody[eventResponse](t, rec)

	tests := []struct {
		name           string
		method         string
		path           string
		caller         string
		body           string
		expectedStatus int
		expectedCode   string
	}{
		{"anonymous create", http.MethodPost, "/events", "", showBody, http.StatusUnauthorized, codeUnauthorized},
		{"malformed body", http.MethodPost, "/events", "organizer", `{"name":`, http.StatusBadRequest, codeInvalidRequestBody},
		{"unknown field", http.MethodPost, "/events", "organizer", `{"title":"x"}`, http.StatusBadRequest, codeInvalidRequestBody},
		{"bad date", http.MethodPost, "/events", "organizer", `{"name":"x","total_tickets":1,"event_date":"tomorrow"}`, http.StatusBadRequest, codeInvalidEventParameters},
		{"zero supply", http.MethodPost, "/events", "organizer", `{"name":"x","total_tickets":0,"event_date":"2025-04-01T20:00:00Z"}`, http.StatusBadRequest, codeInvalidEventParameters},
		{"royalty too high", http.MethodPost, "/events", "organizer", `{"name":"x","total_tickets":1,"royalty_bps":10001,"event_date":"2025-04-01T20:00:00Z"}`, http.StatusBadRequest, codeInvalidEventParameters},
		{"events delete", http.MethodDelete, "/events", "organizer", "", http.StatusMethodNotAllowed, codeMethodNotAllowed},
		{"unknown event", http.MethodGet, "/events/missing", "", "", http.StatusNotFound, codeEventNotFound},
		{"mint unknown event", http.MethodPost, "/events/missing/tickets", "alice", "", http.StatusNotFound, codeEventNotFound},
		{"anonymous mint", http.MethodPost, "/events/" + event.ID + "/tickets", "", "", http.StatusUnauthorized, codeUnauthorized},
		{"mint with get", http.MethodGet, "/events/" + event.ID + "/tickets", "alice", "", http.StatusMethodNotAllowed, codeMethodNotAllowed},
		{"event sub-resource", http.MethodGet, "/events/" + event.ID + "/zones", "", "", http.StatusNotFound, codeNotFound},
		{"unknown ticket", http.MethodGet, "/tickets/missing", "", "", http.StatusNotFound, codeTicketNotFound},
		{"unknown ticket history", http.MethodGet, "/tickets/missing/transfers", "", "", http.StatusNotFound, codeTicketNotFound},
		{"resell unknown ticket", http.MethodPost, "/tickets/missing/resale", "alice", `{"new_price":1,"buyer":"bob"}`, http.StatusNotFound, codeTicketNotFound},
		{"resell bad body", http.MethodPost, "/tickets/missing/resale", "alice", `[]`, http.StatusBadRequest, codeInvalidRequestBody},
		{"ticket too deep", http.MethodGet, "/tickets/a/b/c", "", "", http.StatusNotFound, codeNotFound},
		{"zero deposit", http.MethodPost, "/account/deposit", "alice", `{"amount":0}`, http.StatusBadRequest, codeInvalidAmount},
		{"negative deposit", http.MethodPost, "/account/deposit", "alice", `{"amount":-5}`, http.StatusBadRequest, codeInvalidRequestBody},
		{"anonymous account", http.MethodGet, "/account", "", "", http.StatusUnauthorized, codeUnauthorized},
		{"anonymous my tickets", http.MethodGet, "/me/tickets", "", "", http.StatusUnauthorized, codeUnauthorized},
		{"unknown route", http.MethodGet, "/venues", "", "", http.StatusNotFound, codeNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, tt.method, tt.path, tt.caller, tt.body)
			expectStatus(t, rec, tt.expectedStatus, tt.expectedCode)
		})
	}
}

func TestRouter_ValidationFields(t *testing.T) {
	t.Parallel()

	env := newRouterEnv(t, false)

	rec := env.do(t, http.MethodPost, "/events", "organizer", `{"name":"","total_tickets":0,"event_date":"2025-04-01T20:00:00Z"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}
	resp := decodeBody[errorResponse](t, rec)
	fields := map[string]bool{}
	for _, f := range resp.Fields {
		fields[f.Field] = true
	}
	if !fields["name"] || !fields["total_tickets"] {
		t.Fatalf("expected name and total_tickets fields, got %+v", resp.Fields)
	}
}

func TestRouter_HealthAndReady(t *testing.T) {
	t.Parallel()

	env := newRouterEnv(t, false)
	rec := env.do(t, http.MethodGet, "/health", "", "")
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("unexpected health response %d %q", rec.Code, rec.Body.String())
	}
	rec = env.do(t, http.MethodGet, "/ready", "", "")
	if rec.Code != http.StatusOK || rec.Body.String() != "ready" {
		t.Fatalf("unexpected ready response %d %q", rec.Code, rec.Body.String())
	}
}

func TestReadyHandler_Unavailable(t *testing.T) {
	t.Parallel()

	down := PingFunc(func(context.Context) error { return errors.New("connection refused") })
	up := PingFunc(func(context.Context) error { return nil })

	req := httptest.NewRequest(http.MethodGet, "/ready", nil)
	rec := httptest.NewRecorder()
	ReadyHandler(up, nil, down).ServeHTTP(rec, req)

	expectStatus(t, rec, http.StatusServiceUnavailable, codeUnavailable)
}

func TestRouter_BearerAuth(t *testing.T) {
	t.Parallel()

	logger, _ := test.NewNullLogger()
	handler := NewRouter(Services{Accounts: app.NewAccountService(memory.New())}, RouterConfig{
		Auth:   NewAuthenticator(testSecret, "ticketing"),
		Logger: logger,
	})
	token := signToken(t, jwt.SigningMethodHS256, []byte(testSecret), validClaims("dave"))

	req := httptest.NewRequest(http.MethodPost, "/account/deposit", bytes.NewReader([]byte(`{"amount":5}`)))
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	expectStatus(t, rec, http.StatusOK, "")
	if got := decodeBody[accountResponse](t, rec); got.Identity != "dave" || got.Balance != 5 {
		t.Fatalf("unexpected account %+v", got)
	}

	// header identity is not trusted once tokens are required
	req = httptest.NewRequest(http.MethodGet, "/account", nil)
	req.Header.Set(callerHeader, "dave")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	expectStatus(t, rec, http.StatusUnauthorized, codeUnauthorized)
}
