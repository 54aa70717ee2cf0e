package app

import (
	"context"
	"testing"
	"time"

	"github.com/mohtashimnawaz/Decentralized-Event-Ticketing/internal/clock"
	"github.com/mohtashimnawaz/Decentralized-Event-Ticketing/internal/domain"
	"github.com/mohtashimnawaz/Decentralized-Event-Ticketing/internal/storage/memory"
)

var testStart = time.Date(2025, 3, 1, 18, 0, 0, 0, time.UTC)

type testEnv struct {
	store    *memory.Store
	clock    *clock.Manual
	events   *EventService
	ledger   *Ledger
	sales    *SaleService
	resales  *ResaleService
	accounts *AccountService
}

func newTestEnv(t *testing.T, saleOpts []SaleServiceOption, resaleOpts ...ResaleServiceOption) *testEnv {
	t.Helper()

	store := memory.New()
	clk := clock.NewManual(testStart)
	ledger := NewLedger(store, clk)

	return &testEnv{
		store:    store,
		clock:    clk,
		events:   NewEventService(store, clk),
		ledger:   ledger,
		sales:    NewSaleService(store, ledger, store, clk, saleOpts...),
		resales:  NewResaleService(store, store, ledger, store, clk, resaleOpts...),
		accounts: NewAccountService(store),
	}
}

func (e *testEnv) createEvent(t *testing.T, total uint32, price uint64, royaltyBps uint16) domain.Event {
	t.Helper()

	event, err := e.events.CreateEvent(context.Background(), CreateEventInput{
		Organizer:    "organizer",
		Name:         "Spring Show",
		TotalTickets: total,
		TicketPrice:  price,
		RoyaltyBps:   royaltyBps,
		EventDate:    testStart.Add(30 * 24 * time.Hour),
		Venue:        "Main Hall",
	})
	if err != nil {
		t.Fatalf("create event: %v", err)
	}
	return event
}

func (e *testEnv) fund(t *testing.T, identity string, amount uint64) {
	t.Helper()

	if _, err := e.accounts.Deposit(context.Background(), identity, amount); err != nil {
		t.Fatalf("deposit %s: %v", identity, err)
	}
}

func (e *testEnv) mint(t *testing.T, caller, eventID string) domain.Ticket {
	t.Helper()

	ticket, err := e.sales.MintTicket(context.Background(), MintTicketInput{Caller: caller, EventID: eventID})
	if err != nil {
		t.Fatalf("mint for %s: %v", caller, err)
	}
	return ticket
}

func (e *testEnv) balance(t *testing.T, identity string) uint64 {
	t.Helper()

	acct, err := e.accounts.Balance(context.Background(), identity)
	if err != nil {
		t.Fatalf("balance %s: %v", identity, err)
	}
	return acct.Balance
}
