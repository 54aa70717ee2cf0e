package app

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/mohtashimnawaz/Decentralized-Event-Ticketing/internal/domain"
)

func TestSaleService_MintTicket(t *testing.T) {
	t.Parallel()

	t.Run("sells until sold out", func(t *testing.T) {
		env := newTestEnv(t, nil)
		event := env.createEvent(t, 2, 100, 500)
		for _, who := range []string{"alice", "bob", "carol"} {
			env.fund(t, who, 1_000)
		}

		first := env.mint(t, "alice", event.ID)
		if first.Serial != 1 || first.Owner != "alice" {
			t.Fatalf("unexpected first ticket %+v", first)
		}
		if first.TransferCount != 0 || !first.LastTransferTime.Equal(testStart) {
			t.Fatalf("expected fresh ticket, got %+v", first)
		}
		if first.PurchasePrice != 100 {
			t.Fatalf("expected purchase price 100, got %d", first.PurchasePrice)
		}

		second := env.mint(t, "bob", event.ID)
		if second.Serial != 2 {
			t.Fatalf("expected serial 2, got %d", second.Serial)
		}

		_, err := env.sales.MintTicket(context.Background(), MintTicketInput{Caller: "carol", EventID: event.ID})
		if err != domain.ErrSoldOut {
			t.Fatalf("expected ErrSoldOut, got %v", err)
		}

		got, err := env.events.GetEvent(context.Background(), event.ID)
		if err != nil {
			t.Fatalf("get event: %v", err)
		}
		if got.TicketsSold != 2 {
			t.Fatalf("expected tickets_sold 2, got %d", got.TicketsSold)
		}
		if bal := env.balance(t, "carol"); bal != 1_000 {
			t.Fatalf("expected carol untouched, got %d", bal)
		}
		if bal := env.balance(t, "organizer"); bal != 200 {
			t.Fatalf("expected organizer paid 200, got %d", bal)
		}
	})

	t.Run("unknown event", func(t *testing.T) {
		env := newTestEnv(t, nil)
		_, err := env.sales.MintTicket(context.Background(), MintTicketInput{Caller: "alice", EventID: "nope"})
		if err != domain.ErrEventNotFound {
			t.Fatalf("expected ErrEventNotFound, got %v", err)
		}
	})

	t.Run("requires caller", func(t *testing.T) {
		env := newTestEnv(t, nil)
		event := env.createEvent(t, 2, 0, 0)
		_, err := env.sales.MintTicket(context.Background(), MintTicketInput{EventID: event.ID})
		if err != domain.ErrCallerRequired {
			t.Fatalf("expected ErrCallerRequired, got %v", err)
		}
	})

	t.Run("insufficient funds leaves supply untouched", func(t *testing.T) {
		env := newTestEnv(t, nil)
		event := env.createEvent(t, 5, 100, 0)
		env.fund(t, "alice", 99)

		_, err := env.sales.MintTicket(context.Background(), MintTicketInput{Caller: "alice", EventID: event.ID})
		if err != domain.ErrInsufficientFunds {
			t.Fatalf("expected ErrInsufficientFunds, got %v", err)
		}

		got, _ := env.events.GetEvent(context.Background(), event.ID)
		if got.TicketsSold != 0 {
			t.Fatalf("expected tickets_sold 0, got %d", got.TicketsSold)
		}
		if bal := env.balance(t, "alice"); bal != 99 {
			t.Fatalf("expected balance 99, got %d", bal)
		}
		owned, _ := env.ledger.TicketsByOwner(context.Background(), "alice")
		if len(owned) != 0 {
			t.Fatalf("expected no tickets, got %d", len(owned))
		}
	})

	t.Run("free event needs no balance", func(t *testing.T) {
		env := newTestEnv(t, nil)
		event := env.createEvent(t, 1, 0, 0)
		ticket := env.mint(t, "alice", event.ID)
		if ticket.PurchasePrice != 0 {
			t.Fatalf("expected free ticket, got price %d", ticket.PurchasePrice)
		}
	})

	t.Run("enforces wallet limit", func(t *testing.T) {
		env := newTestEnv(t, []SaleServiceOption{WithWalletLimit(2)})
		event := env.createEvent(t, 10, 0, 0)

		env.mint(t, "alice", event.ID)
		env.mint(t, "alice", event.ID)
		_, err := env.sales.MintTicket(context.Background(), MintTicketInput{Caller: "alice", EventID: event.ID})
		if err != domain.ErrTicketLimitReached {
			t.Fatalf("expected ErrTicketLimitReached, got %v", err)
		}

		// the limit is per wallet
		env.mint(t, "bob", event.ID)

		got, _ := env.events.GetEvent(context.Background(), event.ID)
		if got.TicketsSold != 3 {
			t.Fatalf("expected tickets_sold 3, got %d", got.TicketsSold)
		}
	})

	t.Run("zero wallet limit is unlimited", func(t *testing.T) {
		env := newTestEnv(t, []SaleServiceOption{WithWalletLimit(0)})
		event := env.createEvent(t, 6, 0, 0)
		for i := 0; i < 6; i++ {
			env.mint(t, "alice", event.ID)
		}
	})
}

func TestSaleService_MintTicket_ConcurrentNoOversell(t *testing.T) {
	t.Parallel()

	const (
		supply  = 10
		buyers  = 40
		price   = 25
		balance = 100
	)

	env := newTestEnv(t, nil)
	event := env.createEvent(t, supply, price, 0)
	for i := 0; i < buyers; i++ {
		env.fund(t, fmt.Sprintf("buyer-%d", i), balance)
	}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		sold    []domain.Ticket
		soldOut int
		others  []error
	)
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ticket, err := env.sales.MintTicket(context.Background(), MintTicketInput{
				Caller:  fmt.Sprintf("buyer-%d", i),
				EventID: event.ID,
			})
			mu.Lock()
			defer mu.Unlock()
			switch err {
			case nil:
				sold = append(sold, ticket)
			case domain.ErrSoldOut:
				soldOut++
			default:
				others = append(others, err)
			}
		}(i)
	}
	wg.Wait()

	if len(others) > 0 {
		t.Fatalf("unexpected errors: %v", others)
	}
	if len(sold) != supply {
		t.Fatalf("expected %d successful mints, got %d", supply, len(sold))
	}
	if soldOut != buyers-supply {
		t.Fatalf("expected %d sold out, got %d", buyers-supply, soldOut)
	}

	serials := make(map[uint32]bool)
	for _, tk := range sold {
		if tk.Serial < 1 || tk.Serial > supply || serials[tk.Serial] {
			t.Fatalf("bad or duplicate serial %d", tk.Serial)
		}
		serials[tk.Serial] = true
	}

	got, _ := env.events.GetEvent(context.Background(), event.ID)
	if got.TicketsSold != supply {
		t.Fatalf("expected tickets_sold %d, got %d", supply, got.TicketsSold)
	}
	if bal := env.balance(t, "organizer"); bal != supply*price {
		t.Fatalf("expected organizer balance %d, got %d", supply*price, bal)
	}
}
