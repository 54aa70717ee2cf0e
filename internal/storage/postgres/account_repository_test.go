package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mohtashimnawaz/Decentralized-Event-Ticketing/internal/domain"
	"github.com/mohtashimnawaz/Decentralized-Event-Ticketing/internal/testutil"
)

func TestAccountRepository(t *testing.T) {
	pool := testutil.NewTestPool(t)
	repo := NewAccountRepository(pool)
	testutil.ApplyMigrations(t, context.Background(), pool)

	t.Run("credit then debit", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)

		if bal, err := repo.GetBalance(ctx, "alice"); err != nil || bal != 0 {
			t.Fatalf("expected empty balance, got %d (%v)", bal, err)
		}
		if err := repo.Credit(ctx, "alice", 150); err != nil {
			t.Fatalf("credit: %v", err)
		}
		if err := repo.Debit(ctx, "alice", 100); err != nil {
			t.Fatalf("debit: %v", err)
		}
		if err := repo.Debit(ctx, "alice", 51); err != domain.ErrInsufficientFunds {
			t.Fatalf("expected ErrInsufficientFunds, got %v", err)
		}
		if err := repo.Debit(ctx, "nobody", 1); err != domain.ErrInsufficientFunds {
			t.Fatalf("expected ErrInsufficientFunds for unknown identity, got %v", err)
		}
		if err := repo.Debit(ctx, "nobody", 0); err != nil {
			t.Fatalf("expected zero debit to be a no-op, got %v", err)
		}

		bal, err := repo.GetBalance(ctx, "alice")
		if err != nil || bal != 50 {
			t.Fatalf("expected 50, got %d (%v)", bal, err)
		}
	})

	t.Run("credit overflow is rejected", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)
		testutil.SetBalance(t, ctx, pool, "whale", domain.MaxPrice)

		err := repo.WithTx(ctx, func(txCtx context.Context) error {
			return repo.Credit(txCtx, "whale", 1)
		})
		if err != domain.ErrInvalidAmount {
			t.Fatalf("expected ErrInvalidAmount, got %v", err)
		}
	})
}

func TestResaleRepository(t *testing.T) {
	pool := testutil.NewTestPool(t)
	repo := NewResaleRepository(pool)
	tickets := NewTicketRepository(pool)
	testutil.ApplyMigrations(t, context.Background(), pool)

	ctx := context.Background()
	testutil.TruncateAll(t, ctx, pool)
	eventID := testutil.InsertEvent(t, ctx, pool, "org", 10, 100, 500)

	at := time.Date(2025, 2, 3, 10, 0, 0, 0, time.UTC)
	tk := domain.Ticket{ID: uuid.NewString(), EventID: eventID, Serial: 1, Owner: "dave", PurchasePrice: 100, LastTransferTime: at, CreatedAt: at}
	if err := tickets.CreateTicket(ctx, tk); err != nil {
		t.Fatalf("create ticket: %v", err)
	}

	rs := domain.Resale{
		ID:             uuid.NewString(),
		TicketID:       tk.ID,
		EventID:        eventID,
		Seller:         "alice",
		Buyer:          "dave",
		Price:          200,
		Royalty:        10,
		SellerProceeds: 190,
		CreatedAt:      at,
	}
	if err := repo.CreateResale(ctx, rs); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	got, err := repo.ListResales(ctx, tk.ID)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(got) != 1 || got[0] != rs {
		t.Fatalf("unexpected resales %+v", got)
	}

	bad := rs
	bad.ID = uuid.NewString()
	bad.TicketID = "00000000-0000-0000-0000-000000000004"
	if err := repo.CreateResale(ctx, bad); err != domain.ErrTicketNotFound {
		t.Fatalf("expected ErrTicketNotFound, got %v", err)
	}
}
