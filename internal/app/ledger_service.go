package app

import (
	"context"
	"time"

	"github.com/mohtashimnawaz/Decentralized-Event-Ticketing/internal/clock"
	"github.com/mohtashimnawaz/Decentralized-Event-Ticketing/internal/domain"
	"go.opentelemetry.io/otel/attribute"
)

type LedgerRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	CreateTicket(ctx context.Context, ticket domain.Ticket) error
	GetTicket(ctx context.Context, ticketID string) (domain.Ticket, error)
	GetTicketForUpdate(ctx context.Context, ticketID string) (domain.Ticket, error)
	// SwapTicketOwner stores next only while the persisted owner still equals
	// expectedOwner, returning ErrNotOwner otherwise.
	SwapTicketOwner(ctx context.Context, expectedOwner string, next domain.Ticket) error
	AppendTransfer(ctx context.Context, transfer domain.Transfer) error
	ListTransfers(ctx context.Context, ticketID string) ([]domain.Transfer, error)
	ListTicketsByOwner(ctx context.Context, owner string) ([]domain.Ticket, error)
}

// Ledger tracks the current owner of every ticket and its transfer history.
// All ownership changes go through Transfer.
type Ledger struct {
	repo  LedgerRepository
	clock clock.Clock
}

func NewLedger(repo LedgerRepository, clk clock.Clock) *Ledger {
	return &Ledger{
		repo:  repo,
		clock: clk,
	}
}

// Issue records a freshly minted ticket with its first owner.
func (l *Ledger) Issue(ctx context.Context, ticket domain.Ticket) error {
	if ticket.ID == "" || ticket.EventID == "" {
		return domain.ErrInvalidID
	}
	if ticket.Owner == "" {
		return domain.ErrCallerRequired
	}
	return l.repo.CreateTicket(ctx, ticket)
}

// Lock reads a ticket and holds it against concurrent writers until the
// surrounding transaction ends. Outside a transaction it is a plain read.
func (l *Ledger) Lock(ctx context.Context, ticketID string) (domain.Ticket, error) {
	if ticketID == "" {
		return domain.Ticket{}, domain.ErrInvalidID
	}
	return l.repo.GetTicketForUpdate(ctx, ticketID)
}

type TransferInput struct {
	TicketID      string
	ExpectedOwner string
	NewOwner      string
	// At defaults to the ledger clock when zero.
	At time.Time
}

// Transfer moves a ticket from ExpectedOwner to NewOwner. It is a
// compare-and-set: when the ticket is no longer owned by ExpectedOwner the
// call fails with ErrNotOwner and nothing changes.
func (l *Ledger) Transfer(ctx context.Context, in TransferInput) (_ domain.Ticket, err error) {
	ctx, span := startSpan(ctx, "ledger.Transfer", attribute.String("ticket.id", in.TicketID))
	defer func() { endSpan(span, err) }()

	if in.TicketID == "" {
		return domain.Ticket{}, domain.ErrInvalidID
	}
	if in.NewOwner == "" {
		return domain.Ticket{}, domain.ErrInvalidBuyer
	}
	at := in.At
	if at.IsZero() {
		at = l.clock.Now()
	}

	var result domain.Ticket
	err = l.repo.WithTx(ctx, func(txCtx context.Context) error {
		ticket, err := l.repo.GetTicketForUpdate(txCtx, in.TicketID)
		if err != nil {
			return err
		}
		if ticket.Owner != in.ExpectedOwner {
			return domain.ErrNotOwner
		}

		next := ticket
		next.Owner = in.NewOwner
		next.LastTransferTime = at
		next.TransferCount = ticket.TransferCount + 1

		if err := l.repo.SwapTicketOwner(txCtx, in.ExpectedOwner, next); err != nil {
			return err
		}
		if err := l.repo.AppendTransfer(txCtx, domain.Transfer{
			TicketID:      next.ID,
			Sequence:      next.TransferCount,
			FromOwner:     in.ExpectedOwner,
			ToOwner:       in.NewOwner,
			TransferredAt: at,
		}); err != nil {
			return err
		}

		result = next
		return nil
	})
	if err != nil {
		return domain.Ticket{}, err
	}
	return result, nil
}

func (l *Ledger) GetTicket(ctx context.Context, ticketID string) (domain.Ticket, error) {
	if ticketID == "" {
		return domain.Ticket{}, domain.ErrInvalidID
	}
	return l.repo.GetTicket(ctx, ticketID)
}

// History returns the transfers of a ticket, oldest first.
func (l *Ledger) History(ctx context.Context, ticketID string) ([]domain.Transfer, error) {
	if ticketID == "" {
		return nil, domain.ErrInvalidID
	}
	if _, err := l.repo.GetTicket(ctx, ticketID); err != nil {
		return nil, err
	}
	return l.repo.ListTransfers(ctx, ticketID)
}

func (l *Ledger) TicketsByOwner(ctx context.Context, owner string) ([]domain.Ticket, error) {
	if owner == "" {
		return nil, domain.ErrCallerRequired
	}
	return l.repo.ListTicketsByOwner(ctx, owner)
}
