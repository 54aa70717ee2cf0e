package app

import (
	"context"

	"github.com/mohtashimnawaz/Decentralized-Event-Ticketing/internal/clock"
	"github.com/mohtashimnawaz/Decentralized-Event-Ticketing/internal/domain"
	"go.opentelemetry.io/otel/attribute"
)

type SaleRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	GetEventForUpdate(ctx context.Context, eventID string) (domain.Event, error)
	// SetTicketsSold stores sold and bumps the version only while the event is
	// still at expectedVersion and below its supply; otherwise ErrSoldOut.
	SetTicketsSold(ctx context.Context, eventID string, expectedVersion int64, sold uint32) error
	GetWalletCount(ctx context.Context, eventID, wallet string) (uint32, error)
	IncrementWalletCount(ctx context.Context, eventID, wallet string) error
}

// SaleService runs the primary sale: it mints tickets against an event's
// remaining supply.
type SaleService struct {
	repo        SaleRepository
	ledger      *Ledger
	payments    PaymentRepository
	clock       clock.Clock
	walletLimit uint32
}

const defaultWalletLimit = 4

func NewSaleService(repo SaleRepository, ledger *Ledger, payments PaymentRepository, clk clock.Clock, opts ...SaleServiceOption) *SaleService {
	svc := &SaleService{
		repo:        repo,
		ledger:      ledger,
		payments:    payments,
		clock:       clk,
		walletLimit: defaultWalletLimit,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

type SaleServiceOption func(*SaleService)

// WithWalletLimit caps how many tickets one wallet may mint per event.
// Zero removes the cap.
func WithWalletLimit(n uint32) SaleServiceOption {
	return func(s *SaleService) {
		s.walletLimit = n
	}
}

type MintTicketInput struct {
	Caller  string
	EventID string
}

// MintTicket sells the next ticket of an event to the caller. The sold-out
// check, payment, counter increment and ticket issue commit together.
func (s *SaleService) MintTicket(ctx context.Context, in MintTicketInput) (_ domain.Ticket, err error) {
	ctx, span := startSpan(ctx, "sale.MintTicket", attribute.String("event.id", in.EventID))
	defer func() { endSpan(span, err) }()

	if in.Caller == "" {
		return domain.Ticket{}, domain.ErrCallerRequired
	}
	if in.EventID == "" {
		return domain.Ticket{}, domain.ErrInvalidID
	}

	now := s.clock.Now()
	var result domain.Ticket

	err = s.repo.WithTx(ctx, func(txCtx context.Context) error {
		event, err := s.repo.GetEventForUpdate(txCtx, in.EventID)
		if err != nil {
			return err
		}
		if event.SoldOut() {
			return domain.ErrSoldOut
		}

		if s.walletLimit > 0 {
			count, err := s.repo.GetWalletCount(txCtx, event.ID, in.Caller)
			if err != nil {
				return err
			}
			if count >= s.walletLimit {
				return domain.ErrTicketLimitReached
			}
		}

		if err := s.payments.Debit(txCtx, in.Caller, event.TicketPrice); err != nil {
			return err
		}
		if err := s.payments.Credit(txCtx, event.Organizer, event.TicketPrice); err != nil {
			return err
		}

		sold := event.TicketsSold + 1
		if err := s.repo.SetTicketsSold(txCtx, event.ID, event.Version, sold); err != nil {
			return err
		}

		ticket := domain.Ticket{
			ID:               newUUID(),
			EventID:          event.ID,
			Serial:           sold,
			Owner:            in.Caller,
			PurchasePrice:    event.TicketPrice,
			LastTransferTime: now,
			TransferCount:    0,
			CreatedAt:        now,
		}
		if err := s.ledger.Issue(txCtx, ticket); err != nil {
			return err
		}
		if err := s.repo.IncrementWalletCount(txCtx, event.ID, in.Caller); err != nil {
			return err
		}

		result = ticket
		return nil
	})
	if err != nil {
		return domain.Ticket{}, err
	}

	span.SetAttributes(attribute.String("ticket.id", result.ID), attribute.Int64("ticket.serial", int64(result.Serial)))
	return result, nil
}
