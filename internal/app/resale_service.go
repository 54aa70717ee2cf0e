package app

import (
	"context"
	"time"

	"github.com/mohtashimnawaz/Decentralized-Event-Ticketing/internal/clock"
	"github.com/mohtashimnawaz/Decentralized-Event-Ticketing/internal/domain"
	"go.opentelemetry.io/otel/attribute"
)

type ResaleRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	CreateResale(ctx context.Context, resale domain.Resale) error
	ListResales(ctx context.Context, ticketID string) ([]domain.Resale, error)
}

type EventReader interface {
	GetEvent(ctx context.Context, eventID string) (domain.Event, error)
}

// ResaleService is the secondary market. A resale settles the buyer, the
// organizer royalty and the seller proceeds in the same transaction as the
// ownership transfer.
type ResaleService struct {
	repo          ResaleRepository
	events        EventReader
	ledger        *Ledger
	payments      PaymentRepository
	clock         clock.Clock
	holdingPeriod time.Duration
	maxMarkupBps  uint32
}

const defaultHoldingPeriod = 24 * time.Hour

func NewResaleService(repo ResaleRepository, events EventReader, ledger *Ledger, payments PaymentRepository, clk clock.Clock, opts ...ResaleServiceOption) *ResaleService {
	svc := &ResaleService{
		repo:          repo,
		events:        events,
		ledger:        ledger,
		payments:      payments,
		clock:         clk,
		holdingPeriod: defaultHoldingPeriod,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

type ResaleServiceOption func(*ResaleService)

// WithHoldingPeriod overrides how long a ticket must be held before resale.
func WithHoldingPeriod(d time.Duration) ResaleServiceOption {
	return func(s *ResaleService) {
		if d >= 0 {
			s.holdingPeriod = d
		}
	}
}

// WithMaxMarkupBps caps resale prices at face price plus bps. Zero disables the cap.
func WithMaxMarkupBps(bps uint32) ResaleServiceOption {
	return func(s *ResaleService) {
		s.maxMarkupBps = bps
	}
}

type ResellTicketInput struct {
	Caller   string
	TicketID string
	NewPrice uint64
	Buyer    string
}

type ResellTicketResult struct {
	Ticket domain.Ticket
	Resale domain.Resale
}

func (s *ResaleService) ResellTicket(ctx context.Context, in ResellTicketInput) (_ ResellTicketResult, err error) {
	ctx, span := startSpan(ctx, "resale.ResellTicket",
		attribute.String("ticket.id", in.TicketID),
		attribute.Int64("resale.price", int64(min(in.NewPrice, domain.MaxPrice))),
	)
	defer func() { endSpan(span, err) }()

	if in.Caller == "" {
		return ResellTicketResult{}, domain.ErrCallerRequired
	}
	if in.TicketID == "" {
		return ResellTicketResult{}, domain.ErrInvalidID
	}

	now := s.clock.Now()
	var result ResellTicketResult

	err = s.repo.WithTx(ctx, func(txCtx context.Context) error {
		ticket, err := s.ledger.Lock(txCtx, in.TicketID)
		if err != nil {
			return err
		}
		if ticket.Owner != in.Caller {
			return domain.ErrNotOwner
		}
		if ticket.HeldFor(now) < s.holdingPeriod {
			return domain.ErrHoldingPeriodNotMet
		}
		if in.NewPrice == 0 || in.NewPrice > domain.MaxPrice {
			return domain.ErrInvalidPrice
		}
		if in.Buyer == "" || in.Buyer == in.Caller {
			return domain.ErrInvalidBuyer
		}

		event, err := s.events.GetEvent(txCtx, ticket.EventID)
		if err != nil {
			return err
		}
		if s.maxMarkupBps > 0 && in.NewPrice > domain.MaxPriceWithMarkup(event.TicketPrice, s.maxMarkupBps) {
			return domain.ErrInvalidPrice
		}

		royalty, proceeds, err := domain.Split(in.NewPrice, event.RoyaltyBps)
		if err != nil {
			return err
		}

		if err := s.payments.Debit(txCtx, in.Buyer, in.NewPrice); err != nil {
			return err
		}
		if err := s.payments.Credit(txCtx, event.Organizer, royalty); err != nil {
			return err
		}
		if err := s.payments.Credit(txCtx, in.Caller, proceeds); err != nil {
			return err
		}

		transferred, err := s.ledger.Transfer(txCtx, TransferInput{
			TicketID:      ticket.ID,
			ExpectedOwner: in.Caller,
			NewOwner:      in.Buyer,
			At:            now,
		})
		if err != nil {
			return err
		}

		resale := domain.Resale{
			ID:             newUUID(),
			TicketID:       ticket.ID,
			EventID:        event.ID,
			Seller:         in.Caller,
			Buyer:          in.Buyer,
			Price:          in.NewPrice,
			Royalty:        royalty,
			SellerProceeds: proceeds,
			CreatedAt:      now,
		}
		if err := s.repo.CreateResale(txCtx, resale); err != nil {
			return err
		}

		result = ResellTicketResult{Ticket: transferred, Resale: resale}
		return nil
	})
	if err != nil {
		return ResellTicketResult{}, err
	}
	return result, nil
}

// ResaleHistory returns the settled resales of a ticket, oldest first.
func (s *ResaleService) ResaleHistory(ctx context.Context, ticketID string) ([]domain.Resale, error) {
	if _, err := s.ledger.GetTicket(ctx, ticketID); err != nil {
		return nil, err
	}
	return s.repo.ListResales(ctx, ticketID)
}
