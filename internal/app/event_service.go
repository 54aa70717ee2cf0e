package app

import (
	"context"
	"time"

	"github.com/mohtashimnawaz/Decentralized-Event-Ticketing/internal/clock"
	"github.com/mohtashimnawaz/Decentralized-Event-Ticketing/internal/domain"
	"go.opentelemetry.io/otel/attribute"
)

type EventRepository interface {
	CreateEvent(ctx context.Context, event domain.Event) error
	GetEvent(ctx context.Context, eventID string) (domain.Event, error)
	ListEvents(ctx context.Context) ([]domain.Event, error)
}

// EventService is the event registry: it creates events and serves them back.
// Events are never updated after creation except for the sold counter, which
// only the sale service touches.
type EventService struct {
	repo  EventRepository
	clock clock.Clock
}

func NewEventService(repo EventRepository, clk clock.Clock) *EventService {
	return &EventService{
		repo:  repo,
		clock: clk,
	}
}

type CreateEventInput struct {
	Organizer    string
	Name         string
	TotalTickets uint32
	TicketPrice  uint64
	RoyaltyBps   uint16
	EventDate    time.Time
	Venue        string
	Description  string
}

func (s *EventService) CreateEvent(ctx context.Context, in CreateEventInput) (_ domain.Event, err error) {
	ctx, span := startSpan(ctx, "events.CreateEvent", attribute.String("event.organizer", in.Organizer))
	defer func() { endSpan(span, err) }()

	event := domain.Event{
		ID:           newUUID(),
		Organizer:    in.Organizer,
		Name:         in.Name,
		Venue:        in.Venue,
		Description:  in.Description,
		TotalTickets: in.TotalTickets,
		TicketsSold:  0,
		TicketPrice:  in.TicketPrice,
		RoyaltyBps:   in.RoyaltyBps,
		EventDate:    in.EventDate.UTC(),
		CreatedAt:    s.clock.Now(),
	}
	if errs := domain.ValidateEvent(event); len(errs) > 0 {
		return domain.Event{}, &domain.ValidationError{Fields: errs}
	}

	if err := s.repo.CreateEvent(ctx, event); err != nil {
		return domain.Event{}, err
	}
	span.SetAttributes(attribute.String("event.id", event.ID))
	return event, nil
}

func (s *EventService) GetEvent(ctx context.Context, eventID string) (domain.Event, error) {
	if eventID == "" {
		return domain.Event{}, domain.ErrInvalidID
	}
	return s.repo.GetEvent(ctx, eventID)
}

func (s *EventService) ListEvents(ctx context.Context) ([]domain.Event, error) {
	return s.repo.ListEvents(ctx)
}
