package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mohtashimnawaz/Decentralized-Event-Ticketing/internal/domain"
)

// EventRepository stores events and the per-wallet mint counters that hang
// off them. It serves both the registry and the primary sale.
type EventRepository struct {
	db
}

func NewEventRepository(pool *pgxpool.Pool) *EventRepository {
	return &EventRepository{db{pool: pool}}
}

const eventColumns = `id, organizer, name, venue, description, total_tickets, tickets_sold, ticket_price, royalty_bps, event_date, created_at, version`

func scanEvent(row pgx.Row) (domain.Event, error) {
	var (
		ev                 domain.Event
		total, sold, price int64
		royalty            int32
	)
	err := row.Scan(
		&ev.ID,
		&ev.Organizer,
		&ev.Name,
		&ev.Venue,
		&ev.Description,
		&total,
		&sold,
		&price,
		&royalty,
		&ev.EventDate,
		&ev.CreatedAt,
		&ev.Version,
	)
	if err != nil {
		return domain.Event{}, err
	}
	ev.TotalTickets = uint32(total)
	ev.TicketsSold = uint32(sold)
	ev.TicketPrice = uint64(price)
	ev.RoyaltyBps = uint16(royalty)
	ev.EventDate = ev.EventDate.UTC()
	ev.CreatedAt = ev.CreatedAt.UTC()
	return ev, nil
}

func (r *EventRepository) CreateEvent(ctx context.Context, event domain.Event) error {
	const stmt = `
INSERT INTO events (id, organizer, name, venue, description, total_tickets, tickets_sold, ticket_price, royalty_bps, event_date, created_at, version)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	price, err := toInt8(event.TicketPrice)
	if err != nil {
		return domain.ErrInvalidEventParameters
	}

	_, err = r.exec(ctx, stmt,
		event.ID,
		event.Organizer,
		event.Name,
		event.Venue,
		event.Description,
		int64(event.TotalTickets),
		int64(event.TicketsSold),
		price,
		int32(event.RoyaltyBps),
		event.EventDate,
		event.CreatedAt,
		event.Version,
	)
	if err != nil {
		if isInvalidUUID(err) || isUniqueViolation(err) {
			return domain.ErrInvalidID
		}
		if isCheckViolation(err) {
			return domain.ErrInvalidEventParameters
		}
		return fmt.Errorf("create event: %w", err)
	}
	return nil
}

func (r *EventRepository) GetEvent(ctx context.Context, eventID string) (domain.Event, error) {
	return r.getEvent(ctx, `SELECT `+eventColumns+` FROM events WHERE id = $1`, eventID)
}

// GetEventForUpdate locks the event row until the surrounding transaction ends.
func (r *EventRepository) GetEventForUpdate(ctx context.Context, eventID string) (domain.Event, error) {
	return r.getEvent(ctx, `SELECT `+eventColumns+` FROM events WHERE id = $1 FOR UPDATE`, eventID)
}

func (r *EventRepository) getEvent(ctx context.Context, query, eventID string) (domain.Event, error) {
	ev, err := scanEvent(r.queryRow(ctx, query, eventID))
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Event{}, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return domain.Event{}, domain.ErrEventNotFound
		}
		return domain.Event{}, fmt.Errorf("get event: %w", err)
	}
	return ev, nil
}

func (r *EventRepository) ListEvents(ctx context.Context) ([]domain.Event, error) {
	rows, err := r.query(ctx, `SELECT `+eventColumns+` FROM events ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	events := []domain.Event{}
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return events, nil
}

func (r *EventRepository) SetTicketsSold(ctx context.Context, eventID string, expectedVersion int64, sold uint32) error {
	const stmt = `
UPDATE events
SET tickets_sold = $3, version = version + 1
WHERE id = $1 AND version = $2 AND $3 <= total_tickets`

	tag, err := r.exec(ctx, stmt, eventID, expectedVersion, int64(sold))
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("set tickets sold: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrSoldOut
	}
	return nil
}

func (r *EventRepository) GetWalletCount(ctx context.Context, eventID, wallet string) (uint32, error) {
	const query = `SELECT count FROM wallet_ticket_counts WHERE event_id = $1 AND wallet = $2`

	var count int64
	err := r.queryRow(ctx, query, eventID, wallet).Scan(&count)
	if err != nil {
		if err == pgx.ErrNoRows {
			return 0, nil
		}
		if isInvalidUUID(err) {
			return 0, domain.ErrInvalidID
		}
		return 0, fmt.Errorf("get wallet count: %w", err)
	}
	return uint32(count), nil
}

func (r *EventRepository) IncrementWalletCount(ctx context.Context, eventID, wallet string) error {
	const stmt = `
INSERT INTO wallet_ticket_counts (event_id, wallet, count)
VALUES ($1, $2, 1)
ON CONFLICT (event_id, wallet) DO UPDATE SET count = wallet_ticket_counts.count + 1`

	if _, err := r.exec(ctx, stmt, eventID, wallet); err != nil {
		if isForeignKeyViolation(err) {
			return domain.ErrEventNotFound
		}
		return fmt.Errorf("increment wallet count: %w", err)
	}
	return nil
}
