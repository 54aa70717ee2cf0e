package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mohtashimnawaz/Decentralized-Event-Ticketing/internal/domain"
)

// TicketRepository is the ownership ledger's storage: tickets and their
// append-only transfer history.
type TicketRepository struct {
	db
}

func NewTicketRepository(pool *pgxpool.Pool) *TicketRepository {
	return &TicketRepository{db{pool: pool}}
}

const ticketColumns = `id, event_id, serial, owner, purchase_price, last_transfer_time, transfer_count, created_at`

func scanTicket(row pgx.Row) (domain.Ticket, error) {
	var (
		t                        domain.Ticket
		serial, price, transfers int64
	)
	err := row.Scan(&t.ID, &t.EventID, &serial, &t.Owner, &price, &t.LastTransferTime, &transfers, &t.CreatedAt)
	if err != nil {
		return domain.Ticket{}, err
	}
	t.Serial = uint32(serial)
	t.PurchasePrice = uint64(price)
	t.TransferCount = uint32(transfers)
	t.LastTransferTime = t.LastTransferTime.UTC()
	t.CreatedAt = t.CreatedAt.UTC()
	return t, nil
}

func (r *TicketRepository) CreateTicket(ctx context.Context, ticket domain.Ticket) error {
	const stmt = `
INSERT INTO tickets (id, event_id, serial, owner, purchase_price, last_transfer_time, transfer_count, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	price, err := toInt8(ticket.PurchasePrice)
	if err != nil {
		return domain.ErrInvalidPrice
	}

	_, err = r.exec(ctx, stmt,
		ticket.ID,
		ticket.EventID,
		int64(ticket.Serial),
		ticket.Owner,
		price,
		ticket.LastTransferTime,
		int64(ticket.TransferCount),
		ticket.CreatedAt,
	)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		if isForeignKeyViolation(err) {
			return domain.ErrEventNotFound
		}
		if isUniqueViolation(err) {
			return fmt.Errorf("create ticket: duplicate id or serial: %w", err)
		}
		return fmt.Errorf("create ticket: %w", err)
	}
	return nil
}

func (r *TicketRepository) GetTicket(ctx context.Context, ticketID string) (domain.Ticket, error) {
	return r.getTicket(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE id = $1`, ticketID)
}

// GetTicketForUpdate locks the ticket row until the surrounding transaction ends.
func (r *TicketRepository) GetTicketForUpdate(ctx context.Context, ticketID string) (domain.Ticket, error) {
	return r.getTicket(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE id = $1 FOR UPDATE`, ticketID)
}

func (r *TicketRepository) getTicket(ctx context.Context, query, ticketID string) (domain.Ticket, error) {
	t, err := scanTicket(r.queryRow(ctx, query, ticketID))
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Ticket{}, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return domain.Ticket{}, domain.ErrTicketNotFound
		}
		return domain.Ticket{}, fmt.Errorf("get ticket: %w", err)
	}
	return t, nil
}

func (r *TicketRepository) SwapTicketOwner(ctx context.Context, expectedOwner string, next domain.Ticket) error {
	const stmt = `
UPDATE tickets
SET owner = $3, last_transfer_time = $4, transfer_count = $5
WHERE id = $1 AND owner = $2`

	tag, err := r.exec(ctx, stmt, next.ID, expectedOwner, next.Owner, next.LastTransferTime, int64(next.TransferCount))
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("swap ticket owner: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	var exists bool
	if err := r.queryRow(ctx, `SELECT EXISTS (SELECT 1 FROM tickets WHERE id = $1)`, next.ID).Scan(&exists); err != nil {
		return fmt.Errorf("swap ticket owner: %w", err)
	}
	if !exists {
		return domain.ErrTicketNotFound
	}
	return domain.ErrNotOwner
}

func (r *TicketRepository) AppendTransfer(ctx context.Context, transfer domain.Transfer) error {
	const stmt = `
INSERT INTO ticket_transfers (ticket_id, sequence, from_owner, to_owner, transferred_at)
VALUES ($1, $2, $3, $4, $5)`

	_, err := r.exec(ctx, stmt,
		transfer.TicketID,
		int64(transfer.Sequence),
		transfer.FromOwner,
		transfer.ToOwner,
		transfer.TransferredAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return domain.ErrTicketNotFound
		}
		if isUniqueViolation(err) {
			// sequence already taken: a concurrent transfer won
			return domain.ErrNotOwner
		}
		return fmt.Errorf("append transfer: %w", err)
	}
	return nil
}

func (r *TicketRepository) ListTransfers(ctx context.Context, ticketID string) ([]domain.Transfer, error) {
	const query = `
SELECT ticket_id, sequence, from_owner, to_owner, transferred_at
FROM ticket_transfers
WHERE ticket_id = $1
ORDER BY sequence`

	rows, err := r.query(ctx, query, ticketID)
	if err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		return nil, fmt.Errorf("list transfers: %w", err)
	}
	defer rows.Close()

	transfers := []domain.Transfer{}
	for rows.Next() {
		var (
			tr  domain.Transfer
			seq int64
		)
		if err := rows.Scan(&tr.TicketID, &seq, &tr.FromOwner, &tr.ToOwner, &tr.TransferredAt); err != nil {
			return nil, fmt.Errorf("scan transfer: %w", err)
		}
		tr.Sequence = uint32(seq)
		tr.TransferredAt = tr.TransferredAt.UTC()
		transfers = append(transfers, tr)
	}
	if err := rows.Err(); err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		return nil, fmt.Errorf("list transfers: %w", err)
	}
	return transfers, nil
}

func (r *TicketRepository) ListTicketsByOwner(ctx context.Context, owner string) ([]domain.Ticket, error) {
	rows, err := r.query(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE owner = $1 ORDER BY event_id, serial`, owner)
	if err != nil {
		return nil, fmt.Errorf("list tickets by owner: %w", err)
	}
	defer rows.Close()

	tickets := []domain.Ticket{}
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ticket: %w", err)
		}
		tickets = append(tickets, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list tickets by owner: %w", err)
	}
	return tickets, nil
}
