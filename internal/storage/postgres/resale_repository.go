package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mohtashimnawaz/Decentralized-Event-Ticketing/internal/domain"
)

type ResaleRepository struct {
	db
}

func NewResaleRepository(pool *pgxpool.Pool) *ResaleRepository {
	return &ResaleRepository{db{pool: pool}}
}

func (r *ResaleRepository) CreateResale(ctx context.Context, resale domain.Resale) error {
	const stmt = `
INSERT INTO resales (id, ticket_id, event_id, seller, buyer, price, royalty, seller_proceeds, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	price, err := toInt8(resale.Price)
	if err != nil {
		return domain.ErrInvalidPrice
	}

	_, err = r.exec(ctx, stmt,
		resale.ID,
		resale.TicketID,
		resale.EventID,
		resale.Seller,
		resale.Buyer,
		price,
		int64(resale.Royalty),
		int64(resale.SellerProceeds),
		resale.CreatedAt,
	)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		if isForeignKeyViolation(err) {
			return domain.ErrTicketNotFound
		}
		return fmt.Errorf("create resale: %w", err)
	}
	return nil
}

func (r *ResaleRepository) ListResales(ctx context.Context, ticketID string) ([]domain.Resale, error) {
	const query = `
SELECT id, ticket_id, event_id, seller, buyer, price, royalty, seller_proceeds, created_at
FROM resales
WHERE ticket_id = $1
ORDER BY created_at, id`

	rows, err := r.query(ctx, query, ticketID)
	if err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		return nil, fmt.Errorf("list resales: %w", err)
	}
	defer rows.Close()

	resales := []domain.Resale{}
	for rows.Next() {
		var (
			rs                       domain.Resale
			price, royalty, proceeds int64
		)
		if err := rows.Scan(&rs.ID, &rs.TicketID, &rs.EventID, &rs.Seller, &rs.Buyer, &price, &royalty, &proceeds, &rs.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan resale: %w", err)
		}
		rs.Price = uint64(price)
		rs.Royalty = uint64(royalty)
		rs.SellerProceeds = uint64(proceeds)
		rs.CreatedAt = rs.CreatedAt.UTC()
		resales = append(resales, rs)
	}
	if err := rows.Err(); err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		return nil, fmt.Errorf("list resales: %w", err)
	}
	return resales, nil
}
