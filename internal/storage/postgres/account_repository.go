package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mohtashimnawaz/Decentralized-Event-Ticketing/internal/domain"
)

// AccountRepository keeps identity balances. Debit and Credit join the
// transaction in ctx so settlement commits with the ticket changes.
type AccountRepository struct {
	db
}

func NewAccountRepository(pool *pgxpool.Pool) *AccountRepository {
	return &AccountRepository{db{pool: pool}}
}

func (r *AccountRepository) Debit(ctx context.Context, identity string, amount uint64) error {
	if amount == 0 {
		return nil
	}
	amt, err := toInt8(amount)
	if err != nil {
		return domain.ErrInsufficientFunds
	}

	const stmt = `
UPDATE balances
SET balance = balance - $2, updated_at = NOW()
WHERE identity = $1 AND balance >= $2`

	tag, err := r.exec(ctx, stmt, identity, amt)
	if err != nil {
		return fmt.Errorf("debit: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrInsufficientFunds
	}
	return nil
}

func (r *AccountRepository) Credit(ctx context.Context, identity string, amount uint64) error {
	if amount == 0 {
		return nil
	}
	amt, err := toInt8(amount)
	if err != nil {
		return domain.ErrInvalidAmount
	}

	const stmt = `
INSERT INTO balances (identity, balance, updated_at)
VALUES ($1, $2, NOW())
ON CONFLICT (identity) DO UPDATE SET balance = balances.balance + EXCLUDED.balance, updated_at = NOW()`

	if _, err := r.exec(ctx, stmt, identity, amt); err != nil {
		if isNumericOutOfRange(err) {
			return domain.ErrInvalidAmount
		}
		return fmt.Errorf("credit: %w", err)
	}
	return nil
}

func (r *AccountRepository) GetBalance(ctx context.Context, identity string) (uint64, error) {
	var balance int64
	err := r.queryRow(ctx, `SELECT balance FROM balances WHERE identity = $1`, identity).Scan(&balance)
	if err != nil {
		if err == pgx.ErrNoRows {
			return 0, nil
		}
		return 0, fmt.Errorf("get balance: %w", err)
	}
	return uint64(balance), nil
}
