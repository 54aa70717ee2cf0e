package app

import (
	"context"

	"github.com/mohtashimnawaz/Decentralized-Event-Ticketing/internal/domain"
)

// PaymentRepository moves funds between identities. Both operations join the
// caller's transaction so settlement commits or rolls back with the ledger.
type PaymentRepository interface {
	// Debit fails with ErrInsufficientFunds when the balance is below amount.
	Debit(ctx context.Context, identity string, amount uint64) error
	Credit(ctx context.Context, identity string, amount uint64) error
}

type AccountRepository interface {
	PaymentRepository
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	GetBalance(ctx context.Context, identity string) (uint64, error)
}

type AccountService struct {
	repo AccountRepository
}

func NewAccountService(repo AccountRepository) *AccountService {
	return &AccountService{repo: repo}
}

// Deposit funds an identity's account. Real settlement happens outside the
// ledger; this is the entry point that makes balances available to it.
func (s *AccountService) Deposit(ctx context.Context, identity string, amount uint64) (domain.Account, error) {
	if identity == "" {
		return domain.Account{}, domain.ErrCallerRequired
	}
	if amount == 0 || amount > domain.MaxPrice {
		return domain.Account{}, domain.ErrInvalidAmount
	}

	var result domain.Account
	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.Credit(txCtx, identity, amount); err != nil {
			return err
		}
		balance, err := s.repo.GetBalance(txCtx, identity)
		if err != nil {
			return err
		}
		result = domain.Account{Identity: identity, Balance: balance}
		return nil
	})
	if err != nil {
		return domain.Account{}, err
	}
	return result, nil
}

func (s *AccountService) Balance(ctx context.Context, identity string) (domain.Account, error) {
	if identity == "" {
		return domain.Account{}, domain.ErrCallerRequired
	}
	balance, err := s.repo.GetBalance(ctx, identity)
	if err != nil {
		return domain.Account{}, err
	}
	return domain.Account{Identity: identity, Balance: balance}, nil
}
