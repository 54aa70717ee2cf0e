package http

import (
	"context"
	"net/http"

	"github.com/mohtashimnawaz/Decentralized-Event-Ticketing/internal/domain"
)

// AccountService is the minimal interface needed for the account endpoints.
type AccountService interface {
	Deposit(ctx context.Context, identity string, amount uint64) (domain.Account, error)
	Balance(ctx context.Context, identity string) (domain.Account, error)
}

// HandleAccount returns the caller's balance.
func HandleAccount(svc AccountService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}
		caller, ok := requireCaller(w, r)
		if !ok {
			return
		}

		account, err := svc.Balance(r.Context(), caller)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, accountResponse{Identity: account.Identity, Balance: account.Balance})
	}
}

// HandleDeposit credits the caller's balance.
func HandleDeposit(svc AccountService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}
		caller, ok := requireCaller(w, r)
		if !ok {
			return
		}

		var req depositRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}

		account, err := svc.Deposit(r.Context(), caller, req.Amount)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, accountResponse{Identity: account.Identity, Balance: account.Balance})
	}
}

type depositRequest struct {
	Amount uint64 `json:"amount"`
}

type accountResponse struct {
	Identity string `json:"identity"`
	Balance  uint64 `json:"balance"`
}
