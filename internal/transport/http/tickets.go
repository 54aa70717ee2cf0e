package http

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/mohtashimnawaz/Decentralized-Event-Ticketing/internal/app"
	"github.com/mohtashimnawaz/Decentralized-Event-Ticketing/internal/domain"
)

// TicketLedger is the minimal interface needed to read ownership records.
type TicketLedger interface {
	GetTicket(ctx context.Context, ticketID string) (domain.Ticket, error)
	History(ctx context.Context, ticketID string) ([]domain.Transfer, error)
	TicketsByOwner(ctx context.Context, owner string) ([]domain.Ticket, error)
}

// ResaleService is the minimal interface needed for the resale endpoints.
type ResaleService interface {
	ResellTicket(ctx context.Context, in app.ResellTicketInput) (app.ResellTicketResult, error)
	ResaleHistory(ctx context.Context, ticketID string) ([]domain.Resale, error)
}

// HandleTicket serves /tickets/{id} and its transfers, resale and resales
// sub-resources.
func HandleTicket(ledger TicketLedger, resales ResaleService, dedup Deduper) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
		if len(parts) < 2 || parts[0] != "tickets" || parts[1] == "" || len(parts) > 3 {
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
			return
		}
		ticketID := parts[1]

		action := ""
		if len(parts) == 3 {
			action = parts[2]
		}

		switch action {
		case "":
			if r.Method != http.MethodGet {
				writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
				return
			}
			ticket, err := ledger.GetTicket(r.Context(), ticketID)
			if err != nil {
				writeServiceError(w, r, err)
				return
			}
			writeJSON(w, http.StatusOK, newTicketResponse(ticket))
		case "transfers":
			if r.Method != http.MethodGet {
				writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
				return
			}
			history, err := ledger.History(r.Context(), ticketID)
			if err != nil {
				writeServiceError(w, r, err)
				return
			}
			resp := make([]transferResponse, 0, len(history))
			for _, tr := range history {
				resp = append(resp, transferResponse{
					Sequence:      tr.Sequence,
					FromOwner:     tr.FromOwner,
					ToOwner:       tr.ToOwner,
					TransferredAt: tr.TransferredAt,
				})
			}
			writeJSON(w, http.StatusOK, resp)
		case "resales":
			if r.Method != http.MethodGet {
				writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
				return
			}
			receipts, err := resales.ResaleHistory(r.Context(), ticketID)
			if err != nil {
				writeServiceError(w, r, err)
				return
			}
			resp := make([]resaleResponse, 0, len(receipts))
			for _, receipt := range receipts {
				resp = append(resp, newResaleResponse(receipt))
			}
			writeJSON(w, http.StatusOK, resp)
		case "resale":
			if r.Method != http.MethodPost {
				writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
				return
			}
			handleResell(w, r, resales, dedup, ticketID)
		default:
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
		}
	}
}

func handleResell(w http.ResponseWriter, r *http.Request, svc ResaleService, dedup Deduper, ticketID string) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}

	var req resellRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
		return
	}

	release, ok := claimIdempotencyKey(w, r, dedup, "resale", caller)
	if !ok {
		return
	}

	res, err := svc.ResellTicket(r.Context(), app.ResellTicketInput{
		Caller:   caller,
		TicketID: ticketID,
		NewPrice: req.NewPrice,
		Buyer:    req.Buyer,
	})
	if err != nil {
		release()
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resellResponse{
		Ticket: newTicketResponse(res.Ticket),
		Resale: newResaleResponse(res.Resale),
	})
}

// HandleMyTickets lists the tickets held by the caller.
func HandleMyTickets(ledger TicketLedger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}
		caller, ok := requireCaller(w, r)
		if !ok {
			return
		}

		tickets, err := ledger.TicketsByOwner(r.Context(), caller)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		resp := make([]ticketResponse, 0, len(tickets))
		for _, ticket := range tickets {
			resp = append(resp, newTicketResponse(ticket))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

type resellRequest struct {
	NewPrice uint64 `json:"new_price"`
	Buyer    string `json:"buyer"`
}

type ticketResponse struct {
	ID               string    `json:"id"`
	EventID          string    `json:"event_id"`
	Serial           uint32    `json:"serial"`
	Owner            string    `json:"owner"`
	PurchasePrice    uint64    `json:"purchase_price"`
	LastTransferTime time.Time `json:"last_transfer_time"`
	TransferCount    uint32    `json:"transfer_count"`
}

func newTicketResponse(t domain.Ticket) ticketResponse {
	return ticketResponse{
		ID:               t.ID,
		EventID:          t.EventID,
		Serial:           t.Serial,
		Owner:            t.Owner,
		PurchasePrice:    t.PurchasePrice,
		LastTransferTime: t.LastTransferTime,
		TransferCount:    t.TransferCount,
	}
}

type transferResponse struct {
	Sequence      uint32    `json:"sequence"`
	FromOwner     string    `json:"from_owner"`
	ToOwner       string    `json:"to_owner"`
	TransferredAt time.Time `json:"transferred_at"`
}

type resaleResponse struct {
	ID             string    `json:"id"`
	TicketID       string    `json:"ticket_id"`
	EventID        string    `json:"event_id"`
	Seller         string    `json:"seller"`
	Buyer          string    `json:"buyer"`
	Price          uint64    `json:"price"`
	Royalty        uint64    `json:"royalty"`
	SellerProceeds uint64    `json:"seller_proceeds"`
	CreatedAt      time.Time `json:"created_at"`
}

func newResaleResponse(r domain.Resale) resaleResponse {
	return resaleResponse{
		ID:             r.ID,
		TicketID:       r.TicketID,
		EventID:        r.EventID,
		Seller:         r.Seller,
		Buyer:          r.Buyer,
		Price:          r.Price,
		Royalty:        r.Royalty,
		SellerProceeds: r.SellerProceeds,
		CreatedAt:      r.CreatedAt,
	}
}

type resellResponse struct {
	Ticket ticketResponse `json:"ticket"`
	Resale resaleResponse `json:"resale"`
}
