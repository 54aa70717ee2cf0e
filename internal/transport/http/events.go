package http

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/mohtashimnawaz/Decentralized-Event-Ticketing/internal/app"
	"github.com/mohtashimnawaz/Decentralized-Event-Ticketing/internal/domain"
)

// EventService is the minimal interface needed for the event endpoints.
type EventService interface {
	CreateEvent(ctx context.Context, in app.CreateEventInput) (domain.Event, error)
	GetEvent(ctx context.Context, eventID string) (domain.Event, error)
	ListEvents(ctx context.Context) ([]domain.Event, error)
}

// TicketMinter is the minimal interface needed to buy a ticket.
type TicketMinter interface {
	MintTicket(ctx context.Context, in app.MintTicketInput) (domain.Ticket, error)
}

// HandleEvents serves event creation and listing on /events.
func HandleEvents(svc EventService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			events, err := svc.ListEvents(r.Context())
			if err != nil {
				writeServiceError(w, r, err)
				return
			}
			resp := make([]eventResponse, 0, len(events))
			for _, event := range events {
				resp = append(resp, newEventResponse(event))
			}
			writeJSON(w, http.StatusOK, resp)
		case http.MethodPost:
			caller, ok := requireCaller(w, r)
			if !ok {
				return
			}

			var req createEventRequest
			if err := decodeJSON(r, &req); err != nil {
				writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
				return
			}
			eventDate, err := time.Parse(time.RFC3339, req.EventDate)
			if err != nil {
				writeErrorResponse(w, http.StatusBadRequest, errorResponse{
					Error:  domain.ErrInvalidEventParameters.Error(),
					Code:   codeInvalidEventParameters,
					Fields: []domain.FieldError{{Field: "event_date", Msg: "must be RFC3339"}},
				})
				return
			}

			event, err := svc.CreateEvent(r.Context(), app.CreateEventInput{
				Organizer:    caller,
				Name:         req.Name,
				TotalTickets: req.TotalTickets,
				TicketPrice:  req.TicketPrice,
				RoyaltyBps:   req.RoyaltyBps,
				EventDate:    eventDate,
				Venue:        req.Venue,
				Description:  req.Description,
			})
			if err != nil {
				writeServiceError(w, r, err)
				return
			}
			writeJSON(w, http.StatusCreated, newEventResponse(event))
		default:
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
		}
	}
}

// HandleEvent serves /events/{id} and /events/{id}/tickets.
func HandleEvent(svc EventService, minter TicketMinter, dedup Deduper) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
		if len(parts) < 2 || parts[0] != "events" || parts[1] == "" {
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
			return
		}
		eventID := parts[1]

		switch {
		case len(parts) == 2:
			if r.Method != http.MethodGet {
				writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
				return
			}
			event, err := svc.GetEvent(r.Context(), eventID)
			if err != nil {
				writeServiceError(w, r, err)
				return
			}
			writeJSON(w, http.StatusOK, newEventResponse(event))
		case len(parts) == 3 && parts[2] == "tickets":
			if r.Method != http.MethodPost {
				writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
				return
			}
			caller, ok := requireCaller(w, r)
			if !ok {
				return
			}
			release, ok := claimIdempotencyKey(w, r, dedup, "mint", caller)
			if !ok {
				return
			}

			ticket, err := minter.MintTicket(r.Context(), app.MintTicketInput{
				Caller:  caller,
				EventID: eventID,
			})
			if err != nil {
				release()
				writeServiceError(w, r, err)
				return
			}
			writeJSON(w, http.StatusCreated, newTicketResponse(ticket))
		default:
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
		}
	}
}

type createEventRequest struct {
	Name         string `json:"name"`
	TotalTickets uint32 `json:"total_tickets"`
	TicketPrice  uint64 `json:"ticket_price"`
	RoyaltyBps   uint16 `json:"royalty_bps"`
	EventDate    string `json:"event_date"`
	Venue        string `json:"venue"`
	Description  string `json:"description"`
}

type eventResponse struct {
	ID           string    `json:"id"`
	Organizer    string    `json:"organizer"`
	Name         string    `json:"name"`
	Venue        string    `json:"venue,omitempty"`
	Description  string    `json:"description,omitempty"`
	TotalTickets uint32    `json:"total_tickets"`
	TicketsSold  uint32    `json:"tickets_sold"`
	Remaining    uint32    `json:"remaining"`
	TicketPrice  uint64    `json:"ticket_price"`
	RoyaltyBps   uint16    `json:"royalty_bps"`
	EventDate    time.Time `json:"event_date"`
	CreatedAt    time.Time `json:"created_at"`
}

func newEventResponse(e domain.Event) eventResponse {
	return eventResponse{
		ID:           e.ID,
		Organizer:    e.Organizer,
		Name:         e.Name,
		Venue:        e.Venue,
		Description:  e.Description,
		TotalTickets: e.TotalTickets,
		TicketsSold:  e.TicketsSold,
		Remaining:    e.Remaining(),
		TicketPrice:  e.TicketPrice,
		RoyaltyBps:   e.RoyaltyBps,
		EventDate:    e.EventDate,
		CreatedAt:    e.CreatedAt,
	}
}
