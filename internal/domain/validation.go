package domain

import (
	"fmt"
	"strings"
)

// ValidateEvent checks the creation parameters of an event and returns every
// violation. An empty result means the event may be stored.
func ValidateEvent(ev Event) []FieldError {
	var errs []FieldError

	if strings.TrimSpace(ev.Organizer) == "" {
		errs = append(errs, FieldError{"organizer", "required"})
	}

	if strings.TrimSpace(ev.Name) == "" {
		errs = append(errs, FieldError{"name", "required"})
	} else if len(ev.Name) > MaxEventNameLen {
		errs = append(errs, FieldError{"name", fmt.Sprintf("max length %d", MaxEventNameLen)})
	}
	if len(ev.Venue) > MaxVenueLen {
		errs = append(errs, FieldError{"venue", fmt.Sprintf("max length %d", MaxVenueLen)})
	}
	if len(ev.Description) > MaxDescriptionLen {
		errs = append(errs, FieldError{"description", fmt.Sprintf("max length %d", MaxDescriptionLen)})
	}

	if ev.TotalTickets == 0 {
		errs = append(errs, FieldError{"total_tickets", "must be greater than zero"})
	}
	if ev.TicketPrice > MaxPrice {
		errs = append(errs, FieldError{"ticket_price", fmt.Sprintf("max %d", MaxPrice)})
	}
	if ev.RoyaltyBps > MaxRoyaltyBps {
		errs = append(errs, FieldError{"royalty_bps", fmt.Sprintf("max %d", MaxRoyaltyBps)})
	}
	if ev.EventDate.IsZero() {
		errs = append(errs, FieldError{"event_date", "required"})
	}

	return errs
}
