package domain

import "time"

// Event is the root of all ticket activity: a fixed supply sold at a face price,
// with a royalty on every resale routed to the organizer.
type Event struct {
	ID           string
	Organizer    string
	Name         string
	Venue        string
	Description  string
	TotalTickets uint32
	TicketsSold  uint32
	TicketPrice  uint64
	RoyaltyBps   uint16
	EventDate    time.Time
	CreatedAt    time.Time
	// Version is bumped on every TicketsSold change and guards compare-and-set.
	Version int64
}

// Remaining returns the unsold supply.
func (e Event) Remaining() uint32 {
	if e.TicketsSold >= e.TotalTickets {
		return 0
	}
	return e.TotalTickets - e.TicketsSold
}

// SoldOut reports whether no supply is left for a primary sale.
func (e Event) SoldOut() bool {
	return e.TicketsSold >= e.TotalTickets
}

// Bounded text lengths, in bytes.
const (
	MaxEventNameLen   = 32
	MaxVenueLen       = 64
	MaxDescriptionLen = 256
	MaxRoyaltyBps     = 10_000
)
