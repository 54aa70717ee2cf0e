package domain

import "time"

// Ticket is a minted seat of an event. Ownership only ever changes through the
// ownership ledger's compare-and-set transfer.
type Ticket struct {
	ID               string
	EventID          string
	Serial           uint32
	Owner            string
	PurchasePrice    uint64
	LastTransferTime time.Time
	TransferCount    uint32
	CreatedAt        time.Time
}

// HeldFor returns how long the current owner has held the ticket at now.
func (t Ticket) HeldFor(now time.Time) time.Duration {
	return now.Sub(t.LastTransferTime)
}

// Transfer is one append-only ownership history entry.
type Transfer struct {
	TicketID      string
	Sequence      uint32
	FromOwner     string
	ToOwner       string
	TransferredAt time.Time
}
