package domain

import "time"

// Resale is the receipt of a completed secondary sale.
type Resale struct {
	ID             string
	TicketID       string
	EventID        string
	Seller         string
	Buyer          string
	Price          uint64
	Royalty        uint64
	SellerProceeds uint64
	CreatedAt      time.Time
}
