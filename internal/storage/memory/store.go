// Package memory provides an in-process record store implementing the same
// repository contracts as the Postgres store. Transactions are serialized on a
// single mutex and roll back by restoring a snapshot.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/mohtashimnawaz/Decentralized-Event-Ticketing/internal/domain"
)

type txKey struct{}

type state struct {
	events       map[string]domain.Event
	eventOrder   []string
	tickets      map[string]domain.Ticket
	transfers    map[string][]domain.Transfer
	walletCounts map[string]uint32
	balances     map[string]uint64
	resales      []domain.Resale
}

type Store struct {
	mu sync.Mutex
	st state
}

func New() *Store {
	return &Store{st: state{
		events:       make(map[string]domain.Event),
		tickets:      make(map[string]domain.Ticket),
		transfers:    make(map[string][]domain.Transfer),
		walletCounts: make(map[string]uint32),
		balances:     make(map[string]uint64),
	}}
}

// WithTx runs fn with exclusive access to the store. If fn fails, every change
// it made is discarded. Nested calls join the outer transaction.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.inTx(ctx) {
		return fn(ctx)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.st.clone()
	if err := fn(context.WithValue(ctx, txKey{}, s)); err != nil {
		s.st = snap
		return err
	}
	return nil
}

func (s *Store) inTx(ctx context.Context) bool {
	owner, _ := ctx.Value(txKey{}).(*Store)
	return owner == s
}

// lock takes the store mutex unless ctx already holds it through WithTx.
func (s *Store) lock(ctx context.Context) func() {
	if s.inTx(ctx) {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (st state) clone() state {
	out := state{
		events:       make(map[string]domain.Event, len(st.events)),
		eventOrder:   append([]string(nil), st.eventOrder...),
		tickets:      make(map[string]domain.Ticket, len(st.tickets)),
		transfers:    make(map[string][]domain.Transfer, len(st.transfers)),
		walletCounts: make(map[string]uint32, len(st.walletCounts)),
		balances:     make(map[string]uint64, len(st.balances)),
		resales:      append([]domain.Resale(nil), st.resales...),
	}
	for k, v := range st.events {
		out.events[k] = v
	}
	for k, v := range st.tickets {
		out.tickets[k] = v
	}
	for k, v := range st.transfers {
		out.transfers[k] = append([]domain.Transfer(nil), v...)
	}
	for k, v := range st.walletCounts {
		out.walletCounts[k] = v
	}
	for k, v := range st.balances {
		out.balances[k] = v
	}
	return out
}

// --- events ---

func (s *Store) CreateEvent(ctx context.Context, event domain.Event) error {
	defer s.lock(ctx)()
	if _, exists := s.st.events[event.ID]; exists {
		return domain.ErrInvalidID
	}
	s.st.events[event.ID] = event
	s.st.eventOrder = append(s.st.eventOrder, event.ID)
	return nil
}

func (s *Store) GetEvent(ctx context.Context, eventID string) (domain.Event, error) {
	defer s.lock(ctx)()
	event, ok := s.st.events[eventID]
	if !ok {
		return domain.Event{}, domain.ErrEventNotFound
	}
	return event, nil
}

// GetEventForUpdate is GetEvent; the transaction mutex already excludes writers.
func (s *Store) GetEventForUpdate(ctx context.Context, eventID string) (domain.Event, error) {
	return s.GetEvent(ctx, eventID)
}

func (s *Store) ListEvents(ctx context.Context) ([]domain.Event, error) {
	defer s.lock(ctx)()
	events := make([]domain.Event, 0, len(s.st.eventOrder))
	for _, id := range s.st.eventOrder {
		events = append(events, s.st.events[id])
	}
	return events, nil
}

func (s *Store) SetTicketsSold(ctx context.Context, eventID string, expectedVersion int64, sold uint32) error {
	defer s.lock(ctx)()
	event, ok := s.st.events[eventID]
	if !ok {
		return domain.ErrEventNotFound
	}
	if event.Version != expectedVersion || sold > event.TotalTickets {
		return domain.ErrSoldOut
	}
	event.TicketsSold = sold
	event.Version++
	s.st.events[eventID] = event
	return nil
}

func (s *Store) GetWalletCount(ctx context.Context, eventID, wallet string) (uint32, error) {
	defer s.lock(ctx)()
	return s.st.walletCounts[walletKey(eventID, wallet)], nil
}

func (s *Store) IncrementWalletCount(ctx context.Context, eventID, wallet string) error {
	defer s.lock(ctx)()
	s.st.walletCounts[walletKey(eventID, wallet)]++
	return nil
}

func walletKey(eventID, wallet string) string {
	return eventID + "|" + wallet
}

// --- tickets ---

func (s *Store) CreateTicket(ctx context.Context, ticket domain.Ticket) error {
	defer s.lock(ctx)()
	if _, exists := s.st.tickets[ticket.ID]; exists {
		return domain.ErrInvalidID
	}
	if _, ok := s.st.events[ticket.EventID]; !ok {
		return domain.ErrEventNotFound
	}
	s.st.tickets[ticket.ID] = ticket
	return nil
}

func (s *Store) GetTicket(ctx context.Context, ticketID string) (domain.Ticket, error) {
	defer s.lock(ctx)()
	ticket, ok := s.st.tickets[ticketID]
	if !ok {
		return domain.Ticket{}, domain.ErrTicketNotFound
	}
	return ticket, nil
}

func (s *Store) GetTicketForUpdate(ctx context.Context, ticketID string) (domain.Ticket, error) {
	return s.GetTicket(ctx, ticketID)
}

func (s *Store) SwapTicketOwner(ctx context.Context, expectedOwner string, next domain.Ticket) error {
	defer s.lock(ctx)()
	current, ok := s.st.tickets[next.ID]
	if !ok {
		return domain.ErrTicketNotFound
	}
	if current.Owner != expectedOwner {
		return domain.ErrNotOwner
	}
	current.Owner = next.Owner
	current.LastTransferTime = next.LastTransferTime
	current.TransferCount = next.TransferCount
	s.st.tickets[next.ID] = current
	return nil
}

func (s *Store) AppendTransfer(ctx context.Context, transfer domain.Transfer) error {
	defer s.lock(ctx)()
	s.st.transfers[transfer.TicketID] = append(s.st.transfers[transfer.TicketID], transfer)
	return nil
}

func (s *Store) ListTransfers(ctx context.Context, ticketID string) ([]domain.Transfer, error) {
	defer s.lock(ctx)()
	return append([]domain.Transfer{}, s.st.transfers[ticketID]...), nil
}

func (s *Store) ListTicketsByOwner(ctx context.Context, owner string) ([]domain.Ticket, error) {
	defer s.lock(ctx)()
	tickets := []domain.Ticket{}
	for _, t := range s.st.tickets {
		if t.Owner == owner {
			tickets = append(tickets, t)
		}
	}
	sort.Slice(tickets, func(i, j int) bool {
		if tickets[i].EventID != tickets[j].EventID {
			return tickets[i].EventID < tickets[j].EventID
		}
		return tickets[i].Serial < tickets[j].Serial
	})
	return tickets, nil
}

// --- resales ---

func (s *Store) CreateResale(ctx context.Context, resale domain.Resale) error {
	defer s.lock(ctx)()
	s.st.resales = append(s.st.resales, resale)
	return nil
}

// ListResales returns every recorded resale of a ticket, oldest first.
func (s *Store) ListResales(ctx context.Context, ticketID string) ([]domain.Resale, error) {
	defer s.lock(ctx)()
	out := []domain.Resale{}
	for _, r := range s.st.resales {
		if r.TicketID == ticketID {
			out = append(out, r)
		}
	}
	return out, nil
}

// --- balances ---

func (s *Store) Debit(ctx context.Context, identity string, amount uint64) error {
	if amount == 0 {
		return nil
	}
	defer s.lock(ctx)()
	balance := s.st.balances[identity]
	if balance < amount {
		return domain.ErrInsufficientFunds
	}
	s.st.balances[identity] = balance - amount
	return nil
}

func (s *Store) Credit(ctx context.Context, identity string, amount uint64) error {
	if amount == 0 {
		return nil
	}
	defer s.lock(ctx)()
	balance := s.st.balances[identity]
	if amount > domain.MaxPrice-min(balance, domain.MaxPrice) {
		return domain.ErrInvalidAmount
	}
	s.st.balances[identity] = balance + amount
	return nil
}

func (s *Store) GetBalance(ctx context.Context, identity string) (uint64, error) {
	defer s.lock(ctx)()
	return s.st.balances[identity], nil
}
