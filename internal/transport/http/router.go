package http

import (
	"net/http"

	"github.com/sirupsen/logrus"
)

// Services bundles everything the router dispatches to.
type Services struct {
	Events   EventService
	Sales    TicketMinter
	Ledger   TicketLedger
	Resales  ResaleService
	Accounts AccountService
	// Dedup is optional; without it Idempotency-Key is ignored.
	Dedup Deduper
}

type RouterConfig struct {
	CORSOrigins []string
	Auth        *Authenticator
	Logger      logrus.FieldLogger
	// Pingers back the /ready check.
	Pingers []Pinger
}

// NewRouter wires the routes and the middleware chain.
func NewRouter(svc Services, cfg RouterConfig) http.Handler {
	auth := cfg.Auth
	if auth == nil {
		auth = NewAuthenticator("", "")
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", HealthHandler)
	mux.Handle("/ready", ReadyHandler(cfg.Pingers...))
	mux.Handle("/events", HandleEvents(svc.Events))
	mux.Handle("/events/", HandleEvent(svc.Events, svc.Sales, svc.Dedup))
	mux.Handle("/tickets/", HandleTicket(svc.Ledger, svc.Resales, svc.Dedup))
	mux.Handle("/me/tickets", HandleMyTickets(svc.Ledger))
	mux.Handle("/account", HandleAccount(svc.Accounts))
	mux.Handle("/account/deposit", HandleDeposit(svc.Accounts))
	mux.Handle("/", NotFoundHandler())

	var handler http.Handler = mux
	handler = auth.Authenticate(handler)
	handler = CORS(cfg.CORSOrigins, handler)
	handler = RequestLogger(handler, cfg.Logger)
	return Tracing(handler)
}
