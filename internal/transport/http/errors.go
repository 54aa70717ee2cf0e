package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mohtashimnawaz/Decentralized-Event-Ticketing/internal/domain"
)

const (
	codeMethodNotAllowed       = "method_not_allowed"
	codeNotFound               = "not_found"
	codeInvalidRequestBody     = "invalid_request_body"
	codeInvalidID              = "invalid_id"
	codeInvalidEventParameters = "invalid_event_parameters"
	codeEventNotFound          = "event_not_found"
	codeTicketNotFound         = "ticket_not_found"
	codeSoldOut                = "sold_out"
	codeTicketLimitReached     = "ticket_limit_reached"
	codeNotOwner               = "not_owner"
	codeHoldingPeriodNotMet    = "holding_period_not_met"
	codeInvalidPrice           = "invalid_price"
	codeInvalidRoyalty         = "invalid_royalty"
	codeInsufficientFunds      = "insufficient_funds"
	codeInvalidBuyer           = "invalid_buyer"
	codeInvalidAmount          = "invalid_amount"
	codeDuplicateRequest       = "duplicate_request"
	codeUnauthorized           = "unauthorized"
	codeForbidden              = "forbidden"
	codeInternalError          = "internal_error"
	codeUnavailable            = "unavailable"
)

type errorResponse struct {
	Error  string              `json:"error"`
	Code   string              `json:"code"`
	Fields []domain.FieldError `json:"fields,omitempty"`
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeErrorResponse(w, status, errorResponse{Error: msg, Code: code})
}

func writeErrorResponse(w http.ResponseWriter, status int, resp errorResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	payload, err := json.Marshal(resp)
	if err != nil {
		_, _ = w.Write([]byte(`{"error":"internal error","code":"internal_error"}`))
		return
	}
	_, _ = w.Write(payload)
}

var domainErrors = []struct {
	err    error
	status int
	code   string
}{
	{domain.ErrEventNotFound, http.StatusNotFound, codeEventNotFound},
	{domain.ErrTicketNotFound, http.StatusNotFound, codeTicketNotFound},
	{domain.ErrSoldOut, http.StatusConflict, codeSoldOut},
	{domain.ErrTicketLimitReached, http.StatusConflict, codeTicketLimitReached},
	{domain.ErrNotOwner, http.StatusConflict, codeNotOwner},
	{domain.ErrHoldingPeriodNotMet, http.StatusConflict, codeHoldingPeriodNotMet},
	{domain.ErrInsufficientFunds, http.StatusPaymentRequired, codeInsufficientFunds},
	{domain.ErrInvalidPrice, http.StatusBadRequest, codeInvalidPrice},
	{domain.ErrInvalidRoyalty, http.StatusBadRequest, codeInvalidRoyalty},
	{domain.ErrInvalidBuyer, http.StatusBadRequest, codeInvalidBuyer},
	{domain.ErrInvalidAmount, http.StatusBadRequest, codeInvalidAmount},
	{domain.ErrInvalidID, http.StatusBadRequest, codeInvalidID},
	{domain.ErrInvalidEventParameters, http.StatusBadRequest, codeInvalidEventParameters},
	{domain.ErrCallerRequired, http.StatusUnauthorized, codeUnauthorized},
}

// writeServiceError maps a service error onto its HTTP status and code.
// Unknown errors are logged and reported as internal errors.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		writeErrorResponse(w, http.StatusBadRequest, errorResponse{
			Error:  domain.ErrInvalidEventParameters.Error(),
			Code:   codeInvalidEventParameters,
			Fields: verr.Fields,
		})
		return
	}

	for _, m := range domainErrors {
		if errors.Is(err, m.err) {
			writeError(w, m.status, m.code, m.err.Error())
			return
		}
	}

	loggerFromContext(r.Context()).WithError(err).Error("request failed")
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// NotFoundHandler returns a JSON 404 response for unknown routes.
func NotFoundHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, codeNotFound, "not found")
	})
}
