package domain

import (
	"errors"
	"strings"
)

var (
	ErrInvalidEventParameters = errors.New("invalid event parameters")
	ErrEventNotFound          = errors.New("event not found")
	ErrTicketNotFound         = errors.New("ticket not found")
	ErrSoldOut                = errors.New("all tickets for this event are sold out")
	ErrTicketLimitReached     = errors.New("ticket limit per wallet reached for this event")
	ErrNotOwner               = errors.New("caller does not own this ticket")
	ErrHoldingPeriodNotMet    = errors.New("ticket cannot be resold before holding period ends")
	ErrInvalidPrice           = errors.New("invalid price")
	ErrInvalidRoyalty         = errors.New("invalid royalty")
	ErrInsufficientFunds      = errors.New("insufficient funds")
	ErrInvalidBuyer           = errors.New("invalid buyer")
	ErrInvalidAmount          = errors.New("invalid amount")
	ErrInvalidID              = errors.New("invalid id")
	ErrCallerRequired         = errors.New("caller identity required")
)

// FieldError describes a single rejected input field.
type FieldError struct {
	Field string `json:"field"`
	Msg   string `json:"message"`
}

func (e FieldError) Error() string { return e.Field + ": " + e.Msg }

// ValidationError carries every field that failed validation. It matches
// ErrInvalidEventParameters under errors.Is.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Error())
	}
	return ErrInvalidEventParameters.Error() + ": " + strings.Join(parts, "; ")
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidEventParameters
}
