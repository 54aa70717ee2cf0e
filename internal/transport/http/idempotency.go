package http

import (
	"context"
	"net/http"
	"strings"
)

const idempotencyHeader = "Idempotency-Key"

// Deduper records Idempotency-Key values per caller and operation.
type Deduper interface {
	Add(ctx context.Context, scope, caller, key string) (bool, error)
	Remove(ctx context.Context, scope, caller, key string) error
}

// claimIdempotencyKey records the request's key, if it has one. It returns a
// release func to call when the operation fails, and false when the response
// has already been written.
func claimIdempotencyKey(w http.ResponseWriter, r *http.Request, dedup Deduper, scope, caller string) (func(), bool) {
	key := strings.TrimSpace(r.Header.Get(idempotencyHeader))
	if dedup == nil || key == "" {
		return func() {}, true
	}

	added, err := dedup.Add(r.Context(), scope, caller, key)
	if err != nil {
		loggerFromContext(r.Context()).WithError(err).WithField("scope", scope).Error("idempotency check failed")
		writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
		return nil, false
	}
	if !added {
		writeError(w, http.StatusConflict, codeDuplicateRequest, "duplicate request")
		return nil, false
	}

	return func() {
		// the request ctx may already be cancelled
		if err := dedup.Remove(context.WithoutCancel(r.Context()), scope, caller, key); err != nil {
			loggerFromContext(r.Context()).WithError(err).WithField("scope", scope).Warn("release idempotency key")
		}
	}, true
}
