package http

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const callerHeader = "X-Caller-ID"

type callerKey struct{}

// WithCaller returns a context carrying the authenticated caller identity.
func WithCaller(ctx context.Context, caller string) context.Context {
	return context.WithValue(ctx, callerKey{}, caller)
}

// CallerFromContext returns the identity resolved by Authenticate, if any.
func CallerFromContext(ctx context.Context) string {
	caller, _ := ctx.Value(callerKey{}).(string)
	return caller
}

var (
	errMissingAuthorization = errors.New("missing authorization header")
	errBadAuthorization     = errors.New("bad auth header")
	errMissingSubject       = errors.New("missing sub")
)

// Authenticator resolves the caller of a request. With a secret it verifies
// HS256 bearer tokens and takes the identity from the sub claim; without one
// it trusts the X-Caller-ID header.
type Authenticator struct {
	secret []byte
	parser *jwt.Parser
}

func NewAuthenticator(secret, issuer string) *Authenticator {
	a := &Authenticator{}
	if secret == "" {
		return a
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(time.Minute),
	}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}
	a.secret = []byte(secret)
	a.parser = jwt.NewParser(opts...)
	return a
}

// CallerFromToken verifies a bearer token and returns its subject.
func (a *Authenticator) CallerFromToken(token string) (string, error) {
	var claims jwt.RegisteredClaims
	_, err := a.parser.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return a.secret, nil
	})
	if err != nil {
		return "", err
	}
	if claims.Subject == "" {
		return "", errMissingSubject
	}
	return claims.Subject, nil
}

func (a *Authenticator) resolve(r *http.Request) (string, error) {
	if a.parser == nil {
		return strings.TrimSpace(r.Header.Get(callerHeader)), nil
	}

	header := r.Header.Get("Authorization")
	if header == "" {
		return "", errMissingAuthorization
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", errBadAuthorization
	}
	return a.CallerFromToken(strings.TrimSpace(token))
}

// Authenticate stores the caller in the request context. Requests without
// credentials pass through anonymously; invalid credentials are rejected.
func (a *Authenticator) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		caller, err := a.resolve(r)
		if errors.Is(err, errMissingAuthorization) {
			next.ServeHTTP(w, r)
			return
		}
		if err != nil {
			loggerFromContext(r.Context()).WithError(err).Debug("rejected credentials")
			writeError(w, http.StatusUnauthorized, codeUnauthorized, "unauthorized")
			return
		}
		if caller != "" {
			r = r.WithContext(WithCaller(r.Context(), caller))
		}
		next.ServeHTTP(w, r)
	})
}

// requireCaller writes a 401 and returns false when the request is anonymous.
func requireCaller(w http.ResponseWriter, r *http.Request) (string, bool) {
	caller := CallerFromContext(r.Context())
	if caller == "" {
		writeError(w, http.StatusUnauthorized, codeUnauthorized, "unauthorized")
		return "", false
	}
	return caller, true
}
