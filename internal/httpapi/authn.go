package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"graintrade.org/internal/auth"
)

const (
	authHeader = "Authorization"
	bearer     = "Bearer "

	msgInvalidCredentials = "Could not validate credentials"
	msgNotEnoughScopes    = "Not enough permissions"
)

// require wraps a handler that needs a valid token carrying scopes.
func (a *API) require(scopes auth.ScopeRequirement, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d := a.authz.Require(r.Context(), bearerToken(r), scopes)
		a.serveDecision(w, r, d, scopes, next)
	}
}

// optional wraps a handler that also serves anonymous callers. A token that
// is sent is still checked.
func (a *API) optional(scopes auth.ScopeRequirement, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d := a.authz.Optional(r.Context(), bearerToken(r), scopes)
		a.serveDecision(w, r, d, scopes, next)
	}
}

func (a *API) serveDecision(w http.ResponseWriter, r *http.Request, d auth.Decision, scopes auth.ScopeRequirement, next http.HandlerFunc) {
	switch d.State {
	case auth.StateAuthorized:
		next(w, r.WithContext(auth.ContextWithIdentity(r.Context(), *d.Identity)))
	case auth.StateUnauthenticated:
		next(w, r)
	case auth.StateForbidden:
		w.Header().Set("WWW-Authenticate", authenticateValue(scopes))
		writeError(w, r, http.StatusForbidden, msgNotEnoughScopes)
	default:
		w.Header().Set("WWW-Authenticate", authenticateValue(scopes))
		writeError(w, r, http.StatusUnauthorized, msgInvalidCredentials)
	}
}

func authenticateValue(scopes auth.ScopeRequirement) string {
	if len(scopes) == 0 {
		return "Bearer"
	}
	return `Bearer scope="` + scopes.String() + `"`
}

// bearerToken returns "" when the header is absent or uses another scheme.
func bearerToken(r *http.Request) string {
	token, err := extractBearerToken(r.Header.Get(authHeader))
	if err != nil {
		return ""
	}
	return token
}

func extractBearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", errors.New("missing bearer token")
	}
	if !strings.HasPrefix(strings.ToLower(header), strings.ToLower(bearer)) {
		return "", errors.New("invalid authorization scheme")
	}
	token := strings.TrimSpace(header[len(bearer):])
	if token == "" {
		return "", errors.New("missing bearer token")
	}
	return token, nil
}
