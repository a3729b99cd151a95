package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"graintrade.org/internal/obs"
)

// State is a step of bearer-token authorization.
type State int

const (
	StateUnauthenticated State = iota
	StateTokenPresented
	StateTokenValid
	StateTokenInvalid
	StateScopeChecked
	StateAuthorized
	StateForbidden
)

func (s State) String() string {
	switch s {
	case StateUnauthenticated:
		return "unauthenticated"
	case StateTokenPresented:
		return "token_presented"
	case StateTokenValid:
		return "token_valid"
	case StateTokenInvalid:
		return "token_invalid"
	case StateScopeChecked:
		return "scope_checked"
	case StateAuthorized:
		return "authorized"
	case StateForbidden:
		return "forbidden"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Mode selects how a missing token is treated.
type Mode string

const (
	ModeOptional Mode = "optional"
	ModeRequired Mode = "required"
)

// Decision is the terminal result for one request.
type Decision struct {
	Mode     Mode
	State    State
	Path     []State
	Claims   *Claims
	Identity *Identity
	Err      error
}

// Authenticated reports whether an identity was resolved.
func (d Decision) Authenticated() bool {
	return d.State == StateAuthorized && d.Identity != nil
}

// Authorizer checks bearer tokens against endpoint scope requirements and
// resolves the token subject. It holds no per-request state.
type Authorizer struct {
	tokens TokenDecoder
	lookup UserLookup
	logger logrus.FieldLogger
}

// AuthorizerOption configures Authorizer.
type AuthorizerOption func(*Authorizer)

// WithAuthorizerLogger overrides the logger.
func WithAuthorizerLogger(l logrus.FieldLogger) AuthorizerOption {
	return func(a *Authorizer) {
		if l != nil {
			a.logger = l
		}
	}
}

func NewAuthorizer(tokens TokenDecoder, lookup UserLookup, opts ...AuthorizerOption) *Authorizer {
	a := &Authorizer{
		tokens: tokens,
		lookup: lookup,
		logger: obs.Logger().WithField("component", "authorizer"),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Optional lets a request without a token through anonymously. A token that is
// present must still be valid and carry the required scopes.
func (a *Authorizer) Optional(ctx context.Context, token string, req ScopeRequirement) Decision {
	d := Decision{Mode: ModeOptional, State: StateUnauthenticated, Path: []State{StateUnauthenticated}}
	if strings.TrimSpace(token) == "" {
		return a.finish(ctx, d)
	}
	return a.finish(ctx, a.evaluate(ctx, d, token, req))
}

// Require rejects a request without a token as invalid.
func (a *Authorizer) Require(ctx context.Context, token string, req ScopeRequirement) Decision {
	d := Decision{Mode: ModeRequired, State: StateUnauthenticated, Path: []State{StateUnauthenticated}}
	if strings.TrimSpace(token) == "" {
		return a.finish(ctx, d.to(StateTokenInvalid, fmt.Errorf("%w: %w", ErrInvalidToken, ErrTokenMissing)))
	}
	return a.finish(ctx, a.evaluate(ctx, d, token, req))
}

func (a *Authorizer) evaluate(ctx context.Context, d Decision, token string, req ScopeRequirement) Decision {
	d = d.to(StateTokenPresented, nil)

	claims, err := a.tokens.Decode(token)
	if err != nil {
		return d.to(StateTokenInvalid, err)
	}
	d.Claims = &claims
	d = d.to(StateTokenValid, nil)

	if missing := req.Missing(claims.Scopes); len(missing) > 0 {
		return d.to(StateForbidden, fmt.Errorf("%w: missing %s", ErrInsufficientScope, strings.Join(missing, " ")))
	}
	d = d.to(StateScopeChecked, nil)

	user, found, err := a.lookup.FindByUsername(ctx, claims.Subject)
	if err != nil {
		return d.to(StateTokenInvalid, fmt.Errorf("%w: resolve subject: %v", ErrInvalidToken, err))
	}
	if !found {
		return d.to(StateTokenInvalid, fmt.Errorf("%w: %w", ErrInvalidToken, ErrUserNotFoundForToken))
	}
	identity := newIdentity(user, claims.Scopes)
	d.Identity = &identity
	return d.to(StateAuthorized, nil)
}

func (d Decision) to(s State, err error) Decision {
	d.State = s
	d.Path = append(append([]State(nil), d.Path...), s)
	d.Err = err
	return d
}

func (a *Authorizer) finish(ctx context.Context, d Decision) Decision {
	obs.AuthDecisions.WithLabelValues(string(d.Mode), d.State.String()).Inc()
	if d.Err == nil {
		return d
	}
	fields := logrus.Fields{
		"mode":   d.Mode,
		"state":  d.State.String(),
		"reason": Reason(d.Err),
	}
	if d.Claims != nil {
		fields["subject"] = d.Claims.Subject
	}
	entry := a.logger.WithFields(fields).WithContext(ctx).WithError(d.Err)
	if errors.Is(d.Err, ErrInsufficientScope) {
		entry.Info("authorization denied")
		return d
	}
	entry.Warn("authentication failed")
	return d
}
