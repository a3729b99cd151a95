package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"graintrade.org/internal/obs"
)

// Service authenticates logins and issues access tokens. Issuance is stateless.
type Service struct {
	lookup UserLookup
	hasher PasswordHasher
	codec  *TokenCodec
	logger logrus.FieldLogger
}

// ServiceOption configures Service behavior.
type ServiceOption func(*Service)

// WithLogger overrides the service logger.
func WithLogger(l logrus.FieldLogger) ServiceOption {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewService constructs Service.
func NewService(lookup UserLookup, hasher PasswordHasher, codec *TokenCodec, opts ...ServiceOption) *Service {
	s := &Service{
		lookup: lookup,
		hasher: hasher,
		codec:  codec,
		logger: obs.Logger().WithField("component", "auth_service"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// TokenTTL returns the lifetime of tokens minted by Login.
func (s *Service) TokenTTL() time.Duration { return s.codec.TTL() }

// HashPassword hashes a plaintext password for storage.
func (s *Service) HashPassword(password string) (string, error) {
	return s.hasher.Hash(password)
}

// Login verifies cred and mints a token carrying the requested scopes.
// Unknown users, lookup failures and wrong passwords all yield ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, cred Credential, requestedScopes []string) (Token, Claims, error) {
	username := strings.TrimSpace(cred.Username)
	log := s.logger.WithField("username", username)
	if username == "" || cred.Password == "" {
		obs.AuthLogins.WithLabelValues("invalid_credentials").Inc()
		return "", Claims{}, ErrInvalidCredentials
	}

	user, found, err := s.lookup.FindByUsername(ctx, username)
	if err != nil {
		log.WithContext(ctx).WithError(err).Error("user lookup failed during login")
		s.hasher.VerifyDummy(cred.Password)
		obs.AuthLogins.WithLabelValues("lookup_error").Inc()
		return "", Claims{}, ErrInvalidCredentials
	}
	if !found {
		s.hasher.VerifyDummy(cred.Password)
		log.WithContext(ctx).Info("login rejected: unknown user")
		obs.AuthLogins.WithLabelValues("invalid_credentials").Inc()
		return "", Claims{}, ErrInvalidCredentials
	}

	stored := storedCredential(user)
	if !s.hasher.Verify(cred.Password, stored.PasswordHash) {
		log.WithContext(ctx).Info("login rejected: password mismatch")
		obs.AuthLogins.WithLabelValues("invalid_credentials").Inc()
		return "", Claims{}, ErrInvalidCredentials
	}

	token, claims, err := s.codec.Encode(stored.Username, user.ID, requestedScopes)
	if err != nil {
		obs.AuthLogins.WithLabelValues("error").Inc()
		return "", Claims{}, fmt.Errorf("issue token: %w", err)
	}
	obs.AuthLogins.WithLabelValues("success").Inc()
	return token, claims, nil
}

// IssueFor mints a token for an existing user with an explicit lifetime.
// It does not check a password and is meant for administrative tooling.
func (s *Service) IssueFor(ctx context.Context, username string, scopes []string, ttl time.Duration) (Token, Claims, error) {
	user, found, err := s.lookup.FindByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return "", Claims{}, fmt.Errorf("resolve user: %w", err)
	}
	if !found {
		return "", Claims{}, ErrInvalidCredentials
	}
	return s.codec.EncodeWithTTL(user.Username, user.ID, scopes, ttl)
}
