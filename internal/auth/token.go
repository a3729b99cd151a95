package auth

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token is a compact serialized JWT.
type Token = string

// Claims is the logical content of an access token.
type Claims struct {
	Subject   string
	UserID    string
	Scopes    []string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// wireClaims is the JSON payload: sub, scopes, user_id, iat, exp.
type wireClaims struct {
	Scopes []string `json:"scopes"`
	UserID string   `json:"user_id,omitempty"`
	jwt.RegisteredClaims
}

// TokenCodec mints and validates HMAC-signed JWTs.
type TokenCodec struct {
	secret []byte
	method *jwt.SigningMethodHMAC
	ttl    time.Duration
	now    func() time.Time
}

// CodecOption configures TokenCodec.
type CodecOption func(*TokenCodec)

// WithCodecClock overrides the time source.
func WithCodecClock(fn func() time.Time) CodecOption {
	return func(c *TokenCodec) {
		if fn != nil {
			c.now = fn
		}
	}
}

// NewTokenCodec validates the signing configuration. Only HS256, HS384 and HS512 are accepted.
func NewTokenCodec(secret []byte, algorithm string, ttl time.Duration, opts ...CodecOption) (*TokenCodec, error) {
	if len(secret) == 0 {
		return nil, fmt.Errorf("%w: signing secret is empty", ErrInvalidConfig)
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("%w: token ttl must be greater than zero", ErrInvalidConfig)
	}
	method, ok := jwt.GetSigningMethod(strings.ToUpper(strings.TrimSpace(algorithm))).(*jwt.SigningMethodHMAC)
	if !ok {
		return nil, fmt.Errorf("%w: unsupported signing algorithm %q", ErrInvalidConfig, algorithm)
	}
	c := &TokenCodec{
		secret: append([]byte(nil), secret...),
		method: method,
		ttl:    ttl,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// TTL returns the default token lifetime.
func (c *TokenCodec) TTL() time.Duration { return c.ttl }

// Algorithm returns the JWT "alg" value.
func (c *TokenCodec) Algorithm() string { return c.method.Alg() }

// Encode mints a token expiring after the configured TTL.
func (c *TokenCodec) Encode(subject, userID string, scopes []string) (Token, Claims, error) {
	return c.EncodeWithTTL(subject, userID, scopes, c.ttl)
}

// EncodeWithTTL mints a token with an explicit lifetime. Used for administrative issuance.
func (c *TokenCodec) EncodeWithTTL(subject, userID string, scopes []string, ttl time.Duration) (Token, Claims, error) {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return "", Claims{}, ErrTokenSubjectMissing
	}
	if ttl <= 0 {
		return "", Claims{}, errors.New("auth: ttl must be greater than zero")
	}
	now := c.now().UTC().Truncate(time.Second)
	claims := Claims{
		Subject:   subject,
		UserID:    userID,
		Scopes:    NormalizeScopes(scopes),
		IssuedAt:  now,
		ExpiresAt: now.Add(ttl),
	}
	token := jwt.NewWithClaims(c.method, wireClaims{
		Scopes: claims.Scopes,
		UserID: claims.UserID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   claims.Subject,
			IssuedAt:  jwt.NewNumericDate(claims.IssuedAt),
			ExpiresAt: jwt.NewNumericDate(claims.ExpiresAt),
		},
	})
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", Claims{}, fmt.Errorf("auth: sign token: %w", err)
	}
	return signed, claims, nil
}

// Decode verifies the signature, then expiry, then the subject. Failures are *DecodeError.
func (c *TokenCodec) Decode(token Token) (Claims, error) {
	token = strings.TrimSpace(token)
	segments := strings.SplitN(token, ".", 3)
	if len(segments) != 3 {
		return Claims{}, &DecodeError{Kind: ErrTokenMalformed, Err: errors.New("token must have three segments")}
	}
	// The library folds a bad signature encoding into "malformed"; any edit to
	// the signature segment is a signature failure here.
	if _, err := base64.RawURLEncoding.Strict().DecodeString(segments[2]); err != nil {
		return Claims{}, &DecodeError{Kind: ErrTokenSignatureInvalid, Err: err}
	}

	var wc wireClaims
	_, err := jwt.ParseWithClaims(token, &wc, func(*jwt.Token) (any, error) {
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{c.method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithStrictDecoding(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		return Claims{}, classify(err)
	}
	if strings.TrimSpace(wc.Subject) == "" {
		return Claims{}, &DecodeError{Kind: ErrTokenSubjectMissing}
	}

	claims := Claims{
		Subject: wc.Subject,
		UserID:  wc.UserID,
		Scopes:  NormalizeScopes(wc.Scopes),
	}
	if wc.IssuedAt != nil {
		claims.IssuedAt = wc.IssuedAt.Time.UTC()
	}
	if wc.ExpiresAt != nil {
		claims.ExpiresAt = wc.ExpiresAt.Time.UTC()
	}
	return claims, nil
}

func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return &DecodeError{Kind: ErrTokenSignatureInvalid, Err: err}
	case errors.Is(err, jwt.ErrTokenExpired):
		return &DecodeError{Kind: ErrTokenExpired, Err: err}
	default:
		return &DecodeError{Kind: ErrTokenMalformed, Err: err}
	}
}
