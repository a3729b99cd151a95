package auth

import (
	"crypto/sha512"
	"encoding/base64"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"golang.org/x/crypto/bcrypt"
)

const (
	// bcrypt ignores input past 72 bytes; longer passwords are pre-hashed and
	// the digest is tagged so verification knows to do the same.
	maxBcryptInput = 72
	prehashPrefix  = "$sha384"

	dummyPassword = "graintrade-timing-equaliser"
)

// Hasher hashes and verifies passwords with bcrypt. Safe for concurrent use.
type Hasher struct {
	cost int

	// dummyCost follows the cost of the last stored digest seen by Verify, so
	// rejecting an unknown user costs what rejecting a wrong password costs
	// even when the table holds digests from an older BCRYPT_COST.
	dummyCost atomic.Int64
	mu        sync.Mutex
	dummies   map[int][]byte
}

// NewHasher returns a Hasher. A cost outside bcrypt's range falls back to bcrypt.DefaultCost.
func NewHasher(cost int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	h := &Hasher{cost: cost, dummies: make(map[int][]byte)}
	h.dummyCost.Store(int64(cost))
	h.dummyFor(cost)
	return h
}

// Cost returns the bcrypt work factor in use.
func (h *Hasher) Cost() int { return h.cost }

// Hash returns a salted digest of password. The salt is embedded in the digest.
func (h *Hasher) Hash(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}
	prefix := ""
	secret := []byte(password)
	if len(secret) > maxBcryptInput {
		prefix = prehashPrefix
		secret = prehash(password)
	}
	digest, err := bcrypt.GenerateFromPassword(secret, h.cost)
	if err != nil {
		return "", fmt.Errorf("auth: hash password: %w", err)
	}
	return prefix + string(digest), nil
}

// Verify reports whether password matches digest. Malformed digests yield false.
func (h *Hasher) Verify(password, digest string) bool {
	if password == "" || digest == "" {
		return false
	}
	secret := []byte(password)
	if rest, ok := strings.CutPrefix(digest, prehashPrefix); ok {
		digest = rest
		secret = prehash(password)
	} else if len(secret) > maxBcryptInput {
		return false
	}
	if c, err := bcrypt.Cost([]byte(digest)); err == nil {
		h.dummyCost.Store(int64(c))
	}
	return bcrypt.CompareHashAndPassword([]byte(digest), secret) == nil
}

// VerifyDummy burns one comparison against a throwaway digest so that a
// missing account takes as long to reject as a wrong password.
func (h *Hasher) VerifyDummy(password string) {
	dummy := h.dummyFor(h.DummyCost())
	if dummy == nil {
		return
	}
	_ = bcrypt.CompareHashAndPassword(dummy, []byte(password))
}

// DummyCost is the work factor VerifyDummy currently spends.
func (h *Hasher) DummyCost() int { return int(h.dummyCost.Load()) }

func (h *Hasher) dummyFor(cost int) []byte {
	h.mu.Lock()
	defer h.mu.Unlock()
	if d, ok := h.dummies[cost]; ok {
		return d
	}
	d, err := bcrypt.GenerateFromPassword([]byte(dummyPassword), cost)
	if err != nil {
		return nil
	}
	h.dummies[cost] = d
	return d
}

func prehash(password string) []byte {
	sum := sha512.Sum384([]byte(password))
	return []byte(base64.RawStdEncoding.EncodeToString(sum[:]))
}
