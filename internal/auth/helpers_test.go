package auth

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"graintrade.org/internal/users"
)

var errLookupDown = errors.New("lookup unavailable")

func quietLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

type failingLookup struct{}

func (failingLookup) FindByUsername(context.Context, string) (users.User, bool, error) {
	return users.User{}, false, errLookupDown
}

// countingHasher wraps a real Hasher and records which comparison ran.
type countingHasher struct {
	*Hasher
	verifies int
	dummies  int
}

func (c *countingHasher) Verify(password, digest string) bool {
	c.verifies++
	return c.Hasher.Verify(password, digest)
}

func (c *countingHasher) VerifyDummy(password string) {
	c.dummies++
	c.Hasher.VerifyDummy(password)
}

func seedUser(t *testing.T, repo *users.MemoryRepository, username, password string) users.User {
	t.Helper()
	hash, err := NewHasher(bcrypt.MinCost).Hash(password)
	require.NoError(t, err)
	u := users.User{Username: username, Email: username + "@example.com", FullName: "Test " + username, PasswordHash: hash}
	require.NoError(t, repo.Create(context.Background(), &u))
	return u
}
