// Package notify announces account events to downstream consumers.
package notify

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"graintrade.org/internal/obs"
	"graintrade.org/internal/users"
)

// Notifier publishes account lifecycle events.
type Notifier interface {
	UserCreated(ctx context.Context, u users.User) error
}

// Nop drops every event.
type Nop struct{}

func (Nop) UserCreated(context.Context, users.User) error { return nil }

// UserCreatedMessage is the payload published for a new account.
type UserCreatedMessage struct {
	Message string   `json:"message"`
	User    userView `json:"user"`
}

type userView struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	FullName string `json:"full_name,omitempty"`
}

func newUserCreatedMessage(u users.User) UserCreatedMessage {
	return UserCreatedMessage{
		Message: "New user created",
		User:    userView{ID: u.ID, Username: u.Username, Email: u.Email, FullName: u.FullName},
	}
}

// Async publishes in the background so a slow or unavailable broker never
// blocks the request. Failures are logged.
type Async struct {
	next    Notifier
	timeout time.Duration
	logger  logrus.FieldLogger
	wg      sync.WaitGroup
}

func NewAsync(next Notifier, timeout time.Duration) *Async {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Async{
		next:    next,
		timeout: timeout,
		logger:  obs.Logger().WithField("component", "notify"),
	}
}

// UserCreated schedules the event and returns immediately.
func (a *Async) UserCreated(ctx context.Context, u users.User) error {
	// The request context is canceled once the handler returns.
	bg := context.WithoutCancel(ctx)
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		ctx, cancel := context.WithTimeout(bg, a.timeout)
		defer cancel()
		if err := a.next.UserCreated(ctx, u); err != nil {
			a.logger.WithField("user_id", u.ID).WithContext(ctx).WithError(err).Warn("user created notification failed")
		}
	}()
	return nil
}

// Wait blocks until all scheduled events finished.
func (a *Async) Wait() { a.wg.Wait() }
