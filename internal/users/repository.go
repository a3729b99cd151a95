package users

import "context"

// Lookup resolves accounts by name or id. A missing account is reported with
// found == false and a nil error; err is reserved for transport failures.
type Lookup interface {
	FindByUsername(ctx context.Context, username string) (u User, found bool, err error)
	FindByID(ctx context.Context, id string) (u User, found bool, err error)
}

// Repository is the full account store used by the user endpoints.
type Repository interface {
	Lookup
	FindByEmail(ctx context.Context, email string) (u User, found bool, err error)
	Create(ctx context.Context, u *User) error
	List(ctx context.Context) ([]User, error)
	Update(ctx context.Context, u *User) error
	Delete(ctx context.Context, id string) error
}
