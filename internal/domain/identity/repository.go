package identity

import "context"

// UserRepository stores accounts. Lookups return shared.ErrNotFound when no
// account matches; Create returns shared.ErrAlreadyExists for a taken email
// and Update returns shared.ErrConcurrencyConflict when the stored version moved.
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	Update(ctx context.Context, user *User) error
	FindByID(ctx context.Context, id string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
}
