package user

import "context"

// Repository defines the interface for user persistence
type Repository interface {
	// Get retrieves a user by ID. Returns ErrNotFound when absent.
	Get(ctx context.Context, id int64) (*User, error)

	// List retrieves users matching q
	List(ctx context.Context, q ListQuery) ([]*User, error)

	// Create stores a new user and sets its ID
	Create(ctx context.Context, u *User) error

	// Update applies patch to the user and returns the stored result
	Update(ctx context.Context, id int64, patch Patch) (*User, error)

	// Delete removes a user. Returns ErrNotFound when absent.
	Delete(ctx context.Context, id int64) error
}
