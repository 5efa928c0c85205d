package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"usersvc/internal/domain/user"
)

// UserRepository is an in-memory implementation of user.Repository
type UserRepository struct {
	mu           sync.RWMutex
	nextID       int64
	users        map[int64]*user.User // id -> User
	usersByEmail map[string]int64     // lowercased email -> id
}

// NewUserRepository creates a new in-memory user repository
func NewUserRepository() *UserRepository {
	return &UserRepository{
		users:        make(map[int64]*user.User),
		usersByEmail: make(map[string]int64),
	}
}

// Get retrieves a user by ID
func (r *UserRepository) Get(_ context.Context, id int64) (*user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, exists := r.users[id]
	if !exists {
		return nil, user.ErrNotFound
	}
	return clone(u), nil
}

// List returns users older than q.MinAge, oldest first
func (r *UserRepository) List(_ context.Context, q user.ListQuery) ([]*user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*user.User, 0)
	for _, u := range r.users {
		if u.Age > q.MinAge {
			out = append(out, clone(u))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Age != out[j].Age {
			return out[i].Age > out[j].Age
		}
		return out[i].ID < out[j].ID
	})
	if limit := q.EffectiveLimit(); len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Create stores a new user and assigns its ID
func (r *UserRepository) Create(_ context.Context, u *user.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := emailKey(u.Email)
	if _, taken := r.usersByEmail[key]; taken {
		return user.ErrEmailTaken
	}

	r.nextID++
	u.ID = r.nextID
	r.users[u.ID] = clone(u)
	r.usersByEmail[key] = u.ID
	return nil
}

// Update applies patch to an existing user
func (r *UserRepository) Update(_ context.Context, id int64, patch user.Patch) (*user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, exists := r.users[id]
	if !exists {
		return nil, user.ErrNotFound
	}

	updated := clone(existing)
	patch.Apply(updated)

	// Update email index if email changed
	oldKey, newKey := emailKey(existing.Email), emailKey(updated.Email)
	if oldKey != newKey {
		if _, taken := r.usersByEmail[newKey]; taken {
			return nil, user.ErrEmailTaken
		}
		delete(r.usersByEmail, oldKey)
		r.usersByEmail[newKey] = id
	}

	r.users[id] = updated
	return clone(updated), nil
}

// Delete removes a user
func (r *UserRepository) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, exists := r.users[id]
	if !exists {
		return user.ErrNotFound
	}

	delete(r.users, id)
	delete(r.usersByEmail, emailKey(u.Email))
	return nil
}

func emailKey(email string) string { return strings.ToLower(strings.TrimSpace(email)) }

func clone(u *user.User) *user.User {
	c := *u
	if u.DateTime != nil {
		dt := *u.DateTime
		c.DateTime = &dt
	}
	return &c
}
