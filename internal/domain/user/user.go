package user

import (
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when no user has the requested ID.
	ErrNotFound = errors.New("user not found")
	// ErrEmailTaken is returned when another user already owns the email.
	ErrEmailTaken = errors.New("email already in use")
)

// User represents a stored user record
type User struct {
	ID       int64      `json:"id" db:"id"`
	Name     string     `json:"name" db:"name"`
	Age      int        `json:"age" db:"age"`
	Email    string     `json:"email" db:"email"`
	Birthday time.Time  `json:"birthday" db:"birthday"`
	DateTime *time.Time `json:"datetime,omitempty" db:"datetime"`
}

// Patch carries the fields of an update. Nil fields are left unchanged.
type Patch struct {
	Name     *string
	Age      *int
	Email    *string
	Birthday *time.Time
	DateTime *time.Time
}

// IsEmpty reports whether the patch changes nothing.
func (p Patch) IsEmpty() bool {
	return p.Name == nil && p.Age == nil && p.Email == nil && p.Birthday == nil && p.DateTime == nil
}

// Apply copies the set fields of p onto u.
func (p Patch) Apply(u *User) {
	if p.Name != nil {
		u.Name = *p.Name
	}
	if p.Age != nil {
		u.Age = *p.Age
	}
	if p.Email != nil {
		u.Email = *p.Email
	}
	if p.Birthday != nil {
		u.Birthday = *p.Birthday
	}
	if p.DateTime != nil {
		dt := *p.DateTime
		u.DateTime = &dt
	}
}

// ListQuery filters List. Users older than MinAge are returned oldest first.
type ListQuery struct {
	MinAge int
	Limit  int
}

// DefaultListLimit is used when ListQuery.Limit is not positive.
const DefaultListLimit = 5

// EffectiveLimit returns Limit or the default.
func (q ListQuery) EffectiveLimit() int {
	if q.Limit <= 0 {
		return DefaultListLimit
	}
	return q.Limit
}
