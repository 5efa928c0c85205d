// Package sqlstore implements the user repository on top of the pooled
// database engine. Each call runs in its own scoped session.
package sqlstore

import (
	"context"
	"errors"
	"fmt"

	"usersvc/internal/domain/user"
	"usersvc/internal/infrastructure/database"
)

// UserRepository is a SQL implementation of user.Repository
type UserRepository struct {
	engine  *database.Engine
	dialect dialect
}

// NewUserRepository constructs a UserRepository
func NewUserRepository(engine *database.Engine) *UserRepository {
	return &UserRepository{engine: engine, dialect: dialectFor(engine.DriverName())}
}

func (r *UserRepository) Get(ctx context.Context, id int64) (*user.User, error) {
	var u user.User
	err := r.engine.WithSession(ctx, func(s *database.Session) error {
		return s.Get(ctx, &u, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	})
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, user.ErrNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}

func (r *UserRepository) List(ctx context.Context, q user.ListQuery) ([]*user.User, error) {
	out := make([]*user.User, 0)
	err := r.engine.WithSession(ctx, func(s *database.Session) error {
		return s.Select(ctx, &out, r.dialect.listUsers, q.MinAge, q.EffectiveLimit())
	})
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return out, nil
}

func (r *UserRepository) Create(ctx context.Context, u *user.User) error {
	var id int64
	err := r.engine.WithSession(ctx, func(s *database.Session) error {
		return s.Get(ctx, &id, r.dialect.insertUser, u.Name, u.Age, u.Email, u.Birthday, u.DateTime)
	})
	if err != nil {
		if isUniqueViolation(err) {
			return user.ErrEmailTaken
		}
		return fmt.Errorf("create user: %w", err)
	}
	u.ID = id
	return nil
}

func (r *UserRepository) Update(ctx context.Context, id int64, patch user.Patch) (*user.User, error) {
	var u user.User
	err := r.engine.WithTx(ctx, func(s *database.Session) error {
		if !patch.IsEmpty() {
			res, err := s.Exec(ctx, `UPDATE users SET
				name = COALESCE(?, name),
				age = COALESCE(?, age),
				email = COALESCE(?, email),
				birthday = COALESCE(?, birthday),
				datetime = COALESCE(?, datetime)
				WHERE id = ?`,
				patch.Name, patch.Age, patch.Email, patch.Birthday, patch.DateTime, id)
			if err != nil {
				return err
			}
			if affected, _ := res.RowsAffected(); affected == 0 {
				return database.ErrNotFound
			}
		}
		return s.Get(ctx, &u, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	})
	if err != nil {
		switch {
		case errors.Is(err, database.ErrNotFound):
			return nil, user.ErrNotFound
		case isUniqueViolation(err):
			return nil, user.ErrEmailTaken
		}
		return nil, fmt.Errorf("update user: %w", err)
	}
	return &u, nil
}

func (r *UserRepository) Delete(ctx context.Context, id int64) error {
	var affected int64
	err := r.engine.WithSession(ctx, func(s *database.Session) error {
		res, err := s.Exec(ctx, `DELETE FROM users WHERE id = ?`, id)
		if err != nil {
			return err
		}
		affected, _ = res.RowsAffected()
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if affected == 0 {
		return user.ErrNotFound
	}
	return nil
}
