package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"usersvc/internal/domain/user"
)

func newUser(name string, age int, email string) *user.User {
	return &user.User{
		Name:     name,
		Age:      age,
		Email:    email,
		Birthday: time.Date(1996, 1, 25, 0, 0, 0, 0, time.UTC),
	}
}

func TestUserRepository_CRUD(t *testing.T) {
	repo := NewUserRepository()
	ctx := context.Background()

	jane := newUser("Jane Doe", 28, "jane.doe@example.com")
	require.NoError(t, repo.Create(ctx, jane))
	assert.Equal(t, int64(1), jane.ID)

	got, err := repo.Get(ctx, jane.ID)
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", got.Name)

	got.Name = "mutated"
	again, _ := repo.Get(ctx, jane.ID)
	assert.Equal(t, "Jane Doe", again.Name, "returned users are copies")

	age := 29
	updated, err := repo.Update(ctx, jane.ID, user.Patch{Age: &age})
	require.NoError(t, err)
	assert.Equal(t, 29, updated.Age)
	assert.Equal(t, "jane.doe@example.com", updated.Email)

	require.NoError(t, repo.Delete(ctx, jane.ID))
	_, err = repo.Get(ctx, jane.ID)
	assert.ErrorIs(t, err, user.ErrNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, jane.ID), user.ErrNotFound)

	_, err = repo.Update(ctx, 99, user.Patch{Age: &age})
	assert.ErrorIs(t, err, user.ErrNotFound)
}

func TestUserRepository_EmailUnique(t *testing.T) {
	repo := NewUserRepository()
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, newUser("A", 30, "a@example.com")))
	b := newUser("B", 31, "b@example.com")
	require.NoError(t, repo.Create(ctx, b))

	err := repo.Create(ctx, newUser("A2", 32, "A@example.com"))
	assert.ErrorIs(t, err, user.ErrEmailTaken)

	taken := "a@example.com"
	_, err = repo.Update(ctx, b.ID, user.Patch{Email: &taken})
	assert.ErrorIs(t, err, user.ErrEmailTaken)

	free := "b2@example.com"
	_, err = repo.Update(ctx, b.ID, user.Patch{Email: &free})
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, newUser("B again", 33, "b@example.com")))
}

func TestUserRepository_List(t *testing.T) {
	repo := NewUserRepository()
	ctx := context.Background()

	for i, age := range []int{20, 45, 33, 61, 38, 52, 70} {
		u := newUser("user", age, string(rune('a'+i))+"@example.com")
		require.NoError(t, repo.Create(ctx, u))
	}

	users, err := repo.List(ctx, user.ListQuery{MinAge: 30})
	require.NoError(t, err)
	require.Len(t, users, 5)
	ages := make([]int, 0, len(users))
	for _, u := range users {
		ages = append(ages, u.Age)
	}
	assert.Equal(t, []int{70, 61, 52, 45, 38}, ages)

	users, err = repo.List(ctx, user.ListQuery{MinAge: 60, Limit: 10})
	require.NoError(t, err)
	assert.Len(t, users, 2)

	users, err = repo.List(ctx, user.ListQuery{MinAge: 100})
	require.NoError(t, err)
	assert.Empty(t, users)
}
