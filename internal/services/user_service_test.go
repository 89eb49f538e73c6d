package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/review-portal/internal/models"
	"github.com/yukikurage/review-portal/internal/testutil"
)

func emails(users []models.User) []string {
	out := make([]string, 0, len(users))
	for _, u := range users {
		out = append(out, u.Email)
	}
	return out
}

func TestUserService_Directory(t *testing.T) {
	env := setupServiceTestEnv(t)
	ctx := context.Background()
	admin := testutil.CreateUser(t, env.db, "admin@x.com", models.RoleAdmin, true)
	manager := testutil.CreateUser(t, env.db, "manager@x.com", models.RoleManager, true)
	testutil.CreateUser(t, env.db, "pending@x.com", models.RoleManager, false)
	alice := testutil.CreateUser(t, env.db, "alice@x.com", models.RoleUser, true)

	all, err := env.users.ListUsers(ctx, admin)
	require.NoError(t, err)
	assert.Len(t, all, 4)

	forAlice, err := env.users.ListUsers(ctx, alice)
	require.NoError(t, err)
	assert.NotContains(t, emails(forAlice), "admin@x.com")
	assert.Len(t, forAlice, 3)

	_, err = env.users.GetUser(ctx, alice, admin.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	got, err := env.users.GetUser(ctx, alice, manager.ID)
	require.NoError(t, err)
	assert.Equal(t, manager.ID, got.ID)
}

func TestUserService_PendingManagers(t *testing.T) {
	env := setupServiceTestEnv(t)
	ctx := context.Background()
	admin := testutil.CreateUser(t, env.db, "admin@x.com", models.RoleAdmin, true)
	manager := testutil.CreateUser(t, env.db, "manager@x.com", models.RoleManager, true)
	pending := testutil.CreateUser(t, env.db, "pending@x.com", models.RoleManager, false)

	queue, err := env.users.PendingManagers(ctx, admin)
	require.NoError(t, err)
	require.Len(t, queue, 1)
	assert.Equal(t, pending.ID, queue[0].ID)

	_, err = env.users.PendingManagers(ctx, manager)
	assert.ErrorIs(t, err, ErrForbidden)

	// Polling again after approval sees the queue drained.
	_, err = env.auth.ApproveManager(ctx, admin, pending.ID)
	require.NoError(t, err)
	queue, err = env.users.PendingManagers(ctx, admin)
	require.NoError(t, err)
	assert.Empty(t, queue)
}

func TestUserService_AssignableUsers(t *testing.T) {
	env := setupServiceTestEnv(t)
	ctx := context.Background()
	testutil.CreateUser(t, env.db, "admin@x.com", models.RoleAdmin, true)
	manager := testutil.CreateUser(t, env.db, "manager@x.com", models.RoleManager, true)
	testutil.CreateUser(t, env.db, "alice@x.com", models.RoleUser, true)
	testutil.CreateUser(t, env.db, "bob@x.com", models.RoleUser, true)

	assignable, err := env.users.AssignableUsers(ctx, manager)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"alice@x.com", "bob@x.com"}, emails(assignable))
}
