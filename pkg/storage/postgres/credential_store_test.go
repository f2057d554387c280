package postgres

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iLink-CyberShARE/swim-api/pkg/auth"
)

// setupSQLiteDB opens an in-memory sqlite database with the migrations applied
func setupSQLiteDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := Open(context.Background(), ConnectionConfig{Driver: DriverSQLite}, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, RunMigrations(context.Background(), db, DriverSQLite))
	return db
}

func newIdentity(email string, role auth.Role) *auth.Identity {
	return &auth.Identity{
		Email:        email,
		PasswordHash: "$2a$10$digest",
		FirstName:    "Ada",
		LastName:     "Lovelace",
		Institution:  "UTEP",
		Role:         role,
		Active:       true,
	}
}

func TestCredentialStore_CreateAndFind(t *testing.T) {
	store := NewCredentialStore(setupSQLiteDB(t))
	ctx := context.Background()

	id, err := store.Create(ctx, newIdentity("ada@example.com", auth.RoleContentManager))
	require.NoError(t, err)
	assert.Positive(t, id)

	byEmail, err := store.FindByEmail(ctx, "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, id, byEmail.ID)
	assert.Equal(t, "Ada", byEmail.FirstName)
	assert.Equal(t, "UTEP", byEmail.Institution)
	assert.Empty(t, byEmail.Department)
	assert.Equal(t, auth.RoleContentManager, byEmail.Role)
	assert.True(t, byEmail.Active)

	byID, err := store.FindByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, byEmail, byID)
}

func TestCredentialStore_Duplicate(t *testing.T) {
	store := NewCredentialStore(setupSQLiteDB(t))
	ctx := context.Background()

	_, err := store.Create(ctx, newIdentity("dup@example.com", auth.RoleStandard))
	require.NoError(t, err)

	_, err = store.Create(ctx, newIdentity("dup@example.com", auth.RoleGuest))
	assert.ErrorIs(t, err, auth.ErrDuplicateIdentity)
}

func TestCredentialStore_NotFound(t *testing.T) {
	store := NewCredentialStore(setupSQLiteDB(t))
	ctx := context.Background()

	_, err := store.FindByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, auth.ErrIdentityNotFound)

	_, err = store.FindByID(ctx, 42)
	assert.ErrorIs(t, err, auth.ErrIdentityNotFound)

	err = store.UpdatePassword(ctx, 42, "digest")
	assert.ErrorIs(t, err, auth.ErrIdentityNotFound)
}

func TestCredentialStore_UpdatePassword(t *testing.T) {
	store := NewCredentialStore(setupSQLiteDB(t))
	ctx := context.Background()

	id, err := store.Create(ctx, newIdentity("pw@example.com", auth.RoleStandard))
	require.NoError(t, err)

	require.NoError(t, store.UpdatePassword(ctx, id, "new-digest"))

	identity, err := store.FindByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "new-digest", identity.PasswordHash)
	assert.Equal(t, auth.RoleStandard, identity.Role)
	assert.Equal(t, "Lovelace", identity.LastName)
}

func TestCredentialStore_RejectsConflictingFlags(t *testing.T) {
	db := setupSQLiteDB(t)
	ctx := context.Background()

	_, err := db.ExecContext(ctx,
		`INSERT INTO users (uemail, upassword, is_guest, is_contentmanager) VALUES ('x@example.com', 'd', 1, 1)`)
	assert.Error(t, err, "schema forbids guest content managers")
}
