package repo

import (
	"context"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Skotchmaster/task_tracker/internal/models"
)

func initTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to connect to in-memory db: %v", err)
	}

	// A shared in-memory sqlite exists per connection, keep it to one.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&models.User{}, &models.RefreshToken{}, &models.Task{}); err != nil {
		t.Fatalf("failed to migrate tables: %v", err)
	}

	return db
}

func seedUser(t *testing.T, r *GormRepo, username string) *models.User {
	t.Helper()

	user := models.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "x",
		Role:         "user",
	}
	require.NoError(t, r.DB.Create(&user).Error)
	return &user
}

func seedToken(t *testing.T, r *GormRepo, userID uint, value string) *models.RefreshToken {
	t.Helper()

	tok := models.RefreshToken{
		Token:     value,
		JTI:       uuid.NewString(),
		UserID:    userID,
		ExpiresAt: 9999999999,
	}
	require.NoError(t, r.AddRefreshToken(context.Background(), &tok))
	return &tok
}

func TestRotateRefreshToken_ReplacesExactlyOne(t *testing.T) {
	t.Parallel()

	r := &GormRepo{DB: initTestDB(t)}
	ctx := context.Background()
	user := seedUser(t, r, "alice")

	seedToken(t, r, user.ID, "device-1")
	seedToken(t, r, user.ID, "device-2")

	next := models.RefreshToken{
		Token:     "device-1-rotated",
		JTI:       uuid.NewString(),
		UserID:    user.ID,
		ExpiresAt: 9999999999,
	}
	require.NoError(t, r.RotateRefreshToken(ctx, "device-1", &next))

	count, err := r.CountRefreshTokens(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	// Old value is gone, successor and untouched session remain.
	_, err = r.FindUserByRefreshToken(ctx, "device-1")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = r.FindUserByRefreshToken(ctx, "device-1-rotated")
	require.NoError(t, err)
	_, err = r.FindUserByRefreshToken(ctx, "device-2")
	require.NoError(t, err)
}

func TestRotateRefreshToken_ReuseClearsLedger(t *testing.T) {
	t.Parallel()

	r := &GormRepo{DB: initTestDB(t)}
	ctx := context.Background()
	user := seedUser(t, r, "bob")

	seedToken(t, r, user.ID, "device-1")
	seedToken(t, r, user.ID, "device-2")

	next := models.RefreshToken{
		Token:     "never-installed",
		JTI:       uuid.NewString(),
		UserID:    user.ID,
		ExpiresAt: 9999999999,
	}
	err := r.RotateRefreshToken(ctx, "already-rotated-token", &next)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRefreshReused)

	count, err := r.CountRefreshTokens(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)

	_, err = r.FindUserByRefreshToken(ctx, "never-installed")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRemoveRefreshToken_Idempotent(t *testing.T) {
	t.Parallel()

	r := &GormRepo{DB: initTestDB(t)}
	ctx := context.Background()
	user := seedUser(t, r, "carol")

	seedToken(t, r, user.ID, "session")

	require.NoError(t, r.RemoveRefreshToken(ctx, "session"))
	require.NoError(t, r.RemoveRefreshToken(ctx, "session"))
	require.NoError(t, r.RemoveRefreshToken(ctx, "never-existed"))

	count, err := r.CountRefreshTokens(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}

func TestRevokeAllRefreshTokens(t *testing.T) {
	t.Parallel()

	r := &GormRepo{DB: initTestDB(t)}
	ctx := context.Background()
	alice := seedUser(t, r, "alice")
	bob := seedUser(t, r, "bob")

	seedToken(t, r, alice.ID, "alice-1")
	seedToken(t, r, alice.ID, "alice-2")
	seedToken(t, r, bob.ID, "bob-1")

	require.NoError(t, r.RevokeAllRefreshTokens(ctx, alice.ID))

	count, err := r.CountRefreshTokens(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)

	// Other users' ledgers are untouched.
	count, err = r.CountRefreshTokens(ctx, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestFindUserByRefreshToken_ResolvesHolder(t *testing.T) {
	t.Parallel()

	r := &GormRepo{DB: initTestDB(t)}
	ctx := context.Background()
	user := seedUser(t, r, "dave")
	seedToken(t, r, user.ID, "dave-session")

	found, err := r.FindUserByRefreshToken(ctx, "dave-session")
	require.NoError(t, err)
	assert.Equal(t, user.ID, found.ID)

	_, err = r.FindUserByRefreshToken(ctx, "unknown")
	assert.ErrorIs(t, err, ErrNotFound)
}
