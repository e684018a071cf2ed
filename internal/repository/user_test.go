package repository

import (
	"context"
	"testing"
	"time"

	"captionboard/internal/models"
	"captionboard/internal/testutil"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserRepository_UpsertRefreshesEmail(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()
	id := uuid.New()

	require.NoError(t, repo.Upsert(ctx, &models.User{ID: id, Email: "old@example.edu"}))
	require.NoError(t, repo.Upsert(ctx, &models.User{ID: id, Email: "new@example.edu"}))

	got, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "new@example.edu", got.Email)

	var count int64
	require.NoError(t, db.Model(&models.User{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestUserRepository_GetByID_NotFound(t *testing.T) {
	repo := NewUserRepository(testutil.NewSQLiteDB(t))

	_, err := repo.GetByID(context.Background(), uuid.New())
	assert.True(t, models.IsCode(err, models.CodeNotFound))
}

func TestUserRepository_DeleteCascades(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	users := NewUserRepository(db)
	captions := NewCaptionRepository(db)
	profiles := NewProfileRepository(db, 0)
	ctx := context.Background()

	owner := testutil.SeedUser(t, db)
	other := testutil.SeedUser(t, db)
	mine := testutil.SeedCaption(t, db, owner, "mine", time.Now())
	theirs := testutil.SeedCaption(t, db, other, "theirs", time.Now())
	testutil.SeedLike(t, db, theirs.ID, owner)
	testutil.SeedLike(t, db, mine.ID, other)

	_, err := profiles.CreateIfAbsent(ctx, &models.Profile{ID: owner, FullName: "Owner", Department: models.DepartmentIT, Year: 2})
	require.NoError(t, err)

	require.NoError(t, users.Delete(ctx, owner))

	// The caption survives without an owner and keeps the likes others gave it.
	kept, err := captions.GetByID(ctx, mine.ID, nil)
	require.NoError(t, err)
	assert.Nil(t, kept.UserID)
	assert.Equal(t, int64(1), kept.LikeCount)

	// The deleted identity's likes are gone.
	assert.Zero(t, testutil.CountLikeRows(t, db, theirs.ID))

	_, err = profiles.GetByID(ctx, owner)
	assert.True(t, models.IsCode(err, models.CodeNotFound))

	err = users.Delete(ctx, owner)
	assert.True(t, models.IsCode(err, models.CodeNotFound))
}

func TestUserRepository_UpsertKeepsEmailWhenBlank(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()
	id := uuid.New()

	require.NoError(t, repo.Upsert(ctx, &models.User{ID: id, Email: "kept@example.edu"}))
	require.NoError(t, repo.Upsert(ctx, &models.User{ID: id}))

	got, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "kept@example.edu", got.Email)
}
