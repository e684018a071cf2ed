package repository

import (
	"context"
	"testing"

	"captionboard/internal/cache"
	"captionboard/internal/models"
	"captionboard/internal/testutil"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfileRepository_CreateIfAbsentIsIdempotent(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := NewProfileRepository(db, 0)
	ctx := context.Background()
	id := testutil.SeedUser(t, db)

	created, err := repo.CreateIfAbsent(ctx, &models.Profile{ID: id, FullName: "First", Department: models.DepartmentEC, Year: 1})
	require.NoError(t, err)
	assert.True(t, created)

	created, err = repo.CreateIfAbsent(ctx, &models.Profile{ID: id, FullName: "Second", Department: models.DepartmentME, Year: 3})
	require.NoError(t, err)
	assert.False(t, created)

	got, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "First", got.FullName)
	assert.Equal(t, models.DepartmentEC, got.Department)
}

func TestProfileRepository_CreateIfAbsentUnknownUser(t *testing.T) {
	repo := NewProfileRepository(testutil.NewSQLiteDB(t), 0)

	_, err := repo.CreateIfAbsent(context.Background(), &models.Profile{ID: uuid.New(), FullName: "Ghost"})
	assert.True(t, models.IsCode(err, models.CodeNotFound))
}

func TestProfileRepository_UpdateMissing(t *testing.T) {
	repo := NewProfileRepository(testutil.NewSQLiteDB(t), 0)

	err := repo.Update(context.Background(), &models.Profile{ID: uuid.New(), FullName: "Nobody"})
	assert.True(t, models.IsCode(err, models.CodeNotFound))
}

func TestProfileRepository_CachesReadsAndInvalidatesOnUpdate(t *testing.T) {
	mr := miniredis.RunT(t)
	cache.SetClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { cache.SetClient(nil) })

	db := testutil.NewSQLiteDB(t)
	repo := NewProfileRepository(db, 0)
	ctx := context.Background()
	id := testutil.SeedUser(t, db)

	_, err := repo.CreateIfAbsent(ctx, &models.Profile{ID: id, FullName: "Cached", Department: models.DepartmentPT, Year: 4})
	require.NoError(t, err)

	_, err = repo.GetByID(ctx, id)
	require.NoError(t, err)
	assert.True(t, mr.Exists(cache.ProfileKey(id)))
	assert.Equal(t, cache.ProfileTTL, mr.TTL(cache.ProfileKey(id)))

	// A write behind the repository's back is invisible until the entry is dropped.
	require.NoError(t, db.Model(&models.Profile{}).Where("id = ?", id).Update("full_name", "Stale").Error)
	got, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Cached", got.FullName)

	got.FullName = "Fresh"
	require.NoError(t, repo.Update(ctx, got))
	assert.False(t, mr.Exists(cache.ProfileKey(id)))

	got, err = repo.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Fresh", got.FullName)
}
