package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"captionboard/internal/models"
	"captionboard/internal/testutil"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var baseTime = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func TestCaptionRepository_CreateAndGet(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := NewCaptionRepository(db)
	ctx := context.Background()
	author := testutil.SeedUser(t, db)

	c := &models.Caption{
		CaptionText: "Great job!",
		AuthorName:  "Asha",
		Department:  models.DepartmentCSE,
		UserID:      &author,
	}
	require.NoError(t, repo.Create(ctx, c))
	assert.NotEqual(t, uuid.Nil, c.ID)
	assert.Zero(t, c.LikeCount)

	got, err := repo.GetByID(ctx, c.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, "Great job!", got.CaptionText)
	assert.Equal(t, models.DepartmentCSE, got.Department)
	assert.True(t, got.IsOwnedBy(author))
	assert.Zero(t, got.LikeCount)
	assert.False(t, got.LikedByMe)
}

func TestCaptionRepository_CreateUnknownIdentity(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := NewCaptionRepository(db)
	stranger := uuid.New()

	err := repo.Create(context.Background(), &models.Caption{
		CaptionText: "hi", AuthorName: "x", Department: models.DepartmentIT, UserID: &stranger,
	})
	require.Error(t, err)
	assert.Equal(t, models.CodeUnauthorized, models.ErrorCode(err))
}

func TestCaptionRepository_GetByID_NotFound(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	_, err := NewCaptionRepository(db).GetByID(context.Background(), uuid.New(), nil)
	assert.Equal(t, models.CodeNotFound, models.ErrorCode(err))
}

func TestCaptionRepository_LikeScenario(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := NewCaptionRepository(db)
	ctx := context.Background()

	a := testutil.SeedUser(t, db)
	b := testutil.SeedUser(t, db)
	c := testutil.SeedCaption(t, db, a, "Great job!", baseTime)

	count, err := repo.LikeCount(ctx, c.ID)
	require.NoError(t, err)
	assert.Zero(t, count)

	out, err := repo.Like(ctx, b, c.ID)
	require.NoError(t, err)
	assert.True(t, out.Inserted)
	assert.Equal(t, int64(1), out.LikeCount)

	ids, err := repo.LikedCaptionIDs(ctx, b)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{c.ID}, ids)

	out, err = repo.Like(ctx, b, c.ID)
	require.NoError(t, err)
	assert.False(t, out.Inserted, "second like must not insert")
	assert.Equal(t, int64(1), out.LikeCount)
	assert.Equal(t, int64(1), testutil.CountLikeRows(t, db, c.ID))

	removed, err := repo.Unlike(ctx, b, c.ID)
	require.NoError(t, err)
	assert.True(t, removed.Removed)
	assert.Zero(t, removed.LikeCount)
	assert.Zero(t, testutil.CountLikeRows(t, db, c.ID))
}

func TestCaptionRepository_UnlikeAbsentIsNoop(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := NewCaptionRepository(db)
	ctx := context.Background()

	a := testutil.SeedUser(t, db)
	b := testutil.SeedUser(t, db)
	c := testutil.SeedCaption(t, db, a, "hello", baseTime)
	testutil.SeedLike(t, db, c.ID, a)

	out, err := repo.Unlike(ctx, b, c.ID)
	require.NoError(t, err)
	assert.False(t, out.Removed, "b never liked the caption")
	assert.Equal(t, int64(1), out.LikeCount)

	out, err = repo.Unlike(ctx, b, uuid.New())
	require.NoError(t, err)
	assert.False(t, out.Removed)
	assert.Zero(t, out.LikeCount)
}

func TestCaptionRepository_LikeUnknownCaption(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := NewCaptionRepository(db)
	user := testutil.SeedUser(t, db)

	_, err := repo.Like(context.Background(), user, uuid.New())
	require.Error(t, err)
	assert.Equal(t, models.CodeNotFound, models.ErrorCode(err))
}

func TestCaptionRepository_LikeUnknownIdentity(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := NewCaptionRepository(db)
	author := testutil.SeedUser(t, db)
	c := testutil.SeedCaption(t, db, author, "hello", baseTime)

	_, err := repo.Like(context.Background(), uuid.New(), c.ID)
	require.Error(t, err)
	assert.Equal(t, models.CodeUnauthorized, models.ErrorCode(err))
	assert.Zero(t, testutil.CountLikeRows(t, db, c.ID))
}

func TestCaptionRepository_LikeCountMatchesRows(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := NewCaptionRepository(db)
	ctx := context.Background()

	author := testutil.SeedUser(t, db)
	var users []uuid.UUID
	for i := 0; i < 5; i++ {
		users = append(users, testutil.SeedUser(t, db))
	}
	var captions []*models.Caption
	for i := 0; i < 4; i++ {
		captions = append(captions, testutil.SeedCaption(t, db, author, "c", baseTime.Add(time.Duration(i)*time.Minute)))
	}

	// A mix of likes, repeats and unlikes.
	for i, u := range users {
		for j, c := range captions {
			if (i+j)%2 == 0 {
				_, err := repo.Like(ctx, u, c.ID)
				require.NoError(t, err)
				_, err = repo.Like(ctx, u, c.ID)
				require.NoError(t, err)
			}
			if (i*j)%3 == 1 {
				_, err := repo.Unlike(ctx, u, c.ID)
				require.NoError(t, err)
			}
		}
	}

	listed, err := repo.List(ctx, CaptionFilter{})
	require.NoError(t, err)
	require.Len(t, listed, len(captions))
	for _, c := range listed {
		assert.Equal(t, testutil.CountLikeRows(t, db, c.ID), c.LikeCount, "caption %s", c.ID)
	}
}

func TestCaptionRepository_ListOrdering(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := NewCaptionRepository(db)
	ctx := context.Background()

	author := testutil.SeedUser(t, db)
	fan1 := testutil.SeedUser(t, db)
	fan2 := testutil.SeedUser(t, db)

	oldOne := testutil.SeedCaption(t, db, author, "old, one like", baseTime)
	newOne := testutil.SeedCaption(t, db, author, "new, one like", baseTime.Add(time.Hour))
	popular := testutil.SeedCaption(t, db, author, "two likes", baseTime.Add(-time.Hour))
	newest := testutil.SeedCaption(t, db, author, "no likes", baseTime.Add(2*time.Hour))

	testutil.SeedLike(t, db, oldOne.ID, fan1)
	testutil.SeedLike(t, db, newOne.ID, fan2)
	testutil.SeedLike(t, db, popular.ID, fan1)
	testutil.SeedLike(t, db, popular.ID, fan2)

	listed, err := repo.List(ctx, CaptionFilter{})
	require.NoError(t, err)

	var order []uuid.UUID
	for _, c := range listed {
		order = append(order, c.ID)
	}
	assert.Equal(t, []uuid.UUID{popular.ID, newOne.ID, oldOne.ID, newest.ID}, order)
	assert.Equal(t, []int64{2, 1, 1, 0}, []int64{listed[0].LikeCount, listed[1].LikeCount, listed[2].LikeCount, listed[3].LikeCount})
}

func TestCaptionRepository_ListEmptyIsNotNil(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	listed, err := NewCaptionRepository(db).List(context.Background(), CaptionFilter{})
	require.NoError(t, err)
	assert.NotNil(t, listed)
	assert.Empty(t, listed)
}

func TestCaptionRepository_ListFilterPagingAndViewer(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := NewCaptionRepository(db)
	ctx := context.Background()

	author := testutil.SeedUser(t, db)
	viewer := testutil.SeedUser(t, db)

	var cse []*models.Caption
	for i := 0; i < 3; i++ {
		cse = append(cse, testutil.SeedCaption(t, db, author, "cse", baseTime.Add(time.Duration(i)*time.Minute)))
	}
	me := &models.Caption{CaptionText: "me", AuthorName: "x", Department: models.DepartmentME, UserID: &author}
	require.NoError(t, repo.Create(ctx, me))
	testutil.SeedLike(t, db, cse[0].ID, viewer)

	onlyME, err := repo.List(ctx, CaptionFilter{Department: models.DepartmentME})
	require.NoError(t, err)
	require.Len(t, onlyME, 1)
	assert.Equal(t, me.ID, onlyME[0].ID)

	page, err := repo.List(ctx, CaptionFilter{Department: models.DepartmentCSE, Limit: 2, ViewerID: &viewer})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, cse[0].ID, page[0].ID)
	assert.True(t, page[0].LikedByMe)
	assert.False(t, page[1].LikedByMe)

	rest, err := repo.List(ctx, CaptionFilter{Department: models.DepartmentCSE, Limit: 2, Offset: 2})
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Equal(t, cse[1].ID, rest[0].ID)
}

func TestCaptionRepository_UpdateAndDelete(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := NewCaptionRepository(db)
	ctx := context.Background()

	author := testutil.SeedUser(t, db)
	fan := testutil.SeedUser(t, db)
	c := testutil.SeedCaption(t, db, author, "before", baseTime)
	testutil.SeedLike(t, db, c.ID, fan)

	c.CaptionText = "after"
	c.Department = models.DepartmentEEE
	require.NoError(t, repo.Update(ctx, c))

	got, err := repo.GetByID(ctx, c.ID, &fan)
	require.NoError(t, err)
	assert.Equal(t, "after", got.CaptionText)
	assert.Equal(t, models.DepartmentEEE, got.Department)
	assert.Equal(t, int64(1), got.LikeCount)
	assert.True(t, got.LikedByMe)

	require.NoError(t, repo.Delete(ctx, c.ID))
	assert.Zero(t, testutil.CountLikeRows(t, db, c.ID), "likes cascade with the caption")

	err = repo.Delete(ctx, c.ID)
	assert.Equal(t, models.CodeNotFound, models.ErrorCode(err))

	err = repo.Update(ctx, &models.Caption{ID: uuid.New(), CaptionText: "x", AuthorName: "y", Department: models.DepartmentIT})
	assert.Equal(t, models.CodeNotFound, models.ErrorCode(err))
}

func TestCaptionRepository_CountByUser(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := NewCaptionRepository(db)
	ctx := context.Background()

	a := testutil.SeedUser(t, db)
	b := testutil.SeedUser(t, db)
	testutil.SeedCaption(t, db, a, "one", baseTime)
	testutil.SeedCaption(t, db, a, "two", baseTime)

	n, err := repo.CountByUser(ctx, a)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	n, err = repo.CountByUser(ctx, b)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestCaptionRepository_ConcurrentDuplicateLikes(t *testing.T) {
	db := testutil.NewFileSQLiteDB(t)
	repo := NewCaptionRepository(db)
	ctx := context.Background()

	author := testutil.SeedUser(t, db)
	fan := testutil.SeedUser(t, db)
	c := testutil.SeedCaption(t, db, author, "race", baseTime)

	const workers = 16
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		inserted int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out, err := repo.Like(ctx, fan, c.ID)
			if !assert.NoError(t, err) {
				return
			}
			assert.Equal(t, int64(1), out.LikeCount)
			if out.Inserted {
				mu.Lock()
				inserted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, inserted)
	assert.Equal(t, int64(1), testutil.CountLikeRows(t, db, c.ID))
}

func TestCaptionRepository_ConcurrentLikesFromDistinctUsers(t *testing.T) {
	db := testutil.NewFileSQLiteDB(t)
	repo := NewCaptionRepository(db)
	ctx := context.Background()

	c := testutil.SeedCaption(t, db, testutil.SeedUser(t, db), "popular", baseTime)
	const workers = 16
	fans := make([]uuid.UUID, workers)
	for i := range fans {
		fans[i] = testutil.SeedUser(t, db)
	}

	var wg sync.WaitGroup
	outs := make([]LikeOutcome, workers)
	errs := make([]error, workers)
	for i := range fans {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			outs[i], errs[i] = repo.Like(ctx, fans[i], c.ID)
		}(i)
	}
	wg.Wait()

	for i := range fans {
		assert.NoError(t, errs[i], "fan %d", i)
		assert.True(t, outs[i].Inserted, "fan %d", i)
	}
	assert.Equal(t, int64(workers), testutil.CountLikeRows(t, db, c.ID))
	count, err := repo.LikeCount(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(workers), count)
}

func TestCaptionRepository_MissingSchemaIsStoreUnavailable(t *testing.T) {
	db := openBareSQLite(t)
	repo := NewCaptionRepository(db)

	_, err := repo.List(context.Background(), CaptionFilter{})
	require.Error(t, err)
	assert.Equal(t, models.CodeStoreUnavailable, models.ErrorCode(err))

	_, err = repo.Like(context.Background(), uuid.New(), uuid.New())
	assert.Equal(t, models.CodeStoreUnavailable, models.ErrorCode(err))
}
