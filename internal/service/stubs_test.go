package service

import (
	"context"
	"errors"
	"testing"

	"captionboard/internal/models"
	"captionboard/internal/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// captionRepoStub is a stub for repository.CaptionRepository.
type captionRepoStub struct {
	createFn      func(context.Context, *models.Caption) error
	getByIDFn     func(context.Context, uuid.UUID, *uuid.UUID) (*models.Caption, error)
	listFn        func(context.Context, repository.CaptionFilter) ([]models.Caption, error)
	updateFn      func(context.Context, *models.Caption) error
	deleteFn      func(context.Context, uuid.UUID) error
	countByUserFn func(context.Context, uuid.UUID) (int64, error)
	likedIDsFn    func(context.Context, uuid.UUID) ([]uuid.UUID, error)
	likeFn        func(context.Context, uuid.UUID, uuid.UUID) (repository.LikeOutcome, error)
	unlikeFn      func(context.Context, uuid.UUID, uuid.UUID) (repository.UnlikeOutcome, error)
}

func (s *captionRepoStub) Create(ctx context.Context, c *models.Caption) error {
	return s.createFn(ctx, c)
}
func (s *captionRepoStub) GetByID(ctx context.Context, id uuid.UUID, viewerID *uuid.UUID) (*models.Caption, error) {
	return s.getByIDFn(ctx, id, viewerID)
}
func (s *captionRepoStub) List(ctx context.Context, f repository.CaptionFilter) ([]models.Caption, error) {
	return s.listFn(ctx, f)
}
func (s *captionRepoStub) Update(ctx context.Context, c *models.Caption) error {
	return s.updateFn(ctx, c)
}
func (s *captionRepoStub) Delete(ctx context.Context, id uuid.UUID) error {
	return s.deleteFn(ctx, id)
}
func (s *captionRepoStub) CountByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.countByUserFn(ctx, userID)
}
func (s *captionRepoStub) LikeCount(_ context.Context, _ uuid.UUID) (int64, error) {
	return 0, nil
}
func (s *captionRepoStub) LikedCaptionIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	return s.likedIDsFn(ctx, userID)
}
func (s *captionRepoStub) Like(ctx context.Context, userID, captionID uuid.UUID) (repository.LikeOutcome, error) {
	return s.likeFn(ctx, userID, captionID)
}
func (s *captionRepoStub) Unlike(ctx context.Context, userID, captionID uuid.UUID) (repository.UnlikeOutcome, error) {
	return s.unlikeFn(ctx, userID, captionID)
}

// failOnWrite fails the test if the stub is asked to persist anything.
func failOnWrite(t *testing.T) *captionRepoStub {
	return &captionRepoStub{
		createFn: func(context.Context, *models.Caption) error {
			t.Fatal("unexpected Create")
			return nil
		},
		getByIDFn: func(context.Context, uuid.UUID, *uuid.UUID) (*models.Caption, error) {
			t.Fatal("unexpected GetByID")
			return nil, nil
		},
		listFn: func(context.Context, repository.CaptionFilter) ([]models.Caption, error) { return nil, nil },
		updateFn: func(context.Context, *models.Caption) error {
			t.Fatal("unexpected Update")
			return nil
		},
		deleteFn: func(context.Context, uuid.UUID) error {
			t.Fatal("unexpected Delete")
			return nil
		},
		countByUserFn: func(context.Context, uuid.UUID) (int64, error) { return 0, nil },
		likedIDsFn:    func(context.Context, uuid.UUID) ([]uuid.UUID, error) { return nil, nil },
		likeFn: func(context.Context, uuid.UUID, uuid.UUID) (repository.LikeOutcome, error) {
			t.Fatal("unexpected Like")
			return repository.LikeOutcome{}, nil
		},
		unlikeFn: func(context.Context, uuid.UUID, uuid.UUID) (repository.UnlikeOutcome, error) {
			t.Fatal("unexpected Unlike")
			return repository.UnlikeOutcome{}, nil
		},
	}
}

// userRepoStub is a stub for repository.UserRepository.
type userRepoStub struct {
	upsertFn func(context.Context, *models.User) error
	deleteFn func(context.Context, uuid.UUID) error
}

func (s *userRepoStub) Upsert(ctx context.Context, u *models.User) error {
	return s.upsertFn(ctx, u)
}
func (s *userRepoStub) GetByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	return &models.User{ID: id}, nil
}
func (s *userRepoStub) Delete(ctx context.Context, id uuid.UUID) error {
	return s.deleteFn(ctx, id)
}

// profileRepoStub is a stub for repository.ProfileRepository.
type profileRepoStub struct {
	createFn  func(context.Context, *models.Profile) (bool, error)
	getByIDFn func(context.Context, uuid.UUID) (*models.Profile, error)
	updateFn  func(context.Context, *models.Profile) error
}

func (s *profileRepoStub) CreateIfAbsent(ctx context.Context, p *models.Profile) (bool, error) {
	return s.createFn(ctx, p)
}
func (s *profileRepoStub) GetByID(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	return s.getByIDFn(ctx, id)
}
func (s *profileRepoStub) Update(ctx context.Context, p *models.Profile) error {
	return s.updateFn(ctx, p)
}

func noopUserRepo() *userRepoStub {
	return &userRepoStub{
		upsertFn: func(context.Context, *models.User) error { return nil },
		deleteFn: func(context.Context, uuid.UUID) error { return nil },
	}
}

func brokenProfileRepo(err error) *profileRepoStub {
	return &profileRepoStub{
		createFn:  func(context.Context, *models.Profile) (bool, error) { return false, err },
		getByIDFn: func(context.Context, uuid.UUID) (*models.Profile, error) { return nil, err },
		updateFn:  func(context.Context, *models.Profile) error { return err },
	}
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %T: %v", err, err)
	assert.Equal(t, code, appErr.Code)
}

// assertValidationError asserts that err is an AppError with code VALIDATION_ERROR.
func assertValidationError(t *testing.T, err error) {
	t.Helper()
	assertCode(t, err, models.CodeValidation)
}
