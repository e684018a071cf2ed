package repository

import (
	"context"
	"errors"
	"time"

	"captionboard/internal/cache"
	"captionboard/internal/database"
	"captionboard/internal/models"
	"captionboard/internal/observability"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProfileRepository defines persistence operations for profiles.
type ProfileRepository interface {
	CreateIfAbsent(ctx context.Context, profile *models.Profile) (bool, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Profile, error)
	Update(ctx context.Context, profile *models.Profile) error
}

type profileRepository struct {
	db  *gorm.DB
	ttl time.Duration
	log *observability.RepoLogger
}

// NewProfileRepository returns a ProfileRepository that caches reads for ttl
// when Redis is configured. A zero ttl uses cache.ProfileTTL.
func NewProfileRepository(db *gorm.DB, ttl time.Duration) ProfileRepository {
	if ttl <= 0 {
		ttl = cache.ProfileTTL
	}
	return &profileRepository{db: db, ttl: ttl, log: observability.NewRepoLogger("profiles")}
}

// CreateIfAbsent inserts profile unless one already exists for its ID and
// reports whether a row was written.
func (r *profileRepository) CreateIfAbsent(ctx context.Context, profile *models.Profile) (bool, error) {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoNothing: true,
		}).
		Create(profile)
	if result.Error != nil {
		err := result.Error
		if database.IsForeignKeyViolation(err) {
			err = models.NewNotFoundError("User", profile.ID)
		} else {
			err = database.TranslateError(err)
		}
		r.log.LogError(ctx, err, "create")
		return false, err
	}
	created := result.RowsAffected > 0
	if created {
		cache.InvalidateProfile(ctx, profile.ID)
		r.log.LogCreate(ctx, map[string]interface{}{"profile_id": profile.ID.String()})
	}
	return created, nil
}

func (r *profileRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	var profile models.Profile
	err := cache.Aside(ctx, cache.ProfileKey(id), &profile, r.ttl, func() error {
		if err := r.db.WithContext(ctx).Where("id = ?", id).Take(&profile).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.NewNotFoundError("Profile", id)
			}
			return database.TranslateError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

func (r *profileRepository) Update(ctx context.Context, profile *models.Profile) error {
	result := r.db.WithContext(ctx).
		Model(profile).
		Select("email", "full_name", "department", "year", "student_id", "updated_at").
		Updates(profile)
	if result.Error != nil {
		err := database.TranslateError(result.Error)
		r.log.LogError(ctx, err, "update")
		return err
	}
	if result.RowsAffected == 0 {
		return models.NewNotFoundError("Profile", profile.ID)
	}
	cache.InvalidateProfile(ctx, profile.ID)
	r.log.LogUpdate(ctx, map[string]interface{}{"profile_id": profile.ID.String()})
	return nil
}
