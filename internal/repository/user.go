package repository

import (
	"context"
	"errors"

	"captionboard/internal/cache"
	"captionboard/internal/database"
	"captionboard/internal/models"
	"captionboard/internal/observability"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UserRepository persists the local mirror of provider identities.
type UserRepository interface {
	Upsert(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type userRepository struct {
	db  *gorm.DB
	log *observability.RepoLogger
}

// NewUserRepository returns a new UserRepository implementation.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db, log: observability.NewRepoLogger("users")}
}

// Upsert inserts the identity or refreshes its email. An empty email never
// overwrites a known one.
func (r *userRepository) Upsert(ctx context.Context, user *models.User) error {
	onConflict := clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"email", "updated_at"}),
	}
	if user.Email == "" {
		onConflict = clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, DoNothing: true}
	}
	err := r.db.WithContext(ctx).Clauses(onConflict).Create(user).Error
	if err != nil {
		err = database.TranslateError(err)
		r.log.LogError(ctx, err, "upsert")
		return err
	}
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).Take(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("User", id)
		}
		return nil, database.TranslateError(err)
	}
	return &user, nil
}

// Delete removes the identity. Likes and the profile cascade; captions keep
// existing with user_id set to NULL.
func (r *userRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.User{})
	if result.Error != nil {
		err := database.TranslateError(result.Error)
		r.log.LogError(ctx, err, "delete")
		return err
	}
	if result.RowsAffected == 0 {
		return models.NewNotFoundError("User", id)
	}
	// The profile row went with the user.
	cache.InvalidateProfile(ctx, id)
	r.log.LogDelete(ctx, map[string]interface{}{"user_id": id.String()})
	return nil
}
