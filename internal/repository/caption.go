// Package repository provides data access layer implementations for the application.
package repository

import (
	"context"
	"errors"

	"captionboard/internal/database"
	"captionboard/internal/models"
	"captionboard/internal/observability"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CaptionFilter narrows and pages a feed listing.
type CaptionFilter struct {
	Department models.Department
	// Limit of 0 returns every caption.
	Limit  int
	Offset int
	// ViewerID, when set, fills Caption.LikedByMe.
	ViewerID *uuid.UUID
}

// LikeOutcome reports the effect of a Like call.
type LikeOutcome struct {
	// Inserted is false when the (caption, user) pair already existed.
	Inserted  bool
	LikeCount int64
}

// UnlikeOutcome reports the effect of an Unlike call.
type UnlikeOutcome struct {
	// Removed is false when there was no like to remove.
	Removed   bool
	LikeCount int64
}

// CaptionRepository defines the interface for caption and like data operations
type CaptionRepository interface {
	Create(ctx context.Context, caption *models.Caption) error
	GetByID(ctx context.Context, id uuid.UUID, viewerID *uuid.UUID) (*models.Caption, error)
	List(ctx context.Context, filter CaptionFilter) ([]models.Caption, error)
	Update(ctx context.Context, caption *models.Caption) error
	Delete(ctx context.Context, id uuid.UUID) error
	CountByUser(ctx context.Context, userID uuid.UUID) (int64, error)
	LikeCount(ctx context.Context, captionID uuid.UUID) (int64, error)
	LikedCaptionIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
	Like(ctx context.Context, userID, captionID uuid.UUID) (LikeOutcome, error)
	Unlike(ctx context.Context, userID, captionID uuid.UUID) (UnlikeOutcome, error)
}

// captionRepository implements CaptionRepository
type captionRepository struct {
	db      *gorm.DB
	log     *observability.RepoLogger
	metrics *observability.DatabaseMetrics
}

// NewCaptionRepository creates a new caption repository
func NewCaptionRepository(db *gorm.DB) CaptionRepository {
	return &captionRepository{
		db:      db,
		log:     observability.NewRepoLogger("captions"),
		metrics: observability.NewDatabaseMetrics("captions"),
	}
}

// fail translates err, logs it, and counts it under operation.
func (r *captionRepository) fail(ctx context.Context, operation string, err error) error {
	err = database.TranslateError(err)
	r.log.LogError(ctx, err, operation)
	observability.RecordStoreError(operation, models.ErrorCode(err))
	return err
}

func (r *captionRepository) Create(ctx context.Context, caption *models.Caption) error {
	defer r.metrics.TrackQuery("create")()

	if err := r.db.WithContext(ctx).Create(caption).Error; err != nil {
		if database.IsForeignKeyViolation(err) {
			return r.fail(ctx, "create", models.NewUnauthorizedError("Unknown identity"))
		}
		return r.fail(ctx, "create", err)
	}
	// A new caption has no likes yet.
	caption.LikeCount = 0
	caption.LikedByMe = false
	r.log.LogCreate(ctx, map[string]interface{}{"caption_id": caption.ID.String()})
	return nil
}

// withDetails selects the live like count and, for a known viewer, whether
// the viewer liked each caption. The count is read in the same statement as
// the row, so it always matches the likes table.
func withDetails(db *gorm.DB, viewerID *uuid.UUID) *gorm.DB {
	selectQuery := "captions.*, " +
		"(SELECT COUNT(*) FROM likes WHERE likes.caption_id = captions.id) AS like_count"

	if viewerID != nil {
		return db.Select(selectQuery+", EXISTS(SELECT 1 FROM likes WHERE likes.caption_id = captions.id AND likes.user_id = ?) AS liked_by_me", *viewerID)
	}

	return db.Select(selectQuery + ", false AS liked_by_me")
}

func (r *captionRepository) GetByID(ctx context.Context, id uuid.UUID, viewerID *uuid.UUID) (*models.Caption, error) {
	defer r.metrics.TrackQuery("get")()

	var caption models.Caption
	err := withDetails(r.db.WithContext(ctx).Model(&models.Caption{}), viewerID).
		Where("captions.id = ?", id).
		Take(&caption).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Caption", id)
		}
		return nil, r.fail(ctx, "get", err)
	}
	return &caption, nil
}

// List returns captions ordered by like count, newest first among equal counts.
func (r *captionRepository) List(ctx context.Context, filter CaptionFilter) (_ []models.Caption, err error) {
	ctx, span := observability.StartRepositorySpan(ctx, "List", "captions")
	defer func() { observability.EndSpan(span, err) }()
	defer r.metrics.TrackQuery("list")()

	q := withDetails(r.db.WithContext(ctx).Model(&models.Caption{}), filter.ViewerID)
	if filter.Department != "" {
		q = q.Where("captions.department = ?", filter.Department)
	}
	q = q.Order("like_count DESC, captions.created_at DESC, captions.id DESC")
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		q = q.Offset(filter.Offset)
	}

	captions := make([]models.Caption, 0)
	if findErr := q.Find(&captions).Error; findErr != nil {
		return nil, r.fail(ctx, "list", findErr)
	}
	r.log.LogRead(ctx, map[string]interface{}{"count": len(captions)})
	return captions, nil
}

func (r *captionRepository) Update(ctx context.Context, caption *models.Caption) error {
	defer r.metrics.TrackQuery("update")()

	result := r.db.WithContext(ctx).
		Model(caption).
		Select("caption_text", "author_name", "department", "updated_at").
		Updates(caption)
	if result.Error != nil {
		return r.fail(ctx, "update", result.Error)
	}
	if result.RowsAffected == 0 {
		return models.NewNotFoundError("Caption", caption.ID)
	}
	r.log.LogUpdate(ctx, map[string]interface{}{"caption_id": caption.ID.String()})
	return nil
}

// Delete removes the caption; its likes go with it through ON DELETE CASCADE.
func (r *captionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	defer r.metrics.TrackQuery("delete")()

	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Caption{})
	if result.Error != nil {
		return r.fail(ctx, "delete", result.Error)
	}
	if result.RowsAffected == 0 {
		return models.NewNotFoundError("Caption", id)
	}
	r.log.LogDelete(ctx, map[string]interface{}{"caption_id": id.String()})
	return nil
}

func (r *captionRepository) CountByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	defer r.metrics.TrackQuery("count_by_user")()

	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.Caption{}).
		Where("user_id = ?", userID).
		Count(&count).Error; err != nil {
		return 0, r.fail(ctx, "count_by_user", err)
	}
	return count, nil
}

func countLikes(db *gorm.DB, captionID uuid.UUID) (int64, error) {
	var count int64
	err := db.Model(&models.Like{}).Where("caption_id = ?", captionID).Count(&count).Error
	return count, err
}

func (r *captionRepository) LikeCount(ctx context.Context, captionID uuid.UUID) (int64, error) {
	count, err := countLikes(r.db.WithContext(ctx), captionID)
	if err != nil {
		return 0, r.fail(ctx, "like_count", err)
	}
	return count, nil
}

func (r *captionRepository) LikedCaptionIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	defer r.metrics.TrackQuery("liked_ids")()

	ids := make([]uuid.UUID, 0)
	if err := r.db.WithContext(ctx).
		Model(&models.Like{}).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Pluck("caption_id", &ids).Error; err != nil {
		return nil, r.fail(ctx, "liked_ids", err)
	}
	return ids, nil
}

// Like inserts the (caption, user) pair. Uniqueness is decided by the
// idx_likes_caption_user index inside the INSERT itself, so concurrent
// duplicates leave exactly one row and the others report Inserted=false.
func (r *captionRepository) Like(ctx context.Context, userID, captionID uuid.UUID) (_ LikeOutcome, err error) {
	ctx, span := observability.StartRepositorySpan(ctx, "Like", "likes")
	defer func() { observability.EndSpan(span, err) }()
	defer r.metrics.TrackQuery("like")()

	var out LikeOutcome
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var exists int64
		if err := tx.Model(&models.Caption{}).Where("id = ?", captionID).Count(&exists).Error; err != nil {
			return err
		}
		if exists == 0 {
			return models.NewNotFoundError("Caption", captionID)
		}
		if err := tx.Model(&models.User{}).Where("id = ?", userID).Count(&exists).Error; err != nil {
			return err
		}
		if exists == 0 {
			return models.NewUnauthorizedError("Unknown identity")
		}

		result := tx.Exec(
			`INSERT INTO likes (id, caption_id, user_id, created_at)
			 VALUES (?, ?, ?, ?)
			 ON CONFLICT (caption_id, user_id) DO NOTHING`,
			uuid.New(), captionID, userID, tx.NowFunc(),
		)
		if result.Error != nil {
			if database.IsForeignKeyViolation(result.Error) {
				// The caption or the identity was deleted after the checks above.
				return models.NewConflictError("Caption or identity was removed concurrently", result.Error)
			}
			return result.Error
		}
		out.Inserted = result.RowsAffected > 0

		count, err := countLikes(tx, captionID)
		if err != nil {
			return err
		}
		out.LikeCount = count
		return nil
	})
	if err != nil {
		switch models.ErrorCode(err) {
		case models.CodeNotFound, models.CodeUnauthorized:
			return LikeOutcome{}, err
		}
		return LikeOutcome{}, r.fail(ctx, "like", err)
	}

	r.log.LogCreate(ctx, map[string]interface{}{
		"caption_id": captionID.String(),
		"inserted":   out.Inserted,
	})
	return out, nil
}

// Unlike hard-deletes the pair if present and returns the resulting count.
// Removing a like that does not exist is not an error; Removed reports
// whether a row went away.
func (r *captionRepository) Unlike(ctx context.Context, userID, captionID uuid.UUID) (UnlikeOutcome, error) {
	defer r.metrics.TrackQuery("unlike")()

	var out UnlikeOutcome
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Where("caption_id = ? AND user_id = ?", captionID, userID).Delete(&models.Like{})
		if result.Error != nil {
			return result.Error
		}
		out.Removed = result.RowsAffected > 0

		var err error
		out.LikeCount, err = countLikes(tx, captionID)
		return err
	})
	if err != nil {
		return UnlikeOutcome{}, r.fail(ctx, "unlike", err)
	}
	r.log.LogDelete(ctx, map[string]interface{}{
		"caption_id": captionID.String(),
		"removed":    out.Removed,
	})
	return out, nil
}
