package service

import (
	"context"
	"time"

	"captionboard/internal/models"
	"captionboard/internal/observability"
	"captionboard/internal/repository"
	"captionboard/internal/validation"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type CaptionService struct {
	captionRepo repository.CaptionRepository
	profiles    *ProfileService
}

type CreateCaptionInput struct {
	UserID     *uuid.UUID
	Email      string
	Text       string
	AuthorName string
	Department string
	// Year and StudentID only seed the profile.
	Year      int
	StudentID string
}

// CreateCaptionResult is the stored caption plus the outcome of the profile
// side effect. ProfileError is set when the profile could not be ensured; the
// caption was still stored.
type CreateCaptionResult struct {
	Caption        *models.Caption
	ProfileCreated bool
	ProfileError   error
}

type ListCaptionsInput struct {
	ViewerID   *uuid.UUID
	Department string
	Limit      int
	Offset     int
}

type UpdateCaptionInput struct {
	UserID     *uuid.UUID
	CaptionID  uuid.UUID
	Text       *string
	AuthorName *string
	Department *string
}

// LikeResult is the state of a caption's likes after a like or unlike.
type LikeResult struct {
	CaptionID    uuid.UUID `json:"caption_id"`
	LikeCount    int64     `json:"like_count"`
	AlreadyLiked bool      `json:"already_liked"`
	// Removed is set by Unlike when a like actually went away.
	Removed bool `json:"-"`
}

func NewCaptionService(captionRepo repository.CaptionRepository, profiles *ProfileService) *CaptionService {
	return &CaptionService{captionRepo: captionRepo, profiles: profiles}
}

func requireUser(userID *uuid.UUID) (uuid.UUID, error) {
	if userID == nil || *userID == uuid.Nil {
		return uuid.Nil, models.NewUnauthorizedError("Authentication required")
	}
	return *userID, nil
}

func (s *CaptionService) CreateCaption(ctx context.Context, in CreateCaptionInput) (*CreateCaptionResult, error) {
	ctx, span := observability.StartServiceSpan(ctx, "CaptionService", "CreateCaption")
	var err error
	defer func() { observability.EndSpan(span, err) }()

	userID, err := requireUser(in.UserID)
	if err != nil {
		return nil, err
	}

	text, err := validation.CaptionText(in.Text)
	if err != nil {
		err = models.NewValidationError(err.Error())
		return nil, err
	}
	author, err := validation.AuthorName(in.AuthorName)
	if err != nil {
		err = models.NewValidationError(err.Error())
		return nil, err
	}
	department, err := validation.Department(in.Department)
	if err != nil {
		err = models.NewValidationError(err.Error())
		return nil, err
	}
	if err = validation.Year(in.Year); err != nil {
		err = models.NewValidationError(err.Error())
		return nil, err
	}
	if _, err = validation.StudentID(in.StudentID); err != nil {
		err = models.NewValidationError(err.Error())
		return nil, err
	}

	if err = s.profiles.EnsureIdentity(ctx, userID, in.Email); err != nil {
		return nil, err
	}

	result := &CreateCaptionResult{}
	_, created, profileErr := s.profiles.EnsureProfile(ctx, EnsureProfileInput{
		UserID:     userID,
		Email:      in.Email,
		FullName:   author,
		Department: string(department),
		Year:       in.Year,
		StudentID:  in.StudentID,
	})
	if profileErr != nil {
		observability.ProfileEnsureFailures.Inc()
		observability.FromContext(ctx).Warn("profile ensure failed during caption submission",
			zap.String("user_id", userID.String()),
			zap.Error(profileErr),
		)
		result.ProfileError = profileErr
	}
	result.ProfileCreated = created

	caption := &models.Caption{
		CaptionText: text,
		AuthorName:  author,
		Department:  department,
		UserID:      &userID,
	}
	if err = s.captionRepo.Create(ctx, caption); err != nil {
		return nil, err
	}
	observability.CaptionsCreated.WithLabelValues(string(department)).Inc()

	result.Caption = caption
	return result, nil
}

func (s *CaptionService) ListCaptions(ctx context.Context, in ListCaptionsInput) ([]models.Caption, error) {
	filter := repository.CaptionFilter{
		Limit:    in.Limit,
		Offset:   in.Offset,
		ViewerID: in.ViewerID,
	}
	if in.Limit < 0 || in.Offset < 0 {
		return nil, models.NewValidationError("limit and offset must not be negative")
	}
	if in.Department != "" {
		department, err := validation.Department(in.Department)
		if err != nil {
			return nil, models.NewValidationError(err.Error())
		}
		filter.Department = department
	}

	captions, err := s.captionRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	if captions == nil {
		captions = []models.Caption{}
	}
	return captions, nil
}

func (s *CaptionService) GetCaption(ctx context.Context, id uuid.UUID, viewerID *uuid.UUID) (*models.Caption, error) {
	return s.captionRepo.GetByID(ctx, id, viewerID)
}

// LikesByUser returns the set of captions userID has liked. A nil user has
// liked nothing.
func (s *CaptionService) LikesByUser(ctx context.Context, userID *uuid.UUID) (map[uuid.UUID]struct{}, error) {
	set := make(map[uuid.UUID]struct{})
	if userID == nil || *userID == uuid.Nil {
		return set, nil
	}
	ids, err := s.captionRepo.LikedCaptionIDs(ctx, *userID)
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set, nil
}

// Like records userID's like on captionID. When the like already existed the
// result is still returned, together with a CONFLICT error.
func (s *CaptionService) Like(ctx context.Context, userID *uuid.UUID, captionID uuid.UUID) (*LikeResult, error) {
	ctx, span := observability.StartServiceSpan(ctx, "CaptionService", "Like")
	var err error
	defer func() { observability.EndSpan(span, err) }()

	uid, err := requireUser(userID)
	if err != nil {
		return nil, err
	}

	out, err := s.captionRepo.Like(ctx, uid, captionID)
	if err != nil {
		observability.LikeOperations.WithLabelValues("like", models.ErrorCode(err)).Inc()
		return nil, err
	}

	result := &LikeResult{CaptionID: captionID, LikeCount: out.LikeCount, AlreadyLiked: !out.Inserted}
	if !out.Inserted {
		observability.LikeOperations.WithLabelValues("like", "duplicate").Inc()
		return result, models.NewConflictError("Caption already liked", nil)
	}
	observability.LikeOperations.WithLabelValues("like", "ok").Inc()
	return result, nil
}

// Unlike removes userID's like if present. Unliking twice is not an error.
func (s *CaptionService) Unlike(ctx context.Context, userID *uuid.UUID, captionID uuid.UUID) (*LikeResult, error) {
	uid, err := requireUser(userID)
	if err != nil {
		return nil, err
	}

	out, err := s.captionRepo.Unlike(ctx, uid, captionID)
	if err != nil {
		observability.LikeOperations.WithLabelValues("unlike", models.ErrorCode(err)).Inc()
		return nil, err
	}
	outcome := "ok"
	if !out.Removed {
		outcome = "noop"
	}
	observability.LikeOperations.WithLabelValues("unlike", outcome).Inc()
	return &LikeResult{CaptionID: captionID, LikeCount: out.LikeCount, Removed: out.Removed}, nil
}

func (s *CaptionService) CountCaptionsBy(ctx context.Context, userID *uuid.UUID) (int64, error) {
	uid, err := requireUser(userID)
	if err != nil {
		return 0, err
	}
	return s.captionRepo.CountByUser(ctx, uid)
}

// loadOwned fetches the caption and checks that userID authored it.
func (s *CaptionService) loadOwned(ctx context.Context, userID *uuid.UUID, captionID uuid.UUID) (*models.Caption, error) {
	uid, err := requireUser(userID)
	if err != nil {
		return nil, err
	}
	caption, err := s.captionRepo.GetByID(ctx, captionID, &uid)
	if err != nil {
		return nil, err
	}
	if !caption.IsOwnedBy(uid) {
		return nil, models.NewForbiddenError("Only the author can modify this caption")
	}
	return caption, nil
}

func (s *CaptionService) UpdateCaption(ctx context.Context, in UpdateCaptionInput) (*models.Caption, error) {
	if _, err := requireUser(in.UserID); err != nil {
		return nil, err
	}
	if in.Text == nil && in.AuthorName == nil && in.Department == nil {
		return nil, models.NewValidationError("Nothing to update")
	}

	var text, author string
	var department models.Department
	var err error
	if in.Text != nil {
		if text, err = validation.CaptionText(*in.Text); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
	}
	if in.AuthorName != nil {
		if author, err = validation.AuthorName(*in.AuthorName); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
	}
	if in.Department != nil {
		if department, err = validation.Department(*in.Department); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
	}

	caption, err := s.loadOwned(ctx, in.UserID, in.CaptionID)
	if err != nil {
		return nil, err
	}
	if in.Text != nil {
		caption.CaptionText = text
	}
	if in.AuthorName != nil {
		caption.AuthorName = author
	}
	if in.Department != nil {
		caption.Department = department
	}
	caption.UpdatedAt = time.Now().UTC()

	if err := s.captionRepo.Update(ctx, caption); err != nil {
		return nil, err
	}
	return s.captionRepo.GetByID(ctx, caption.ID, in.UserID)
}

func (s *CaptionService) DeleteCaption(ctx context.Context, userID *uuid.UUID, captionID uuid.UUID) error {
	if _, err := s.loadOwned(ctx, userID, captionID); err != nil {
		return err
	}
	return s.captionRepo.Delete(ctx, captionID)
}
