package service

import (
	"context"
	"strings"

	"captionboard/internal/models"
	"captionboard/internal/observability"
	"captionboard/internal/repository"
	"captionboard/internal/validation"

	"github.com/google/uuid"
)

// ProfileService owns the identity mirror and profile metadata.
type ProfileService struct {
	userRepo    repository.UserRepository
	profileRepo repository.ProfileRepository
}

// EnsureProfileInput carries the fields used when a profile is first created.
type EnsureProfileInput struct {
	UserID     uuid.UUID
	Email      string
	FullName   string
	Department string
	Year       int
	StudentID  string
}

// UpdateProfileInput replaces the editable profile fields.
type UpdateProfileInput struct {
	UserID     uuid.UUID
	FullName   string
	Department string
	Year       int
	StudentID  string
}

func NewProfileService(userRepo repository.UserRepository, profileRepo repository.ProfileRepository) *ProfileService {
	return &ProfileService{userRepo: userRepo, profileRepo: profileRepo}
}

// EnsureIdentity records the token subject locally, refreshing its email.
func (s *ProfileService) EnsureIdentity(ctx context.Context, userID uuid.UUID, email string) error {
	if userID == uuid.Nil {
		return models.NewUnauthorizedError("Authentication required")
	}
	return s.userRepo.Upsert(ctx, &models.User{ID: userID, Email: strings.TrimSpace(email)})
}

type profileFields struct {
	fullName   string
	department models.Department
	year       int
	studentID  string
}

func validateProfileFields(fullName, department string, year int, studentID string) (profileFields, error) {
	var out profileFields
	var err error
	if out.fullName, err = validation.AuthorName(fullName); err != nil {
		return out, models.NewValidationError(err.Error())
	}
	if out.department, err = validation.Department(department); err != nil {
		return out, models.NewValidationError(err.Error())
	}
	if err = validation.Year(year); err != nil {
		return out, models.NewValidationError(err.Error())
	}
	out.year = year
	if out.studentID, err = validation.StudentID(studentID); err != nil {
		return out, models.NewValidationError(err.Error())
	}
	return out, nil
}

// EnsureProfile creates the profile if it does not exist yet and returns the
// stored row. An existing profile is left untouched.
func (s *ProfileService) EnsureProfile(ctx context.Context, in EnsureProfileInput) (*models.Profile, bool, error) {
	ctx, span := observability.StartServiceSpan(ctx, "ProfileService", "EnsureProfile")
	var err error
	defer func() { observability.EndSpan(span, err) }()

	if in.UserID == uuid.Nil {
		err = models.NewUnauthorizedError("Authentication required")
		return nil, false, err
	}
	fields, err := validateProfileFields(in.FullName, in.Department, in.Year, in.StudentID)
	if err != nil {
		return nil, false, err
	}

	created, err := s.profileRepo.CreateIfAbsent(ctx, &models.Profile{
		ID:         in.UserID,
		Email:      strings.TrimSpace(in.Email),
		FullName:   fields.fullName,
		Department: fields.department,
		Year:       fields.year,
		StudentID:  fields.studentID,
	})
	if err != nil {
		return nil, false, err
	}

	profile, err := s.profileRepo.GetByID(ctx, in.UserID)
	if err != nil {
		return nil, false, err
	}
	return profile, created, nil
}

func (s *ProfileService) GetProfile(ctx context.Context, userID uuid.UUID) (*models.Profile, error) {
	if userID == uuid.Nil {
		return nil, models.NewUnauthorizedError("Authentication required")
	}
	return s.profileRepo.GetByID(ctx, userID)
}

func (s *ProfileService) UpdateProfile(ctx context.Context, in UpdateProfileInput) (*models.Profile, error) {
	if in.UserID == uuid.Nil {
		return nil, models.NewUnauthorizedError("Authentication required")
	}
	fields, err := validateProfileFields(in.FullName, in.Department, in.Year, in.StudentID)
	if err != nil {
		return nil, err
	}

	profile, err := s.profileRepo.GetByID(ctx, in.UserID)
	if err != nil {
		return nil, err
	}
	profile.FullName = fields.fullName
	profile.Department = fields.department
	profile.Year = fields.year
	profile.StudentID = fields.studentID

	if err := s.profileRepo.Update(ctx, profile); err != nil {
		return nil, err
	}
	return s.profileRepo.GetByID(ctx, in.UserID)
}

// DeleteIdentity removes the identity. Its likes and profile cascade and its
// captions stay on the feed without an owner.
func (s *ProfileService) DeleteIdentity(ctx context.Context, userID uuid.UUID) error {
	if userID == uuid.Nil {
		return models.NewUnauthorizedError("Authentication required")
	}
	if err := s.userRepo.Delete(ctx, userID); err != nil {
		return err
	}
	observability.FromContext(ctx).Info("identity deleted")
	return nil
}
