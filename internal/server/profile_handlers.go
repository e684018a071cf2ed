package server

import (
	"captionboard/internal/middleware"
	"captionboard/internal/models"
	"captionboard/internal/service"

	"github.com/gofiber/fiber/v2"
)

type profileRequest struct {
	FullName   string `json:"full_name"`
	Department string `json:"department"`
	Year       int    `json:"year"`
	StudentID  string `json:"student_id"`
}

// currentUser returns the authenticated identity or writes a 401.
func currentUser(c *fiber.Ctx) (*models.User, error) {
	uid := middleware.UserID(c)
	if uid == nil {
		_ = respondError(c, models.NewUnauthorizedError("Authentication required"))
		return nil, errResponseWritten
	}
	return &models.User{ID: *uid, Email: middleware.Email(c)}, nil
}

// GetMyProfile handles GET /api/me/profile
func (s *Server) GetMyProfile(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return nil
	}

	profile, err := s.profileService.GetProfile(c.UserContext(), user.ID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(profile)
}

// UpdateMyProfile handles PUT /api/me/profile. The profile is created on the
// first call and replaced on later ones.
func (s *Server) UpdateMyProfile(c *fiber.Ctx) error {
	ctx := c.UserContext()
	user, err := currentUser(c)
	if err != nil {
		return nil
	}

	var req profileRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	if err := s.profileService.EnsureIdentity(ctx, user.ID, user.Email); err != nil {
		return respondError(c, err)
	}

	profile, created, err := s.profileService.EnsureProfile(ctx, service.EnsureProfileInput{
		UserID:     user.ID,
		Email:      user.Email,
		FullName:   req.FullName,
		Department: req.Department,
		Year:       req.Year,
		StudentID:  req.StudentID,
	})
	if err != nil {
		return respondError(c, err)
	}
	if created {
		return c.Status(fiber.StatusCreated).JSON(profile)
	}

	profile, err = s.profileService.UpdateProfile(ctx, service.UpdateProfileInput{
		UserID:     user.ID,
		FullName:   req.FullName,
		Department: req.Department,
		Year:       req.Year,
		StudentID:  req.StudentID,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(profile)
}

// DeleteMe handles DELETE /api/me. Captions stay on the feed without an owner.
func (s *Server) DeleteMe(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return nil
	}

	if err := s.profileService.DeleteIdentity(c.UserContext(), user.ID); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
