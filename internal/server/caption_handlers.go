package server

import (
	"sort"

	"captionboard/internal/middleware"
	"captionboard/internal/models"
	"captionboard/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type createCaptionRequest struct {
	CaptionText string `json:"caption_text"`
	AuthorName  string `json:"author_name"`
	Department  string `json:"department"`
	Year        int    `json:"year"`
	StudentID   string `json:"student_id"`
}

type createCaptionResponse struct {
	Caption        *models.Caption `json:"caption"`
	ProfileCreated bool            `json:"profile_created"`
	ProfileError   string          `json:"profile_error,omitempty"`
}

type updateCaptionRequest struct {
	CaptionText *string `json:"caption_text"`
	AuthorName  *string `json:"author_name"`
	Department  *string `json:"department"`
}

// GetDepartments handles GET /api/departments
func (s *Server) GetDepartments(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"departments": models.Departments(),
		"year_min":    models.MinYear,
		"year_max":    models.MaxYear,
	})
}

// GetCaptions handles GET /api/captions
func (s *Server) GetCaptions(c *fiber.Ctx) error {
	page, err := parsePagination(c)
	if err != nil {
		return nil
	}

	captions, err := s.captionService.ListCaptions(c.UserContext(), service.ListCaptionsInput{
		ViewerID:   middleware.UserID(c),
		Department: c.Query("department"),
		Limit:      page.Limit,
		Offset:     page.Offset,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(captions)
}

// GetCaption handles GET /api/captions/:id
func (s *Server) GetCaption(c *fiber.Ctx) error {
	id, err := parseUUID(c, "id")
	if err != nil {
		return nil
	}

	caption, err := s.captionService.GetCaption(c.UserContext(), id, middleware.UserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(caption)
}

// CreateCaption handles POST /api/captions
func (s *Server) CreateCaption(c *fiber.Ctx) error {
	ctx := c.UserContext()

	var req createCaptionRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	result, err := s.captionService.CreateCaption(ctx, service.CreateCaptionInput{
		UserID:     middleware.UserID(c),
		Email:      middleware.Email(c),
		Text:       req.CaptionText,
		AuthorName: req.AuthorName,
		Department: req.Department,
		Year:       req.Year,
		StudentID:  req.StudentID,
	})
	if err != nil {
		return respondError(c, err)
	}

	s.publishFeedEvent(ctx, EventCaptionCreated, captionEventPayload(result.Caption))

	resp := createCaptionResponse{
		Caption:        result.Caption,
		ProfileCreated: result.ProfileCreated,
	}
	if result.ProfileError != nil {
		resp.ProfileError = "Profile could not be saved; the caption was still submitted"
	}
	return c.Status(fiber.StatusCreated).JSON(resp)
}

// UpdateCaption handles PUT /api/captions/:id
func (s *Server) UpdateCaption(c *fiber.Ctx) error {
	ctx := c.UserContext()
	id, err := parseUUID(c, "id")
	if err != nil {
		return nil
	}

	var req updateCaptionRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	caption, err := s.captionService.UpdateCaption(ctx, service.UpdateCaptionInput{
		UserID:     middleware.UserID(c),
		CaptionID:  id,
		Text:       req.CaptionText,
		AuthorName: req.AuthorName,
		Department: req.Department,
	})
	if err != nil {
		return respondError(c, err)
	}

	s.publishFeedEvent(ctx, EventCaptionUpdated, captionEventPayload(caption))
	return c.JSON(caption)
}

// DeleteCaption handles DELETE /api/captions/:id
func (s *Server) DeleteCaption(c *fiber.Ctx) error {
	ctx := c.UserContext()
	id, err := parseUUID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.captionService.DeleteCaption(ctx, middleware.UserID(c), id); err != nil {
		return respondError(c, err)
	}

	s.publishFeedEvent(ctx, EventCaptionDeleted, fiber.Map{"id": id})
	return c.SendStatus(fiber.StatusNoContent)
}

// LikeCaption handles POST /api/captions/:id/like. Liking twice is not an
// error for the client: the response reports already_liked instead.
func (s *Server) LikeCaption(c *fiber.Ctx) error {
	ctx := c.UserContext()
	id, err := parseUUID(c, "id")
	if err != nil {
		return nil
	}

	result, err := s.captionService.Like(ctx, middleware.UserID(c), id)
	if err != nil {
		if result != nil && models.IsCode(err, models.CodeConflict) {
			return c.JSON(result)
		}
		return respondError(c, err)
	}

	s.publishFeedEvent(ctx, EventCaptionLikeUpdated, likeEventPayload(id, result.LikeCount))
	return c.JSON(result)
}

// UnlikeCaption handles DELETE /api/captions/:id/like
func (s *Server) UnlikeCaption(c *fiber.Ctx) error {
	ctx := c.UserContext()
	id, err := parseUUID(c, "id")
	if err != nil {
		return nil
	}

	result, err := s.captionService.Unlike(ctx, middleware.UserID(c), id)
	if err != nil {
		return respondError(c, err)
	}

	if result.Removed {
		s.publishFeedEvent(ctx, EventCaptionLikeUpdated, likeEventPayload(id, result.LikeCount))
	}
	return c.JSON(result)
}

// GetMyLikes handles GET /api/me/likes
func (s *Server) GetMyLikes(c *fiber.Ctx) error {
	liked, err := s.captionService.LikesByUser(c.UserContext(), middleware.UserID(c))
	if err != nil {
		return respondError(c, err)
	}

	ids := make([]uuid.UUID, 0, len(liked))
	for id := range liked {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })

	return c.JSON(fiber.Map{"caption_ids": ids})
}

// GetMyCaptionCount handles GET /api/me/captions/count
func (s *Server) GetMyCaptionCount(c *fiber.Ctx) error {
	count, err := s.captionService.CountCaptionsBy(c.UserContext(), middleware.UserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"count": count})
}
