package server

import (
	"errors"
	"strconv"

	"captionboard/internal/models"
	"captionboard/internal/observability"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// errResponseWritten is a sentinel indicating the HTTP response was already
// committed by a helper. Handlers must return nil (not this error) to avoid
// Fiber's ErrorHandler overwriting the response.
var errResponseWritten = errors.New("response already written")

// Pagination holds parsed limit/offset query parameters.
type Pagination struct {
	Limit  int
	Offset int
}

const maxPaginationLimit = 100

// parsePagination reads limit and offset. A missing limit means the whole
// feed; larger limits are capped at maxPaginationLimit. Values that are not
// non-negative integers write a 400 and return errResponseWritten.
func parsePagination(c *fiber.Ctx) (Pagination, error) {
	var page Pagination
	for _, q := range []struct {
		name string
		dst  *int
	}{
		{"limit", &page.Limit},
		{"offset", &page.Offset},
	} {
		raw := c.Query(q.name)
		if raw == "" {
			continue
		}
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			_ = respondError(c, models.NewValidationError(q.name+" must be a non-negative integer"))
			return Pagination{}, errResponseWritten
		}
		*q.dst = v
	}
	if page.Limit > maxPaginationLimit {
		page.Limit = maxPaginationLimit
	}
	return page, nil
}

// parseUUID extracts a route parameter as a UUID.
// On failure it writes a 400 JSON response and returns errResponseWritten.
func parseUUID(c *fiber.Ctx, param string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params(param))
	if err != nil || id == uuid.Nil {
		_ = respondError(c, models.NewValidationError("Invalid "+param))
		return uuid.Nil, errResponseWritten
	}
	return id, nil
}

// parseBody decodes the JSON body into dst, writing a 400 on failure.
func parseBody(c *fiber.Ctx, dst interface{}) error {
	if err := c.BodyParser(dst); err != nil {
		_ = respondError(c, models.NewValidationError("Invalid request body"))
		return errResponseWritten
	}
	return nil
}

// respondError writes err with the status implied by its AppError code.
// Errors without a code are treated as internal.
func respondError(c *fiber.Ctx, err error) error {
	if models.ErrorCode(err) == "" {
		err = models.NewInternalError(err)
	}
	if models.IsCode(err, models.CodeInternal) {
		observability.FromContext(c.UserContext()).Error("request failed",
			zap.String("path", c.Path()), zap.Error(err))
	}
	return models.RespondWithAppError(c, err)
}
