package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"captionboard/internal/observability"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContextMiddleware_PropagatesRequestFields(t *testing.T) {
	userID := uuid.New()

	app := fiber.New()
	app.Use(requestid.New())
	app.Use(func(c *fiber.Ctx) error {
		c.Locals(LocalUserID, userID)
		return c.Next()
	})
	app.Use(ContextMiddleware())
	app.Use(RequestLogger())
	app.Get("/", func(c *fiber.Ctx) error {
		ctx := c.UserContext()
		return c.JSON(fiber.Map{
			"request_id": observability.ExtractRequestID(ctx),
			"fields":     len(observability.ContextFields(ctx)),
		})
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(fiber.HeaderXRequestID, "req-42")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `"request_id":"req-42"`)
	assert.Contains(t, string(body), `"fields":2`)
}
