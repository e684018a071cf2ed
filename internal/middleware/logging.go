package middleware

import (
	"time"

	"captionboard/internal/observability"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ContextMiddleware copies the request ID, user ID and trace ID from Fiber
// locals into the request context so deeper layers log them.
func ContextMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := c.UserContext()

		if rid, ok := c.Locals("requestid").(string); ok && rid != "" {
			ctx = observability.WithRequestID(ctx, rid)
		}
		if uid, ok := c.Locals(LocalUserID).(uuid.UUID); ok {
			ctx = observability.WithUserID(ctx, uid.String())
		}
		if tid, ok := c.Locals("traceID").(string); ok && tid != "" {
			ctx = observability.WithTraceID(ctx, tid)
		}

		c.SetUserContext(ctx)
		return c.Next()
	}
}

// RequestLogger logs one line per request after it has been handled.
func RequestLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		status := c.Response().StatusCode()
		fields := []zap.Field{
			zap.Int("status", status),
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.String("ip", c.IP()),
			zap.Duration("latency", time.Since(start)),
			zap.String("user_agent", c.Get(fiber.HeaderUserAgent)),
		}
		if uid, ok := c.Locals(LocalUserID).(uuid.UUID); ok {
			fields = append(fields, zap.String("user_id", uid.String()))
		}

		log := observability.FromContext(c.UserContext())
		switch {
		case err != nil:
			log.Error("request failed", append(fields, zap.Error(err))...)
		case status >= fiber.StatusInternalServerError:
			log.Error("request processed", fields...)
		default:
			log.Info("request processed", fields...)
		}
		return err
	}
}
