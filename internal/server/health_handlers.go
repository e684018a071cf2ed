package server

import (
	"context"
	"time"

	"captionboard/internal/database"

	"github.com/gofiber/fiber/v2"
)

const migrateHint = "run `migrate up` to initialize the database"

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness probe requests. The API is ready when the
// database answers and every required table exists. Redis is optional.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	checks := fiber.Map{}
	ready := true

	dbStatus := "healthy"
	if err := database.Ping(ctx, s.db); err != nil {
		dbStatus = "unhealthy"
		ready = false
	}
	checks["database"] = dbStatus

	if dbStatus == "healthy" {
		schema := fiber.Map{"status": "ready"}
		status, err := database.GetSchemaStatus(ctx, s.db, s.config)
		switch {
		case err != nil:
			schema["status"] = "unknown"
			schema["error"] = err.Error()
			ready = false
		case !status.Ready():
			schema["status"] = "missing_tables"
			schema["missing_tables"] = status.MissingTables
			schema["hint"] = migrateHint
			ready = false
		}
		if err == nil {
			schema["mode"] = status.Mode
			schema["dialect"] = status.Dialect
			if pending := status.PendingNames(); len(pending) > 0 {
				schema["pending_migrations"] = pending
			}
		}
		checks["schema"] = schema
	}

	redisStatus := "disabled"
	if s.redis != nil {
		redisStatus = "healthy"
		if err := s.redis.Ping(ctx).Err(); err != nil {
			// Rate limits and the profile cache degrade gracefully.
			redisStatus = "degraded"
		}
	}
	checks["redis"] = redisStatus
	checks["feed_clients"] = s.hub.Count()

	status := fiber.StatusOK
	overall := "healthy"
	if !ready {
		status = fiber.StatusServiceUnavailable
		overall = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overall,
		"checks": checks,
		"time":   time.Now(),
	})
}
