package server

import (
	"captionboard/internal/middleware"
	"captionboard/internal/models"
	"captionboard/internal/observability"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// FeedWebsocketUpgrade rejects plain HTTP requests to the feed socket.
func (s *Server) FeedWebsocketUpgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return models.RespondWithError(c, fiber.StatusUpgradeRequired,
			models.NewValidationError("WebSocket upgrade required"))
	}
	return c.Next()
}

// FeedWebsocketHandler streams feed events to the connected client until it
// disconnects or the hub shuts down.
func (s *Server) FeedWebsocketHandler() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		// Locals set by OptionalAuth are copied onto the connection.
		var userID *uuid.UUID
		if uid, ok := conn.Locals(middleware.LocalUserID).(uuid.UUID); ok {
			userID = &uid
		}

		client, err := s.hub.Register(conn, userID)
		if err != nil {
			observability.GlobalLogger.Warn("feed websocket rejected", zap.Error(err))
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"`+err.Error()+`"}`))
			_ = conn.Close()
			return
		}

		// Blocks until the read pump ends.
		s.hub.Serve(client)
	})
}
