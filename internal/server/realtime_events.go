package server

import (
	"context"
	"encoding/json"
	"time"

	"captionboard/internal/models"
	"captionboard/internal/observability"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Event type constants prevent typos in event names.
const (
	EventCaptionCreated     = "caption_created"
	EventCaptionUpdated     = "caption_updated"
	EventCaptionLikeUpdated = "caption_like_updated"
	EventCaptionDeleted     = "caption_deleted"
)

// FeedEvent is the envelope written to feed websocket clients.
type FeedEvent struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
	SentAt  time.Time   `json:"sent_at"`
}

// publishFeedEvent delivers an event to every feed viewer. Once the hub is
// wired to Redis the event goes through Redis only, and each instance's
// subscriber rebroadcasts it locally.
func (s *Server) publishFeedEvent(ctx context.Context, eventType string, payload interface{}) {
	log := observability.FromContext(ctx)

	message, err := json.Marshal(FeedEvent{Type: eventType, Payload: payload, SentAt: time.Now().UTC()})
	if err != nil {
		log.Error("failed to marshal feed event", zap.String("event_type", eventType), zap.Error(err))
		return
	}
	observability.WebSocketEventsTotal.WithLabelValues(eventType).Inc()

	if s.notifier.Enabled() {
		// Publishing must outlive the request that triggered it.
		pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		err := s.notifier.PublishFeed(pubCtx, message)
		if err == nil {
			return
		}
		log.Warn("failed to publish feed event; broadcasting locally",
			zap.String("event_type", eventType), zap.Error(err))
	}
	if s.hub != nil {
		s.hub.Broadcast(message)
	}
}

func captionEventPayload(c *models.Caption) map[string]interface{} {
	return map[string]interface{}{
		"id":           c.ID,
		"caption_text": c.CaptionText,
		"author_name":  c.AuthorName,
		"department":   c.Department,
		"like_count":   c.LikeCount,
		"created_at":   c.CreatedAt,
		"updated_at":   c.UpdatedAt,
	}
}

func likeEventPayload(captionID uuid.UUID, likeCount int64) map[string]interface{} {
	return map[string]interface{}{
		"caption_id": captionID,
		"like_count": likeCount,
	}
}
