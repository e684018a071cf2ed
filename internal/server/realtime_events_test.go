package server

import (
	"context"
	"net/http"
	"testing"
	"time"

	"captionboard/internal/testutil"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// attachViewer registers a feed connection and serves it until the test ends.
func attachViewer(t *testing.T, ts *testServer) *recordingConn {
	t.Helper()
	conn := newRecordingConn()
	client, err := ts.hub.Register(conn, nil)
	require.NoError(t, err)
	go ts.hub.Serve(client)

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		assert.NoError(t, ts.hub.Shutdown(ctx))
	})
	return conn
}

func TestFeedEvents_LocalFanOut(t *testing.T) {
	ts := newTestServer(t)
	viewer := attachViewer(t, ts)
	userID := uuid.New()

	caption := ts.createCaption(t, userID, "live")
	ev := viewer.next(t)
	assert.Equal(t, EventCaptionCreated, ev.Type)
	payload, ok := ev.Payload.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, caption.ID.String(), payload["id"])

	status, _ := ts.do(t, http.MethodPost, "/api/captions/"+caption.ID.String()+"/like", nil, &userID)
	require.Equal(t, http.StatusOK, status)
	ev = viewer.next(t)
	assert.Equal(t, EventCaptionLikeUpdated, ev.Type)
	assert.Equal(t, float64(1), ev.Payload.(map[string]interface{})["like_count"])

	// A duplicate like changes nothing and is not announced.
	status, _ = ts.do(t, http.MethodPost, "/api/captions/"+caption.ID.String()+"/like", nil, &userID)
	require.Equal(t, http.StatusOK, status)

	status, _ = ts.do(t, http.MethodDelete, "/api/captions/"+caption.ID.String(), nil, &userID)
	require.Equal(t, http.StatusNoContent, status)
	assert.Equal(t, EventCaptionDeleted, viewer.next(t).Type)
}

func TestFeedEvents_ThroughRedisDeliveredOnce(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	ts := newTestServerWithDB(t, testutil.NewSQLiteDB(t), rdb)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	ts.StartFeedWiring(ctx)
	require.True(t, ts.notifier.Enabled())

	viewer := attachViewer(t, ts)
	caption := ts.createCaption(t, uuid.New(), "via redis")

	ev := viewer.next(t)
	assert.Equal(t, EventCaptionCreated, ev.Type)
	assert.Equal(t, caption.ID.String(), ev.Payload.(map[string]interface{})["id"])

	viewer.expectQuiet(t, 200*time.Millisecond)
}

func TestFeedEvents_UnlikeAnnouncedOnlyWhenRemoved(t *testing.T) {
	ts := newTestServer(t)
	viewer := attachViewer(t, ts)
	userID := uuid.New()

	caption := ts.createCaption(t, userID, "quiet please")
	assert.Equal(t, EventCaptionCreated, viewer.next(t).Type)
	path := "/api/captions/" + caption.ID.String() + "/like"

	// Nothing to remove yet.
	status, raw := ts.do(t, http.MethodDelete, path, nil, &userID)
	require.Equal(t, http.StatusOK, status, string(raw))
	assert.Equal(t, float64(0), decode[map[string]interface{}](t, raw)["like_count"])
	viewer.expectQuiet(t, 200*time.Millisecond)

	status, _ = ts.do(t, http.MethodPost, path, nil, &userID)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, EventCaptionLikeUpdated, viewer.next(t).Type)

	status, _ = ts.do(t, http.MethodDelete, path, nil, &userID)
	require.Equal(t, http.StatusOK, status)
	ev := viewer.next(t)
	assert.Equal(t, EventCaptionLikeUpdated, ev.Type)
	assert.Equal(t, float64(0), ev.Payload.(map[string]interface{})["like_count"])

	// A second unlike is a no-op again.
	status, _ = ts.do(t, http.MethodDelete, path, nil, &userID)
	require.Equal(t, http.StatusOK, status)
	viewer.expectQuiet(t, 200*time.Millisecond)
}

func TestFeedWebsocket_RequiresUpgrade(t *testing.T) {
	ts := newTestServer(t)

	status, _ := ts.do(t, http.MethodGet, "/api/ws/feed", nil, nil)
	assert.Equal(t, http.StatusUpgradeRequired, status)
}
