package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"captionboard/internal/config"
	"captionboard/internal/database"
	"captionboard/internal/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const testSecret = "server-test-secret-0123456789abcdef0123456789"

func testConfig() *config.Config {
	return &config.Config{
		Env:                "test",
		Port:               "0",
		JWTSecret:          testSecret,
		DBDriver:           database.DialectSQLite,
		MutationsPerMinute: 1000,
	}
}

type testServer struct {
	*Server
	app *fiber.App
	db  *gorm.DB
}

func newTestServerWithDB(t *testing.T, db *gorm.DB, rdb *redis.Client) *testServer {
	t.Helper()
	s, err := NewServerWithDeps(testConfig(), db, rdb)
	require.NoError(t, err)
	return &testServer{Server: s, app: s.App(), db: db}
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	return newTestServerWithDB(t, testutil.NewSQLiteDB(t), nil)
}

// newBareServer runs against a database with no tables at all.
func newBareServer(t *testing.T) *testServer {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=on", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), database.GormConfig())
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return newTestServerWithDB(t, db, nil)
}

func tokenFor(t *testing.T, userID uuid.UUID, email string) string {
	t.Helper()
	claims := jwt.MapClaims{
		"sub":   userID.String(),
		"email": email,
		"exp":   time.Now().Add(time.Hour).Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

// do sends a request, optionally as userID, and returns the status and body.
func (ts *testServer) do(t *testing.T, method, path string, body interface{}, userID *uuid.UUID) (int, []byte) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if userID != nil {
		req.Header.Set("Authorization", "Bearer "+tokenFor(t, *userID, userID.String()[:8]+"@example.edu"))
	}

	resp, err := ts.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, raw
}

func decode[T any](t *testing.T, raw []byte) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	return out
}

type errorBody struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Details string `json:"details"`
}

// recordingConn is a feed connection that records written messages and
// blocks reads until closed.
type recordingConn struct {
	mu       sync.Mutex
	messages chan []byte
	closed   chan struct{}
	once     sync.Once
}

func newRecordingConn() *recordingConn {
	return &recordingConn{messages: make(chan []byte, 16), closed: make(chan struct{})}
}

func (c *recordingConn) SetReadLimit(int64) {}
func (c *recordingConn) SetReadDeadline(time.Time) error { return nil }
func (c *recordingConn) SetWriteDeadline(time.Time) error { return nil }
func (c *recordingConn) SetPongHandler(func(string) error) {}

func (c *recordingConn) ReadMessage() (int, []byte, error) {
	<-c.closed
	return 0, nil, errors.New("closed")
}

func (c *recordingConn) WriteMessage(_ int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	select {
	case <-c.closed:
		return errors.New("closed")
	default:
	}
	select {
	case c.messages <- append([]byte(nil), data...):
	default:
	}
	return nil
}

func (c *recordingConn) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

// next waits for the next text message with a feed event envelope.
func (c *recordingConn) next(t *testing.T) FeedEvent {
	t.Helper()
	for {
		select {
		case raw := <-c.messages:
			var ev FeedEvent
			if json.Unmarshal(raw, &ev) == nil && ev.Type != "" {
				return ev
			}
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for feed event")
			return FeedEvent{}
		}
	}
}

// expectQuiet fails if any message arrives within d.
func (c *recordingConn) expectQuiet(t *testing.T, d time.Duration) {
	t.Helper()
	select {
	case raw := <-c.messages:
		t.Fatalf("unexpected feed message: %s", raw)
	case <-time.After(d):
	}
}
