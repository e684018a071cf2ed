// Package server contains HTTP and WebSocket handlers for the caption board API.
package server

import (
	"context"
	"fmt"
	"time"

	"captionboard/internal/cache"
	"captionboard/internal/config"
	"captionboard/internal/database"
	"captionboard/internal/middleware"
	"captionboard/internal/models"
	"captionboard/internal/notifications"
	"captionboard/internal/observability"
	"captionboard/internal/repository"
	"captionboard/internal/service"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const serviceName = "captionboard-api"

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	shutdownCtx    context.Context
	shutdownFn     context.CancelFunc
	captionService *service.CaptionService
	profileService *service.ProfileService
	notifier       *notifications.Notifier
	hub            *notifications.FeedHub
}

// NewServer connects to the database and Redis described by cfg and returns
// a server using them. The schema is not touched; see database.ApplySchema.
func NewServer(cfg *config.Config) (*Server, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	cache.InitRedis(cfg.RedisURL)
	return NewServerWithDeps(cfg, db, cache.GetClient())
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// redisClient may be nil. Feed events stay local until StartFeedWiring
// subscribes the hub to Redis.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	if db == nil {
		return nil, fmt.Errorf("database is required")
	}
	middleware.InitMiddleware(cfg)

	profileTTL := time.Duration(cfg.ProfileCacheTTLSeconds) * time.Second
	userRepo := repository.NewUserRepository(db)
	profileRepo := repository.NewProfileRepository(db, profileTTL)
	captionRepo := repository.NewCaptionRepository(db)

	server := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics(serviceName),
		hub:            notifications.NewFeedHub(),
	}
	server.profileService = service.NewProfileService(userRepo, profileRepo)
	server.captionService = service.NewCaptionService(captionRepo, server.profileService)

	return server, nil
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())

	// Tracing runs before the context middleware so the trace ID reaches the logs.
	app.Use(middleware.TracingMiddleware())
	app.Use(middleware.ContextMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	app.Use(helmet.New())
	app.Use(middleware.RequestLogger())

	// CORS runs before the limiter so rejected browser requests still carry CORS headers.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000,http://127.0.0.1:5173"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Upgrade, Connection, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowCredentials: origins != "*",
		MaxAge:           86400,
	}))

	app.Use(limiter.New(limiter.Config{
		Max:        300,
		Expiration: 1 * time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(models.ErrorResponse{
				Error: "Too many requests, please try again later.",
				Code:  "RATE_LIMITED",
			})
		},
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	api := app.Group("/api")
	api.Get("/departments", s.GetDepartments)

	mutations := s.config.MutationsPerMinute
	if mutations <= 0 {
		mutations = 60
	}
	mutationLimit := middleware.RateLimit(s.redis, mutations, time.Minute, "caption_mutation")

	// Public feed; a valid token additionally fills liked_by_me.
	captions := api.Group("/captions")
	captions.Get("/", middleware.OptionalAuth, s.GetCaptions)
	captions.Get("/:id", middleware.OptionalAuth, s.GetCaption)

	captions.Post("/", middleware.AuthRequired, mutationLimit, s.CreateCaption)
	// Specific /:id/like routes before the generic /:id routes
	captions.Post("/:id/like", middleware.AuthRequired, mutationLimit, s.MirrorIdentity, s.LikeCaption)
	captions.Delete("/:id/like", middleware.AuthRequired, mutationLimit, s.UnlikeCaption)
	captions.Put("/:id", middleware.AuthRequired, mutationLimit, s.UpdateCaption)
	captions.Delete("/:id", middleware.AuthRequired, mutationLimit, s.DeleteCaption)

	me := api.Group("/me", middleware.AuthRequired)
	me.Get("/likes", s.GetMyLikes)
	me.Get("/captions/count", s.GetMyCaptionCount)
	me.Get("/profile", s.GetMyProfile)
	me.Put("/profile", mutationLimit, s.UpdateMyProfile)
	me.Delete("", s.DeleteMe)

	// The feed socket is public; a token only tags the connection.
	api.Get("/ws/feed", middleware.OptionalAuth, s.FeedWebsocketUpgrade, s.FeedWebsocketHandler())
}

// MirrorIdentity records the token subject in the users table so rows that
// reference it, such as likes, can be written. Must run after AuthRequired.
func (s *Server) MirrorIdentity(c *fiber.Ctx) error {
	uid := middleware.UserID(c)
	if uid == nil {
		return respondError(c, models.NewUnauthorizedError("Authentication required"))
	}
	if err := s.profileService.EnsureIdentity(c.UserContext(), *uid, middleware.Email(c)); err != nil {
		return respondError(c, err)
	}
	return c.Next()
}

// App builds the Fiber app with middleware and routes but does not listen.
func (s *Server) App() *fiber.App {
	if s.app != nil {
		return s.app
	}

	app := fiber.New(fiber.Config{
		AppName: "Caption Board API",
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if fe, ok := err.(*fiber.Error); ok {
				return models.RespondWithError(c, fe.Code, err)
			}
			observability.FromContext(c.UserContext()).Error("unhandled error", zap.Error(err))
			return models.RespondWithError(c, fiber.StatusInternalServerError,
				models.NewInternalError(err))
		},
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	s.app = app
	return app
}

// Start wires the feed hub to Redis and listens on the configured port.
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.shutdownCtx = ctx
	s.shutdownFn = cancel

	app := s.App()
	s.StartFeedWiring(ctx)

	observability.GlobalLogger.Info("server starting", zap.String("port", s.config.Port))
	return app.Listen(":" + s.config.Port)
}

// StartFeedWiring subscribes the feed hub to the shared Redis channel. From
// then on events are published to Redis only and reach local clients through
// the subscription. Without Redis, or if the subscription fails, events are
// broadcast to the local hub directly.
func (s *Server) StartFeedWiring(ctx context.Context) {
	n := notifications.NewNotifier(s.redis)
	if !n.Enabled() {
		return
	}
	if err := s.hub.StartWiring(ctx, n); err != nil {
		observability.GlobalLogger.Warn("failed to start feed wiring; using local fan-out",
			zap.String("hub", s.hub.Name()), zap.Error(err))
		return
	}
	s.notifier = n
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	log := observability.GlobalLogger

	if s.shutdownFn != nil {
		s.shutdownFn()
	}

	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			log.Warn("error shutting down HTTP server", zap.Error(err))
		}
	}

	if err := s.hub.Shutdown(ctx); err != nil {
		log.Warn("error shutting down hub", zap.String("hub", s.hub.Name()), zap.Error(err))
	}

	if err := database.Close(s.db); err != nil {
		log.Warn("error closing database", zap.Error(err))
	}

	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			log.Warn("error closing redis", zap.Error(err))
		}
	}

	log.Info("server shutdown complete")
	return nil
}
