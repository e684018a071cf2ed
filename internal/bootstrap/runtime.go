// Package bootstrap initializes the process-wide dependencies shared by the
// server and the ops commands.
package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"captionboard/internal/cache"
	"captionboard/internal/config"
	"captionboard/internal/database"
	"captionboard/internal/observability"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ServiceName identifies this process in logs, traces and metrics.
const ServiceName = "captionboard-api"

// Version is overridden at build time with -ldflags "-X ...".
var Version = "dev"

// Options control runtime initialization behavior.
type Options struct {
	// ApplySchema runs database.ApplySchema after connecting.
	ApplySchema bool
	// Redis connects to REDIS_URL. Commands that never touch the cache leave it off.
	Redis bool
	// Tracing installs the OpenTelemetry provider described by the config.
	Tracing bool
}

// Runtime holds initialized dependencies.
type Runtime struct {
	DB    *gorm.DB
	Redis *redis.Client

	shutdownTracing func(context.Context) error
}

// LogOptions maps the logging settings in cfg.
func LogOptions(cfg *config.Config) observability.LogOptions {
	return observability.LogOptions{
		Level:      cfg.LogLevel,
		FilePath:   cfg.LogFile,
		MaxSizeMB:  cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
		MaxAgeDays: cfg.LogMaxAgeDays,
		Compress:   true,
	}
}

// TraceOptions maps the tracing settings in cfg.
func TraceOptions(cfg *config.Config) observability.TraceOptions {
	return observability.TraceOptions{
		Service:     ServiceName,
		Version:     Version,
		Environment: cfg.Env,
		Exporter:    cfg.TracingExporter,
		Endpoint:    cfg.OTLPEndpoint,
		SampleRatio: cfg.TracingSampleRatio,
	}
}

// initTracing installs the exporter when TRACING_ENABLED is set.
func initTracing(ctx context.Context, cfg *config.Config) (observability.TraceShutdown, error) {
	if !cfg.TracingEnabled {
		return observability.DisableTracing(ServiceName), nil
	}
	return observability.InstallTracing(ctx, TraceOptions(cfg))
}

// InitRuntime configures logging and tracing, connects to the database and,
// when asked, applies the schema and connects to Redis. A Redis failure is
// not fatal; the client is simply nil.
func InitRuntime(ctx context.Context, cfg *config.Config, opts Options) (*Runtime, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	log := observability.InitLogger(LogOptions(cfg))

	rt := &Runtime{shutdownTracing: func(context.Context) error { return nil }}
	if opts.Tracing {
		shutdown, err := initTracing(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("tracing init failed: %w", err)
		}
		rt.shutdownTracing = shutdown
	}

	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}
	rt.DB = db

	if opts.ApplySchema {
		if err := database.ApplySchema(ctx, db, cfg); err != nil {
			_ = database.Close(db)
			return nil, fmt.Errorf("apply schema: %w", err)
		}
	}

	if opts.Redis {
		rt.Redis = cache.InitRedis(cfg.RedisURL)
	}

	log.Info("runtime initialized",
		zap.String("env", cfg.Env),
		zap.String("driver", db.Dialector.Name()),
		zap.Bool("redis", rt.Redis != nil),
		zap.Bool("tracing", opts.Tracing && cfg.TracingEnabled),
	)
	return rt, nil
}

// Shutdown flushes pending spans.
func (r *Runtime) Shutdown(ctx context.Context) error {
	return r.shutdownTracing(ctx)
}

// Close releases the database pool and the Redis client. The server closes
// these itself during Shutdown, so only the ops commands call it.
func (r *Runtime) Close() error {
	var errs []error
	if err := database.Close(r.DB); err != nil {
		errs = append(errs, fmt.Errorf("close database: %w", err))
	}
	if r.Redis != nil {
		if err := r.Redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
	}
	_ = observability.GlobalLogger.Sync()
	return errors.Join(errs...)
}
