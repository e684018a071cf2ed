package database

import (
	"context"
	"fmt"

	"captionboard/internal/config"
	"captionboard/internal/observability"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	SchemaModeHybrid = "hybrid"
	SchemaModeSQL    = "sql"
	SchemaModeAuto   = "auto"
)

// SchemaStatus describes what ApplySchema would do and which tables exist.
type SchemaStatus struct {
	Mode               string      `json:"mode"`
	Environment        string      `json:"environment"`
	Dialect            string      `json:"dialect"`
	WillRunSQL         bool        `json:"will_run_sql"`
	WillRunAutoMigrate bool        `json:"will_run_auto_migrate"`
	AppliedVersions    []int       `json:"applied_versions"`
	PendingMigrations  []Migration `json:"-"`
	MissingTables      []string    `json:"missing_tables"`
}

// Ready reports whether every required table exists.
func (s *SchemaStatus) Ready() bool {
	return len(s.MissingTables) == 0
}

// PendingNames returns the pending migrations as NNNNNN_name strings.
func (s *SchemaStatus) PendingNames() []string {
	names := make([]string, 0, len(s.PendingMigrations))
	for i := range s.PendingMigrations {
		names = append(names, s.PendingMigrations[i].String())
	}
	return names
}

func normalizedSchemaMode(cfg *config.Config) string {
	if cfg.DBSchemaMode == "" {
		return SchemaModeHybrid
	}
	return cfg.DBSchemaMode
}

// schemaPolicy decides which schema steps run. Hybrid mode adds AutoMigrate
// only for Postgres outside production; SQLite's AutoMigrate rebuilds tables
// to alter columns, which would fight the SQL migrations.
func schemaPolicy(cfg *config.Config, dialect string) (runSQL bool, runAuto bool, err error) {
	mode := normalizedSchemaMode(cfg)

	switch mode {
	case SchemaModeSQL:
		return true, false, nil
	case SchemaModeAuto:
		if cfg.IsProduction() {
			return false, false, fmt.Errorf("refusing DB_SCHEMA_MODE=auto in %q", cfg.Env)
		}
		return false, true, nil
	case SchemaModeHybrid:
		return true, !cfg.IsProduction() && dialect == DialectPostgres, nil
	default:
		return false, false, fmt.Errorf("unsupported DB_SCHEMA_MODE %q", mode)
	}
}

func runAutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(PersistentModels()...)
}

// ApplySchema brings the schema up to date according to cfg.DBSchemaMode.
func ApplySchema(ctx context.Context, db *gorm.DB, cfg *config.Config) error {
	dialect := db.Dialector.Name()
	runSQL, runAuto, err := schemaPolicy(cfg, dialect)
	if err != nil {
		return err
	}

	if runSQL {
		if err := RunMigrations(ctx, db); err != nil {
			return fmt.Errorf("run sql migrations: %w", err)
		}
	}

	if runAuto {
		observability.GlobalLogger.Info("Running GORM AutoMigrate",
			zap.String("mode", normalizedSchemaMode(cfg)),
			zap.String("env", cfg.Env),
			zap.String("dialect", dialect),
		)
		if err := runAutoMigrate(db.WithContext(ctx)); err != nil {
			return fmt.Errorf("auto-migrate: %w", err)
		}
	}

	return nil
}

// MissingTables returns the required tables absent from db.
func MissingTables(ctx context.Context, db *gorm.DB) []string {
	migrator := db.WithContext(ctx).Migrator()
	var missing []string
	for _, table := range RequiredTables() {
		if !migrator.HasTable(table) {
			missing = append(missing, table)
		}
	}
	return missing
}

// GetSchemaStatus reports the schema policy, applied migrations and missing tables.
func GetSchemaStatus(ctx context.Context, db *gorm.DB, cfg *config.Config) (*SchemaStatus, error) {
	dialect := db.Dialector.Name()
	runSQL, runAuto, err := schemaPolicy(cfg, dialect)
	if err != nil {
		return nil, err
	}

	status := &SchemaStatus{
		Mode:               normalizedSchemaMode(cfg),
		Environment:        cfg.Env,
		Dialect:            dialect,
		WillRunSQL:         runSQL,
		WillRunAutoMigrate: runAuto,
		MissingTables:      MissingTables(ctx, db),
	}

	if !runSQL {
		return status, nil
	}

	store := NewMigrationStore(db)
	applied, err := store.GetAppliedMigrations(ctx)
	if err != nil {
		return nil, err
	}
	status.AppliedVersions = applied

	appliedSet := make(map[int]bool, len(applied))
	for _, version := range applied {
		appliedSet[version] = true
	}
	for _, m := range GetMigrations(dialect) {
		if !appliedSet[m.Version] {
			status.PendingMigrations = append(status.PendingMigrations, m)
		}
	}

	return status, nil
}
