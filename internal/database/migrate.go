package database

import (
	"embed"
	"fmt"
	"path"
	"sort"
	"strings"

	"captionboard/internal/observability"

	"go.uber.org/zap"
)

// Migration is one versioned schema change for a single dialect.
type Migration struct {
	Version    int
	Name       string
	UpScript   string
	DownScript string
}

//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
var migrationFS embed.FS

var migrations = map[string][]Migration{}

func init() {
	for _, dialect := range []string{DialectPostgres, DialectSQLite} {
		if err := RegisterMigrations(migrationFS, dialect); err != nil {
			observability.GlobalLogger.Error("failed to register migrations",
				zap.String("dialect", dialect), zap.Error(err))
		}
	}
}

// RegisterMigrations loads NNNNNN_name.up.sql / .down.sql pairs from
// migrations/<dialect> in efs.
func RegisterMigrations(efs embed.FS, dialect string) error {
	dir := path.Join("migrations", dialect)
	entries, err := efs.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to read migrations directory %s: %w", dir, err)
	}

	var registered []Migration
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()
		if !strings.HasSuffix(name, ".up.sql") {
			continue
		}

		base := strings.TrimSuffix(name, ".up.sql")
		parts := strings.SplitN(base, "_", 2)
		if len(parts) != 2 {
			observability.GlobalLogger.Warn("Skipping migration with invalid naming", zap.String("file", name))
			continue
		}

		var version int
		if _, err := fmt.Sscanf(parts[0], "%d", &version); err != nil || version <= 0 {
			observability.GlobalLogger.Warn("Skipping migration with invalid version", zap.String("file", name))
			continue
		}

		upBytes, err := efs.ReadFile(path.Join(dir, name))
		if err != nil {
			return fmt.Errorf("failed to read up migration %s: %w", name, err)
		}

		downName := base + ".down.sql"
		downBytes, err := efs.ReadFile(path.Join(dir, downName))
		if err != nil {
			return fmt.Errorf("failed to read down migration %s: %w", downName, err)
		}

		registered = append(registered, Migration{
			Version:    version,
			Name:       parts[1],
			UpScript:   string(upBytes),
			DownScript: string(downBytes),
		})
	}

	sort.Slice(registered, func(i, j int) bool {
		return registered[i].Version < registered[j].Version
	})
	migrations[dialect] = registered

	return nil
}

// GetMigrations returns the registered migrations for dialect in version order.
func GetMigrations(dialect string) []Migration {
	return migrations[dialect]
}

// GetMigrationByVersion returns the migration with version for dialect, or nil.
func GetMigrationByVersion(dialect string, version int) *Migration {
	for _, m := range migrations[dialect] {
		if m.Version == version {
			return &m
		}
	}
	return nil
}

func (m *Migration) String() string {
	return fmt.Sprintf("%06d_%s", m.Version, m.Name)
}
