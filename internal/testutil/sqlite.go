// Package testutil provides shared test doubles and fixtures for backend tests.
package testutil

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"captionboard/internal/config"
	"captionboard/internal/database"
	"captionboard/internal/models"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// NewSQLiteDB opens a private in-memory SQLite database with the SQL
// migrations applied. A single connection serializes writers the way row
// locks would on Postgres.
func NewSQLiteDB(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=on", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), database.GormConfig())
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(0)
	t.Cleanup(func() { _ = sqlDB.Close() })

	cfg := &config.Config{Env: "test", DBSchemaMode: database.SchemaModeSQL}
	if err := database.ApplySchema(context.Background(), db, cfg); err != nil {
		t.Fatalf("apply schema: %v", err)
	}
	return db
}

// NewFileSQLiteDB opens a SQLite file under t.TempDir() through
// database.Connect, so it gets the production DSN options and the default
// multi-connection pool.
func NewFileSQLiteDB(t testing.TB) *gorm.DB {
	t.Helper()

	cfg := &config.Config{
		Env:          "test",
		DBDriver:     database.DialectSQLite,
		SQLitePath:   filepath.Join(t.TempDir(), "captionboard.db"),
		DBSchemaMode: database.SchemaModeSQL,
	}
	db, err := database.Connect(cfg)
	if err != nil {
		t.Fatalf("connect sqlite: %v", err)
	}
	t.Cleanup(func() { _ = database.Close(db) })

	if err := database.ApplySchema(context.Background(), db, cfg); err != nil {
		t.Fatalf("apply schema: %v", err)
	}
	return db
}

// SeedUser inserts an identity row and returns its ID.
func SeedUser(t testing.TB, db *gorm.DB) uuid.UUID {
	t.Helper()
	id := uuid.New()
	if err := db.Create(&models.User{ID: id, Email: id.String()[:8] + "@example.edu"}).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return id
}

// SeedCaption inserts a caption owned by userID with the given creation time.
func SeedCaption(t testing.TB, db *gorm.DB, userID uuid.UUID, text string, createdAt time.Time) *models.Caption {
	t.Helper()
	owner := userID
	c := &models.Caption{
		CaptionText: text,
		AuthorName:  "Author " + text,
		Department:  models.DepartmentCSE,
		UserID:      &owner,
		CreatedAt:   createdAt.UTC(),
		UpdatedAt:   createdAt.UTC(),
	}
	if err := db.Create(c).Error; err != nil {
		t.Fatalf("seed caption: %v", err)
	}
	return c
}

// SeedLike inserts a like row directly, bypassing the repository.
func SeedLike(t testing.TB, db *gorm.DB, captionID, userID uuid.UUID) {
	t.Helper()
	if err := db.Create(&models.Like{CaptionID: captionID, UserID: userID}).Error; err != nil {
		t.Fatalf("seed like: %v", err)
	}
}

// CountLikeRows returns the raw number of like rows for captionID.
func CountLikeRows(t testing.TB, db *gorm.DB, captionID uuid.UUID) int64 {
	t.Helper()
	var n int64
	if err := db.Model(&models.Like{}).Where("caption_id = ?", captionID).Count(&n).Error; err != nil {
		t.Fatalf("count likes: %v", err)
	}
	return n
}
