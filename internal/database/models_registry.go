package database

import "captionboard/internal/models"

// PersistentModels returns the authoritative set of schema-managed GORM models.
// Order matters for AutoMigrate: referenced tables first.
func PersistentModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Profile{},
		&models.Caption{},
		&models.Like{},
	}
}

// RequiredTables lists the tables the caption store cannot run without.
func RequiredTables() []string {
	return []string{"users", "profiles", "captions", "likes"}
}
