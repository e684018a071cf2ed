package database

import (
	"database/sql"
	"database/sql/driver"
	"errors"
	"net"
	"strings"

	"captionboard/internal/models"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
	"gorm.io/gorm"
)

// Postgres SQLSTATE codes inspected by the store.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgUndefinedTable      = "42P01"
	pgUndefinedColumn     = "42703"
	pgLockNotAvailable    = "55P03"
	pgDeadlockDetected    = "40P01"
)

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// IsSchemaMissingError reports whether err was caused by tables or columns
// that have not been created yet.
func IsSchemaMissingError(err error) bool {
	if err == nil {
		return false
	}
	switch pgCode(err) {
	case pgUndefinedTable, pgUndefinedColumn:
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "no such table") ||
		strings.Contains(msg, "no such column") ||
		(strings.Contains(msg, "relation") && strings.Contains(msg, "does not exist"))
}

// IsConnectionError reports whether err means the database could not be reached.
func IsConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) {
		return true
	}
	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "database is closed") ||
		strings.Contains(msg, "sql: database is closed")
}

// IsLockTimeout reports whether err means the store stayed locked by other
// writers longer than it was willing to wait.
func IsLockTimeout(err error) bool {
	if err == nil {
		return false
	}
	var sqErr sqlite3.Error
	if errors.As(err, &sqErr) && (sqErr.Code == sqlite3.ErrBusy || sqErr.Code == sqlite3.ErrLocked) {
		return true
	}
	switch pgCode(err) {
	case pgLockNotAvailable, pgDeadlockDetected:
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "database is locked")
}

// IsUniqueViolation reports whether err is a unique constraint failure.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) || pgCode(err) == pgUniqueViolation {
		return true
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// IsForeignKeyViolation reports whether err is a foreign key failure.
func IsForeignKeyViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrForeignKeyViolated) || pgCode(err) == pgForeignKeyViolation {
		return true
	}
	return strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}

// NewUnavailableError wraps err as a STORE_UNAVAILABLE AppError.
func NewUnavailableError(err error) *models.AppError {
	return models.NewStoreUnavailableError(err)
}

// TranslateError converts driver and GORM errors into AppErrors. Errors that
// already carry an AppError pass through untouched.
func TranslateError(err error) error {
	if err == nil {
		return nil
	}
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		return err
	}
	switch {
	case IsSchemaMissingError(err), IsConnectionError(err), IsLockTimeout(err):
		return NewUnavailableError(err)
	case IsUniqueViolation(err):
		return models.NewConflictError("Resource already exists", err)
	default:
		return models.NewInternalError(err)
	}
}
