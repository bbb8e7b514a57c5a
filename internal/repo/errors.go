package repo

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = gorm.ErrRecordNotFound
	// ErrDuplicate indicates that a record with the same key already exists.
	ErrDuplicate = errors.New("duplicate")
)

// isUniqueViolation recognizes unique/primary key violations across drivers.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	// glebarez/sqlite often returns plain-text errors for UNIQUE violations.
	low := strings.ToLower(err.Error())
	return strings.Contains(low, "unique constraint failed") ||
		strings.Contains(low, "constraint failed: unique") ||
		strings.Contains(low, "constraint failed: primary key") ||
		strings.Contains(low, "duplicate key value") ||
		strings.Contains(low, "sqlstate 23505")
}
