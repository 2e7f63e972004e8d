package services

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

var (
	ErrForbidden          = errors.New("forbidden")
	ErrOrderNotFound      = errors.New("order not found")
	ErrUserNotFound       = errors.New("user not found")
	ErrTeamMemberNotFound = errors.New("team member not found")
	ErrNoQuoteToRespond   = errors.New("order has no quoted price")
	ErrFilesLocked        = errors.New("files can only be added while the order awaits a quote")
)

// ValidationError is returned before any write when input is rejected
type ValidationError struct {
	Code    string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func invalid(code, message string) error {
	return &ValidationError{Code: code, Message: message}
}

// IsValidationError reports whether err is (or wraps) a ValidationError
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsUniqueViolation matches unique-constraint errors from both PostgreSQL and
// SQLite, translated by gorm or not.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate") || strings.Contains(msg, "unique")
}
