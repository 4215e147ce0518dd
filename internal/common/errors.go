// Package common provides shared utilities and types used across the application.
package common

import (
	"errors"
	"fmt"
)

// Common application errors.
var (
	// Store errors.
	ErrNotFound                  = errors.New("not found")
	ErrDuplicateEntry            = errors.New("duplicate entry")
	ErrInvalidTransition         = errors.New("invalid suggestion transition")
	ErrKnowledgeStoreUnavailable = errors.New("knowledge store unavailable")

	// Document errors. None of these abort a batch.
	ErrClassificationAmbiguous = errors.New("document type could not be determined")
	ErrExtractionMissing       = errors.New("no target line found")
	ErrExtractionTimeout       = errors.New("extraction deadline exceeded")

	// Configuration errors. These are fatal at startup.
	ErrRuleMisconfiguration = errors.New("rule misconfiguration")
	ErrMissingConfig        = errors.New("missing configuration")
	ErrInvalidConfig        = errors.New("invalid configuration")
)

// UserError represents an error that should be shown to the user.
type UserError struct {
	Err         error
	UserMessage string
}

func (e *UserError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.UserMessage, e.Err)
	}
	return e.UserMessage
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// NewUserError creates a new user-friendly error.
func NewUserError(userMessage string, err error) error {
	return &UserError{
		UserMessage: userMessage,
		Err:         err,
	}
}

// IsFatal reports whether err is a configuration fault that must stop the process.
func IsFatal(err error) bool {
	return errors.Is(err, ErrRuleMisconfiguration) ||
		errors.Is(err, ErrMissingConfig) ||
		errors.Is(err, ErrInvalidConfig)
}
