package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/the-books-must-balance/internal/model"
)

// Validation errors.
var (
	ErrNilContext         = errors.New("context cannot be nil")
	ErrEmptyString        = errors.New("string parameter cannot be empty")
	ErrNilParameter       = errors.New("parameter cannot be nil")
	ErrInvalidKey         = errors.New("invalid knowledge key")
	ErrInvalidStatus      = errors.New("invalid suggestion status")
	ErrInvalidSuggestion  = errors.New("invalid suggestion")
	ErrInvalidObservation = errors.New("invalid observation")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateKey ensures a knowledge key is one of the known keys.
func validateKey(key model.KnowledgeKey) error {
	if !key.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return nil
}

// validateStatusFilter accepts the empty filter and the three suggestion states.
func validateStatusFilter(status model.SuggestionStatus) error {
	switch status {
	case "", model.SuggestionPending, model.SuggestionAccepted, model.SuggestionRejected:
		return nil
	default:
		return fmt.Errorf("%w: %s", ErrInvalidStatus, status)
	}
}

// validateSuggestion validates a suggestion before it is proposed.
func validateSuggestion(s *model.LearningSuggestion) error {
	if s == nil {
		return fmt.Errorf("%w: suggestion", ErrNilParameter)
	}
	if err := s.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSuggestion, err)
	}
	return nil
}

// validateObservation checks the identity fields of an observation.
func validateObservation(o model.Observation) error {
	switch o.Kind {
	case model.ObservationLedgerAccount, model.ObservationDefaultColumn, model.ObservationMismatch:
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidObservation, o.Kind)
	}
	if o.Source == "" || o.Subject == "" {
		return fmt.Errorf("%w: %s needs a source and a subject", ErrInvalidObservation, o.Kind)
	}
	return nil
}
