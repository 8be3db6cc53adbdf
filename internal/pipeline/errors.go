package pipeline

import (
	"fmt"
	"strings"
)

// Kind classifies a stage failure
type Kind string

const (
	KindValidation  Kind = "validation"
	KindTranslation Kind = "translation"
	KindConflict    Kind = "conflict"
	KindPersistence Kind = "persistence"
	KindPropagation Kind = "propagation"
)

// StageError is a classified pipeline failure. Aborts reports whether the
// run stops; Messages is what the caller is shown when it does.
type StageError interface {
	error
	Kind() Kind
	Aborts() bool
	Messages() []string
}

// ValidationError lists every field-level problem with a submission
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string      { return "validation failed: " + strings.Join(e.Fields, "; ") }
func (e *ValidationError) Kind() Kind         { return KindValidation }
func (e *ValidationError) Aborts() bool       { return true }
func (e *ValidationError) Messages() []string { return e.Fields }

// TranslationError means the schedule text could not be turned into cron
type TranslationError struct {
	Reason string
	Err    error
}

func (e *TranslationError) Error() string      { return "Could not parse schedule: " + e.Reason }
func (e *TranslationError) Unwrap() error      { return e.Err }
func (e *TranslationError) Kind() Kind         { return KindTranslation }
func (e *TranslationError) Aborts() bool       { return true }
func (e *TranslationError) Messages() []string { return []string{e.Error()} }

// ConflictError means another show already holds the (station, name) pair.
// ExistingID is zero when only the store's unique index caught the clash.
type ConflictError struct {
	StationID  uint
	Name       string
	ExistingID uint
	Err        error
}

func (e *ConflictError) Error() string {
	if e.ExistingID == 0 {
		return fmt.Sprintf("A show with this name already exists for this station: %q", e.Name)
	}
	return fmt.Sprintf("A show with this name already exists for this station: %q (show #%d)", e.Name, e.ExistingID)
}
func (e *ConflictError) Unwrap() error      { return e.Err }
func (e *ConflictError) Kind() Kind         { return KindConflict }
func (e *ConflictError) Aborts() bool       { return true }
func (e *ConflictError) Messages() []string { return []string{e.Error()} }

// PersistenceError is a storage malfunction, not a problem with the input
type PersistenceError struct {
	Message string
	Err     error
}

func (e *PersistenceError) Error() string      { return e.Message }
func (e *PersistenceError) Unwrap() error      { return e.Err }
func (e *PersistenceError) Kind() Kind         { return KindPersistence }
func (e *PersistenceError) Aborts() bool       { return true }
func (e *PersistenceError) Messages() []string { return []string{e.Message} }

func databaseError(err error) *PersistenceError {
	return &PersistenceError{Message: "Database error: " + err.Error(), Err: err}
}

// PropagationError is a failed downstream notification. It is logged and
// reported on the Result, but never shown to the caller and never aborts.
type PropagationError struct {
	Collaborator string
	ShowID       uint
	Err          error
}

func (e *PropagationError) Error() string {
	return fmt.Sprintf("%s update for show %d failed: %v", e.Collaborator, e.ShowID, e.Err)
}
func (e *PropagationError) Unwrap() error      { return e.Err }
func (e *PropagationError) Kind() Kind         { return KindPropagation }
func (e *PropagationError) Aborts() bool       { return false }
func (e *PropagationError) Messages() []string { return nil }

var (
	_ StageError = (*ValidationError)(nil)
	_ StageError = (*TranslationError)(nil)
	_ StageError = (*ConflictError)(nil)
	_ StageError = (*PersistenceError)(nil)
	_ StageError = (*PropagationError)(nil)
)
