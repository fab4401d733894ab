package puzzle

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by readers when a record does not exist.
var ErrNotFound = errors.New("not found")

// ErrorCode categorizes engine errors.
type ErrorCode string

const (
	// CodeInvalidGuess: guess outside the representable year range.
	CodeInvalidGuess ErrorCode = "INVALID_GUESS"

	// CodeDuplicateGuess: the year was already guessed on this puzzle.
	CodeDuplicateGuess ErrorCode = "DUPLICATE_GUESS"

	// CodeGameOver: no guesses remain or the puzzle is already solved.
	CodeGameOver ErrorCode = "GAME_OVER"

	// CodeInFlight: another submission from this session has not finished.
	CodeInFlight ErrorCode = "SUBMISSION_IN_FLIGHT"

	// CodeNotReady: the game state is still loading or errored.
	CodeNotReady ErrorCode = "NOT_READY"

	// CodeInvalidID: an id does not match the persistence-layer format.
	CodeInvalidID ErrorCode = "INVALID_ID"

	// CodeInvalidDate: a date is malformed or outside the accepted window.
	CodeInvalidDate ErrorCode = "INVALID_DATE"

	// CodeInvalidStreak: a claimed streak count is out of range or reaches
	// back further than the accepted window.
	CodeInvalidStreak ErrorCode = "INVALID_STREAK"

	// CodeInvalidPuzzle: a puzzle record fails its structural checks.
	CodeInvalidPuzzle ErrorCode = "INVALID_PUZZLE"

	// CodeMissingHistory: a completed play record has lost its puzzle context.
	CodeMissingHistory ErrorCode = "MISSING_HISTORY"

	// CodeNoRowsAffected: an update that must touch a row touched none.
	CodeNoRowsAffected ErrorCode = "NO_ROWS_AFFECTED"
)

// ValidationError is a locally rejected input. It never reaches persistence
// and is not retried; Message is safe to show to the player.
type ValidationError struct {
	Code    ErrorCode
	Field   string
	Message string
}

// NewValidationError creates a ValidationError.
func NewValidationError(code ErrorCode, field, message string) *ValidationError {
	return &ValidationError{Code: code, Field: field, Message: message}
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s (field=%s)", e.Code, e.Message, e.Field)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// InvariantError signals data corruption rather than unavailability, for
// example an update that matched no rows. Details carries the context that
// was logged alongside it.
type InvariantError struct {
	Code    ErrorCode
	Message string
	Details map[string]string
}

// NewInvariantError creates an InvariantError.
func NewInvariantError(code ErrorCode, message string, details map[string]string) *InvariantError {
	return &InvariantError{Code: code, Message: message, Details: details}
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsValidationError reports whether err wraps a ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsInvariantError reports whether err wraps an InvariantError.
func IsInvariantError(err error) bool {
	var ie *InvariantError
	return errors.As(err, &ie)
}

// IsNotFound reports whether err wraps ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
