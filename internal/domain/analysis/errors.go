package analysis

import (
	"errors"
	"fmt"
)

// DefaultFailureMessage is shown when the service gives no usable error detail.
const DefaultFailureMessage = "Prediction failed"

var (
	ErrInvalidInput    = errors.New("invalid input")
	ErrNotReady        = errors.New("not ready")
	ErrAlreadyInFlight = errors.New("analysis already in flight")
	ErrAnalysisFailed  = errors.New("analysis failed")
	ErrPersistence     = errors.New("history persistence failed")
	ErrNotSignedIn     = errors.New("not signed in")
	// ErrCorruptHistory is returned by stores when the persisted log cannot be decoded.
	ErrCorruptHistory = errors.New("corrupt history data")
)

// InvalidInputError rejects a file selection.
type InvalidInputError struct {
	Reason string
}

func (e *InvalidInputError) Error() string        { return e.Reason }
func (e *InvalidInputError) Is(target error) bool { return target == ErrInvalidInput }

// NotReadyError rejects a submit before any network call is made.
type NotReadyError struct {
	Reason string
}

func (e *NotReadyError) Error() string        { return e.Reason }
func (e *NotReadyError) Is(target error) bool { return target == ErrNotReady }

// AlreadyInFlightError rejects a second submit while one is pending.
type AlreadyInFlightError struct {
	RequestID uint64
}

func (e *AlreadyInFlightError) Error() string {
	return fmt.Sprintf("analysis of request %d is still running", e.RequestID)
}
func (e *AlreadyInFlightError) Is(target error) bool { return target == ErrAlreadyInFlight }

// AnalysisFailedError is the single normalized form of every classifier failure.
// Message is safe to show to a user; Err keeps the underlying cause for logs.
type AnalysisFailedError struct {
	Message    string
	StatusCode int
	Err        error
}

func (e *AnalysisFailedError) Error() string        { return e.Message }
func (e *AnalysisFailedError) Unwrap() error        { return e.Err }
func (e *AnalysisFailedError) Is(target error) bool { return target == ErrAnalysisFailed }

// NewAnalysisFailed builds an AnalysisFailedError, falling back to DefaultFailureMessage.
func NewAnalysisFailed(message string, cause error) *AnalysisFailedError {
	if message == "" {
		message = DefaultFailureMessage
	}
	return &AnalysisFailedError{Message: message, Err: cause}
}

// PersistenceWarning reports a failed history write. It never fails a submit.
type PersistenceWarning struct {
	Err error
}

func (e *PersistenceWarning) Error() string {
	return "analysis completed but could not be saved to history"
}
func (e *PersistenceWarning) Unwrap() error        { return e.Err }
func (e *PersistenceWarning) Is(target error) bool { return target == ErrPersistence }

// NotSignedInError is returned by user-attributed operations when nobody is signed in.
type NotSignedInError struct{}

func (e *NotSignedInError) Error() string        { return "sign in required" }
func (e *NotSignedInError) Is(target error) bool { return target == ErrNotSignedIn }

// MalformedResultError marks a success response that failed validation.
type MalformedResultError struct {
	Field string
}

func (e *MalformedResultError) Error() string {
	return fmt.Sprintf("malformed classification response: invalid %s", e.Field)
}
