package entities

import (
	"errors"
	"fmt"
)

// ErrTimeout marks driver errors caused by an operation outliving its timeout
var ErrTimeout = errors.New("operation timed out")

// ErrorKind classifies step failures
type ErrorKind string

const (
	ErrElementNotFound        ErrorKind = "element_not_found"
	ErrActionTimeout          ErrorKind = "action_timeout"
	ErrUnexpectedSession      ErrorKind = "unexpected_session_error"
	ErrAttachmentFailure      ErrorKind = "attachment_failure"
	ErrCaptureEmpty           ErrorKind = "capture_empty"
	ErrAuthenticationRequired ErrorKind = "authentication_required"
)

// StepError wraps a driver or I/O error with the step that hit it and its classification.
type StepError struct {
	Step string
	Kind ErrorKind
	Err  error
}

func NewStepError(step string, kind ErrorKind, err error) *StepError {
	return &StepError{Step: step, Kind: kind, Err: err}
}

func (e *StepError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Step, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Step, e.Kind, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}
