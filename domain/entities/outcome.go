package entities

import "fmt"

// OutcomeKind represents the result class of a step
type OutcomeKind string

const (
	OutcomeSuccess  OutcomeKind = "success"
	OutcomeDegraded OutcomeKind = "degraded"
	OutcomeFatal    OutcomeKind = "fatal"
)

// StepOutcome is the tagged result of a single step.
// Reason and Kind are empty for OutcomeSuccess.
type StepOutcome struct {
	Kind   OutcomeKind `json:"kind"`
	Error  ErrorKind   `json:"error,omitempty"`
	Reason string      `json:"reason,omitempty"`
}

// Success - step reached its objective
func Success() StepOutcome {
	return StepOutcome{Kind: OutcomeSuccess}
}

// Degraded - step missed its objective but the run can continue
func Degraded(kind ErrorKind, reason string) StepOutcome {
	return StepOutcome{Kind: OutcomeDegraded, Error: kind, Reason: reason}
}

// Fatal - step failure that invalidates the rest of the run
func Fatal(kind ErrorKind, reason string) StepOutcome {
	return StepOutcome{Kind: OutcomeFatal, Error: kind, Reason: reason}
}

func (o StepOutcome) IsSuccess() bool  { return o.Kind == OutcomeSuccess }
func (o StepOutcome) IsDegraded() bool { return o.Kind == OutcomeDegraded }
func (o StepOutcome) IsFatal() bool    { return o.Kind == OutcomeFatal }

func (o StepOutcome) String() string {
	if o.Kind == OutcomeSuccess {
		return string(o.Kind)
	}
	return fmt.Sprintf("%s (%s): %s", o.Kind, o.Error, o.Reason)
}
