package entities

import "time"

// RunStatus represents the overall status of a probe run
type RunStatus string

const (
	RunStatusPending   RunStatus = "pending"
	RunStatusRunning   RunStatus = "running"
	RunStatusSucceeded RunStatus = "succeeded"
	RunStatusDegraded  RunStatus = "degraded"
	RunStatusFailed    RunStatus = "failed"
)

// StepResult records one executed step
type StepResult struct {
	Name     string        `json:"name"`
	Outcome  StepOutcome   `json:"outcome"`
	Started  time.Time     `json:"started"`
	Duration time.Duration `json:"duration"`
}

// RunReport is what the orchestrator hands back to the CLI
type RunReport struct {
	RunID     string             `json:"run_id"`
	Status    RunStatus          `json:"status"`
	Started   time.Time          `json:"started"`
	Finished  time.Time          `json:"finished"`
	Steps     []StepResult       `json:"steps"`
	Responses []CapturedResponse `json:"responses,omitempty"`
}

// Degradations - returns every step that finished degraded, in run order
func (r *RunReport) Degradations() []StepResult {
	var out []StepResult
	for _, s := range r.Steps {
		if s.Outcome.IsDegraded() {
			out = append(out, s)
		}
	}
	return out
}

// FatalStep - returns the step that halted the run, if any
func (r *RunReport) FatalStep() (StepResult, bool) {
	for _, s := range r.Steps {
		if s.Outcome.IsFatal() {
			return s, true
		}
	}
	return StepResult{}, false
}

// Succeeded - true when no step was fatal. Degraded runs still count as success.
func (r *RunReport) Succeeded() bool {
	return r.Status == RunStatusSucceeded || r.Status == RunStatusDegraded
}

// ExitCode - process exit code for the run
func (r *RunReport) ExitCode() int {
	if r.Succeeded() {
		return 0
	}
	return 1
}
