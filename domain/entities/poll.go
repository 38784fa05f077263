package entities

import "time"

// PollPhase represents the state of the generation-wait poller
type PollPhase string

const (
	PollWaiting  PollPhase = "waiting"
	PollComplete PollPhase = "complete"
	PollTimedOut PollPhase = "timed_out"
)

// PollState is owned by a single poller run.
// Elapsed never exceeds MaxWait by more than one Interval.
type PollState struct {
	Phase      PollPhase     `json:"phase"`
	Elapsed    time.Duration `json:"elapsed"`
	MaxWait    time.Duration `json:"max_wait"`
	Interval   time.Duration `json:"interval"`
	Indicators []string      `json:"busy_indicators"`
	Ticks      int           `json:"ticks"`
}
