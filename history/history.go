package history

import "time"

// Outcome of a recorded boot sequence
const (
	OutcomeRunning string = "Running"
	OutcomeReady          = "Ready"
	OutcomeFailed         = "Failed"
)

// Record describes one boot sequence
type Record struct {
	SequenceID string     `json:"sequenceId" gorm:"primaryKey"`
	InstanceID string     `json:"instanceId" gorm:"not null;index"`
	Outcome    string     `json:"outcome"`
	LastPhase  int        `json:"lastPhase"`
	Error      string     `json:"error,omitempty"`
	StartedAt  time.Time  `json:"startedAt" gorm:"not null;index"`
	FinishedAt *time.Time `json:"finishedAt"`
}

// Duration is zero until the sequence finished
func (r *Record) Duration() time.Duration {
	if r.FinishedAt == nil {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
