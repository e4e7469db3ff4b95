package history

import (
	"errors"
	"testing"
	"time"

	"github.com/zllovesuki/launchpad/boot"

	"github.com/stretchr/testify/assert"
)

func TestChanges(t *testing.T) {
	at := time.Date(2020, 11, 3, 8, 30, 0, 0, time.UTC)

	awaiting := changes(boot.Transition{To: boot.PhaseAwaitingLiveness, At: at})
	assert.Equal(t, map[string]interface{}{"last_phase": 2}, awaiting)

	ready := changes(boot.Transition{To: boot.PhaseReady, At: at})
	assert.Equal(t, OutcomeReady, ready["outcome"])
	assert.Equal(t, at, ready["finished_at"])

	failed := changes(boot.Transition{To: boot.PhaseFailed, At: at, Err: errors.New("Timeout reached")})
	assert.Equal(t, OutcomeFailed, failed["outcome"])
	assert.Equal(t, -1, failed["last_phase"])
	assert.Equal(t, "Timeout reached", failed["error"])
}

func TestRecordDuration(t *testing.T) {
	start := time.Date(2020, 11, 3, 8, 30, 0, 0, time.UTC)
	r := Record{StartedAt: start}
	assert.Zero(t, r.Duration())

	end := start.Add(95 * time.Second)
	r.FinishedAt = &end
	assert.Equal(t, 95*time.Second, r.Duration())
}

func TestNewManagerValidation(t *testing.T) {
	_, err := NewManager(nil, nil)
	assert.Error(t, err)
}
