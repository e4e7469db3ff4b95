package boot

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Sequence is the handle of one boot sequence. The orchestrator keeps the latest one so
// the outcome stays observable after the trigger has returned.
type Sequence struct {
	ID        string
	StartedAt time.Time

	done chan struct{}

	mu         sync.RWMutex
	phase      Phase
	err        error
	finishedAt time.Time
}

func newSequence() *Sequence {
	return &Sequence{
		ID:        uuid.New().String(),
		StartedAt: time.Now(),
		done:      make(chan struct{}),
		phase:     PhaseStartingInstance,
	}
}

// Done is closed when the sequence reached READY or FAILED
func (s *Sequence) Done() <-chan struct{} {
	return s.done
}

// Err returns the failure cause once Done is closed; nil on READY
func (s *Sequence) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

// Phase returns the last phase this sequence published
func (s *Sequence) Phase() Phase {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.phase
}

// FinishedAt is zero until Done is closed
func (s *Sequence) FinishedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.finishedAt
}

func (s *Sequence) setPhase(p Phase) {
	s.mu.Lock()
	s.phase = p
	s.mu.Unlock()
}

func (s *Sequence) finish(p Phase, err error) {
	s.mu.Lock()
	s.phase = p
	s.err = err
	s.finishedAt = time.Now()
	s.mu.Unlock()
	close(s.done)
}
