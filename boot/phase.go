package boot

import "strconv"

// Phase is the progress of the boot sequence, published as an integer on the status surface
type Phase int32

const (
	PhaseFailed           Phase = -1
	PhaseIdle             Phase = 0
	PhaseStartingInstance Phase = 1
	PhaseAwaitingLiveness Phase = 2
	PhaseReady            Phase = 3
)

func (p Phase) String() string {
	switch p {
	case PhaseFailed:
		return "FAILED"
	case PhaseIdle:
		return "IDLE"
	case PhaseStartingInstance:
		return "STARTING_INSTANCE"
	case PhaseAwaitingLiveness:
		return "AWAITING_LIVENESS"
	case PhaseReady:
		return "READY"
	default:
		return "UNKNOWN_PHASE:" + strconv.Itoa(int(p))
	}
}

// Terminal reports whether p ends a boot sequence
func (p Phase) Terminal() bool {
	return p == PhaseReady || p == PhaseFailed
}
