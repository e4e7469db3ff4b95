package instance

import "strconv"

// StateCode mirrors the lifecycle codes reported by the instance provider.
// The values are defined by the provider API and must not be renumbered.
type StateCode int32

const (
	StateUnknown      StateCode = -1
	StatePending      StateCode = 0
	StateRunning      StateCode = 16
	StateShuttingDown StateCode = 32
	StateTerminated   StateCode = 48
	StateStopping     StateCode = 64
	StateStopped      StateCode = 80
)

var stateNames = map[StateCode]string{
	StateUnknown:      "UNKNOWN",
	StatePending:      "PENDING",
	StateRunning:      "RUNNING",
	StateShuttingDown: "SHUTTING_DOWN",
	StateTerminated:   "TERMINATED",
	StateStopping:     "STOPPING",
	StateStopped:      "STOPPED",
}

var stateCodes = func() map[string]StateCode {
	m := make(map[string]StateCode, len(stateNames))
	for code, name := range stateNames {
		m[name] = code
	}
	return m
}()

// NameOf returns the registered name of code, or UNKNOWN_STATUS_CODE:<code>
func NameOf(code int) string {
	if name, ok := stateNames[StateCode(code)]; ok && int(StateCode(code)) == code {
		return name
	}
	return "UNKNOWN_STATUS_CODE:" + strconv.Itoa(code)
}

func (s StateCode) String() string {
	return NameOf(int(s))
}

// Known reports whether s is one of the registered codes
func (s StateCode) Known() bool {
	_, ok := stateNames[s]
	return ok
}

// ParseStateName is the reverse of NameOf for registered names
func ParseStateName(name string) (StateCode, bool) {
	code, ok := stateCodes[name]
	return code, ok
}
