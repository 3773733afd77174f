package domain

import "time"

// Status is the tri-state reachability of a target.
type Status int

const (
	StatusUnknown Status = iota
	StatusUp
	StatusDown
)

func (s Status) String() string {
	switch s {
	case StatusUp:
		return "up"
	case StatusDown:
		return "down"
	default:
		return "unknown"
	}
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Status) UnmarshalText(b []byte) error {
	switch string(b) {
	case "up":
		*s = StatusUp
	case "down":
		*s = StatusDown
	default:
		*s = StatusUnknown
	}
	return nil
}

// Target is one monitored endpoint, keyed by IP or hostname.
type Target struct {
	ID                      string     `json:"id"`
	Status                  Status     `json:"status"`
	LastCheckedAt           *time.Time `json:"last_checked_at"`
	LastLatencyMS           int        `json:"last_latency_ms"`
	ConsecutiveFailures     int        `json:"consecutive_failures"`
	LastAlertedFailureCount *int       `json:"last_alerted_failure_count"`
}

// Clone returns a copy that shares no pointers with t.
func (t Target) Clone() Target {
	out := t
	if t.LastCheckedAt != nil {
		v := *t.LastCheckedAt
		out.LastCheckedAt = &v
	}
	if t.LastAlertedFailureCount != nil {
		v := *t.LastAlertedFailureCount
		out.LastAlertedFailureCount = &v
	}
	return out
}

// StatusChange is emitted on Up->Down and Down->Up transitions.
type StatusChange struct {
	TargetID string    `json:"target_id"`
	From     Status    `json:"from"`
	To       Status    `json:"to"`
	At       time.Time `json:"at"`
}

// ProbeOutcome is the result of a one-off probe that does not touch target state.
type ProbeOutcome struct {
	TargetID  string `json:"target_id"`
	Reachable bool   `json:"reachable"`
	LatencyMS int    `json:"latency_ms"`
	Message   string `json:"message,omitempty"`
}
