// Package alert decides when a failing target must be notified and renders
// the notification text.
package alert

import "github.com/hamed0406/servermonitor/internal/domain"

// Evaluate reports whether a notification must fire for t this cycle.
//
// It fires once the failure streak reaches maxFailures and again for every
// further increment of the streak, because the dedup key is the failure count
// itself. A recovery clears LastAlertedFailureCount so the next streak alerts
// fresh. Nothing fires while the channel is unusable.
func Evaluate(t domain.Target, maxFailures int, channelUsable bool) bool {
	if !channelUsable {
		return false
	}
	if t.ConsecutiveFailures < maxFailures {
		return false
	}
	if t.LastAlertedFailureCount != nil && *t.LastAlertedFailureCount == t.ConsecutiveFailures {
		return false
	}
	return true
}
