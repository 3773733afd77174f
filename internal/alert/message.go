package alert

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hamed0406/servermonitor/internal/domain"
)

const timeLayout = "2006-01-02 15:04:05"

type Message struct {
	ID    string
	Title string
	Text  string
}

// Failure renders the alert sent when t crosses (or stays past) the threshold.
func Failure(t domain.Target, at time.Time) Message {
	id := uuid.NewString()
	var b strings.Builder
	b.WriteString("Server Monitoring Alert\n\n")
	fmt.Fprintf(&b, "Server: %s\n", t.ID)
	b.WriteString("Status: UNREACHABLE\n")
	fmt.Fprintf(&b, "Consecutive Failures: %d\n", t.ConsecutiveFailures)
	fmt.Fprintf(&b, "Time: %s\n", at.Format(timeLayout))
	fmt.Fprintf(&b, "Alert ID: %s\n\n", id)
	b.WriteString("Please investigate the server connectivity issue.\n\n")
	b.WriteString("---\nThis is an automated message from Server Monitor.")
	return Message{
		ID:    id,
		Title: fmt.Sprintf("Server Alert: %s is unreachable", t.ID),
		Text:  b.String(),
	}
}

// Test renders the message used to verify a notification channel.
func Test(channel string, at time.Time) Message {
	var b strings.Builder
	b.WriteString("This is a test notification from Server Monitor.\n\n")
	fmt.Fprintf(&b, "Channel: %s\n", channel)
	fmt.Fprintf(&b, "Time: %s\n\n", at.Format(timeLayout))
	b.WriteString("If you received this message, the notification configuration is working correctly.")
	return Message{
		ID:    uuid.NewString(),
		Title: "Server Monitor - Test Notification",
		Text:  b.String(),
	}
}
