package notify

import (
	"context"
	"strings"

	"go.uber.org/multierr"
)

// Notifier delivers a rendered message to one channel.
type Notifier interface {
	Name() string
	// Usable reports whether the channel is fully configured.
	Usable() bool
	Send(ctx context.Context, title, text string) error
}

// Multi fans a message out to every usable member.
type Multi []Notifier

func (m Multi) Name() string {
	names := make([]string, 0, len(m))
	for _, n := range m {
		if n != nil && n.Usable() {
			names = append(names, n.Name())
		}
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, ", ")
}

func (m Multi) Usable() bool {
	for _, n := range m {
		if n != nil && n.Usable() {
			return true
		}
	}
	return false
}

func (m Multi) Send(ctx context.Context, title, text string) error {
	var err error
	for _, n := range m {
		if n == nil || !n.Usable() {
			continue
		}
		err = multierr.Append(err, n.Send(ctx, title, text))
	}
	return err
}
