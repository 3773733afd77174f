package probe

import (
	"testing"

	"go.uber.org/zap"
)

func TestNew_Modes(t *testing.T) {
	for _, mode := range []string{"", "icmp", "exec", "tcp", "HTTP"} {
		c, err := New(Options{Mode: mode}, zap.NewNop())
		if err != nil {
			t.Fatalf("New(%q): %v", mode, err)
		}
		if _, ok := c.(*TimeoutChecker); !ok {
			t.Fatalf("New(%q) not wrapped in a timeout: %T", mode, c)
		}
	}
	if _, err := New(Options{Mode: "carrier-pigeon"}, zap.NewNop()); err == nil {
		t.Fatalf("want error for unknown mode")
	}
}
