package probe

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	ModeICMP = "icmp"
	ModeExec = "exec"
	ModeTCP  = "tcp"
	ModeHTTP = "http"
)

type Options struct {
	Mode       string
	Timeout    time.Duration
	TCPPort    int
	PingPath   string
	Privileged bool
}

// New builds the checker for opts.Mode, wrapped in the MaxTimeout hard limit.
func New(opts Options, logger *zap.Logger) (Checker, error) {
	var c Checker
	switch strings.ToLower(strings.TrimSpace(opts.Mode)) {
	case ModeICMP, "":
		c = NewICMPChecker(opts.Timeout, opts.Privileged, logger)
	case ModeExec:
		c = NewExecChecker(opts.PingPath, opts.Timeout, logger)
	case ModeTCP:
		c = NewTCPChecker(opts.Timeout, opts.TCPPort)
	case ModeHTTP:
		c = NewHTTPChecker(opts.Timeout)
	default:
		return nil, fmt.Errorf("unknown probe mode %q", opts.Mode)
	}
	return WithTimeout(c, MaxTimeout), nil
}
