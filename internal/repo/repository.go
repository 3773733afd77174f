package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hamed0406/servermonitor/internal/domain"
)

// ErrMalformedState is returned by Load when a persisted document exists but
// cannot be decoded. Callers treat it like an absent document.
var ErrMalformedState = errors.New("malformed persisted state")

// StateStore persists registry membership and settings. Load returns the
// default state and a nil error when nothing has been saved yet.
type StateStore interface {
	Load(ctx context.Context) (domain.State, error)
	Save(ctx context.Context, st domain.State) error
}

// Encode renders st as the on-disk JSON document.
func Encode(st domain.State) ([]byte, error) {
	if st.Servers == nil {
		st.Servers = []string{}
	}
	return json.MarshalIndent(st, "", "  ")
}

// Decode parses a persisted document. Missing fields take their defaults.
func Decode(b []byte) (domain.State, error) {
	var st domain.State
	if err := json.Unmarshal(b, &st); err != nil {
		return domain.DefaultState(), fmt.Errorf("%w: %v", ErrMalformedState, err)
	}
	cfg := st.Config()
	st.CheckInterval = cfg.CheckIntervalSeconds
	st.MaxFailures = cfg.MaxConsecutiveFailures
	if st.Servers == nil {
		st.Servers = []string{}
	}
	return st, nil
}
