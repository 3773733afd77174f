package domain

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestTarget_CloneDoesNotShare(t *testing.T) {
	now := time.Date(2025, 8, 18, 12, 0, 0, 0, time.UTC)
	n := 3
	orig := Target{ID: "10.0.0.1", Status: StatusDown, LastCheckedAt: &now, LastAlertedFailureCount: &n}

	cp := orig.Clone()
	*cp.LastAlertedFailureCount = 9
	*cp.LastCheckedAt = now.Add(time.Hour)

	if *orig.LastAlertedFailureCount != 3 {
		t.Fatalf("clone shares alert count pointer")
	}
	if !orig.LastCheckedAt.Equal(now) {
		t.Fatalf("clone shares checked-at pointer")
	}
}

func TestStatus_JSON(t *testing.T) {
	b, err := json.Marshal(Target{ID: "a", Status: StatusUp})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var got Target
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Status != StatusUp {
		t.Fatalf("want up, got %v (%s)", got.Status, b)
	}
}

func TestMonitorConfig_Validate(t *testing.T) {
	cases := []struct {
		cfg  MonitorConfig
		want bool
	}{
		{MonitorConfig{CheckIntervalSeconds: 5, MaxConsecutiveFailures: 1}, true},
		{MonitorConfig{CheckIntervalSeconds: 4, MaxConsecutiveFailures: 1}, false},
		{MonitorConfig{CheckIntervalSeconds: 60, MaxConsecutiveFailures: 0}, false},
	}
	for _, c := range cases {
		err := c.cfg.Validate()
		if (err == nil) != c.want {
			t.Fatalf("Validate(%+v)=%v want ok=%v", c.cfg, err, c.want)
		}
		if err != nil && !errors.Is(err, ErrInvalidSettings) {
			t.Fatalf("want ErrInvalidSettings, got %v", err)
		}
	}
}

func TestState_ConfigAppliesDefaults(t *testing.T) {
	got := State{CheckInterval: 0, MaxFailures: 5}.Config()
	if got.CheckIntervalSeconds != DefaultCheckIntervalSeconds || got.MaxConsecutiveFailures != 5 {
		t.Fatalf("unexpected config: %+v", got)
	}
}
