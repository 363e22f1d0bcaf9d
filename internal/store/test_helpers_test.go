package store

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/roach88/deskclock/internal/alarm"
)

// testNow is Wednesday 2026-10-14 07:00 UTC.
var testNow = time.Date(2026, time.October, 14, 7, 0, 0, 0, time.UTC)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// createTestStore creates a new empty store in a temp dir. Options are
// applied after the test defaults (fixed clock, no seed alarms).
func createTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	base := []Option{
		WithClock(func() time.Time { return testNow }),
		WithLogger(quietLogger()),
		WithSeedDefaults(false),
	}
	s, err := Open(path, append(base, opts...)...)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// insertTestAlarm stores an enabled one-shot alarm at hour:minutes.
func insertTestAlarm(t *testing.T, s *Store, hour, minutes int) alarm.Alarm {
	t.Helper()
	a := alarm.New(hour, minutes)
	a.Enabled = true
	if err := s.InsertAlarm(context.Background(), &a); err != nil {
		t.Fatalf("InsertAlarm() failed: %v", err)
	}
	return a
}
