package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roach88/deskclock/internal/testutil"
)

// Wednesday 2026-10-14 07:00 UTC.
var testNow = time.Date(2026, time.October, 14, 7, 0, 0, 0, time.UTC)

type cliEnv struct {
	t      *testing.T
	db     string
	config string
	clock  *testutil.FixedClock
	dial   func(broker, clientID string, log *slog.Logger) (mqttClient, error)
}

// newEnv points the CLI at a fresh database with seeding off.
func newEnv(t *testing.T) *cliEnv {
	t.Helper()
	return &cliEnv{
		t:      t,
		db:     filepath.Join(t.TempDir(), "test.db"),
		config: writeConfig(t, "database:\n  seed_defaults: false\nlog:\n  level: error\n"),
		clock:  testutil.NewFixedClock(testNow),
	}
}

type result struct {
	stdout string
	stderr string
	code   int
}

func (h *cliEnv) run(args ...string) result {
	h.t.Helper()
	opts := &RootOptions{now: h.clock.Now, loc: time.UTC, dialMQTT: h.dial}
	var stdout, stderr bytes.Buffer
	args = append(args, "--db", h.db, "--config", h.config)
	code := execute(context.Background(), newRootCommand(opts), opts, args, &stdout, &stderr)
	return result{stdout: stdout.String(), stderr: stderr.String(), code: code}
}

// ok runs args and fails the test on a non-zero exit.
func (h *cliEnv) ok(args ...string) string {
	h.t.Helper()
	res := h.run(args...)
	require.Equal(h.t, ExitSuccess, res.code, "stdout: %s\nstderr: %s", res.stdout, res.stderr)
	return res.stdout
}

// okJSON runs args with --format json and decodes the data payload into v.
func (h *cliEnv) okJSON(v any, args ...string) {
	h.t.Helper()
	out := h.ok(append(args, "--format", "json")...)
	var resp struct {
		Status string          `json:"status"`
		Data   json.RawMessage `json:"data"`
	}
	require.NoError(h.t, json.Unmarshal([]byte(out), &resp), out)
	require.Equal(h.t, "ok", resp.Status)
	require.NoError(h.t, json.Unmarshal(resp.Data, v), string(resp.Data))
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "deskclock.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}
