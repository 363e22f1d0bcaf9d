package cli

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/deskclock/internal/config"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "deskclock", cmd.Use)
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := [][]string{
		{"alarm", "list"}, {"alarm", "add"}, {"alarm", "update"},
		{"alarm", "enable"}, {"alarm", "disable"}, {"alarm", "delete"},
		{"instance", "list"}, {"instance", "set-state"},
		{"instance", "snooze"}, {"instance", "dismiss"},
		{"db", "info"}, {"db", "migrate"},
		{"watch"}, {"test"},
	}

	for _, path := range commands {
		name := path[len(path)-1]
		t.Run(name, func(t *testing.T) {
			subCmd, _, err := cmd.Find(path)
			require.NoError(t, err, "Command %v should exist", path)
			require.NotNil(t, subCmd)
			assert.Equal(t, name, subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)

	for _, name := range []string{"config", "db"} {
		f := cmd.PersistentFlags().Lookup(name)
		require.NotNil(t, f, name)
		assert.Equal(t, "", f.DefValue)
	}
}

func TestWatchCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	watchCmd, _, err := cmd.Find([]string{"watch"})
	require.NoError(t, err)

	assert.Equal(t, "1s", watchCmd.Flags().Lookup("period").DefValue)
	assert.Equal(t, "0", watchCmd.Flags().Lookup("count").DefValue)
}

func TestInvalidFormat(t *testing.T) {
	h := newEnv(t)

	res := h.run("alarm", "list", "--format", "xml")
	assert.Equal(t, ExitCommandError, res.code)
	assert.Contains(t, res.stderr, "invalid format")
}

func TestJSONErrorGoesToStdout(t *testing.T) {
	h := newEnv(t)

	res := h.run("alarm", "enable", "7", "--format", "json")
	assert.Equal(t, ExitFailure, res.code)
	assert.Contains(t, res.stdout, `"status":"error"`)
	assert.Contains(t, res.stdout, `"code":"E005"`)
	assert.Empty(t, res.stderr)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer

	log := newLogger(&buf, config.Log{Level: "warn", Format: "json"}, false)
	log.Info("hidden")
	log.Warn("shown", "k", 1)
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)

	buf.Reset()
	log = newLogger(&buf, config.Log{Level: "error", Format: "text"}, true)
	assert.True(t, log.Enabled(t.Context(), slog.LevelDebug), "--verbose forces debug")
	log.Debug("detail")
	assert.Contains(t, buf.String(), "msg=detail")
}
