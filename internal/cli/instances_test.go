package cli

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/deskclock/internal/alarm"
)

func TestInstance_FireSnoozeDismiss(t *testing.T) {
	h := newEnv(t)
	h.ok("alarm", "add", "07:30")

	var moved instanceResult
	h.okJSON(&moved, "instance", "set-state", "1", "notification")
	assert.Equal(t, alarm.StateNotification, moved.Instance.State)
	h.okJSON(&moved, "instance", "set-state", "1", "3")
	assert.Equal(t, alarm.StateFired, moved.Instance.State)

	h.clock.Set(time.Date(2026, time.October, 14, 7, 31, 0, 0, time.UTC))
	var snoozed instanceResult
	h.okJSON(&snoozed, "instance", "snooze", "1")
	assert.Equal(t, "snoozed", snoozed.Action)
	assert.Equal(t, alarm.StateSnooze, snoozed.Instance.State)
	assert.Equal(t, time.Date(2026, time.October, 14, 7, 41, 0, 0, time.UTC), snoozed.Instance.AlarmTime(time.UTC))

	var dismissed dismissResult
	h.okJSON(&dismissed, "instance", "dismiss", "1")
	assert.Equal(t, dismissResult{InstanceID: 1, Predismissed: true, AlarmDisabled: true}, dismissed)

	var alarms []alarm.AlarmWithInstance
	h.okJSON(&alarms, "alarm", "list")
	require.Len(t, alarms, 1)
	assert.False(t, alarms[0].Alarm.Enabled)
}

func TestInstance_DismissRepeatingText(t *testing.T) {
	h := newEnv(t)
	h.ok("alarm", "add", "07:30", "--days", "workdays")
	h.ok("instance", "set-state", "1", "NOTIFICATION")
	h.ok("instance", "set-state", "1", "FIRED")

	out := h.ok("instance", "dismiss", "1")
	assert.Contains(t, out, "instance 1 dismissed")
	assert.Contains(t, out, "next Thu 2026-10-15 07:30")
}

func TestInstance_InvalidTransition(t *testing.T) {
	h := newEnv(t)
	h.ok("alarm", "add", "07:30")

	res := h.run("instance", "set-state", "1", "DISMISSED", "--format", "json")
	assert.Equal(t, ExitFailure, res.code)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &resp), res.stdout)
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeTransition, resp.Error.Code)
	assert.Contains(t, resp.Error.Message, "SILENT -> DISMISSED")

	res = h.run("instance", "snooze", "1")
	assert.Equal(t, ExitFailure, res.code)
	assert.Contains(t, res.stderr, "Error [E006]")
}

func TestInstance_BadState(t *testing.T) {
	h := newEnv(t)
	h.ok("alarm", "add", "07:30")

	res := h.run("instance", "set-state", "1", "RINGING")
	assert.Equal(t, ExitCommandError, res.code)
	assert.Contains(t, res.stderr, "unknown instance state")
}

func TestInstance_ListText(t *testing.T) {
	h := newEnv(t)
	h.ok("alarm", "add", "07:30", "--label", "Early")
	h.ok("alarm", "add", "09:00")

	out := h.ok("instance", "list")
	assert.Contains(t, out, "ALARM")
	assert.Contains(t, out, "Wed 2026-10-14 07:30")
	assert.Contains(t, out, "Wed 2026-10-14 09:00")
	assert.Contains(t, out, "Early")

	var insts []alarm.Instance
	h.okJSON(&insts, "instance", "list", "--alarm", "2")
	require.Len(t, insts, 1)
	assert.Equal(t, alarm.ID(2), insts[0].AlarmID)
}
