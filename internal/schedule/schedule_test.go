package schedule

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/deskclock/internal/alarm"
	"github.com/roach88/deskclock/internal/notify"
	"github.com/roach88/deskclock/internal/provider"
	"github.com/roach88/deskclock/internal/store"
	"github.com/roach88/deskclock/internal/testutil"
)

// Wednesday 2026-10-14 07:00 UTC.
var start = time.Date(2026, time.October, 14, 7, 0, 0, 0, time.UTC)

type fixture struct {
	svc   *Service
	store *store.Store
	clock *testutil.FixedClock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	clock := testutil.NewFixedClock(start)

	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"),
		store.WithSeedDefaults(false), store.WithLogger(log), store.WithClock(clock.Now))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	p := provider.New(s, notify.NewBus(notify.WithLogger(log)), provider.WithLogger(log))
	svc := New(p,
		WithClock(clock.Now),
		WithLocation(time.UTC),
		WithSnooze(5*time.Minute),
		WithLogger(log),
	)
	return &fixture{svc: svc, store: s, clock: clock}
}

func (f *fixture) addAlarm(t *testing.T, hour, minutes int, days alarm.Weekdays, deleteAfterUse bool) alarm.Alarm {
	t.Helper()
	a := alarm.New(hour, minutes)
	a.DaysOfWeek = days
	a.DeleteAfterUse = deleteAfterUse
	require.NoError(t, f.store.InsertAlarm(context.Background(), &a))
	return a
}

// fire walks an enabled alarm's instance to FIRED.
func (f *fixture) fire(t *testing.T, id alarm.ID) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, f.svc.SetState(ctx, id, alarm.StateNotification))
	require.NoError(t, f.svc.SetState(ctx, id, alarm.StateFired))
}

func TestEnable_SchedulesNextInstance(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.addAlarm(t, 8, 0, alarm.NoDays, false)

	inst, err := f.svc.Enable(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, time.October, 14, 8, 0, 0, 0, time.UTC), inst.AlarmTime(time.UTC))
	assert.Equal(t, alarm.StateSilent, inst.State)

	got, err := f.store.Alarm(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, got.Enabled)

	// Enabling twice keeps one instance.
	_, err = f.svc.Enable(ctx, a.ID)
	require.NoError(t, err)
	insts, err := f.store.InstancesForAlarm(ctx, a.ID)
	require.NoError(t, err)
	assert.Len(t, insts, 1)
}

func TestEnable_UnknownAlarm(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Enable(context.Background(), 404)
	assert.True(t, errors.Is(err, store.ErrNotFound), "got %v", err)
}

func TestDisable_RemovesInstances(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.addAlarm(t, 8, 0, alarm.Everyday, false)
	_, err := f.svc.Enable(ctx, a.ID)
	require.NoError(t, err)

	require.NoError(t, f.svc.Disable(ctx, a.ID))

	got, err := f.store.Alarm(ctx, a.ID)
	require.NoError(t, err)
	assert.False(t, got.Enabled)
	insts, err := f.store.InstancesForAlarm(ctx, a.ID)
	require.NoError(t, err)
	assert.Empty(t, insts)
}

func TestSnooze(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.addAlarm(t, 7, 30, alarm.NoDays, false)
	inst, err := f.svc.Enable(ctx, a.ID)
	require.NoError(t, err)

	_, err = f.svc.Snooze(ctx, inst.ID)
	assert.True(t, errors.Is(err, store.ErrInvalidTransition), "silent instance cannot snooze: %v", err)

	f.fire(t, inst.ID)
	f.clock.Set(time.Date(2026, time.October, 14, 7, 31, 0, 0, time.UTC))

	snoozed, err := f.svc.Snooze(ctx, inst.ID)
	require.NoError(t, err)
	assert.Equal(t, alarm.StateSnooze, snoozed.State)
	assert.Equal(t, time.Date(2026, time.October, 14, 7, 36, 0, 0, time.UTC), snoozed.AlarmTime(time.UTC))

	got, err := f.store.Instance(ctx, inst.ID)
	require.NoError(t, err)
	assert.Equal(t, snoozed, got)
}

func TestDismiss_FiredOneShotDisablesAlarm(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.addAlarm(t, 7, 30, alarm.NoDays, false)
	inst, err := f.svc.Enable(ctx, a.ID)
	require.NoError(t, err)
	f.fire(t, inst.ID)

	res, err := f.svc.Dismiss(ctx, inst.ID)
	require.NoError(t, err)
	assert.Equal(t, DismissResult{AlarmDisabled: true}, res)

	_, err = f.store.Instance(ctx, inst.ID)
	assert.True(t, errors.Is(err, store.ErrNotFound))
	got, err := f.store.Alarm(ctx, a.ID)
	require.NoError(t, err)
	assert.False(t, got.Enabled)
}

func TestDismiss_FiredDeleteAfterUse(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.addAlarm(t, 7, 30, alarm.NoDays, true)
	inst, err := f.svc.Enable(ctx, a.ID)
	require.NoError(t, err)
	f.fire(t, inst.ID)

	res, err := f.svc.Dismiss(ctx, inst.ID)
	require.NoError(t, err)
	assert.True(t, res.AlarmDeleted)

	_, err = f.store.Alarm(ctx, a.ID)
	assert.True(t, errors.Is(err, store.ErrNotFound))
}

func TestDismiss_FiredRepeatingSchedulesNext(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.addAlarm(t, 7, 30, alarm.Workdays, false)
	inst, err := f.svc.Enable(ctx, a.ID)
	require.NoError(t, err)
	f.fire(t, inst.ID)
	f.clock.Set(time.Date(2026, time.October, 14, 7, 32, 0, 0, time.UTC))

	res, err := f.svc.Dismiss(ctx, inst.ID)
	require.NoError(t, err)
	require.NotNil(t, res.Next)
	assert.False(t, res.Predismissed)
	assert.Equal(t, time.Date(2026, time.October, 15, 7, 30, 0, 0, time.UTC), res.Next.AlarmTime(time.UTC))

	insts, err := f.store.InstancesForAlarm(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, insts, 1)
	assert.Equal(t, res.Next.ID, insts[0].ID)
}

func TestDismiss_UpcomingIsPredismissed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	// Friday only: the first instance is Friday 2026-10-16.
	a := f.addAlarm(t, 7, 30, alarm.Friday, false)
	inst, err := f.svc.Enable(ctx, a.ID)
	require.NoError(t, err)
	require.NoError(t, f.svc.SetState(ctx, inst.ID, alarm.StateNotification))

	res, err := f.svc.Dismiss(ctx, inst.ID)
	require.NoError(t, err)
	assert.True(t, res.Predismissed)
	require.NotNil(t, res.Next)
	assert.Equal(t, time.Date(2026, time.October, 23, 7, 30, 0, 0, time.UTC), res.Next.AlarmTime(time.UTC),
		"next firing is after the dismissed one, not after now")

	got, err := f.store.Instance(ctx, inst.ID)
	require.NoError(t, err)
	assert.Equal(t, alarm.StatePredismissed, got.State)

	// The joined view shows the live instance, not the pre-dismissed one.
	rows, err := f.store.AlarmsWithInstances(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.NotNil(t, rows[0].Instance)
	assert.Equal(t, res.Next.ID, rows[0].Instance.ID)

	next, err := f.svc.Next(ctx)
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, res.Next.ID, next.ID)
}

func TestEnable_AfterPredismissKeepsOneLiveInstance(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.addAlarm(t, 8, 0, alarm.Everyday, false)
	first, err := f.svc.Enable(ctx, a.ID)
	require.NoError(t, err)
	require.NoError(t, f.svc.SetState(ctx, first.ID, alarm.StateNotification))
	res, err := f.svc.Dismiss(ctx, first.ID)
	require.NoError(t, err)
	require.True(t, res.Predismissed)
	require.NotNil(t, res.Next)

	again, err := f.svc.Enable(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, res.Next.ID, again.ID)
	assert.Equal(t, time.Date(2026, time.October, 15, 8, 0, 0, 0, time.UTC), again.AlarmTime(time.UTC))

	got, err := f.store.Instance(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, alarm.StatePredismissed, got.State)

	live, err := f.store.Instances(ctx, "alarm_id = ? AND alarm_state NOT IN (?, ?)",
		int64(a.ID), int64(alarm.StateDismissed), int64(alarm.StatePredismissed))
	require.NoError(t, err)
	require.Len(t, live, 1)
	assert.Equal(t, res.Next.ID, live[0].ID)
}

func TestDismiss_RemovesPassedPredismissed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.addAlarm(t, 8, 0, alarm.Everyday, false)
	_, err := f.svc.Enable(ctx, a.ID)
	require.NoError(t, err)

	var last alarm.ID
	for day := 0; day < 4; day++ {
		f.clock.Set(start.AddDate(0, 0, day))
		next, err := f.svc.Next(ctx)
		require.NoError(t, err)
		require.NotNil(t, next)
		require.NoError(t, f.svc.SetState(ctx, next.ID, alarm.StateNotification))
		res, err := f.svc.Dismiss(ctx, next.ID)
		require.NoError(t, err)
		require.True(t, res.Predismissed, "day %d", day)
		last = next.ID

		insts, err := f.store.InstancesForAlarm(ctx, a.ID)
		require.NoError(t, err)
		assert.Len(t, insts, 2, "day %d", day)
	}

	pre, err := f.store.Instances(ctx, "alarm_id = ? AND alarm_state = ?",
		int64(a.ID), int64(alarm.StatePredismissed))
	require.NoError(t, err)
	require.Len(t, pre, 1)
	assert.Equal(t, last, pre[0].ID)
}

func TestDismiss_SilentIsRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.addAlarm(t, 7, 30, alarm.NoDays, false)
	inst, err := f.svc.Enable(ctx, a.ID)
	require.NoError(t, err)

	_, err = f.svc.Dismiss(ctx, inst.ID)
	assert.True(t, errors.Is(err, store.ErrInvalidTransition), "got %v", err)
}

func TestNext(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	next, err := f.svc.Next(ctx)
	require.NoError(t, err)
	assert.Nil(t, next)

	late := f.addAlarm(t, 22, 0, alarm.NoDays, false)
	early := f.addAlarm(t, 9, 0, alarm.NoDays, false)
	_, err = f.svc.Enable(ctx, late.ID)
	require.NoError(t, err)
	want, err := f.svc.Enable(ctx, early.ID)
	require.NoError(t, err)

	next, err = f.svc.Next(ctx)
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, want.ID, next.ID)
}
