package alarm

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 2026-10-14 is a Wednesday.
var wednesdayMorning = time.Date(2026, 10, 14, 7, 0, 0, 0, time.UTC)

func TestNextFiring_LaterToday(t *testing.T) {
	a := New(8, 30)
	assert.Equal(t, time.Date(2026, 10, 14, 8, 30, 0, 0, time.UTC), a.NextFiring(wednesdayMorning))
}

func TestNextFiring_AlreadyPassedRollsToTomorrow(t *testing.T) {
	a := New(6, 45)
	assert.Equal(t, time.Date(2026, 10, 15, 6, 45, 0, 0, time.UTC), a.NextFiring(wednesdayMorning))
}

func TestNextFiring_ExactlyNowIsNotNext(t *testing.T) {
	a := New(7, 0)
	assert.Equal(t, time.Date(2026, 10, 15, 7, 0, 0, 0, time.UTC), a.NextFiring(wednesdayMorning))
}

func TestNextFiring_RespectsWeekdays(t *testing.T) {
	a := New(8, 30)
	a.DaysOfWeek = Monday | Friday
	next := a.NextFiring(wednesdayMorning)
	assert.Equal(t, time.Date(2026, 10, 16, 8, 30, 0, 0, time.UTC), next)
	assert.Equal(t, time.Friday, next.Weekday())

	// Friday evening: next is Monday.
	fridayNight := time.Date(2026, 10, 16, 22, 0, 0, 0, time.UTC)
	next = a.NextFiring(fridayNight)
	assert.Equal(t, time.Date(2026, 10, 19, 8, 30, 0, 0, time.UTC), next)
}

func TestNextFiring_WeeklyWrapsToSameDay(t *testing.T) {
	a := New(6, 0)
	a.DaysOfWeek = Wednesday
	assert.Equal(t, time.Date(2026, 10, 21, 6, 0, 0, 0, time.UTC), a.NextFiring(wednesdayMorning))
}

func TestCreateInstanceAfter(t *testing.T) {
	a := sampleAlarm()
	a.Ringtone = "content://media/1"
	a.Flash = true

	inst := a.CreateInstanceAfter(wednesdayMorning)
	assert.Equal(t, InvalidID, inst.ID)
	assert.Equal(t, a.ID, inst.AlarmID)
	assert.Equal(t, StateSilent, inst.State)
	assert.Equal(t, a.Label, inst.Label)
	assert.Equal(t, a.Ringtone, inst.Ringtone)
	assert.True(t, inst.Flash)
	assert.Equal(t, a.NextFiring(wednesdayMorning), inst.AlarmTime(time.UTC))
}

func TestInstanceNotificationTimes(t *testing.T) {
	inst := sampleInstance()
	at := inst.AlarmTime(time.UTC)
	assert.Equal(t, at.Add(-2*time.Hour), inst.LowNotificationTime(time.UTC))
	assert.Equal(t, at.Add(-30*time.Minute), inst.HighNotificationTime(time.UTC))
	assert.Equal(t, at.Add(12*time.Hour), inst.MissedTimeToLive(time.UTC))
}

func TestSameFiring(t *testing.T) {
	a := sampleInstance()
	b := sampleInstance()
	b.ID = 99
	b.State = StateFired
	assert.True(t, a.SameFiring(b))

	b.Minutes++
	assert.False(t, a.SameFiring(b))
}

func TestValidate(t *testing.T) {
	require.NoError(t, New(23, 59).Validate())
	assert.Error(t, New(24, 0).Validate())
	assert.Error(t, New(5, 60).Validate())

	a := New(5, 0)
	a.DaysOfWeek = 1 << 7
	assert.Error(t, a.Validate())
}

func TestIDScanAndValue(t *testing.T) {
	var id ID
	require.NoError(t, id.Scan(nil))
	assert.Equal(t, InvalidID, id)
	require.NoError(t, id.Scan(int64(8)))
	assert.Equal(t, ID(8), id)

	v, err := InvalidID.Value()
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestRingtoneScanAndValue(t *testing.T) {
	var r Ringtone
	require.NoError(t, r.Scan(nil))
	assert.True(t, r.IsDefault())
	require.NoError(t, r.Scan([]byte("silent:")))
	assert.True(t, r.IsSilent())

	v, err := DefaultRingtone.Value()
	require.NoError(t, err)
	assert.Nil(t, v)
}
