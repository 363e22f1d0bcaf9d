package alarm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAlarmValues_OmitsUnsetID(t *testing.T) {
	v := New(7, 15).Values()
	assert.False(t, v.Has(ColID))

	saved := New(7, 15)
	saved.ID = 3
	assert.Equal(t, int64(3), saved.Values()[ColID])
}

func TestAlarmValues_DefaultRingtoneIsExplicitNull(t *testing.T) {
	v := New(7, 15).Values()
	require.True(t, v.Has(ColRingtone))
	assert.Nil(t, v[ColRingtone])

	a := New(7, 15)
	a.Ringtone = SilentRingtone
	assert.Equal(t, string(SilentRingtone), a.Values()[ColRingtone])
}

func TestAlarmValues_RoundTrip(t *testing.T) {
	cases := []Alarm{
		sampleAlarm(),
		New(0, 0),
		{ID: 99, Hour: 23, Minutes: 59, DaysOfWeek: Weekend, Label: "late", Ringtone: "content://media/internal/audio/5",
			DeleteAfterUse: true, Flash: true, DismissOnRingtoneEnd: true},
		{ID: 4, Ringtone: SilentRingtone},
	}
	for _, want := range cases {
		got, err := AlarmFromValues(want.Values())
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestAlarmFromValues_NullRingtoneIsDefault(t *testing.T) {
	got, err := AlarmFromValues(Values{ColID: int64(2), ColRingtone: nil, ColHour: int64(6)})
	require.NoError(t, err)
	assert.True(t, got.Ringtone.IsDefault())
	assert.Equal(t, ID(2), got.ID)
	assert.Equal(t, 6, got.Hour)
}

func TestAlarmFromValues_DriverShapes(t *testing.T) {
	// SQLite hands back int64 for INTEGER columns and may hand back []byte for TEXT.
	got, err := AlarmFromValues(Values{
		ColID:         int64(5),
		ColEnabled:    int64(1),
		ColVibrate:    int64(0),
		ColLabel:      []byte("bytes"),
		ColDaysOfWeek: int64(Workdays),
	})
	require.NoError(t, err)
	assert.True(t, got.Enabled)
	assert.False(t, got.Vibrate)
	assert.Equal(t, "bytes", got.Label)
	assert.Equal(t, Workdays, got.DaysOfWeek)
}

func TestAlarmFromValues_BadType(t *testing.T) {
	_, err := AlarmFromValues(Values{ColHour: struct{}{}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), ColHour)
}

func TestAlarmFromValues_MissingIDIsInvalid(t *testing.T) {
	got, err := AlarmFromValues(Values{ColHour: 5})
	require.NoError(t, err)
	assert.Equal(t, InvalidID, got.ID)
}

func TestInstanceValues_RoundTrip(t *testing.T) {
	want := sampleInstance()
	got, err := InstanceFromValues(want.Values())
	require.NoError(t, err)
	assert.Equal(t, want, got)

	detached := sampleInstance()
	detached.AlarmID = InvalidID
	detached.ID = InvalidID
	v := detached.Values()
	assert.False(t, v.Has(ColID))
	require.True(t, v.Has(ColAlarmID))
	assert.Nil(t, v[ColAlarmID])

	got, err = InstanceFromValues(v)
	require.NoError(t, err)
	assert.Equal(t, detached, got)
}

func TestValues_NormalizesLabel(t *testing.T) {
	a := New(6, 0)
	a.Label = "Cafe\u0301"
	assert.Equal(t, "Caf\u00e9", a.Values()[ColLabel])
}

func TestJoinedFromValues(t *testing.T) {
	row := sampleAlarm().Values()
	for k, v := range sampleInstance().Values() {
		row[InstancePrefix+k] = v
	}
	got, err := JoinedFromValues(row)
	require.NoError(t, err)
	assert.Equal(t, sampleAlarm(), got.Alarm)
	require.NotNil(t, got.Instance)
	assert.Equal(t, sampleInstance(), *got.Instance)

	lonely := sampleAlarm().Values()
	lonely[InstancePrefix+ColID] = nil
	got, err = JoinedFromValues(lonely)
	require.NoError(t, err)
	assert.Nil(t, got.Instance)
}
