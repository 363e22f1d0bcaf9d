package alarm

import (
	"encoding/hex"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleAlarm() Alarm {
	return Alarm{
		ID:               7,
		Enabled:          true,
		Hour:             8,
		Minutes:          30,
		DaysOfWeek:       Monday | Wednesday,
		Vibrate:          true,
		Label:            "Wake",
		IncreasingVolume: true,
		SnoozeActions:    true,
	}
}

func sampleInstance() Instance {
	return Instance{
		ID:               12,
		Year:             2026,
		Month:            10,
		Day:              16,
		Hour:             8,
		Minutes:          30,
		Vibrate:          true,
		Label:            "Wake",
		Ringtone:         SilentRingtone,
		AlarmID:          7,
		State:            StateSnooze,
		IncreasingVolume: true,
		SnoozeActions:    true,
	}
}

func assertParcelGolden(t *testing.T, name string, data []byte) {
	t.Helper()
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, []byte(hex.EncodeToString(data)+"\n"))
}

func TestAlarmParcel_Layout(t *testing.T) {
	data, err := sampleAlarm().MarshalBinary()
	require.NoError(t, err)
	assertParcelGolden(t, "alarm_parcel", data)
}

func TestInstanceParcel_Layout(t *testing.T) {
	data, err := sampleInstance().MarshalBinary()
	require.NoError(t, err)
	assertParcelGolden(t, "instance_parcel", data)
}

func TestAlarmParcel_RoundTrip(t *testing.T) {
	cases := map[string]Alarm{
		"sample":           sampleAlarm(),
		"unsaved":          New(6, 0),
		"silent ringtone":  func() Alarm { a := sampleAlarm(); a.Ringtone = SilentRingtone; return a }(),
		"custom ringtone":  func() Alarm { a := sampleAlarm(); a.Ringtone = "content://media/42"; return a }(),
		"every flag set":   {ID: 1, Enabled: true, Vibrate: true, DeleteAfterUse: true, IncreasingVolume: true, Flash: true, DismissOnRingtoneEnd: true, SnoozeActions: true, DaysOfWeek: Everyday},
		"non ascii label":  func() Alarm { a := sampleAlarm(); a.Label = "Réveil ⏰"; return a }(),
	}
	for name, want := range cases {
		t.Run(name, func(t *testing.T) {
			data, err := want.MarshalBinary()
			require.NoError(t, err)

			var got Alarm
			require.NoError(t, got.UnmarshalBinary(data))
			assert.Equal(t, want, got)
		})
	}
}

func TestInstanceParcel_RoundTripDetached(t *testing.T) {
	want := sampleInstance()
	want.AlarmID = InvalidID
	want.Ringtone = DefaultRingtone

	data, err := want.MarshalBinary()
	require.NoError(t, err)

	var got Instance
	require.NoError(t, got.UnmarshalBinary(data))
	assert.Equal(t, want, got)
}

func TestParcel_Rejects(t *testing.T) {
	good, err := sampleAlarm().MarshalBinary()
	require.NoError(t, err)

	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"wrong version", append([]byte{9}, good[1:]...)},
		{"wrong kind", append([]byte{ParcelVersion, 'I'}, good[2:]...)},
		{"truncated", good[:len(good)-3]},
		{"trailing bytes", append(append([]byte{}, good...), 0xff)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var a Alarm
			err := a.UnmarshalBinary(tt.data)
			assert.ErrorIs(t, err, ErrBadParcel)
		})
	}
}

func TestParcel_FailedDecodeLeavesTargetUntouched(t *testing.T) {
	a := sampleAlarm()
	err := a.UnmarshalBinary([]byte{ParcelVersion, 'A', 0, 0})
	require.Error(t, err)
	assert.Equal(t, sampleAlarm(), a)
}
