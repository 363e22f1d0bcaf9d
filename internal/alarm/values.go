package alarm

import (
	"fmt"
	"strconv"
)

// Values is a column-name keyed row. A key holding nil is an explicit NULL;
// a missing key means "not set".
type Values map[string]any

// Has reports whether key is present, even if it holds nil.
func (v Values) Has(key string) bool {
	_, ok := v[key]
	return ok
}

// Clone returns a shallow copy.
func (v Values) Clone() Values {
	out := make(Values, len(v))
	for k, val := range v {
		out[k] = val
	}
	return out
}

// Values returns the alarm as a column map. The _id key is omitted for an
// unsaved alarm and ringtone is an explicit nil for the system default.
func (a Alarm) Values() Values {
	v := Values{
		ColHour:                 a.Hour,
		ColMinutes:              a.Minutes,
		ColDaysOfWeek:           int(a.DaysOfWeek),
		ColEnabled:              a.Enabled,
		ColVibrate:              a.Vibrate,
		ColLabel:                NormalizeLabel(a.Label),
		ColRingtone:             ringtoneValue(a.Ringtone),
		ColDeleteAfterUse:       a.DeleteAfterUse,
		ColIncreasingVolume:     a.IncreasingVolume,
		ColFlash:                a.Flash,
		ColDismissOnRingtoneEnd: a.DismissOnRingtoneEnd,
		ColSnoozeActions:        a.SnoozeActions,
	}
	if a.ID.Valid() {
		v[ColID] = int64(a.ID)
	}
	return v
}

// Values returns the instance as a column map, following the same rules as
// Alarm.Values. alarm_id is nil when the instance has no template.
func (i Instance) Values() Values {
	v := Values{
		ColYear:                 i.Year,
		ColMonth:                i.Month,
		ColDay:                  i.Day,
		ColHour:                 i.Hour,
		ColMinutes:              i.Minutes,
		ColVibrate:              i.Vibrate,
		ColLabel:                NormalizeLabel(i.Label),
		ColRingtone:             ringtoneValue(i.Ringtone),
		ColAlarmState:           int(i.State),
		ColIncreasingVolume:     i.IncreasingVolume,
		ColFlash:                i.Flash,
		ColDismissOnRingtoneEnd: i.DismissOnRingtoneEnd,
		ColSnoozeActions:        i.SnoozeActions,
	}
	if i.AlarmID.Valid() {
		v[ColAlarmID] = int64(i.AlarmID)
	} else {
		v[ColAlarmID] = nil
	}
	if i.ID.Valid() {
		v[ColID] = int64(i.ID)
	}
	return v
}

func ringtoneValue(r Ringtone) any {
	if r.IsDefault() {
		return nil
	}
	return string(r)
}

// AlarmFromValues decodes an alarm by column name. Missing columns keep
// their zero value, except _id which defaults to InvalidID.
func AlarmFromValues(v Values) (Alarm, error) {
	return alarmFromPrefixed(v, "")
}

// InstanceFromValues decodes an instance by column name.
func InstanceFromValues(v Values) (Instance, error) {
	return instanceFromPrefixed(v, "")
}

func alarmFromPrefixed(v Values, prefix string) (Alarm, error) {
	d := decoder{v: v, prefix: prefix}
	a := Alarm{
		ID:                   d.id(ColID),
		Enabled:              d.bool(ColEnabled),
		Hour:                 d.int(ColHour),
		Minutes:              d.int(ColMinutes),
		DaysOfWeek:           Weekdays(d.int(ColDaysOfWeek)),
		Vibrate:              d.bool(ColVibrate),
		Label:                d.string(ColLabel),
		Ringtone:             Ringtone(d.string(ColRingtone)),
		DeleteAfterUse:       d.bool(ColDeleteAfterUse),
		IncreasingVolume:     d.bool(ColIncreasingVolume),
		Flash:                d.bool(ColFlash),
		DismissOnRingtoneEnd: d.bool(ColDismissOnRingtoneEnd),
		SnoozeActions:        d.bool(ColSnoozeActions),
	}
	if d.err != nil {
		return Alarm{}, fmt.Errorf("decode alarm: %w", d.err)
	}
	return a, nil
}

func instanceFromPrefixed(v Values, prefix string) (Instance, error) {
	d := decoder{v: v, prefix: prefix}
	i := Instance{
		ID:                   d.id(ColID),
		Year:                 d.int(ColYear),
		Month:                d.int(ColMonth),
		Day:                  d.int(ColDay),
		Hour:                 d.int(ColHour),
		Minutes:              d.int(ColMinutes),
		Vibrate:              d.bool(ColVibrate),
		Label:                d.string(ColLabel),
		Ringtone:             Ringtone(d.string(ColRingtone)),
		AlarmID:              d.id(ColAlarmID),
		State:                InstanceState(d.int(ColAlarmState)),
		IncreasingVolume:     d.bool(ColIncreasingVolume),
		Flash:                d.bool(ColFlash),
		DismissOnRingtoneEnd: d.bool(ColDismissOnRingtoneEnd),
		SnoozeActions:        d.bool(ColSnoozeActions),
	}
	if d.err != nil {
		return Instance{}, fmt.Errorf("decode instance: %w", d.err)
	}
	return i, nil
}

// decoder reads typed columns out of Values and keeps the first error.
type decoder struct {
	v      Values
	prefix string
	err    error
}

func (d *decoder) raw(col string) any {
	return d.v[d.prefix+col]
}

func (d *decoder) fail(col string, err error) {
	if d.err == nil {
		d.err = fmt.Errorf("column %s: %w", d.prefix+col, err)
	}
}

func (d *decoder) id(col string) ID {
	src := d.raw(col)
	if src == nil {
		return InvalidID
	}
	n, err := asInt64(src)
	if err != nil {
		d.fail(col, err)
		return InvalidID
	}
	return ID(n)
}

func (d *decoder) int(col string) int {
	src := d.raw(col)
	if src == nil {
		return 0
	}
	n, err := asInt64(src)
	if err != nil {
		d.fail(col, err)
	}
	return int(n)
}

func (d *decoder) bool(col string) bool {
	src := d.raw(col)
	if b, ok := src.(bool); ok {
		return b
	}
	return d.int(col) != 0
}

func (d *decoder) string(col string) string {
	src := d.raw(col)
	if src == nil {
		return ""
	}
	s, err := asString(src)
	if err != nil {
		d.fail(col, err)
	}
	return s
}

// asInt64 accepts the integer shapes the SQLite driver and callers produce.
func asInt64(src any) (int64, error) {
	switch x := src.(type) {
	case int64:
		return x, nil
	case int:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case ID:
		return int64(x), nil
	case bool:
		if x {
			return 1, nil
		}
		return 0, nil
	case float64:
		return int64(x), nil
	case []byte:
		return strconv.ParseInt(string(x), 10, 64)
	case string:
		return strconv.ParseInt(x, 10, 64)
	default:
		return 0, fmt.Errorf("cannot use %T as integer", src)
	}
}

func asString(src any) (string, error) {
	switch x := src.(type) {
	case string:
		return x, nil
	case []byte:
		return string(x), nil
	case Ringtone:
		return string(x), nil
	default:
		return "", fmt.Errorf("cannot use %T as text", src)
	}
}
