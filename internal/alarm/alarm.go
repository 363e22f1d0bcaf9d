package alarm

import (
	"database/sql/driver"
	"fmt"
	"time"

	"golang.org/x/text/unicode/norm"
)

// ID is a row identity. InvalidID marks a record that was never persisted
// and maps to SQL NULL.
type ID int64

// InvalidID is the identity of an unsaved record.
const InvalidID ID = -1

// Valid reports whether id refers to a persisted row.
func (id ID) Valid() bool {
	return id != InvalidID
}

// Scan implements sql.Scanner. NULL scans to InvalidID.
func (id *ID) Scan(src any) error {
	if src == nil {
		*id = InvalidID
		return nil
	}
	n, err := asInt64(src)
	if err != nil {
		return fmt.Errorf("scan id: %w", err)
	}
	*id = ID(n)
	return nil
}

// Value implements driver.Valuer. InvalidID is written as NULL.
func (id ID) Value() (driver.Value, error) {
	if id == InvalidID {
		return nil, nil
	}
	return int64(id), nil
}

// Ringtone is a ringtone URI. The zero value means the system default.
type Ringtone string

const (
	// DefaultRingtone follows whatever the system alarm sound is.
	DefaultRingtone Ringtone = ""
	// SilentRingtone is an explicit choice of no sound.
	SilentRingtone Ringtone = "silent:"
)

// IsDefault reports whether r follows the system default.
func (r Ringtone) IsDefault() bool { return r == DefaultRingtone }

// IsSilent reports whether r is the explicit silence sentinel.
func (r Ringtone) IsSilent() bool { return r == SilentRingtone }

// Scan implements sql.Scanner. NULL scans to DefaultRingtone.
func (r *Ringtone) Scan(src any) error {
	if src == nil {
		*r = DefaultRingtone
		return nil
	}
	s, err := asString(src)
	if err != nil {
		return fmt.Errorf("scan ringtone: %w", err)
	}
	*r = Ringtone(s)
	return nil
}

// Value implements driver.Valuer. DefaultRingtone is written as NULL.
func (r Ringtone) Value() (driver.Value, error) {
	if r == DefaultRingtone {
		return nil, nil
	}
	return string(r), nil
}

// Alarm is a user-configured alarm template.
type Alarm struct {
	ID                   ID       `db:"_id" json:"id"`
	Enabled              bool     `db:"enabled" json:"enabled"`
	Hour                 int      `db:"hour" json:"hour"`
	Minutes              int      `db:"minutes" json:"minutes"`
	DaysOfWeek           Weekdays `db:"daysofweek" json:"days_of_week"`
	Vibrate              bool     `db:"vibrate" json:"vibrate"`
	Label                string   `db:"label" json:"label"`
	Ringtone             Ringtone `db:"ringtone" json:"ringtone,omitempty"`
	DeleteAfterUse       bool     `db:"delete_after_use" json:"delete_after_use"`
	IncreasingVolume     bool     `db:"increasing_volume" json:"increasing_volume"`
	Flash                bool     `db:"flash" json:"flash"`
	DismissOnRingtoneEnd bool     `db:"dismiss_on_ringtone_end" json:"dismiss_on_ringtone_end"`
	SnoozeActions        bool     `db:"snooze_actions" json:"snooze_actions"`
}

// New returns an unsaved alarm at hour:minutes with the usual defaults.
func New(hour, minutes int) Alarm {
	return Alarm{
		ID:            InvalidID,
		Hour:          hour,
		Minutes:       minutes,
		Vibrate:       true,
		SnoozeActions: true,
	}
}

// Validate checks the time of day and the repeat mask.
func (a Alarm) Validate() error {
	if a.Hour < 0 || a.Hour > 23 {
		return fmt.Errorf("hour %d out of range", a.Hour)
	}
	if a.Minutes < 0 || a.Minutes > 59 {
		return fmt.Errorf("minutes %d out of range", a.Minutes)
	}
	if a.DaysOfWeek&^Everyday != 0 {
		return fmt.Errorf("days of week %#x has bits outside the week", int(a.DaysOfWeek))
	}
	return nil
}

// NextFiring returns the first hour:minutes strictly after t on a day in
// DaysOfWeek (any day when the set is empty), in t's location.
func (a Alarm) NextFiring(after time.Time) time.Time {
	next := time.Date(after.Year(), after.Month(), after.Day(), a.Hour, a.Minutes, 0, 0, after.Location())
	if !next.After(after) {
		next = next.AddDate(0, 0, 1)
	}
	if n := a.DaysOfWeek.DaysUntilNext(next); n > 0 {
		next = next.AddDate(0, 0, n)
	}
	return next
}

// CreateInstanceAfter builds the SILENT instance for the next firing after t.
func (a Alarm) CreateInstanceAfter(after time.Time) Instance {
	inst := Instance{
		ID:                   InvalidID,
		Vibrate:              a.Vibrate,
		Label:                a.Label,
		Ringtone:             a.Ringtone,
		AlarmID:              a.ID,
		State:                StateSilent,
		IncreasingVolume:     a.IncreasingVolume,
		Flash:                a.Flash,
		DismissOnRingtoneEnd: a.DismissOnRingtoneEnd,
		SnoozeActions:        a.SnoozeActions,
	}
	inst.SetAlarmTime(a.NextFiring(after))
	return inst
}

// Instance is one scheduled firing of an alarm.
type Instance struct {
	ID                   ID            `db:"_id" json:"id"`
	Year                 int           `db:"year" json:"year"`
	Month                int           `db:"month" json:"month"` // 1-12
	Day                  int           `db:"day" json:"day"`
	Hour                 int           `db:"hour" json:"hour"`
	Minutes              int           `db:"minutes" json:"minutes"`
	Vibrate              bool          `db:"vibrate" json:"vibrate"`
	Label                string        `db:"label" json:"label"`
	Ringtone             Ringtone      `db:"ringtone" json:"ringtone,omitempty"`
	AlarmID              ID            `db:"alarm_id" json:"alarm_id"`
	State                InstanceState `db:"alarm_state" json:"state"`
	IncreasingVolume     bool          `db:"increasing_volume" json:"increasing_volume"`
	Flash                bool          `db:"flash" json:"flash"`
	DismissOnRingtoneEnd bool          `db:"dismiss_on_ringtone_end" json:"dismiss_on_ringtone_end"`
	SnoozeActions        bool          `db:"snooze_actions" json:"snooze_actions"`
}

// AlarmTime returns the firing time in loc.
func (i Instance) AlarmTime(loc *time.Location) time.Time {
	return time.Date(i.Year, time.Month(i.Month), i.Day, i.Hour, i.Minutes, 0, 0, loc)
}

// SetAlarmTime copies t's wall-clock date and minute into the instance.
func (i *Instance) SetAlarmTime(t time.Time) {
	i.Year = t.Year()
	i.Month = int(t.Month())
	i.Day = t.Day()
	i.Hour = t.Hour()
	i.Minutes = t.Minute()
}

// LowNotificationTime is when the low-priority "upcoming alarm" notice starts.
func (i Instance) LowNotificationTime(loc *time.Location) time.Time {
	return i.AlarmTime(loc).Add(-2 * time.Hour)
}

// HighNotificationTime is when the high-priority notice starts.
func (i Instance) HighNotificationTime(loc *time.Location) time.Time {
	return i.AlarmTime(loc).Add(-30 * time.Minute)
}

// MissedTimeToLive is when a missed instance is cleaned up.
func (i Instance) MissedTimeToLive(loc *time.Location) time.Time {
	return i.AlarmTime(loc).Add(12 * time.Hour)
}

// SameFiring reports whether both instances fire at the same minute.
func (i Instance) SameFiring(o Instance) bool {
	return i.Year == o.Year && i.Month == o.Month && i.Day == o.Day &&
		i.Hour == o.Hour && i.Minutes == o.Minutes
}

// NormalizeLabel returns s in Unicode NFC, the form labels are stored in.
func NormalizeLabel(s string) string {
	return norm.NFC.String(s)
}
