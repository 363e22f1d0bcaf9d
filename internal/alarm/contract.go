package alarm

// Table names.
const (
	AlarmsTable    = "alarm_templates"
	InstancesTable = "alarm_instances"
)

// Column names shared by both tables.
const (
	ColID                   = "_id"
	ColHour                 = "hour"
	ColMinutes              = "minutes"
	ColVibrate              = "vibrate"
	ColLabel                = "label"
	ColRingtone             = "ringtone"
	ColIncreasingVolume     = "increasing_volume"
	ColFlash                = "flash"
	ColDismissOnRingtoneEnd = "dismiss_on_ringtone_end"
	ColSnoozeActions        = "snooze_actions"
)

// Template-only columns.
const (
	ColDaysOfWeek     = "daysofweek"
	ColEnabled        = "enabled"
	ColDeleteAfterUse = "delete_after_use"
)

// Instance-only columns.
const (
	ColYear       = "year"
	ColMonth      = "month"
	ColDay        = "day"
	ColAlarmID    = "alarm_id"
	ColAlarmState = "alarm_state"
)

// InstancePrefix prefixes instance columns in the joined alarm/instance view,
// e.g. "instance__id", "instance_alarm_state".
const InstancePrefix = "instance_"

// AlarmColumns lists every alarm_templates column.
var AlarmColumns = []string{
	ColID,
	ColHour,
	ColMinutes,
	ColDaysOfWeek,
	ColEnabled,
	ColVibrate,
	ColLabel,
	ColRingtone,
	ColDeleteAfterUse,
	ColIncreasingVolume,
	ColFlash,
	ColDismissOnRingtoneEnd,
	ColSnoozeActions,
}

// InstanceColumns lists every alarm_instances column.
var InstanceColumns = []string{
	ColID,
	ColYear,
	ColMonth,
	ColDay,
	ColHour,
	ColMinutes,
	ColVibrate,
	ColLabel,
	ColRingtone,
	ColAlarmID,
	ColAlarmState,
	ColIncreasingVolume,
	ColFlash,
	ColDismissOnRingtoneEnd,
	ColSnoozeActions,
}
