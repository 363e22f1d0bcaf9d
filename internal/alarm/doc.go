// Package alarm defines the alarm records and their lifecycle rules.
//
// Two record kinds exist:
//   - Alarm: a user-configured template (time of day, repeat days, behavior)
//   - Instance: one scheduled firing derived from a template
//
// # Storage Contract
//
// Column names and table names live in contract.go. Records convert to and
// from a column-name keyed Values map; decoding is always by name, never by
// column position. Typed reads from the store scan into the same structs via
// their `db` tags.
//
// # Ringtones
//
// An empty Ringtone means "use the system default" and is stored as SQL NULL.
// SilentRingtone is an explicit "no sound" choice and is stored as its
// sentinel string, so the two never collapse into each other.
//
// # Instance States
//
// Instances move SILENT -> NOTIFICATION -> FIRED/SNOOZE -> MISSED/DISMISSED.
// PREDISMISSED marks an instance the user dismissed before it fired; it has
// no outgoing transitions.
package alarm
