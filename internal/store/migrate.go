package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/roach88/deskclock/internal/alarm"
)

// legacyVersion is assumed for a file that has the pre-template alarms
// table but never recorded a user_version.
const legacyVersion = 5

type migration struct {
	version int
	name    string
	up      func(ctx context.Context, tx *sqlx.Tx) error
}

// migrations is the upgrade ladder. Each step runs when the file's version
// is below the step's version.
func (s *Store) migrations() []migration {
	return []migration{
		{6, "delete_after_use and selected_cities", migrateV6},
		{7, "split alarms into templates and instances", s.migrateV7},
		{8, "drop selected_cities", migrateV8},
		{9, "template date columns", migrateV9},
		{10, "increasing_volume", addBothTables("increasing_volume", "INTEGER NOT NULL DEFAULT 0")},
		{11, "flash", addBothTables("flash", "INTEGER NOT NULL DEFAULT 0")},
		{12, "ringtone end and snooze actions", migrateV12},
		{13, "rebuild templates without date columns", migrateV13},
		{14, "instance index and duplicate cleanup", migrateV14},
	}
}

// migrate brings the file to CurrentVersion inside a single transaction.
func (s *Store) migrate(ctx context.Context) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration: %w", err)
	}
	defer tx.Rollback()

	var version int
	if err := tx.GetContext(ctx, &version, "PRAGMA user_version"); err != nil {
		return fmt.Errorf("read user_version: %w", err)
	}

	switch {
	case version > CurrentVersion:
		return fmt.Errorf("%w: file is version %d, newest known is %d", ErrSchemaTooNew, version, CurrentVersion)
	case version == CurrentVersion:
		return nil
	}

	if version == 0 {
		legacy, err := tableExists(ctx, tx, "alarms")
		if err != nil {
			return err
		}
		if !legacy {
			if err := s.createSchema(ctx, tx); err != nil {
				return err
			}
			return commitVersion(ctx, tx)
		}
		version = legacyVersion
	}

	s.log.Info("upgrading database", "from", version, "to", CurrentVersion)
	for _, m := range s.migrations() {
		if version >= m.version {
			continue
		}
		if err := m.up(ctx, tx); err != nil {
			return fmt.Errorf("migration %d (%s): %w", m.version, m.name, err)
		}
		s.log.Debug("applied migration", "version", m.version, "name", m.name)
	}

	return commitVersion(ctx, tx)
}

// commitVersion checks referential integrity, stamps the version and commits.
func commitVersion(ctx context.Context, tx *sqlx.Tx) error {
	rows, err := tx.QueryxContext(ctx, "PRAGMA foreign_key_check")
	if err != nil {
		return fmt.Errorf("foreign key check: %w", err)
	}
	var violations []string
	for rows.Next() {
		v, err := rows.SliceScan()
		if err != nil {
			rows.Close()
			return fmt.Errorf("foreign key check: %w", err)
		}
		violations = append(violations, fmt.Sprint(v...))
	}
	rows.Close()
	if len(violations) > 0 {
		return fmt.Errorf("foreign key violations: %s", strings.Join(violations, "; "))
	}

	if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", CurrentVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migration: %w", err)
	}
	return nil
}

func migrateV6(ctx context.Context, tx *sqlx.Tx) error {
	ok, err := tableExists(ctx, tx, "alarms")
	if err != nil {
		return err
	}
	if ok {
		if err := addColumn(ctx, tx, "alarms", "delete_after_use", "INTEGER NOT NULL DEFAULT 0"); err != nil {
			return err
		}
	}
	_, err = tx.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS selected_cities (
		    city_id   TEXT PRIMARY KEY,
		    city_name TEXT NOT NULL,
		    timezone  TEXT NOT NULL,
		    time      TEXT
		)`)
	return err
}

// legacyAlarm is a row of the pre-version-7 alarms table.
type legacyAlarm struct {
	ID             int64  `db:"_id"`
	Hour           int    `db:"hour"`
	Minutes        int    `db:"minutes"`
	DaysOfWeek     int    `db:"daysofweek"`
	Enabled        bool   `db:"enabled"`
	Vibrate        bool   `db:"vibrate"`
	Message        string `db:"message"`
	Alert          string `db:"alert"`
	DeleteAfterUse bool   `db:"delete_after_use"`
}

func (l legacyAlarm) template() alarm.Alarm {
	a := alarm.Alarm{
		ID:             alarm.ID(l.ID),
		Enabled:        l.Enabled,
		Hour:           l.Hour,
		Minutes:        l.Minutes,
		DaysOfWeek:     alarm.Weekdays(l.DaysOfWeek) & alarm.Everyday,
		Vibrate:        l.Vibrate,
		Label:          alarm.NormalizeLabel(l.Message),
		DeleteAfterUse: l.DeleteAfterUse,
		SnoozeActions:  true,
	}
	switch l.Alert {
	case "":
		a.Ringtone = alarm.DefaultRingtone
	case "silent":
		a.Ringtone = alarm.SilentRingtone
	default:
		a.Ringtone = alarm.Ringtone(l.Alert)
	}
	return a
}

func (s *Store) migrateV7(ctx context.Context, tx *sqlx.Tx) error {
	for _, stmt := range []string{
		"DROP TABLE IF EXISTS alarm_instances",
		"DROP TABLE IF EXISTS alarm_templates",
		createTemplatesV7,
		createInstancesV7,
	} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}

	ok, err := tableExists(ctx, tx, "alarms")
	if err != nil || !ok {
		return err
	}

	var legacy []legacyAlarm
	err = tx.SelectContext(ctx, &legacy, `
		SELECT _id,
		       COALESCE(hour, 0)             AS hour,
		       COALESCE(minutes, 0)          AS minutes,
		       COALESCE(daysofweek, 0)       AS daysofweek,
		       COALESCE(enabled, 0)          AS enabled,
		       COALESCE(vibrate, 1)          AS vibrate,
		       COALESCE(message, '')         AS message,
		       COALESCE(alert, '')           AS alert,
		       COALESCE(delete_after_use, 0) AS delete_after_use
		FROM alarms ORDER BY _id`)
	if err != nil {
		return fmt.Errorf("read legacy alarms: %w", err)
	}

	now := s.now()
	for _, l := range legacy {
		a := l.template()
		_, err := tx.ExecContext(ctx, `
			INSERT INTO alarm_templates
			    (_id, hour, minutes, daysofweek, enabled, vibrate, label, ringtone, delete_after_use)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			a.ID, a.Hour, a.Minutes, a.DaysOfWeek, a.Enabled, a.Vibrate, a.Label, a.Ringtone, a.DeleteAfterUse)
		if err != nil {
			return fmt.Errorf("copy legacy alarm %d: %w", l.ID, err)
		}
		if !a.Enabled {
			continue
		}
		inst := a.CreateInstanceAfter(now)
		_, err = tx.ExecContext(ctx, `
			INSERT INTO alarm_instances
			    (year, month, day, hour, minutes, vibrate, label, ringtone, alarm_id, alarm_state)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			inst.Year, inst.Month, inst.Day, inst.Hour, inst.Minutes,
			inst.Vibrate, inst.Label, inst.Ringtone, inst.AlarmID, inst.State)
		if err != nil {
			return fmt.Errorf("schedule legacy alarm %d: %w", l.ID, err)
		}
	}

	_, err = tx.ExecContext(ctx, "DROP TABLE IF EXISTS alarms")
	return err
}

func migrateV8(ctx context.Context, tx *sqlx.Tx) error {
	_, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS selected_cities")
	return err
}

func migrateV9(ctx context.Context, tx *sqlx.Tx) error {
	for _, col := range []string{"year", "month", "day"} {
		if err := addColumn(ctx, tx, alarm.AlarmsTable, col, "INTEGER"); err != nil {
			return err
		}
	}
	return nil
}

func addBothTables(column, decl string) func(context.Context, *sqlx.Tx) error {
	return func(ctx context.Context, tx *sqlx.Tx) error {
		for _, table := range []string{alarm.AlarmsTable, alarm.InstancesTable} {
			if err := addColumn(ctx, tx, table, column, decl); err != nil {
				return err
			}
		}
		return nil
	}
}

func migrateV12(ctx context.Context, tx *sqlx.Tx) error {
	if err := addBothTables(alarm.ColDismissOnRingtoneEnd, "INTEGER NOT NULL DEFAULT 0")(ctx, tx); err != nil {
		return err
	}
	return addBothTables(alarm.ColSnoozeActions, "INTEGER NOT NULL DEFAULT 1")(ctx, tx)
}

// migrateV13 rebuilds alarm_templates so the unused date columns go away.
// SQLite before 3.35 cannot drop columns, so this copies into a new table.
func migrateV13(ctx context.Context, tx *sqlx.Tx) error {
	cols := joinColumns(alarm.AlarmColumns)
	for _, stmt := range []string{
		"DROP TABLE IF EXISTS alarm_templates_new",
		fmt.Sprintf(createTemplatesV14, "alarm_templates_new"),
		fmt.Sprintf("INSERT INTO alarm_templates_new (%s) SELECT %s FROM alarm_templates", cols, cols),
		"DROP TABLE alarm_templates",
		"ALTER TABLE alarm_templates_new RENAME TO alarm_templates",
	} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func migrateV14(ctx context.Context, tx *sqlx.Tx) error {
	if _, err := tx.ExecContext(ctx, createInstanceIndex); err != nil {
		return err
	}
	_, err := tx.ExecContext(ctx, `
		DELETE FROM alarm_instances
		WHERE alarm_id IS NOT NULL
		  AND _id NOT IN (
		      SELECT MIN(_id) FROM alarm_instances
		      WHERE alarm_id IS NOT NULL
		      GROUP BY alarm_id, year, month, day, hour, minutes
		  )`)
	return err
}
