package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/roach88/deskclock/internal/alarm"
)

// CurrentVersion is the schema version this build writes.
const CurrentVersion = 14

const createTemplatesV14 = `
CREATE TABLE %s (
    _id                     INTEGER PRIMARY KEY AUTOINCREMENT,
    hour                    INTEGER NOT NULL,
    minutes                 INTEGER NOT NULL,
    daysofweek              INTEGER NOT NULL DEFAULT 0,
    enabled                 INTEGER NOT NULL DEFAULT 0,
    vibrate                 INTEGER NOT NULL DEFAULT 1,
    label                   TEXT NOT NULL DEFAULT '',
    ringtone                TEXT,
    delete_after_use        INTEGER NOT NULL DEFAULT 0,
    increasing_volume       INTEGER NOT NULL DEFAULT 0,
    flash                   INTEGER NOT NULL DEFAULT 0,
    dismiss_on_ringtone_end INTEGER NOT NULL DEFAULT 0,
    snooze_actions          INTEGER NOT NULL DEFAULT 1
)`

const createInstancesV14 = `
CREATE TABLE alarm_instances (
    _id                     INTEGER PRIMARY KEY AUTOINCREMENT,
    year                    INTEGER NOT NULL,
    month                   INTEGER NOT NULL,
    day                     INTEGER NOT NULL,
    hour                    INTEGER NOT NULL,
    minutes                 INTEGER NOT NULL,
    vibrate                 INTEGER NOT NULL DEFAULT 0,
    label                   TEXT NOT NULL DEFAULT '',
    ringtone                TEXT,
    alarm_id                INTEGER REFERENCES alarm_templates(_id)
                                ON UPDATE CASCADE ON DELETE CASCADE,
    alarm_state             INTEGER NOT NULL DEFAULT 0,
    increasing_volume       INTEGER NOT NULL DEFAULT 0,
    flash                   INTEGER NOT NULL DEFAULT 0,
    dismiss_on_ringtone_end INTEGER NOT NULL DEFAULT 0,
    snooze_actions          INTEGER NOT NULL DEFAULT 1
)`

const createInstanceIndex = `
CREATE INDEX IF NOT EXISTS alarm_instances_alarm_id ON alarm_instances(alarm_id)`

// Version 7 tables, before the feature columns of steps 9 to 12.
const createTemplatesV7 = `
CREATE TABLE alarm_templates (
    _id              INTEGER PRIMARY KEY AUTOINCREMENT,
    hour             INTEGER NOT NULL,
    minutes          INTEGER NOT NULL,
    daysofweek       INTEGER NOT NULL DEFAULT 0,
    enabled          INTEGER NOT NULL DEFAULT 0,
    vibrate          INTEGER NOT NULL DEFAULT 1,
    label            TEXT NOT NULL DEFAULT '',
    ringtone         TEXT,
    delete_after_use INTEGER NOT NULL DEFAULT 0
)`

const createInstancesV7 = `
CREATE TABLE alarm_instances (
    _id         INTEGER PRIMARY KEY AUTOINCREMENT,
    year        INTEGER NOT NULL,
    month       INTEGER NOT NULL,
    day         INTEGER NOT NULL,
    hour        INTEGER NOT NULL,
    minutes     INTEGER NOT NULL,
    vibrate     INTEGER NOT NULL DEFAULT 0,
    label       TEXT NOT NULL DEFAULT '',
    ringtone    TEXT,
    alarm_id    INTEGER REFERENCES alarm_templates(_id)
                    ON UPDATE CASCADE ON DELETE CASCADE,
    alarm_state INTEGER NOT NULL DEFAULT 0
)`

// createSchema builds a fresh version 14 database and optionally seeds the
// two stock alarms.
func (s *Store) createSchema(ctx context.Context, tx *sqlx.Tx) error {
	stmts := []string{
		fmt.Sprintf(createTemplatesV14, alarm.AlarmsTable),
		createInstancesV14,
		createInstanceIndex,
	}
	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}
	if !s.seed {
		return nil
	}
	for _, a := range defaultAlarms() {
		if _, err := insertValues(ctx, tx, alarm.AlarmsTable, a.Values()); err != nil {
			return fmt.Errorf("seed alarms: %w", err)
		}
	}
	s.log.Debug("created schema", "version", CurrentVersion, "seeded", true)
	return nil
}

// defaultAlarms are the two disabled alarms a new install starts with.
func defaultAlarms() []alarm.Alarm {
	weekday := alarm.New(8, 30)
	weekday.DaysOfWeek = alarm.Workdays

	weekend := alarm.New(9, 0)
	weekend.DaysOfWeek = alarm.Weekend

	return []alarm.Alarm{weekday, weekend}
}

func tableExists(ctx context.Context, q sqlx.QueryerContext, table string) (bool, error) {
	var n int
	err := sqlx.GetContext(ctx, q, &n,
		"SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?", table)
	if err != nil {
		return false, fmt.Errorf("check table %s: %w", table, err)
	}
	return n > 0, nil
}

func columnExists(ctx context.Context, q sqlx.QueryerContext, table, column string) (bool, error) {
	var n int
	err := sqlx.GetContext(ctx, q, &n,
		"SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?", table, column)
	if err != nil {
		return false, fmt.Errorf("check column %s.%s: %w", table, column, err)
	}
	return n > 0, nil
}

// addColumn adds column to table unless it is already there.
func addColumn(ctx context.Context, tx *sqlx.Tx, table, column, decl string) error {
	ok, err := columnExists(ctx, tx, table, column)
	if err != nil || ok {
		return err
	}
	stmt := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", table, column, decl)
	if _, err := tx.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("add column %s.%s: %w", table, column, err)
	}
	return nil
}

func joinColumns(cols []string) string {
	return strings.Join(cols, ", ")
}
