package store

import (
	"context"
	"fmt"

	"github.com/roach88/deskclock/internal/alarm"
)

var selectAlarms = "SELECT " + joinColumns(alarm.AlarmColumns) + " FROM " + alarm.AlarmsTable

// Alarms returns the alarms matching where (all when empty), ordered by
// time of day.
func (s *Store) Alarms(ctx context.Context, where string, args ...any) ([]alarm.Alarm, error) {
	query := selectAlarms + Selection{Where: where}.whereClause() + " ORDER BY hour, minutes, _id"
	var out []alarm.Alarm
	if err := s.db.SelectContext(ctx, &out, query, args...); err != nil {
		return nil, fmt.Errorf("select alarms: %w", err)
	}
	return out, nil
}

// Alarm returns one alarm by id.
func (s *Store) Alarm(ctx context.Context, id alarm.ID) (alarm.Alarm, error) {
	var a alarm.Alarm
	if err := s.db.GetContext(ctx, &a, selectAlarms+" WHERE _id = ?", id); err != nil {
		return alarm.Alarm{}, notFound(err, "alarm", id)
	}
	return a, nil
}

// InsertAlarm stores a and sets a.ID to the assigned id.
func (s *Store) InsertAlarm(ctx context.Context, a *alarm.Alarm) error {
	if err := a.Validate(); err != nil {
		return fmt.Errorf("insert alarm: %w", err)
	}
	id, err := s.InsertValues(ctx, alarm.AlarmsTable, a.Values())
	if err != nil {
		return err
	}
	a.ID = alarm.ID(id)
	a.Label = alarm.NormalizeLabel(a.Label)
	return nil
}

// UpdateAlarm overwrites every column of the alarm with a.ID. It returns the
// number of rows changed, 0 when the alarm does not exist.
func (s *Store) UpdateAlarm(ctx context.Context, a alarm.Alarm) (int64, error) {
	if !a.ID.Valid() {
		return 0, fmt.Errorf("update alarm: unsaved alarm")
	}
	if err := a.Validate(); err != nil {
		return 0, fmt.Errorf("update alarm %d: %w", a.ID, err)
	}
	v := a.Values()
	delete(v, alarm.ColID)
	return s.UpdateValues(ctx, alarm.AlarmsTable, v, byID(a.ID))
}

// DeleteAlarm removes the alarm and, through the foreign key, its instances.
func (s *Store) DeleteAlarm(ctx context.Context, id alarm.ID) (int64, error) {
	return s.DeleteWhere(ctx, alarm.AlarmsTable, byID(id))
}

func byID(id alarm.ID) Selection {
	return Selection{Where: alarm.ColID + " = ?", Args: []any{int64(id)}}
}
