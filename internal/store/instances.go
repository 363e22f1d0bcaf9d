package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/roach88/deskclock/internal/alarm"
)

var selectInstances = "SELECT " + joinColumns(alarm.InstanceColumns) + " FROM " + alarm.InstancesTable

const instanceOrder = " ORDER BY year, month, day, hour, minutes, _id"

// Instances returns the instances matching where (all when empty) in firing
// order.
func (s *Store) Instances(ctx context.Context, where string, args ...any) ([]alarm.Instance, error) {
	query := selectInstances + Selection{Where: where}.whereClause() + instanceOrder
	var out []alarm.Instance
	if err := s.db.SelectContext(ctx, &out, query, args...); err != nil {
		return nil, fmt.Errorf("select instances: %w", err)
	}
	return out, nil
}

// Instance returns one instance by id.
func (s *Store) Instance(ctx context.Context, id alarm.ID) (alarm.Instance, error) {
	return getInstance(ctx, s.db, id)
}

func getInstance(ctx context.Context, q sqlx.QueryerContext, id alarm.ID) (alarm.Instance, error) {
	var inst alarm.Instance
	if err := sqlx.GetContext(ctx, q, &inst, selectInstances+" WHERE _id = ?", id); err != nil {
		return alarm.Instance{}, notFound(err, "instance", id)
	}
	return inst, nil
}

// InstancesForAlarm returns the instances of one alarm in firing order.
func (s *Store) InstancesForAlarm(ctx context.Context, alarmID alarm.ID) ([]alarm.Instance, error) {
	return s.Instances(ctx, alarm.ColAlarmID+" = ?", int64(alarmID))
}

// AddInstance stores inst and sets inst.ID. A live instance of the same
// alarm at the same minute already in the table is updated in place
// instead, keeping its state, so one alarm never has two live instances for
// one firing. Dismissed and pre-dismissed rows are never reused.
func (s *Store) AddInstance(ctx context.Context, inst *alarm.Instance) error {
	v := inst.Values()
	delete(v, alarm.ColID)

	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		if inst.AlarmID.Valid() {
			var existing struct {
				ID    int64 `db:"_id"`
				State int64 `db:"alarm_state"`
			}
			err := tx.GetContext(ctx, &existing, `
				SELECT _id, alarm_state FROM alarm_instances
				WHERE alarm_id = ? AND year = ? AND month = ? AND day = ? AND hour = ? AND minutes = ?
				  AND alarm_state NOT IN (?, ?)
				ORDER BY _id LIMIT 1`,
				int64(inst.AlarmID), inst.Year, inst.Month, inst.Day, inst.Hour, inst.Minutes,
				int64(alarm.StateDismissed), int64(alarm.StatePredismissed))
			switch {
			case err == nil:
				s.log.Warn("replacing duplicate instance",
					"alarm_id", int64(inst.AlarmID), "instance_id", existing.ID)
				delete(v, alarm.ColAlarmState)
				if _, err := updateValues(ctx, tx, alarm.InstancesTable, v, byID(alarm.ID(existing.ID))); err != nil {
					return err
				}
				inst.ID = alarm.ID(existing.ID)
				inst.State = alarm.InstanceState(existing.State)
				return nil
			case !errors.Is(err, sql.ErrNoRows):
				return fmt.Errorf("find duplicate instance: %w", err)
			}
		}

		id, err := insertValues(ctx, tx, alarm.InstancesTable, v)
		if err != nil {
			return err
		}
		inst.ID = alarm.ID(id)
		return nil
	})
}

// UpdateInstance overwrites every column of the instance with inst.ID.
func (s *Store) UpdateInstance(ctx context.Context, inst alarm.Instance) (int64, error) {
	if !inst.ID.Valid() {
		return 0, fmt.Errorf("update instance: unsaved instance")
	}
	v := inst.Values()
	delete(v, alarm.ColID)
	return s.UpdateValues(ctx, alarm.InstancesTable, v, byID(inst.ID))
}

// DeleteInstance removes one instance.
func (s *Store) DeleteInstance(ctx context.Context, id alarm.ID) (int64, error) {
	return s.DeleteWhere(ctx, alarm.InstancesTable, byID(id))
}

// DeleteInstancesForAlarm removes every instance of one alarm.
func (s *Store) DeleteInstancesForAlarm(ctx context.Context, alarmID alarm.ID) (int64, error) {
	return s.DeleteWhere(ctx, alarm.InstancesTable,
		Selection{Where: alarm.ColAlarmID + " = ?", Args: []any{int64(alarmID)}})
}

// SetInstanceState moves an instance to next if the state machine allows it.
func (s *Store) SetInstanceState(ctx context.Context, id alarm.ID, next alarm.InstanceState) error {
	if !next.Valid() {
		return fmt.Errorf("%w: unknown state %d", ErrInvalidTransition, int(next))
	}
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		inst, err := getInstance(ctx, tx, id)
		if err != nil {
			return err
		}
		if !inst.State.CanTransitionTo(next) {
			return fmt.Errorf("instance %d: %w: %s -> %s", id, ErrInvalidTransition, inst.State, next)
		}
		_, err = updateValues(ctx, tx, alarm.InstancesTable,
			alarm.Values{alarm.ColAlarmState: int(next)}, byID(id))
		return err
	})
}
