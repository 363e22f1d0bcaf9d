package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/roach88/deskclock/internal/alarm"
)

// joinedQuery selects each alarm with at most one instance: the first by
// state, then date and time, then id.
var joinedQuery = func() string {
	cols := make([]string, 0, len(alarm.AlarmColumns)+len(alarm.InstanceColumns))
	for _, c := range alarm.AlarmColumns {
		cols = append(cols, alarm.AlarmsTable+"."+c+" AS "+c)
	}
	for _, c := range alarm.InstanceColumns {
		cols = append(cols, alarm.InstancesTable+"."+c+" AS "+alarm.InstancePrefix+c)
	}
	return "SELECT " + strings.Join(cols, ", ") + `
FROM alarm_templates
LEFT JOIN alarm_instances ON alarm_instances._id = (
    SELECT cand._id FROM alarm_instances AS cand
    WHERE cand.alarm_id = alarm_templates._id
    ORDER BY cand.alarm_state, cand.year, cand.month, cand.day,
             cand.hour, cand.minutes, cand._id
    LIMIT 1
)`
}()

const joinedDefaultOrder = "alarm_templates.hour, alarm_templates.minutes, alarm_templates._id"

// QueryJoined returns joined alarm/instance rows matching sel. Columns in
// sel must be qualified with their table name. Instance columns come back
// with the instance_ prefix.
func (s *Store) QueryJoined(ctx context.Context, sel Selection) ([]alarm.Values, error) {
	order := sel.OrderBy
	if order == "" {
		order = joinedDefaultOrder
	}
	return queryValues(ctx, s.db, joinedQuery+sel.whereClause()+" ORDER BY "+order, sel.Args...)
}

// AlarmsWithInstances returns every alarm paired with its current instance.
func (s *Store) AlarmsWithInstances(ctx context.Context) ([]alarm.AlarmWithInstance, error) {
	rows, err := s.QueryJoined(ctx, Selection{})
	if err != nil {
		return nil, err
	}
	out := make([]alarm.AlarmWithInstance, 0, len(rows))
	for _, row := range rows {
		j, err := alarm.JoinedFromValues(row)
		if err != nil {
			return nil, fmt.Errorf("decode joined row: %w", err)
		}
		out = append(out, j)
	}
	return out, nil
}
