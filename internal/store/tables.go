package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/roach88/deskclock/internal/alarm"
)

// Selection narrows a query, update or delete. Where is a SQL boolean
// expression with ? placeholders bound to Args. OrderBy is used by queries
// only. The zero value selects every row.
type Selection struct {
	Where   string
	Args    []any
	OrderBy string
}

// And returns a selection that also requires where.
func (sel Selection) And(where string, args ...any) Selection {
	out := sel
	if sel.Where == "" {
		out.Where = where
	} else {
		out.Where = "(" + sel.Where + ") AND (" + where + ")"
	}
	out.Args = append(slices.Clone(sel.Args), args...)
	return out
}

func (sel Selection) whereClause() string {
	if sel.Where == "" {
		return ""
	}
	return " WHERE " + sel.Where
}

func columnsFor(table string) ([]string, error) {
	switch table {
	case alarm.AlarmsTable:
		return alarm.AlarmColumns, nil
	case alarm.InstancesTable:
		return alarm.InstanceColumns, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownTable, table)
	}
}

// checkColumns rejects any name outside the table's column list.
func checkColumns(table string, names []string) error {
	cols, err := columnsFor(table)
	if err != nil {
		return err
	}
	for _, n := range names {
		if !slices.Contains(cols, n) {
			return fmt.Errorf("%w: %s.%s", ErrUnknownColumn, table, n)
		}
	}
	return nil
}

func sortedKeys(v alarm.Values) []string {
	keys := make([]string, 0, len(v))
	for k := range v {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// QueryTable returns the rows of table matching sel as column maps. An empty
// projection selects every column.
func (s *Store) QueryTable(ctx context.Context, table string, projection []string, sel Selection) ([]alarm.Values, error) {
	if len(projection) == 0 {
		cols, err := columnsFor(table)
		if err != nil {
			return nil, err
		}
		projection = cols
	} else if err := checkColumns(table, projection); err != nil {
		return nil, err
	}

	query := "SELECT " + joinColumns(projection) + " FROM " + table + sel.whereClause()
	if sel.OrderBy != "" {
		query += " ORDER BY " + sel.OrderBy
	}
	return queryValues(ctx, s.db, query, sel.Args...)
}

func queryValues(ctx context.Context, q sqlx.QueryerContext, query string, args ...any) ([]alarm.Values, error) {
	rows, err := q.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	var out []alarm.Values
	for rows.Next() {
		row := map[string]any{}
		if err := rows.MapScan(row); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		out = append(out, alarm.Values(row))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return out, nil
}

// InsertValues inserts one row and returns its id. For alarm_templates an
// _id that is already taken is dropped so SQLite picks a fresh one.
func (s *Store) InsertValues(ctx context.Context, table string, v alarm.Values) (int64, error) {
	if err := checkColumns(table, sortedKeys(v)); err != nil {
		return 0, err
	}
	if table == alarm.AlarmsTable {
		fixed, err := s.fixAlarmInsert(ctx, v)
		if err != nil {
			return 0, err
		}
		v = fixed
	}
	return insertValues(ctx, s.db, table, v)
}

// fixAlarmInsert clears a colliding _id. A caller that copied an alarm row
// together with its id would otherwise get a constraint error.
func (s *Store) fixAlarmInsert(ctx context.Context, v alarm.Values) (alarm.Values, error) {
	id, ok := v[alarm.ColID]
	if !ok || id == nil {
		return v, nil
	}
	var n int
	err := s.db.GetContext(ctx, &n, "SELECT COUNT(*) FROM alarm_templates WHERE _id = ?", id)
	if err != nil {
		return nil, fmt.Errorf("check alarm id: %w", err)
	}
	if n == 0 {
		return v, nil
	}
	s.log.Warn("alarm id already in use, assigning a new one", "id", id)
	out := v.Clone()
	delete(out, alarm.ColID)
	return out, nil
}

func insertValues(ctx context.Context, e sqlx.ExecerContext, table string, v alarm.Values) (int64, error) {
	var query string
	var args []any
	if len(v) == 0 {
		query = "INSERT INTO " + table + " DEFAULT VALUES"
	} else {
		keys := sortedKeys(v)
		args = make([]any, len(keys))
		for i, k := range keys {
			args[i] = v[k]
		}
		query = fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
			table, joinColumns(keys), strings.TrimSuffix(strings.Repeat("?, ", len(keys)), ", "))
	}

	res, err := e.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("insert into %s: %w", table, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert into %s: %w", table, err)
	}
	return id, nil
}

// UpdateValues sets the given columns on every row matching sel and returns
// the number of rows changed.
func (s *Store) UpdateValues(ctx context.Context, table string, v alarm.Values, sel Selection) (int64, error) {
	return updateValues(ctx, s.db, table, v, sel)
}

func updateValues(ctx context.Context, e sqlx.ExecerContext, table string, v alarm.Values, sel Selection) (int64, error) {
	if len(v) == 0 {
		return 0, fmt.Errorf("update %s: no columns", table)
	}
	keys := sortedKeys(v)
	if err := checkColumns(table, keys); err != nil {
		return 0, err
	}

	sets := make([]string, len(keys))
	args := make([]any, 0, len(keys)+len(sel.Args))
	for i, k := range keys {
		sets[i] = k + " = ?"
		args = append(args, v[k])
	}
	args = append(args, sel.Args...)

	query := "UPDATE " + table + " SET " + strings.Join(sets, ", ") + sel.whereClause()
	return execAffected(ctx, e, query, args...)
}

// DeleteWhere removes every row of table matching sel and returns the count.
func (s *Store) DeleteWhere(ctx context.Context, table string, sel Selection) (int64, error) {
	if _, err := columnsFor(table); err != nil {
		return 0, err
	}
	return execAffected(ctx, s.db, "DELETE FROM "+table+sel.whereClause(), sel.Args...)
}

func execAffected(ctx context.Context, e sqlx.ExecerContext, query string, args ...any) (int64, error) {
	res, err := e.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("exec: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}

// withTx runs fn in a transaction. The store has a single connection, so fn
// must only use tx.
func (s *Store) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func notFound(err error, what string, id alarm.ID) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s %d: %w", what, id, ErrNotFound)
	}
	return fmt.Errorf("get %s %d: %w", what, id, err)
}
