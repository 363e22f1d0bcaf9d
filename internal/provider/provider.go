// Package provider is a URI-addressed query facade over the alarm store.
//
// Every successful mutation notifies the affected URI and the joined
// alarms_with_instances view on the notify bus. Mutations that change no
// rows notify nothing.
package provider

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/roach88/deskclock/internal/alarm"
	"github.com/roach88/deskclock/internal/notify"
	"github.com/roach88/deskclock/internal/store"
)

// Provider routes URI operations to the store.
type Provider struct {
	store   *store.Store
	bus     *notify.Bus
	log     *slog.Logger
	metrics *Metrics
}

// Option configures a Provider.
type Option func(*Provider)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(p *Provider) { p.log = l }
}

// WithMetrics counts operations in m.
func WithMetrics(m *Metrics) Option {
	return func(p *Provider) { p.metrics = m }
}

// New returns a provider over s that notifies on bus.
func New(s *store.Store, bus *notify.Bus, opts ...Option) *Provider {
	p := &Provider{store: s, bus: bus, log: slog.Default()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Store returns the underlying store for reads.
func (p *Provider) Store() *store.Store { return p.store }

// Bus returns the notification bus.
func (p *Provider) Bus() *notify.Bus { return p.bus }

func unsupported(op string, t Target) error {
	return fmt.Errorf("%w: %s not supported on %s", ErrUnknownURI, op, t.Match)
}

func metricTable(t Target) string {
	if t.Table == "" {
		return "alarms_with_instances"
	}
	return t.Table
}

// Query returns the rows addressed by uri. An empty projection returns
// every column.
func (p *Provider) Query(ctx context.Context, uri string, projection []string, sel store.Selection) ([]alarm.Values, error) {
	t, err := Parse(uri)
	if err != nil {
		return nil, err
	}

	var rows []alarm.Values
	switch t.Match {
	case MatchAlarms, MatchInstances:
		rows, err = p.store.QueryTable(ctx, t.Table, projection, sel)
	case MatchAlarmID, MatchInstanceID:
		rows, err = p.store.QueryTable(ctx, t.Table, projection, sel.And(alarm.ColID+" = ?", int64(t.ID)))
	case MatchAlarmsWithInstances:
		rows, err = p.queryJoined(ctx, projection, sel)
	}
	if err != nil {
		return nil, err
	}
	p.metrics.observe("query", metricTable(t))
	return rows, nil
}

func joinedColumns() []string {
	cols := slices.Clone(alarm.AlarmColumns)
	for _, c := range alarm.InstanceColumns {
		cols = append(cols, alarm.InstancePrefix+c)
	}
	return cols
}

func (p *Provider) queryJoined(ctx context.Context, projection []string, sel store.Selection) ([]alarm.Values, error) {
	if len(projection) > 0 {
		known := joinedColumns()
		for _, c := range projection {
			if !slices.Contains(known, c) {
				return nil, fmt.Errorf("%w: %s", store.ErrUnknownColumn, c)
			}
		}
	}
	rows, err := p.store.QueryJoined(ctx, sel)
	if err != nil || len(projection) == 0 {
		return rows, err
	}
	for i, row := range rows {
		keep := make(alarm.Values, len(projection))
		for _, c := range projection {
			keep[c] = row[c]
		}
		rows[i] = keep
	}
	return rows, nil
}

// Insert adds a row to the collection at uri and returns the new row's URI.
func (p *Provider) Insert(ctx context.Context, uri string, v alarm.Values) (string, error) {
	t, err := Parse(uri)
	if err != nil {
		return "", err
	}
	if t.Match != MatchAlarms && t.Match != MatchInstances {
		return "", unsupported("insert", t)
	}

	id, err := p.store.InsertValues(ctx, t.Table, v)
	if err != nil {
		return "", err
	}
	p.metrics.observe("insert", t.Table)

	item := ItemURI(t.URI(), alarm.ID(id))
	p.changed(notify.OpInsert, item)
	return item, nil
}

// Update changes the row at an item uri and returns the rows changed.
func (p *Provider) Update(ctx context.Context, uri string, v alarm.Values, sel store.Selection) (int64, error) {
	t, err := Parse(uri)
	if err != nil {
		return 0, err
	}
	if !t.isItem() {
		return 0, unsupported("update", t)
	}

	n, err := p.store.UpdateValues(ctx, t.Table, v, sel.And(alarm.ColID+" = ?", int64(t.ID)))
	if err != nil {
		return 0, err
	}
	p.metrics.observe("update", t.Table)
	if n > 0 {
		p.changed(notify.OpUpdate, t.URI())
	}
	return n, nil
}

// Delete removes the rows addressed by uri and sel and returns the count.
func (p *Provider) Delete(ctx context.Context, uri string, sel store.Selection) (int64, error) {
	t, err := Parse(uri)
	if err != nil {
		return 0, err
	}
	if t.Match == MatchAlarmsWithInstances {
		return 0, unsupported("delete", t)
	}
	if t.isItem() {
		sel = sel.And(alarm.ColID+" = ?", int64(t.ID))
	}

	n, err := p.store.DeleteWhere(ctx, t.Table, sel)
	if err != nil {
		return 0, err
	}
	p.metrics.observe("delete", t.Table)
	if n > 0 {
		uris := []string{t.URI()}
		if t.Table == alarm.AlarmsTable {
			// Instances went with their alarms.
			uris = append(uris, InstancesURI)
		}
		p.changed(notify.OpDelete, uris...)
	}
	return n, nil
}

// changed notifies each uri and then the joined view.
func (p *Provider) changed(op notify.Op, uris ...string) {
	for _, u := range uris {
		p.bus.Notify(u, op)
	}
	p.bus.Notify(AlarmsWithInstancesURI, op)
	p.log.Debug("notified change", "op", op, "uris", uris)
}
