package provider

import (
	"context"

	"github.com/roach88/deskclock/internal/alarm"
	"github.com/roach88/deskclock/internal/notify"
)

// InsertAlarm stores a through the store and notifies its URI.
func (p *Provider) InsertAlarm(ctx context.Context, a *alarm.Alarm) error {
	if err := p.store.InsertAlarm(ctx, a); err != nil {
		return err
	}
	p.metrics.observe("insert", alarm.AlarmsTable)
	p.changed(notify.OpInsert, ItemURI(AlarmsURI, a.ID))
	return nil
}

// UpdateAlarm overwrites the alarm with a.ID.
func (p *Provider) UpdateAlarm(ctx context.Context, a alarm.Alarm) (int64, error) {
	n, err := p.store.UpdateAlarm(ctx, a)
	if err != nil {
		return 0, err
	}
	p.metrics.observe("update", alarm.AlarmsTable)
	if n > 0 {
		p.changed(notify.OpUpdate, ItemURI(AlarmsURI, a.ID))
	}
	return n, nil
}

// DeleteAlarm removes an alarm and, by cascade, its instances.
func (p *Provider) DeleteAlarm(ctx context.Context, id alarm.ID) (int64, error) {
	n, err := p.store.DeleteAlarm(ctx, id)
	if err != nil {
		return 0, err
	}
	p.metrics.observe("delete", alarm.AlarmsTable)
	if n > 0 {
		p.changed(notify.OpDelete, ItemURI(AlarmsURI, id), InstancesURI)
	}
	return n, nil
}

// AddInstance stores inst, merging with an existing instance of the same
// alarm and firing time.
func (p *Provider) AddInstance(ctx context.Context, inst *alarm.Instance) error {
	if err := p.store.AddInstance(ctx, inst); err != nil {
		return err
	}
	p.metrics.observe("insert", alarm.InstancesTable)
	p.changed(notify.OpInsert, ItemURI(InstancesURI, inst.ID))
	return nil
}

// UpdateInstance overwrites the instance with inst.ID.
func (p *Provider) UpdateInstance(ctx context.Context, inst alarm.Instance) (int64, error) {
	n, err := p.store.UpdateInstance(ctx, inst)
	if err != nil {
		return 0, err
	}
	p.metrics.observe("update", alarm.InstancesTable)
	if n > 0 {
		p.changed(notify.OpUpdate, ItemURI(InstancesURI, inst.ID))
	}
	return n, nil
}

// DeleteInstance removes one instance.
func (p *Provider) DeleteInstance(ctx context.Context, id alarm.ID) (int64, error) {
	n, err := p.store.DeleteInstance(ctx, id)
	if err != nil {
		return 0, err
	}
	p.metrics.observe("delete", alarm.InstancesTable)
	if n > 0 {
		p.changed(notify.OpDelete, ItemURI(InstancesURI, id))
	}
	return n, nil
}

// DeleteInstancesForAlarm removes every instance of one alarm.
func (p *Provider) DeleteInstancesForAlarm(ctx context.Context, alarmID alarm.ID) (int64, error) {
	n, err := p.store.DeleteInstancesForAlarm(ctx, alarmID)
	if err != nil {
		return 0, err
	}
	p.metrics.observe("delete", alarm.InstancesTable)
	if n > 0 {
		p.changed(notify.OpDelete, InstancesURI)
	}
	return n, nil
}

// SetInstanceState applies a validated state change.
func (p *Provider) SetInstanceState(ctx context.Context, id alarm.ID, next alarm.InstanceState) error {
	if err := p.store.SetInstanceState(ctx, id, next); err != nil {
		return err
	}
	p.metrics.observe("update", alarm.InstancesTable)
	p.changed(notify.OpUpdate, ItemURI(InstancesURI, id))
	return nil
}
