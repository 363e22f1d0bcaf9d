// Package schedule applies instance lifecycle rules on top of the provider:
// enabling and disabling alarms, snoozing, dismissing, and keeping each
// alarm's next instance in place afterwards.
//
// It does not watch the clock. A driver calls SetState when an instance's
// notification or firing time arrives.
package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/roach88/deskclock/internal/alarm"
	"github.com/roach88/deskclock/internal/provider"
	"github.com/roach88/deskclock/internal/store"
)

// DefaultSnooze is used when no snooze length is configured.
const DefaultSnooze = 10 * time.Minute

// Service mutates alarms and instances through the provider, so every
// change is notified.
//
// Read-modify-write sequences (Enable, the parent update after Dismiss) span
// several provider calls, each its own transaction. Service assumes it is
// the only writer to the store while one runs.
type Service struct {
	p      *provider.Provider
	now    func() time.Time
	loc    *time.Location
	snooze time.Duration
	log    *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithClock sets the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLocation sets the zone instance times are computed in. Defaults to
// time.Local.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) { s.loc = loc }
}

// WithSnooze sets the snooze length.
func WithSnooze(d time.Duration) Option {
	return func(s *Service) { s.snooze = d }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.log = l }
}

// New returns a service over p.
func New(p *provider.Provider, opts ...Option) *Service {
	s := &Service{
		p:      p,
		now:    time.Now,
		loc:    time.Local,
		snooze: DefaultSnooze,
		log:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) clock() time.Time {
	return s.now().In(s.loc)
}

// Enable turns the alarm on and schedules its next instance. An alarm that
// is already on and has a live instance is left as it is, and that instance
// is returned.
func (s *Service) Enable(ctx context.Context, id alarm.ID) (alarm.Instance, error) {
	a, err := s.p.Store().Alarm(ctx, id)
	if err != nil {
		return alarm.Instance{}, err
	}
	if a.Enabled {
		live, err := s.p.Store().Instances(ctx, liveForAlarm, liveArgs(id)...)
		if err != nil {
			return alarm.Instance{}, fmt.Errorf("enable alarm %d: %w", id, err)
		}
		if len(live) > 0 {
			s.log.Debug("alarm already enabled", "alarm_id", int64(id), "instance_id", int64(live[0].ID))
			return live[0], nil
		}
	} else {
		a.Enabled = true
		if _, err := s.p.UpdateAlarm(ctx, a); err != nil {
			return alarm.Instance{}, fmt.Errorf("enable alarm %d: %w", id, err)
		}
	}
	if err := s.purgePredismissed(ctx, id); err != nil {
		return alarm.Instance{}, err
	}
	inst := a.CreateInstanceAfter(s.clock())
	if err := s.p.AddInstance(ctx, &inst); err != nil {
		return alarm.Instance{}, fmt.Errorf("schedule alarm %d: %w", id, err)
	}
	s.log.Info("alarm enabled", "alarm_id", int64(id), "next", inst.AlarmTime(s.loc))
	return inst, nil
}

// liveForAlarm selects an alarm's instances that are not dismissed.
const liveForAlarm = "alarm_id = ? AND alarm_state NOT IN (?, ?)"

func liveArgs(id alarm.ID) []any {
	return []any{int64(id), int64(alarm.StateDismissed), int64(alarm.StatePredismissed)}
}

// purgePredismissed deletes the alarm's pre-dismissed instances whose
// firing time has passed.
func (s *Service) purgePredismissed(ctx context.Context, id alarm.ID) error {
	insts, err := s.p.Store().Instances(ctx, "alarm_id = ? AND alarm_state = ?",
		int64(id), int64(alarm.StatePredismissed))
	if err != nil {
		return fmt.Errorf("pre-dismissed instances of alarm %d: %w", id, err)
	}
	now := s.clock()
	for _, inst := range insts {
		if inst.AlarmTime(s.loc).After(now) {
			continue
		}
		if _, err := s.p.DeleteInstance(ctx, inst.ID); err != nil {
			return fmt.Errorf("delete pre-dismissed instance %d: %w", inst.ID, err)
		}
		s.log.Debug("pre-dismissed instance removed", "alarm_id", int64(id), "instance_id", int64(inst.ID))
	}
	return nil
}

// Disable turns the alarm off and removes its instances.
func (s *Service) Disable(ctx context.Context, id alarm.ID) error {
	a, err := s.p.Store().Alarm(ctx, id)
	if err != nil {
		return err
	}
	if a.Enabled {
		a.Enabled = false
		if _, err := s.p.UpdateAlarm(ctx, a); err != nil {
			return fmt.Errorf("disable alarm %d: %w", id, err)
		}
	}
	if _, err := s.p.DeleteInstancesForAlarm(ctx, id); err != nil {
		return fmt.Errorf("unschedule alarm %d: %w", id, err)
	}
	s.log.Info("alarm disabled", "alarm_id", int64(id))
	return nil
}

// SetState applies a declared state transition.
func (s *Service) SetState(ctx context.Context, id alarm.ID, next alarm.InstanceState) error {
	return s.p.SetInstanceState(ctx, id, next)
}

// Snooze moves a fired instance to SNOOZE and pushes its time to now plus
// the snooze length.
func (s *Service) Snooze(ctx context.Context, id alarm.ID) (alarm.Instance, error) {
	inst, err := s.p.Store().Instance(ctx, id)
	if err != nil {
		return alarm.Instance{}, err
	}
	if !inst.State.CanTransitionTo(alarm.StateSnooze) {
		return alarm.Instance{}, fmt.Errorf("snooze instance %d: %w: %s -> %s",
			id, store.ErrInvalidTransition, inst.State, alarm.StateSnooze)
	}
	inst.State = alarm.StateSnooze
	inst.SetAlarmTime(s.clock().Add(s.snooze))
	if _, err := s.p.UpdateInstance(ctx, inst); err != nil {
		return alarm.Instance{}, fmt.Errorf("snooze instance %d: %w", id, err)
	}
	s.log.Info("instance snoozed", "instance_id", int64(id), "until", inst.AlarmTime(s.loc))
	return inst, nil
}

// DismissResult says what Dismiss did.
type DismissResult struct {
	Predismissed  bool            // instance kept as PREDISMISSED rather than deleted
	Next          *alarm.Instance // instance scheduled for a repeating alarm
	AlarmDeleted  bool            // one-shot alarm with DeleteAfterUse
	AlarmDisabled bool            // one-shot alarm kept but switched off
}

// Dismiss ends an instance. An instance that has not fired yet (upcoming
// notification or snoozed) is pre-dismissed; one that fired or was missed
// is deleted. Either way the parent alarm is then advanced: deleted if it
// is single use, rescheduled if it repeats, otherwise disabled.
func (s *Service) Dismiss(ctx context.Context, id alarm.ID) (DismissResult, error) {
	inst, err := s.p.Store().Instance(ctx, id)
	if err != nil {
		return DismissResult{}, err
	}

	var res DismissResult
	switch {
	case inst.State.CanPreemptivelyDismiss():
		inst.State = alarm.StatePredismissed
		if _, err := s.p.UpdateInstance(ctx, inst); err != nil {
			return DismissResult{}, fmt.Errorf("predismiss instance %d: %w", id, err)
		}
		res.Predismissed = true
	case inst.State.CanTransitionTo(alarm.StateDismissed):
		if _, err := s.p.DeleteInstance(ctx, id); err != nil {
			return DismissResult{}, fmt.Errorf("dismiss instance %d: %w", id, err)
		}
	default:
		return DismissResult{}, fmt.Errorf("dismiss instance %d: %w: %s -> %s",
			id, store.ErrInvalidTransition, inst.State, alarm.StateDismissed)
	}

	if err := s.updateParent(ctx, inst, &res); err != nil {
		return res, err
	}
	s.log.Info("instance dismissed", "instance_id", int64(id), "predismissed", res.Predismissed)
	return res, nil
}

// updateParent advances the alarm behind a finished instance.
func (s *Service) updateParent(ctx context.Context, inst alarm.Instance, res *DismissResult) error {
	if !inst.AlarmID.Valid() {
		return nil
	}
	a, err := s.p.Store().Alarm(ctx, inst.AlarmID)
	if err != nil {
		return fmt.Errorf("parent of instance %d: %w", inst.ID, err)
	}

	switch {
	case a.DeleteAfterUse:
		if _, err := s.p.DeleteAlarm(ctx, a.ID); err != nil {
			return fmt.Errorf("delete used alarm %d: %w", a.ID, err)
		}
		res.AlarmDeleted = true
	case a.DaysOfWeek.IsRepeating():
		after := s.clock()
		if fired := inst.AlarmTime(s.loc); fired.After(after) {
			after = fired
		}
		if err := s.purgePredismissed(ctx, a.ID); err != nil {
			return err
		}
		next := a.CreateInstanceAfter(after)
		if err := s.p.AddInstance(ctx, &next); err != nil {
			return fmt.Errorf("reschedule alarm %d: %w", a.ID, err)
		}
		res.Next = &next
	default:
		a.Enabled = false
		if _, err := s.p.UpdateAlarm(ctx, a); err != nil {
			return fmt.Errorf("disable alarm %d: %w", a.ID, err)
		}
		res.AlarmDisabled = true
	}
	return nil
}

// Next returns the earliest instance that is still live, or nil.
func (s *Service) Next(ctx context.Context) (*alarm.Instance, error) {
	rows, err := s.p.Query(ctx, provider.InstancesURI, nil, store.Selection{
		Where:   alarm.ColAlarmState + " NOT IN (?, ?)",
		Args:    []any{int64(alarm.StateDismissed), int64(alarm.StatePredismissed)},
		OrderBy: "year, month, day, hour, minutes, _id",
	})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	inst, err := alarm.InstanceFromValues(rows[0])
	if err != nil {
		return nil, err
	}
	return &inst, nil
}
