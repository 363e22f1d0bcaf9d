package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/roach88/deskclock/internal/alarm"
	"github.com/roach88/deskclock/internal/notify"
	"github.com/roach88/deskclock/internal/provider"
	"github.com/roach88/deskclock/internal/schedule"
	"github.com/roach88/deskclock/internal/store"
	"github.com/roach88/deskclock/internal/testutil"
)

// Step outcomes.
const (
	OutcomeScheduled         = "scheduled"
	OutcomeDisabled          = "disabled"
	OutcomeDeleted           = "deleted"
	OutcomeMoved             = "moved"
	OutcomeSnoozed           = "snoozed"
	OutcomeDismissed         = "dismissed"
	OutcomePredismissed      = "predismissed"
	OutcomeNotFound          = "not_found"
	OutcomeInvalidTransition = "invalid_transition"
	OutcomeError             = "error"
)

// changeBuffer bounds the changes one step may publish.
const changeBuffer = 1024

// Harness is the test execution engine. It owns one database and drives
// it through the same provider and scheduler the CLI uses.
type Harness struct {
	store    *store.Store
	provider *provider.Provider
	schedule *schedule.Service
	bus      *notify.Bus
	sub      *notify.Subscription
	clock    *testutil.FixedClock
	loc      *time.Location
	logger   *slog.Logger
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database. Setup changes are not
// traced; every flow step is, followed by the changes it published.
func Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	clock := testutil.NewFixedClock(scenario.Start)

	st, err := store.Open(":memory:",
		store.WithSeedDefaults(false),
		store.WithLogger(logger),
		store.WithClock(clock.Now),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	var ids testutil.SequentialIDs
	bus := notify.NewBus(
		notify.WithClock(clock.Now),
		notify.WithIDs(ids.Next),
		notify.WithLogger(logger),
	)
	p := provider.New(st, bus, provider.WithLogger(logger))

	loc := scenario.Start.Location()
	schedOpts := []schedule.Option{
		schedule.WithClock(clock.Now),
		schedule.WithLocation(loc),
		schedule.WithLogger(logger),
	}
	if scenario.SnoozeMinutes > 0 {
		schedOpts = append(schedOpts, schedule.WithSnooze(time.Duration(scenario.SnoozeMinutes)*time.Minute))
	}

	sub := bus.Subscribe(provider.Authority, true, changeBuffer)
	defer sub.Close()

	h := &Harness{
		store:    st,
		provider: p,
		schedule: schedule.New(p, schedOpts...),
		bus:      bus,
		sub:      sub,
		clock:    clock,
		loc:      loc,
		logger:   logger,
	}

	if err := h.executeSetup(ctx, scenario.Setup); err != nil {
		return nil, fmt.Errorf("failed to execute setup: %w", err)
	}
	h.drain(nil)

	result := NewResult()
	for i, step := range scenario.Flow {
		if err := h.executeStep(ctx, i, step, result); err != nil {
			return nil, fmt.Errorf("flow step %d: %w", i, err)
		}
	}
	if n := bus.Dropped(); n > 0 {
		result.AddError(fmt.Sprintf("%d change notifications were dropped", n))
	}

	for _, msg := range EvaluateAssertions(ctx, st, result, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

// executeSetup inserts the setup alarms and schedules the enabled ones.
func (h *Harness) executeSetup(ctx context.Context, setup []AlarmSetup) error {
	for i, entry := range setup {
		a, err := entry.alarm()
		if err != nil {
			return fmt.Errorf("setup %d: %w", i, err)
		}
		if err := h.provider.InsertAlarm(ctx, &a); err != nil {
			return fmt.Errorf("setup %d: %w", i, err)
		}
		if a.Enabled {
			if _, err := h.schedule.Enable(ctx, a.ID); err != nil {
				return fmt.Errorf("setup %d: %w", i, err)
			}
		}
	}
	return nil
}

// executeStep applies one step, records it and its changes, and checks the
// step's expect clause. Only harness failures are returned; unexpected
// outcomes are recorded on result.
func (h *Harness) executeStep(ctx context.Context, index int, step Step, result *Result) error {
	if step.Advance != "" {
		d, err := time.ParseDuration(step.Advance)
		if err != nil {
			return err
		}
		h.clock.Advance(d)
	}

	target := step.Alarm
	if target == 0 {
		target = step.Instance
	}
	ev := TraceEvent{Type: EventStep, Action: step.Do, Target: target}

	inst, outcome, err := h.apply(ctx, step)
	ev.Outcome = outcome
	if inst != nil {
		ev.Instance = h.describe(*inst)
	}
	result.add(ev)
	h.drain(result)

	h.logger.Info("flow step completed", "step", index, "do", step.Do, "outcome", outcome)

	if outcome == OutcomeError {
		result.AddError(fmt.Sprintf("flow[%d] %s: %v", index, step.Do, err))
		return nil
	}
	for _, msg := range h.checkExpect(step, outcome, inst) {
		result.AddError(fmt.Sprintf("flow[%d] %s: %s", index, step.Do, msg))
	}
	return nil
}

// apply runs the step's operation. It returns the instance the step left
// behind, if any, and the outcome.
func (h *Harness) apply(ctx context.Context, step Step) (*alarm.Instance, string, error) {
	var (
		inst    *alarm.Instance
		outcome string
		err     error
	)
	switch step.Do {
	case DoEnable:
		var next alarm.Instance
		if next, err = h.schedule.Enable(ctx, alarm.ID(step.Alarm)); err == nil {
			inst, outcome = &next, OutcomeScheduled
		}
	case DoDisable:
		if err = h.schedule.Disable(ctx, alarm.ID(step.Alarm)); err == nil {
			outcome = OutcomeDisabled
		}
	case DoDeleteAlarm:
		var n int64
		if n, err = h.provider.DeleteAlarm(ctx, alarm.ID(step.Alarm)); err == nil {
			outcome = OutcomeDeleted
			if n == 0 {
				err = store.ErrNotFound
			}
		}
	case DoSetState:
		// Validated when the scenario was loaded.
		state, _ := alarm.ParseInstanceState(step.State)
		id := alarm.ID(step.Instance)
		if err = h.schedule.SetState(ctx, id, state); err == nil {
			var got alarm.Instance
			if got, err = h.store.Instance(ctx, id); err == nil {
				inst, outcome = &got, OutcomeMoved
			}
		}
	case DoSnooze:
		var got alarm.Instance
		if got, err = h.schedule.Snooze(ctx, alarm.ID(step.Instance)); err == nil {
			inst, outcome = &got, OutcomeSnoozed
		}
	case DoDismiss:
		var res schedule.DismissResult
		if res, err = h.schedule.Dismiss(ctx, alarm.ID(step.Instance)); err == nil {
			inst, outcome = res.Next, OutcomeDismissed
			if res.Predismissed {
				outcome = OutcomePredismissed
			}
		}
	default:
		err = fmt.Errorf("unknown operation %q", step.Do)
	}

	switch {
	case err == nil:
		return inst, outcome, nil
	case errors.Is(err, store.ErrNotFound):
		return nil, OutcomeNotFound, err
	case errors.Is(err, store.ErrInvalidTransition):
		return nil, OutcomeInvalidTransition, err
	default:
		return nil, OutcomeError, err
	}
}

// checkExpect compares a step's result with its expect clause. A step
// without one must not fail.
func (h *Harness) checkExpect(step Step, outcome string, inst *alarm.Instance) []string {
	if step.Expect == nil {
		if outcome == OutcomeNotFound || outcome == OutcomeInvalidTransition {
			return []string{fmt.Sprintf("unexpected outcome %s", outcome)}
		}
		return nil
	}

	var msgs []string
	exp := step.Expect
	if exp.Outcome != "" && exp.Outcome != outcome {
		msgs = append(msgs, fmt.Sprintf("outcome = %s, expected %s", outcome, exp.Outcome))
	}
	if exp.State == "" && exp.Time == "" {
		return msgs
	}
	if inst == nil {
		return append(msgs, "expected an instance, step left none")
	}
	if exp.State != "" {
		want, _ := alarm.ParseInstanceState(exp.State)
		if inst.State != want {
			msgs = append(msgs, fmt.Sprintf("state = %s, expected %s", inst.State, want))
		}
	}
	if exp.Time != "" {
		if got := inst.AlarmTime(h.loc).Format(timeLayout); got != exp.Time {
			msgs = append(msgs, fmt.Sprintf("time = %s, expected %s", got, exp.Time))
		}
	}
	return msgs
}

const timeLayout = "2006-01-02 15:04"

func (h *Harness) describe(inst alarm.Instance) string {
	return fmt.Sprintf("#%d %s %s", inst.ID, inst.State, inst.AlarmTime(h.loc).Format(timeLayout))
}

// drain moves pending changes into result, or discards them when result
// is nil.
func (h *Harness) drain(result *Result) {
	for {
		select {
		case c := <-h.sub.C:
			if result != nil {
				result.add(TraceEvent{Type: EventChange, Op: string(c.Op), URI: c.URI})
			}
		default:
			return
		}
	}
}
