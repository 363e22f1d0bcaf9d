package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/roach88/deskclock/internal/alarm"
	"github.com/roach88/deskclock/internal/provider"
	"github.com/roach88/deskclock/internal/store"
)

// alarmFlags are the alarm fields settable from the command line.
type alarmFlags struct {
	time             string
	days             string
	label            string
	ringtone         string
	vibrate          bool
	deleteAfterUse   bool
	increasingVolume bool
	flash            bool
	disabled         bool
}

func (f *alarmFlags) register(fs *pflag.FlagSet, withTime bool) {
	if withTime {
		fs.StringVar(&f.time, "time", "", "time of day (HH:MM)")
	}
	fs.StringVar(&f.days, "days", "", `repeat days ("mon,wed", "workdays", "weekend", "everyday"; empty for once)`)
	fs.StringVar(&f.label, "label", "", "label")
	fs.StringVar(&f.ringtone, "ringtone", "", `ringtone URI ("silent" for none, empty for the system default)`)
	fs.BoolVar(&f.vibrate, "vibrate", true, "vibrate while ringing")
	fs.BoolVar(&f.deleteAfterUse, "delete-after-use", false, "delete a one-shot alarm once dismissed")
	fs.BoolVar(&f.increasingVolume, "increasing-volume", false, "ramp the volume up")
	fs.BoolVar(&f.flash, "flash", false, "flash while ringing")
}

// apply copies the flags that were set on fs into a. With all, every flag
// is applied whether set or not.
func (f *alarmFlags) apply(fs *pflag.FlagSet, a *alarm.Alarm, all bool) error {
	set := func(name string) bool { return all || fs.Changed(name) }

	if f.time != "" {
		h, m, err := parseClock(f.time)
		if err != nil {
			return err
		}
		a.Hour, a.Minutes = h, m
	}
	if set("days") {
		days, err := alarm.ParseWeekdays(f.days)
		if err != nil {
			return WrapExitError(ExitCommandError, "invalid --days", err)
		}
		a.DaysOfWeek = days
	}
	if set("label") {
		a.Label = f.label
	}
	if set("ringtone") {
		a.Ringtone = parseRingtone(f.ringtone)
	}
	if set("vibrate") {
		a.Vibrate = f.vibrate
	}
	if set("delete-after-use") {
		a.DeleteAfterUse = f.deleteAfterUse
	}
	if set("increasing-volume") {
		a.IncreasingVolume = f.increasingVolume
	}
	if set("flash") {
		a.Flash = f.flash
	}
	return nil
}

// parseClock parses "H:MM" or "HH:MM".
func parseClock(s string) (hour, minutes int, err error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return 0, 0, NewExitError(ExitCommandError, fmt.Sprintf("invalid time %q: want HH:MM", s))
	}
	return t.Hour(), t.Minute(), nil
}

func parseRingtone(s string) alarm.Ringtone {
	switch strings.ToLower(s) {
	case "", "default":
		return alarm.DefaultRingtone
	case "silent", string(alarm.SilentRingtone):
		return alarm.SilentRingtone
	}
	return alarm.Ringtone(s)
}

// NewAlarmCommand creates the alarm command group.
func NewAlarmCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "alarm",
		Short: "Manage alarms",
	}
	cmd.AddCommand(
		newAlarmListCommand(rootOpts),
		newAlarmAddCommand(rootOpts),
		newAlarmUpdateCommand(rootOpts),
		newAlarmEnableCommand(rootOpts),
		newAlarmDisableCommand(rootOpts),
		newAlarmDeleteCommand(rootOpts),
	)
	return cmd
}

func newAlarmListCommand(opts *RootOptions) *cobra.Command {
	var enabledOnly bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List alarms with their current instance",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(func(a *app) error {
				var sel store.Selection
				if enabledOnly {
					sel = sel.And(alarm.AlarmsTable+"."+alarm.ColEnabled+" = ?", 1)
				}
				rows, err := a.provider.Query(cmd.Context(), provider.AlarmsWithInstancesURI, nil, sel)
				if err != nil {
					return err
				}
				list := make(alarmList, 0, len(rows))
				for _, row := range rows {
					j, err := alarm.JoinedFromValues(row)
					if err != nil {
						return err
					}
					list = append(list, j)
				}
				return opts.formatter(cmd).Success(list)
			})
		},
	}
	cmd.Flags().BoolVar(&enabledOnly, "enabled", false, "only enabled alarms")
	return cmd
}

func newAlarmAddCommand(opts *RootOptions) *cobra.Command {
	var flags alarmFlags
	cmd := &cobra.Command{
		Use:   "add <HH:MM>",
		Short: "Add an alarm and schedule it",
		Example: `  deskclock alarm add 07:30 --days workdays --label Work
  deskclock alarm add 6:45 --delete-after-use`,
		Args: exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, m, err := parseClock(args[0])
			if err != nil {
				return err
			}
			al := alarm.New(h, m)
			if err := flags.apply(cmd.Flags(), &al, true); err != nil {
				return err
			}
			al.Enabled = !flags.disabled

			return opts.withApp(func(a *app) error {
				ctx := cmd.Context()
				if err := a.provider.InsertAlarm(ctx, &al); err != nil {
					return err
				}
				res := alarmResult{Action: "added", Alarm: al}
				if al.Enabled {
					next, err := a.schedule.Enable(ctx, al.ID)
					if err != nil {
						return err
					}
					res.Next = &next
				}
				return opts.formatter(cmd).Success(res)
			})
		},
	}
	flags.register(cmd.Flags(), false)
	cmd.Flags().BoolVar(&flags.disabled, "disabled", false, "add the alarm switched off")
	return cmd
}

func newAlarmUpdateCommand(opts *RootOptions) *cobra.Command {
	var flags alarmFlags
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change an alarm and reschedule it",
		Long: `Change the given fields of an alarm. Its instances are replaced by
one for the next firing under the new settings if the alarm is enabled.`,
		Args: exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return opts.withApp(func(a *app) error {
				ctx := cmd.Context()
				al, err := a.store.Alarm(ctx, id)
				if err != nil {
					return err
				}
				if err := flags.apply(cmd.Flags(), &al, false); err != nil {
					return err
				}
				if _, err := a.provider.UpdateAlarm(ctx, al); err != nil {
					return err
				}
				next, err := reschedule(ctx, a, al)
				if err != nil {
					return err
				}
				al.Label = alarm.NormalizeLabel(al.Label)
				return opts.formatter(cmd).Success(alarmResult{Action: "updated", Alarm: al, Next: next})
			})
		},
	}
	flags.register(cmd.Flags(), true)
	return cmd
}

// reschedule drops an alarm's instances and, if it is enabled, schedules
// the next one.
func reschedule(ctx context.Context, a *app, al alarm.Alarm) (*alarm.Instance, error) {
	if _, err := a.provider.DeleteInstancesForAlarm(ctx, al.ID); err != nil {
		return nil, err
	}
	if !al.Enabled {
		return nil, nil
	}
	next, err := a.schedule.Enable(ctx, al.ID)
	if err != nil {
		return nil, err
	}
	return &next, nil
}

func newAlarmEnableCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "enable <id>",
		Short: "Switch an alarm on and schedule its next instance",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return opts.withApp(func(a *app) error {
				ctx := cmd.Context()
				next, err := a.schedule.Enable(ctx, id)
				if err != nil {
					return err
				}
				al, err := a.store.Alarm(ctx, id)
				if err != nil {
					return err
				}
				return opts.formatter(cmd).Success(alarmResult{Action: "enabled", Alarm: al, Next: &next})
			})
		},
	}
}

func newAlarmDisableCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "disable <id>",
		Short: "Switch an alarm off and remove its instances",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return opts.withApp(func(a *app) error {
				ctx := cmd.Context()
				if err := a.schedule.Disable(ctx, id); err != nil {
					return err
				}
				al, err := a.store.Alarm(ctx, id)
				if err != nil {
					return err
				}
				return opts.formatter(cmd).Success(alarmResult{Action: "disabled", Alarm: al})
			})
		},
	}
}

func newAlarmDeleteCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an alarm and its instances",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return opts.withApp(func(a *app) error {
				n, err := a.provider.DeleteAlarm(cmd.Context(), id)
				if err != nil {
					return err
				}
				if n == 0 {
					return fmt.Errorf("alarm %d: %w", id, store.ErrNotFound)
				}
				return opts.formatter(cmd).Success(deleted{Kind: "alarm", ID: id, Count: n})
			})
		},
	}
}
