package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/deskclock/internal/alarm"
)

// NewInstanceCommand creates the instance command group.
func NewInstanceCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "instance",
		Short: "Inspect and drive scheduled alarm instances",
	}
	cmd.AddCommand(
		newInstanceListCommand(rootOpts),
		newInstanceSetStateCommand(rootOpts),
		newInstanceSnoozeCommand(rootOpts),
		newInstanceDismissCommand(rootOpts),
	)
	return cmd
}

func newInstanceListCommand(opts *RootOptions) *cobra.Command {
	var alarmID string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List instances in firing order",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				id  = alarm.InvalidID
				err error
			)
			if alarmID != "" {
				if id, err = parseID(alarmID); err != nil {
					return err
				}
			}
			return opts.withApp(func(a *app) error {
				var insts []alarm.Instance
				if id.Valid() {
					insts, err = a.store.InstancesForAlarm(cmd.Context(), id)
				} else {
					insts, err = a.store.Instances(cmd.Context(), "")
				}
				if err != nil {
					return err
				}
				return opts.formatter(cmd).Success(instanceList(insts))
			})
		},
	}
	cmd.Flags().StringVar(&alarmID, "alarm", "", "only instances of this alarm id")
	return cmd
}

func newInstanceSetStateCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "set-state <id> <state>",
		Short: "Move an instance to another state",
		Long: `Move an instance along a declared transition:

  SILENT -> NOTIFICATION
  NOTIFICATION, SNOOZE -> FIRED, DISMISSED
  FIRED -> SNOOZE, MISSED, DISMISSED
  MISSED -> DISMISSED

States may be given by name or number.`,
		Args: exactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			state, err := alarm.ParseInstanceState(args[1])
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid state", err)
			}
			return opts.withApp(func(a *app) error {
				ctx := cmd.Context()
				if err := a.schedule.SetState(ctx, id, state); err != nil {
					return err
				}
				inst, err := a.store.Instance(ctx, id)
				if err != nil {
					return err
				}
				return opts.formatter(cmd).Success(instanceResult{Action: "moved", Instance: inst})
			})
		},
	}
}

func newInstanceSnoozeCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "snooze <id>",
		Short: "Snooze a fired instance",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return opts.withApp(func(a *app) error {
				inst, err := a.schedule.Snooze(cmd.Context(), id)
				if err != nil {
					return err
				}
				return opts.formatter(cmd).Success(instanceResult{Action: "snoozed", Instance: inst})
			})
		},
	}
}

func newInstanceDismissCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "dismiss <id>",
		Short: "Dismiss an instance and advance its alarm",
		Long: `Dismiss an instance. One that has not fired yet is kept as
PREDISMISSED; one that fired or was missed is removed. A repeating alarm
then gets its next instance, a one-shot alarm is disabled or, with
delete-after-use, deleted.`,
		Args: exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return opts.withApp(func(a *app) error {
				res, err := a.schedule.Dismiss(cmd.Context(), id)
				if err != nil {
					return err
				}
				return opts.formatter(cmd).Success(dismissResult{
					InstanceID:    id,
					Predismissed:  res.Predismissed,
					Next:          res.Next,
					AlarmDeleted:  res.AlarmDeleted,
					AlarmDisabled: res.AlarmDisabled,
				})
			})
		},
	}
}
