package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/deskclock/internal/alarm"
)

// NewDBCommand creates the db command group.
func NewDBCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Database maintenance",
	}
	cmd.AddCommand(newDBInfoCommand(rootOpts), newDBMigrateCommand(rootOpts))
	return cmd
}

func newDBInfoCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show schema version and row counts",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(func(a *app) error {
				info, err := collectInfo(cmd, opts, a)
				if err != nil {
					return err
				}
				return opts.formatter(cmd).Success(info)
			})
		},
	}
}

func newDBMigrateCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Upgrade the database schema to the current version",
		Long: `Upgrade the database schema. Opening the database always migrates it;
this command does only that and reports the result. Databases from a
newer release are refused.`,
		Args: exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(func(a *app) error {
				info, err := collectInfo(cmd, opts, a)
				if err != nil {
					return err
				}
				opts.Logger.Info("database migrated", "path", info.Path, "version", info.Version)
				return opts.formatter(cmd).Success(info)
			})
		},
	}
}

func collectInfo(cmd *cobra.Command, opts *RootOptions, a *app) (dbInfo, error) {
	ctx := cmd.Context()
	info := dbInfo{Path: opts.Config.Database.Path}

	var err error
	if info.Version, err = a.store.Version(ctx); err != nil {
		return dbInfo{}, err
	}
	if info.Alarms, err = a.store.Count(ctx, alarm.AlarmsTable); err != nil {
		return dbInfo{}, err
	}
	if info.Instances, err = a.store.Count(ctx, alarm.InstancesTable); err != nil {
		return dbInfo{}, err
	}
	return info, nil
}
