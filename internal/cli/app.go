package cli

import (
	"fmt"
	"log/slog"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/roach88/deskclock/internal/alarm"
	"github.com/roach88/deskclock/internal/config"
	"github.com/roach88/deskclock/internal/notify"
	"github.com/roach88/deskclock/internal/provider"
	"github.com/roach88/deskclock/internal/schedule"
	"github.com/roach88/deskclock/internal/store"
)

// app is the wiring every command works through.
type app struct {
	store    *store.Store
	bus      *notify.Bus
	provider *provider.Provider
	schedule *schedule.Service

	closeMQTT func()
}

// mqttClient is the part of an MQTT client the change feed uses.
type mqttClient interface {
	notify.Publisher
	Disconnect(quiesce uint)
}

func dialMQTT(broker, clientID string, log *slog.Logger) (mqttClient, error) {
	return notify.DialMQTT(broker, clientID, log)
}

// open opens the configured database and wires the bus, provider and
// scheduler over it. A non-nil reg gets the provider and bus metrics. When
// mqtt.broker is set every change the command makes is published there.
func (o *RootOptions) open(reg prometheus.Registerer) (*app, error) {
	log := o.Logger

	var (
		busOpts      = []notify.Option{notify.WithLogger(log), notify.WithClock(o.now)}
		providerOpts = []provider.Option{provider.WithLogger(log)}
	)
	if reg != nil {
		nm, err := notify.NewMetrics(reg)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to register metrics", err)
		}
		pm, err := provider.NewMetrics(reg)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to register metrics", err)
		}
		busOpts = append(busOpts, notify.WithMetrics(nm))
		providerOpts = append(providerOpts, provider.WithMetrics(pm))
	}

	bus := notify.NewBus(busOpts...)
	var closeMQTT func()
	if o.Config.MQTT.Broker != "" {
		var err error
		if closeMQTT, err = o.startMQTT(bus, o.Config.MQTT); err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to connect to mqtt broker", err)
		}
	}

	log.Debug("opening database", "path", o.Config.Database.Path)
	st, err := store.Open(o.Config.Database.Path,
		store.WithLogger(log),
		store.WithClock(o.now),
		store.WithSeedDefaults(o.Config.Database.SeedDefaults),
	)
	if err != nil {
		if closeMQTT != nil {
			closeMQTT()
		}
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}

	p := provider.New(st, bus, providerOpts...)
	return &app{
		store:    st,
		bus:      bus,
		provider: p,
		schedule: schedule.New(p,
			schedule.WithClock(o.now),
			schedule.WithLocation(o.loc),
			schedule.WithSnooze(o.Config.Alarms.Snooze()),
			schedule.WithLogger(log),
		),
		closeMQTT: closeMQTT,
	}, nil
}

// startMQTT connects to the broker and publishes every bus change there.
// The returned func flushes the sink and disconnects.
func (o *RootOptions) startMQTT(bus *notify.Bus, cfg config.MQTT) (func(), error) {
	dial := o.dialMQTT
	if dial == nil {
		dial = dialMQTT
	}
	client, err := dial(cfg.Broker, cfg.ClientID, o.Logger)
	if err != nil {
		return nil, err
	}
	sink := notify.NewMQTTSink(client, notify.MQTTConfig{
		Topic: cfg.Topic,
		QoS:   byte(cfg.QoS),
	}, o.Logger)
	bus.AddSink(sink)
	o.Logger.Debug("publishing changes", "broker", cfg.Broker, "topic", cfg.Topic)
	return func() {
		sink.Close()
		client.Disconnect(250)
	}, nil
}

// Close flushes the change feed, if any, and closes the database.
func (a *app) Close() error {
	if a.closeMQTT != nil {
		a.closeMQTT()
	}
	return a.store.Close()
}

// withApp opens the app for one command and closes it afterwards.
func (o *RootOptions) withApp(fn func(a *app) error) error {
	a, err := o.open(nil)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			o.Logger.Error("error closing database", "error", closeErr)
		}
	}()
	return fn(a)
}

// exactArgs is cobra.ExactArgs with a command-error exit code.
func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := cobra.ExactArgs(n)(cmd, args); err != nil {
			return WrapExitError(ExitCommandError, "invalid arguments", err)
		}
		return nil
	}
}

func minArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := cobra.MinimumNArgs(n)(cmd, args); err != nil {
			return WrapExitError(ExitCommandError, "invalid arguments", err)
		}
		return nil
	}
}

func parseID(s string) (alarm.ID, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n < 0 {
		return alarm.InvalidID, NewExitError(ExitCommandError, fmt.Sprintf("invalid id %q", s))
	}
	return alarm.ID(n), nil
}
