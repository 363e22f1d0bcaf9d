package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/roach88/deskclock/internal/alarm"
	"github.com/roach88/deskclock/internal/ticker"
)

// WatchOptions holds flags for the watch command.
type WatchOptions struct {
	*RootOptions
	Period time.Duration
	Count  int
}

// NewWatchCommand creates the watch command.
func NewWatchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &WatchOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Print the countdown to the next alarm",
		Long: `Print the time left until the next live instance once per period.

While watching, Prometheus metrics are served on metrics.listen when it
is set.

Example:
  deskclock watch --period 1m
  deskclock watch --count 1 --format json`,
		Args: exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd, opts)
		},
	}

	cmd.Flags().DurationVar(&opts.Period, "period", time.Second, "refresh period")
	cmd.Flags().IntVar(&opts.Count, "count", 0, "stop after this many refreshes (0 runs until interrupted)")

	return cmd
}

func runWatch(cmd *cobra.Command, opts *WatchOptions) error {
	if opts.Period <= 0 {
		return NewExitError(ExitCommandError, "--period must be positive")
	}
	log := opts.Logger
	cfg := opts.Config

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	reg := prometheus.NewRegistry()
	a, err := opts.open(reg)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()

	if cfg.Metrics.Listen != "" {
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		shutdown, err := serveMetrics(cfg.Metrics.Listen, reg, log)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to serve metrics", err)
		}
		defer shutdown()
	}

	out := opts.formatter(cmd)
	var (
		ticks   int
		tickErr error
	)
	err = ticker.Run(ctx, opts.Period, func(time.Time) {
		c, err := nextCountdown(ctx, a, opts.now().In(opts.loc), opts.loc)
		if err == nil {
			err = out.Success(c)
		}
		if err != nil {
			tickErr = err
			cancel()
			return
		}
		ticks++
		if opts.Count > 0 && ticks >= opts.Count {
			cancel()
		}
	})
	if tickErr != nil {
		return tickErr
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Debug("watch stopped", "ticks", ticks)
	return nil
}

// countdown is one watch line.
type countdown struct {
	Now     time.Time       `json:"now"`
	Next    *alarm.Instance `json:"next,omitempty"`
	Seconds int64           `json:"seconds_left,omitempty"`

	left time.Duration
}

func nextCountdown(ctx context.Context, a *app, now time.Time, loc *time.Location) (countdown, error) {
	next, err := a.schedule.Next(ctx)
	if err != nil {
		return countdown{}, err
	}
	c := countdown{Now: now, Next: next}
	if next != nil {
		c.left = next.AlarmTime(loc).Sub(now).Truncate(time.Second)
		if c.left < 0 {
			c.left = 0
		}
		c.Seconds = int64(c.left / time.Second)
	}
	return c, nil
}

func (c countdown) WriteText(w io.Writer) error {
	if c.Next == nil {
		_, err := fmt.Fprintf(w, "%s  no alarm scheduled\n", c.Now.Format("15:04:05"))
		return err
	}
	left := "due"
	if c.left > 0 {
		left = "in " + c.left.String()
	}
	_, err := fmt.Fprintf(w, "%s  next alarm %s (%s, alarm %d, %s)\n",
		c.Now.Format("15:04:05"), left, wallClock(*c.Next), c.Next.AlarmID, c.Next.State)
	return err
}

// serveMetrics exposes reg on addr at /metrics. The returned func stops
// the server.
func serveMetrics(addr string, reg *prometheus.Registry, log *slog.Logger) (func(), error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server failed", "error", err)
		}
	}()
	log.Info("serving metrics", "addr", ln.Addr().String())

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Warn("metrics server shutdown", "error", err)
		}
	}, nil
}
