package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"periph.io/x/host/v3"

	"github.com/jrockway/beaglebone-alarm-clock/control/clock"
	"github.com/jrockway/beaglebone-alarm-clock/control/config"
	"github.com/jrockway/beaglebone-alarm-clock/control/editor"
	"github.com/jrockway/beaglebone-alarm-clock/control/logger"
	"github.com/jrockway/beaglebone-alarm-clock/control/status"
	"github.com/jrockway/beaglebone-alarm-clock/control/timesource"
)

var (
	configPath string
	bind       string
	logLevel   string

	rootCmd = &cobra.Command{
		Use:   "run-clock",
		Short: "Run the alarm clock.",
		Long: `Shows the time, lets the operator set and arm a single alarm with the buttons, and
sounds the alarm when its minute comes.  Pressing cancel on the main screen exits.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(logger.WithName(ctx, "run-clock"))
		},
	}
)

func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	rootCmd.Flags().StringVar(&bind, "bind", ":8080", "address to bind for debug/metrics server; empty to disable")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error); overrides the configuration file")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		ctx := context.Background()
		var cerr *config.Error
		var derr *clock.DriverError
		switch {
		case errors.As(err, &cerr):
			logger.ErrorKV(ctx, "not starting: bad configuration", "field", cerr.Field, "error", cerr.Err)
		case errors.As(err, &derr):
			logger.ErrorKV(ctx, "device failure", "op", derr.Op, "error", derr.Err)
		default:
			logger.Errorf(ctx, "exiting: %v", err)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if logLevel == "" {
		logLevel = cfg.LogLevel
	}
	level, ok := logger.ParseLogLevel(logLevel)
	if !ok {
		return &config.Error{Field: "log_level", Err: errors.New("unknown level " + logLevel)}
	}
	logger.SetLevel(level)

	if _, err := host.Init(); err != nil {
		return &config.Error{Field: "host", Err: err}
	}

	var fallback *time.Duration
	if cfg.FallbackOffset != nil {
		d := cfg.FallbackOffset.D()
		fallback = &d
	}
	sel, err := timesource.New(cfg.Timezone, fallback)
	if err != nil {
		return &config.Error{Field: "timezone", Err: err}
	}
	board := status.NewBoard()
	board.SetSource(fmt.Sprint(sel.Source), sel.Fallback)
	if sel.Fallback {
		logger.WarnKV(ctx, "time zone database unavailable; using fixed offset", "timezone", cfg.Timezone, "source", sel.Source, "error", sel.Err)
	} else {
		logger.InfoKV(ctx, "time source ready", "source", sel.Source)
	}
	if cfg.Chrony != "" {
		checkSync(ctx, cfg.Chrony, board)
	}

	hw, err := openHardware(ctx, cfg)
	if err != nil {
		return err
	}
	defer hw.Close()
	if err := hw.screen.Blank(); err != nil {
		return &clock.DriverError{Op: "blank screen", Err: err}
	}

	sleep := time.Sleep
	cl, err := clock.New(clock.Options{
		Time:      sel.Source,
		Display:   hw.screen,
		Input:     hw.panel,
		Touch:     hw.panel,
		Indicator: hw.indicator,
		Sounder:   hw.sounder,
		Editor: &editor.Editor{
			Display:      hw.screen,
			Input:        hw.panel,
			Title:        cfg.Messages.EditTitle,
			Debounce:     cfg.Debounce.D(),
			PollInterval: cfg.PollInterval.D(),
			Sleep:        sleep,
		},
		Messages: clock.Messages{
			AlarmOff: cfg.Messages.AlarmOff,
			AlarmOn:  cfg.Messages.AlarmOn,
			Armed:    cfg.Messages.Armed,
			Disarmed: cfg.Messages.Disarmed,
			Exiting:  cfg.Messages.Exiting,
		},
		Dwell:     cfg.Dwell.D(),
		EditPause: cfg.EditPause.D(),
		Sleep:     sleep,
		Report: func(now timesource.ClockTime, a clock.AlarmSetting) {
			board.Report(now, a.Enabled, a.Hour, a.Minute)
		},
	})
	if err != nil {
		return err
	}
	defer cl.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var httpServer *http.Server
	httpDoneCh := make(chan error)
	if bind != "" {
		mux := http.NewServeMux()
		mux.Handle("/", board)
		mux.Handle("/display.png", hw.screen)
		mux.Handle("/metrics", promhttp.Handler())
		// golang.org/x/net/trace registers its pages on the default mux.
		mux.Handle("/debug/", http.DefaultServeMux)

		httpServer = &http.Server{Addr: bind, Handler: mux}
		go func() {
			logger.Infof(ctx, "http server listening on %s", httpServer.Addr)
			err := httpServer.ListenAndServe()
			select {
			case httpDoneCh <- err:
			case <-ctx.Done():
			}
			close(httpDoneCh)
		}()
	}

	loopDoneCh := make(chan error)
	go func() {
		err := cl.Run(ctx, clock.WaitForTick(cfg.Tick.D()))
		select {
		case loopDoneCh <- err:
		case <-ctx.Done():
		}
		close(loopDoneCh)
	}()

	var result error
	select {
	case err := <-httpDoneCh:
		logger.Errorf(ctx, "http server died: %v", err)
		httpServer = nil
		result = err
	case err := <-loopDoneCh:
		if err != nil {
			logger.Errorf(ctx, "clock loop died: %v", err)
		} else {
			logger.Infof(ctx, "exit requested by operator")
		}
		result = err
	case <-ctx.Done():
		logger.Infof(ctx, "interrupt")
		result = ctx.Err()
	}
	cancel()
	hw.indicator.SetAll(false)
	hw.screen.Halt()
	if httpServer != nil {
		tctx, c := context.WithTimeout(context.Background(), time.Second)
		httpServer.Shutdown(tctx)
		c()
	}
	return result
}

// checkSync reports whether chronyd thinks the system clock is right.  It never stops the clock
// from starting.
func checkSync(ctx context.Context, addr string, board *status.Board) {
	tctx, c := context.WithTimeout(ctx, 2*time.Second)
	defer c()
	st, err := timesource.CheckSync(tctx, addr)
	board.SetSync(st, err)
	if err != nil {
		logger.WarnKV(ctx, "could not query chronyd; alarm accuracy unknown", "addr", addr, "error", err)
		return
	}
	if !st.Synchronized() {
		logger.WarnKV(ctx, "system clock is not synchronized; the alarm may fire at the wrong time", "refid", st.RefID, "stratum", st.Stratum)
		return
	}
	logger.InfoKV(ctx, "system clock synchronized", "refid", st.RefID, "stratum", st.Stratum, "offset", st.Offset, "correction", st.Correction)
}
