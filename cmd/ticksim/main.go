// Command ticksim runs the tick timer against a configurable set of sleeping
// threads, reporting each wake and the final timer statistics as structured
// logs.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"
	"time"

	ticktimer "github.com/joeycumines/go-ticktimer"
	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML simulation config (optional)")
	flag.Parse()

	if err := run(*configPath); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "ticksim: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg := DefaultConfig()
	if configPath != "" {
		loaded, err := LoadConfig(configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	logger := newLogger(cfg.Logging.Level)

	timer, err := ticktimer.New(
		ticktimer.WithFrequency(cfg.Frequency),
		ticktimer.WithLogger(logger),
	)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	runDone := make(chan error, 1)
	go func() {
		runDone <- timer.Run(ctx)
	}()

	// boot sequence: wait for the driver to deliver its first tick, then
	// calibrate the busy-wait loop
	for timer.Ticks() == 0 {
		select {
		case err := <-runDone:
			return err
		case <-time.After(time.Millisecond):
		}
	}
	if cfg.Calibrate {
		timer.Calibrate()
	}

	var wg sync.WaitGroup
	for _, sleeper := range cfg.Sleepers {
		wg.Add(1)
		go func(sleeper SleeperConfig) {
			defer wg.Done()

			mark := timer.Ticks()
			switch {
			case sleeper.Ticks > 0:
				timer.SleepTicks(sleeper.Ticks)
			case sleeper.Millis > 0:
				timer.SleepMillis(sleeper.Millis)
			default:
				timer.SleepMicros(sleeper.Micros)
			}

			logger.Info().
				Str(`sleeper`, sleeper.Name).
				Int64(`elapsed_ticks`, int64(timer.Elapsed(mark))).
				Log(`sleeper woke`)
		}(sleeper)
	}
	wg.Wait()

	stats := timer.Stats()
	logger.Info().
		Int64(`ticks`, int64(stats.Ticks)).
		Uint64(`woken`, stats.Woken).
		Log(`simulation complete`)

	stop()
	if err := <-runDone; err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func newLogger(level string) *logiface.Logger[logiface.Event] {
	lvl := logiface.LevelInformational
	switch strings.ToLower(level) {
	case "err", "error":
		lvl = logiface.LevelError
	case "warning", "warn":
		lvl = logiface.LevelWarning
	case "notice":
		lvl = logiface.LevelNotice
	case "", "info":
		// default
	case "debug":
		lvl = logiface.LevelDebug
	case "trace":
		lvl = logiface.LevelTrace
	}

	return stumpy.L.New(
		stumpy.L.WithStumpy(stumpy.WithWriter(os.Stderr)),
		stumpy.L.WithLevel(lvl),
	).Logger()
}
