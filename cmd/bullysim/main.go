// Command bullysim runs the deterministic Bully leader-election
// simulator: it loads a JSON configuration, wires the three NDJSON
// output sinks, and drives the scheduler to completion.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"golang.org/x/xerrors"

	"github.com/Georspai/bully-election-mpi-sim/internal/config"
	"github.com/Georspai/bully-election-mpi-sim/internal/obslog"
	"github.com/Georspai/bully-election-mpi-sim/internal/scheduler"
	"github.com/Georspai/bully-election-mpi-sim/internal/sinks"
)

func main() {
	configPath := flag.String("config", "config.json", "path to the simulation configuration file")
	statePath := flag.String("state", "", "override the state stream output path")
	messagePath := flag.String("messages", "", "override the message stream output path")
	debugPath := flag.String("debug", "", "override the debug stream output path")
	flag.Parse()

	log := obslog.New(nil)

	if err := run(*configPath, *statePath, *messagePath, *debugPath, log); err != nil {
		log.Fatal().Err(err).Msg("simulation failed")
	}
}

func run(configPath, statePath, messagePath, debugPath string, log zerolog.Logger) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		// ConfigWarning: logged, not fatal; Load already returned a usable
		// default configuration.
		log.Warn().Err(err).Str("path", configPath).Msg("using default configuration")
	}

	if statePath != "" {
		cfg.Logging.StatePath = statePath
	}
	if messagePath != "" {
		cfg.Logging.MessagePath = messagePath
	}
	if debugPath != "" {
		cfg.Logging.DebugPath = debugPath
	}
	log = obslog.SetVerbose(log, cfg.Logging.Verbose)

	stateSink, err := sinks.Open("state", cfg.Logging.StatePath, log)
	if err != nil {
		return xerrors.Errorf("opening state sink: %w", err)
	}
	defer stateSink.Close()

	messageSink, err := sinks.Open("messages", cfg.Logging.MessagePath, log)
	if err != nil {
		return xerrors.Errorf("opening message sink: %w", err)
	}
	defer messageSink.Close()

	debugSink, err := sinks.Open("debug", cfg.Logging.DebugPath, log)
	if err != nil {
		return xerrors.Errorf("opening debug sink: %w", err)
	}
	defer debugSink.Close()

	sched := scheduler.New(cfg, log, scheduler.Sinks{State: stateSink, Message: messageSink, Debug: debugSink})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return sched.Run(ctx)
}
