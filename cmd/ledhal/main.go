package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/coreman2200/ledhal/cmd/ledhal/interactive"
	"github.com/coreman2200/ledhal/internal/backend"
	"github.com/coreman2200/ledhal/internal/config"
	"github.com/coreman2200/ledhal/internal/hal"
	"github.com/coreman2200/ledhal/internal/host"
	"github.com/coreman2200/ledhal/internal/pattern"
	"github.com/coreman2200/ledhal/internal/settings"
)

func main() {
	var (
		configPath  = flag.String("config", "ledhal.yaml", "path to the host configuration")
		logLevel    = flag.String("log-level", "", "trace | debug | info | warn | error (overrides config)")
		check       = flag.Bool("check", false, "validate the configuration and exit")
		interact    = flag.Bool("interactive", false, "start the interactive shell")
		patternKind = flag.String("pattern", "", "play a test pattern on every hardware and exit")
		interval    = flag.Duration("interval", 200*time.Millisecond, "frame interval for -pattern")
		writeConfig = flag.String("write-config", "", "write the effective configuration to this path and exit")
	)
	flag.Parse()

	// ---- Logging ----
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen})

	// ---- Config ----
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Warn().Err(err).Str("path", *configPath).Msg("config load failed; using a single dummy strip")
		cfg = config.Default()
	}
	level := cfg.LogLevel
	if *logLevel != "" {
		level = *logLevel
	}
	if lvl, err := zerolog.ParseLevel(level); err == nil && level != "" {
		zerolog.SetGlobalLevel(lvl)
	}

	if *writeConfig != "" {
		if err := config.Save(*writeConfig, cfg); err != nil {
			log.Fatal().Err(err).Msg("write config")
		}
		return
	}

	// The shell owns the terminal; logs go through it.
	var shell *interactive.Shell
	if *interact {
		shell, err = interactive.New()
		if err != nil {
			log.Fatal().Err(err).Msg("interactive shell")
		}
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: shell.Stdout(), TimeFormat: time.Kitchen})
	}

	// ---- Backends ----
	loader := hal.NewLoader(log.Logger)
	if err := backend.RegisterAll(loader); err != nil {
		log.Fatal().Err(err).Msg("registering backends")
	}

	report := cfg.Check(loader.Families())
	report.Log(&log.Logger)
	if *check {
		if report.HasErrors() {
			os.Exit(1)
		}
		log.Info().Int("hardware", len(cfg.Hardware)).Msg("configuration ok")
		return
	}

	h := host.New(log.Logger, loader, settings.NewRegistry())

	// ---- Bring-up ----
	if err := h.UpAll(cfg); err != nil {
		log.Warn().Err(err).Msg("some hardware failed to come up")
	}
	defer func() {
		if err := h.Close(); err != nil {
			log.Error().Err(err).Msg("shutdown")
		}
	}()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	switch {
	case shell != nil:
		shell.Run(ctx, cancel, h)

	case *patternKind != "":
		kind, err := pattern.ParseKind(*patternKind)
		if err != nil {
			log.Error().Err(err).Msg("pattern")
			return
		}
		for _, name := range h.Names() {
			n, err := h.RunPattern(ctx, name, kind, *interval)
			if errors.Is(err, context.Canceled) {
				return
			}
			if err != nil {
				log.Error().Err(err).Str("hw", name).Msg("pattern failed")
				continue
			}
			log.Info().Str("hw", name).Int("frames", n).Msg("pattern done")
		}

	default:
		log.Info().Strs("hardware", h.Names()).Msg("running; ^C to stop")
		<-ctx.Done()
		log.Info().Msg("shutting down")
	}
}
