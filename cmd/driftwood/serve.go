package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/driftwood/driftwood/internal/config"
	"github.com/driftwood/driftwood/internal/debrid"
	"github.com/driftwood/driftwood/internal/identify"
	"github.com/driftwood/driftwood/internal/logger"
	"github.com/driftwood/driftwood/internal/mediaserver"
	"github.com/driftwood/driftwood/internal/metadata"
	"github.com/driftwood/driftwood/internal/mount"
	"github.com/driftwood/driftwood/internal/orchestrator"
	"github.com/driftwood/driftwood/internal/organizer"
	"github.com/driftwood/driftwood/internal/repair"
	"github.com/driftwood/driftwood/internal/store"
	"github.com/driftwood/driftwood/internal/webhook"
)

func newServeCmd() *cobra.Command {
	var once bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the reconciliation daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(once)
		},
	}
	cmd.Flags().BoolVar(&once, "once", false, "run a single scan cycle and exit")
	return cmd
}

func bootstrap() (*config.Config, *logger.Logger, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, nil, err
	}
	if flagLogLevel != "" {
		cfg.Log.Level = flagLogLevel
	}
	log := logger.New(logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Path:       cfg.Log.Path,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
		Compress:   cfg.Log.Compress,
	})
	return cfg, log, nil
}

func runServe(once bool) error {
	cfg, log, err := bootstrap()
	if err != nil {
		return err
	}
	defer log.Close()

	log.Info().
		Str("version", Version).
		Str("mount", cfg.Mount.Root).
		Str("films", cfg.Library.FilmsDir).
		Str("shows", cfg.Library.ShowsDir).
		Msg("driftwood starting")

	for _, dir := range []string{cfg.Library.FilmsDir, cfg.Library.ShowsDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create library dir %s: %w", dir, err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st := store.New(cfg.Store.URL, log.Logger)
	if !st.WaitReady(ctx) {
		return fmt.Errorf("record store at %s never became ready", cfg.Store.URL)
	}

	scanner := mount.NewScanner(cfg.Mount.Root, log.Logger)
	if !scanner.WaitForMount(ctx) {
		log.Warn().Str("root", cfg.Mount.Root).Msg("mount still empty, scanning anyway")
	}

	catalogue := metadata.New(cfg.Metadata.BaseURL, cfg.Metadata.APIKey, log.Logger)
	if !catalogue.IsConfigured() {
		log.Warn().Msg("no metadata api key, identification disabled")
	}
	deb := debrid.New(cfg.Debrid.BaseURL, cfg.Debrid.APIKey, cfg.Debrid.MinFileSizeMB, log.Logger)
	if !deb.IsConfigured() {
		log.Warn().Msg("no debrid api key, hydration and repair disabled")
	}

	resolver := identify.NewResolver(st, log.Logger)
	identifier := identify.NewIdentifier(st, catalogue, resolver, log.Logger)
	repairer := repair.New(st, deb, cfg.Repair, log.Logger)
	org := organizer.New(st, catalogue, scanner, cfg.Library, cfg.Mount, log.Logger)
	media := mediaserver.New(cfg.MediaServer.URL, cfg.MediaServer.APIKey, log.Logger)

	orch := orchestrator.New(cfg, st, scanner, catalogue, identifier,
		repairer, org, media, deb, log.Logger)

	if once {
		orch.RunCycle(ctx)
		return nil
	}

	hook := webhook.New(orch, cfg.Webhook.Port, log.Logger)
	go func() {
		if err := hook.Start(); err != nil {
			log.Error().Err(err).Msg("webhook listener failed")
		}
	}()

	orch.Run(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := hook.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("webhook shutdown failed")
	}
	log.Info().Msg("driftwood stopped")
	return nil
}
