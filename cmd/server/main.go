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

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	router "github.com/dkeye/Chathub/internal/adapters/http"
	"github.com/dkeye/Chathub/internal/adapters/memstore"
	"github.com/dkeye/Chathub/internal/adapters/natsbridge"
	wssignal "github.com/dkeye/Chathub/internal/adapters/signal"
	"github.com/dkeye/Chathub/internal/app"
	"github.com/dkeye/Chathub/internal/app/calls"
	"github.com/dkeye/Chathub/internal/app/dispatch"
	"github.com/dkeye/Chathub/internal/app/orch"
	"github.com/dkeye/Chathub/internal/app/presence"
	"github.com/dkeye/Chathub/internal/config"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Console logger until the config says otherwise, so config.Load can log.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	setupLogging(cfg.Log)

	if err := run(ctx, cfg); err != nil {
		log.Error().Err(err).Msg("server stopped with error")
		os.Exit(1)
	}
	log.Info().Msg("Server exited gracefully")
}

func setupLogging(lc config.LogConfig) {
	if lc.Format == "json" {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}
	if lvl, err := zerolog.ParseLevel(lc.Level); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := app.NewMetrics(registry)
	if err := metrics.Register(); err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}

	policy, err := dispatch.PolicyByName(cfg.Dispatch.Policy)
	if err != nil {
		return err
	}

	opts := orch.Options{
		GracePeriod:       cfg.Presence.GracePeriod,
		Shards:            cfg.Presence.Shards,
		Policy:            policy,
		ParallelThreshold: cfg.Dispatch.ParallelThreshold,
		MaxParallel:       cfg.Dispatch.MaxParallel,
		CallRetention:     cfg.Calls.Retention,
		Metrics:           metrics,
	}

	if cfg.NATS.URL != "" {
		nc, err := natsbridge.Connect(cfg.NATS.URL, "chathub")
		if err != nil {
			return fmt.Errorf("connect nats: %w", err)
		}
		defer func() {
			if err := nc.Drain(); err != nil {
				log.Warn().Err(err).Msg("nats drain")
			}
		}()
		bridge := natsbridge.New(nc, cfg.NATS.SubjectPrefix)
		opts.Observers = []dispatch.Observer{bridge}
		opts.CallObservers = []calls.Observer{bridge}
		opts.PresenceListeners = []presence.Listener{bridge.OnPresence}
		log.Info().Str("url", nc.ConnectedUrl()).Str("prefix", cfg.NATS.SubjectPrefix).Msg("NATS bridge enabled")
	}

	hub := orch.New(memstore.New(nil), opts)
	ctl := wssignal.NewSignalWSController(hub, wssignal.Options{
		ReadLimit:    cfg.ReadLimit,
		PingPeriod:   cfg.PingPeriod,
		PongWait:     cfg.PongWait,
		WriteWait:    cfg.WriteWait,
		SendBuffer:   cfg.SendBuffer,
		RateLimit:    cfg.RateLimit.Limit,
		RateInterval: cfg.RateLimit.Interval,

		RequireIdentity: cfg.Signal.RequireIdentity,
	})

	g, gctx := errgroup.WithContext(ctx)
	r := router.SetupRouter(gctx, cfg, hub, ctl, registry)
	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g.Go(func() error { return hub.Run(gctx) })
	g.Go(func() error {
		log.Info().Str("addr", addr).Msg("Chathub server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutting down")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Server forced to shutdown")
		}
		// Hijacked sockets are not covered by Shutdown; their pumps stop on gctx.
		ctl.Wait()
		return nil
	})
	return g.Wait()
}
