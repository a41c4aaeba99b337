package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"invoicer/internal/backend"
	"invoicer/internal/cache"
	"invoicer/internal/cli"
	apphttp "invoicer/internal/http"
	"invoicer/internal/log"
	"invoicer/internal/middleware/ratelimit"
	"invoicer/internal/session"
	"invoicer/internal/submission"
)

func main() {
	if err := cli.LoadEnvFile(); err != nil {
		log.New(log.DefaultConfig()).Error("Failed to load .env", log.FieldError, err)
		os.Exit(1)
	}
	cfg := cli.LoadAndValidateConfig(log.New(log.DefaultConfig()))
	logger := cli.SetupLogger(cfg, log.ComponentApp)

	ctx, stop := cli.SignalContext(context.Background())
	defer stop()

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	res, err := backend.NewFactory(logger).CreateBackend(ctx, bcfg)
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err, log.FieldBackend, cfg.DataBackend)
		os.Exit(1)
	}
	defer res.Cleanup()

	// A nil *amqp.Client must not become a non-nil Notifier.
	var notifier submission.Notifier
	if res.AMQP != nil {
		notifier = res.AMQP
	} else {
		logger.Info("Notify disabled, no AMQP connection")
	}
	ctrl := submission.NewController(submission.Options{
		Currency: cfg.CurrencySymbol,
		Paper:    cfg.Paper(),
		Profiles: res.Records,
	}, res.Records, notifier, logger)

	sessions := session.NewManager(cfg.SessionMax, cfg.SessionTTL, logger)
	sweeper := cache.NewManager(logger)
	sweeper.Register(sessions.Cleaner())

	srv, err := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Sessions:       sessions,
		Controller:     ctrl,
		Records:        res.Records,
		Logger:         logger,
		JWTSecret:      []byte(cfg.JWTSecret),
		RequestTimeout: cfg.RequestTimeout,
		RateLimit:      ratelimit.Config{RequestsPerMinute: cfg.RateLimitPerMinute},
		TrustedProxies: cfg.TrustedProxies,
	})
	if err != nil {
		logger.Error("Failed to build server", log.FieldError, err)
		os.Exit(1)
	}
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = cfg.RequestTimeout + 5*time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting invoiced", "port", cfg.Port, log.FieldBackend, cfg.DataBackend,
			"auth", cfg.JWTSecret != "")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return sweeper.Run(gctx, time.Minute)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down", log.FieldOperation, log.OpShutdown)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", log.FieldError, err)
		res.Cleanup()
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}
