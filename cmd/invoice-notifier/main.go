package main

import (
	"context"
	"errors"
	"os"

	"golang.org/x/sync/errgroup"

	"invoicer/internal/backend"
	"invoicer/internal/cli"
	"invoicer/internal/log"
	"invoicer/internal/worker"
)

func main() {
	if err := cli.LoadEnvFile(); err != nil {
		log.New(log.DefaultConfig()).Error("Failed to load .env", log.FieldError, err)
		os.Exit(1)
	}
	cfg := cli.LoadAndValidateConfig(log.New(log.DefaultConfig()))
	logger := cli.SetupLogger(cfg, log.ComponentWorker)

	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the notifier")
		os.Exit(1)
	}
	if cfg.DataBackend == string(backend.MemoryBackend) {
		logger.Warn("Memory backend is not shared with invoiced; record statuses will not be visible there")
	}

	ctx, stop := cli.SignalContext(context.Background())
	defer stop()

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	res, err := backend.NewFactory(logger).CreateBackend(ctx, bcfg)
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err)
		os.Exit(1)
	}
	defer res.Cleanup()
	if res.AMQP == nil {
		logger.Error("AMQP connection unavailable")
		res.Cleanup()
		os.Exit(1)
	}

	var deliverer worker.Deliverer = worker.LogDeliverer{Logger: logger}
	if cfg.OutboxDir != "" {
		deliverer = worker.OutboxDeliverer{Dir: cfg.OutboxDir}
		logger.Info("Delivering to outbox", "dir", cfg.OutboxDir)
	}
	w := worker.NewNotifyWorker(res.Records, deliverer, logger)

	// Catch up on anything that went overdue while we were down.
	if n, err := w.MarkOverdue(ctx); err != nil {
		logger.Error("Startup overdue check failed", log.FieldError, err)
	} else if n > 0 {
		logger.Info("Marked invoices overdue", "count", n)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return res.AMQP.ConsumeNotify(gctx, w.HandleNotify)
	})
	g.Go(func() error {
		return w.Run(gctx, cfg.OverdueInterval)
	})

	logger.Info("Starting invoice-notifier", log.FieldOperation, log.OpStartup,
		"queue", cfg.AMQPQueue, log.FieldBackend, cfg.DataBackend)
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Notifier stopped", log.FieldError, err)
		res.Cleanup()
		os.Exit(1)
	}
	logger.Info("Notifier stopped gracefully")
}
