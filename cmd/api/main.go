package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"mediagen/internal/bootstrap"
	"mediagen/internal/http/handlers"
	"mediagen/internal/http/httpapi"
	"mediagen/internal/imagegen"
	"mediagen/internal/infra"
)

func main() {
	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv, "api")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	jobs, err := bootstrap.OpenJobStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("api: job store unavailable")
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := jobs.Close(closeCtx); err != nil {
			logger.Error().Err(err).Msg("api: failed to close job store")
		}
	}()

	artifacts, err := bootstrap.OpenArtifactStore(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("api: artifact store unavailable")
	}
	defer artifacts.Close()

	backend := bootstrap.NewBackend(ctx, cfg, logger, jobs.Credentials)
	images, err := imagegen.NewGenerator(imagegen.Options{
		Backend: backend,
		Logger:  logger,
		Timeout: cfg.GenerationTimeout,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("api: failed to configure image generator")
	}

	app := handlers.NewApp(cfg, logger, jobs.Repo, images, artifacts.Files)
	server := infra.NewHTTPServer(cfg, httpapi.NewRouter(app, cfg, logger), logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return server.Run(gctx) })

	// A memory store is invisible to a separate worker process, so the
	// poller runs in-process.
	if cfg.JobStore == infra.JobStoreMemory {
		poller, sweeper, err := bootstrap.NewWorkers(cfg, logger, jobs.Repo, backend, artifacts)
		if err != nil {
			logger.Fatal().Err(err).Msg("api: failed to configure embedded worker")
		}
		g.Go(func() error { return poller.Run(gctx) })
		g.Go(func() error { return sweeper.Run(gctx) })
	}

	if err := g.Wait(); err != nil {
		logger.Error().Err(err).Msg("api: stopped with error")
		return
	}
	logger.Info().Msg("api: server stopped")
}
