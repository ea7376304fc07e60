package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"mediagen/internal/bootstrap"
	"mediagen/internal/infra"
)

func main() {
	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv, "worker")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	jobs, err := bootstrap.OpenJobStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: job store unavailable")
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := jobs.Close(closeCtx); err != nil {
			logger.Error().Err(err).Msg("worker: failed to close job store")
		}
	}()

	artifacts, err := bootstrap.OpenArtifactStore(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: artifact store unavailable")
	}
	defer artifacts.Close()

	backend := bootstrap.NewBackend(ctx, cfg, logger, jobs.Credentials)
	poller, sweeper, err := bootstrap.NewWorkers(cfg, logger, jobs.Repo, backend, artifacts)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: failed to configure")
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return poller.Run(gctx) })
	g.Go(func() error { return sweeper.Run(gctx) })
	if err := g.Wait(); err != nil {
		logger.Error().Err(err).Msg("worker: stopped with error")
		return
	}
	logger.Info().Msg("worker: stopped")
}
