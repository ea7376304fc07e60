package bootstrap

import (
	"context"

	"mediagen/internal/artifact"
	"mediagen/internal/domain"
	"mediagen/internal/infra"
	"mediagen/internal/infra/credentials"
	"mediagen/internal/providers/replicate"
	"mediagen/internal/worker"
)

// NewBackend builds the Replicate client. REPLICATE_API_TOKEN wins over a
// token stored in integration_tokens.
func NewBackend(ctx context.Context, cfg *infra.Config, logger infra.Logger, creds *credentials.Store) *replicate.Client {
	token, err := credentials.ResolveReplicateToken(ctx, cfg.ReplicateAPIToken, creds)
	if err != nil {
		logger.Warn().Err(err).Msg("bootstrap: failed to load replicate token from store")
	}
	l := logger.With().Str("component", "replicate").Logger()
	client := replicate.NewClient(replicate.Options{
		APIToken: token,
		BaseURL:  cfg.ReplicateBaseURL,
		Logger:   &l,
	})
	if !client.HasCredentials() {
		logger.Warn().Msg("bootstrap: replicate api token missing, generation calls will fail")
	}
	return client
}

// NewWorkers wires the poller and the stale-claim sweeper.
func NewWorkers(cfg *infra.Config, logger infra.Logger, jobs domain.JobRepository, backend domain.GenerationBackend, artifacts *ArtifactStore) (*worker.Poller, *worker.Sweeper, error) {
	poller, err := worker.NewPoller(worker.Options{
		Jobs:              jobs,
		Router:            domain.VideoRouter{},
		Backend:           backend,
		Fetcher:           artifact.NewFetcher(artifact.Options{Timeout: cfg.FetchTimeout}),
		Store:             artifacts.Store,
		Logger:            logger,
		GenerationTimeout: cfg.GenerationTimeout,
		ClaimLease:        cfg.ClaimLease,
	})
	if err != nil {
		return nil, nil, err
	}
	sweeper, err := worker.NewSweeper(worker.SweeperOptions{
		Jobs:       jobs,
		Logger:     logger,
		Schedule:   cfg.SweepSchedule,
		ClaimLease: cfg.ClaimLease,
		MaxClaims:  cfg.MaxClaims,
	})
	if err != nil {
		return nil, nil, err
	}
	return poller, sweeper, nil
}
