// Package worker drives queued video jobs to a terminal state.
package worker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"mediagen/internal/domain"
	"mediagen/internal/infra"
	"mediagen/internal/storage"
)

const (
	// PollInterval is the fixed cadence between poll cycles.
	PollInterval = 5 * time.Second
	// ResultPrefix namespaces stored video artifacts.
	ResultPrefix = "video-results"

	defaultGenerationTimeout = 10 * time.Minute
	defaultClaimLease        = 15 * time.Minute
	defaultContentType       = "video/mp4"
)

// ErrCycleInProgress is returned by PollOnce while another cycle is running.
var ErrCycleInProgress = errors.New("worker: poll cycle already in progress")

// Fetcher downloads artifact bytes.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, string, error)
}

// Options wires a Poller. Jobs, Router, Backend, Fetcher and Store are required.
type Options struct {
	Jobs              domain.JobRepository
	Router            domain.ModelRouter
	Backend           domain.GenerationBackend
	Fetcher           Fetcher
	Store             storage.ArtifactStore
	Logger            infra.Logger
	GenerationTimeout time.Duration
	ClaimLease        time.Duration
	// RenewInterval is how often the lease of the job in flight is extended.
	// Defaults to a third of ClaimLease.
	RenewInterval time.Duration
	ReferenceTTL  time.Duration
	Now           func() time.Time
}

// Poller claims at most one queued job per cycle and processes it.
type Poller struct {
	jobs              domain.JobRepository
	router            domain.ModelRouter
	backend           domain.GenerationBackend
	fetcher           Fetcher
	store             storage.ArtifactStore
	logger            infra.Logger
	generationTimeout time.Duration
	claimLease        time.Duration
	renewInterval     time.Duration
	referenceTTL      time.Duration
	now               func() time.Time

	running atomic.Bool
}

// NewPoller validates opts and applies defaults.
func NewPoller(opts Options) (*Poller, error) {
	var missing []string
	if opts.Jobs == nil {
		missing = append(missing, "jobs")
	}
	if opts.Router == nil {
		missing = append(missing, "router")
	}
	if opts.Backend == nil {
		missing = append(missing, "backend")
	}
	if opts.Fetcher == nil {
		missing = append(missing, "fetcher")
	}
	if opts.Store == nil {
		missing = append(missing, "store")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("worker: missing dependencies: %s", strings.Join(missing, ", "))
	}
	p := &Poller{
		jobs:              opts.Jobs,
		router:            opts.Router,
		backend:           opts.Backend,
		fetcher:           opts.Fetcher,
		store:             opts.Store,
		logger:            opts.Logger,
		generationTimeout: opts.GenerationTimeout,
		claimLease:        opts.ClaimLease,
		renewInterval:     opts.RenewInterval,
		referenceTTL:      opts.ReferenceTTL,
		now:               opts.Now,
	}
	if p.generationTimeout <= 0 {
		p.generationTimeout = defaultGenerationTimeout
	}
	if p.claimLease <= 0 {
		p.claimLease = defaultClaimLease
	}
	if p.renewInterval <= 0 {
		p.renewInterval = p.claimLease / 3
	}
	if p.renewInterval >= p.claimLease {
		return nil, fmt.Errorf("worker: renew interval %s must be shorter than claim lease %s", p.renewInterval, p.claimLease)
	}
	if p.referenceTTL <= 0 {
		p.referenceTTL = storage.DefaultReferenceTTL
	}
	if p.now == nil {
		p.now = time.Now
	}
	return p, nil
}

// Run polls every PollInterval until ctx is cancelled. Cycles run inline so
// they never overlap.
func (p *Poller) Run(ctx context.Context) error {
	p.logger.Info().Dur("interval", PollInterval).Msg("worker: started")
	ticker := time.NewTicker(PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			p.logger.Info().Msg("worker: stopped")
			return nil
		case <-ticker.C:
			if err := p.PollOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
				p.logger.Error().Err(err).Msg("worker: poll cycle failed")
			}
		}
	}
}

// PollOnce runs a single poll cycle.
func (p *Poller) PollOnce(ctx context.Context) error {
	if !p.running.CompareAndSwap(false, true) {
		return ErrCycleInProgress
	}
	defer p.running.Store(false)

	jobs, err := p.jobs.ListClaimable(ctx, p.now(), p.claimLease, 1)
	if err != nil {
		return fmt.Errorf("worker: list queued jobs: %w", err)
	}
	if len(jobs) == 0 {
		p.logger.Debug().Msg("worker: no queued jobs")
		return nil
	}
	for i := range jobs {
		p.process(ctx, jobs[i])
	}
	return nil
}

func (p *Poller) process(ctx context.Context, candidate domain.Job) {
	job, err := p.jobs.Claim(ctx, candidate.ID, p.now(), p.claimLease)
	if err != nil {
		if errors.Is(err, domain.ErrClaimConflict) {
			p.logger.Info().Str("job_id", candidate.ID).Msg("worker: claim lost, skipping job")
			return
		}
		p.logger.Error().Err(err).Str("job_id", candidate.ID).Msg("worker: claim failed")
		return
	}
	log := p.logger.With().
		Str("job_id", job.ID).
		Str("model", job.ModelID).
		Int("attempt", job.Attempts).
		Logger()
	log.Info().Msg("worker: processing job")

	jobCtx, lose := context.WithCancelCause(ctx)
	defer lose(nil)
	stopRenew := p.keepClaim(jobCtx, job, lose, log)
	ref, err := p.execute(jobCtx, job)
	stopRenew()
	if err != nil {
		if ctx.Err() != nil {
			log.Warn().Err(err).Msg("worker: interrupted, job left queued for reclaim")
			return
		}
		if errors.Is(err, domain.ErrClaimConflict) || errors.Is(context.Cause(jobCtx), domain.ErrClaimConflict) {
			log.Warn().Err(err).Msg("worker: claim lost while processing, abandoning job")
			return
		}
		log.Error().Err(err).Str("error_kind", domain.ErrorKind(err)).Msg("worker: job failed")
		if err := p.jobs.Fail(ctx, job.ID, p.now()); err != nil {
			err = fmt.Errorf("%w: %w", domain.ErrStatusUpdate, err)
			log.Error().Err(err).Str("error_kind", domain.ErrorKind(err)).Msg("worker: failed to mark job failed")
		}
		return
	}

	if err := p.jobs.Complete(ctx, job.ID, ref, p.now()); err != nil {
		err = fmt.Errorf("%w: %w", domain.ErrStatusUpdate, err)
		log.Error().Err(err).Str("error_kind", domain.ErrorKind(err)).Msg("worker: failed to mark job completed")
		return
	}
	log.Info().Str("artifact", ref.Key).Time("expires_at", ref.ExpiresAt).Msg("worker: job completed")
}

// execute runs routing, generation, fetch and store for one claimed job.
func (p *Poller) execute(ctx context.Context, job *domain.Job) (domain.ArtifactRef, error) {
	target, err := p.router.Resolve(job.ModelID)
	if err != nil {
		return domain.ArtifactRef{}, err
	}

	urls, err := p.generate(ctx, target, domain.GenerationInputFor(job.Parameters))
	if err != nil {
		return domain.ArtifactRef{}, err
	}
	artifactURL := strings.TrimSpace(urls[0])

	data, contentType, err := p.fetcher.Fetch(ctx, artifactURL)
	if err != nil {
		if !errors.Is(err, domain.ErrArtifactFetch) {
			err = fmt.Errorf("%w: %w", domain.ErrArtifactFetch, err)
		}
		return domain.ArtifactRef{}, err
	}
	if strings.TrimSpace(contentType) == "" {
		contentType = defaultContentType
	}

	// The artifact is only worth storing while the claim is still ours.
	if err := p.jobs.Renew(ctx, job.ID, job.Attempts, p.now()); err != nil {
		return domain.ArtifactRef{}, fmt.Errorf("%w: renew claim before store: %w", domain.ErrStatusUpdate, err)
	}

	key := storage.NewArtifactKey(ResultPrefix, contentType)
	ref, err := p.store.Put(ctx, key, contentType, data, p.referenceTTL)
	if err != nil {
		return domain.ArtifactRef{}, fmt.Errorf("%w: %w", domain.ErrArtifactStore, err)
	}
	return ref, nil
}

type generateResult struct {
	urls []string
	err  error
}

// generate calls the backend under the generation timeout. A backend that
// ignores cancellation is abandoned once the deadline passes.
func (p *Poller) generate(ctx context.Context, target string, input domain.GenerationInput) ([]string, error) {
	genCtx, cancel := context.WithTimeout(ctx, p.generationTimeout)
	defer cancel()

	done := make(chan generateResult, 1)
	go func() {
		urls, err := p.backend.Generate(genCtx, target, input)
		done <- generateResult{urls: urls, err: err}
	}()

	var res generateResult
	select {
	case res = <-done:
	case <-genCtx.Done():
		return nil, fmt.Errorf("%w: %w", domain.ErrGeneration, genCtx.Err())
	}
	if res.err != nil {
		if errors.Is(res.err, domain.ErrGeneration) || errors.Is(res.err, domain.ErrBackendRefused) {
			return nil, res.err
		}
		return nil, fmt.Errorf("%w: %w", domain.ErrGeneration, res.err)
	}
	if len(res.urls) == 0 || strings.TrimSpace(res.urls[0]) == "" {
		return nil, fmt.Errorf("%w: no artifact url returned", domain.ErrGeneration)
	}
	return res.urls, nil
}

// keepClaim renews the job's lease every renewInterval until the returned stop
// func is called. A lost claim cancels ctx with domain.ErrClaimConflict.
func (p *Poller) keepClaim(ctx context.Context, job *domain.Job, lose context.CancelCauseFunc, log infra.Logger) func() {
	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(p.renewInterval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				err := p.jobs.Renew(ctx, job.ID, job.Attempts, p.now())
				if err == nil {
					continue
				}
				if errors.Is(err, domain.ErrClaimConflict) {
					lose(domain.ErrClaimConflict)
					return
				}
				log.Warn().Err(err).Msg("worker: lease renewal failed")
			}
		}
	}()
	return func() {
		close(done)
		wg.Wait()
	}
}
