package worker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"mediagen/internal/domain"
	"mediagen/internal/infra"
)

// DefaultSweepSchedule runs the sweeper once a minute.
const DefaultSweepSchedule = "@every 1m"

const defaultMaxClaims = 3

// SweeperOptions configures a Sweeper.
type SweeperOptions struct {
	Jobs       domain.JobRepository
	Logger     infra.Logger
	Schedule   string
	ClaimLease time.Duration
	MaxClaims  int
	Now        func() time.Time
}

// Sweeper fails queued jobs whose claims were abandoned MaxClaims times.
type Sweeper struct {
	jobs       domain.JobRepository
	logger     infra.Logger
	schedule   cron.Schedule
	spec       string
	claimLease time.Duration
	maxClaims  int
	now        func() time.Time
}

var scheduleParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// NewSweeper parses the schedule and applies defaults.
func NewSweeper(opts SweeperOptions) (*Sweeper, error) {
	if opts.Jobs == nil {
		return nil, errors.New("worker: sweeper requires a job repository")
	}
	spec := strings.TrimSpace(opts.Schedule)
	if spec == "" {
		spec = DefaultSweepSchedule
	}
	schedule, err := scheduleParser.Parse(spec)
	if err != nil {
		return nil, fmt.Errorf("worker: invalid sweep schedule %q: %w", spec, err)
	}
	s := &Sweeper{
		jobs:       opts.Jobs,
		logger:     opts.Logger,
		schedule:   schedule,
		spec:       spec,
		claimLease: opts.ClaimLease,
		maxClaims:  opts.MaxClaims,
		now:        opts.Now,
	}
	if s.claimLease <= 0 {
		s.claimLease = defaultClaimLease
	}
	if s.maxClaims <= 0 {
		s.maxClaims = defaultMaxClaims
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s, nil
}

// SweepOnce fails every exhausted job and returns how many were failed.
func (s *Sweeper) SweepOnce(ctx context.Context) (int64, error) {
	n, err := s.jobs.FailExhausted(ctx, s.now(), s.claimLease, s.maxClaims)
	if err != nil {
		return 0, fmt.Errorf("worker: sweep exhausted jobs: %w", err)
	}
	if n > 0 {
		s.logger.Warn().Int64("failed", n).Int("max_claims", s.maxClaims).Msg("worker: failed abandoned jobs")
	}
	return n, nil
}

// Run executes SweepOnce on the configured schedule until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) error {
	c := cron.New(cron.WithParser(scheduleParser))
	c.Schedule(s.schedule, cron.FuncJob(func() {
		if _, err := s.SweepOnce(ctx); err != nil && ctx.Err() == nil {
			s.logger.Error().Err(err).Msg("worker: sweep failed")
		}
	}))
	s.logger.Info().Str("schedule", s.spec).Msg("worker: sweeper started")
	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	s.logger.Info().Msg("worker: sweeper stopped")
	return nil
}
