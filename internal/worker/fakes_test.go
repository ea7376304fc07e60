package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"mediagen/internal/adapter/repo"
	"mediagen/internal/domain"
	"mediagen/internal/infra"
)

var testNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

// recordingRepo wraps the memory store and counts mutating calls.
type recordingRepo struct {
	*repo.JobRepositoryMemory

	mu          sync.Mutex
	claims      int
	completes   int
	fails       int
	claimErr    error
	completeErr error
	failErr     error
}

func newRecordingRepo() *recordingRepo {
	return &recordingRepo{JobRepositoryMemory: repo.NewMemoryJobRepository()}
}

func (r *recordingRepo) Claim(ctx context.Context, id string, now time.Time, lease time.Duration) (*domain.Job, error) {
	r.mu.Lock()
	r.claims++
	err := r.claimErr
	r.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return r.JobRepositoryMemory.Claim(ctx, id, now, lease)
}

func (r *recordingRepo) Complete(ctx context.Context, id string, ref domain.ArtifactRef, now time.Time) error {
	r.mu.Lock()
	r.completes++
	err := r.completeErr
	r.mu.Unlock()
	if err != nil {
		return err
	}
	return r.JobRepositoryMemory.Complete(ctx, id, ref, now)
}

func (r *recordingRepo) Fail(ctx context.Context, id string, now time.Time) error {
	r.mu.Lock()
	r.fails++
	err := r.failErr
	r.mu.Unlock()
	if err != nil {
		return err
	}
	return r.JobRepositoryMemory.Fail(ctx, id, now)
}

func (r *recordingRepo) writes() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.claims + r.completes + r.fails
}

type backendCall struct {
	target string
	input  domain.GenerationInput
}

type fakeBackend struct {
	mu      sync.Mutex
	calls   []backendCall
	urls    []string
	err     error
	entered chan struct{}
	release chan struct{}
}

func (b *fakeBackend) Generate(ctx context.Context, target string, input domain.GenerationInput) ([]string, error) {
	b.mu.Lock()
	b.calls = append(b.calls, backendCall{target: target, input: input})
	entered, release := b.entered, b.release
	b.mu.Unlock()
	if entered != nil {
		entered <- struct{}{}
	}
	if release != nil {
		<-release
	}
	return b.urls, b.err
}

func (b *fakeBackend) callCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.calls)
}

type fakeFetcher struct {
	mu          sync.Mutex
	urls        []string
	data        []byte
	contentType string
	err         error
}

func (f *fakeFetcher) Fetch(ctx context.Context, url string) ([]byte, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.urls = append(f.urls, url)
	if f.err != nil {
		return nil, "", f.err
	}
	return f.data, f.contentType, nil
}

type putCall struct {
	key         string
	contentType string
	data        []byte
	ttl         time.Duration
}

type fakeStore struct {
	mu   sync.Mutex
	puts []putCall
	err  error
}

func (s *fakeStore) Put(ctx context.Context, key, contentType string, data []byte, ttl time.Duration) (domain.ArtifactRef, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.puts = append(s.puts, putCall{key: key, contentType: contentType, data: data, ttl: ttl})
	if s.err != nil {
		return domain.ArtifactRef{}, s.err
	}
	return domain.ArtifactRef{
		Key:       key,
		URL:       "https://storage.example.com/" + key + "?sig=abc",
		ExpiresAt: testNow.Add(ttl),
	}, nil
}

func (s *fakeStore) putCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.puts)
}

var errBoom = errors.New("boom")

// fakeClock is read by the poller, its lease renewals and the sweeper.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	return c.now
}

type harness struct {
	repo    *recordingRepo
	backend *fakeBackend
	fetcher *fakeFetcher
	store   *fakeStore
	poller  *Poller
}

func newHarness(t *testing.T, mutate func(*Options)) *harness {
	t.Helper()
	h := &harness{
		repo:    newRecordingRepo(),
		backend: &fakeBackend{urls: []string{"https://cdn.example.com/out.mp4"}},
		fetcher: &fakeFetcher{data: []byte("B"), contentType: "video/mp4"},
		store:   &fakeStore{},
	}
	opts := Options{
		Jobs:    h.repo,
		Router:  domain.VideoRouter{},
		Backend: h.backend,
		Fetcher: h.fetcher,
		Store:   h.store,
		Logger:  infra.NewNopLogger(),
		Now:     func() time.Time { return testNow },
	}
	if mutate != nil {
		mutate(&opts)
	}
	p, err := NewPoller(opts)
	require.NoError(t, err)
	h.poller = p
	return h
}

func (h *harness) enqueue(t *testing.T, id, modelID string, createdAt time.Time) {
	t.Helper()
	job := domain.NewQueuedJob(id, "user-1", modelID, domain.JobParameters{
		Prompt:   "a cat surfing",
		ImageURL: "https://example.com/cat.png",
		Width:    1280,
		Height:   720,
		Duration: 5,
	}, createdAt)
	require.NoError(t, h.repo.Create(context.Background(), job))
}

func (h *harness) job(t *testing.T, id string) *domain.Job {
	t.Helper()
	job, err := h.repo.GetByID(context.Background(), id)
	require.NoError(t, err)
	return job
}
