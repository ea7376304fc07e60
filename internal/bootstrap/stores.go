// Package bootstrap opens the job and artifact stores selected by configuration.
package bootstrap

import (
	"context"
	"fmt"
	"path/filepath"

	"mediagen/internal/adapter/repo"
	"mediagen/internal/domain"
	"mediagen/internal/infra"
	"mediagen/internal/infra/credentials"
	"mediagen/internal/storage"
)

// JobStore is an opened job repository and its backing connection.
type JobStore struct {
	Repo domain.JobRepository
	// Credentials is only available on the postgres backend.
	Credentials *credentials.Store

	closers []func(context.Context) error
}

// Close releases the store's connections.
func (s *JobStore) Close(ctx context.Context) error {
	var firstErr error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// OpenJobStore connects to cfg.JobStore and prepares its schema.
func OpenJobStore(ctx context.Context, cfg *infra.Config, logger infra.Logger) (*JobStore, error) {
	store := &JobStore{}
	switch cfg.JobStore {
	case infra.JobStorePostgres:
		pool, err := infra.NewDBPool(ctx, cfg)
		if err != nil {
			return nil, err
		}
		store.closers = append(store.closers, func(context.Context) error { pool.Close(); return nil })
		runner := infra.NewSQLRunner(pool, logger)
		jobs := repo.NewJobRepository(runner)
		if err := jobs.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, err
		}
		creds := credentials.NewStore(runner)
		if err := creds.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, err
		}
		store.Repo = jobs
		store.Credentials = creds
	case infra.JobStoreMongo:
		db, disconnect, err := infra.NewMongoDatabase(ctx, cfg)
		if err != nil {
			return nil, err
		}
		store.closers = append(store.closers, disconnect)
		jobs := repo.NewMongoJobRepository(db)
		if err := jobs.EnsureIndexes(ctx); err != nil {
			_ = disconnect(context.Background())
			return nil, err
		}
		store.Repo = jobs
	case infra.JobStoreSQLite:
		db, err := infra.NewSQLiteDB(cfg)
		if err != nil {
			return nil, err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("sqlite handle: %w", err)
		}
		// SQLite serializes writers; one connection keeps claims atomic.
		sqlDB.SetMaxOpenConns(1)
		store.closers = append(store.closers, func(context.Context) error { return sqlDB.Close() })
		jobs := repo.NewGormJobRepository(db)
		if err := jobs.Migrate(ctx); err != nil {
			_ = sqlDB.Close()
			return nil, err
		}
		store.Repo = jobs
	case infra.JobStoreMemory:
		logger.Warn().Msg("bootstrap: memory job store is process-local; api and worker must share a process")
		store.Repo = repo.NewMemoryJobRepository()
	default:
		return nil, fmt.Errorf("unsupported JOB_STORE %q", cfg.JobStore)
	}
	logger.Info().Str("job_store", cfg.JobStore).Msg("bootstrap: job store ready")
	return store, nil
}

// ArtifactStore is an opened artifact backend. Files is set for the
// filesystem backend so the API can serve signed downloads.
type ArtifactStore struct {
	Store storage.ArtifactStore
	Files *storage.FileStore
	close func() error
}

// Close releases provider clients.
func (s *ArtifactStore) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}

// OpenArtifactStore builds the backend named by cfg.ArtifactStore.
func OpenArtifactStore(ctx context.Context, cfg *infra.Config) (*ArtifactStore, error) {
	switch cfg.ArtifactStore {
	case infra.ArtifactStoreFilesystem:
		path := cfg.StoragePath
		if !filepath.IsAbs(path) {
			if abs, err := filepath.Abs(path); err == nil {
				path = abs
			}
		}
		files, err := storage.NewFileStore(path, cfg.StorageBaseURL, cfg.StorageSigningKey)
		if err != nil {
			return nil, err
		}
		return &ArtifactStore{Store: files, Files: files}, nil
	case infra.ArtifactStoreGCS:
		gcs, err := storage.NewGCSStore(ctx, storage.GCSOptions{
			Bucket:          cfg.GCSBucket,
			CredentialsFile: cfg.GCSCredentialsFile,
		})
		if err != nil {
			return nil, err
		}
		return &ArtifactStore{Store: gcs, close: gcs.Close}, nil
	case infra.ArtifactStoreS3:
		s3, err := storage.NewS3Store(ctx, storage.S3Options{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
		})
		if err != nil {
			return nil, err
		}
		return &ArtifactStore{Store: s3}, nil
	default:
		return nil, fmt.Errorf("unsupported ARTIFACT_STORE %q", cfg.ArtifactStore)
	}
}
