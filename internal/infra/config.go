package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Job store backends.
const (
	JobStorePostgres = "postgres"
	JobStoreMongo    = "mongo"
	JobStoreSQLite   = "sqlite"
	JobStoreMemory   = "memory"
)

// Artifact store backends.
const (
	ArtifactStoreFilesystem = "filesystem"
	ArtifactStoreGCS        = "gcs"
	ArtifactStoreS3         = "s3"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv string
	Port   string

	JobStore      string
	DatabaseURL   string
	MongoURI      string
	MongoDatabase string
	SQLitePath    string

	ArtifactStore      string
	StoragePath        string
	StorageBaseURL     string
	StorageSigningKey  string
	GCSBucket          string
	GCSCredentialsFile string
	S3Bucket           string
	S3Region           string
	S3Endpoint         string
	S3AccessKeyID      string
	S3SecretAccessKey  string

	ReplicateAPIToken string
	ReplicateBaseURL  string

	GenerationTimeout time.Duration
	FetchTimeout      time.Duration
	ClaimLease        time.Duration
	MaxClaims         int
	SweepSchedule     string

	HTTPReadTimeout    time.Duration
	HTTPWriteTimeout   time.Duration
	HTTPIdleTimeout    time.Duration
	RateLimitPerMin    int
	CORSAllowedOrigins []string
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
// Values from .env and .env.local are loaded first when those files exist.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load(".env", ".env.local")

	port := getEnv("PORT", "8080")
	cfg := &Config{
		AppEnv: getEnv("APP_ENV", "development"),
		Port:   port,

		JobStore:      strings.ToLower(getEnv("JOB_STORE", JobStorePostgres)),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		MongoURI:      os.Getenv("MONGO_URI"),
		MongoDatabase: getEnv("MONGO_DATABASE", "mediagen"),
		SQLitePath:    getEnv("SQLITE_PATH", "mediagen.db"),

		ArtifactStore:      strings.ToLower(getEnv("ARTIFACT_STORE", ArtifactStoreFilesystem)),
		StoragePath:        getEnv("STORAGE_PATH", "./storage"),
		StorageBaseURL:     getEnv("STORAGE_BASE_URL", "http://localhost:"+port+"/artifacts"),
		StorageSigningKey:  os.Getenv("STORAGE_SIGNING_KEY"),
		GCSBucket:          os.Getenv("GCS_BUCKET"),
		GCSCredentialsFile: os.Getenv("GCS_CREDENTIALS_FILE"),
		S3Bucket:           os.Getenv("S3_BUCKET"),
		S3Region:           getEnv("S3_REGION", "us-east-1"),
		S3Endpoint:         os.Getenv("S3_ENDPOINT"),
		S3AccessKeyID:      os.Getenv("S3_ACCESS_KEY_ID"),
		S3SecretAccessKey:  os.Getenv("S3_SECRET_ACCESS_KEY"),

		ReplicateAPIToken: os.Getenv("REPLICATE_API_TOKEN"),
		ReplicateBaseURL:  getEnv("REPLICATE_BASE_URL", "https://api.replicate.com/v1"),

		GenerationTimeout: getEnvDuration("GENERATION_TIMEOUT", 10*time.Minute),
		FetchTimeout:      getEnvDuration("FETCH_TIMEOUT", 2*time.Minute),
		ClaimLease:        getEnvDuration("CLAIM_LEASE", 15*time.Minute),
		MaxClaims:         getEnvInt("MAX_CLAIMS", 3),
		SweepSchedule:     getEnv("SWEEP_SCHEDULE", "@every 1m"),

		HTTPReadTimeout:    time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout:   time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 30)),
		HTTPIdleTimeout:    time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:    getEnvInt("RATE_LIMIT_PER_MINUTE", 30),
		CORSAllowedOrigins: splitList(os.Getenv("CORS_ALLOWED_ORIGINS")),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.JobStore {
	case JobStorePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required")
		}
	case JobStoreMongo:
		if c.MongoURI == "" {
			return fmt.Errorf("MONGO_URI is required")
		}
	case JobStoreSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required")
		}
	case JobStoreMemory:
	default:
		return fmt.Errorf("unsupported JOB_STORE %q", c.JobStore)
	}

	switch c.ArtifactStore {
	case ArtifactStoreFilesystem:
		if c.StorageSigningKey == "" {
			return fmt.Errorf("STORAGE_SIGNING_KEY is required")
		}
	case ArtifactStoreGCS:
		if c.GCSBucket == "" {
			return fmt.Errorf("GCS_BUCKET is required")
		}
	case ArtifactStoreS3:
		if c.S3Bucket == "" {
			return fmt.Errorf("S3_BUCKET is required")
		}
	default:
		return fmt.Errorf("unsupported ARTIFACT_STORE %q", c.ArtifactStore)
	}

	if c.ClaimLease <= 0 {
		return fmt.Errorf("CLAIM_LEASE must be positive")
	}
	if c.MaxClaims < 1 {
		return fmt.Errorf("MAX_CLAIMS must be at least 1")
	}
	// The lease is renewed while a job runs, but a single claim must still
	// cover generation plus download if renewals stop reaching the store.
	if worst := c.GenerationTimeout + c.FetchTimeout; c.ClaimLease <= worst {
		return fmt.Errorf("CLAIM_LEASE %s must exceed GENERATION_TIMEOUT + FETCH_TIMEOUT (%s)", c.ClaimLease, worst)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
