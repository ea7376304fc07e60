package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"mediagen/internal/domain"
)

const videoJobsCollection = "video_jobs"

// videoJobDocument is the document-per-job shape stored in MongoDB.
type videoJobDocument struct {
	ID              string     `bson:"_id"`
	UserID          string     `bson:"user_id,omitempty"`
	ModelID         string     `bson:"model_id"`
	Prompt          string     `bson:"prompt,omitempty"`
	ImageURL        string     `bson:"image_url"`
	Width           int        `bson:"width"`
	Height          int        `bson:"height"`
	Duration        int        `bson:"duration"`
	Motion          string     `bson:"motion,omitempty"`
	Status          string     `bson:"status"`
	Result          string     `bson:"result,omitempty"`
	ResultExpiresAt *time.Time `bson:"result_expires_at,omitempty"`
	ClaimedAt       *time.Time `bson:"claimed_at"`
	Attempts        int        `bson:"attempts"`
	CreatedAt       time.Time  `bson:"created_at"`
	UpdatedAt       time.Time  `bson:"updated_at"`
}

func documentFromJob(job *domain.Job) videoJobDocument {
	return videoJobDocument{
		ID:              job.ID,
		UserID:          job.UserID,
		ModelID:         job.ModelID,
		Prompt:          job.Parameters.Prompt,
		ImageURL:        job.Parameters.ImageURL,
		Width:           job.Parameters.Width,
		Height:          job.Parameters.Height,
		Duration:        job.Parameters.Duration,
		Motion:          job.Parameters.Motion,
		Status:          string(job.Status),
		Result:          job.Result,
		ResultExpiresAt: job.ResultExpiresAt,
		ClaimedAt:       job.ClaimedAt,
		Attempts:        job.Attempts,
		CreatedAt:       job.CreatedAt,
		UpdatedAt:       job.UpdatedAt,
	}
}

func (d videoJobDocument) toJob() domain.Job {
	return domain.Job{
		ID:      d.ID,
		UserID:  d.UserID,
		ModelID: d.ModelID,
		Parameters: domain.JobParameters{
			Prompt:   d.Prompt,
			ImageURL: d.ImageURL,
			Width:    d.Width,
			Height:   d.Height,
			Duration: d.Duration,
			Motion:   d.Motion,
		},
		Status:          domain.JobStatus(d.Status),
		Result:          d.Result,
		ResultExpiresAt: d.ResultExpiresAt,
		ClaimedAt:       d.ClaimedAt,
		Attempts:        d.Attempts,
		CreatedAt:       d.CreatedAt,
		UpdatedAt:       d.UpdatedAt,
	}
}

// JobRepositoryMongo implements domain.JobRepository on a MongoDB collection.
type JobRepositoryMongo struct {
	collection *mongo.Collection
}

func NewMongoJobRepository(db *mongo.Database) *JobRepositoryMongo {
	return &JobRepositoryMongo{collection: db.Collection(videoJobsCollection)}
}

// EnsureIndexes creates the status/created_at index used by the poller.
func (r *JobRepositoryMongo) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "status", Value: 1}, {Key: "created_at", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("create video_jobs index: %w", err)
	}
	return nil
}

func (r *JobRepositoryMongo) Create(ctx context.Context, job *domain.Job) error {
	if _, err := r.collection.InsertOne(ctx, documentFromJob(job)); err != nil {
		return fmt.Errorf("insert video job: %w", err)
	}
	return nil
}

func (r *JobRepositoryMongo) GetByID(ctx context.Context, jobID string) (*domain.Job, error) {
	var doc videoJobDocument
	if err := r.collection.FindOne(ctx, bson.M{"_id": jobID}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("find video job: %w", err)
	}
	job := doc.toJob()
	return &job, nil
}

func (r *JobRepositoryMongo) ListClaimable(ctx context.Context, now time.Time, lease time.Duration, limit int) ([]domain.Job, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: 1}}).
		SetLimit(int64(limit))
	cursor, err := r.collection.Find(ctx, claimableFilter(now.Add(-lease)), opts)
	if err != nil {
		return nil, fmt.Errorf("find claimable jobs: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []videoJobDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode claimable jobs: %w", err)
	}
	jobs := make([]domain.Job, 0, len(docs))
	for _, doc := range docs {
		jobs = append(jobs, doc.toJob())
	}
	return jobs, nil
}

func (r *JobRepositoryMongo) Claim(ctx context.Context, jobID string, now time.Time, lease time.Duration) (*domain.Job, error) {
	filter := claimableFilter(now.Add(-lease))
	filter["_id"] = jobID
	update := bson.M{
		"$set": bson.M{"claimed_at": now, "updated_at": now},
		"$inc": bson.M{"attempts": 1},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc videoJobDocument
	if err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrClaimConflict
		}
		return nil, fmt.Errorf("claim job: %w", err)
	}
	job := doc.toJob()
	return &job, nil
}

func (r *JobRepositoryMongo) Renew(ctx context.Context, jobID string, attempt int, now time.Time) error {
	res, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": jobID, "status": string(domain.JobStatusQueued), "attempts": attempt},
		bson.M{"$set": bson.M{"claimed_at": now, "updated_at": now}},
	)
	if err != nil {
		return fmt.Errorf("renew claim: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrClaimConflict
	}
	return nil
}

func (r *JobRepositoryMongo) Complete(ctx context.Context, jobID string, ref domain.ArtifactRef, now time.Time) error {
	return r.transition(ctx, jobID, bson.M{
		"status":            string(domain.JobStatusCompleted),
		"result":            ref.URL,
		"result_expires_at": ref.ExpiresAt,
		"updated_at":        now,
	})
}

func (r *JobRepositoryMongo) Fail(ctx context.Context, jobID string, now time.Time) error {
	return r.transition(ctx, jobID, bson.M{
		"status":     string(domain.JobStatusFailed),
		"updated_at": now,
	})
}

func (r *JobRepositoryMongo) FailExhausted(ctx context.Context, now time.Time, lease time.Duration, maxClaims int) (int64, error) {
	filter := bson.M{
		"status":     string(domain.JobStatusQueued),
		"claimed_at": bson.M{"$ne": nil, "$lte": now.Add(-lease)},
		"attempts":   bson.M{"$gte": maxClaims},
	}
	res, err := r.collection.UpdateMany(ctx, filter, bson.M{"$set": bson.M{
		"status":     string(domain.JobStatusFailed),
		"updated_at": now,
	}})
	if err != nil {
		return 0, fmt.Errorf("fail exhausted jobs: %w", err)
	}
	return res.ModifiedCount, nil
}

func (r *JobRepositoryMongo) transition(ctx context.Context, jobID string, set bson.M) error {
	res, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": jobID, "status": string(domain.JobStatusQueued)},
		bson.M{"$set": set},
	)
	if err != nil {
		return fmt.Errorf("update job status: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrClaimConflict
	}
	return nil
}

// claimableFilter matches queued jobs with no lease or a lease taken at or before cutoff.
func claimableFilter(cutoff time.Time) bson.M {
	return bson.M{
		"status": string(domain.JobStatusQueued),
		"$or": bson.A{
			bson.M{"claimed_at": nil},
			bson.M{"claimed_at": bson.M{"$lte": cutoff}},
		},
	}
}

var _ domain.JobRepository = (*JobRepositoryMongo)(nil)
