// Package jobs runs catalog imports in the background. Job records and the
// work queue live in Redis; a Worker pops job ids and drives the importer.
package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"catalog-service/internal/models"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	jobKeyPrefix   = "catalog_import:job:"
	leaseKeyPrefix = "catalog_import:lease:"
	queueKey       = "catalog_import:queue"
	jobTTL         = 24 * time.Hour
	// claimTTL bounds how long a stale-job sweep holds a job it is requeueing
	claimTTL = 10 * time.Second
)

var ErrJobNotFound = errors.New("import job not found")

// Store keeps import jobs in Redis. Records expire 24h after their last update.
type Store struct {
	client *redis.Client
}

func NewStore(client *redis.Client) *Store {
	return &Store{client: client}
}

func jobKey(id string) string {
	return jobKeyPrefix + id
}

func leaseKey(id string) string {
	return leaseKeyPrefix + id
}

// Enqueue creates a PENDING job for filePath and pushes it onto the queue
func (s *Store) Enqueue(ctx context.Context, filePath string, format models.ImportFormat, replaceExisting bool) (*models.ImportJob, error) {
	now := time.Now().UTC()
	job := &models.ImportJob{
		ID:              uuid.New().String(),
		Status:          models.ImportStatusPending,
		FilePath:        filePath,
		Format:          format,
		ReplaceExisting: replaceExisting,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	data, err := json.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal job: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, jobKey(job.ID), data, jobTTL)
	pipe.RPush(ctx, queueKey, job.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to enqueue job: %w", err)
	}
	return job, nil
}

// Requeue puts an existing job back on the queue as PENDING
func (s *Store) Requeue(ctx context.Context, job *models.ImportJob) error {
	job.Status = models.ImportStatusPending
	if err := s.Save(ctx, job); err != nil {
		return err
	}
	return s.client.RPush(ctx, queueKey, job.ID).Err()
}

func (s *Store) Get(ctx context.Context, id string) (*models.ImportJob, error) {
	val, err := s.client.Get(ctx, jobKey(id)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read job %s: %w", id, err)
	}

	var job models.ImportJob
	if err := json.Unmarshal([]byte(val), &job); err != nil {
		return nil, fmt.Errorf("failed to parse job %s: %w", id, err)
	}
	return &job, nil
}

// Save overwrites the job record and refreshes its TTL
func (s *Store) Save(ctx context.Context, job *models.ImportJob) error {
	job.UpdatedAt = time.Now().UTC()
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}
	if err := s.client.Set(ctx, jobKey(job.ID), data, jobTTL).Err(); err != nil {
		return fmt.Errorf("failed to save job %s: %w", job.ID, err)
	}
	return nil
}

// Next blocks up to timeout for a queued job id. It returns "" when the
// timeout passes with nothing queued.
func (s *Store) Next(ctx context.Context, timeout time.Duration) (string, error) {
	res, err := s.client.BLPop(ctx, timeout, queueKey).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	if len(res) < 2 {
		return "", nil
	}
	return res[1], nil
}

// AcquireLease marks id as being run by this process. It returns false when
// another worker already holds the lease.
func (s *Store) AcquireLease(ctx context.Context, id string, ttl time.Duration) (bool, error) {
	ok, err := s.client.SetNX(ctx, leaseKey(id), time.Now().UTC().Format(time.RFC3339), ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to lease job %s: %w", id, err)
	}
	return ok, nil
}

// RenewLease extends a held lease. A worker that stops renewing loses the
// job to the next stale sweep once ttl passes.
func (s *Store) RenewLease(ctx context.Context, id string, ttl time.Duration) error {
	if err := s.client.Expire(ctx, leaseKey(id), ttl).Err(); err != nil {
		return fmt.Errorf("failed to renew lease for job %s: %w", id, err)
	}
	return nil
}

func (s *Store) ReleaseLease(ctx context.Context, id string) error {
	return s.client.Del(ctx, leaseKey(id)).Err()
}

// RequeueStale puts every PROCESSING job without a live lease back on the
// queue. Those jobs belonged to a worker that exited without finishing them.
// It returns the number of jobs requeued.
func (s *Store) RequeueStale(ctx context.Context) (int, error) {
	requeued := 0
	iter := s.client.Scan(ctx, 0, jobKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		id := strings.TrimPrefix(iter.Val(), jobKeyPrefix)

		job, err := s.Get(ctx, id)
		if errors.Is(err, ErrJobNotFound) {
			continue
		}
		if err != nil {
			return requeued, err
		}
		if job.Status != models.ImportStatusProcessing {
			continue
		}

		claimed, err := s.AcquireLease(ctx, id, claimTTL)
		if err != nil {
			return requeued, err
		}
		if !claimed {
			continue
		}

		// PENDING before the claim is dropped, pushed only once it is gone
		job.Status = models.ImportStatusPending
		if err := s.Save(ctx, job); err != nil {
			return requeued, err
		}
		if err := s.ReleaseLease(ctx, id); err != nil {
			return requeued, fmt.Errorf("failed to release claim on job %s: %w", id, err)
		}
		if err := s.client.RPush(ctx, queueKey, id).Err(); err != nil {
			return requeued, fmt.Errorf("failed to requeue job %s: %w", id, err)
		}
		requeued++
	}
	if err := iter.Err(); err != nil {
		return requeued, fmt.Errorf("failed to scan jobs: %w", err)
	}
	return requeued, nil
}
