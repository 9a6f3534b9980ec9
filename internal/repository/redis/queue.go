package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"bookmark-preview/internal/domain"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Redis key layout, per job type:
//
//	bookmark:queue:<type>       LIST  job IDs waiting to run
//	bookmark:processing:<type>  LIST  job IDs handed to a worker
//	bookmark:retry:<type>       ZSET  job IDs scored by next retry (unix seconds)
//	bookmark:dead:<type>        LIST  job IDs that exhausted their retries
//	bookmark:stats:<type>       HASH  counters
//	bookmark:job:<id>           HASH  job document and status
const keyNamespace = "bookmark:"

type queueKeys struct {
	queue, processing, retry, dead, stats string
}

func keysFor(jobType string) queueKeys {
	return queueKeys{
		queue:      keyNamespace + "queue:" + jobType,
		processing: keyNamespace + "processing:" + jobType,
		retry:      keyNamespace + "retry:" + jobType,
		dead:       keyNamespace + "dead:" + jobType,
		stats:      keyNamespace + "stats:" + jobType,
	}
}

func jobKey(id string) string {
	return keyNamespace + "job:" + id
}

// Job retry configuration
const (
	maxRetries        = 5
	initialBackoff    = time.Second
	maxBackoff        = 5 * time.Minute
	jobTTL            = 24 * time.Hour
	finishedJobTTL    = 6 * time.Hour
	defaultPopTimeout = time.Second
	// a job still in processing after this long is assumed lost with its worker
	defaultProcessingTimeout = 10 * time.Minute
)

// ErrJobNotFound is returned when a job document has expired or never existed
var ErrJobNotFound = errors.New("job not found")

// storedJob is the job document kept in Redis
type storedJob struct {
	ID         string                 `json:"id"`
	Type       string                 `json:"type"`
	Payload    map[string]interface{} `json:"payload"`
	Status     string                 `json:"status"`
	CreatedAt  time.Time              `json:"created_at"`
	UpdatedAt  *time.Time             `json:"updated_at,omitempty"`
	RetryCount int                    `json:"retry_count"`
	MaxRetries int                    `json:"max_retries"`
	NextRetry  *time.Time             `json:"next_retry,omitempty"`
	Error      string                 `json:"error,omitempty"`
}

func (j *storedJob) toDomain() *domain.QueueJob {
	job := &domain.QueueJob{
		ID:        j.ID,
		Type:      j.Type,
		Payload:   j.Payload,
		Status:    j.Status,
		CreatedAt: j.CreatedAt.Format(time.RFC3339),
	}
	if j.UpdatedAt != nil {
		updatedAt := j.UpdatedAt.Format(time.RFC3339)
		job.UpdatedAt = &updatedAt
	}
	return job
}

// QueueRepository implements the domain.QueueRepository interface using Redis
type QueueRepository struct {
	client            *redis.Client
	logger            *slog.Logger
	popTimeout        time.Duration
	processingTimeout time.Duration
}

// NewQueueRepository creates a new Redis queue repository
func NewQueueRepository(client *redis.Client, logger *slog.Logger) *QueueRepository {
	return &QueueRepository{
		client:            client,
		logger:            logger,
		popTimeout:        defaultPopTimeout,
		processingTimeout: defaultProcessingTimeout,
	}
}

// backoff returns the delay before retry number retryCount (1-based):
// 1s, 2s, 4s ... capped at maxBackoff
func backoff(retryCount int) time.Duration {
	if retryCount < 1 {
		retryCount = 1
	}
	delay := initialBackoff
	for i := 1; i < retryCount; i++ {
		delay *= 2
		if delay >= maxBackoff {
			return maxBackoff
		}
	}
	return delay
}

// toPayloadMap round-trips payload through JSON so typed payloads such as
// domain.RefreshPreviewPayload are stored by their JSON field names
func toPayloadMap(payload interface{}) (map[string]interface{}, int, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to marshal payload: %w", err)
	}
	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, 0, fmt.Errorf("payload must be a JSON object: %w", err)
	}
	return m, len(data), nil
}

func (r *QueueRepository) loadJob(ctx context.Context, id string) (*storedJob, error) {
	data, err := r.client.HGet(ctx, jobKey(id), "data").Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("%w: %s", ErrJobNotFound, id)
		}
		return nil, fmt.Errorf("failed to get job data: %w", err)
	}

	var job storedJob
	if err := json.Unmarshal([]byte(data), &job); err != nil {
		return nil, fmt.Errorf("failed to unmarshal job %s: %w", id, err)
	}
	return &job, nil
}

// saveJob queues a write of the job document onto pipe
func saveJob(ctx context.Context, pipe redis.Pipeliner, job *storedJob) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}
	fields := map[string]interface{}{
		"data":        string(data),
		"status":      job.Status,
		"type":        job.Type,
		"retry_count": job.RetryCount,
	}
	if job.UpdatedAt != nil {
		fields["updated_at"] = job.UpdatedAt.Unix()
	}
	if job.Error != "" {
		fields["error"] = job.Error
	}
	pipe.HSet(ctx, jobKey(job.ID), fields)
	return nil
}

// Enqueue adds a new job to the queue and returns its ID
func (r *QueueRepository) Enqueue(ctx context.Context, jobType string, payload interface{}) (string, error) {
	payloadMap, size, err := toPayloadMap(payload)
	if err != nil {
		return "", err
	}

	job := &storedJob{
		ID:         uuid.New().String(),
		Type:       jobType,
		Payload:    payloadMap,
		Status:     domain.JobStatusPending,
		CreatedAt:  time.Now(),
		MaxRetries: maxRetries,
	}
	keys := keysFor(jobType)

	pipe := r.client.TxPipeline()
	if err := saveJob(ctx, pipe, job); err != nil {
		return "", err
	}
	pipe.Expire(ctx, jobKey(job.ID), jobTTL)
	pipe.LPush(ctx, keys.queue, job.ID)
	pipe.HIncrBy(ctx, keys.stats, "total_enqueued", 1)

	if _, err := pipe.Exec(ctx); err != nil {
		return "", fmt.Errorf("failed to enqueue job: %w", err)
	}

	r.logger.Info("Job enqueued",
		"job_id", job.ID,
		"job_type", jobType,
		"payload_size", size,
	)

	return job.ID, nil
}

// Dequeue atomically moves the oldest job onto the processing list and
// returns it. It waits up to popTimeout and returns nil, nil when the queue
// stays empty.
func (r *QueueRepository) Dequeue(ctx context.Context, jobType string) (*domain.QueueJob, error) {
	keys := keysFor(jobType)

	// BLMOVE keeps the job in the processing list until Complete or Fail;
	// ProcessRetryJobs requeues it if neither happens within processingTimeout
	jobID, err := r.client.BLMove(ctx, keys.queue, keys.processing, "RIGHT", "LEFT", r.popTimeout).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to dequeue job: %w", err)
	}

	job, err := r.loadJob(ctx, jobID)
	if err != nil {
		if errors.Is(err, ErrJobNotFound) {
			r.logger.Warn("Job data not found, removing from processing", "job_id", jobID)
			r.client.LRem(ctx, keys.processing, 1, jobID)
		}
		return nil, err
	}

	now := time.Now()
	job.Status = domain.JobStatusProcessing
	job.UpdatedAt = &now

	pipe := r.client.TxPipeline()
	if err := saveJob(ctx, pipe, job); err != nil {
		return nil, err
	}
	if _, err := pipe.Exec(ctx); err != nil {
		r.logger.Error("Failed to update job status", "error", err, "job_id", jobID)
	}

	r.logger.Debug("Job dequeued",
		"job_id", job.ID,
		"job_type", jobType,
		"retry_count", job.RetryCount,
	)

	return job.toDomain(), nil
}

// Complete marks a job as completed and removes it from processing
func (r *QueueRepository) Complete(ctx context.Context, jobID string) error {
	job, err := r.loadJob(ctx, jobID)
	if err != nil {
		return fmt.Errorf("failed to load job for completion: %w", err)
	}

	keys := keysFor(job.Type)
	now := time.Now()
	job.Status = domain.JobStatusCompleted
	job.UpdatedAt = &now

	pipe := r.client.TxPipeline()
	if err := saveJob(ctx, pipe, job); err != nil {
		return err
	}
	pipe.LRem(ctx, keys.processing, 1, jobID)
	pipe.HIncrBy(ctx, keys.stats, "completed", 1)
	pipe.Expire(ctx, jobKey(jobID), finishedJobTTL)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to complete job: %w", err)
	}

	r.logger.Info("Job completed", "job_id", jobID, "job_type", job.Type)
	return nil
}

// Fail records the error and schedules a retry with exponential backoff, or
// moves the job to the dead letter list once its retries are used up
func (r *QueueRepository) Fail(ctx context.Context, jobID string, errorMsg string) error {
	job, err := r.loadJob(ctx, jobID)
	if err != nil {
		return fmt.Errorf("failed to load job for failure: %w", err)
	}

	keys := keysFor(job.Type)
	now := time.Now()
	job.Error = errorMsg
	job.UpdatedAt = &now
	job.RetryCount++

	pipe := r.client.TxPipeline()

	if job.RetryCount <= job.MaxRetries {
		nextRetry := now.Add(backoff(job.RetryCount))
		job.NextRetry = &nextRetry
		job.Status = domain.JobStatusPending

		pipe.ZAdd(ctx, keys.retry, redis.Z{
			Score:  float64(nextRetry.Unix()),
			Member: jobID,
		})
		pipe.HIncrBy(ctx, keys.stats, "retried", 1)

		r.logger.Warn("Job scheduled for retry",
			"job_id", jobID,
			"job_type", job.Type,
			"retry_count", job.RetryCount,
			"next_retry", nextRetry,
			"error", errorMsg,
		)
	} else {
		job.Status = domain.JobStatusFailed
		pipe.ZRem(ctx, keys.retry, jobID)
		pipe.LPush(ctx, keys.dead, jobID)
		pipe.HIncrBy(ctx, keys.stats, "failed", 1)

		r.logger.Error("Job failed permanently",
			"job_id", jobID,
			"job_type", job.Type,
			"retry_count", job.RetryCount,
			"error", errorMsg,
		)
	}

	if err := saveJob(ctx, pipe, job); err != nil {
		return err
	}
	pipe.LRem(ctx, keys.processing, 1, jobID)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to handle job failure: %w", err)
	}

	return nil
}

// GetPendingCount returns the number of jobs waiting in the queue
func (r *QueueRepository) GetPendingCount(ctx context.Context, jobType string) (int, error) {
	count, err := r.client.LLen(ctx, keysFor(jobType).queue).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to get pending count: %w", err)
	}
	return int(count), nil
}

// isStale reports whether a job handed to a worker has been processing for
// longer than timeout
func isStale(job *storedJob, now time.Time, timeout time.Duration) bool {
	if job.Status != domain.JobStatusProcessing {
		return false
	}
	started := job.CreatedAt
	if job.UpdatedAt != nil {
		started = *job.UpdatedAt
	}
	return now.Sub(started) > timeout
}

// ProcessRetryJobs requeues stale processing jobs and moves jobs whose
// backoff has elapsed back onto the queue
func (r *QueueRepository) ProcessRetryJobs(ctx context.Context, jobType string) error {
	keys := keysFor(jobType)

	if err := r.reclaimStaleJobs(ctx, keys); err != nil {
		return err
	}

	due, err := r.client.ZRangeByScore(ctx, keys.retry, &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(time.Now().Unix(), 10),
	}).Result()
	if err != nil {
		return fmt.Errorf("failed to get retry jobs: %w", err)
	}
	if len(due) == 0 {
		return nil
	}

	pipe := r.client.TxPipeline()
	for _, jobID := range due {
		pipe.ZRem(ctx, keys.retry, jobID)
		pipe.LPush(ctx, keys.queue, jobID)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to process retry jobs: %w", err)
	}

	r.logger.Info("Processed retry jobs",
		"job_type", jobType,
		"count", len(due),
	)

	return nil
}

// reclaimStaleJobs puts jobs left in the processing list by a crashed worker
// back onto the queue and drops entries whose job document has expired
func (r *QueueRepository) reclaimStaleJobs(ctx context.Context, keys queueKeys) error {
	ids, err := r.client.LRange(ctx, keys.processing, 0, -1).Result()
	if err != nil {
		return fmt.Errorf("failed to list processing jobs: %w", err)
	}

	now := time.Now()
	reclaimed := 0
	for _, jobID := range ids {
		job, err := r.loadJob(ctx, jobID)
		if err != nil && !errors.Is(err, ErrJobNotFound) {
			return err
		}
		if job != nil && !isStale(job, now, r.processingTimeout) {
			continue
		}

		// Only the caller that removes the entry requeues it, so a job
		// completed in the meantime is not run twice
		removed, err := r.client.LRem(ctx, keys.processing, 1, jobID).Result()
		if err != nil {
			return fmt.Errorf("failed to remove stale job: %w", err)
		}
		if removed == 0 || job == nil {
			continue
		}

		job.Status = domain.JobStatusPending
		job.UpdatedAt = &now
		pipe := r.client.TxPipeline()
		if err := saveJob(ctx, pipe, job); err != nil {
			return err
		}
		pipe.LPush(ctx, keys.queue, jobID)
		if _, err := pipe.Exec(ctx); err != nil {
			return fmt.Errorf("failed to requeue stale job: %w", err)
		}
		reclaimed++
	}

	if reclaimed > 0 {
		r.logger.Warn("Requeued stale processing jobs",
			"queue", keys.processing,
			"count", reclaimed,
		)
	}
	return nil
}

// GetQueueStats returns counters and current list sizes for a job type
func (r *QueueRepository) GetQueueStats(ctx context.Context, jobType string) (map[string]int64, error) {
	keys := keysFor(jobType)

	counters, err := r.client.HGetAll(ctx, keys.stats).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get queue stats: %w", err)
	}

	result := make(map[string]int64, len(counters)+4)
	for key, value := range counters {
		if val, err := strconv.ParseInt(value, 10, 64); err == nil {
			result[key] = val
		}
	}

	pipe := r.client.Pipeline()
	pending := pipe.LLen(ctx, keys.queue)
	processing := pipe.LLen(ctx, keys.processing)
	retrying := pipe.ZCard(ctx, keys.retry)
	dead := pipe.LLen(ctx, keys.dead)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to get queue lengths: %w", err)
	}

	result["current_pending"] = pending.Val()
	result["current_processing"] = processing.Val()
	result["current_retrying"] = retrying.Val()
	result["current_dead"] = dead.Val()

	return result, nil
}
