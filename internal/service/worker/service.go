package worker

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"bookmark-preview/internal/config"
	"bookmark-preview/internal/domain"
	"bookmark-preview/internal/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus"
)

// WorkerService processes background jobs
type WorkerService struct {
	config *config.Config
	logger *slog.Logger
	ctx    context.Context
	cancel context.CancelFunc

	queueRepo domain.QueueRepository
	processor *JobProcessor

	statsMu sync.Mutex
	stats   WorkerStats
}

// WorkerStats tracks worker performance metrics
type WorkerStats struct {
	JobsProcessed  int64
	JobsSucceeded  int64
	JobsFailed     int64
	LastJobTime    time.Time
	AverageJobTime time.Duration
}

// New creates a new worker service
func New(
	config *config.Config,
	logger *slog.Logger,
	bookmarkRepo domain.BookmarkRepository,
	queueRepo domain.QueueRepository,
	resolver domain.PreviewResolver,
) *WorkerService {
	ctx, cancel := context.WithCancel(context.Background())

	return &WorkerService{
		config:    config,
		logger:    logger,
		ctx:       ctx,
		cancel:    cancel,
		queueRepo: queueRepo,
		processor: NewJobProcessor(logger, bookmarkRepo, resolver),
	}
}

// Start begins processing jobs and blocks until SIGINT or SIGTERM
func (w *WorkerService) Start() error {
	w.logger.Info("Starting worker service...",
		"poll_interval", w.config.WorkerPollInterval,
		"batch_size", w.config.WorkerBatchSize,
	)

	go w.processJobs()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	w.logger.Info("Worker service is running. Press Ctrl+C to stop.")
	<-stop

	w.logger.Info("Shutting down worker service...")
	return w.Stop()
}

// Stop gracefully shuts down the worker service
func (w *WorkerService) Stop() error {
	w.cancel()
	w.logger.Info("Worker service stopped")
	return nil
}

// processJobs polls the queue until the service is stopped
func (w *WorkerService) processJobs() {
	ticker := time.NewTicker(w.config.WorkerPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			w.logger.Info("Job processing stopped")
			return
		case <-ticker.C:
			w.processPendingJobs()
		}
	}
}

// processPendingJobs requeues due retries and then works through one batch
func (w *WorkerService) processPendingJobs() {
	if err := w.queueRepo.ProcessRetryJobs(w.ctx, domain.JobTypeRefreshPreview); err != nil {
		w.logger.Error("Failed to process retry jobs", "error", err)
	}

	w.processJobType(domain.JobTypeRefreshPreview)
}

// processJobType processes up to WorkerBatchSize pending jobs of one type
func (w *WorkerService) processJobType(jobType string) {
	ctx := w.ctx

	pendingCount, err := w.queueRepo.GetPendingCount(ctx, jobType)
	if err != nil {
		w.logger.Error("Failed to get pending job count",
			"error", err,
			"job_type", jobType,
		)
		return
	}

	if pendingCount == 0 {
		return
	}

	w.logger.Debug("Processing pending jobs",
		"job_type", jobType,
		"count", pendingCount,
	)

	maxJobs := w.config.WorkerBatchSize
	if pendingCount < maxJobs {
		maxJobs = pendingCount
	}

	for i := 0; i < maxJobs; i++ {
		if ctx.Err() != nil {
			return
		}

		job, err := w.queueRepo.Dequeue(ctx, jobType)
		if err != nil {
			w.logger.Error("Failed to dequeue job",
				"error", err,
				"job_type", jobType,
			)
			continue
		}

		if job == nil {
			break
		}

		w.processJob(job)
	}
}

// processJob runs a single job and reports the outcome to the queue
func (w *WorkerService) processJob(job *domain.QueueJob) {
	startTime := time.Now()
	jobLogger := w.logger.With(
		"job_id", job.ID,
		"job_type", job.Type,
	)

	jobLogger.Info("Processing job")

	var processingErr error
	switch job.Type {
	case domain.JobTypeRefreshPreview:
		processingErr = w.processor.ProcessRefreshPreview(w.ctx, job.Payload, jobLogger)
	default:
		processingErr = fmt.Errorf("unknown job type: %s", job.Type)
	}

	result := "succeeded"
	if processingErr != nil {
		result = "failed"
		jobLogger.Error("Job processing failed", "error", processingErr)

		if err := w.queueRepo.Fail(w.ctx, job.ID, processingErr.Error()); err != nil {
			jobLogger.Error("Failed to mark job as failed", "error", err)
		}
	} else {
		jobLogger.Info("Job processed successfully")

		if err := w.queueRepo.Complete(w.ctx, job.ID); err != nil {
			jobLogger.Error("Failed to mark job as completed", "error", err)
		}
	}

	metrics.JobsProcessed.With(prometheus.Labels{"type": job.Type, "result": result}).Inc()

	jobDuration := time.Since(startTime)
	w.recordJob(processingErr == nil, jobDuration)

	jobLogger.Debug("Job processing completed",
		"duration", jobDuration,
		"success", processingErr == nil,
	)
}

func (w *WorkerService) recordJob(success bool, duration time.Duration) {
	w.statsMu.Lock()
	defer w.statsMu.Unlock()

	if success {
		w.stats.JobsSucceeded++
	} else {
		w.stats.JobsFailed++
	}
	w.stats.JobsProcessed++
	w.stats.LastJobTime = time.Now()

	// Running mean
	n := w.stats.JobsProcessed
	w.stats.AverageJobTime += (duration - w.stats.AverageJobTime) / time.Duration(n)
}

// GetStats returns a snapshot of the worker statistics
func (w *WorkerService) GetStats() WorkerStats {
	w.statsMu.Lock()
	defer w.statsMu.Unlock()
	return w.stats
}

// HealthCheck performs a health check on the worker service
func (w *WorkerService) HealthCheck() error {
	if w.ctx.Err() != nil {
		return fmt.Errorf("worker context cancelled: %w", w.ctx.Err())
	}

	if _, err := w.queueRepo.GetPendingCount(w.ctx, domain.JobTypeRefreshPreview); err != nil {
		return fmt.Errorf("queue connectivity check failed: %w", err)
	}

	return nil
}
