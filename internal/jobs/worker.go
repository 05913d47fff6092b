package jobs

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"catalog-service/internal/importer"
	"catalog-service/internal/models"
	"github.com/sirupsen/logrus"
)

const (
	pollTimeout = 5 * time.Second
	// leaseTTL is how long a job stays claimed after its worker's last renewal
	leaseTTL      = 30 * time.Second
	sweepInterval = time.Minute
)

// Queue is the job storage the worker consumes
type Queue interface {
	Get(ctx context.Context, id string) (*models.ImportJob, error)
	Save(ctx context.Context, job *models.ImportJob) error
	Requeue(ctx context.Context, job *models.ImportJob) error
	Next(ctx context.Context, timeout time.Duration) (string, error)
	AcquireLease(ctx context.Context, id string, ttl time.Duration) (bool, error)
	RenewLease(ctx context.Context, id string, ttl time.Duration) error
	ReleaseLease(ctx context.Context, id string) error
	RequeueStale(ctx context.Context) (int, error)
}

// Runner performs one import
type Runner interface {
	ImportCatalog(ctx context.Context, filePath string, opts importer.Options) (*importer.ImportResult, error)
}

// EventPublisher announces finished jobs
type EventPublisher interface {
	PublishImportCompleted(ctx context.Context, job *models.ImportJob) error
	PublishImportFailed(ctx context.Context, job *models.ImportJob) error
}

// Worker processes queued imports with a fixed number of goroutines.
// Each goroutine handles one job at a time.
type Worker struct {
	queue       Queue
	runner      Runner
	publisher   EventPublisher
	checkpoints importer.Checkpointer
	concurrency int
	sampleLimit int
	storageDir  string
	logger      *logrus.Entry
	wg          sync.WaitGroup
}

// WorkerConfig holds the optional collaborators and limits of a Worker
type WorkerConfig struct {
	Publisher   EventPublisher
	Checkpoints importer.Checkpointer
	Concurrency int
	SampleLimit int
	// StorageDir holds uploaded files; files under it are removed once their job finishes
	StorageDir string
}

func NewWorker(queue Queue, runner Runner, cfg WorkerConfig, logger *logrus.Logger) *Worker {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	return &Worker{
		queue:       queue,
		runner:      runner,
		publisher:   cfg.Publisher,
		checkpoints: cfg.Checkpoints,
		concurrency: cfg.Concurrency,
		sampleLimit: cfg.SampleLimit,
		storageDir:  cfg.StorageDir,
		logger:      logger.WithField("component", "import_worker"),
	}
}

// Start requeues jobs left PROCESSING by a worker that is gone, then launches
// the worker goroutines and a periodic sweep. They stop when ctx is cancelled.
func (w *Worker) Start(ctx context.Context) {
	w.recoverStale(ctx)

	w.logger.WithField("workers", w.concurrency).Info("Import worker started")
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		ticker := time.NewTicker(sweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				w.recoverStale(ctx)
			}
		}
	}()

	for i := 0; i < w.concurrency; i++ {
		w.wg.Add(1)
		go func(n int) {
			defer w.wg.Done()
			w.loop(ctx, w.logger.WithField("worker", n))
		}(i)
	}
}

func (w *Worker) recoverStale(ctx context.Context) {
	n, err := w.queue.RequeueStale(ctx)
	if err != nil {
		if ctx.Err() == nil {
			w.logger.WithError(err).Error("Failed to requeue stale import jobs")
		}
		return
	}
	if n > 0 {
		w.logger.WithField("requeued", n).Warn("Requeued stale import jobs")
	}
}

// Wait blocks until every worker goroutine has returned
func (w *Worker) Wait() {
	w.wg.Wait()
}

func (w *Worker) loop(ctx context.Context, log *logrus.Entry) {
	for {
		select {
		case <-ctx.Done():
			log.Info("Import worker stopping")
			return
		default:
		}

		id, err := w.queue.Next(ctx, pollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.WithError(err).Error("Failed to poll import queue")
			time.Sleep(500 * time.Millisecond)
			continue
		}
		if id == "" {
			continue
		}

		if err := w.Process(ctx, id); err != nil {
			log.WithField("job_id", id).WithError(err).Error("Import job failed")
		}
	}
}

// Process runs a single job and stores its outcome. A job interrupted by
// ctx is put back on the queue so it resumes from its checkpoints. The job is
// leased while it runs; a job already leased or already finished is skipped.
func (w *Worker) Process(ctx context.Context, id string) error {
	log := w.logger.WithField("job_id", id)

	job, err := w.queue.Get(ctx, id)
	if err != nil {
		return err
	}
	if job.Status == models.ImportStatusCompleted || job.Status == models.ImportStatusFailed {
		log.WithField("status", job.Status).Debug("Skipping finished import job")
		return nil
	}

	leased, err := w.queue.AcquireLease(ctx, id, leaseTTL)
	if err != nil {
		return err
	}
	if !leased {
		log.Debug("Import job is already running elsewhere")
		return nil
	}
	stopHeartbeat := w.heartbeat(ctx, id, log)
	var releaseOnce sync.Once
	release := func() {
		releaseOnce.Do(func() {
			stopHeartbeat()
			releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := w.queue.ReleaseLease(releaseCtx, id); err != nil {
				log.WithError(err).Warn("Failed to release job lease")
			}
		})
	}
	defer release()

	job.Status = models.ImportStatusProcessing
	if err := w.queue.Save(ctx, job); err != nil {
		return err
	}
	log.WithField("file", job.FilePath).Info("Processing import job")

	result, runErr := w.runner.ImportCatalog(ctx, job.FilePath, importer.Options{
		ReplaceExisting: job.ReplaceExisting,
		Format:          job.Format,
		JobID:           job.ID,
	})
	if result != nil {
		summary := result.Summary(w.sampleLimit)
		job.Summary = &summary
	}

	// the job context may already be cancelled here
	finishCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if runErr != nil && errors.Is(runErr, context.Canceled) {
		log.Warn("Import interrupted, requeueing job")
		// a requeued job must be leasable by whichever worker pops it
		release()
		return w.queue.Requeue(finishCtx, job)
	}

	if runErr != nil {
		job.Status = models.ImportStatusFailed
		job.Error = runErr.Error()
	} else {
		job.Status = models.ImportStatusCompleted
		job.Error = ""
	}
	if err := w.queue.Save(finishCtx, job); err != nil {
		return err
	}

	if w.checkpoints != nil {
		if err := w.checkpoints.Clear(finishCtx, job.ID); err != nil {
			log.WithError(err).Warn("Failed to clear checkpoints")
		}
	}
	w.removeUpload(job.FilePath, log)
	w.announce(finishCtx, job, log)

	if runErr != nil {
		return runErr
	}
	log.WithField("message", job.Summary.Message).Info("Import job completed")
	return nil
}

// heartbeat renews the job lease until the returned stop func is called
func (w *Worker) heartbeat(ctx context.Context, id string, log *logrus.Entry) func() {
	done := make(chan struct{})
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		ticker := time.NewTicker(leaseTTL / 3)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := w.queue.RenewLease(ctx, id, leaseTTL); err != nil {
					log.WithError(err).Warn("Failed to renew job lease")
				}
			}
		}
	}()
	return func() {
		close(done)
		<-stopped
	}
}

func (w *Worker) announce(ctx context.Context, job *models.ImportJob, log *logrus.Entry) {
	if w.publisher == nil {
		return
	}
	var err error
	if job.Status == models.ImportStatusCompleted {
		err = w.publisher.PublishImportCompleted(ctx, job)
	} else {
		err = w.publisher.PublishImportFailed(ctx, job)
	}
	if err != nil {
		log.WithError(err).Warn("Failed to publish import event")
	}
}

// removeUpload deletes files the service stored itself. Paths outside the
// storage dir belong to the caller and are left alone.
func (w *Worker) removeUpload(path string, log *logrus.Entry) {
	if w.storageDir == "" || strings.HasPrefix(path, "s3://") {
		return
	}
	rel, err := filepath.Rel(w.storageDir, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		log.WithError(err).Warn("Failed to remove uploaded file")
	}
}
