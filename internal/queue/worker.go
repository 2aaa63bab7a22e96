package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/opentracing/opentracing-go"

	"github.com/sendwell/sendguard/interfaces"
	internal_config "github.com/sendwell/sendguard/internal/config"
	"github.com/sendwell/sendguard/internal/logger"
	"github.com/sendwell/sendguard/internal/models"
	"github.com/sendwell/sendguard/internal/tracing"
	"github.com/sendwell/sendguard/internal/utils"
)

const (
	defaultPollInterval = time.Second
	defaultConcurrency  = 5
	defaultBackoffBase  = 5 * time.Second
)

// WorkerPool drains the durable job table. Each worker claims one job at a
// time, runs it through the dispatcher, and either acks it, reschedules it
// with exponential backoff, or buries it in job_failures once the retry
// budget is spent.
type WorkerPool struct {
	jobRepository     interfaces.JobRepository
	failureRepository interfaces.JobFailureRepository
	dispatcher        interfaces.Dispatcher
	limiter           *RateLimiter
	notifier          interfaces.Notifier
	logger            logger.Logger

	concurrency  int
	backoffBase  time.Duration
	pollInterval time.Duration

	stopCh chan struct{}
	wg     sync.WaitGroup
}

func NewWorkerPool(
	jobRepository interfaces.JobRepository,
	failureRepository interfaces.JobFailureRepository,
	dispatcher interfaces.Dispatcher,
	limiter *RateLimiter,
	notifier interfaces.Notifier,
	log logger.Logger,
	cfg *internal_config.QueueConfig,
) *WorkerPool {
	concurrency := defaultConcurrency
	backoffBase := defaultBackoffBase
	if cfg != nil {
		if cfg.Concurrency > 0 {
			concurrency = cfg.Concurrency
		}
		if cfg.BackoffBaseSeconds > 0 {
			backoffBase = time.Duration(cfg.BackoffBaseSeconds) * time.Second
		}
	}
	return &WorkerPool{
		jobRepository:     jobRepository,
		failureRepository: failureRepository,
		dispatcher:        dispatcher,
		limiter:           limiter,
		notifier:          notifier,
		logger:            log,
		concurrency:       concurrency,
		backoffBase:       backoffBase,
		pollInterval:      defaultPollInterval,
		stopCh:            make(chan struct{}),
	}
}

func (p *WorkerPool) Start(ctx context.Context) {
	p.logger.Infof("starting %d queue workers", p.concurrency)
	for i := 0; i < p.concurrency; i++ {
		p.wg.Add(1)
		go p.runWorker(ctx, i)
	}
}

func (p *WorkerPool) Stop() {
	close(p.stopCh)
	p.wg.Wait()
	p.logger.Info("queue workers stopped")
}

func (p *WorkerPool) runWorker(ctx context.Context, workerID int) {
	defer p.wg.Done()
	defer tracing.RecoverAndLogToJaeger(p.logger)

	for {
		select {
		case <-p.stopCh:
			return
		case <-ctx.Done():
			return
		default:
		}

		processed, err := p.processOne(ctx)
		if err != nil {
			p.logger.Errorf("worker %d: %v", workerID, err)
		}
		if !processed {
			select {
			case <-p.stopCh:
				return
			case <-ctx.Done():
				return
			case <-time.After(p.pollInterval):
			}
		}
	}
}

// processOne claims and executes a single job. A rate window slot is drawn
// only after a claim succeeds, so idle polling leaves the window untouched.
// It returns false when nothing ran so the caller backs off before polling
// again.
func (p *WorkerPool) processOne(ctx context.Context) (bool, error) {
	job, err := p.jobRepository.ClaimNext(ctx, utils.Now())
	if err != nil {
		return false, err
	}
	if job == nil {
		return false, nil
	}

	if p.limiter != nil {
		allowed, retryAt, limitErr := p.limiter.Allow(ctx)
		if limitErr != nil || !allowed {
			p.releaseClaim(ctx, job, retryAt)
			return false, limitErr
		}
	}

	p.executeJob(ctx, job)
	return true, nil
}

// releaseClaim hands a claimed job back to the queue untouched: no attempt
// is spent and the last error is kept.
func (p *WorkerPool) releaseClaim(ctx context.Context, job *models.JobExecution, nextRunAt time.Time) {
	now := utils.Now()
	if nextRunAt.IsZero() || nextRunAt.Before(now) {
		nextRunAt = now.Add(p.pollInterval)
	}
	if err := p.jobRepository.Reschedule(ctx, job.ID, job.Attempts, job.LastError, nextRunAt); err != nil {
		p.logger.Errorf("failed to release job %s: %v", job.ID, err)
	}
}

func (p *WorkerPool) executeJob(ctx context.Context, job *models.JobExecution) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "WorkerPool.executeJob")
	defer span.Finish()
	tracing.TagComponentWorker(span)
	tracing.TagJob(span, job.Name)
	span.LogKV("jobId", job.ID, "attempt", job.Attempts+1)

	jobErr := p.runSafely(ctx, job)
	attempts := job.Attempts + 1

	if jobErr == nil {
		if err := p.jobRepository.MarkSucceeded(ctx, job.ID); err != nil {
			tracing.TraceErr(span, err)
			p.logger.Errorf("failed to ack job %s: %v", job.ID, err)
		}
		return
	}

	tracing.TraceErr(span, jobErr)
	p.logger.Warnf("job %s (%s) attempt %d/%d failed: %v", job.Name, job.ID, attempts, job.MaxAttempts, jobErr)

	if attempts < job.MaxAttempts {
		nextRunAt := utils.Now().Add(backoffDelay(p.backoffBase, attempts))
		if err := p.jobRepository.Reschedule(ctx, job.ID, attempts, jobErr.Error(), nextRunAt); err != nil {
			tracing.TraceErr(span, err)
			p.logger.Errorf("failed to reschedule job %s: %v", job.ID, err)
		}
		return
	}

	if err := p.jobRepository.MarkFailed(ctx, job.ID, attempts, jobErr.Error()); err != nil {
		tracing.TraceErr(span, err)
		p.logger.Errorf("failed to bury job %s: %v", job.ID, err)
	}

	failure := &models.JobFailure{
		JobID:    job.ID,
		Name:     job.Name,
		Attempts: attempts,
		Error:    jobErr.Error(),
		FailedAt: utils.Now(),
	}
	if err := p.failureRepository.Record(ctx, failure); err != nil {
		tracing.TraceErr(span, err)
		p.logger.Errorf("failed to record failure for job %s: %v", job.ID, err)
	}

	if p.notifier != nil {
		if err := p.notifier.NotifyJobFailed(ctx, job.Name, job.ID, jobErr.Error()); err != nil {
			tracing.TraceErr(span, err)
			p.logger.Errorf("failed to send failure alert for job %s: %v", job.ID, err)
		}
	}
}

// runSafely converts panics inside job handlers into plain job errors so one
// bad job cannot take a worker down.
func (p *WorkerPool) runSafely(ctx context.Context, job *models.JobExecution) (jobErr error) {
	defer func() {
		if r := recover(); r != nil {
			jobErr = fmt.Errorf("job panicked: %v", r)
		}
	}()
	return p.dispatcher.Dispatch(ctx, job.Name, job.Payload)
}

// backoffDelay doubles per attempt: base, 2*base, 4*base, ...
func backoffDelay(base time.Duration, attempt int) time.Duration {
	delay := base
	for i := 1; i < attempt; i++ {
		delay *= 2
	}
	return delay
}
