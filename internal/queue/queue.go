package queue

import (
	"context"
	"encoding/json"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"

	"github.com/sendwell/sendguard/interfaces"
	internal_config "github.com/sendwell/sendguard/internal/config"
	"github.com/sendwell/sendguard/internal/enum"
	"github.com/sendwell/sendguard/internal/models"
	"github.com/sendwell/sendguard/internal/tracing"
	"github.com/sendwell/sendguard/internal/utils"
)

type jobQueue struct {
	jobRepository interfaces.JobRepository
	maxAttempts   int
}

func NewJobQueue(jobRepository interfaces.JobRepository, cfg *internal_config.QueueConfig) interfaces.JobQueue {
	maxAttempts := 3
	if cfg != nil && cfg.MaxAttempts > 0 {
		maxAttempts = cfg.MaxAttempts
	}
	return &jobQueue{
		jobRepository: jobRepository,
		maxAttempts:   maxAttempts,
	}
}

// Enqueue registers a pending job. Payloads are serialized to JSON; a nil
// payload produces an empty payload column. Dedupe keys make re-delivery of
// the same logical job a no-op; one-off jobs without a caller-supplied key
// get a generated one so they never collide on the dedupe index.
func (q *jobQueue) Enqueue(ctx context.Context, name string, payload any, opts interfaces.EnqueueOptions) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "JobQueue.Enqueue")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagJob(span, name)

	var serialized string
	if payload != nil {
		body, err := json.Marshal(payload)
		if err != nil {
			tracing.TraceErr(span, err)
			return errors.Wrap(err, "failed to serialize job payload")
		}
		serialized = string(body)
	}

	maxAttempts := opts.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = q.maxAttempts
	}

	dedupeKey := opts.DedupeKey
	if dedupeKey == "" {
		dedupeKey = utils.GenerateNanoIDWithPrefix("once", 21)
	}

	job := &models.JobExecution{
		Name:        name,
		Payload:     serialized,
		DedupeKey:   dedupeKey,
		Status:      enum.JobStatusPending,
		MaxAttempts: maxAttempts,
		NextRunAt:   utils.Now(),
	}

	if _, err := q.jobRepository.Enqueue(ctx, job); err != nil {
		tracing.TraceErr(span, err)
		return err
	}
	return nil
}
