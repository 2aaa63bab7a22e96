package interfaces

import (
	"context"
	"time"

	"github.com/sendwell/sendguard/internal/models"
)

type JobRepository interface {
	// Enqueue inserts a pending job. When dedupeKey collides with an
	// existing row the insert is a no-op and the existing job is returned.
	Enqueue(ctx context.Context, job *models.JobExecution) (*models.JobExecution, error)
	// ClaimNext atomically claims the oldest runnable pending job
	// (SKIP LOCKED under postgres). Returns nil when the queue is drained.
	ClaimNext(ctx context.Context, now time.Time) (*models.JobExecution, error)
	MarkSucceeded(ctx context.Context, id string) error
	// Reschedule records a failed attempt and pushes the job back to
	// PENDING with the given next run time.
	Reschedule(ctx context.Context, id string, attempts int, lastError string, nextRunAt time.Time) error
	MarkFailed(ctx context.Context, id string, attempts int, lastError string) error
}

type JobFailureRepository interface {
	Record(ctx context.Context, failure *models.JobFailure) error
	GetRecent(ctx context.Context, limit int) ([]*models.JobFailure, error)
}
