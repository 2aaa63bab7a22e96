package repository

import (
	"context"
	"time"

	"github.com/opentracing/opentracing-go"
	tracingLog "github.com/opentracing/opentracing-go/log"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/sendwell/sendguard/interfaces"
	"github.com/sendwell/sendguard/internal/enum"
	"github.com/sendwell/sendguard/internal/models"
	"github.com/sendwell/sendguard/internal/tracing"
)

type jobRepository struct {
	gormDb *gorm.DB
}

func NewJobRepository(db *gorm.DB) interfaces.JobRepository {
	return &jobRepository{gormDb: db}
}

func (r *jobRepository) Enqueue(ctx context.Context, job *models.JobExecution) (*models.JobExecution, error) {
	span, _ := opentracing.StartSpanFromContext(ctx, "JobRepository.Enqueue")
	defer span.Finish()
	tracing.SetDefaultPostgresRepositorySpanTags(ctx, span)
	tracing.TagJob(span, job.Name)

	// The dedupe key carries recurring-job idempotency: re-delivery of the
	// same window hits the unique index and inserts nothing.
	result := r.gormDb.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "dedupe_key"}},
			DoNothing: true,
		}).
		Create(job)

	if result.Error != nil {
		tracing.TraceErr(span, result.Error)
		return nil, result.Error
	}

	if result.RowsAffected == 0 {
		span.LogFields(tracingLog.Bool("result.deduplicated", true))
		var existing models.JobExecution
		err := r.gormDb.WithContext(ctx).
			Where("dedupe_key = ?", job.DedupeKey).
			First(&existing).
			Error
		if err != nil {
			tracing.TraceErr(span, err)
			return nil, err
		}
		return &existing, nil
	}

	return job, nil
}

func (r *jobRepository) ClaimNext(ctx context.Context, now time.Time) (*models.JobExecution, error) {
	span, _ := opentracing.StartSpanFromContext(ctx, "JobRepository.ClaimNext")
	defer span.Finish()
	tracing.SetDefaultPostgresRepositorySpanTags(ctx, span)

	var claimed *models.JobExecution
	err := r.gormDb.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var job models.JobExecution
		err := tx.
			Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Where("status = ? AND next_run_at <= ?", enum.JobStatusPending, now).
			Order("next_run_at asc").
			First(&job).
			Error
		if err != nil {
			return err
		}

		err = tx.Model(&models.JobExecution{}).
			Where("id = ?", job.ID).
			Update("status", enum.JobStatusRunning).
			Error
		if err != nil {
			return err
		}

		job.Status = enum.JobStatusRunning
		claimed = &job
		return nil
	})

	if err != nil && errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	tracing.TagJob(span, claimed.Name)
	return claimed, nil
}

func (r *jobRepository) MarkSucceeded(ctx context.Context, id string) error {
	span, _ := opentracing.StartSpanFromContext(ctx, "JobRepository.MarkSucceeded")
	defer span.Finish()
	tracing.SetDefaultPostgresRepositorySpanTags(ctx, span)

	err := r.gormDb.WithContext(ctx).
		Model(&models.JobExecution{}).
		Where("id = ?", id).
		Update("status", enum.JobStatusSucceeded).
		Error
	if err != nil {
		tracing.TraceErr(span, err)
		return err
	}

	return nil
}

func (r *jobRepository) Reschedule(ctx context.Context, id string, attempts int, lastError string, nextRunAt time.Time) error {
	span, _ := opentracing.StartSpanFromContext(ctx, "JobRepository.Reschedule")
	defer span.Finish()
	tracing.SetDefaultPostgresRepositorySpanTags(ctx, span)
	span.LogFields(tracingLog.Int("attempts", attempts))

	err := r.gormDb.WithContext(ctx).
		Model(&models.JobExecution{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":      enum.JobStatusPending,
			"attempts":    attempts,
			"last_error":  lastError,
			"next_run_at": nextRunAt,
		}).Error
	if err != nil {
		tracing.TraceErr(span, err)
		return err
	}

	return nil
}

func (r *jobRepository) MarkFailed(ctx context.Context, id string, attempts int, lastError string) error {
	span, _ := opentracing.StartSpanFromContext(ctx, "JobRepository.MarkFailed")
	defer span.Finish()
	tracing.SetDefaultPostgresRepositorySpanTags(ctx, span)
	span.LogFields(tracingLog.Int("attempts", attempts))

	err := r.gormDb.WithContext(ctx).
		Model(&models.JobExecution{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     enum.JobStatusFailed,
			"attempts":   attempts,
			"last_error": lastError,
		}).Error
	if err != nil {
		tracing.TraceErr(span, err)
		return err
	}

	return nil
}
