package repository

import (
	"context"

	"github.com/opentracing/opentracing-go"
	tracingLog "github.com/opentracing/opentracing-go/log"
	"gorm.io/gorm"

	"github.com/sendwell/sendguard/interfaces"
	"github.com/sendwell/sendguard/internal/models"
	"github.com/sendwell/sendguard/internal/tracing"
)

type jobFailureRepository struct {
	gormDb *gorm.DB
}

func NewJobFailureRepository(db *gorm.DB) interfaces.JobFailureRepository {
	return &jobFailureRepository{gormDb: db}
}

func (r *jobFailureRepository) Record(ctx context.Context, failure *models.JobFailure) error {
	span, _ := opentracing.StartSpanFromContext(ctx, "JobFailureRepository.Record")
	defer span.Finish()
	tracing.SetDefaultPostgresRepositorySpanTags(ctx, span)
	tracing.TagJob(span, failure.Name)

	err := r.gormDb.WithContext(ctx).Create(failure).Error
	if err != nil {
		tracing.TraceErr(span, err)
		return err
	}

	return nil
}

func (r *jobFailureRepository) GetRecent(ctx context.Context, limit int) ([]*models.JobFailure, error) {
	span, _ := opentracing.StartSpanFromContext(ctx, "JobFailureRepository.GetRecent")
	defer span.Finish()
	tracing.SetDefaultPostgresRepositorySpanTags(ctx, span)

	var result []*models.JobFailure
	err := r.gormDb.WithContext(ctx).
		Order("failed_at desc").
		Limit(limit).
		Find(&result).
		Error
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	span.LogFields(tracingLog.Int("result.count", len(result)))
	return result, nil
}
