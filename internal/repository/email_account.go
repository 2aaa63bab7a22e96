package repository

import (
	"context"
	"time"

	"github.com/opentracing/opentracing-go"
	tracingLog "github.com/opentracing/opentracing-go/log"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/sendwell/sendguard/interfaces"
	"github.com/sendwell/sendguard/internal/enum"
	"github.com/sendwell/sendguard/internal/models"
	"github.com/sendwell/sendguard/internal/tracing"
)

type emailAccountRepository struct {
	gormDb *gorm.DB
}

func NewEmailAccountRepository(db *gorm.DB) interfaces.AccountRepository {
	return &emailAccountRepository{gormDb: db}
}

func (r *emailAccountRepository) GetByID(ctx context.Context, id string) (*models.EmailAccount, error) {
	span, _ := opentracing.StartSpanFromContext(ctx, "EmailAccountRepository.GetByID")
	defer span.Finish()
	tracing.SetDefaultPostgresRepositorySpanTags(ctx, span)
	span.LogFields(tracingLog.String("id", id))

	var result models.EmailAccount
	err := r.gormDb.WithContext(ctx).
		Where("id = ?", id).
		First(&result).
		Error

	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		tracing.TraceErr(span, err)
		return nil, err
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		span.LogFields(tracingLog.Bool("result.found", false))
		return nil, nil
	}

	span.LogFields(tracingLog.Bool("result.found", true))
	return &result, nil
}

func (r *emailAccountRepository) GetByStatuses(ctx context.Context, statuses []enum.AccountStatus) ([]*models.EmailAccount, error) {
	span, _ := opentracing.StartSpanFromContext(ctx, "EmailAccountRepository.GetByStatuses")
	defer span.Finish()
	tracing.SetDefaultPostgresRepositorySpanTags(ctx, span)

	var result []*models.EmailAccount
	err := r.gormDb.WithContext(ctx).
		Where("status IN ?", statuses).
		Order("created_at asc").
		Find(&result).
		Error

	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	span.LogFields(tracingLog.Int("result.count", len(result)))
	return result, nil
}

func (r *emailAccountRepository) Save(ctx context.Context, account *models.EmailAccount) error {
	span, _ := opentracing.StartSpanFromContext(ctx, "EmailAccountRepository.Save")
	defer span.Finish()
	tracing.SetDefaultPostgresRepositorySpanTags(ctx, span)
	tracing.TagAccount(span, account.ID)

	err := r.gormDb.WithContext(ctx).Save(account).Error
	if err != nil {
		tracing.TraceErr(span, err)
		return err
	}

	return nil
}

func (r *emailAccountRepository) UpdateHealth(ctx context.Context, id string, patch interfaces.AccountHealthPatch) error {
	span, _ := opentracing.StartSpanFromContext(ctx, "EmailAccountRepository.UpdateHealth")
	defer span.Finish()
	tracing.SetDefaultPostgresRepositorySpanTags(ctx, span)
	tracing.TagAccount(span, id)

	err := r.gormDb.WithContext(ctx).
		Model(&models.EmailAccount{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"reputation_score":     patch.ReputationScore,
			"bounce_rate":          patch.BounceRate,
			"spam_complaint_rate":  patch.SpamComplaintRate,
			"last_health_check_at": patch.LastHealthCheckAt,
			"last_health_issues":   patch.LastHealthIssues,
		}).Error

	if err != nil {
		tracing.TraceErr(span, err)
		return err
	}

	return nil
}

func (r *emailAccountRepository) UpdateRates(ctx context.Context, id string, bounceRate, spamComplaintRate float64) (bool, error) {
	span, _ := opentracing.StartSpanFromContext(ctx, "EmailAccountRepository.UpdateRates")
	defer span.Finish()
	tracing.SetDefaultPostgresRepositorySpanTags(ctx, span)
	tracing.TagAccount(span, id)

	result := r.gormDb.WithContext(ctx).
		Model(&models.EmailAccount{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"bounce_rate":         bounceRate,
			"spam_complaint_rate": spamComplaintRate,
		})

	if result.Error != nil {
		tracing.TraceErr(span, result.Error)
		return false, result.Error
	}

	span.LogFields(tracingLog.Bool("result.updated", result.RowsAffected > 0))
	return result.RowsAffected > 0, nil
}

func (r *emailAccountRepository) UpdateStatusGuarded(ctx context.Context, id string, fromStatuses []enum.AccountStatus, to enum.AccountStatus) (bool, error) {
	span, _ := opentracing.StartSpanFromContext(ctx, "EmailAccountRepository.UpdateStatusGuarded")
	defer span.Finish()
	tracing.SetDefaultPostgresRepositorySpanTags(ctx, span)
	tracing.TagAccount(span, id)
	span.LogFields(tracingLog.String("status.to", to.String()))

	// Guarded write keeps PAUSED monotone: a stale healthy result cannot
	// flip a freshly paused account back because PAUSED is never in its
	// fromStatuses set.
	result := r.gormDb.WithContext(ctx).
		Model(&models.EmailAccount{}).
		Where("id = ? AND status IN ?", id, fromStatuses).
		Update("status", to)

	if result.Error != nil {
		tracing.TraceErr(span, result.Error)
		return false, result.Error
	}

	span.LogFields(tracingLog.Bool("result.updated", result.RowsAffected > 0))
	return result.RowsAffected > 0, nil
}

func (r *emailAccountRepository) UpdateWarmupStep(ctx context.Context, id string, warmupDay int, dailySendLimit int) error {
	span, _ := opentracing.StartSpanFromContext(ctx, "EmailAccountRepository.UpdateWarmupStep")
	defer span.Finish()
	tracing.SetDefaultPostgresRepositorySpanTags(ctx, span)
	tracing.TagAccount(span, id)
	span.LogFields(tracingLog.Int("warmupDay", warmupDay), tracingLog.Int("dailySendLimit", dailySendLimit))

	err := r.gormDb.WithContext(ctx).
		Model(&models.EmailAccount{}).
		Where("id = ? AND status = ?", id, enum.AccountStatusWarming).
		Updates(map[string]interface{}{
			"warmup_day":       warmupDay,
			"daily_send_limit": dailySendLimit,
		}).Error

	if err != nil {
		tracing.TraceErr(span, err)
		return err
	}

	return nil
}

func (r *emailAccountRepository) ResetDailyCounts(ctx context.Context, statuses []enum.AccountStatus, resetAt time.Time) (int64, error) {
	span, _ := opentracing.StartSpanFromContext(ctx, "EmailAccountRepository.ResetDailyCounts")
	defer span.Finish()
	tracing.SetDefaultPostgresRepositorySpanTags(ctx, span)

	// rows already stamped with this reset time are skipped, so replaying
	// the reset within the same day is a no-op
	result := r.gormDb.WithContext(ctx).
		Model(&models.EmailAccount{}).
		Where("status IN ? AND (daily_sent_reset_at IS NULL OR daily_sent_reset_at < ?)", statuses, resetAt).
		Updates(map[string]interface{}{
			"daily_sent_count":    0,
			"daily_sent_reset_at": resetAt,
		})

	if result.Error != nil {
		tracing.TraceErr(span, result.Error)
		return 0, result.Error
	}

	span.LogFields(tracingLog.Int64("result.count", result.RowsAffected))
	return result.RowsAffected, nil
}
