package report

import (
	"context"
	"math"

	"github.com/opentracing/opentracing-go"

	"github.com/sendwell/sendguard/dto"
	"github.com/sendwell/sendguard/interfaces"
	"github.com/sendwell/sendguard/internal/enum"
	"github.com/sendwell/sendguard/internal/logger"
	"github.com/sendwell/sendguard/internal/tracing"
	"github.com/sendwell/sendguard/internal/utils"
	"github.com/sendwell/sendguard/services/reputation"
)

type reportService struct {
	accountRepository interfaces.AccountRepository
	notifier          interfaces.Notifier
	logger            logger.Logger
}

func NewReportService(accountRepository interfaces.AccountRepository, notifier interfaces.Notifier, log logger.Logger) interfaces.ReportGenerator {
	return &reportService{
		accountRepository: accountRepository,
		notifier:          notifier,
		logger:            log,
	}
}

// GenerateDaily aggregates fleet health across every account, publishes the
// summary to the notification sink and returns it.
func (s *reportService) GenerateDaily(ctx context.Context) (*dto.ReportSummary, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "ReportService.GenerateDaily")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	accounts, err := s.accountRepository.GetByStatuses(ctx, []enum.AccountStatus{
		enum.AccountStatusActive,
		enum.AccountStatusWarming,
		enum.AccountStatusPaused,
		enum.AccountStatusDisconnected,
	})
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	summary := &dto.ReportSummary{
		TotalAccounts: len(accounts),
		ByTier:        map[string]int{},
		ByStatus:      map[string]int{},
		GeneratedAt:   utils.Now(),
	}

	var scoreSum int
	for _, account := range accounts {
		summary.ByTier[account.Tier.String()]++
		summary.ByStatus[account.Status.String()]++
		scoreSum += account.ReputationScore
		if account.BounceRate > reputation.SoftBounceRate {
			summary.HighBounceCount++
		}
	}
	if len(accounts) > 0 {
		avg := float64(scoreSum) / float64(len(accounts))
		summary.AvgReputation = math.Round(avg*100) / 100
	}

	if err := s.notifier.PublishDailyReport(ctx, summary); err != nil {
		tracing.TraceErr(span, err)
		s.logger.Errorf("failed to publish daily report: %v", err)
	}

	s.logger.Infof("daily report generated: %d accounts, avg reputation %.1f, %d with high bounce",
		summary.TotalAccounts, summary.AvgReputation, summary.HighBounceCount)
	return summary, nil
}
