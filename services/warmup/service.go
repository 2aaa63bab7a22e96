package warmup

import (
	"context"

	"github.com/opentracing/opentracing-go"

	"github.com/sendwell/sendguard/dto"
	"github.com/sendwell/sendguard/interfaces"
	"github.com/sendwell/sendguard/internal/enum"
	"github.com/sendwell/sendguard/internal/logger"
	"github.com/sendwell/sendguard/internal/models"
	"github.com/sendwell/sendguard/internal/tracing"
	"github.com/sendwell/sendguard/services/reputation"
)

// rampSchedule is the per-day send limit during warmup. Day N (1-based) uses
// rampSchedule[N-1]; accounts past the last day are capped at its value and
// promoted to ACTIVE.
var rampSchedule = []int{10, 20, 30, 50, 75, 100, 150, 200, 250, 300, 350, 400, 450, 500}

type warmupService struct {
	accountRepository interfaces.AccountRepository
	logger            logger.Logger
}

func NewWarmupService(accountRepository interfaces.AccountRepository, log logger.Logger) interfaces.WarmupScheduler {
	return &warmupService{
		accountRepository: accountRepository,
		logger:            log,
	}
}

// Progress advances every WARMING account one step up the ramp. Accounts in
// critical breach hold their current step; pausing them is the health
// check's call, not the warmup's.
func (s *warmupService) Progress(ctx context.Context) (*dto.WarmupProgressSummary, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "WarmupService.Progress")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	accounts, err := s.accountRepository.GetByStatuses(ctx, []enum.AccountStatus{enum.AccountStatusWarming})
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	summary := &dto.WarmupProgressSummary{}
	for _, account := range accounts {
		advanced, promoted, err := s.advanceAccount(ctx, account)
		if err != nil {
			s.logger.Errorf("warmup advancement for account %s failed: %v", account.ID, err)
			continue
		}
		if advanced {
			summary.Advanced++
		}
		if promoted {
			summary.Promoted++
		}
	}

	span.LogKV("advanced", summary.Advanced, "promoted", summary.Promoted)
	s.logger.Infof("warmup progression done: %d advanced, %d promoted", summary.Advanced, summary.Promoted)
	return summary, nil
}

func (s *warmupService) advanceAccount(ctx context.Context, account *models.EmailAccount) (advanced, promoted bool, err error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "WarmupService.advanceAccount")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagAccount(span, account.ID)

	if reputation.HasCriticalBreach(account.BounceRate, account.SpamComplaintRate) {
		s.logger.Warnf("account %s holds warmup day %d: metrics in critical breach", account.ID, account.WarmupDay)
		return false, false, nil
	}

	nextDay := account.WarmupDay + 1
	limit := LimitForDay(nextDay)
	span.LogKV("warmupDay", nextDay, "dailySendLimit", limit)

	if err := s.accountRepository.UpdateWarmupStep(ctx, account.ID, nextDay, limit); err != nil {
		tracing.TraceErr(span, err)
		return false, false, err
	}

	if nextDay >= len(rampSchedule) {
		ok, err := s.accountRepository.UpdateStatusGuarded(ctx, account.ID,
			[]enum.AccountStatus{enum.AccountStatusWarming}, enum.AccountStatusActive)
		if err != nil {
			tracing.TraceErr(span, err)
			return true, false, err
		}
		if ok {
			s.logger.Infof("account %s finished warmup, promoted to active", account.ID)
			return true, true, nil
		}
	}

	return true, false, nil
}

// LimitForDay maps a 1-based warmup day to its daily send limit
func LimitForDay(day int) int {
	if day < 1 {
		return rampSchedule[0]
	}
	if day > len(rampSchedule) {
		return rampSchedule[len(rampSchedule)-1]
	}
	return rampSchedule[day-1]
}
