package dispatcher

import (
	"context"
	"encoding/json"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"

	"github.com/sendwell/sendguard/dto"
	"github.com/sendwell/sendguard/interfaces"
	"github.com/sendwell/sendguard/internal/enum"
	sendguard_errors "github.com/sendwell/sendguard/internal/errors"
	"github.com/sendwell/sendguard/internal/logger"
	"github.com/sendwell/sendguard/internal/tracing"
	"github.com/sendwell/sendguard/internal/utils"
)

type dispatcherService struct {
	accountRepository interfaces.AccountRepository
	healthMonitor     interfaces.HealthMonitor
	warmupScheduler   interfaces.WarmupScheduler
	reportGenerator   interfaces.ReportGenerator
	logger            logger.Logger
}

func NewDispatcherService(
	accountRepository interfaces.AccountRepository,
	healthMonitor interfaces.HealthMonitor,
	warmupScheduler interfaces.WarmupScheduler,
	reportGenerator interfaces.ReportGenerator,
	log logger.Logger,
) interfaces.Dispatcher {
	return &dispatcherService{
		accountRepository: accountRepository,
		healthMonitor:     healthMonitor,
		warmupScheduler:   warmupScheduler,
		reportGenerator:   reportGenerator,
		logger:            log,
	}
}

// Dispatch routes a claimed job to its handler by name
func (s *dispatcherService) Dispatch(ctx context.Context, name string, payload string) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "DispatcherService.Dispatch")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagJob(span, name)

	var err error
	switch name {
	case dto.JobHealthCheck:
		_, err = s.healthMonitor.CheckFleet(ctx)
	case dto.JobHealthCheckSingle:
		err = s.checkSingle(ctx, payload)
	case dto.JobWarmupProgress:
		_, err = s.warmupScheduler.Progress(ctx)
	case dto.JobDailyReport:
		_, err = s.reportGenerator.GenerateDaily(ctx)
	case dto.JobResetDailyCounts:
		_, err = s.ResetDailyCounts(ctx)
	case dto.JobAutoPause:
		err = s.enforcePause(ctx, payload)
	case dto.JobReputationUpdate:
		err = s.applyReputationUpdate(ctx, payload)
	default:
		err = errors.Wrapf(sendguard_errors.ErrUnknownJob, "job %q", name)
	}

	if err != nil {
		tracing.TraceErr(span, err)
	}
	return err
}

func (s *dispatcherService) checkSingle(ctx context.Context, payload string) error {
	var req dto.HealthCheckSinglePayload
	if err := json.Unmarshal([]byte(payload), &req); err != nil {
		return errors.Wrap(err, "malformed health-check-single payload")
	}

	_, err := s.healthMonitor.CheckOne(ctx, req.AccountID)
	if errors.Is(err, sendguard_errors.ErrAccountNotCheckable) || errors.Is(err, sendguard_errors.ErrAccountNotFound) {
		// the account changed state or vanished after the job was enqueued;
		// retrying cannot bring it back
		s.logger.Warnf("skipping health check for %s: %v", req.AccountID, err)
		return nil
	}
	return err
}

// enforcePause re-applies the pause recorded in the payload. Pausing is
// monotone, so replaying the job after the inline transition is a no-op.
func (s *dispatcherService) enforcePause(ctx context.Context, payload string) error {
	var req dto.AutoPausePayload
	if err := json.Unmarshal([]byte(payload), &req); err != nil {
		return errors.Wrap(err, "malformed auto-pause payload")
	}

	paused, err := s.accountRepository.UpdateStatusGuarded(ctx, req.AccountID,
		enum.CheckableStatuses(), enum.AccountStatusPaused)
	if err != nil {
		return err
	}
	if paused {
		s.logger.Warnf("account %s paused by followup job: %s", req.AccountID, req.Reason)
	}
	return nil
}

// applyReputationUpdate ingests fresh delivery metrics and re-runs the
// health evaluation against them. The write is scoped to the rate columns;
// status transitions stay with the guarded update. Replays write the same
// rates, so the job is safe to retry.
func (s *dispatcherService) applyReputationUpdate(ctx context.Context, payload string) error {
	var req dto.ReputationUpdatePayload
	if err := json.Unmarshal([]byte(payload), &req); err != nil {
		return errors.Wrap(err, "malformed reputation-update payload")
	}

	updated, err := s.accountRepository.UpdateRates(ctx, req.AccountID, req.BounceRate, req.SpamComplaintRate)
	if err != nil {
		return err
	}
	if !updated {
		s.logger.Warnf("skipping reputation update for %s: account no longer exists", req.AccountID)
		return nil
	}

	_, err = s.healthMonitor.CheckOne(ctx, req.AccountID)
	if errors.Is(err, sendguard_errors.ErrAccountNotCheckable) {
		return nil
	}
	return err
}

// ResetDailyCounts zeroes the sent counter of every sending account for the
// new day. Paused and disconnected accounts are not sending, so their
// counters stay put until they re-enter the fleet. Re-running within the
// same day matches rows already stamped with today's reset time and leaves
// them untouched.
func (s *dispatcherService) ResetDailyCounts(ctx context.Context) (int64, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "DispatcherService.ResetDailyCounts")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	resetAt := utils.StartOfDayInUTC(utils.Now())
	affected, err := s.accountRepository.ResetDailyCounts(ctx, enum.CheckableStatuses(), resetAt)
	if err != nil {
		tracing.TraceErr(span, err)
		return 0, err
	}

	span.LogKV("accountsReset", affected)
	s.logger.Infof("daily send counters reset for %d accounts", affected)
	return affected, nil
}
