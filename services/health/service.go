package health

import (
	"context"
	"fmt"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"

	"github.com/sendwell/sendguard/dto"
	"github.com/sendwell/sendguard/interfaces"
	"github.com/sendwell/sendguard/internal/enum"
	sendguard_errors "github.com/sendwell/sendguard/internal/errors"
	"github.com/sendwell/sendguard/internal/logger"
	"github.com/sendwell/sendguard/internal/models"
	"github.com/sendwell/sendguard/internal/tracing"
	"github.com/sendwell/sendguard/internal/utils"
	"github.com/sendwell/sendguard/services/reputation"
)

type healthService struct {
	accountRepository interfaces.AccountRepository
	vault             interfaces.CredentialVault
	prober            interfaces.ConnectivityProber
	queue             interfaces.JobQueue
	notifier          interfaces.Notifier
	failureCounter    interfaces.FailureCounter
	logger            logger.Logger
}

func NewHealthService(
	accountRepository interfaces.AccountRepository,
	vault interfaces.CredentialVault,
	prober interfaces.ConnectivityProber,
	queue interfaces.JobQueue,
	notifier interfaces.Notifier,
	failureCounter interfaces.FailureCounter,
	log logger.Logger,
) interfaces.HealthMonitor {
	return &healthService{
		accountRepository: accountRepository,
		vault:             vault,
		prober:            prober,
		queue:             queue,
		notifier:          notifier,
		failureCounter:    failureCounter,
		logger:            log,
	}
}

func (s *healthService) CheckOne(ctx context.Context, accountID string) (*dto.HealthCheckOutcome, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "HealthService.CheckOne")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagAccount(span, accountID)

	account, err := s.accountRepository.GetByID(ctx, accountID)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}
	if account == nil {
		tracing.TraceErr(span, sendguard_errors.ErrAccountNotFound)
		return nil, errors.Wrapf(sendguard_errors.ErrAccountNotFound, "account %s", accountID)
	}

	checkable := false
	for _, status := range enum.CheckableStatuses() {
		if account.Status == status {
			checkable = true
			break
		}
	}
	if !checkable {
		tracing.TraceErr(span, sendguard_errors.ErrAccountNotCheckable)
		return nil, errors.Wrapf(sendguard_errors.ErrAccountNotCheckable, "account %s has status %s", accountID, account.Status)
	}

	return s.checkAccount(ctx, account)
}

func (s *healthService) CheckFleet(ctx context.Context) (*dto.FleetCheckSummary, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "HealthService.CheckFleet")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	accounts, err := s.accountRepository.GetByStatuses(ctx, enum.CheckableStatuses())
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	summary := &dto.FleetCheckSummary{}
	for _, account := range accounts {
		summary.Checked++
		outcome, err := s.checkAccountSafely(ctx, account)
		if err != nil {
			// one broken account must not stop the sweep
			s.logger.Errorf("health check for account %s failed: %v", account.ID, err)
			summary.Unhealthy++
			continue
		}
		if outcome.Healthy {
			summary.Healthy++
		} else {
			summary.Unhealthy++
		}
	}

	span.LogKV("checked", summary.Checked, "healthy", summary.Healthy, "unhealthy", summary.Unhealthy)
	s.logger.Infof("fleet health check done: %d checked, %d healthy, %d unhealthy", summary.Checked, summary.Healthy, summary.Unhealthy)
	return summary, nil
}

func (s *healthService) checkAccountSafely(ctx context.Context, account *models.EmailAccount) (outcome *dto.HealthCheckOutcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("health check panicked: %v", r)
		}
	}()
	return s.checkAccount(ctx, account)
}

func (s *healthService) checkAccount(ctx context.Context, account *models.EmailAccount) (*dto.HealthCheckOutcome, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "HealthService.checkAccount")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagAccount(span, account.ID)
	tracing.TagTenant(span, account.Tenant)

	score := reputation.Score(account.BounceRate, account.SpamComplaintRate)
	results := reputation.Evaluate(account.BounceRate, account.SpamComplaintRate, score)

	var issues []string
	for _, result := range results {
		issues = append(issues, result.Message)
	}

	if account.Provider.RequiresConnectivityProbe() {
		if issue := s.probeConnectivity(ctx, account); issue != "" {
			issues = append(issues, issue)
		}
	}

	outcome := &dto.HealthCheckOutcome{
		AccountID: account.ID,
		Healthy:   len(issues) == 0,
		Issues:    issues,
	}

	if reputation.HasCriticalBreach(account.BounceRate, account.SpamComplaintRate) {
		reason := results[0].Message
		if action := s.autoPause(ctx, account, reason); action != nil {
			outcome.TriggeredActions = append(outcome.TriggeredActions, *action)
		}
	}

	patch := interfaces.AccountHealthPatch{
		ReputationScore:   score,
		BounceRate:        account.BounceRate,
		SpamComplaintRate: account.SpamComplaintRate,
		LastHealthCheckAt: utils.Now(),
		LastHealthIssues:  issues,
	}
	if err := s.accountRepository.UpdateHealth(ctx, account.ID, patch); err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	return outcome, nil
}

// probeConnectivity runs the live SMTP handshake and maintains the shared
// consecutive-failure streak. Connectivity failures are reported as issues
// only; they never escalate to a pause.
func (s *healthService) probeConnectivity(ctx context.Context, account *models.EmailAccount) string {
	span, ctx := opentracing.StartSpanFromContext(ctx, "HealthService.probeConnectivity")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagAccount(span, account.ID)

	if !account.HasSmtpCredentials() {
		return "smtp connection details are incomplete"
	}

	// a credential problem is not a connectivity problem; the streak only
	// tracks failed probes
	password, err := s.vault.Decrypt(account.SmtpPasswordEncrypted)
	if err != nil {
		tracing.TraceErr(span, err)
		return "smtp credential decryption failed"
	}

	result := s.prober.Probe(ctx, dto.ProbeRequest{
		Host:     account.SmtpHost,
		Port:     account.SmtpPort,
		Username: account.SmtpUsername,
		Password: password,
	})
	if !result.Success {
		s.recordProbeFailure(ctx, account.ID)
		return fmt.Sprintf("smtp connectivity check failed: %s", result.Message)
	}

	if err := s.failureCounter.Reset(ctx, account.ID); err != nil {
		tracing.TraceErr(span, err)
		s.logger.Warnf("failed to reset probe failure streak for %s: %v", account.ID, err)
	}
	return ""
}

func (s *healthService) recordProbeFailure(ctx context.Context, accountID string) {
	streak, err := s.failureCounter.Increment(ctx, accountID)
	if err != nil {
		s.logger.Warnf("failed to record probe failure for %s: %v", accountID, err)
		return
	}
	if streak >= 3 {
		s.logger.Warnf("account %s has %d consecutive connectivity failures", accountID, streak)
	}
}

// autoPause applies the monotone ACTIVE/WARMING -> PAUSED transition. The
// guarded update makes it idempotent under concurrent checks: only the
// winner records the action and sends the notification.
func (s *healthService) autoPause(ctx context.Context, account *models.EmailAccount, reason string) *dto.TriggeredAction {
	span, ctx := opentracing.StartSpanFromContext(ctx, "HealthService.autoPause")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagAccount(span, account.ID)
	span.LogKV("reason", reason)

	paused, err := s.accountRepository.UpdateStatusGuarded(ctx, account.ID, enum.CheckableStatuses(), enum.AccountStatusPaused)
	if err != nil {
		tracing.TraceErr(span, err)
		s.logger.Errorf("failed to pause account %s: %v", account.ID, err)
		return nil
	}
	if !paused {
		return nil
	}

	s.logger.Warnf("account %s auto-paused: %s", account.ID, reason)

	err = s.queue.Enqueue(ctx, dto.JobAutoPause, dto.AutoPausePayload{
		AccountID: account.ID,
		Reason:    reason,
	}, interfaces.EnqueueOptions{DedupeKey: fmt.Sprintf("auto-pause:%s:%s", account.ID, utils.ToDate(utils.Now()))})
	if err != nil {
		tracing.TraceErr(span, err)
		s.logger.Errorf("failed to enqueue auto-pause followup for %s: %v", account.ID, err)
	}

	if err := s.notifier.NotifyAccountPaused(ctx, account.ID, reason); err != nil {
		tracing.TraceErr(span, err)
		s.logger.Errorf("failed to notify pause of %s: %v", account.ID, err)
	}

	return &dto.TriggeredAction{Type: dto.ActionAutoPause, Reason: reason}
}
