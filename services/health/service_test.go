package health

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sendwell/sendguard/dto"
	"github.com/sendwell/sendguard/interfaces"
	"github.com/sendwell/sendguard/internal/enum"
	sendguard_errors "github.com/sendwell/sendguard/internal/errors"
	"github.com/sendwell/sendguard/internal/logger"
	"github.com/sendwell/sendguard/internal/models"
)

type fakeAccountRepository struct {
	mu       sync.Mutex
	accounts map[string]*models.EmailAccount
	getErr   map[string]error
	patchErr map[string]error
	patches  map[string]interfaces.AccountHealthPatch
}

func newFakeAccountRepository(accounts ...*models.EmailAccount) *fakeAccountRepository {
	repo := &fakeAccountRepository{
		accounts: map[string]*models.EmailAccount{},
		getErr:   map[string]error{},
		patchErr: map[string]error{},
		patches:  map[string]interfaces.AccountHealthPatch{},
	}
	for _, a := range accounts {
		repo.accounts[a.ID] = a
	}
	return repo
}

func (f *fakeAccountRepository) GetByID(ctx context.Context, id string) (*models.EmailAccount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.getErr[id]; err != nil {
		return nil, err
	}
	account, ok := f.accounts[id]
	if !ok {
		return nil, nil
	}
	copied := *account
	return &copied, nil
}

func (f *fakeAccountRepository) GetByStatuses(ctx context.Context, statuses []enum.AccountStatus) ([]*models.EmailAccount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []*models.EmailAccount
	for _, account := range f.accounts {
		for _, status := range statuses {
			if account.Status == status {
				copied := *account
				result = append(result, &copied)
			}
		}
	}
	return result, nil
}

func (f *fakeAccountRepository) Save(ctx context.Context, account *models.EmailAccount) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.accounts[account.ID] = account
	return nil
}

func (f *fakeAccountRepository) UpdateHealth(ctx context.Context, id string, patch interfaces.AccountHealthPatch) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.patchErr[id]; err != nil {
		return err
	}
	f.patches[id] = patch
	return nil
}

func (f *fakeAccountRepository) UpdateRates(ctx context.Context, id string, bounceRate, spamComplaintRate float64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	account, ok := f.accounts[id]
	if !ok {
		return false, nil
	}
	account.BounceRate = bounceRate
	account.SpamComplaintRate = spamComplaintRate
	return true, nil
}

func (f *fakeAccountRepository) UpdateStatusGuarded(ctx context.Context, id string, fromStatuses []enum.AccountStatus, to enum.AccountStatus) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	account, ok := f.accounts[id]
	if !ok {
		return false, nil
	}
	for _, status := range fromStatuses {
		if account.Status == status {
			account.Status = to
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeAccountRepository) UpdateWarmupStep(ctx context.Context, id string, warmupDay int, dailySendLimit int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	account := f.accounts[id]
	account.WarmupDay = warmupDay
	account.DailySendLimit = dailySendLimit
	return nil
}

func (f *fakeAccountRepository) ResetDailyCounts(ctx context.Context, statuses []enum.AccountStatus, resetAt time.Time) (int64, error) {
	return 0, nil
}

func (f *fakeAccountRepository) status(id string) enum.AccountStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.accounts[id].Status
}

type fakeVault struct {
	failFor map[string]bool
}

func (f *fakeVault) Encrypt(plaintext string) (string, error) { return plaintext, nil }

func (f *fakeVault) Decrypt(token string) (string, error) {
	if f.failFor != nil && f.failFor[token] {
		return "", sendguard_errors.ErrDecryptionFailed
	}
	return "decrypted-" + token, nil
}

type fakeProber struct {
	mu     sync.Mutex
	probes int
	result dto.ProbeResult
}

func (f *fakeProber) Probe(ctx context.Context, req dto.ProbeRequest) dto.ProbeResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.probes++
	return f.result
}

type fakeQueue struct {
	mu       sync.Mutex
	enqueued []string
}

func (f *fakeQueue) Enqueue(ctx context.Context, name string, payload any, opts interfaces.EnqueueOptions) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.enqueued = append(f.enqueued, name)
	return nil
}

type fakeNotifier struct {
	mu     sync.Mutex
	paused []string
}

func (f *fakeNotifier) NotifyAccountPaused(ctx context.Context, accountID, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.paused = append(f.paused, accountID)
	return nil
}

func (f *fakeNotifier) NotifyJobFailed(ctx context.Context, jobName, jobID, errMsg string) error {
	return nil
}

func (f *fakeNotifier) PublishDailyReport(ctx context.Context, report *dto.ReportSummary) error {
	return nil
}

type fakeFailureCounter struct {
	mu     sync.Mutex
	counts map[string]int64
}

func newFakeFailureCounter() *fakeFailureCounter {
	return &fakeFailureCounter{counts: map[string]int64{}}
}

func (f *fakeFailureCounter) Increment(ctx context.Context, accountID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counts[accountID]++
	return f.counts[accountID], nil
}

func (f *fakeFailureCounter) Reset(ctx context.Context, accountID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.counts, accountID)
	return nil
}

func (f *fakeFailureCounter) Get(ctx context.Context, accountID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.counts[accountID], nil
}

type fixture struct {
	repo     *fakeAccountRepository
	vault    *fakeVault
	prober   *fakeProber
	queue    *fakeQueue
	notifier *fakeNotifier
	counter  *fakeFailureCounter
	service  interfaces.HealthMonitor
}

func newFixture(accounts ...*models.EmailAccount) *fixture {
	log := logger.NewAppLogger(&logger.Config{DevMode: true})
	log.InitLogger()

	f := &fixture{
		repo:     newFakeAccountRepository(accounts...),
		vault:    &fakeVault{},
		prober:   &fakeProber{result: dto.ProbeResult{Success: true}},
		queue:    &fakeQueue{},
		notifier: &fakeNotifier{},
		counter:  newFakeFailureCounter(),
	}
	f.service = NewHealthService(f.repo, f.vault, f.prober, f.queue, f.notifier, f.counter, log)
	return f
}

func oauthAccount(id string, status enum.AccountStatus, bounceRate, spamRate float64) *models.EmailAccount {
	return &models.EmailAccount{
		ID:                id,
		Tenant:            "acme",
		Provider:          enum.ProviderOAuth,
		Status:            status,
		BounceRate:        bounceRate,
		SpamComplaintRate: spamRate,
	}
}

func smtpAccount(id string, status enum.AccountStatus) *models.EmailAccount {
	return &models.EmailAccount{
		ID:                    id,
		Tenant:                "acme",
		Provider:              enum.ProviderSMTP,
		Status:                status,
		SmtpHost:              "smtp.example.com",
		SmtpPort:              587,
		SmtpUsername:          "sender@example.com",
		SmtpPasswordEncrypted: "sealed-password",
	}
}

func TestCheckOneAccountNotFound(t *testing.T) {
	f := newFixture()

	_, err := f.service.CheckOne(context.Background(), "acct_missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, sendguard_errors.ErrAccountNotFound))
}

func TestCheckOnePausedAccountNotCheckable(t *testing.T) {
	f := newFixture(oauthAccount("acct_1", enum.AccountStatusPaused, 0, 0))

	_, err := f.service.CheckOne(context.Background(), "acct_1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, sendguard_errors.ErrAccountNotCheckable))
}

func TestCheckOneHealthyAccount(t *testing.T) {
	f := newFixture(oauthAccount("acct_1", enum.AccountStatusActive, 0.01, 0.0005))

	outcome, err := f.service.CheckOne(context.Background(), "acct_1")
	require.NoError(t, err)

	assert.True(t, outcome.Healthy)
	assert.Empty(t, outcome.Issues)
	assert.Empty(t, outcome.TriggeredActions)
	assert.Equal(t, enum.AccountStatusActive, f.repo.status("acct_1"))

	patch, ok := f.repo.patches["acct_1"]
	require.True(t, ok, "health fields should be written back")
	assert.Equal(t, 100, patch.ReputationScore)
	assert.False(t, patch.LastHealthCheckAt.IsZero())
}

func TestCheckOneCriticalBounceAutoPauses(t *testing.T) {
	f := newFixture(oauthAccount("acct_1", enum.AccountStatusActive, 0.12, 0))

	outcome, err := f.service.CheckOne(context.Background(), "acct_1")
	require.NoError(t, err)

	assert.False(t, outcome.Healthy)
	require.Len(t, outcome.TriggeredActions, 1)
	assert.Equal(t, dto.ActionAutoPause, outcome.TriggeredActions[0].Type)

	assert.Equal(t, enum.AccountStatusPaused, f.repo.status("acct_1"))
	assert.Equal(t, []string{"acct_1"}, f.notifier.paused)
	assert.Equal(t, []string{dto.JobAutoPause}, f.queue.enqueued)
}

func TestCheckOneCriticalSpamAutoPausesWarmingAccount(t *testing.T) {
	f := newFixture(oauthAccount("acct_1", enum.AccountStatusWarming, 0, 0.02))

	outcome, err := f.service.CheckOne(context.Background(), "acct_1")
	require.NoError(t, err)

	assert.False(t, outcome.Healthy)
	assert.Equal(t, enum.AccountStatusPaused, f.repo.status("acct_1"))
}

func TestCheckOneSoftDegradationDoesNotPause(t *testing.T) {
	f := newFixture(oauthAccount("acct_1", enum.AccountStatusActive, 0.06, 0))

	outcome, err := f.service.CheckOne(context.Background(), "acct_1")
	require.NoError(t, err)

	assert.False(t, outcome.Healthy)
	assert.NotEmpty(t, outcome.Issues)
	assert.Empty(t, outcome.TriggeredActions)
	assert.Equal(t, enum.AccountStatusActive, f.repo.status("acct_1"))
	assert.Empty(t, f.notifier.paused)
}

func TestCheckOneProbeFailureIsIssueOnly(t *testing.T) {
	f := newFixture(smtpAccount("acct_1", enum.AccountStatusActive))
	f.prober.result = dto.ProbeResult{Success: false, Message: "connection refused", ErrorCode: "CONNECT_FAILED"}

	outcome, err := f.service.CheckOne(context.Background(), "acct_1")
	require.NoError(t, err)

	assert.False(t, outcome.Healthy)
	require.Len(t, outcome.Issues, 1)
	assert.Contains(t, outcome.Issues[0], "connectivity")
	// connectivity trouble never pauses on its own
	assert.Empty(t, outcome.TriggeredActions)
	assert.Equal(t, enum.AccountStatusActive, f.repo.status("acct_1"))

	streak, _ := f.counter.Get(context.Background(), "acct_1")
	assert.Equal(t, int64(1), streak)
}

func TestCheckOneProbeSuccessResetsStreak(t *testing.T) {
	f := newFixture(smtpAccount("acct_1", enum.AccountStatusActive))
	f.counter.counts["acct_1"] = 2

	outcome, err := f.service.CheckOne(context.Background(), "acct_1")
	require.NoError(t, err)

	assert.True(t, outcome.Healthy)
	streak, _ := f.counter.Get(context.Background(), "acct_1")
	assert.Equal(t, int64(0), streak)
}

func TestCheckOneDecryptionFailureIsIssue(t *testing.T) {
	f := newFixture(smtpAccount("acct_1", enum.AccountStatusActive))
	f.vault.failFor = map[string]bool{"sealed-password": true}

	outcome, err := f.service.CheckOne(context.Background(), "acct_1")
	require.NoError(t, err)

	assert.False(t, outcome.Healthy)
	require.Len(t, outcome.Issues, 1)
	assert.Contains(t, outcome.Issues[0], "decryption")
	assert.Equal(t, 0, f.prober.probes, "probe should be skipped when decryption fails")

	// only failed probes count toward the connectivity streak
	streak, _ := f.counter.Get(context.Background(), "acct_1")
	assert.Equal(t, int64(0), streak)
}

func TestCheckOneStoreReadErrorPropagates(t *testing.T) {
	f := newFixture()
	f.repo.getErr["acct_1"] = errors.New("connection reset")

	_, err := f.service.CheckOne(context.Background(), "acct_1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
}

func TestCheckOneOAuthSkipsProbe(t *testing.T) {
	f := newFixture(oauthAccount("acct_1", enum.AccountStatusActive, 0, 0))

	_, err := f.service.CheckOne(context.Background(), "acct_1")
	require.NoError(t, err)
	assert.Equal(t, 0, f.prober.probes)
}

func TestCheckFleetCountsAndIsolation(t *testing.T) {
	f := newFixture(
		oauthAccount("acct_ok", enum.AccountStatusActive, 0, 0),
		oauthAccount("acct_soft", enum.AccountStatusActive, 0.06, 0),
		oauthAccount("acct_crit", enum.AccountStatusWarming, 0.2, 0),
		oauthAccount("acct_paused", enum.AccountStatusPaused, 0, 0),
	)

	summary, err := f.service.CheckFleet(context.Background())
	require.NoError(t, err)

	// paused accounts are not part of the sweep
	assert.Equal(t, 3, summary.Checked)
	assert.Equal(t, 1, summary.Healthy)
	assert.Equal(t, 2, summary.Unhealthy)
	assert.Equal(t, enum.AccountStatusPaused, f.repo.status("acct_crit"))
	assert.Equal(t, enum.AccountStatusPaused, f.repo.status("acct_paused"))
}

func TestCheckFleetOneFailingAccountDoesNotAbortSweep(t *testing.T) {
	f := newFixture(
		oauthAccount("acct_a", enum.AccountStatusActive, 0, 0),
		oauthAccount("acct_bad", enum.AccountStatusActive, 0, 0),
		oauthAccount("acct_c", enum.AccountStatusActive, 0, 0),
	)
	f.repo.patchErr["acct_bad"] = errors.New("store write failed")

	summary, err := f.service.CheckFleet(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, summary.Checked)
	assert.Equal(t, 2, summary.Healthy)
	assert.Equal(t, 1, summary.Unhealthy)

	// the other accounts still got their health fields written
	assert.Contains(t, f.repo.patches, "acct_a")
	assert.Contains(t, f.repo.patches, "acct_c")
	assert.NotContains(t, f.repo.patches, "acct_bad")
}

func TestCheckFleetSecondSweepDoesNotRepause(t *testing.T) {
	f := newFixture(oauthAccount("acct_crit", enum.AccountStatusActive, 0.2, 0))

	_, err := f.service.CheckFleet(context.Background())
	require.NoError(t, err)
	require.Equal(t, enum.AccountStatusPaused, f.repo.status("acct_crit"))

	summary, err := f.service.CheckFleet(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, summary.Checked)
	assert.Len(t, f.notifier.paused, 1)
}
