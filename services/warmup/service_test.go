package warmup

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sendwell/sendguard/interfaces"
	"github.com/sendwell/sendguard/internal/enum"
	"github.com/sendwell/sendguard/internal/logger"
	"github.com/sendwell/sendguard/internal/models"
)

type fakeAccountRepository struct {
	mu       sync.Mutex
	accounts map[string]*models.EmailAccount
}

func newFakeAccountRepository(accounts ...*models.EmailAccount) *fakeAccountRepository {
	repo := &fakeAccountRepository{accounts: map[string]*models.EmailAccount{}}
	for _, a := range accounts {
		repo.accounts[a.ID] = a
	}
	return repo
}

func (f *fakeAccountRepository) GetByID(ctx context.Context, id string) (*models.EmailAccount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if account, ok := f.accounts[id]; ok {
		copied := *account
		return &copied, nil
	}
	return nil, nil
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
	return nil
}

func (f *fakeAccountRepository) UpdateRates(ctx context.Context, id string, bounceRate, spamComplaintRate float64) (bool, error) {
	return false, nil
}

func (f *fakeAccountRepository) UpdateStatusGuarded(ctx context.Context, id string, fromStatuses []enum.AccountStatus, to enum.AccountStatus) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	account := f.accounts[id]
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

func (f *fakeAccountRepository) get(id string) models.EmailAccount {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.accounts[id]
}

func newTestService(repo *fakeAccountRepository) interfaces.WarmupScheduler {
	log := logger.NewAppLogger(&logger.Config{DevMode: true})
	log.InitLogger()
	return NewWarmupService(repo, log)
}

func warmingAccount(id string, day int) *models.EmailAccount {
	return &models.EmailAccount{
		ID:        id,
		Status:    enum.AccountStatusWarming,
		WarmupDay: day,
	}
}

func TestProgressAdvancesOneStep(t *testing.T) {
	repo := newFakeAccountRepository(warmingAccount("acct_1", 0))
	service := newTestService(repo)

	summary, err := service.Progress(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Advanced)
	assert.Equal(t, 0, summary.Promoted)

	stored := repo.get("acct_1")
	assert.Equal(t, 1, stored.WarmupDay)
	assert.Equal(t, 10, stored.DailySendLimit)
	assert.Equal(t, enum.AccountStatusWarming, stored.Status)
}

func TestProgressRampValues(t *testing.T) {
	repo := newFakeAccountRepository(
		warmingAccount("acct_day3", 2),
		warmingAccount("acct_day7", 6),
	)
	service := newTestService(repo)

	_, err := service.Progress(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 30, repo.get("acct_day3").DailySendLimit)
	assert.Equal(t, 150, repo.get("acct_day7").DailySendLimit)
}

func TestProgressPromotesAtEndOfRamp(t *testing.T) {
	repo := newFakeAccountRepository(warmingAccount("acct_1", 13))
	service := newTestService(repo)

	summary, err := service.Progress(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Advanced)
	assert.Equal(t, 1, summary.Promoted)

	stored := repo.get("acct_1")
	assert.Equal(t, 14, stored.WarmupDay)
	assert.Equal(t, 500, stored.DailySendLimit)
	assert.Equal(t, enum.AccountStatusActive, stored.Status)
}

func TestProgressHoldsAccountInCriticalBreach(t *testing.T) {
	account := warmingAccount("acct_1", 5)
	account.BounceRate = 0.15
	repo := newFakeAccountRepository(account)
	service := newTestService(repo)

	summary, err := service.Progress(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, summary.Advanced)
	stored := repo.get("acct_1")
	assert.Equal(t, 5, stored.WarmupDay)
}

func TestProgressIgnoresNonWarmingAccounts(t *testing.T) {
	active := warmingAccount("acct_active", 3)
	active.Status = enum.AccountStatusActive
	paused := warmingAccount("acct_paused", 3)
	paused.Status = enum.AccountStatusPaused
	repo := newFakeAccountRepository(active, paused)
	service := newTestService(repo)

	summary, err := service.Progress(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, summary.Advanced)
	assert.Equal(t, 3, repo.get("acct_active").WarmupDay)
}

func TestLimitForDayCapsPastRampEnd(t *testing.T) {
	assert.Equal(t, 10, LimitForDay(0))
	assert.Equal(t, 10, LimitForDay(1))
	assert.Equal(t, 500, LimitForDay(14))
	assert.Equal(t, 500, LimitForDay(40))
}
