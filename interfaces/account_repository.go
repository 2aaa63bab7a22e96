package interfaces

import (
	"context"
	"time"

	"github.com/sendwell/sendguard/internal/enum"
	"github.com/sendwell/sendguard/internal/models"
)

// AccountHealthPatch carries the health fields written back after a check.
// Status transitions never go through this patch; they use the guarded
// UpdateStatusGuarded so a concurrent healthy result can never undo a pause.
type AccountHealthPatch struct {
	ReputationScore   int
	BounceRate        float64
	SpamComplaintRate float64
	LastHealthCheckAt time.Time
	LastHealthIssues  []string
}

type AccountRepository interface {
	GetByID(ctx context.Context, id string) (*models.EmailAccount, error)
	GetByStatuses(ctx context.Context, statuses []enum.AccountStatus) ([]*models.EmailAccount, error)
	Save(ctx context.Context, account *models.EmailAccount) error
	UpdateHealth(ctx context.Context, id string, patch AccountHealthPatch) error
	// UpdateRates writes only the delivery rate columns; status is never
	// touched. Returns false when the account does not exist.
	UpdateRates(ctx context.Context, id string, bounceRate float64, spamComplaintRate float64) (bool, error)
	// UpdateStatusGuarded performs a compare-and-set style transition: the
	// status is only written when the current status is in fromStatuses.
	// Returns true when a row was updated.
	UpdateStatusGuarded(ctx context.Context, id string, fromStatuses []enum.AccountStatus, to enum.AccountStatus) (bool, error)
	UpdateWarmupStep(ctx context.Context, id string, warmupDay int, dailySendLimit int) error
	ResetDailyCounts(ctx context.Context, statuses []enum.AccountStatus, resetAt time.Time) (int64, error)
}
