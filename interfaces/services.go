package interfaces

import (
	"context"

	"github.com/sendwell/sendguard/dto"
)

// CredentialVault decrypts at-rest-encrypted SMTP secrets on demand
type CredentialVault interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(token string) (string, error)
}

// ConnectivityProber performs a live SMTP handshake against an account's server
type ConnectivityProber interface {
	Probe(ctx context.Context, req dto.ProbeRequest) dto.ProbeResult
}

type HealthMonitor interface {
	CheckOne(ctx context.Context, accountID string) (*dto.HealthCheckOutcome, error)
	CheckFleet(ctx context.Context) (*dto.FleetCheckSummary, error)
}

type WarmupScheduler interface {
	Progress(ctx context.Context) (*dto.WarmupProgressSummary, error)
}

type ReportGenerator interface {
	GenerateDaily(ctx context.Context) (*dto.ReportSummary, error)
}

type Dispatcher interface {
	// Dispatch executes the named job. Unknown names return ErrUnknownJob.
	Dispatch(ctx context.Context, name string, payload string) error
	ResetDailyCounts(ctx context.Context) (int64, error)
}

// EnqueueOptions mirror the durable queue's per-job knobs
type EnqueueOptions struct {
	DedupeKey   string
	MaxAttempts int
}

// JobQueue is the durable substrate the cadences and the trigger surface push into
type JobQueue interface {
	Enqueue(ctx context.Context, name string, payload any, opts EnqueueOptions) error
}

// Notifier is the notification/report sink (RabbitMQ in production)
type Notifier interface {
	NotifyAccountPaused(ctx context.Context, accountID, reason string) error
	NotifyJobFailed(ctx context.Context, jobName, jobID, errMsg string) error
	PublishDailyReport(ctx context.Context, report *dto.ReportSummary) error
}

// FailureCounter is the injected probe-failure window counter. It replaces
// what would otherwise be hidden process-local state, so concurrent workers
// share one view of consecutive connectivity failures.
type FailureCounter interface {
	Increment(ctx context.Context, accountID string) (int64, error)
	Reset(ctx context.Context, accountID string) error
	Get(ctx context.Context, accountID string) (int64, error)
}
