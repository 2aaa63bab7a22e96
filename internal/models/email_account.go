package models

import (
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/sendwell/sendguard/internal/enum"
	"github.com/sendwell/sendguard/internal/utils"
)

// EmailAccount is an outbound email-sending account (SMTP or OAuth credential)
// tracked by the health and warmup orchestrator.
type EmailAccount struct {
	ID           string            `gorm:"column:id;type:varchar(50);primaryKey" json:"id"`
	Tenant       string            `gorm:"column:tenant;type:varchar(255);index;not null" json:"tenant"`
	EmailAddress string            `gorm:"column:email_address;type:varchar(255);index" json:"emailAddress"`
	Provider     enum.ProviderKind `gorm:"column:provider;type:varchar(50);not null" json:"provider"`
	Tier         enum.AccountTier  `gorm:"column:tier;type:varchar(20);not null;default:'FREE'" json:"tier"`

	// SMTP connection facts, present for SMTP and MANAGED_POOL providers
	SmtpHost              string `gorm:"column:smtp_host;type:varchar(255)" json:"smtpHost"`
	SmtpPort              int    `gorm:"column:smtp_port" json:"smtpPort"`
	SmtpUsername          string `gorm:"column:smtp_username;type:varchar(255)" json:"smtpUsername"`
	SmtpPasswordEncrypted string `gorm:"column:smtp_password_encrypted;type:text" json:"-"`

	// Lifecycle
	Status enum.AccountStatus `gorm:"column:status;type:varchar(50);index;not null" json:"status"`

	// Health metrics; reputation score is only ever written by the reputation engine
	ReputationScore   int            `gorm:"column:reputation_score;not null;default:100" json:"reputationScore"`
	BounceRate        float64        `gorm:"column:bounce_rate;not null;default:0" json:"bounceRate"`
	SpamComplaintRate float64        `gorm:"column:spam_complaint_rate;not null;default:0" json:"spamComplaintRate"`
	LastHealthCheckAt *time.Time     `gorm:"column:last_health_check_at;type:timestamp" json:"lastHealthCheckAt"`
	LastHealthIssues  pq.StringArray `gorm:"column:last_health_issues;type:text[]" json:"lastHealthIssues"`

	// Volume tracking
	DailySendLimit   int        `gorm:"column:daily_send_limit;not null;default:0" json:"dailySendLimit"`
	DailySentCount   int        `gorm:"column:daily_sent_count;not null;default:0" json:"dailySentCount"`
	DailySentResetAt *time.Time `gorm:"column:daily_sent_reset_at;type:timestamp" json:"dailySentResetAt"`
	WarmupDay        int        `gorm:"column:warmup_day;not null;default:0" json:"warmupDay"`

	CreatedAt time.Time      `gorm:"column:created_at;type:timestamp;default:current_timestamp" json:"createdAt"`
	UpdatedAt time.Time      `gorm:"column:updated_at;type:timestamp;default:current_timestamp" json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"column:deleted_at;index" json:"-"`
}

func (EmailAccount) TableName() string {
	return "email_accounts"
}

func (a *EmailAccount) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = utils.GenerateNanoIDWithPrefix("acct", 16)
	}
	return nil
}

// HasSmtpCredentials reports whether the account carries connection facts for a live probe
func (a *EmailAccount) HasSmtpCredentials() bool {
	return a.SmtpHost != "" && a.SmtpUsername != "" && a.SmtpPasswordEncrypted != ""
}
