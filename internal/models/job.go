package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sendwell/sendguard/internal/enum"
)

// JobExecution is one durable unit of work in the job queue. Recurring
// cadences enqueue these with a window-scoped dedupe key so re-delivery
// cannot register duplicate work.
type JobExecution struct {
	ID          string         `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Name        string         `gorm:"column:name;type:varchar(100);index;not null" json:"name"`
	Payload     string         `gorm:"column:payload;type:text" json:"payload"`
	DedupeKey   string         `gorm:"column:dedupe_key;type:varchar(255);uniqueIndex" json:"dedupeKey"`
	Status      enum.JobStatus `gorm:"column:status;type:varchar(20);index;not null" json:"status"`
	Attempts    int            `gorm:"column:attempts;not null;default:0" json:"attempts"`
	MaxAttempts int            `gorm:"column:max_attempts;not null;default:3" json:"maxAttempts"`
	NextRunAt   time.Time      `gorm:"column:next_run_at;type:timestamp;index;not null" json:"nextRunAt"`
	LastError   string         `gorm:"column:last_error;type:text" json:"lastError"`
	CreatedAt   time.Time      `gorm:"column:created_at;type:timestamp;default:current_timestamp" json:"createdAt"`
	UpdatedAt   time.Time      `gorm:"column:updated_at;type:timestamp;default:current_timestamp" json:"updatedAt"`
}

func (JobExecution) TableName() string {
	return "job_executions"
}

func (j *JobExecution) BeforeCreate(tx *gorm.DB) error {
	if j.ID == "" {
		j.ID = uuid.New().String()
	}
	return nil
}

// JobFailure is the operator-visible failure log, written once a job
// exhausts its retry budget.
type JobFailure struct {
	ID       string    `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	JobID    string    `gorm:"column:job_id;type:uuid;index;not null" json:"jobId"`
	Name     string    `gorm:"column:name;type:varchar(100);index;not null" json:"name"`
	Attempts int       `gorm:"column:attempts;not null" json:"attempts"`
	Error    string    `gorm:"column:error;type:text" json:"error"`
	FailedAt time.Time `gorm:"column:failed_at;type:timestamp;not null" json:"failedAt"`
}

func (JobFailure) TableName() string {
	return "job_failures"
}

func (f *JobFailure) BeforeCreate(tx *gorm.DB) error {
	if f.ID == "" {
		f.ID = uuid.New().String()
	}
	return nil
}
