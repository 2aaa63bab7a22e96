package dto

// Job names understood by the dispatcher. The first three are also valid
// manual trigger actions.
const (
	JobHealthCheck       = "health-check"
	JobHealthCheckSingle = "health-check-single"
	JobWarmupProgress    = "warmup-progress"
	JobDailyReport       = "daily-report"
	JobResetDailyCounts  = "reset-daily-counts"
	JobAutoPause         = "auto-pause"
	JobReputationUpdate  = "reputation-update"
)

// ActionAutoPause is the action type recorded on a HealthCheckOutcome
const ActionAutoPause = "auto-pause"

type HealthCheckSinglePayload struct {
	AccountID string `json:"accountId"`
}

type AutoPausePayload struct {
	AccountID string `json:"accountId"`
	Reason    string `json:"reason"`
}

// ReputationUpdatePayload carries fresh delivery metrics pushed by an
// external tracking system
type ReputationUpdatePayload struct {
	AccountID         string  `json:"accountId"`
	BounceRate        float64 `json:"bounceRate"`
	SpamComplaintRate float64 `json:"spamComplaintRate"`
}

type TriggerRequest struct {
	Action    string `json:"action"`
	AccountID string `json:"accountId,omitempty"`
}
