package dto

// TriggeredAction records a corrective action enqueued during a health check
type TriggeredAction struct {
	Type   string `json:"type"`
	Reason string `json:"reason"`
}

// HealthCheckOutcome is the per-account result of one health check.
// It is returned to callers and logged, never persisted as its own record.
type HealthCheckOutcome struct {
	AccountID        string            `json:"accountId"`
	Healthy          bool              `json:"healthy"`
	Issues           []string          `json:"issues"`
	TriggeredActions []TriggeredAction `json:"triggeredActions"`
}

// FleetCheckSummary aggregates one pass over the checkable fleet
type FleetCheckSummary struct {
	Checked   int `json:"checked"`
	Healthy   int `json:"healthy"`
	Unhealthy int `json:"unhealthy"`
}

// WarmupProgressSummary aggregates one warmup progression pass
type WarmupProgressSummary struct {
	Advanced int `json:"advanced"`
	Promoted int `json:"promoted"`
}
