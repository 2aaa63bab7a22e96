package dto

import "time"

// ReportSummary is the daily fleet-wide aggregate
type ReportSummary struct {
	TotalAccounts   int            `json:"totalAccounts"`
	ByTier          map[string]int `json:"byTier"`
	ByStatus        map[string]int `json:"byStatus"`
	AvgReputation   float64        `json:"avgReputation"`
	HighBounceCount int            `json:"highBounceCount"`
	GeneratedAt     time.Time      `json:"generatedAt"`
}
