// Package dto contains Data Transfer Objects for API request and response structures
package dto

// HomeStatsResponse represents the dashboard summary counters
type HomeStatsResponse struct {
	TotalCampaigns    int64 `json:"total_campaigns"`
	ActiveCampaigns   int64 `json:"active_campaigns"`
	TotalRecipients   int64 `json:"total_recipients"`
	AttemptsSucceeded int64 `json:"attempts_succeeded"`
	AttemptsFailed    int64 `json:"attempts_failed"`
}
