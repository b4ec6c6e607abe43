package db

import (
	"time"
)

// StatusSnapshot is the number of issues in one status on one day
type StatusSnapshot struct {
	ProjectKey string `json:"project_key"`
	Date       string `json:"date"`
	Status     string `json:"status"`
	Count      int    `json:"count"`
}

// Run outcomes
const (
	RunRunning = "running"
	RunSuccess = "success"
	RunFailed  = "failed"
)

// Run records one report generation or snapshot
type Run struct {
	ID           int64      `json:"id"`
	Kind         string     `json:"kind"`
	Trigger      string     `json:"trigger"`
	StartedAt    time.Time  `json:"started_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	Status       string     `json:"status"`
	ErrorMessage string     `json:"error_message,omitempty"`
}

// ReportSummary aggregates stored reports per type
type ReportSummary struct {
	Type          string    `json:"type"`
	Count         int       `json:"count"`
	TotalBytes    int64     `json:"total_bytes"`
	LastCreatedAt time.Time `json:"last_created_at"`
}
