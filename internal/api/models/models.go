package models

import (
	"time"

	"github.com/mealdesk/mealdesk/internal/cache"
)

// JobStatus is the public view of a scheduled job.
type JobStatus struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Status     string    `json:"status"`
	Schedule   string    `json:"schedule"`
	LastRun    time.Time `json:"lastRun"`
	LastRunAgo string    `json:"lastRunAgo,omitempty"`
	NextRun    time.Time `json:"nextRun"`
	RunCount   int       `json:"runCount"`
	ErrorCount int       `json:"errorCount"`
	LastError  string    `json:"lastError,omitempty"`
}

// Database health values reported by the status endpoint.
const (
	DatabaseOK          = "ok"
	DatabaseUnavailable = "unavailable"
)

// StatusResponse is returned by the status endpoint.
type StatusResponse struct {
	Jobs     []JobStatus  `json:"jobs"`
	Cache    *cache.Stats `json:"cache,omitempty"`
	Database string       `json:"database,omitempty"`
}
