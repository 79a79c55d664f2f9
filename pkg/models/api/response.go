package api

import "time"

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Scheduled int       `json:"scheduled_jobs"`
}

// ScheduleStatusResponse reports whether a job has a live cron entry
type ScheduleStatusResponse struct {
	JobID     string `json:"job_id"`
	Scheduled bool   `json:"scheduled"`
}

// Response represents a general API response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Meta    interface{} `json:"meta,omitempty"`
	Message string      `json:"message,omitempty"`
}
