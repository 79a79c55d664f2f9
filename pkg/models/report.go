package models

// Execution statuses for a report run. Exactly one record exists per run.
const (
	StatusSuccess = "SUCCESS"
	StatusFailed  = "FAILED"
)

// ExecutionRecord captures the outcome of one report run. It is written
// exclusively by the execution pipeline.
type ExecutionRecord struct {
	ID            string `json:"id"`
	JobID         string `json:"job_id"`
	JobName       string `json:"job_name"` // snapshot at run time
	FileName      string `json:"file_name"`
	FilePath      string `json:"file_path"`
	GeneratedAt   int64  `json:"generated_at"` // unix millis
	Status        string `json:"status"`
	RowCount      int    `json:"row_count"`
	FileSizeBytes int64  `json:"file_size_bytes"`
	ErrorMessage  string `json:"error_message,omitempty"` // classified category, never raw vendor text
	Note          string `json:"note,omitempty"`          // e.g. generated but notification failed
}
