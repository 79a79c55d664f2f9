package models

import (
	"fmt"
	"strings"
	"time"
)

// TargetDatabase selects which configured connection a job runs against.
type TargetDatabase string

const (
	TargetPrimary   TargetDatabase = "PRIMARY"
	TargetSecondary TargetDatabase = "SECONDARY"
)

// ParseTarget maps a stored selector onto the closed set of targets.
// Unknown values fall back to PRIMARY.
func ParseTarget(s string) TargetDatabase {
	if strings.EqualFold(s, string(TargetSecondary)) {
		return TargetSecondary
	}
	return TargetPrimary
}

// DateLayout is the calendar-date format for job date-range parameters.
const DateLayout = "2006-01-02"

// JobDefinition is an operator-defined report job: a SQL query, a cron
// trigger, a target database, and optional parameters and email settings.
type JobDefinition struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	CronExpression  string   `json:"cron_expression"`
	SQLFileName     string   `json:"sql_file_name"`
	SQLContent      string   `json:"sql_content,omitempty"` // payload only, persisted to the SQL source store
	EmailEnabled    bool     `json:"email_enabled"`
	EmailRecipients []string `json:"email_recipients,omitempty"`
	Enabled         bool     `json:"enabled"`
	TargetDatabase  string   `json:"target_database"`
	FromDate        string   `json:"from_date,omitempty"` // yyyy-MM-dd, bound as :FromDate
	ToDate          string   `json:"to_date,omitempty"`   // yyyy-MM-dd, bound as :ToDate
}

// Schedulable reports whether the job should have a live cron entry.
func (j *JobDefinition) Schedulable() bool {
	return j.Enabled && strings.TrimSpace(j.CronExpression) != ""
}

// HasDateRange reports whether both date parameters are present.
func (j *JobDefinition) HasDateRange() bool {
	return strings.TrimSpace(j.FromDate) != "" && strings.TrimSpace(j.ToDate) != ""
}

// DateRange parses the from/to parameters. Callers must check HasDateRange
// first; a parse failure here is a definition error.
func (j *JobDefinition) DateRange() (time.Time, time.Time, error) {
	from, err := time.Parse(DateLayout, strings.TrimSpace(j.FromDate))
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid from_date %q: %w", j.FromDate, err)
	}
	to, err := time.Parse(DateLayout, strings.TrimSpace(j.ToDate))
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid to_date %q: %w", j.ToDate, err)
	}
	return from, to, nil
}

// Validate checks the invariants a definition must satisfy before it is
// saved. Cron syntax is validated by the scheduler, not here.
func (j *JobDefinition) Validate() error {
	if strings.TrimSpace(j.Name) == "" {
		return fmt.Errorf("job name is required")
	}
	if j.EmailEnabled && len(j.EmailRecipients) == 0 {
		return fmt.Errorf("email is enabled but no recipients are configured")
	}
	fromBlank := strings.TrimSpace(j.FromDate) == ""
	toBlank := strings.TrimSpace(j.ToDate) == ""
	if fromBlank != toBlank {
		return fmt.Errorf("from_date and to_date must be set together")
	}
	if !fromBlank {
		if _, _, err := j.DateRange(); err != nil {
			return err
		}
	}
	return nil
}
