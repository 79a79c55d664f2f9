package execution

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/reportops/core/pkg/excel"
	"github.com/reportops/core/pkg/logger"
	"github.com/reportops/core/pkg/mailer"
	"github.com/reportops/core/pkg/models"
	"github.com/reportops/core/pkg/runner"
	"github.com/reportops/core/pkg/utils"
)

const emailFailureNote = "Report generated, but email delivery failed."

// JobStore is the job-definition lookup the pipeline needs.
type JobStore interface {
	FindByID(id string) (*models.JobDefinition, error)
}

// ReportStore persists execution records. FindByJobID returns records newest
// first.
type ReportStore interface {
	SaveReport(record models.ExecutionRecord) error
	FindByJobID(jobID string) ([]models.ExecutionRecord, error)
}

// SQLSource resolves a job's SQL reference into query text.
type SQLSource interface {
	Read(fileName string) (string, error)
}

// QueryRunner executes SQL against a named target connection.
type QueryRunner interface {
	Execute(ctx context.Context, target models.TargetDatabase, query string, params map[string]any) (*runner.ResultSet, error)
}

// Notifier delivers report emails.
type Notifier interface {
	Send(ctx context.Context, recipients []string, subject, body, attachmentPath string) error
	Configured() bool
}

// Pipeline runs one report job from definition to persisted record. Every
// failure path inside Execute ends in a FAILED record, never in an error
// escaping to the scheduler worker.
type Pipeline struct {
	jobs      JobStore
	reports   ReportStore
	sqlSource SQLSource
	runner    QueryRunner
	notifier  Notifier
	outputDir string
	logger    *logger.Logger

	// generate writes the spreadsheet; replaceable in tests.
	generate func(rs *runner.ResultSet, path string) (int64, error)
}

func NewPipeline(jobs JobStore, reports ReportStore, sqlSource SQLSource, qr QueryRunner, notifier Notifier, outputDir string, log *logger.Logger) *Pipeline {
	return &Pipeline{
		jobs:      jobs,
		reports:   reports,
		sqlSource: sqlSource,
		runner:    qr,
		notifier:  notifier,
		outputDir: outputDir,
		logger:    log,
		generate:  excel.Generate,
	}
}

// ExecuteJob satisfies the scheduler's executor contract.
func (p *Pipeline) ExecuteJob(ctx context.Context, jobID string) error {
	p.Execute(ctx, jobID)
	return nil
}

// Execute runs the job once. When the job exists, exactly one ExecutionRecord
// is persisted regardless of outcome; when it does not, none is.
func (p *Pipeline) Execute(ctx context.Context, jobID string) {
	job, err := p.jobs.FindByID(jobID)
	if err != nil {
		// Deleted between scheduling and firing. Nothing to report against.
		p.logger.Error().
			Str("action", "job_missing").
			Str("job_id", jobID).
			Msg("Job not found, skipping run")
		return
	}

	log := p.logger.WithJob(job.ID, job.Name)
	reportID := uuid.NewString()
	start := time.Now()
	log.LogRunStart(job.ID, job.Name)

	// A panic anywhere below still produces a FAILED record; nothing from a
	// run may escape to the caller.
	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Str("action", "run_panic").
				Interface("panic", r).
				Msg("Job run panicked")
			p.saveFailed(reportID, job, utils.SanitizeErrorMessage(fmt.Sprint(r)))
		}
	}()

	if job.SQLFileName == "" {
		p.saveFailed(reportID, job, "SQL file name is missing in job configuration")
		return
	}

	sqlText, err := p.sqlSource.Read(job.SQLFileName)
	if err != nil {
		log.WithError(err).Error().
			Str("action", "sql_read_failed").
			Str("sql_file", job.SQLFileName).
			Msg("Could not read SQL source")
		p.saveFailed(reportID, job, fmt.Sprintf("SQL file not found: %s", job.SQLFileName))
		return
	}

	target := models.ParseTarget(job.TargetDatabase)

	params, err := dateParams(job)
	if err != nil {
		log.WithError(err).Error().
			Str("action", "bad_date_params").
			Msg("Invalid date range parameters")
		p.saveFailed(reportID, job, "Invalid date format. Expected: "+models.DateLayout)
		return
	}

	results, err := p.runner.Execute(ctx, target, sqlText, params)
	if err != nil {
		log.WithError(err).Error().
			Str("action", "query_failed").
			Str("target", string(target)).
			Msg("Query execution failed")
		p.saveFailed(reportID, job, utils.SanitizeError(err))
		return
	}

	record := models.ExecutionRecord{
		ID:          reportID,
		JobID:       job.ID,
		JobName:     job.Name,
		GeneratedAt: start.UnixMilli(),
		Status:      models.StatusSuccess,
		RowCount:    results.RowCount(),
	}

	var artifactPath string
	if results.RowCount() > 0 {
		fileName := utils.ArtifactFileName(job.SQLFileName, job.Name, start)
		artifactPath = filepath.Join(p.outputDir, start.Format(utils.DayBucketLayout), fileName)

		size, err := p.generate(results, artifactPath)
		if err != nil {
			log.WithError(err).Error().
				Str("action", "artifact_failed").
				Str("path", artifactPath).
				Msg("Artifact generation failed")
			p.saveFailed(reportID, job, utils.SanitizeError(err))
			return
		}
		record.FileName = fileName
		record.FilePath = artifactPath
		record.FileSizeBytes = size
	} else {
		record.Note = "Query returned no rows; no artifact was generated."
	}

	if err := p.reports.SaveReport(record); err != nil {
		log.WithError(err).Error().
			Str("action", "record_save_failed").
			Msg("Could not persist execution record")
		return
	}

	if job.EmailEnabled && artifactPath != "" {
		subject := "Report Generated: " + job.Name
		body := "Please find attached the report for " + job.Name
		if err := p.notifier.Send(ctx, job.EmailRecipients, subject, body, artifactPath); err != nil {
			log.WithError(err).Error().
				Str("action", "notify_failed").
				Msg("Email delivery failed")
			// Delivery failure never flips a successful run to FAILED.
			record.Note = emailFailureNote
			if err := p.reports.SaveReport(record); err != nil {
				log.WithError(err).Error().
					Str("action", "record_save_failed").
					Msg("Could not persist delivery note")
			}
		}
	}

	log.WithRun(reportID).LogRunComplete(job.Name, time.Since(start), record.RowCount, record.FileSizeBytes)
}

// ResendLastNotification re-sends the most recent successful report for a
// job. Unlike Execute, failures here surface to the caller, carrying a Kind
// so the HTTP layer can map them to status codes.
func (p *Pipeline) ResendLastNotification(ctx context.Context, jobID string) error {
	job, err := p.jobs.FindByID(jobID)
	if err != nil {
		return newError(KindNotFound, "job not found: %s", jobID)
	}

	if !job.EmailEnabled || len(job.EmailRecipients) == 0 {
		return newError(KindPrecondition, "email is not enabled or no recipients are configured for this job")
	}
	if !p.notifier.Configured() {
		return newError(KindPrecondition, "email delivery is not configured on this server")
	}

	records, err := p.reports.FindByJobID(jobID)
	if err != nil {
		return wrapError(KindInternal, err, "could not load execution records")
	}

	var last *models.ExecutionRecord
	for i := range records {
		if records[i].Status == models.StatusSuccess && records[i].FilePath != "" {
			last = &records[i]
			break
		}
	}
	if last == nil {
		return newError(KindPrecondition, "no successful reports found for this job")
	}

	if _, err := os.Stat(last.FilePath); err != nil {
		return newError(KindPrecondition, "report file no longer exists on disk: %s", last.FileName)
	}

	generatedAt := time.UnixMilli(last.GeneratedAt).Format(time.RFC3339)
	subject := "RESENT: Report Generated: " + job.Name
	body := fmt.Sprintf("This is a manually triggered resend of the last generated report for %s.\nGenerated at: %s", job.Name, generatedAt)

	if err := p.notifier.Send(ctx, job.EmailRecipients, subject, body, last.FilePath); err != nil {
		if mailer.IsAuthError(err) {
			return wrapError(KindUnavailable, err, "mail provider rejected our credentials")
		}
		return wrapError(KindInternal, err, "email send failed")
	}

	p.logger.WithJob(job.ID, job.Name).Info().
		Str("action", "resend").
		Str("report_id", last.ID).
		Msg("Resent report email")
	return nil
}

func (p *Pipeline) saveFailed(reportID string, job *models.JobDefinition, message string) {
	record := models.ExecutionRecord{
		ID:           reportID,
		JobID:        job.ID,
		JobName:      job.Name,
		FileName:     "FAILED",
		GeneratedAt:  time.Now().UnixMilli(),
		Status:       models.StatusFailed,
		ErrorMessage: message,
	}
	if err := p.reports.SaveReport(record); err != nil {
		p.logger.WithError(err).Error().
			Str("action", "record_save_failed").
			Str("job_id", job.ID).
			Msg("Could not persist failed execution record")
		return
	}
	p.logger.Warn().
		Str("action", "run_failed_recorded").
		Str("job_id", job.ID).
		Str("report_id", reportID).
		Str("reason", message).
		Msg("Failed report saved")
}

func dateParams(job *models.JobDefinition) (map[string]any, error) {
	if !job.HasDateRange() {
		return nil, nil
	}
	from, to, err := job.DateRange()
	if err != nil {
		return nil, err
	}
	return map[string]any{"FromDate": from, "ToDate": to}, nil
}
