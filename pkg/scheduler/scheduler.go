package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/reportops/core/pkg/logger"
	"github.com/reportops/core/pkg/models"
)

// Executor runs a single job end to end. The scheduler only knows job IDs;
// loading the definition and producing the report is the executor's problem.
type Executor interface {
	ExecuteJob(ctx context.Context, jobID string) error
}

// Scheduler maps job IDs onto live cron entries and can reshape that mapping
// at runtime without a restart.
type Scheduler struct {
	cron     *cron.Cron
	executor Executor
	logger   *logger.Logger

	mu      sync.Mutex
	entries map[string]cron.EntryID

	// slots caps the number of scheduled runs executing at once. Manual
	// runs bypass it on purpose.
	slots chan struct{}
}

// cronParser accepts both the classic 5-field form and the 6-field form with
// a leading seconds column.
var cronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

func New(executor Executor, poolSize int, log *logger.Logger) *Scheduler {
	if poolSize <= 0 {
		poolSize = 10
	}
	return &Scheduler{
		cron:     cron.New(cron.WithParser(cronParser)),
		executor: executor,
		logger:   log,
		entries:  make(map[string]cron.EntryID),
		slots:    make(chan struct{}, poolSize),
	}
}

// Start begins firing cron entries. Safe to call before or after Schedule.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info().
		Str("action", "scheduler_start").
		Int("pool_size", cap(s.slots)).
		Msg("Scheduler started")
}

// Stop stops firing new runs and waits for in-flight runs to finish.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop().Done()
	select {
	case <-done:
		s.logger.Info().Str("action", "scheduler_stop").Msg("Scheduler stopped")
	case <-ctx.Done():
		s.logger.Warn().
			Str("action", "scheduler_stop").
			Msg("Scheduler stop timed out with runs in flight")
	}
}

// Schedule registers or replaces the cron entry for a job. A job already
// scheduled is cancelled first, so updates never leave two live entries.
func (s *Scheduler) Schedule(job models.JobDefinition) error {
	if !job.Schedulable() {
		return fmt.Errorf("job %s is not schedulable", job.ID)
	}

	if _, err := cronParser.Parse(job.CronExpression); err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", job.CronExpression, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.entries[job.ID]; ok {
		s.cron.Remove(id)
		delete(s.entries, job.ID)
	}

	jobID := job.ID
	entryID, err := s.cron.AddFunc(job.CronExpression, func() {
		s.runScheduled(jobID)
	})
	if err != nil {
		return fmt.Errorf("failed to schedule job %s: %w", job.ID, err)
	}

	s.entries[job.ID] = entryID
	s.logger.Info().
		Str("action", "job_scheduled").
		Str("job_id", job.ID).
		Str("job_name", job.Name).
		Str("cron", job.CronExpression).
		Msg("Job scheduled")
	return nil
}

// Cancel removes a job's cron entry. A run already in flight keeps going;
// only future firings stop. Cancelling an unscheduled job is a no-op.
func (s *Scheduler) Cancel(jobID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.entries[jobID]
	if !ok {
		return
	}
	s.cron.Remove(id)
	delete(s.entries, jobID)
	s.logger.Info().
		Str("action", "job_cancelled").
		Str("job_id", jobID).
		Msg("Job schedule cancelled")
}

// Bootstrap schedules every schedulable job in the list and returns how many
// were registered. A job with a bad expression is logged and skipped rather
// than failing startup.
func (s *Scheduler) Bootstrap(jobs []models.JobDefinition) int {
	scheduled := 0
	for _, job := range jobs {
		if !job.Schedulable() {
			continue
		}
		if err := s.Schedule(job); err != nil {
			s.logger.Error().Err(err).
				Str("action", "bootstrap_skip").
				Str("job_id", job.ID).
				Str("job_name", job.Name).
				Msg("Skipping job with invalid schedule")
			continue
		}
		scheduled++
	}
	s.logger.Info().
		Str("action", "bootstrap").
		Int("scheduled", scheduled).
		Int("total", len(jobs)).
		Msg("Schedules bootstrapped")
	return scheduled
}

// IsScheduled reports whether a job currently has a live cron entry.
func (s *Scheduler) IsScheduled(jobID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.entries[jobID]
	return ok
}

// ScheduledCount returns the number of live cron entries.
func (s *Scheduler) ScheduledCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// ScheduledIDs returns the IDs of every job with a live cron entry.
func (s *Scheduler) ScheduledIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.entries))
	for id := range s.entries {
		ids = append(ids, id)
	}
	return ids
}

// RunNow fires a job immediately on its own goroutine, outside the worker
// pool. Returns as soon as the run has been started.
func (s *Scheduler) RunNow(jobID string) {
	go s.run(jobID, "manual")
}

// runScheduled executes a cron firing inside the worker pool.
func (s *Scheduler) runScheduled(jobID string) {
	s.slots <- struct{}{}
	defer func() { <-s.slots }()
	s.run(jobID, "cron")
}

func (s *Scheduler) run(jobID, trigger string) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error().
				Str("action", "run_panic").
				Str("job_id", jobID).
				Str("trigger", trigger).
				Interface("panic", r).
				Msg("Job run panicked")
		}
	}()

	start := time.Now()
	if err := s.executor.ExecuteJob(context.Background(), jobID); err != nil {
		s.logger.Error().Err(err).
			Str("action", "run_failed").
			Str("job_id", jobID).
			Str("trigger", trigger).
			Dur("duration", time.Since(start)).
			Msg("Job run failed")
	}
}
