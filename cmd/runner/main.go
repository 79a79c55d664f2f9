package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/reportops/core/internal/config"
	"github.com/reportops/core/pkg/database"
	"github.com/reportops/core/pkg/execution"
	"github.com/reportops/core/pkg/logger"
	"github.com/reportops/core/pkg/mailer"
	"github.com/reportops/core/pkg/runner"
	"github.com/reportops/core/pkg/store"
)

// Standalone runner for operating without the API: execute a single job from
// the command line, or list the configured jobs.
func main() {
	var (
		jobID = flag.String("job", "", "Execute the job with this ID and exit")
		list  = flag.Bool("list", false, "List configured jobs and exit")
	)
	flag.Parse()

	logger.SetupLogger()
	log := logger.New("report-runner")
	cfg := config.Load()

	jobStore, err := store.NewJobStore(filepath.Join(cfg.Paths.DataDir, "jobs.json"))
	if err != nil {
		log.Fatalf("Failed to open job store: %v", err)
	}

	if *list {
		for _, job := range jobStore.FindAll() {
			state := "disabled"
			if job.Enabled {
				state = "enabled"
			}
			fmt.Printf("%s  %-30s  %-16s  %s\n", job.ID, job.Name, job.CronExpression, state)
		}
		return
	}

	if *jobID == "" {
		fmt.Fprintln(os.Stderr, "usage: runner -job <id> | runner -list")
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	conns, err := database.Open(ctx, cfg, database.DefaultPoolConfig())
	cancel()
	if err != nil {
		log.Fatalf("Failed to open database connections: %v", err)
	}
	defer conns.Close()

	reportStore := store.NewReportStore(filepath.Join(cfg.Paths.DataDir, "reports.json"))
	sqlSource := store.NewSQLSourceStore(cfg.Paths.SQLDir)
	queryRunner := runner.New(conns, log)
	notifier := mailer.New(cfg.Mail, log)

	pipeline := execution.NewPipeline(jobStore, reportStore, sqlSource, queryRunner, notifier, cfg.Paths.OutputDir, log)
	pipeline.Execute(context.Background(), *jobID)
}
