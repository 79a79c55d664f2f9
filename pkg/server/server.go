package server

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/reportops/core/internal/config"
	"github.com/reportops/core/pkg/database"
	"github.com/reportops/core/pkg/execution"
	"github.com/reportops/core/pkg/handlers/dashboard"
	"github.com/reportops/core/pkg/handlers/health"
	"github.com/reportops/core/pkg/handlers/jobs"
	"github.com/reportops/core/pkg/handlers/reports"
	"github.com/reportops/core/pkg/logger"
	"github.com/reportops/core/pkg/mailer"
	"github.com/reportops/core/pkg/metrics"
	"github.com/reportops/core/pkg/middleware"
	"github.com/reportops/core/pkg/runner"
	"github.com/reportops/core/pkg/scheduler"
	"github.com/reportops/core/pkg/store"
)

// Server wires the stores, scheduler, pipeline, and HTTP handlers together.
type Server struct {
	router    *http.ServeMux
	port      string
	logger    *logger.Logger
	conns     *database.Connections
	scheduler *scheduler.Scheduler
	collector *metrics.Collector
	jobStore  *store.JobStore
	handlers  struct {
		health    *health.Handler
		jobs      *jobs.Handler
		reports   *reports.Handler
		dashboard *dashboard.Handler
	}
}

// New builds a fully wired server. The scheduler is created but idle until
// Bootstrap/Start.
func New(cfg *config.Config, log *logger.Logger) (*Server, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	conns, err := database.Open(ctx, cfg, database.DefaultPoolConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to open database connections: %w", err)
	}

	jobStore, err := store.NewJobStore(filepath.Join(cfg.Paths.DataDir, "jobs.json"))
	if err != nil {
		conns.Close()
		return nil, fmt.Errorf("failed to open job store: %w", err)
	}
	reportStore := store.NewReportStore(filepath.Join(cfg.Paths.DataDir, "reports.json"))
	metricStore, err := store.NewMetricStore(
		filepath.Join(cfg.Paths.DataDir, "metrics.json"),
		filepath.Join(cfg.Paths.DataDir, "metric_history.json"),
	)
	if err != nil {
		conns.Close()
		return nil, fmt.Errorf("failed to open metric store: %w", err)
	}
	sqlSource := store.NewSQLSourceStore(cfg.Paths.SQLDir)

	queryRunner := runner.New(conns, log)
	notifier := mailer.New(cfg.Mail, log)
	pipeline := execution.NewPipeline(jobStore, reportStore, sqlSource, queryRunner, notifier, cfg.Paths.OutputDir, log)
	sched := scheduler.New(pipeline, cfg.Scheduler.PoolSize, log)

	interval, err := time.ParseDuration(cfg.Scheduler.MetricsInterval)
	if err != nil {
		log.Warn().
			Str("action", "bad_metrics_interval").
			Str("value", cfg.Scheduler.MetricsInterval).
			Msg("Invalid metrics interval, using 5m")
		interval = 5 * time.Minute
	}
	collector := metrics.NewCollector(metricStore, queryRunner, interval, log)

	s := &Server{
		router:    http.NewServeMux(),
		port:      cfg.Server.Port,
		logger:    log,
		conns:     conns,
		scheduler: sched,
		collector: collector,
		jobStore:  jobStore,
	}

	s.handlers.health = health.NewHandler(sched, log)
	s.handlers.jobs = jobs.NewHandler(jobStore, sqlSource, sched, pipeline, log)
	s.handlers.reports = reports.NewHandler(reportStore, log)
	s.handlers.dashboard = dashboard.NewHandler(metricStore, collector, queryRunner, log)

	s.setupRoutes()
	return s, nil
}

func (s *Server) setupRoutes() {
	s.router.HandleFunc("/health", middleware.CORS(s.handlers.health.HealthCheck))

	s.router.HandleFunc("/api/jobs", middleware.CORS(s.handlers.jobs.Collection))
	s.router.HandleFunc("/api/jobs/", middleware.CORS(s.handlers.jobs.Item))

	s.router.HandleFunc("/api/reports", middleware.CORS(s.handlers.reports.List))
	s.router.HandleFunc("/api/reports/", middleware.CORS(s.handlers.reports.Item))

	s.router.HandleFunc("/api/dashboard/metrics", middleware.CORS(s.handlers.dashboard.Metrics))
	s.router.HandleFunc("/api/dashboard/metrics/", middleware.CORS(s.handlers.dashboard.MetricItem))
	s.router.HandleFunc("/api/dashboard/history/", middleware.CORS(s.handlers.dashboard.History))
	s.router.HandleFunc("/api/dashboard/data/", middleware.CORS(s.handlers.dashboard.Data))
}

// Bootstrap restores cron entries from the persisted job definitions and
// starts the scheduler and metric collector.
func (s *Server) Bootstrap(ctx context.Context) {
	s.scheduler.Bootstrap(s.jobStore.FindAll())
	s.scheduler.Start()
	s.collector.Start(ctx)
}

// Start starts the HTTP server and blocks.
func (s *Server) Start() error {
	s.logger.Info().
		Str("action", "server_start").
		Str("port", s.port).
		Msg("Starting report service API")

	if err := http.ListenAndServe(":"+s.port, s.router); err != nil {
		return fmt.Errorf("server failed to start on port %s: %w", s.port, err)
	}
	return nil
}

// Close stops the scheduler and collector and closes database connections.
func (s *Server) Close() {
	stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	s.scheduler.Stop(stopCtx)
	s.collector.Stop()
	s.conns.Close()
	s.logger.Info().Msg("Server resources released")
}
