package metrics

import (
	"context"
	"time"

	"github.com/reportops/core/pkg/logger"
	"github.com/reportops/core/pkg/models"
	"github.com/reportops/core/pkg/store"
)

// ValueRunner executes a scalar query against a target database.
type ValueRunner interface {
	QueryValue(ctx context.Context, target models.TargetDatabase, query string) (float64, error)
}

// Collector periodically samples every configured dashboard metric against
// the PRIMARY database and appends the values to the metric history.
type Collector struct {
	metrics  *store.MetricStore
	runner   ValueRunner
	interval time.Duration
	logger   *logger.Logger
	stop     chan struct{}
}

func NewCollector(metrics *store.MetricStore, runner ValueRunner, interval time.Duration, log *logger.Logger) *Collector {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &Collector{
		metrics:  metrics,
		runner:   runner,
		interval: interval,
		logger:   log,
		stop:     make(chan struct{}),
	}
}

// Start samples once immediately, then on every interval tick until Stop.
func (c *Collector) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()

		c.CollectAll(ctx)
		for {
			select {
			case <-ticker.C:
				c.CollectAll(ctx)
			case <-c.stop:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
	c.logger.Info().
		Str("action", "metrics_start").
		Dur("interval", c.interval).
		Msg("Metric collection started")
}

func (c *Collector) Stop() {
	close(c.stop)
}

// CollectAll samples every numeric metric. A failing metric is logged and
// skipped; it never stops the sweep.
func (c *Collector) CollectAll(ctx context.Context) {
	configs := c.metrics.FindAll()
	now := time.Now().UnixMilli()

	for _, cfg := range configs {
		c.collect(ctx, cfg, now)
	}
}

// CollectOne samples a single metric immediately, used right after a metric
// is created so the dashboard has a first data point.
func (c *Collector) CollectOne(ctx context.Context, metricID string) {
	cfg, err := c.metrics.FindByID(metricID)
	if err != nil {
		c.logger.Warn().
			Str("action", "metric_missing").
			Str("metric_id", metricID).
			Msg("Metric not found, skipping sample")
		return
	}
	c.collect(ctx, *cfg, time.Now().UnixMilli())
}

func (c *Collector) collect(ctx context.Context, cfg models.MetricConfig, at int64) {
	// Only numeric metrics are sampled into history.
	if cfg.Type != "" && cfg.Type != "number" {
		return
	}

	value, err := c.runner.QueryValue(ctx, models.TargetPrimary, cfg.SQLQuery)
	if err != nil {
		c.logger.Error().Err(err).
			Str("action", "metric_sample_failed").
			Str("metric_id", cfg.ID).
			Str("title", cfg.Title).
			Msg("Failed to sample metric")
		return
	}

	sample := models.MetricSample{MetricID: cfg.ID, Timestamp: at, Value: value}
	if err := c.metrics.AddSample(sample); err != nil {
		c.logger.Error().Err(err).
			Str("action", "metric_sample_failed").
			Str("metric_id", cfg.ID).
			Msg("Failed to persist metric sample")
		return
	}

	c.logger.Debug().
		Str("action", "metric_sampled").
		Str("metric_id", cfg.ID).
		Str("title", cfg.Title).
		Float64("value", value).
		Msg("Metric sampled")
}
