package logger

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog"
)

type contextKey string

const LoggerKey contextKey = "logger"

type Logger struct {
	*zerolog.Logger
}

// New creates a new logger instance with service context
func New(service string) *Logger {
	hostname, _ := os.Hostname()

	// Configure zerolog
	zerolog.TimeFieldFormat = time.RFC3339
	zerolog.TimestampFieldName = "@timestamp" // ELK compatible

	// Create logger with JSON output for production
	logger := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", service).
		Str("hostname", hostname).
		Str("environment", getEnv("ENVIRONMENT", "development")).
		Str("version", getEnv("SERVICE_VERSION", "unknown")).
		Logger()

	return &Logger{&logger}
}

// WithContext returns a logger from context or creates a new one
func WithContext(ctx context.Context, service string) *Logger {
	if logger, ok := ctx.Value(LoggerKey).(*Logger); ok {
		return logger
	}
	return New(service)
}

// ToContext adds logger to context
func (l *Logger) ToContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, LoggerKey, l)
}

// WithRequestID adds request/correlation ID for tracing
func (l *Logger) WithRequestID(requestID string) *Logger {
	logger := l.Logger.With().Str("request_id", requestID).Logger()
	return &Logger{&logger}
}

// WithJob adds job context for scheduled report runs
func (l *Logger) WithJob(jobID, jobName string) *Logger {
	logger := l.Logger.With().
		Str("job_id", jobID).
		Str("job_name", jobName).
		Logger()
	return &Logger{&logger}
}

// WithRun adds the execution record ID for a single report run
func (l *Logger) WithRun(reportID string) *Logger {
	logger := l.Logger.With().Str("report_id", reportID).Logger()
	return &Logger{&logger}
}

// WithError adds error context
func (l *Logger) WithError(err error) *Logger {
	logger := l.Logger.With().Err(err).Logger()
	return &Logger{&logger}
}

// LogRunStart logs the start of a report run
func (l *Logger) LogRunStart(jobID, jobName string) {
	l.Info().
		Str("action", "run_start").
		Str("job_id", jobID).
		Str("job_name", jobName).
		Msg("Starting report run")
}

// LogRunComplete logs a finished report run with its metrics
func (l *Logger) LogRunComplete(jobName string, duration time.Duration, rowCount int, fileSize int64) {
	l.Info().
		Str("action", "run_complete").
		Str("job_name", jobName).
		Dur("duration", duration).
		Int("row_count", rowCount).
		Int64("file_size_bytes", fileSize).
		Msg("Report run completed")
}

// LogQuery logs a database query execution
func (l *Logger) LogQuery(target string, duration time.Duration, rows int, err error) {
	event := l.Info()
	if err != nil {
		event = l.Error().Err(err)
	}

	event.
		Str("action", "db_query").
		Str("target", target).
		Dur("duration", duration).
		Int("rows", rows).
		Bool("success", err == nil).
		Msg("Query executed")
}

// LogNotification logs an email delivery attempt
func (l *Logger) LogNotification(recipients int, subject string, err error) {
	event := l.Info()
	if err != nil {
		event = l.Error().Err(err)
	}

	event.
		Str("action", "notification").
		Int("recipients", recipients).
		Str("subject", subject).
		Bool("success", err == nil).
		Msg("Notification attempt")
}

// Fatalf logs a fatal error and exits
func (l *Logger) Fatalf(format string, args ...interface{}) {
	l.Fatal().Msgf(format, args...)
}

// SetupLogger configures global log level based on environment
func SetupLogger() {
	level := os.Getenv("LOG_LEVEL")
	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	case "trace":
		zerolog.SetGlobalLevel(zerolog.TraceLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	// Pretty logging for development
	if getEnv("ENVIRONMENT", "development") == "development" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
		output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen}
		logger := zerolog.New(output).With().Timestamp().Logger()
		zerolog.DefaultContextLogger = &logger
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
