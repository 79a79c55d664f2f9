package runner

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"

	"github.com/reportops/core/pkg/database"
	"github.com/reportops/core/pkg/logger"
	"github.com/reportops/core/pkg/models"
)

// ResultSet is a tabular query result. Column order is preserved from the
// statement; row values are indexed by column position.
type ResultSet struct {
	Columns []string
	Rows    [][]any
}

// RowCount returns the number of data rows.
func (rs *ResultSet) RowCount() int {
	if rs == nil {
		return 0
	}
	return len(rs.Rows)
}

// Runner executes report queries against the named database targets. Each
// target is guarded by its own circuit breaker so a flapping database fails
// fast instead of tying up scheduler workers.
type Runner struct {
	conns    *database.Connections
	breakers map[models.TargetDatabase]*gobreaker.CircuitBreaker
	logger   *logger.Logger
}

func New(conns *database.Connections, log *logger.Logger) *Runner {
	breakers := make(map[models.TargetDatabase]*gobreaker.CircuitBreaker)
	for _, target := range []models.TargetDatabase{models.TargetPrimary, models.TargetSecondary} {
		breakers[target] = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "db-" + string(target),
			MaxRequests: 1,
			Interval:    60 * time.Second,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
		})
	}

	return &Runner{
		conns:    conns,
		breakers: breakers,
		logger:   log,
	}
}

// Execute runs the query against the selected target. When params is
// non-empty, :Name placeholders in the query are bound by name. The query is
// not subject to a timeout; report queries may legitimately run long.
func (r *Runner) Execute(ctx context.Context, target models.TargetDatabase, query string, params map[string]any) (*ResultSet, error) {
	db := r.conns.For(target)
	if db == nil {
		return nil, fmt.Errorf("no database configured for target %s", target)
	}

	boundQuery := query
	var args []any
	if len(params) > 0 {
		var err error
		boundQuery, args, err = BindNamed(query, params)
		if err != nil {
			return nil, err
		}
	}

	start := time.Now()
	result, err := r.breakers[target].Execute(func() (interface{}, error) {
		return r.query(ctx, db, boundQuery, args)
	})
	if err != nil {
		r.logger.LogQuery(string(target), time.Since(start), 0, err)
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("database %s unreachable (circuit open): %w", target, err)
		}
		return nil, err
	}

	rs := result.(*ResultSet)
	r.logger.LogQuery(string(target), time.Since(start), rs.RowCount(), nil)
	return rs, nil
}

func (r *Runner) query(ctx context.Context, db *sql.DB, query string, args []any) (*ResultSet, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read columns: %w", err)
	}

	rs := &ResultSet{Columns: columns}
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		for i, v := range values {
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			}
		}
		rs.Rows = append(rs.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration failed: %w", err)
	}

	return rs, nil
}

// QueryValue runs a scalar query on the target and returns its single value
// as a float64. Used by metric sampling.
func (r *Runner) QueryValue(ctx context.Context, target models.TargetDatabase, query string) (float64, error) {
	db := r.conns.For(target)
	if db == nil {
		return 0, fmt.Errorf("no database configured for target %s", target)
	}

	result, err := r.breakers[target].Execute(func() (interface{}, error) {
		var value any
		if err := db.QueryRowContext(ctx, query).Scan(&value); err != nil {
			return nil, fmt.Errorf("scalar query failed: %w", err)
		}
		return value, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return 0, fmt.Errorf("database %s unreachable (circuit open): %w", target, err)
		}
		return 0, err
	}

	return toFloat64(result)
}

func toFloat64(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case int32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case []byte:
		var f float64
		if _, err := fmt.Sscanf(string(n), "%g", &f); err != nil {
			return 0, fmt.Errorf("scalar result %q is not numeric", n)
		}
		return f, nil
	case string:
		var f float64
		if _, err := fmt.Sscanf(n, "%g", &f); err != nil {
			return 0, fmt.Errorf("scalar result %q is not numeric", n)
		}
		return f, nil
	case nil:
		return 0, fmt.Errorf("scalar result is null")
	default:
		return 0, fmt.Errorf("scalar result type %T is not numeric", v)
	}
}
