package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // default driver: "pgx"
	_ "github.com/lib/pq"              // alternate driver: "postgres"

	"github.com/reportops/core/internal/config"
	"github.com/reportops/core/pkg/models"
)

// PoolConfig holds connection pool settings applied to every target.
type PoolConfig struct {
	// MaxOpenConns is the maximum number of open connections per target
	MaxOpenConns int
	// MaxIdleConns is the number of idle connections kept warm
	MaxIdleConns int
	// ConnMaxLifetime rotates connections after this duration
	ConnMaxLifetime time.Duration
	// ConnMaxIdleTime releases connections idle for this duration
	ConnMaxIdleTime time.Duration
	// PingTimeout bounds the startup connectivity check
	PingTimeout time.Duration
}

// DefaultPoolConfig returns pool settings suitable for report workloads:
// few concurrent queries, each potentially long-running.
func DefaultPoolConfig() *PoolConfig {
	return &PoolConfig{
		MaxOpenConns:    25,
		MaxIdleConns:    5,
		ConnMaxLifetime: 30 * time.Minute,
		ConnMaxIdleTime: 5 * time.Minute,
		PingTimeout:     10 * time.Second,
	}
}

// Connections is the registry of named database targets. The set of targets
// is closed: PRIMARY is required, SECONDARY is optional.
type Connections struct {
	dbs map[models.TargetDatabase]*sql.DB
}

// Open connects the configured targets. The PRIMARY connection must be
// reachable; a missing SECONDARY configuration is not an error.
func Open(ctx context.Context, cfg *config.Config, pool *PoolConfig) (*Connections, error) {
	if pool == nil {
		pool = DefaultPoolConfig()
	}

	c := &Connections{dbs: make(map[models.TargetDatabase]*sql.DB)}

	primary, err := openTarget(ctx, cfg.Primary.Driver, cfg.PrimaryURL(), pool)
	if err != nil {
		return nil, fmt.Errorf("primary database: %w", err)
	}
	c.dbs[models.TargetPrimary] = primary

	if url := cfg.SecondaryURL(); url != "" {
		secondary, err := openTarget(ctx, cfg.Secondary.Driver, url, pool)
		if err != nil {
			primary.Close()
			return nil, fmt.Errorf("secondary database: %w", err)
		}
		c.dbs[models.TargetSecondary] = secondary
	}

	return c, nil
}

func openTarget(ctx context.Context, driver, url string, pool *PoolConfig) (*sql.DB, error) {
	if url == "" {
		return nil, fmt.Errorf("connection URL is empty")
	}
	if driver == "" {
		driver = "pgx"
	}

	db, err := sql.Open(driver, url)
	if err != nil {
		return nil, fmt.Errorf("failed to open connection: %w", err)
	}

	db.SetMaxOpenConns(pool.MaxOpenConns)
	db.SetMaxIdleConns(pool.MaxIdleConns)
	db.SetConnMaxLifetime(pool.ConnMaxLifetime)
	db.SetConnMaxIdleTime(pool.ConnMaxIdleTime)

	pingCtx, cancel := context.WithTimeout(ctx, pool.PingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// NewFromDB builds a registry from already-open handles. Used by tests and
// by the one-shot runner when only one target is needed.
func NewFromDB(dbs map[models.TargetDatabase]*sql.DB) *Connections {
	return &Connections{dbs: dbs}
}

// For resolves a target to its connection. Unknown or unconfigured targets
// fall back to PRIMARY.
func (c *Connections) For(target models.TargetDatabase) *sql.DB {
	if db, ok := c.dbs[target]; ok {
		return db
	}
	return c.dbs[models.TargetPrimary]
}

// Has reports whether the target has its own configured connection.
func (c *Connections) Has(target models.TargetDatabase) bool {
	_, ok := c.dbs[target]
	return ok
}

// Close closes all connections.
func (c *Connections) Close() {
	for _, db := range c.dbs {
		db.Close()
	}
}
