package config

import (
	"os"
	"strconv"
)

type Config struct {
	Server    ServerConfig
	Primary   DatabaseConfig
	Secondary DatabaseConfig
	Mail      MailConfig
	Paths     PathsConfig
	Scheduler SchedulerConfig
}

type ServerConfig struct {
	Port string
	Host string
}

type DatabaseConfig struct {
	Driver   string
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type MailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	Mock     bool
}

type PathsConfig struct {
	SQLDir    string
	OutputDir string
	DataDir   string
}

type SchedulerConfig struct {
	PoolSize        int
	MetricsInterval string
}

func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", "8080"),
			Host: getEnv("HOST", "localhost"),
		},
		Primary: DatabaseConfig{
			Driver:   getEnv("PRIMARY_DB_DRIVER", "pgx"),
			Host:     getEnv("PRIMARY_DB_HOST", "localhost"),
			Port:     getEnv("PRIMARY_DB_PORT", "5432"),
			User:     getEnv("PRIMARY_DB_USER", "reports"),
			Password: getEnv("PRIMARY_DB_PASSWORD", "reports123"),
			DBName:   getEnv("PRIMARY_DB_NAME", "reports"),
			SSLMode:  getEnv("PRIMARY_DB_SSLMODE", "disable"),
		},
		Secondary: DatabaseConfig{
			Driver:   getEnv("SECONDARY_DB_DRIVER", "pgx"),
			Host:     getEnv("SECONDARY_DB_HOST", ""),
			Port:     getEnv("SECONDARY_DB_PORT", "5432"),
			User:     getEnv("SECONDARY_DB_USER", ""),
			Password: getEnv("SECONDARY_DB_PASSWORD", ""),
			DBName:   getEnv("SECONDARY_DB_NAME", ""),
			SSLMode:  getEnv("SECONDARY_DB_SSLMODE", "disable"),
		},
		Mail: MailConfig{
			Host:     getEnv("SMTP_HOST", "localhost"),
			Port:     getEnvAsInt("SMTP_PORT", 587),
			Username: getEnv("SMTP_USERNAME", ""),
			Password: getEnv("SMTP_PASSWORD", ""),
			From:     getEnv("SMTP_FROM", "reports@example.com"),
			Mock:     getEnvAsBool("SMTP_MOCK", false),
		},
		Paths: PathsConfig{
			SQLDir:    getEnv("SQL_DIR", "data/sql"),
			OutputDir: getEnv("OUTPUT_DIR", "data/reports"),
			DataDir:   getEnv("DATA_DIR", "data"),
		},
		Scheduler: SchedulerConfig{
			PoolSize:        getEnvAsInt("SCHEDULER_POOL_SIZE", 10),
			MetricsInterval: getEnv("METRICS_INTERVAL", "5m"),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// URL builds a DSN from the individual components. An empty host means the
// connection is not configured.
func (d DatabaseConfig) URL() string {
	if d.Host == "" {
		return ""
	}
	return "postgres://" + d.User + ":" + d.Password +
		"@" + d.Host + ":" + d.Port +
		"/" + d.DBName + "?sslmode=" + d.SSLMode
}

// PrimaryURL honors DATABASE_URL as an override, matching how the service is
// deployed on platforms that inject a single connection string.
func (c *Config) PrimaryURL() string {
	if databaseURL := os.Getenv("DATABASE_URL"); databaseURL != "" {
		return databaseURL
	}
	return c.Primary.URL()
}

func (c *Config) SecondaryURL() string {
	if databaseURL := os.Getenv("SECONDARY_DATABASE_URL"); databaseURL != "" {
		return databaseURL
	}
	return c.Secondary.URL()
}
