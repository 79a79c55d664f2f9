package models

// MetricConfig defines a dashboard metric backed by a scalar SQL query.
// Metrics are sampled on the PRIMARY connection.
type MetricConfig struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	SQLQuery string `json:"sql_query"`
	Type     string `json:"type"` // currently only "number"
	Icon     string `json:"icon,omitempty"`
}

// MetricSample is one collected data point for a metric.
type MetricSample struct {
	MetricID  string  `json:"metric_id"`
	Timestamp int64   `json:"timestamp"` // unix millis
	Value     float64 `json:"value"`
}
