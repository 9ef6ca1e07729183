package config

import "time"

// DashboardConfig is the root configuration for the dashboard.
type DashboardConfig struct {
	Source SourceConfig `yaml:"source"`
	Poller PollerConfig `yaml:"poller"`
	Server ServerConfig `yaml:"server"`
	Log    LogConfig    `yaml:"log"`
}

// OrderAPIConfig is the root configuration for the order-items API.
type OrderAPIConfig struct {
	Server   ServerConfig  `yaml:"server"`
	Database DBConfig      `yaml:"database"`
	Rates    RatesConfig   `yaml:"rates"`
	Updater  UpdaterConfig `yaml:"updater"`
	Log      LogConfig     `yaml:"log"`
}

// SourceConfig describes the polled endpoint.
type SourceConfig struct {
	Endpoint string        `yaml:"endpoint"` // GET target returning a JSON array of order items
	Timeout  time.Duration `yaml:"timeout"`  // HTTP client timeout
}

// PollerConfig holds refresh settings.
type PollerConfig struct {
	Interval     time.Duration `yaml:"interval"`
	IntervalMs   int           `yaml:"interval_ms"` // Alternative to interval, in milliseconds
	FetchTimeout time.Duration `yaml:"fetch_timeout"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	AllowedOrigins  []string      `yaml:"allowed_origins"` // CORS; empty = "*"
}

// DBConfig holds a single database connection.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// RatesConfig describes the central bank daily rates feed.
type RatesConfig struct {
	URL      string        `yaml:"url"`       // XML daily rates document
	Currency string        `yaml:"currency"`  // Char code priced in rubles, e.g. USD
	Timeout  time.Duration `yaml:"timeout"`   // HTTP client timeout
	CacheTTL time.Duration `yaml:"cache_ttl"` // How long a fetched rate is reused
}

// UpdaterConfig holds the background jobs that keep order_items current.
type UpdaterConfig struct {
	SourceFile         string        `yaml:"source_file"`    // CSV export of the orders sheet; empty = rate refresh only
	FirstDataRow       int           `yaml:"first_data_row"` // 1-based, rows above are headers
	CheckModified      *bool         `yaml:"check_modified"` // Skip the full sync while the file is unchanged
	Interval           time.Duration `yaml:"interval"`
	ExpirationInterval time.Duration `yaml:"expiration_interval"`
	CleanupInterval    time.Duration `yaml:"cleanup_interval"`
	ExecutionMaxAge    time.Duration `yaml:"execution_max_age"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level string `yaml:"level"` // debug | info | warn | error
}
