package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultEndpoint        = "http://localhost:8000/api/order-items"
	DefaultSourceTimeout   = 30 * time.Second
	DefaultPollInterval    = 5 * time.Second
	DefaultFetchTimeout    = 10 * time.Second
	DefaultDashboardAddr   = ":8080"
	DefaultOrderAPIAddr    = ":8000"
	DefaultReadTimeout     = 10 * time.Second
	DefaultWriteTimeout    = 10 * time.Second
	DefaultShutdownTimeout = 10 * time.Second
	DefaultLogLevel        = "info"
	DefaultDBPort          = 5432
	DefaultDBSSLMode       = "prefer"
	DefaultMaxConns        = 10
	DefaultMinConns        = 2

	DefaultRatesURL           = "https://www.cbr.ru/scripts/XML_daily.asp"
	DefaultRatesCurrency      = "USD"
	DefaultRatesTimeout       = 30 * time.Second
	DefaultRatesCacheTTL      = time.Hour
	DefaultFirstDataRow       = 2
	DefaultUpdateInterval     = 20 * time.Second
	DefaultExpirationInterval = 25 * time.Second
	DefaultCleanupInterval    = 7 * 24 * time.Hour
	DefaultExecutionMaxAge    = 7 * 24 * time.Hour
)

func (c *DashboardConfig) applyDefaults() {
	// Source defaults
	if c.Source.Endpoint == "" {
		c.Source.Endpoint = DefaultEndpoint
	}
	if c.Source.Timeout == 0 {
		c.Source.Timeout = DefaultSourceTimeout
	}

	// Poller defaults
	if c.Poller.Interval == 0 && c.Poller.IntervalMs > 0 {
		c.Poller.Interval = time.Duration(c.Poller.IntervalMs) * time.Millisecond
	}
	if c.Poller.Interval == 0 {
		c.Poller.Interval = DefaultPollInterval
	}
	if c.Poller.FetchTimeout == 0 {
		c.Poller.FetchTimeout = DefaultFetchTimeout
	}

	applyServerDefaults(&c.Server, DefaultDashboardAddr)
	applyLogDefaults(&c.Log)
}

func (c *OrderAPIConfig) applyDefaults() {
	applyServerDefaults(&c.Server, DefaultOrderAPIAddr)
	applyDBDefaults(&c.Database)
	applyLogDefaults(&c.Log)

	// Rates defaults
	if c.Rates.URL == "" {
		c.Rates.URL = DefaultRatesURL
	}
	if c.Rates.Currency == "" {
		c.Rates.Currency = DefaultRatesCurrency
	}
	if c.Rates.Timeout == 0 {
		c.Rates.Timeout = DefaultRatesTimeout
	}
	if c.Rates.CacheTTL == 0 {
		c.Rates.CacheTTL = DefaultRatesCacheTTL
	}

	// Updater defaults
	if c.Updater.FirstDataRow == 0 {
		c.Updater.FirstDataRow = DefaultFirstDataRow
	}
	if c.Updater.CheckModified == nil {
		check := true
		c.Updater.CheckModified = &check
	}
	if c.Updater.Interval == 0 {
		c.Updater.Interval = DefaultUpdateInterval
	}
	if c.Updater.ExpirationInterval == 0 {
		c.Updater.ExpirationInterval = DefaultExpirationInterval
	}
	if c.Updater.CleanupInterval == 0 {
		c.Updater.CleanupInterval = DefaultCleanupInterval
	}
	if c.Updater.ExecutionMaxAge == 0 {
		c.Updater.ExecutionMaxAge = DefaultExecutionMaxAge
	}
}

func applyServerDefaults(s *ServerConfig, addr string) {
	if s.Addr == "" {
		s.Addr = addr
	}
	if s.ReadTimeout == 0 {
		s.ReadTimeout = DefaultReadTimeout
	}
	if s.WriteTimeout == 0 {
		s.WriteTimeout = DefaultWriteTimeout
	}
	if s.ShutdownTimeout == 0 {
		s.ShutdownTimeout = DefaultShutdownTimeout
	}
}

func applyDBDefaults(db *DBConfig) {
	if db.Port == 0 {
		db.Port = DefaultDBPort
	}
	if db.SSLMode == "" {
		db.SSLMode = DefaultDBSSLMode
	}
	if db.MaxConns == 0 {
		db.MaxConns = DefaultMaxConns
	}
	if db.MinConns == 0 {
		db.MinConns = DefaultMinConns
	}
}

func applyLogDefaults(l *LogConfig) {
	if l.Level == "" {
		l.Level = DefaultLogLevel
	}
}
