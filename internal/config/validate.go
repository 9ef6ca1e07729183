package config

import (
	"errors"
	"fmt"
	"net/url"

	"github.com/rickgao/orders-dashboard/internal/logging"
)

// Validate checks that all required fields are set and values are valid.
func (c *DashboardConfig) Validate() error {
	if c.Source.Endpoint == "" {
		return errors.New("source.endpoint is required")
	}
	u, err := url.Parse(c.Source.Endpoint)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("source.endpoint must be an absolute http(s) URL, got %q", c.Source.Endpoint)
	}
	if c.Source.Timeout < 0 {
		return errors.New("source.timeout must be >= 0")
	}

	if c.Poller.Interval <= 0 {
		return errors.New("poller.interval must be > 0")
	}
	if c.Poller.IntervalMs < 0 {
		return errors.New("poller.interval_ms must be >= 0")
	}
	if c.Poller.FetchTimeout < 0 {
		return errors.New("poller.fetch_timeout must be >= 0")
	}

	if err := c.Server.validate("server"); err != nil {
		return err
	}
	return c.Log.validate("log")
}

// Validate checks that all required fields are set and values are valid.
func (c *OrderAPIConfig) Validate() error {
	if err := c.Server.validate("server"); err != nil {
		return err
	}
	if err := c.Database.validate("database"); err != nil {
		return err
	}
	if err := c.Rates.validate("rates"); err != nil {
		return err
	}
	if err := c.Updater.validate("updater"); err != nil {
		return err
	}
	return c.Log.validate("log")
}

func (r *RatesConfig) validate(prefix string) error {
	u, err := url.Parse(r.URL)
	if r.URL == "" || err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%s.url must be an absolute http(s) URL, got %q", prefix, r.URL)
	}
	if len(r.Currency) != 3 {
		return fmt.Errorf("%s.currency must be a 3-letter code, got %q", prefix, r.Currency)
	}
	if r.Timeout < 0 || r.CacheTTL < 0 {
		return fmt.Errorf("%s durations must be >= 0", prefix)
	}
	return nil
}

func (u *UpdaterConfig) validate(prefix string) error {
	if u.FirstDataRow < 1 {
		return fmt.Errorf("%s.first_data_row must be >= 1", prefix)
	}
	if u.Interval <= 0 || u.ExpirationInterval <= 0 || u.CleanupInterval <= 0 {
		return fmt.Errorf("%s intervals must be > 0", prefix)
	}
	if u.ExecutionMaxAge <= 0 {
		return fmt.Errorf("%s.execution_max_age must be > 0", prefix)
	}
	return nil
}

func (s *ServerConfig) validate(prefix string) error {
	if s.Addr == "" {
		return fmt.Errorf("%s.addr is required", prefix)
	}
	if s.ReadTimeout < 0 || s.WriteTimeout < 0 || s.ShutdownTimeout < 0 {
		return fmt.Errorf("%s timeouts must be >= 0", prefix)
	}
	return nil
}

func (db *DBConfig) validate(prefix string) error {
	if db.Host == "" {
		return fmt.Errorf("%s.host is required", prefix)
	}
	if db.Name == "" {
		return fmt.Errorf("%s.name is required", prefix)
	}
	if db.User == "" {
		return fmt.Errorf("%s.user is required", prefix)
	}
	if db.Password == "" {
		return fmt.Errorf("%s.password is required", prefix)
	}
	if db.MaxConns < 1 {
		return fmt.Errorf("%s.max_conns must be >= 1", prefix)
	}
	if db.MinConns < 0 {
		return fmt.Errorf("%s.min_conns must be >= 0", prefix)
	}
	if db.MinConns > db.MaxConns {
		return fmt.Errorf("%s.min_conns (%d) cannot exceed max_conns (%d)", prefix, db.MinConns, db.MaxConns)
	}
	return nil
}

func (l *LogConfig) validate(prefix string) error {
	if !logging.ValidLevel(l.Level) {
		return fmt.Errorf("%s.level must be one of debug, info, warn, error, got %q", prefix, l.Level)
	}
	return nil
}
