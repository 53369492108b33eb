package config

import (
	"errors"
	"fmt"
)

var environments = map[string]struct{}{
	"prod":  {},
	"stage": {},
	"demo":  {},
}

// Validate checks that all required fields are set and values are valid.
func (c *Config) Validate() error {
	if _, ok := environments[c.Env]; !ok {
		return fmt.Errorf("env must be prod, stage or demo, got %q", c.Env)
	}

	if c.API.SessionID == "" {
		return errors.New("api.session_id is required")
	}
	if c.API.MaxRetries < 0 {
		return errors.New("api.max_retries must be >= 0")
	}

	if c.Database.Enabled() {
		if err := c.Database.validate("database"); err != nil {
			return err
		}
	}

	if c.Resolver.WeekNumber < 0 || c.Resolver.WeekNumber > 5 {
		return fmt.Errorf("resolver.week_number must be 0-5, got %d", c.Resolver.WeekNumber)
	}

	return nil
}

func (db *DBConfig) validate(prefix string) error {
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
