package database

import (
	"fmt"
	"net/url"

	"github.com/the-livingstone/sdb-options/internal/config"
)

// BuildConnString builds a PostgreSQL connection string from config. The
// sslmode default lives with the other config defaults; an unset value leaves
// the parameter off and lets the driver decide.
func BuildConnString(cfg config.DBConfig) string {
	// URL-encode password to handle special characters
	escapedPassword := url.QueryEscape(cfg.Password)

	conn := fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s",
		cfg.User,
		escapedPassword,
		cfg.Host,
		cfg.Port,
		cfg.Name,
	)
	if cfg.SSLMode != "" {
		conn += "?sslmode=" + cfg.SSLMode
	}
	return conn
}
