package config

import "time"

// Config is the root configuration for the option-series tooling.
type Config struct {
	// Env selects the catalog deployment: prod, stage or demo.
	Env      string         `yaml:"env"`
	API      APIConfig      `yaml:"api"`
	Database DBConfig       `yaml:"database"`
	Feed     FeedConfig     `yaml:"feed"`
	Resolver ResolverConfig `yaml:"resolver"`
}

// APIConfig holds SymbolDB editor API settings.
type APIConfig struct {
	// BaseURL overrides the environment-derived endpoint when set.
	BaseURL      string        `yaml:"base_url"`
	SessionID    string        `yaml:"session_id"`
	Timeout      time.Duration `yaml:"timeout"`
	MaxRetries   int           `yaml:"max_retries"`
	RetryBackoff time.Duration `yaml:"retry_backoff"`
}

// DBConfig holds the connection to the used-symbols database. Optional:
// without it strike refreshes run without the used-symbol guard only in
// unsafe mode.
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

// Enabled reports whether a used-symbols database is configured at all.
func (db DBConfig) Enabled() bool {
	return db.Host != ""
}

// FeedConfig holds the catalog-change feed connection. Optional: without a
// URL the tooling works from a one-shot tree snapshot.
type FeedConfig struct {
	URL                string        `yaml:"url"`
	ReconnectBaseDelay time.Duration `yaml:"reconnect_base_delay"`
	ReconnectMaxDelay  time.Duration `yaml:"reconnect_max_delay"`
	PingInterval       time.Duration `yaml:"ping_interval"`
	ReadTimeout        time.Duration `yaml:"read_timeout"`
}

// ResolverConfig holds series-resolution settings.
type ResolverConfig struct {
	// WeekNumber 0 resolves the main series with weekly detection; 1-5
	// address one week folder.
	WeekNumber int `yaml:"week_number"`

	// IncludeDemo counts demo-account symbols as used when guarding strike
	// removal.
	IncludeDemo bool `yaml:"include_demo"`
}
