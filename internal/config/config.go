// Package config handles duplexchat server configuration: defaults,
// JSON file overlay, and command-line flag overrides.
package config

// Config holds the recognized runtime settings named in the server's
// CLI surface, plus the store connection fields needed to actually
// open GORM against MySQL or Postgres.
type Config struct {
	BindHost        string
	Port            int
	DataDir         string
	DBDriver        string // "mysql" or "postgres"
	DBPath          string // connection string for the selected driver
	LogLevel        string // debug, info, warn, error
	ThreadPoolSize  int    // advisory; not load-bearing in the goroutine-per-connection model
	MaxClients      int
	HistoryPageSize int
	FileChunkSize   int
	// MaxPendingWrites bounds a single connection's outbound queue
	// depth before it is disconnected as an offender (spec.md §5).
	MaxPendingWrites int
}

// LoadDefaults populates Config with development defaults. Override
// DBPath before running against anything but a local throwaway
// database.
func (c *Config) LoadDefaults() {
	c.BindHost = "0.0.0.0"
	c.Port = 7777
	c.DataDir = "./data"
	c.DBDriver = "mysql"
	c.DBPath = "duplexchat:duplexchat@tcp(127.0.0.1:3306)/duplexchat?parseTime=true&charset=utf8mb4"
	c.LogLevel = "info"
	c.ThreadPoolSize = 4
	c.MaxClients = 1000
	c.HistoryPageSize = 100
	c.FileChunkSize = 64 * 1024
	c.MaxPendingWrites = 1024
}

// Load builds a Config by applying defaults, then overlaying a JSON
// file (if --config/-c was given), then command-line flags.
func Load() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJSON(cfg)
	parseFlags(cfg)
	return cfg
}
