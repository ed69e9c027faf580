package config

import (
	"encoding/json"
	"os"

	"duplexchat/internal/flagx"
)

// jsonConfig is the on-disk shape for the --config JSON file. Every
// field is optional; an absent field leaves the default in place.
type jsonConfig struct {
	BindHost         *string `json:"bind_host"`
	Port             *int    `json:"port"`
	DataDir          *string `json:"data_dir"`
	DBDriver         *string `json:"db_driver"`
	DBPath           *string `json:"db_path"`
	LogLevel         *string `json:"log_level"`
	ThreadPoolSize   *int    `json:"thread_pool_size"`
	MaxClients       *int    `json:"max_clients"`
	HistoryPageSize  *int    `json:"history_page_size"`
	FileChunkSize    *int    `json:"file_chunk_size"`
	MaxPendingWrites *int    `json:"max_pending_writes"`
}

// parseJSON overlays cfg with values read from the file named by
// --config/-c, if any was given. A missing flag is a no-op; a flag
// pointing at an unreadable or malformed file panics, since that is a
// misconfigured deployment, not a recoverable runtime condition.
func parseJSON(cfg *Config) {
	path := flagx.ConfigFileFlag()
	if path == "" {
		return
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	var jc jsonConfig
	if err := json.Unmarshal(raw, &jc); err != nil {
		panic(err)
	}

	if jc.BindHost != nil {
		cfg.BindHost = *jc.BindHost
	}
	if jc.Port != nil {
		cfg.Port = *jc.Port
	}
	if jc.DataDir != nil {
		cfg.DataDir = *jc.DataDir
	}
	if jc.DBDriver != nil {
		cfg.DBDriver = *jc.DBDriver
	}
	if jc.DBPath != nil {
		cfg.DBPath = *jc.DBPath
	}
	if jc.LogLevel != nil {
		cfg.LogLevel = *jc.LogLevel
	}
	if jc.ThreadPoolSize != nil {
		cfg.ThreadPoolSize = *jc.ThreadPoolSize
	}
	if jc.MaxClients != nil {
		cfg.MaxClients = *jc.MaxClients
	}
	if jc.HistoryPageSize != nil {
		cfg.HistoryPageSize = *jc.HistoryPageSize
	}
	if jc.FileChunkSize != nil {
		cfg.FileChunkSize = *jc.FileChunkSize
	}
	if jc.MaxPendingWrites != nil {
		cfg.MaxPendingWrites = *jc.MaxPendingWrites
	}
}
