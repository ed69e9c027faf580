package config

import (
	"flag"
	"os"

	"duplexchat/internal/flagx"
)

// parseFlags overlays cfg with command-line flag overrides. It only
// recognizes the flags listed below, filtering os.Args first so it
// never trips over flags some other part of the process might define.
func parseFlags(cfg *Config) {
	names := []string{
		"-bind_host", "-port", "-data_dir", "-db_driver", "-db_path",
		"-log_level", "-thread_pool_size", "-max_clients",
		"-history_page_size", "-file_chunk_size", "-max_pending_writes",
	}
	args := flagx.FilterArgs(os.Args[1:], names)

	fs := flag.NewFlagSet("duplexchat-server", flag.ContinueOnError)
	fs.StringVar(&cfg.BindHost, "bind_host", cfg.BindHost, "address to bind the listener to")
	fs.IntVar(&cfg.Port, "port", cfg.Port, "TCP port to listen on")
	fs.StringVar(&cfg.DataDir, "data_dir", cfg.DataDir, "root directory for finalized and in-progress files")
	fs.StringVar(&cfg.DBDriver, "db_driver", cfg.DBDriver, "relational store driver: mysql or postgres")
	fs.StringVar(&cfg.DBPath, "db_path", cfg.DBPath, "store connection string for the selected driver")
	fs.StringVar(&cfg.LogLevel, "log_level", cfg.LogLevel, "debug, info, warn, or error")
	fs.IntVar(&cfg.ThreadPoolSize, "thread_pool_size", cfg.ThreadPoolSize, "advisory worker pool size")
	fs.IntVar(&cfg.MaxClients, "max_clients", cfg.MaxClients, "maximum concurrent connections")
	fs.IntVar(&cfg.HistoryPageSize, "history_page_size", cfg.HistoryPageSize, "offline spool drain page size")
	fs.IntVar(&cfg.FileChunkSize, "file_chunk_size", cfg.FileChunkSize, "declared chunk size for file transfer")
	fs.IntVar(&cfg.MaxPendingWrites, "max_pending_writes", cfg.MaxPendingWrites, "per-connection outbound queue depth before disconnect")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}
