// Package config handles configuration for the DiagNexus CLI.
package config

import "time"

// Config holds runtime settings for the DiagNexus CLI.
//
// Fields:
//   - ServerURL: base URL of the DiagNexus HTTP API.
//   - RequestTimeout: per-request timeout of the API client.
//   - OnlineCheckInterval: how often the client probes server reachability.
//   - DownloadDir: directory (relative to cwd) where downloads are saved.
//   - HistoryDSN: SQLite file keeping the local download history.
//   - LogLevel: level of diagnostics written to stderr.
type Config struct {
	ServerURL           string
	RequestTimeout      time.Duration
	OnlineCheckInterval time.Duration
	DownloadDir         string
	HistoryDSN          string
	LogLevel            string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerURL = "http://127.0.0.1:8080"
	c.RequestTimeout = 30 * time.Second
	c.OnlineCheckInterval = 3 * time.Second
	c.DownloadDir = "downloads"
	c.HistoryDSN = "history.db"
	c.LogLevel = "warn"
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
