package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/diagnexus/internal/flagx"
	"github.com/dmitrijs2005/diagnexus/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Intervals
// may be written as strings like "3s" or as integer nanoseconds.
type JsonConfig struct {
	ServerURL           string          `json:"server_url"`
	RequestTimeout      *timex.Duration `json:"request_timeout"`
	OnlineCheckInterval *timex.Duration `json:"online_check_interval"`
	DownloadDir         string          `json:"download_dir"`
	HistoryDSN          string          `json:"history_dsn"`
	LogLevel            string          `json:"log_level"`
}

// parseJson overlays Config with values from the JSON file named by -c or
// -config. Keys missing from the file leave the current value alone.
// Panics on read or unmarshal errors.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	if jc.ServerURL != "" {
		cfg.ServerURL = jc.ServerURL
	}
	if jc.RequestTimeout != nil {
		cfg.RequestTimeout = jc.RequestTimeout.Duration
	}
	if jc.OnlineCheckInterval != nil {
		cfg.OnlineCheckInterval = jc.OnlineCheckInterval.Duration
	}
	if jc.DownloadDir != "" {
		cfg.DownloadDir = jc.DownloadDir
	}
	if jc.HistoryDSN != "" {
		cfg.HistoryDSN = jc.HistoryDSN
	}
	if jc.LogLevel != "" {
		cfg.LogLevel = jc.LogLevel
	}
}
