package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/foodhub/internal/flagx"
	"github.com/dmitrijs2005/foodhub/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling.
type JsonConfig struct {
	ServerURL      string          `json:"server_url"`
	RequestTimeout *timex.Duration `json:"request_timeout"`
	DeviceID       string          `json:"device_id"`
}

// parseJSON overlays the file passed with -c/-config, if any. Absent fields
// keep their current value.
func parseJSON(cfg *Config, args []string) error {
	path := flagx.ConfigFile(args)
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var jc JsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		return err
	}

	if jc.ServerURL != "" {
		cfg.ServerURL = jc.ServerURL
	}
	if jc.RequestTimeout != nil {
		cfg.RequestTimeout = jc.RequestTimeout.Duration
	}
	if jc.DeviceID != "" {
		cfg.DeviceID = jc.DeviceID
	}
	return nil
}
