package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/axiomvault/internal/flagx"
	"github.com/dmitrijs2005/axiomvault/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling.
type JsonConfig struct {
	ServerEndpointAddr  string         `json:"server_endpoint_addr"`
	OnlineCheckInterval timex.Duration `json:"online_check_interval"`
	LocalDBPath         string         `json:"local_db_path"`
	DownloadDir         string         `json:"download_dir"`
	MinPasswordEntropy  float64        `json:"min_password_entropy"`
}

// parseJson overlays Config with values loaded from the file named by
// -c/-config. Without the flag nothing happens. Read or unmarshal errors
// panic.
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

	cfg.ServerEndpointAddr = jc.ServerEndpointAddr
	cfg.OnlineCheckInterval = jc.OnlineCheckInterval.Duration

	if jc.LocalDBPath != "" {
		cfg.LocalDBPath = jc.LocalDBPath
	}
	if jc.DownloadDir != "" {
		cfg.DownloadDir = jc.DownloadDir
	}
	if jc.MinPasswordEntropy > 0 {
		cfg.MinPasswordEntropy = jc.MinPasswordEntropy
	}
}
