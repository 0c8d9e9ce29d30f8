package config

import "time"

// Config holds runtime settings for the vault CLI.
type Config struct {
	ServerEndpointAddr  string
	OnlineCheckInterval time.Duration
	LocalDBPath         string
	DownloadDir         string
	MinPasswordEntropy  float64
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerEndpointAddr = "127.0.0.1:50051"
	c.OnlineCheckInterval = 3 * time.Second
	c.LocalDBPath = "vault.db"
	c.DownloadDir = "downloads"
	c.MinPasswordEntropy = 60
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
