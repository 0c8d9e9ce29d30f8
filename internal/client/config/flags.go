package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/axiomvault/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
// Only the flags known here are kept (flagx.FilterArgs), so the JSON
// config flag does not break parsing.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-i", "-d", "-o", "-e"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.ServerEndpointAddr, "a", cfg.ServerEndpointAddr, "address and port to access server")
	onlineCheckInterval := fs.Int("i", int(cfg.OnlineCheckInterval.Seconds()), "online check interval (in seconds)")
	fs.StringVar(&cfg.LocalDBPath, "d", cfg.LocalDBPath, "local cache database path")
	fs.StringVar(&cfg.DownloadDir, "o", cfg.DownloadDir, "download directory")
	fs.Float64Var(&cfg.MinPasswordEntropy, "e", cfg.MinPasswordEntropy, "minimum password entropy (bits)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.OnlineCheckInterval = time.Duration(*onlineCheckInterval) * time.Second
}
