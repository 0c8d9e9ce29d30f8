// Package config loads runtime configuration for the vault CLI.
//
// Sources, lowest precedence first:
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected with -c or -config.
//  3. Command-line flags.
//
// Supported flags
//
//	-a string   address:port of the backend gRPC endpoint
//	-i int      online status check interval (seconds)
//	-d string   path of the local sqlite cache
//	-o string   directory for decrypted downloads
//	-e float    minimum password entropy in bits
//
// # JSON schema
//
// Intervals use timex.Duration, so "3s" and integer nanoseconds both work.
// Fields missing from the file keep their defaults.
//
//	{
//	  "server_endpoint_addr": "127.0.0.1:50051",
//	  "online_check_interval": "3s",
//	  "local_db_path": "vault.db",
//	  "download_dir": "downloads",
//	  "min_password_entropy": 60
//	}
package config
