package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/axiomvault/internal/flagx"
	"github.com/dmitrijs2005/axiomvault/internal/timex"
)

// JsonConfig is the on-disk shape of the server configuration. Durations use
// timex.Duration, so both "1m" and integer nanoseconds are accepted.
//
// The connection fields are always copied. The policy and tuning fields
// keep their defaults unless present in the file.
type JsonConfig struct {
	EndpointAddrGRPC             string         `json:"endpoint_addr_grpc"`
	DatabaseDSN                  string         `json:"database_dsn"`
	SecretKey                    string         `json:"secret_key"`
	AccessTokenValidityDuration  timex.Duration `json:"access_token_validity_duration"`
	RefreshTokenValidityDuration timex.Duration `json:"refresh_token_validity_duration"`
	MaxFailedAttempts            int            `json:"max_failed_attempts"`
	LockoutDuration              timex.Duration `json:"lockout_duration"`
	RecoveryTicketTTL            timex.Duration `json:"recovery_ticket_ttl"`
	RequireRecoveryTicket        *bool          `json:"require_recovery_ticket"`
	AuthRateLimit                float64        `json:"auth_rate_limit"`
	AuthRateBurst                int            `json:"auth_rate_burst"`
	S3RootUser                   string         `json:"s3_root_user"`
	S3RootPassword               string         `json:"s3_root_password"`
	S3Bucket                     string         `json:"s3_bucket"`
	S3Region                     string         `json:"s3_region"`
	S3BaseEndpoint               string         `json:"s3_base_endpoint"`
	S3PresignExpiry              timex.Duration `json:"s3_presign_expiry"`
}

// parseJson loads the file named by -c/-config into config. Without the
// flag nothing happens. Unreadable or malformed files panic.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	err = json.Unmarshal(file, c)
	if err != nil {
		panic(err)
	}

	config.EndpointAddrGRPC = c.EndpointAddrGRPC
	config.DatabaseDSN = c.DatabaseDSN
	config.SecretKey = c.SecretKey
	config.AccessTokenValidityDuration = c.AccessTokenValidityDuration.Duration
	config.RefreshTokenValidityDuration = c.RefreshTokenValidityDuration.Duration
	config.S3RootUser = c.S3RootUser
	config.S3RootPassword = c.S3RootPassword
	config.S3Bucket = c.S3Bucket
	config.S3Region = c.S3Region
	config.S3BaseEndpoint = c.S3BaseEndpoint

	if c.MaxFailedAttempts > 0 {
		config.MaxFailedAttempts = c.MaxFailedAttempts
	}
	if c.LockoutDuration.Duration > 0 {
		config.LockoutDuration = c.LockoutDuration.Duration
	}
	if c.RecoveryTicketTTL.Duration > 0 {
		config.RecoveryTicketTTL = c.RecoveryTicketTTL.Duration
	}
	if c.RequireRecoveryTicket != nil {
		config.RequireRecoveryTicket = *c.RequireRecoveryTicket
	}
	if c.AuthRateLimit > 0 {
		config.AuthRateLimit = c.AuthRateLimit
	}
	if c.AuthRateBurst > 0 {
		config.AuthRateBurst = c.AuthRateBurst
	}
	if c.S3PresignExpiry.Duration > 0 {
		config.S3PresignExpiry = c.S3PresignExpiry.Duration
	}
}
