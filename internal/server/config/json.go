package config

import (
	"encoding/json"
	"os"

	"github.com/comfort-stereo/gatekeeper/internal/flagx"
	"github.com/comfort-stereo/gatekeeper/internal/timex"
)

// JsonConfig is an intermediate DTO used only for reading JSON configuration
// files. It uses timex.Duration for interval fields, which parses both
// string values such as "30s" and integer nanoseconds. Pointer fields let
// the overlay distinguish "absent" from "zero".
type JsonConfig struct {
	EndpointAddr                     *string         `json:"endpoint_addr"`
	DatabaseDSN                      *string         `json:"database_dsn"`
	RedisURL                         *string         `json:"redis_url"`
	SessionTokenValidityDuration     *timex.Duration `json:"session_token_validity_duration"`
	VerificationCodeValidityDuration *timex.Duration `json:"verification_code_validity_duration"`
	PasswordHashCost                 *int            `json:"password_hash_cost"`
	PasswordMinEntropyBits           *float64        `json:"password_min_entropy_bits"`
	StoreCallTimeout                 *timex.Duration `json:"store_call_timeout"`
	SMTPHost                         *string         `json:"smtp_host"`
	SMTPPort                         *int            `json:"smtp_port"`
	SMTPUsername                     *string         `json:"smtp_username"`
	SMTPPassword                     *string         `json:"smtp_password"`
	SMTPFrom                         *string         `json:"smtp_from"`
}

// parseJson loads configuration values from a JSON file into the provided
// Config instance. The file path comes from the -c or -config command-line
// flags; if neither is set, no JSON file is loaded. An unreadable or invalid
// file panics: starting with half-applied configuration is worse than not
// starting.
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

	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	if c.EndpointAddr != nil {
		config.EndpointAddr = *c.EndpointAddr
	}
	if c.DatabaseDSN != nil {
		config.DatabaseDSN = *c.DatabaseDSN
	}
	if c.RedisURL != nil {
		config.RedisURL = *c.RedisURL
	}
	if c.SessionTokenValidityDuration != nil {
		config.SessionTokenValidityDuration = c.SessionTokenValidityDuration.Duration
	}
	if c.VerificationCodeValidityDuration != nil {
		config.VerificationCodeValidityDuration = c.VerificationCodeValidityDuration.Duration
	}
	if c.PasswordHashCost != nil {
		config.PasswordHashCost = *c.PasswordHashCost
	}
	if c.PasswordMinEntropyBits != nil {
		config.PasswordMinEntropyBits = *c.PasswordMinEntropyBits
	}
	if c.StoreCallTimeout != nil {
		config.StoreCallTimeout = c.StoreCallTimeout.Duration
	}
	if c.SMTPHost != nil {
		config.SMTPHost = *c.SMTPHost
	}
	if c.SMTPPort != nil {
		config.SMTPPort = *c.SMTPPort
	}
	if c.SMTPUsername != nil {
		config.SMTPUsername = *c.SMTPUsername
	}
	if c.SMTPPassword != nil {
		config.SMTPPassword = *c.SMTPPassword
	}
	if c.SMTPFrom != nil {
		config.SMTPFrom = *c.SMTPFrom
	}
}
