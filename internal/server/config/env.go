package config

import (
	"time"

	"github.com/caarlos0/env/v11"
)

// EnvConfig mirrors Config for the environment overlay. Pointer fields stay
// nil when the variable is unset, so only variables that are actually
// present override earlier layers.
type EnvConfig struct {
	EndpointAddr                     *string        `env:"ADDRESS"`
	DatabaseDSN                      *string        `env:"DATABASE_DSN"`
	RedisURL                         *string        `env:"REDIS_URL"`
	SessionTokenValidityDuration     *time.Duration `env:"SESSION_TOKEN_TTL"`
	VerificationCodeValidityDuration *time.Duration `env:"VERIFICATION_CODE_TTL"`
	PasswordHashCost                 *int           `env:"PASSWORD_HASH_COST"`
	PasswordMinEntropyBits           *float64       `env:"PASSWORD_MIN_ENTROPY_BITS"`
	StoreCallTimeout                 *time.Duration `env:"STORE_CALL_TIMEOUT"`
	SMTPHost                         *string        `env:"SMTP_HOST"`
	SMTPPort                         *int           `env:"SMTP_PORT"`
	SMTPUsername                     *string        `env:"SMTP_USERNAME"`
	SMTPPassword                     *string        `env:"SMTP_PASSWORD"`
	SMTPFrom                         *string        `env:"SMTP_FROM"`
}

// parseEnv overlays values from environment variables. Malformed values
// panic for the same reason malformed JSON does.
func parseEnv(config *Config) {
	c := &EnvConfig{}
	if err := env.Parse(c); err != nil {
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
		config.SessionTokenValidityDuration = *c.SessionTokenValidityDuration
	}
	if c.VerificationCodeValidityDuration != nil {
		config.VerificationCodeValidityDuration = *c.VerificationCodeValidityDuration
	}
	if c.PasswordHashCost != nil {
		config.PasswordHashCost = *c.PasswordHashCost
	}
	if c.PasswordMinEntropyBits != nil {
		config.PasswordMinEntropyBits = *c.PasswordMinEntropyBits
	}
	if c.StoreCallTimeout != nil {
		config.StoreCallTimeout = *c.StoreCallTimeout
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
