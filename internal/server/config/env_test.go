package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseEnv_OverridesOnlyPresentVariables(t *testing.T) {
	t.Setenv("ADDRESS", ":9999")
	t.Setenv("SESSION_TOKEN_TTL", "45m")
	t.Setenv("SMTP_PORT", "2525")

	config := &Config{}
	config.LoadDefaults()
	parseEnv(config)

	assert.Equal(t, ":9999", config.EndpointAddr)
	assert.Equal(t, 45*time.Minute, config.SessionTokenValidityDuration)
	assert.Equal(t, 2525, config.SMTPPort)

	// untouched by the overlay
	assert.Equal(t, "redis://localhost:6379/0", config.RedisURL)
	assert.Equal(t, 15*time.Minute, config.VerificationCodeValidityDuration)
	assert.Equal(t, 10, config.PasswordHashCost)
}

func TestParseEnv_NoVariablesSet(t *testing.T) {
	config := &Config{}
	config.LoadDefaults()

	expected := *config
	parseEnv(config)

	assert.Equal(t, expected, *config)
}
