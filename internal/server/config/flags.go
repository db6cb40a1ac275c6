package config

import (
	"flag"
	"os"
	"time"

	"github.com/comfort-stereo/gatekeeper/internal/flagx"
)

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":8080")
//	-d string   PostgreSQL DSN
//	-r string   Redis URL
//	-t int      session token validity, minutes
//	-e int      verification code validity, minutes
//	-p int      bcrypt hash cost
//
// The function first filters os.Args to only the flags it recognizes using
// flagx.FilterArgs, avoiding collisions with other packages. Duration flags
// are accepted as integers in minutes. SMTP settings have no flags; use the
// JSON file or environment for those.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-d", "-r", "-t", "-e", "-p"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddr, "a", config.EndpointAddr, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.RedisURL, "r", config.RedisURL, "redis URL")

	sessionTokenValidity := fs.Int("t", int(config.SessionTokenValidityDuration.Minutes()), "session_token_validity_duration (in minutes)")
	verificationCodeValidity := fs.Int("e", int(config.VerificationCodeValidityDuration.Minutes()), "verification_code_validity_duration (in minutes)")

	fs.IntVar(&config.PasswordHashCost, "p", config.PasswordHashCost, "bcrypt hash cost")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.SessionTokenValidityDuration = time.Duration(*sessionTokenValidity) * time.Minute
	config.VerificationCodeValidityDuration = time.Duration(*verificationCodeValidity) * time.Minute
}
