package config

import (
	"flag"
	"fmt"
	"time"

	"github.com/axiscapital/vault/internal/flagx"
)

// ValueFlags lists every flag owned by the config layer that takes a value,
// including -c/-config. Commands use it to find their positional arguments.
var ValueFlags = []string{"-a", "-d", "-s", "-j", "-t", "-k", "-r", "-l", "-f", "-c", "-config"}

// parseFlags overlays values from command-line flags:
//
//	-a string   HTTP bind address (e.g. ":8000")
//	-d string   PostgreSQL DSN
//	-s string   JWT HMAC secret key
//	-j string   JWT algorithm (HS256, HS384, HS512)
//	-t int      access token lifetime, minutes
//	-k string   secret encryption key, 64 hex characters
//	-r string   Redis URL for token revocation
//	-l string   log level
//	-f string   log format (json, text, zap)
//
// Arguments not in this list are ignored, so subcommands and their own
// positionals can share the argument slice.
func parseFlags(config *Config, args []string) error {
	filtered := flagx.FilterArgs(args, []string{"-a", "-d", "-s", "-j", "-t", "-k", "-r", "-l", "-f"})

	fs := flag.NewFlagSet("vault", flag.ContinueOnError)

	fs.StringVar(&config.HTTPAddr, "a", config.HTTPAddr, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.JWTSecretKey, "s", config.JWTSecretKey, "jwt secret key")
	fs.StringVar(&config.JWTAlgorithm, "j", config.JWTAlgorithm, "jwt algorithm")
	ttl := fs.Int("t", int(config.AccessTokenTTL.Minutes()), "access token ttl (in minutes)")
	fs.StringVar(&config.EncryptionKey, "k", config.EncryptionKey, "encryption key (hex)")
	fs.StringVar(&config.RedisURL, "r", config.RedisURL, "redis url")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")
	fs.StringVar(&config.LogFormat, "f", config.LogFormat, "log format")

	if err := fs.Parse(filtered); err != nil {
		return fmt.Errorf("parsing flags: %w", err)
	}

	fs.Visit(func(f *flag.Flag) {
		if f.Name == "t" {
			config.AccessTokenTTL = time.Duration(*ttl) * time.Minute
		}
	})

	return nil
}
