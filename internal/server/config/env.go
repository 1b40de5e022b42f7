package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

// EnvConfig is the environment-variable view of Config. Variables that are
// unset leave the corresponding Config field untouched.
type EnvConfig struct {
	HTTPAddr        string        `env:"HTTP_ADDR"`
	DatabaseURL     string        `env:"DATABASE_URL"`
	JWTSecretKey    string        `env:"JWT_SECRET_KEY"`
	JWTAlgorithm    string        `env:"JWT_ALGORITHM"`
	TokenExpireMins int           `env:"ACCESS_TOKEN_EXPIRE_MINUTES"`
	EncryptionKey   string        `env:"ENCRYPTION_KEY"`
	RedisURL        string        `env:"REDIS_URL"`
	RequestTimeout  time.Duration `env:"REQUEST_TIMEOUT"`
	LogFormat       string        `env:"LOG_FORMAT"`
	LogLevel        string        `env:"LOG_LEVEL"`
	Env             string        `env:"ENV"`
}

// loadDotEnv exports the variables of a .env file into the process
// environment without overriding ones that are already set. A missing file
// is not an error.
func loadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

func parseEnv(ctx context.Context, config *Config, l envconfig.Lookuper) error {
	if l == nil {
		return nil
	}

	var e EnvConfig
	if err := envconfig.ProcessWith(ctx, &e, l); err != nil {
		return fmt.Errorf("parsing env vars: %w", err)
	}

	setString(&config.HTTPAddr, e.HTTPAddr)
	setString(&config.DatabaseDSN, e.DatabaseURL)
	setString(&config.JWTSecretKey, e.JWTSecretKey)
	setString(&config.JWTAlgorithm, e.JWTAlgorithm)
	setString(&config.EncryptionKey, e.EncryptionKey)
	setString(&config.RedisURL, e.RedisURL)
	setString(&config.LogFormat, e.LogFormat)
	setString(&config.LogLevel, e.LogLevel)
	setString(&config.Env, e.Env)

	if e.TokenExpireMins > 0 {
		config.AccessTokenTTL = time.Duration(e.TokenExpireMins) * time.Minute
	}
	if e.RequestTimeout > 0 {
		config.RequestTimeout = e.RequestTimeout
	}

	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
