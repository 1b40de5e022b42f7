package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/axiscapital/vault/internal/flagx"
	"github.com/axiscapital/vault/internal/timex"
)

// JsonConfig is the on-disk JSON form of Config. Durations accept either
// Go duration strings ("24h") or integer nanoseconds. Keys absent from the
// file leave the current values in place.
type JsonConfig struct {
	HTTPAddr       string         `json:"http_addr"`
	DatabaseDSN    string         `json:"database_dsn"`
	JWTSecretKey   string         `json:"jwt_secret_key"`
	JWTAlgorithm   string         `json:"jwt_algorithm"`
	AccessTokenTTL timex.Duration `json:"access_token_ttl"`
	EncryptionKey  string         `json:"encryption_key"`
	RedisURL       string         `json:"redis_url"`
	RequestTimeout timex.Duration `json:"request_timeout"`
	LogFormat      string         `json:"log_format"`
	LogLevel       string         `json:"log_level"`
	Env            string         `json:"env"`
}

// parseJSON overlays values from the file named by -c/-config, if any.
func parseJSON(config *Config, args []string) error {
	path := flagx.JSONConfigPath(args)
	if path == "" {
		return nil
	}

	file, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}

	setString(&config.HTTPAddr, c.HTTPAddr)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.JWTSecretKey, c.JWTSecretKey)
	setString(&config.JWTAlgorithm, c.JWTAlgorithm)
	setString(&config.EncryptionKey, c.EncryptionKey)
	setString(&config.RedisURL, c.RedisURL)
	setString(&config.LogFormat, c.LogFormat)
	setString(&config.LogLevel, c.LogLevel)
	setString(&config.Env, c.Env)

	if c.AccessTokenTTL.Duration > 0 {
		config.AccessTokenTTL = c.AccessTokenTTL.Duration
	}
	if c.RequestTimeout.Duration > 0 {
		config.RequestTimeout = c.RequestTimeout.Duration
	}

	return nil
}
