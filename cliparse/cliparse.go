// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package cliparse

import (
	"errors"
	"flag"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port         int
	DatabaseURL  string
	DatabaseType string
	TokenSecret  string
	ClientOrigin string

	// Realtime tunables. Zero values are replaced with defaults.
	StaleConnTimeout time.Duration
	RoomRetention    time.Duration
	SweepInterval    time.Duration
	LatencyInterval  time.Duration
	TypingExpiry     time.Duration
	SendQueueSize    int
	MaxMessageBytes  int64
}

const (
	defaultPort             = 3419
	defaultStaleConnTimeout = 5 * time.Minute
	defaultRoomRetention    = 15 * time.Minute
	defaultSweepInterval    = time.Minute
	defaultLatencyInterval  = 30 * time.Second
	defaultTypingExpiry     = 3 * time.Second
	defaultSendQueueSize    = 256
	defaultMaxMessageBytes  = 64 * 1024
)

// ParseFlags validates flags and fills in configuration.
// A .env file in the working directory is loaded first, so env
// fallbacks behave the same in dev and in containers.
func ParseFlags(args []string) (Config, error) {
	// A missing .env is fine; env vars may come from the real environment.
	_ = godotenv.Load()

	var cfg Config

	fs := flag.NewFlagSet("openfloor", flag.ContinueOnError)

	// Network config (can be CLI args or env)
	fs.IntVar(&cfg.Port, "p", 0, "Server port")
	fs.StringVar(&cfg.DatabaseURL, "d", "", "Database URL")
	fs.StringVar(&cfg.DatabaseType, "t", "", "Database type (sqlite or postgres)")
	fs.StringVar(&cfg.ClientOrigin, "origin", "", "Allowed browser origin for websocket upgrades")

	// Secrets (prefer env variables, but allow CLI for dev)
	fs.StringVar(&cfg.TokenSecret, "token-secret", "", "Session token HMAC secret (prefer env)")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	// Fall back to environment variables
	if cfg.Port == 0 {
		if portStr := os.Getenv("PORT"); portStr != "" {
			port, err := strconv.Atoi(portStr)
			if err != nil {
				return Config{}, errors.New("invalid PORT env variable")
			}
			cfg.Port = port
		} else {
			cfg.Port = defaultPort
		}
	}
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if cfg.DatabaseURL == "" {
		return Config{}, errors.New("database URL required (use -d or DATABASE_URL env)")
	}

	if cfg.DatabaseType == "" {
		cfg.DatabaseType = os.Getenv("DATABASE_TYPE")
		if cfg.DatabaseType == "" {
			cfg.DatabaseType = "sqlite"
		}
	}
	if cfg.DatabaseType != "sqlite" && cfg.DatabaseType != "postgres" {
		return Config{}, errors.New("database type must be sqlite or postgres")
	}

	if cfg.ClientOrigin == "" {
		cfg.ClientOrigin = os.Getenv("CLIENT_ORIGIN")
	}

	// Secrets - MUST be provided
	if cfg.TokenSecret == "" {
		cfg.TokenSecret = os.Getenv("TOKEN_SECRET")
	}
	if cfg.TokenSecret == "" {
		return Config{}, errors.New("TOKEN_SECRET required")
	}

	cfg.ApplyDefaults()
	return cfg, nil
}

// ApplyDefaults fills zero-valued realtime tunables. Exposed so tests
// can build a Config without going through flag parsing.
func (cfg *Config) ApplyDefaults() {
	if cfg.StaleConnTimeout == 0 {
		cfg.StaleConnTimeout = defaultStaleConnTimeout
	}
	if cfg.RoomRetention == 0 {
		cfg.RoomRetention = defaultRoomRetention
	}
	if cfg.SweepInterval == 0 {
		cfg.SweepInterval = defaultSweepInterval
	}
	if cfg.LatencyInterval == 0 {
		cfg.LatencyInterval = defaultLatencyInterval
	}
	if cfg.TypingExpiry == 0 {
		cfg.TypingExpiry = defaultTypingExpiry
	}
	if cfg.SendQueueSize == 0 {
		cfg.SendQueueSize = defaultSendQueueSize
	}
	if cfg.MaxMessageBytes == 0 {
		cfg.MaxMessageBytes = defaultMaxMessageBytes
	}
}
