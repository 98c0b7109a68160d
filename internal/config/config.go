package config

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config holds runtime configuration sourced from env vars.
type Config struct {
	ListenAddr  string
	MetricsAddr string
	DataDir     string
	JWTSecret   string
	JWTIssuer   string
	JWTTTL      time.Duration
	SnapshotKey string
}

// Load reads configuration from the environment and performs minimal
// validation. SNAPSHOT_KEY is optional; without it the account snapshot is
// written without a checksum sidecar.
func Load() (Config, error) {
	cfg := Config{
		ListenAddr:  fallback(os.Getenv("LISTEN_ADDR"), ":8080"),
		MetricsAddr: fallback(os.Getenv("METRICS_ADDR"), ":9090"),
		DataDir:     fallback(os.Getenv("DATA_DIR"), "data"),
		JWTSecret:   strings.TrimSpace(os.Getenv("JWT_SECRET")),
		JWTIssuer:   fallback(os.Getenv("JWT_ISSUER"), "blibank"),
		SnapshotKey: strings.TrimSpace(os.Getenv("SNAPSHOT_KEY")),
	}

	minutes := fallback(os.Getenv("JWT_TTL_MINUTES"), "60")
	if ttlMinutes, err := strconv.Atoi(minutes); err == nil && ttlMinutes > 0 {
		cfg.JWTTTL = time.Duration(ttlMinutes) * time.Minute
	} else {
		cfg.JWTTTL = 60 * time.Minute
	}

	if cfg.JWTSecret == "" {
		return Config{}, errors.New("JWT_SECRET is required")
	}

	return cfg, nil
}

// AccountsPath is the account snapshot file inside the data dir.
func (c Config) AccountsPath() string {
	return filepath.Join(c.DataDir, "usuarios_BliBank.csv")
}

// StatementsDir is where per-client statement files live.
func (c Config) StatementsDir() string {
	return filepath.Join(c.DataDir, "faturas")
}

func fallback(value, def string) string {
	if strings.TrimSpace(value) == "" {
		return def
	}
	return strings.TrimSpace(value)
}
