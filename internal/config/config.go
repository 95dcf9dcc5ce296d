package config

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Config represents the guildhubd config file.
type Config struct {
	ListenAddr     string   `toml:"listen_addr"`
	DBPath         string   `toml:"db_path"`
	LogPath        string   `toml:"log_path"`
	AllowedOrigins []string `toml:"allowed_origins"`

	// JWTSecret is never read from the file; it comes from the
	// GUILDHUB_JWT_SECRET environment variable (a .env file is honored).
	JWTSecret string `toml:"-"`
}

// ErrNoSecret indicates GUILDHUB_JWT_SECRET is unset.
var ErrNoSecret = errors.New("GUILDHUB_JWT_SECRET is not set")

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		ListenAddr:     ":8090",
		DBPath:         "guildhub.db",
		LogPath:        "guildhubd.log",
		AllowedOrigins: []string{"http://localhost:3000", "http://127.0.0.1:3000"},
	}
}

// Load reads config from the given path, falling back to defaults when the
// file is absent, then applies environment overrides. A .env file in the
// working directory is loaded first if present.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	if path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			if !os.IsNotExist(err) {
				return nil, err
			}
		}
	}

	if addr := os.Getenv("GUILDHUB_LISTEN_ADDR"); addr != "" {
		cfg.ListenAddr = addr
	}
	if db := os.Getenv("GUILDHUB_DB_PATH"); db != "" {
		cfg.DBPath = db
	}

	cfg.JWTSecret = os.Getenv("GUILDHUB_JWT_SECRET")
	if cfg.JWTSecret == "" {
		return nil, ErrNoSecret
	}
	return cfg, nil
}

// Save writes config to the given path, creating parent dirs as needed.
// The JWT secret is never written.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	encErr := toml.NewEncoder(f).Encode(cfg)
	if closeErr := f.Close(); closeErr != nil && encErr == nil {
		return closeErr
	}
	return encErr
}
