// Package config provides configuration management for Cryptodial.
package config

import (
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Store    StoreConfig    `yaml:"store"`
	Networks NetworksConfig `yaml:"networks"`
	Security SecurityConfig `yaml:"security"`
	Notify   NotifyConfig   `yaml:"notify"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ServerConfig defines HTTP listener settings for the USSD callback endpoint.
type ServerConfig struct {
	Listen string `yaml:"listen"`
}

// StoreConfig defines persistence settings.
type StoreConfig struct {
	// MongoURI is the connection string for the wallet/ledger document store.
	MongoURI string `yaml:"mongo_uri"`
	// Database is the document-store database name.
	Database string `yaml:"database"`
	// SessionDB is the SQLite path for session rows. ":memory:" keeps
	// sessions for the process lifetime only, matching the phone-call scope.
	SessionDB string `yaml:"session_db"`
}

// NetworksConfig defines per-chain network settings.
type NetworksConfig struct {
	EVM     NetworkConfig `yaml:"evm"`
	Binance NetworkConfig `yaml:"binance"`
	Polygon NetworkConfig `yaml:"polygon"`
	Solana  NetworkConfig `yaml:"solana"`
}

// NetworkConfig defines a single chain endpoint.
type NetworkConfig struct {
	Enabled bool   `yaml:"enabled"`
	RPC     string `yaml:"rpc"`
	ChainID int64  `yaml:"chain_id,omitempty"`
	// TimeoutSeconds bounds every RPC call to this endpoint. A hung node
	// surfaces as a submission failure once this elapses.
	TimeoutSeconds int `yaml:"timeout_seconds"`
}

// Timeout returns the per-call RPC timeout as a duration.
func (n NetworkConfig) Timeout() time.Duration {
	if n.TimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(n.TimeoutSeconds) * time.Second
}

// SecurityConfig defines key-vault and session settings.
type SecurityConfig struct {
	// EncryptionSalt feeds the PIN key derivation. Operators set it via
	// CRYPTODIAL_ENCRYPTION_SALT; it must never be stored with records.
	EncryptionSalt    string `yaml:"encryption_salt,omitempty"`
	SessionTTLMinutes int    `yaml:"session_ttl_minutes"`
}

// SessionTTL returns the session lifetime as a duration.
func (s SecurityConfig) SessionTTL() time.Duration {
	if s.SessionTTLMinutes <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(s.SessionTTLMinutes) * time.Minute
}

// NotifyConfig defines SMS gateway settings.
type NotifyConfig struct {
	BaseURL  string  `yaml:"base_url"`
	Username string  `yaml:"username"`
	APIKey   string  `yaml:"api_key,omitempty"`
	From     string  `yaml:"from,omitempty"`
	RatePerS float64 `yaml:"rate_per_second"`
	Burst    int     `yaml:"burst"`
}

// LoggingConfig defines logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// Load reads configuration from the specified file, merges it over the
// defaults, then applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		// #nosec G304 -- config file path is operator-supplied
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	}

	if err := ApplyEnvironment(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes configuration to the specified file.
func Save(cfg *Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o600)
}

// DefaultPath returns the default config file path.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "cryptodial.yaml"
	}
	return filepath.Join(home, ".cryptodial", "config.yaml")
}
