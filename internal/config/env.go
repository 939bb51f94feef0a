package config

import (
	"github.com/kelseyhightower/envconfig"
)

// envPrefix is the prefix for all Cryptodial environment variables, e.g.
// CRYPTODIAL_MONGO_URI, CRYPTODIAL_ENCRYPTION_SALT, CRYPTODIAL_AT_API_KEY.
const envPrefix = "cryptodial"

// envOverrides collects the environment variables that may override file
// configuration. Secrets (salt, API key) are expected to arrive this way
// rather than through the YAML file.
type envOverrides struct {
	Listen string `envconfig:"LISTEN"`

	MongoURI  string `envconfig:"MONGO_URI"`
	Database  string `envconfig:"DATABASE"`
	SessionDB string `envconfig:"SESSION_DB"`

	EVMRPC     string `envconfig:"EVM_RPC"`
	BinanceRPC string `envconfig:"BINANCE_RPC"`
	PolygonRPC string `envconfig:"POLYGON_RPC"`
	SolanaRPC  string `envconfig:"SOLANA_RPC"`

	EncryptionSalt    string `envconfig:"ENCRYPTION_SALT"`
	SessionTTLMinutes int    `envconfig:"SESSION_TTL"`

	ATUsername string `envconfig:"AT_USERNAME"`
	ATAPIKey   string `envconfig:"AT_API_KEY"`

	LogLevel string `envconfig:"LOG_LEVEL"`
	LogFile  string `envconfig:"LOG_FILE"`
}

// ApplyEnvironment applies environment variable overrides to the configuration.
//
//nolint:gocyclo // Environment variable overrides require sequential checks
func ApplyEnvironment(cfg *Config) error {
	var env envOverrides
	if err := envconfig.Process(envPrefix, &env); err != nil {
		return err
	}

	if env.Listen != "" {
		cfg.Server.Listen = env.Listen
	}
	if env.MongoURI != "" {
		cfg.Store.MongoURI = env.MongoURI
	}
	if env.Database != "" {
		cfg.Store.Database = env.Database
	}
	if env.SessionDB != "" {
		cfg.Store.SessionDB = env.SessionDB
	}
	if env.EVMRPC != "" {
		cfg.Networks.EVM.RPC = env.EVMRPC
	}
	if env.BinanceRPC != "" {
		cfg.Networks.Binance.RPC = env.BinanceRPC
	}
	if env.PolygonRPC != "" {
		cfg.Networks.Polygon.RPC = env.PolygonRPC
	}
	if env.SolanaRPC != "" {
		cfg.Networks.Solana.RPC = env.SolanaRPC
	}
	if env.EncryptionSalt != "" {
		cfg.Security.EncryptionSalt = env.EncryptionSalt
	}
	if env.SessionTTLMinutes > 0 {
		cfg.Security.SessionTTLMinutes = env.SessionTTLMinutes
	}
	if env.ATUsername != "" {
		cfg.Notify.Username = env.ATUsername
	}
	if env.ATAPIKey != "" {
		cfg.Notify.APIKey = env.ATAPIKey
	}
	if env.LogLevel != "" {
		cfg.Logging.Level = env.LogLevel
	}
	if env.LogFile != "" {
		cfg.Logging.File = env.LogFile
	}

	return nil
}
