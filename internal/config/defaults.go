package config

// Default chain endpoints. Operators override per deployment; the defaults
// point at the public mainnet endpoints the service launched with.
const (
	defaultEVMRPC     = "https://rpc.ankr.com/electroneum"
	defaultBinanceRPC = "https://bsc-dataseed.binance.org"
	defaultPolygonRPC = "https://rpc-mainnet.matic.network"
	defaultSolanaRPC  = "https://api.mainnet-beta.solana.com"

	defaultRPCTimeoutSeconds = 30
	defaultSessionTTLMinutes = 5

	defaultNotifyBaseURL = "https://api.africastalking.com/version1/messaging"
)

// Defaults returns the default configuration.
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Listen: ":8080",
		},
		Store: StoreConfig{
			MongoURI:  "mongodb://localhost:27017",
			Database:  "records",
			SessionDB: ":memory:",
		},
		Networks: NetworksConfig{
			EVM: NetworkConfig{
				Enabled:        true,
				RPC:            defaultEVMRPC,
				ChainID:        52014,
				TimeoutSeconds: defaultRPCTimeoutSeconds,
			},
			Binance: NetworkConfig{
				Enabled:        true,
				RPC:            defaultBinanceRPC,
				ChainID:        56,
				TimeoutSeconds: defaultRPCTimeoutSeconds,
			},
			Polygon: NetworkConfig{
				Enabled:        true,
				RPC:            defaultPolygonRPC,
				ChainID:        137,
				TimeoutSeconds: defaultRPCTimeoutSeconds,
			},
			Solana: NetworkConfig{
				Enabled:        true,
				RPC:            defaultSolanaRPC,
				TimeoutSeconds: defaultRPCTimeoutSeconds,
			},
		},
		Security: SecurityConfig{
			SessionTTLMinutes: defaultSessionTTLMinutes,
		},
		Notify: NotifyConfig{
			BaseURL:  defaultNotifyBaseURL,
			RatePerS: 5,
			Burst:    10,
		},
		Logging: LoggingConfig{
			Level: "error",
		},
	}
}
