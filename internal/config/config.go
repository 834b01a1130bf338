package config

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	// Network settings
	Network   string `mapstructure:"network" yaml:"network"`
	RPCUrl    string `mapstructure:"rpc_url" yaml:"rpc_url"`
	WSUrl     string `mapstructure:"ws_url" yaml:"ws_url"`
	RPCAPIKey string `mapstructure:"rpc_api_key" yaml:"rpc_api_key"`

	// Wallet settings
	PrivateKey string `mapstructure:"private_key" yaml:"private_key"`
	Mnemonic   string `mapstructure:"mnemonic" yaml:"mnemonic"`

	// Fee settings
	Fee FeeConfig `mapstructure:"fee" yaml:"fee"`

	// Settlement settings
	Settle SettleConfig `mapstructure:"settle" yaml:"settle"`

	// Retry settings
	Retry RetryConfig `mapstructure:"retry" yaml:"retry"`

	// Confirmation settings
	Confirm ConfirmConfig `mapstructure:"confirm" yaml:"confirm"`

	// Metadata enrichment settings
	Metadata MetadataConfig `mapstructure:"metadata" yaml:"metadata"`

	// Logging settings
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
}

// FeeConfig contains claim-fee settings
type FeeConfig struct {
	BasisPoints uint64 `mapstructure:"basis_points" yaml:"basis_points"`
	Treasury    string `mapstructure:"treasury" yaml:"treasury"`
}

// SettleConfig contains settlement settings
type SettleConfig struct {
	BatchSize int  `mapstructure:"batch_size" yaml:"batch_size"`
	DryRun    bool `mapstructure:"dry_run" yaml:"dry_run"`
}

// RetryConfig contains retry/backoff settings for rate-limited RPC calls
type RetryConfig struct {
	MaxAttempts int `mapstructure:"max_attempts" yaml:"max_attempts"`
	BaseDelayMs int `mapstructure:"base_delay_ms" yaml:"base_delay_ms"`
	MaxJitterMs int `mapstructure:"max_jitter_ms" yaml:"max_jitter_ms"`
}

// ConfirmConfig contains transaction confirmation settings
type ConfirmConfig struct {
	PollIntervalMs int  `mapstructure:"poll_interval_ms" yaml:"poll_interval_ms"`
	TimeoutSec     int  `mapstructure:"timeout_sec" yaml:"timeout_sec"`
	UseWebsocket   bool `mapstructure:"use_websocket" yaml:"use_websocket"`
}

// MetadataConfig contains token metadata enrichment settings
type MetadataConfig struct {
	TokenListSources []string `mapstructure:"token_list_sources" yaml:"token_list_sources"`
	FetchTimeoutMs   int      `mapstructure:"fetch_timeout_ms" yaml:"fetch_timeout_ms"`
	CacheSize        int      `mapstructure:"cache_size" yaml:"cache_size"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Format      string `mapstructure:"format" yaml:"format"`
	LogToFile   bool   `mapstructure:"log_to_file" yaml:"log_to_file"`
	LogFilePath string `mapstructure:"log_file_path" yaml:"log_file_path"`
	ClaimLogDir string `mapstructure:"claim_log_dir" yaml:"claim_log_dir"`
}

// LoadConfig loads configuration from file and environment variables
func LoadConfig(configPath string, envPath string) (*Config, error) {
	config := &Config{}

	// Load .env file first so env overrides see its values
	if err := loadEnvFile(envPath); err != nil && envPath != "" {
		return nil, err
	}

	setDefaults()

	// Set config file path
	if configPath != "" {
		viper.SetConfigFile(configPath)
	} else {
		viper.SetConfigName("reclaim")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("./configs")
		viper.AddConfigPath("$HOME/.rent-reclaim")
	}

	// Enable reading from environment variables
	viper.AutomaticEnv()
	viper.SetEnvPrefix("RECLAIM")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	bindEnvVariables()

	// Read config file
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found, continue with defaults and env vars
	}

	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	viper.SetDefault("network", "mainnet")
	viper.SetDefault("rpc_url", SolanaMainnetRPC)
	viper.SetDefault("ws_url", SolanaMainnetWS)

	viper.SetDefault("fee.basis_points", DefaultFeeBasisPoints)
	viper.SetDefault("fee.treasury", DefaultFeeTreasury.String())

	viper.SetDefault("settle.batch_size", MaxClosesPerTx)
	viper.SetDefault("settle.dry_run", false)

	viper.SetDefault("retry.max_attempts", DefaultRetryAttempts)
	viper.SetDefault("retry.base_delay_ms", DefaultRetryBaseMs)
	viper.SetDefault("retry.max_jitter_ms", DefaultRetryJitterMs)

	viper.SetDefault("confirm.poll_interval_ms", DefaultConfirmPollMs)
	viper.SetDefault("confirm.timeout_sec", DefaultConfirmTimeoutSec)
	viper.SetDefault("confirm.use_websocket", false)

	viper.SetDefault("metadata.token_list_sources", DefaultTokenListSources)
	viper.SetDefault("metadata.fetch_timeout_ms", DefaultMetaFetchTimeoutMs)
	viper.SetDefault("metadata.cache_size", DefaultMetaCacheSize)

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "text")
	viper.SetDefault("logging.log_to_file", false)
	viper.SetDefault("logging.claim_log_dir", "")
}

// bindEnvVariables manually binds nested keys that viper might miss
func bindEnvVariables() {
	viper.BindEnv("network", "RECLAIM_NETWORK")
	viper.BindEnv("rpc_url", "RECLAIM_RPC_URL")
	viper.BindEnv("ws_url", "RECLAIM_WS_URL")
	viper.BindEnv("rpc_api_key", "RECLAIM_RPC_API_KEY")
	viper.BindEnv("private_key", "RECLAIM_PRIVATE_KEY")
	viper.BindEnv("mnemonic", "RECLAIM_MNEMONIC")

	viper.BindEnv("fee.basis_points", "RECLAIM_FEE_BASIS_POINTS")
	viper.BindEnv("fee.treasury", "RECLAIM_FEE_TREASURY")

	viper.BindEnv("settle.batch_size", "RECLAIM_SETTLE_BATCH_SIZE")
	viper.BindEnv("settle.dry_run", "RECLAIM_SETTLE_DRY_RUN")

	viper.BindEnv("retry.max_attempts", "RECLAIM_RETRY_MAX_ATTEMPTS")
	viper.BindEnv("retry.base_delay_ms", "RECLAIM_RETRY_BASE_DELAY_MS")
	viper.BindEnv("retry.max_jitter_ms", "RECLAIM_RETRY_MAX_JITTER_MS")

	viper.BindEnv("confirm.poll_interval_ms", "RECLAIM_CONFIRM_POLL_INTERVAL_MS")
	viper.BindEnv("confirm.timeout_sec", "RECLAIM_CONFIRM_TIMEOUT_SEC")
	viper.BindEnv("confirm.use_websocket", "RECLAIM_CONFIRM_USE_WEBSOCKET")

	viper.BindEnv("metadata.fetch_timeout_ms", "RECLAIM_METADATA_FETCH_TIMEOUT_MS")
	viper.BindEnv("metadata.cache_size", "RECLAIM_METADATA_CACHE_SIZE")

	viper.BindEnv("logging.level", "RECLAIM_LOGGING_LEVEL")
	viper.BindEnv("logging.format", "RECLAIM_LOGGING_FORMAT")
	viper.BindEnv("logging.log_to_file", "RECLAIM_LOGGING_LOG_TO_FILE")
	viper.BindEnv("logging.claim_log_dir", "RECLAIM_LOGGING_CLAIM_LOG_DIR")
}

// loadEnvFile loads environment variables from a .env file
func loadEnvFile(envPath string) error {
	candidates := []string{".env", "./.env", "configs/.env"}
	if envPath != "" {
		candidates = append([]string{envPath}, candidates...)
	}

	var envFile string
	for _, file := range candidates {
		if _, err := os.Stat(file); err == nil {
			envFile = file
			break
		}
	}
	if envFile == "" {
		if envPath != "" {
			return fmt.Errorf("specified .env file not found: %s", envPath)
		}
		return nil
	}

	file, err := os.Open(envFile)
	if err != nil {
		return fmt.Errorf("failed to open .env file: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		// Remove surrounding quotes if present
		if len(value) >= 2 {
			if (strings.HasPrefix(value, `"`) && strings.HasSuffix(value, `"`)) ||
				(strings.HasPrefix(value, "'") && strings.HasSuffix(value, "'")) {
				value = value[1 : len(value)-1]
			}
		}

		os.Setenv(key, value)
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading .env file: %w", err)
	}
	return nil
}

// validateConfig validates configuration values
func validateConfig(config *Config) error {
	switch config.Network {
	case "mainnet", "devnet":
	default:
		return fmt.Errorf("invalid network %q (expected mainnet or devnet)", config.Network)
	}

	if config.RPCUrl == "" {
		return fmt.Errorf("rpc_url is required")
	}

	if config.Fee.BasisPoints > 10_000 {
		return fmt.Errorf("fee.basis_points %d exceeds 10000", config.Fee.BasisPoints)
	}
	if _, err := solana.PublicKeyFromBase58(config.Fee.Treasury); err != nil {
		return fmt.Errorf("invalid fee.treasury address: %w", err)
	}

	if config.Settle.BatchSize <= 0 {
		return fmt.Errorf("settle.batch_size must be positive")
	}
	if config.Retry.MaxAttempts <= 0 {
		return fmt.Errorf("retry.max_attempts must be positive")
	}
	if config.Confirm.PollIntervalMs <= 0 || config.Confirm.TimeoutSec <= 0 {
		return fmt.Errorf("confirm poll interval and timeout must be positive")
	}
	if len(config.Metadata.TokenListSources) == 0 {
		return fmt.Errorf("metadata.token_list_sources must not be empty")
	}

	return nil
}

// FeeTreasury returns the parsed fee treasury public key.
// validateConfig guarantees the address parses.
func (c *Config) FeeTreasury() solana.PublicKey {
	return solana.MustPublicKeyFromBase58(c.Fee.Treasury)
}
