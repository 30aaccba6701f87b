package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	// Network settings
	Network   string `mapstructure:"network" yaml:"network"`
	RPCUrl    string `mapstructure:"rpc_url" yaml:"rpc_url"`
	RPCAPIKey string `mapstructure:"rpc_api_key" yaml:"rpc_api_key"`

	// Bot transport settings
	BotToken string `mapstructure:"bot_token" yaml:"bot_token"`

	// Fee payer / collector settings
	FeePayerSecret string `mapstructure:"fee_payer_secret" yaml:"fee_payer_secret"`
	FeeCollector   string `mapstructure:"fee_collector" yaml:"fee_collector"`

	// Storage settings
	DBPath string `mapstructure:"db_path" yaml:"db_path"`

	Fees     FeeConfig      `mapstructure:"fees" yaml:"fees"`
	Scan     ScanConfig     `mapstructure:"scan" yaml:"scan"`
	Batch    BatchConfig    `mapstructure:"batch" yaml:"batch"`
	Metadata MetadataConfig `mapstructure:"metadata" yaml:"metadata"`
	Logging  LoggingConfig  `mapstructure:"logging" yaml:"logging"`
}

// FeeConfig contains service-fee settings
type FeeConfig struct {
	Rate          float64 `mapstructure:"rate" yaml:"rate"`
	DustLamports  uint64  `mapstructure:"dust_lamports" yaml:"dust_lamports"`
	MinimumRent   uint64  `mapstructure:"minimum_rent" yaml:"minimum_rent"`
	EstimatedRent uint64  `mapstructure:"estimated_rent" yaml:"estimated_rent"`
}

// ScanConfig contains account-scan settings
type ScanConfig struct {
	StalenessWindowHours int `mapstructure:"staleness_window_hours" yaml:"staleness_window_hours"`
	SignatureProbeLimit  int `mapstructure:"signature_probe_limit" yaml:"signature_probe_limit"`
}

// BatchConfig contains batch submission settings
type BatchConfig struct {
	BurnBatchSize         int `mapstructure:"burn_batch_size" yaml:"burn_batch_size"`
	CloseBatchSize        int `mapstructure:"close_batch_size" yaml:"close_batch_size"`
	MaxSendRetries        int `mapstructure:"max_send_retries" yaml:"max_send_retries"`
	ConfirmPollAttempts   int `mapstructure:"confirm_poll_attempts" yaml:"confirm_poll_attempts"`
	ConfirmPollIntervalMs int `mapstructure:"confirm_poll_interval_ms" yaml:"confirm_poll_interval_ms"`
}

// MetadataConfig contains token metadata resolver settings
type MetadataConfig struct {
	RegistryTimeoutMs int `mapstructure:"registry_timeout_ms" yaml:"registry_timeout_ms"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Format      string `mapstructure:"format" yaml:"format"`
	LogToFile   bool   `mapstructure:"log_to_file" yaml:"log_to_file"`
	LogFilePath string `mapstructure:"log_file_path" yaml:"log_file_path"`
}

// LoadConfig loads configuration from file and environment variables
func LoadConfig(configPath string, envPath string) (*Config, error) {
	config := &Config{}

	if err := loadEnvFile(envPath); err != nil {
		fmt.Printf("Warning: Failed to load .env file: %v\n", err)
	}

	setDefaults()

	if configPath != "" {
		viper.SetConfigFile(configPath)
	} else {
		viper.SetConfigName("solbeck")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("./configs")
		viper.AddConfigPath("/etc/solbeck/")
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("SOLBECK")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	bindEnvVariables()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// loadEnvFile loads environment variables from a .env file
func loadEnvFile(envPath string) error {
	candidates := []string{envPath, ".env", "configs/.env"}
	for _, file := range candidates {
		if file == "" {
			continue
		}
		if _, err := os.Stat(file); err == nil {
			return godotenv.Load(file)
		}
	}
	return nil
}

func setDefaults() {
	viper.SetDefault("network", "mainnet")
	viper.SetDefault("db_path", "solbeck.db")

	viper.SetDefault("fees.rate", DefaultFeeRate)
	viper.SetDefault("fees.dust_lamports", DefaultDustThresholdLamports)
	viper.SetDefault("fees.minimum_rent", MinimumRentLamports)
	viper.SetDefault("fees.estimated_rent", TokenAccountRentLamports)

	viper.SetDefault("scan.staleness_window_hours", DefaultStalenessWindowHours)
	viper.SetDefault("scan.signature_probe_limit", DefaultSignatureProbeLimit)

	viper.SetDefault("batch.burn_batch_size", DefaultBurnBatchSize)
	viper.SetDefault("batch.close_batch_size", DefaultCloseBatchSize)
	viper.SetDefault("batch.max_send_retries", DefaultMaxSendRetries)
	viper.SetDefault("batch.confirm_poll_attempts", DefaultConfirmPollAttempts)
	viper.SetDefault("batch.confirm_poll_interval_ms", DefaultConfirmPollMs)

	viper.SetDefault("metadata.registry_timeout_ms", DefaultRegistryTimeoutMs)

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "custom")
	viper.SetDefault("logging.log_to_file", false)
	viper.SetDefault("logging.log_file_path", "logs/solbeck.log")
}

// bindEnvVariables binds the environment variables viper's replacer misses
func bindEnvVariables() {
	bindings := map[string]string{
		"bot_token":        "BOT_TOKEN",
		"fee_payer_secret": "FEE_PAYER_SECRET",
		"fee_collector":    "FEE_COLLECTOR",
		"rpc_url":          "RPC_URL",
		"rpc_api_key":      "RPC_API_KEY",
		"db_path":          "DB_PATH",
		"network":          "NETWORK",
		"logging.level":    "LOG_LEVEL",
	}
	for key, env := range bindings {
		_ = viper.BindEnv(key, env)
	}
}

// validateConfig checks every startup-required value; absence is fatal.
func validateConfig(c *Config) error {
	var missing []string
	if c.BotToken == "" {
		missing = append(missing, "BOT_TOKEN")
	}
	if c.FeePayerSecret == "" {
		missing = append(missing, "FEE_PAYER_SECRET")
	}
	if c.FeeCollector == "" {
		missing = append(missing, "FEE_COLLECTOR")
	}
	if c.RPCUrl == "" {
		c.RPCUrl = GetRPCEndpoint(c.Network)
	}
	if len(missing) > 0 {
		return fmt.Errorf("required environment variables are missing: %s", strings.Join(missing, ", "))
	}

	if c.Fees.Rate < 0 || c.Fees.Rate >= 1 {
		return fmt.Errorf("fee rate must be in [0, 1), got %v", c.Fees.Rate)
	}
	if c.Batch.BurnBatchSize <= 0 || c.Batch.CloseBatchSize <= 0 {
		return fmt.Errorf("batch sizes must be positive")
	}
	if c.Batch.ConfirmPollAttempts <= 0 || c.Batch.ConfirmPollIntervalMs <= 0 {
		return fmt.Errorf("confirmation polling parameters must be positive")
	}
	return nil
}

// StalenessWindow returns the activity staleness window as a duration
func (c *Config) StalenessWindow() time.Duration {
	return time.Duration(c.Scan.StalenessWindowHours) * time.Hour
}

// ConfirmPollInterval returns the confirmation poll interval as a duration
func (c *Config) ConfirmPollInterval() time.Duration {
	return time.Duration(c.Batch.ConfirmPollIntervalMs) * time.Millisecond
}

// RegistryTimeout returns the token registry lookup timeout as a duration
func (c *Config) RegistryTimeout() time.Duration {
	return time.Duration(c.Metadata.RegistryTimeoutMs) * time.Millisecond
}
