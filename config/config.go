package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"power-token-exchange/logger"
)

type Config struct {
	Port           int    `mapstructure:"port"`
	AllowedOrigins string `mapstructure:"allowed_origins"`
	ServiceToken   string `mapstructure:"service_token"`

	DatabaseURL   string `mapstructure:"database_url"`
	AuthURL       string `mapstructure:"auth_url"`
	AuthAnonKey   string `mapstructure:"auth_anon_key"`
	AuthJWTSecret string `mapstructure:"auth_jwt_secret"`

	LocalStorePath  string `mapstructure:"local_store_path"`
	StartingBalance string `mapstructure:"starting_balance"`
	SeedDemoData    bool   `mapstructure:"seed_demo_data"`

	EthRPCURL        string `mapstructure:"eth_rpc_url"`
	WalletRPCURL     string `mapstructure:"wallet_rpc_url"`
	ChainID          int64  `mapstructure:"chain_id"`
	ContractAddress  string `mapstructure:"contract_address"`
	SignerPrivateKey string `mapstructure:"signer_private_key"`
	ContractArtifact string `mapstructure:"contract_artifact"`

	R2AccountID       string `mapstructure:"cloudflare_account_id"`
	R2AccessKeyID     string `mapstructure:"r2_access_key_id"`
	R2AccessKeySecret string `mapstructure:"r2_access_key_secret"`
	R2Bucket          string `mapstructure:"r2_bucket_name"`
	CDNBaseURL        string `mapstructure:"cdn_base_url"`

	CheckoutDelay       time.Duration `mapstructure:"checkout_delay"`
	SessionTTL          time.Duration `mapstructure:"session_ttl"`
	WalletPollInterval  time.Duration `mapstructure:"wallet_poll_interval"`
	ProfileSyncInterval time.Duration `mapstructure:"profile_sync_interval"`

	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
}

var defaults = map[string]interface{}{
	"port":                  5200,
	"allowed_origins":       "http://localhost:3000",
	"service_token":         "",
	"database_url":          "",
	"auth_url":              "",
	"auth_anon_key":         "",
	"auth_jwt_secret":       "",
	"local_store_path":      "./data/local-store",
	"starting_balance":      "1000 PT",
	"seed_demo_data":        true,
	"eth_rpc_url":           "",
	"wallet_rpc_url":        "",
	"chain_id":              31337,
	"contract_address":      "0x5FbDB2315678afecb367f032d93F642f64180aa3",
	"signer_private_key":    "",
	"contract_artifact":     "./artifacts/CarbonCreditNFT.json",
	"cloudflare_account_id": "",
	"r2_access_key_id":      "",
	"r2_access_key_secret":  "",
	"r2_bucket_name":        "",
	"cdn_base_url":          "",
	"checkout_delay":        "2s",
	"session_ttl":           "30m",
	"wallet_poll_interval":  "5s",
	"profile_sync_interval": "1m",
	"log_level":             "info",
	"log_format":            "text",
}

// Load reads .env (if present) and the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Warn("⚠️  No .env file found, reading environment variables directly")
	}

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) RemoteEnabled() bool {
	return c.DatabaseURL != "" && c.AuthURL != ""
}

func (c *Config) ChainEnabled() bool {
	return c.EthRPCURL != "" && c.ContractAddress != ""
}

func (c *Config) R2Enabled() bool {
	return c.R2AccountID != "" && c.R2Bucket != ""
}

// Origins returns the comma-separated allowed origins, trimmed.
func (c *Config) Origins() string {
	origins := strings.Split(c.AllowedOrigins, ",")
	for i, origin := range origins {
		origins[i] = strings.TrimSpace(origin)
	}
	return strings.Join(origins, ",")
}
