package config

import (
	"log"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig    `mapstructure:"server"`
	Log      LogConfig       `mapstructure:"log"`
	Auth     AuthConfig      `mapstructure:"auth"`
	Database DatabaseConfig  `mapstructure:"database"`
	Redis    RedisConfig     `mapstructure:"redis"`
	Vault    VaultConfig     `mapstructure:"vault"`
	Risk     RiskConfig      `mapstructure:"risk"`
	Metrics  MetricsConfig   `mapstructure:"metrics"`
	Accounts []AccountConfig `mapstructure:"accounts"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
	// ReadOnly blocks every mutating route; reads and health stay up.
	ReadOnly bool `mapstructure:"read_only"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type AuthConfig struct {
	RequireAPIKey bool   `mapstructure:"require_api_key"`
	AdminKey      string `mapstructure:"admin_key"`
}

type DatabaseConfig struct {
	DSN                string `mapstructure:"dsn"`
	AuditRetentionDays int    `mapstructure:"audit_retention_days"`
}

type RedisConfig struct {
	Addr                  string `mapstructure:"addr"`
	Password              string `mapstructure:"password"`
	DB                    int    `mapstructure:"db"`
	IdempotencyTTLSeconds int    `mapstructure:"idempotency_ttl_seconds"`
}

// VaultConfig carries the protocol parameters that are not per-collection.
type VaultConfig struct {
	// TreasuryAddress is the hex address holding the vault's lendable liquidity.
	TreasuryAddress string `mapstructure:"treasury_address"`
	// LiquidationSettlement selects "seizure" (collateral only changes hands)
	// or "sale" (the liquidator pays the discounted floor price into the treasury).
	LiquidationSettlement string `mapstructure:"liquidation_settlement"`
	// CompoundOnTopUp folds accrued interest into principal when a borrower
	// tops up an existing loan.
	CompoundOnTopUp bool `mapstructure:"compound_on_top_up"`
	// AuditLogDir is where the JSONL audit fallback files are written.
	AuditLogDir string `mapstructure:"audit_log_dir"`
}

// RiskConfig caps borrow activity per account, denominated in whole native
// units. Zero disables a cap.
type RiskConfig struct {
	MaxLoanValue   float64 `mapstructure:"max_loan_value"`
	MaxDailyVolume float64 `mapstructure:"max_daily_volume"`
	MaxDailyLoans  int     `mapstructure:"max_daily_loans"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// AccountConfig declares a caller known at boot time. Callers can also be
// registered at runtime through the admin surface.
type AccountConfig struct {
	Address string  `mapstructure:"address"`
	Name    string  `mapstructure:"name"`
	APIKey  string  `mapstructure:"api_key"`
	QPS     float64 `mapstructure:"qps"`
	Burst   int     `mapstructure:"burst"`
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./configs")

	// Environment variables support
	// e.g. NFTVAULT_AUTH_ADMIN_KEY
	viper.SetEnvPrefix("nftvault")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Defaults
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.read_only", false)
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "json")
	viper.SetDefault("auth.require_api_key", false)
	viper.SetDefault("auth.admin_key", "")
	viper.SetDefault("redis.idempotency_ttl_seconds", 86400)
	viper.SetDefault("database.audit_retention_days", 30)
	viper.SetDefault("vault.treasury_address", "0x00000000000000000000000000000000000a0001")
	viper.SetDefault("vault.liquidation_settlement", "seizure")
	viper.SetDefault("vault.compound_on_top_up", true)
	viper.SetDefault("vault.audit_log_dir", "./logs")
	viper.SetDefault("metrics.enabled", true)
	viper.SetDefault("metrics.path", "/metrics")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Println("No config file found, using defaults and env vars")
		} else {
			return nil, err
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
