// Package config provides configuration management for the sector scope
// application.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"sectorscope/internal/models"
)

// Config holds all application configuration.
type Config struct {
	Sectors       []SectorConfig     `mapstructure:"sectors"`
	Alert         AlertConfig        `mapstructure:"alert"`
	Notifications NotificationConfig `mapstructure:"notifications"`
	Aggregator    AggregatorConfig   `mapstructure:"aggregator"`
	Credentials   Credentials        `mapstructure:"-"` // Loaded separately
}

// SectorConfig names one sector group and its symbols. A list rather
// than a map so ranking ties stay deterministic by input order.
type SectorConfig struct {
	Name    string   `mapstructure:"name"`
	Symbols []string `mapstructure:"symbols"`
}

// AggregatorConfig holds sector aggregator tuning.
type AggregatorConfig struct {
	Workers      int           `mapstructure:"workers"`
	FetchTimeout time.Duration `mapstructure:"fetch_timeout"`
}

// AlertConfig holds the screener alert pipeline configuration.
type AlertConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	GapThreshold    float64       `mapstructure:"gap_threshold"` // INR
	CallSpacing     time.Duration `mapstructure:"call_spacing"`
	CallTimeout     time.Duration `mapstructure:"call_timeout"`
	RunDeadline     time.Duration `mapstructure:"run_deadline"`
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`
	ScanClause      string        `mapstructure:"scan_clause"`
	ScanLabel       string        `mapstructure:"scan_label"`
	Exchange        string        `mapstructure:"exchange"`
}

// NotificationConfig holds notification configuration.
type NotificationConfig struct {
	Telegram TelegramConfig `mapstructure:"telegram"`
}

// TelegramConfig holds Telegram notification configuration.
type TelegramConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
}

// Credentials holds broker credentials. Loaded from credentials.toml or
// the environment, never from the main config file.
type Credentials struct {
	Broker BrokerCredentials `mapstructure:"broker"`
}

// BrokerCredentials holds the brokerage login material.
type BrokerCredentials struct {
	APIKey     string `mapstructure:"api_key"`
	ClientCode string `mapstructure:"client_code"`
	Password   string `mapstructure:"password"`
	TOTPSeed   string `mapstructure:"totp_seed"`
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/sectorscope"
	}
	return filepath.Join(home, ".config", "sectorscope")
}

// Load loads configuration from the specified directory. If configDir is
// empty, uses the default config directory. Validation runs here, before
// any network activity.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	cfg := &Config{}

	if err := loadConfigFile(configDir, cfg); err != nil {
		return nil, fmt.Errorf("loading config.toml: %w", err)
	}

	if err := loadCredentials(configDir, &cfg.Credentials); err != nil {
		return nil, fmt.Errorf("loading credentials.toml: %w", err)
	}

	applyEnvOverrides(cfg)
	applyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func loadConfigFile(configDir string, target *Config) error {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return createTemplateConfig(configDir)
		}
		return err
	}

	return v.Unmarshal(target)
}

func loadCredentials(configDir string, creds *Credentials) error {
	v := viper.New()
	v.SetConfigName("credentials")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Credentials may come entirely from the environment.
			return createTemplateCredentials(configDir)
		}
		return err
	}

	return v.Unmarshal(creds)
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("BROKER_API_KEY"); v != "" {
		cfg.Credentials.Broker.APIKey = v
	}
	if v := os.Getenv("BROKER_CLIENT_CODE"); v != "" {
		cfg.Credentials.Broker.ClientCode = v
	}
	if v := os.Getenv("BROKER_PASSWORD"); v != "" {
		cfg.Credentials.Broker.Password = v
	}
	if v := os.Getenv("BROKER_TOTP_SEED"); v != "" {
		cfg.Credentials.Broker.TOTPSeed = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Notifications.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		cfg.Notifications.Telegram.ChatID = v
	}
}

func applyDefaults(cfg *Config) {
	if len(cfg.Sectors) == 0 {
		cfg.Sectors = DefaultSectors()
	}
	if cfg.Aggregator.Workers <= 0 {
		cfg.Aggregator.Workers = 8
	}
	if cfg.Aggregator.FetchTimeout <= 0 {
		cfg.Aggregator.FetchTimeout = 10 * time.Second
	}
	if cfg.Alert.GapThreshold <= 0 {
		cfg.Alert.GapThreshold = 10.0
	}
	if cfg.Alert.CallSpacing <= 0 {
		cfg.Alert.CallSpacing = time.Second
	}
	if cfg.Alert.CallTimeout <= 0 {
		cfg.Alert.CallTimeout = 10 * time.Second
	}
	if cfg.Alert.RunDeadline <= 0 {
		cfg.Alert.RunDeadline = 5 * time.Minute
	}
	if cfg.Alert.RefreshInterval <= 0 {
		cfg.Alert.RefreshInterval = 2 * time.Minute
	}
	if cfg.Alert.Exchange == "" {
		cfg.Alert.Exchange = "NSE"
	}
	if cfg.Alert.ScanLabel == "" {
		cfg.Alert.ScanLabel = "near breakout"
	}
	if cfg.Alert.ScanClause == "" {
		cfg.Alert.ScanClause = DefaultScanClause
	}
}

// Validate validates the configuration. Contract errors here must stop
// the program before any external call is issued.
func (c *Config) Validate() error {
	if len(c.Sectors) == 0 {
		return fmt.Errorf("no sectors configured")
	}
	seen := make(map[string]bool, len(c.Sectors))
	for _, s := range c.Sectors {
		if s.Name == "" {
			return fmt.Errorf("sector with empty name")
		}
		if seen[s.Name] {
			return fmt.Errorf("duplicate sector name: %s", s.Name)
		}
		seen[s.Name] = true
		if len(s.Symbols) == 0 {
			return fmt.Errorf("sector %s has no symbols", s.Name)
		}
	}

	if c.Alert.GapThreshold <= 0 {
		return fmt.Errorf("gap_threshold must be positive")
	}
	if c.Alert.CallSpacing <= 0 {
		return fmt.Errorf("call_spacing must be positive")
	}
	if c.Alert.Enabled && c.Alert.ScanClause == "" {
		return fmt.Errorf("alerting enabled with empty scan_clause")
	}

	return nil
}

// SectorGroups converts the configured sectors into domain groups,
// preserving order.
func (c *Config) SectorGroups() []models.SectorGroup {
	groups := make([]models.SectorGroup, len(c.Sectors))
	for i, s := range c.Sectors {
		groups[i] = models.SectorGroup{Name: s.Name, Symbols: s.Symbols}
	}
	return groups
}

// HasBrokerCredentials reports whether a broker login can be attempted.
func (c *Config) HasBrokerCredentials() bool {
	b := c.Credentials.Broker
	return b.APIKey != "" && b.ClientCode != "" && b.Password != "" && b.TOTPSeed != ""
}
