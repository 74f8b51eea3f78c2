// Package config provides configuration management for the swing trade manager.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Strategy    StrategyConfig    `mapstructure:"strategy"`
	Risk        RiskConfig        `mapstructure:"risk"`
	Data        DataConfig        `mapstructure:"data"`
	Snapshot    SnapshotConfig    `mapstructure:"snapshot"`
	Digest      DigestConfig      `mapstructure:"digest"`
	UI          UIConfig          `mapstructure:"ui"`
	Credentials Credentials       `mapstructure:"-"` // loaded separately
}

// StrategyConfig holds the Strategy 4.1 rule constants.
type StrategyConfig struct {
	ERBufferDays     int     `mapstructure:"er_buffer_days"`     // no entry inside this window before earnings
	ExitBufferDays   int     `mapstructure:"exit_buffer_days"`   // always flat this many days before earnings
	SellWindowStart  int     `mapstructure:"sell_window_start"`  // day count after entry
	SellWindowEnd    int     `mapstructure:"sell_window_end"`    // forced exit at window end
	StopLossPct      float64 `mapstructure:"stop_loss_pct"`      // hard stop, negative
	LTHCarvePct      float64 `mapstructure:"lth_carve_pct"`      // share of the lot carved to long-term
	LTHGainThreshold float64 `mapstructure:"lth_gain_threshold"` // minimum gain to qualify for a carve
	RSIOversold      float64 `mapstructure:"rsi_oversold"`
	PercentBFloor    float64 `mapstructure:"percent_b_floor"`
	WashSaleDays     int     `mapstructure:"wash_sale_days"`
	RecheckHours     int     `mapstructure:"recheck_hours"` // NextCheckAt spacing for pending candidates
	LTHReviewDays    int     `mapstructure:"lth_review_days"`
}

// RiskConfig holds portfolio guardrail configuration.
type RiskConfig struct {
	SectorCap          int     `mapstructure:"sector_cap"`
	KillSwitchDDPct    float64 `mapstructure:"kill_switch_dd_pct"` // 10-day drawdown that engages the switch, negative
	MaxPositionPercent float64 `mapstructure:"max_position_percent"`
	RiskPerTradePct    float64 `mapstructure:"risk_per_trade_pct"` // equity fraction risked per ATR-sized entry
}

// DataConfig holds market data provider configuration.
type DataConfig struct {
	ProviderURL     string  `mapstructure:"provider_url"`
	DailyCallLimit  int     `mapstructure:"daily_call_limit"`
	LookbackDays    int     `mapstructure:"lookback_days"`
	MinDollarVolume float64 `mapstructure:"min_dollar_volume"`
	MinPrice        float64 `mapstructure:"min_price"`
}

// SnapshotConfig holds JSON snapshot export configuration.
type SnapshotConfig struct {
	Dir          string `mapstructure:"dir"`
	StaleMinutes int    `mapstructure:"stale_minutes"`
}

// DigestConfig holds watchlist digest configuration.
type DigestConfig struct {
	EarningsHorizonDays int    `mapstructure:"earnings_horizon_days"`
	MaxBuyCandidates    int    `mapstructure:"max_buy_candidates"`
	GitHubRepo          string `mapstructure:"github_repo"` // "owner/repo"
	IssueTitle          string `mapstructure:"issue_title"`
	IssueLabels         string `mapstructure:"issue_labels"`
	WebhookURL          string `mapstructure:"webhook_url"`
}

// UIConfig holds UI-related configuration.
type UIConfig struct {
	ColorEnabled bool   `mapstructure:"color_enabled"`
	DateFormat   string `mapstructure:"date_format"`
	TimeFormat   string `mapstructure:"time_format"`
}

// Credentials holds API credentials.
type Credentials struct {
	Provider ProviderCredentials `mapstructure:"provider"`
	GitHub   GitHubCredentials   `mapstructure:"github"`
}

// ProviderCredentials holds market data provider credentials.
type ProviderCredentials struct {
	APIKey string `mapstructure:"api_key"`
}

// GitHubCredentials holds GitHub API credentials for digest posting.
type GitHubCredentials struct {
	Token string `mapstructure:"token"`
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/swing-trader"
	}
	return filepath.Join(home, ".config", "swing-trader")
}

// Default returns a config populated with the built-in defaults, no
// files read.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// Load loads configuration from the specified directory.
// If configDir is empty, uses the default config directory.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	cfg := &Config{}

	if err := loadConfigFile(configDir, "config", cfg); err != nil {
		return nil, fmt.Errorf("loading config.toml: %w", err)
	}

	if err := loadCredentials(configDir, &cfg.Credentials); err != nil {
		return nil, fmt.Errorf("loading credentials.toml: %w", err)
	}

	applyDefaults(cfg)
	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func loadConfigFile(configDir, name string, target interface{}) error {
	v := viper.New()
	v.SetConfigName(name)
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
			return createTemplateCredentials(configDir)
		}
		return err
	}

	return v.Unmarshal(creds)
}

// applyDefaults fills zero values with the Strategy 4.1 norms.
func applyDefaults(cfg *Config) {
	s := &cfg.Strategy
	if s.ERBufferDays == 0 {
		s.ERBufferDays = 35
	}
	if s.ExitBufferDays == 0 {
		s.ExitBufferDays = 7
	}
	if s.SellWindowStart == 0 {
		s.SellWindowStart = 33
	}
	if s.SellWindowEnd == 0 {
		s.SellWindowEnd = 40
	}
	if s.StopLossPct == 0 {
		s.StopLossPct = -10.0
	}
	if s.LTHCarvePct == 0 {
		s.LTHCarvePct = 10.0
	}
	if s.LTHGainThreshold == 0 {
		s.LTHGainThreshold = 8.0
	}
	if s.RSIOversold == 0 {
		s.RSIOversold = 45.0
	}
	if s.PercentBFloor == 0 {
		s.PercentBFloor = 0.05
	}
	if s.WashSaleDays == 0 {
		s.WashSaleDays = 30
	}
	if s.RecheckHours == 0 {
		s.RecheckHours = 24
	}
	if s.LTHReviewDays == 0 {
		s.LTHReviewDays = 90
	}

	r := &cfg.Risk
	if r.SectorCap == 0 {
		r.SectorCap = 3
	}
	if r.KillSwitchDDPct == 0 {
		r.KillSwitchDDPct = -8.0
	}
	if r.MaxPositionPercent == 0 {
		r.MaxPositionPercent = 10.0
	}
	if r.RiskPerTradePct == 0 {
		r.RiskPerTradePct = 1.0
	}

	d := &cfg.Data
	if d.DailyCallLimit == 0 {
		d.DailyCallLimit = 250
	}
	if d.LookbackDays == 0 {
		d.LookbackDays = 200
	}
	if d.MinDollarVolume == 0 {
		d.MinDollarVolume = 5_000_000
	}
	if d.MinPrice == 0 {
		d.MinPrice = 5.0
	}

	if cfg.Snapshot.Dir == "" {
		cfg.Snapshot.Dir = "snapshots"
	}
	if cfg.Snapshot.StaleMinutes == 0 {
		cfg.Snapshot.StaleMinutes = 120
	}

	if cfg.Digest.EarningsHorizonDays == 0 {
		cfg.Digest.EarningsHorizonDays = 14
	}
	if cfg.Digest.MaxBuyCandidates == 0 {
		cfg.Digest.MaxBuyCandidates = 8
	}
	if cfg.Digest.IssueLabels == "" {
		cfg.Digest.IssueLabels = "digest,automation"
	}

	if cfg.UI.DateFormat == "" {
		cfg.UI.DateFormat = "2006-01-02"
	}
	if cfg.UI.TimeFormat == "" {
		cfg.UI.TimeFormat = "15:04:05"
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("PROVIDER_API_KEY"); v != "" {
		cfg.Credentials.Provider.APIKey = v
	}
	if v := os.Getenv("PROVIDER_URL"); v != "" {
		cfg.Data.ProviderURL = v
	}
	if v := os.Getenv("GH_PAT"); v != "" {
		cfg.Credentials.GitHub.Token = v
	}
	if v := os.Getenv("GITHUB_TOKEN"); v != "" && cfg.Credentials.GitHub.Token == "" {
		cfg.Credentials.GitHub.Token = v
	}
	if v := os.Getenv("GITHUB_REPOSITORY"); v != "" && cfg.Digest.GitHubRepo == "" {
		cfg.Digest.GitHubRepo = v
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	s := c.Strategy
	if s.ERBufferDays <= s.ExitBufferDays {
		return fmt.Errorf("er_buffer_days (%d) must exceed exit_buffer_days (%d)", s.ERBufferDays, s.ExitBufferDays)
	}
	if s.SellWindowStart >= s.SellWindowEnd {
		return fmt.Errorf("sell_window_start (%d) must be before sell_window_end (%d)", s.SellWindowStart, s.SellWindowEnd)
	}
	if s.StopLossPct >= 0 {
		return fmt.Errorf("stop_loss_pct must be negative, got %.1f", s.StopLossPct)
	}
	if s.LTHCarvePct <= 0 || s.LTHCarvePct > 100 {
		return fmt.Errorf("lth_carve_pct must be in (0, 100], got %.1f", s.LTHCarvePct)
	}
	if s.PercentBFloor < 0 || s.PercentBFloor > 1 {
		return fmt.Errorf("percent_b_floor must be in [0, 1], got %.2f", s.PercentBFloor)
	}
	if c.Risk.SectorCap <= 0 {
		return fmt.Errorf("sector_cap must be positive, got %d", c.Risk.SectorCap)
	}
	if c.Risk.KillSwitchDDPct >= 0 {
		return fmt.Errorf("kill_switch_dd_pct must be negative, got %.1f", c.Risk.KillSwitchDDPct)
	}
	if c.Data.DailyCallLimit <= 0 {
		return fmt.Errorf("daily_call_limit must be positive, got %d", c.Data.DailyCallLimit)
	}
	return nil
}
