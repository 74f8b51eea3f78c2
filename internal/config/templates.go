package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const configTemplate = `# Swing Trader Configuration (Strategy 4.1)

[strategy]
# No entry when the next earnings report is closer than this
er_buffer_days = 35
# Always flat (or carved to long-term) this many days before earnings
exit_buffer_days = 7
# Sell window, in days after entry
sell_window_start = 33
sell_window_end = 40
# Hard stop from entry, percent
stop_loss_pct = -10.0
# Long-term carve: share of the lot, and the gain that qualifies it
lth_carve_pct = 10.0
lth_gain_threshold = 8.0
# Oversold entry signals
rsi_oversold = 45.0
percent_b_floor = 0.05
# No re-entry within this many days of a loss-closing trade
wash_sale_days = 30
# Recheck spacing for bounce-pending candidates, in hours
recheck_hours = 24
# Long-term holding review cadence, in days
lth_review_days = 90

[risk]
# Maximum open holdings per GICS sector
sector_cap = 3
# 10-day drawdown that engages the kill switch, percent
kill_switch_dd_pct = -8.0
# Maximum position size as percentage of equity
max_position_percent = 10.0
# Equity fraction risked per ATR-sized entry
risk_per_trade_pct = 1.0

[data]
# Market data provider base URL
provider_url = ""
# Daily API call allowance
daily_call_limit = 250
# History kept per symbol, in days
lookback_days = 200
# Universe hygiene floors
min_dollar_volume = 5000000.0
min_price = 5.0

[snapshot]
# Export directory for JSON tab snapshots
dir = "snapshots"
# Snapshots older than this are flagged stale, in minutes
stale_minutes = 120

[digest]
earnings_horizon_days = 14
max_buy_candidates = 8
# Optional GitHub issue publishing: "owner/repo"
github_repo = ""
issue_title = ""
issue_labels = "digest,automation"
# Optional webhook delivery
webhook_url = ""

[ui]
color_enabled = true
date_format = "2006-01-02"
time_format = "15:04:05"
`

const credentialsTemplate = `# Swing Trader Credentials
# Keep this file private (chmod 600).

[provider]
# Market data provider API key
api_key = ""

[github]
# Fine-grained PAT with Issues:write, for digest posting
token = ""
`

// createTemplateConfig writes the default config.toml to the config directory.
func createTemplateConfig(configDir string) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	path := filepath.Join(configDir, "config.toml")
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	if err := os.WriteFile(path, []byte(configTemplate), 0644); err != nil {
		return fmt.Errorf("writing config template: %w", err)
	}
	return nil
}

// createTemplateCredentials writes the default credentials.toml with
// restrictive permissions.
func createTemplateCredentials(configDir string) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	path := filepath.Join(configDir, "credentials.toml")
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	if err := os.WriteFile(path, []byte(credentialsTemplate), 0600); err != nil {
		return fmt.Errorf("writing credentials template: %w", err)
	}
	return nil
}
