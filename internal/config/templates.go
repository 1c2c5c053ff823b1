package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// DefaultScanClause is the stock scanner rule used when none is
// configured. The expression is opaque to this program; it is passed to
// the scanner unchanged.
const DefaultScanClause = "( {cash} ( latest close > latest sma ( latest close , 20 ) and latest volume > latest sma ( latest volume , 20 ) ) )"

// DefaultSectors returns the built-in NIFTY sector table.
func DefaultSectors() []SectorConfig {
	return []SectorConfig{
		{Name: "NIFTY AUTO", Symbols: []string{"TATAMOTORS", "EICHERMOT", "BAJAJ-AUTO", "M&M", "TVSMOTOR", "HEROMOTOCO", "ASHOKLEY", "BOSCHLTD", "BHARATFORG", "MRF"}},
		{Name: "NIFTY BANK", Symbols: []string{"HDFCBANK", "ICICIBANK", "AXISBANK", "KOTAKBANK", "SBIN", "PNB", "BANKBARODA", "FEDERALBNK", "IDFCFIRSTB", "INDUSINDBK"}},
		{Name: "NIFTY FMCG", Symbols: []string{"HINDUNILVR", "ITC", "DABUR", "MARICO", "NESTLEIND", "BRITANNIA", "COLPAL", "TATACONSUM", "UBL", "GODREJCP"}},
		{Name: "NIFTY PHARMA", Symbols: []string{"SUNPHARMA", "DRREDDY", "CIPLA", "DIVISLAB", "AUROPHARMA", "BIOCON", "ALKEM", "LUPIN", "ZYDUSLIFE", "TORNTPHARM"}},
		{Name: "NIFTY IT", Symbols: []string{"INFY", "TCS", "WIPRO", "TECHM", "HCLTECH", "LTIM", "MPHASIS", "PERSISTENT", "COFORGE"}},
		{Name: "NIFTY REALTY", Symbols: []string{"DLF", "OBEROIRLTY", "LODHA", "GODREJPROP", "PHOENIXLTD", "SOBHA", "PRESTIGE", "BRIGADE"}},
		{Name: "NIFTY ENERGY", Symbols: []string{"RELIANCE", "ONGC", "NTPC", "POWERGRID", "ADANIGREEN", "ADANITRANS", "TATAPOWER", "BPCL", "IOC", "COALINDIA"}},
		{Name: "NIFTY METAL", Symbols: []string{"TATASTEEL", "JSWSTEEL", "HINDALCO", "COALINDIA", "NMDC", "VEDL", "NATIONALUM", "SAIL", "JINDALSTEL"}},
		{Name: "NIFTY MEDIA", Symbols: []string{"ZEEL", "SUNTV", "PVRINOX", "NETWORK18", "TV18BRDCST"}},
		{Name: "NIFTY FINANCIAL SERVICES", Symbols: []string{"BAJFINANCE", "HDFCAMC", "ICICIPRULI", "HDFCLIFE", "SBILIFE", "MUTHOOTFIN", "BAJAJFINSV", "CHOLAFIN"}},
	}
}

const configTemplate = `# Sector Scope Configuration
#
# Sectors default to the built-in NIFTY table when this list is empty.
# Example:
# [[sectors]]
# name = "NIFTY IT"
# symbols = ["INFY", "TCS", "WIPRO"]

[aggregator]
# Concurrent quote fetches per sector group
workers = 8
# Per-call timeout for quote fetches
fetch_timeout = "10s"

[alert]
# Enable the screener alert pipeline
enabled = false
# Gap (day high - last price) threshold in INR
gap_threshold = 10.0
# Minimum spacing between consecutive broker calls
call_spacing = "1s"
# Per-call timeout for broker and screener calls
call_timeout = "10s"
# Overall pipeline deadline; hits left at expiry are abandoned
run_deadline = "5m"
# Interval for --watch mode
refresh_interval = "2m"
# Scanner rule expression (opaque, passed through unchanged)
scan_clause = ""
scan_label = "near breakout"
exchange = "NSE"

[notifications.telegram]
enabled = false
bot_token = ""
chat_id = ""
`

const credentialsTemplate = `# Sector Scope Credentials
#
# Keep this file out of version control. Values here can also be
# supplied via BROKER_API_KEY, BROKER_CLIENT_CODE, BROKER_PASSWORD and
# BROKER_TOTP_SEED environment variables.

[broker]
api_key = ""
client_code = ""
password = ""
totp_seed = ""
`

func createTemplateConfig(configDir string) error {
	// Defaults cover a missing config file; write a template for the
	// user to edit and carry on.
	path := filepath.Join(configDir, "config.toml")
	if err := writeTemplate(path, configTemplate, 0644); err != nil {
		return fmt.Errorf("writing template config: %w", err)
	}
	return nil
}

func createTemplateCredentials(configDir string) error {
	path := filepath.Join(configDir, "credentials.toml")
	// Restricted permissions, the file holds secrets once filled in.
	return writeTemplate(path, credentialsTemplate, 0600)
}

func writeTemplate(path, content string, perm os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	return os.WriteFile(path, []byte(content), perm)
}
