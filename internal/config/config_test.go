package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	cfg := &Config{
		Sectors: []SectorConfig{
			{Name: "NIFTY IT", Symbols: []string{"INFY", "TCS"}},
		},
	}
	applyDefaults(cfg)
	return cfg
}

func TestValidateAcceptsDefaults(t *testing.T) {
	require.NoError(t, validConfig().Validate())
}

func TestValidateEmptySectorTable(t *testing.T) {
	cfg := validConfig()
	cfg.Sectors = nil
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no sectors")
}

func TestValidateSectorWithoutSymbols(t *testing.T) {
	cfg := validConfig()
	cfg.Sectors = append(cfg.Sectors, SectorConfig{Name: "EMPTY"})
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "EMPTY")
}

func TestValidateDuplicateSectorName(t *testing.T) {
	cfg := validConfig()
	cfg.Sectors = append(cfg.Sectors, cfg.Sectors[0])
	require.Error(t, cfg.Validate())
}

func TestValidateEnabledAlertingNeedsClause(t *testing.T) {
	cfg := validConfig()
	cfg.Alert.Enabled = true
	cfg.Alert.ScanClause = ""
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scan_clause")
}

func TestDefaultsFillAlertPolicy(t *testing.T) {
	cfg := &Config{}
	applyDefaults(cfg)

	assert.NotEmpty(t, cfg.Sectors, "default NIFTY sector table expected")
	assert.Equal(t, 10.0, cfg.Alert.GapThreshold)
	assert.Equal(t, time.Second, cfg.Alert.CallSpacing)
	assert.Equal(t, "NSE", cfg.Alert.Exchange)
	assert.NotEmpty(t, cfg.Alert.ScanClause)
}

func TestSectorGroupsPreserveOrder(t *testing.T) {
	cfg := &Config{
		Sectors: []SectorConfig{
			{Name: "B", Symbols: []string{"X"}},
			{Name: "A", Symbols: []string{"Y"}},
		},
	}

	groups := cfg.SectorGroups()
	require.Len(t, groups, 2)
	assert.Equal(t, "B", groups[0].Name)
	assert.Equal(t, "A", groups[1].Name)
}

func TestEnvOverridesWinForCredentials(t *testing.T) {
	t.Setenv("BROKER_CLIENT_CODE", "ENV123")
	t.Setenv("BROKER_TOTP_SEED", "SEEDFROMENV")

	cfg := validConfig()
	cfg.Credentials.Broker.ClientCode = "file-value"
	applyEnvOverrides(cfg)

	assert.Equal(t, "ENV123", cfg.Credentials.Broker.ClientCode)
	assert.Equal(t, "SEEDFROMENV", cfg.Credentials.Broker.TOTPSeed)
}

func TestHasBrokerCredentials(t *testing.T) {
	cfg := validConfig()
	assert.False(t, cfg.HasBrokerCredentials())

	cfg.Credentials.Broker = BrokerCredentials{
		APIKey: "k", ClientCode: "c", Password: "p", TOTPSeed: "s",
	}
	assert.True(t, cfg.HasBrokerCredentials())
}
