package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "0123456789abcdef0123")
	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.AppAddr)
	assert.Equal(t, "USD", cfg.BillingCurrency)
	assert.Equal(t, 12*time.Hour, cfg.JWTTTL)
	assert.Equal(t, "0 1 * * *", cfg.CronRecurringInvoice)
	assert.False(t, cfg.IsProduction())
	assert.False(t, cfg.SMSConfigured())
}

func TestLoadConfigRejectsShortSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "short")
	_, err := LoadConfig()
	require.Error(t, err)
}

func TestSMSConfigured(t *testing.T) {
	cfg := &Config{SMSUsername: "u", SMSPassword: "p", SMSSenderID: "GYM", SMSAPISecret: "k"}
	assert.True(t, cfg.SMSConfigured())
	cfg.SMSAPISecret = ""
	assert.False(t, cfg.SMSConfigured())
}

func TestLoadConfigTimezone(t *testing.T) {
	t.Setenv("JWT_SECRET", "0123456789abcdef0123")
	t.Setenv("APP_TIMEZONE", "Africa/Mogadishu")
	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "Africa/Mogadishu", cfg.Location().String())

	t.Setenv("APP_TIMEZONE", "Mars/Olympus")
	_, err = LoadConfig()
	require.Error(t, err)
}
