package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("APP_ENV", "dev")
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.True(t, cfg.OverlapCheck)
	assert.True(t, cfg.SandboxPayments, "no stripe key configured")
	assert.True(t, cfg.SeedDemoCars, "no mongo configured")
	assert.False(t, cfg.UsesMongo())
	assert.False(t, cfg.UsesKafka())
	assert.Equal(t, int64(800), cfg.TaxBps)
	assert.Equal(t, int64(50000), cfg.DepositCapCents)
	assert.Equal(t, 24*time.Hour, cfg.CancellationCutoff)
	assert.Equal(t, 48*time.Hour, cfg.FullRefundBefore)
	assert.Equal(t, []time.Duration{time.Second, 5 * time.Second, 30 * time.Second}, cfg.RetryBackoff)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092")
	t.Setenv("MONGO_URI", "mongodb://localhost:27017")
	t.Setenv("STRIPE_SECRET_KEY", "sk_test_123")
	t.Setenv("BOOKING_OVERLAP_CHECK", "off")
	t.Setenv("TAX_BPS", "1000")
	t.Setenv("CANCELLATION_CUTOFF", "12h")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.False(t, cfg.SandboxPayments)
	assert.False(t, cfg.SeedDemoCars)
	assert.False(t, cfg.OverlapCheck)
	assert.Equal(t, int64(1000), cfg.TaxBps)
	assert.Equal(t, 12*time.Hour, cfg.CancellationCutoff)
}

func TestLoad_Rejects(t *testing.T) {
	cases := map[string][2]string{
		"bad duration":        {"REMINDER_WINDOW", "soon"},
		"bad bool":            {"S3_USE_SSL", "maybe"},
		"bad int":             {"TAX_BPS", "8%"},
		"cutoff after refund": {"CANCELLATION_CUTOFF", "72h"},
		"partial over 100%":   {"PARTIAL_REFUND_BPS", "12000"},
		"bad currency":        {"BOOKING_CURRENCY", "dollars"},
	}
	for name, kv := range cases {
		t.Run(name, func(t *testing.T) {
			t.Setenv(kv[0], kv[1])
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestLoad_ProdRequiresRealPayments(t *testing.T) {
	t.Setenv("APP_ENV", "prod")
	t.Setenv("JWT_SECRET", "secret")
	_, err := Load()
	assert.Error(t, err)

	t.Setenv("STRIPE_SECRET_KEY", "sk_live_x")
	_, err = Load()
	assert.NoError(t, err)
}
