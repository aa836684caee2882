package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func TestDefaults(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	cfg := fromViper(v)

	assert.Equal(t, "dev", cfg.Env)
	assert.Equal(t, "8083", cfg.Port)
	assert.Equal(t, 3, cfg.TxMaxAttempts)
	assert.Equal(t, 20*time.Millisecond, cfg.TxBackoff)
	assert.Equal(t, 24*time.Hour, cfg.IdempotencyTTL)
	assert.Equal(t, 72*time.Hour, cfg.StaleAfter)
	assert.Equal(t, "0 0 * * *", cfg.ReconcileCron)
	assert.Equal(t, "disable", cfg.Database.SSLMode)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestEnvironmentScopedDatabaseSettings(t *testing.T) {
	t.Setenv("ENV", "prod")
	t.Setenv("DB_HOST", "db.local")
	t.Setenv("PROD_DB_HOST", "db.prod")
	t.Setenv("DB_NAME", "payouts")
	t.Setenv("TX_MAX_ATTEMPTS", "5")

	cfg := Load()
	assert.Equal(t, "prod", cfg.Env)
	assert.Equal(t, "db.prod", cfg.Database.Host)
	assert.Equal(t, "payouts", cfg.Database.Name)
	assert.Equal(t, 5, cfg.TxMaxAttempts)
	assert.Contains(t, cfg.Database.DSN(), "host=db.prod")
	assert.Contains(t, cfg.Database.DSN(), "dbname=payouts")
}
