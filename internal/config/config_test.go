package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"PORT", "STORE_DRIVER", "DB_PORT", "IMPORT_WORKERS", "IMPORT_SAMPLE_LIMIT", "NATS_URL", "AWS_ENDPOINT"} {
		t.Setenv(key, "")
	}

	cfg := Load()

	assert.Equal(t, "8087", cfg.Port)
	assert.Equal(t, StoreDriverPostgres, cfg.StoreDriver)
	assert.Equal(t, 5432, cfg.DBPort)
	assert.Equal(t, 1, cfg.ImportWorkers)
	assert.Equal(t, 10, cfg.ImportSampleLimit)
	assert.Empty(t, cfg.NATSURL)
	require.NoError(t, cfg.Validate())
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("STORE_DRIVER", "Mongo")
	t.Setenv("MONGO_DB", "catalog_test")
	t.Setenv("IMPORT_WORKERS", "4")
	t.Setenv("IMPORT_SAMPLE_LIMIT", "25")
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_PORT", "6432")

	cfg := Load()

	assert.Equal(t, StoreDriverMongo, cfg.StoreDriver)
	assert.Equal(t, "catalog_test", cfg.MongoDB)
	assert.Equal(t, 4, cfg.ImportWorkers)
	assert.Equal(t, 25, cfg.ImportSampleLimit)
	assert.Contains(t, cfg.DSN(), "host=db.internal port=6432")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"unknown driver", func(c *Config) { c.StoreDriver = "sqlite" }, "unsupported STORE_DRIVER"},
		{"no workers", func(c *Config) { c.ImportWorkers = 0 }, "IMPORT_WORKERS"},
		{"no samples", func(c *Config) { c.ImportSampleLimit = 0 }, "IMPORT_SAMPLE_LIMIT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{StoreDriver: StoreDriverPostgres, ImportWorkers: 1, ImportSampleLimit: 10}
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
