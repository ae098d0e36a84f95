package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("DB_HOST", "")
	t.Setenv("SWEEP_INTERVAL", "")
	t.Setenv("SWEEP_BATCH_SIZE", "")
	t.Setenv("REMINDER_LEAD_TIME", "")
	t.Setenv("STORE_BACKEND", "")

	cfg := Load()

	assert.Equal(t, StoreBackendPostgres, cfg.StoreBackend)
	assert.Equal(t, 15*time.Minute, cfg.SweepInterval)
	assert.Equal(t, 50, cfg.SweepBatchSize)
	assert.Equal(t, time.Hour, cfg.ReminderLeadTime)
	assert.Empty(t, cfg.DatabaseURL)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("STORE_BACKEND", "Firestore")
	t.Setenv("GOOGLE_PROJECT_ID", "ccce-test")
	t.Setenv("SWEEP_INTERVAL", "5m")
	t.Setenv("SWEEP_BATCH_SIZE", "20")
	t.Setenv("REMINDER_LEAD_TIME", "30m")
	t.Setenv("LOG_PRETTY", "yes")

	cfg := Load()

	assert.Equal(t, StoreBackendFirestore, cfg.StoreBackend)
	assert.Equal(t, 5*time.Minute, cfg.SweepInterval)
	assert.Equal(t, 20, cfg.SweepBatchSize)
	assert.Equal(t, 30*time.Minute, cfg.ReminderLeadTime)
	assert.True(t, cfg.LogPretty)
	require.NoError(t, cfg.Validate())
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("SWEEP_INTERVAL", "often")
	t.Setenv("SWEEP_BATCH_SIZE", "many")

	cfg := Load()

	assert.Equal(t, 15*time.Minute, cfg.SweepInterval)
	assert.Equal(t, 50, cfg.SweepBatchSize)
}

func TestLoad_BuildsDSNFromParts(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_NAME", "notify")

	cfg := Load()

	assert.Contains(t, cfg.DatabaseURL, "host=db.internal")
	assert.Contains(t, cfg.DatabaseURL, "dbname=notify")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{
			name: "postgres with dsn",
			cfg:  Config{StoreBackend: StoreBackendPostgres, DatabaseURL: "host=x", SweepInterval: time.Minute, SweepBatchSize: 1},
		},
		{
			name:    "postgres without dsn",
			cfg:     Config{StoreBackend: StoreBackendPostgres, SweepInterval: time.Minute, SweepBatchSize: 1},
			wantErr: true,
		},
		{
			name:    "firestore without project",
			cfg:     Config{StoreBackend: StoreBackendFirestore, SweepInterval: time.Minute, SweepBatchSize: 1},
			wantErr: true,
		},
		{
			name:    "unknown backend",
			cfg:     Config{StoreBackend: "mongo", SweepInterval: time.Minute, SweepBatchSize: 1},
			wantErr: true,
		},
		{
			name:    "zero batch size",
			cfg:     Config{StoreBackend: StoreBackendPostgres, DatabaseURL: "host=x", SweepInterval: time.Minute},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}
