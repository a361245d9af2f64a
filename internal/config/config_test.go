package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docintake/internal/config"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, 0.85, cfg.Pipeline.ConfidenceThreshold)
	assert.Equal(t, 300*time.Second, cfg.Pipeline.ProcessingTimeout)
	assert.Equal(t, 120*time.Second, cfg.Pipeline.ExtractorCallTimeout)
	assert.Equal(t, "pdftext", cfg.Pipeline.StructuredProvider)
	assert.Equal(t, "claude", cfg.Pipeline.SemanticProvider)
	assert.Equal(t, "complete", cfg.Pipeline.Prefixes.Complete)
	assert.Equal(t, "failed", cfg.Pipeline.Prefixes.Failed)
	assert.Equal(t, "local", cfg.Storage.Backend)
	assert.Equal(t, 1, cfg.Resilience.RetryMaxAttempts)
	assert.False(t, cfg.NATS.Enabled)
	assert.Equal(t, "claude-sonnet-4-20250514", cfg.Claude.Model)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("DOCINTAKE_PIPELINE_CONFIDENCE_THRESHOLD", "0.9")
	t.Setenv("DOCINTAKE_PIPELINE_SEMANTIC_PROVIDER", "vertex")
	t.Setenv("DOCINTAKE_PIPELINE_PREFIXES_COMPLETE", "/done/")
	t.Setenv("DOCINTAKE_STORAGE_BACKEND", "gcs")
	t.Setenv("DOCINTAKE_NATS_ENABLED", "true")
	t.Setenv("DOCINTAKE_QUEUE_POLL_INTERVAL", "5s")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, 0.9, cfg.Pipeline.ConfidenceThreshold)
	assert.Equal(t, "vertex", cfg.Pipeline.SemanticProvider)
	assert.Equal(t, "done", cfg.Pipeline.Prefixes.Complete)
	assert.Equal(t, "gcs", cfg.Storage.Backend)
	assert.True(t, cfg.NATS.Enabled)
	assert.Equal(t, 5*time.Second, cfg.Queue.PollInterval)
}

func TestLoad_PlatformPort(t *testing.T) {
	t.Setenv("PORT", "9090")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Port)
}

func TestLoad_RejectsInvalidSettings(t *testing.T) {
	tests := []struct {
		name string
		env  string
		val  string
	}{
		{"threshold above one", "DOCINTAKE_PIPELINE_CONFIDENCE_THRESHOLD", "1.5"},
		{"unknown structured provider", "DOCINTAKE_PIPELINE_STRUCTURED_PROVIDER", "tesseract"},
		{"unknown semantic provider", "DOCINTAKE_PIPELINE_SEMANTIC_PROVIDER", "gpt"},
		{"unknown backend", "DOCINTAKE_STORAGE_BACKEND", "ftp"},
		{"zero concurrency", "DOCINTAKE_QUEUE_CONCURRENCY", "0"},
		{"empty inbox prefix", "DOCINTAKE_PIPELINE_PREFIXES_INBOX", "/"},
		{"nested complete prefix", "DOCINTAKE_PIPELINE_PREFIXES_COMPLETE", "done/ok"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.env, tt.val)
			_, err := config.Load()
			assert.Error(t, err)
		})
	}
}

func TestDBConfig_DSN(t *testing.T) {
	db := config.DBConfig{Host: "db", Port: 5433, User: "u", Password: "p", Name: "n", SSLMode: "require"}
	assert.Equal(t, "postgres://u:p@db:5433/n?sslmode=require", db.DSN())
}
