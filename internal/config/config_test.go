package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnv_Defaults(t *testing.T) {
	c, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, "sqlite", c.DBDriver)
	assert.Equal(t, ":8080", c.HTTPAddr)
	assert.Equal(t, 70, c.PassingThreshold)
	assert.Equal(t, 75, c.TutorThreshold)
	assert.Equal(t, "fs", c.BlobBackend)
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("BRIGADE_DB_DRIVER", "postgres")
	t.Setenv("BRIGADE_DB_DSN", "postgres://brigade@localhost/brigade")
	t.Setenv("BRIGADE_CORS_ORIGINS", "https://train.example.com, https://admin.example.com")
	t.Setenv("BRIGADE_PASSING_THRESHOLD", "80")
	t.Setenv("BRIGADE_GRADING_TIMEOUT", "12s")
	t.Setenv("BRIGADE_LOG_LEVEL", "debug")
	t.Setenv("BRIGADE_BLOB_BACKEND", "minio")
	t.Setenv("BRIGADE_MINIO_ENDPOINT", "minio:9000")
	t.Setenv("BRIGADE_MINIO_USE_SSL", "false")

	c, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, "postgres", c.DBDriver)
	assert.Equal(t, []string{"https://train.example.com", "https://admin.example.com"}, c.CORSOrigins)
	assert.Equal(t, 80, c.PassingThreshold)
	assert.Equal(t, 12*time.Second, c.GradingTimeout)
	assert.Equal(t, slog.LevelDebug, c.LogLevel)
	assert.Equal(t, "minio:9000", c.MinIO.Endpoint)
	assert.False(t, c.MinIO.UseSSL)
}

func TestFromEnv_Invalid(t *testing.T) {
	tests := []struct {
		name, key, value string
	}{
		{"bad number", "BRIGADE_PASSING_THRESHOLD", "seventy"},
		{"threshold range", "BRIGADE_TUTOR_THRESHOLD", "120"},
		{"bad duration", "BRIGADE_GENERATION_WAIT", "soon"},
		{"driver", "BRIGADE_DB_DRIVER", "mysql"},
		{"postgres without dsn", "BRIGADE_DB_DRIVER", "postgres"},
		{"blob backend", "BRIGADE_BLOB_BACKEND", "s3"},
		{"minio without endpoint", "BRIGADE_BLOB_BACKEND", "minio"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := FromEnv()
			assert.Error(t, err)
		})
	}
}
