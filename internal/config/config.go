// Package config reads service configuration from BRIGADE_* environment
// variables, optionally seeded from a .env file.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is the service configuration. LLM settings live in llm.Config.
type Config struct {
	DBDriver string
	DBDSN    string

	HTTPAddr    string
	CORSOrigins []string
	JWTSecret   string

	PassingThreshold int
	TutorThreshold   int
	GradingTimeout   time.Duration
	GenerationWait   time.Duration

	RedisURL     string
	AMQPURL      string
	AMQPExchange string

	BlobBackend string
	BlobDir     string
	MinIO       MinIOConfig

	ConsulAddr  string
	ServiceName string

	LogLevel  slog.Level
	LogFormat string
}

// MinIOConfig locates the voice archive bucket.
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		DBDriver:         "sqlite",
		HTTPAddr:         ":8080",
		CORSOrigins:      []string{"*"},
		PassingThreshold: 70,
		TutorThreshold:   75,
		GradingTimeout:   30 * time.Second,
		GenerationWait:   90 * time.Second,
		AMQPExchange:     "brigade.events",
		BlobBackend:      "fs",
		MinIO:            MinIOConfig{Bucket: "brigade-voice", UseSSL: true},
		ServiceName:      "brigade",
		LogLevel:         slog.LevelInfo,
		LogFormat:        "text",
	}
}

// LoadDotEnv loads ./.env when present. Variables already set win.
func LoadDotEnv() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("failed to load .env", "error", err)
	}
}

// FromEnv returns Default overridden by the environment.
func FromEnv() (Config, error) {
	c := Default()
	var errs []string
	str := func(name string, dst *string) {
		if v, ok := os.LookupEnv(name); ok && v != "" {
			*dst = v
		}
	}
	num := func(name string, dst *int) {
		if v, ok := os.LookupEnv(name); ok && v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Sprintf("%s: %v", name, err))
				return
			}
			*dst = n
		}
	}
	dur := func(name string, dst *time.Duration) {
		if v, ok := os.LookupEnv(name); ok && v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Sprintf("%s: %v", name, err))
				return
			}
			*dst = d
		}
	}

	str("BRIGADE_DB_DRIVER", &c.DBDriver)
	str("BRIGADE_DB_DSN", &c.DBDSN)
	str("BRIGADE_HTTP_ADDR", &c.HTTPAddr)
	if v := os.Getenv("BRIGADE_CORS_ORIGINS"); v != "" {
		c.CORSOrigins = splitList(v)
	}
	str("BRIGADE_JWT_SECRET", &c.JWTSecret)
	num("BRIGADE_PASSING_THRESHOLD", &c.PassingThreshold)
	num("BRIGADE_TUTOR_THRESHOLD", &c.TutorThreshold)
	dur("BRIGADE_GRADING_TIMEOUT", &c.GradingTimeout)
	dur("BRIGADE_GENERATION_WAIT", &c.GenerationWait)
	str("BRIGADE_REDIS_URL", &c.RedisURL)
	str("BRIGADE_AMQP_URL", &c.AMQPURL)
	str("BRIGADE_AMQP_EXCHANGE", &c.AMQPExchange)
	str("BRIGADE_BLOB_BACKEND", &c.BlobBackend)
	str("BRIGADE_BLOB_DIR", &c.BlobDir)
	str("BRIGADE_MINIO_ENDPOINT", &c.MinIO.Endpoint)
	str("BRIGADE_MINIO_ACCESS_KEY", &c.MinIO.AccessKey)
	str("BRIGADE_MINIO_SECRET_KEY", &c.MinIO.SecretKey)
	str("BRIGADE_MINIO_BUCKET", &c.MinIO.Bucket)
	str("BRIGADE_MINIO_REGION", &c.MinIO.Region)
	if v := os.Getenv("BRIGADE_MINIO_USE_SSL"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Sprintf("BRIGADE_MINIO_USE_SSL: %v", err))
		} else {
			c.MinIO.UseSSL = b
		}
	}
	str("BRIGADE_CONSUL_ADDR", &c.ConsulAddr)
	str("BRIGADE_SERVICE_NAME", &c.ServiceName)
	str("BRIGADE_LOG_FORMAT", &c.LogFormat)
	if v := os.Getenv("BRIGADE_LOG_LEVEL"); v != "" {
		if err := c.LogLevel.UnmarshalText([]byte(v)); err != nil {
			errs = append(errs, fmt.Sprintf("BRIGADE_LOG_LEVEL: %v", err))
		}
	}

	if len(errs) > 0 {
		return c, fmt.Errorf("invalid configuration: %s", strings.Join(errs, "; "))
	}
	return c, c.Validate()
}

// Validate checks value ranges and backend names.
func (c Config) Validate() error {
	switch c.DBDriver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unknown database driver %q", c.DBDriver)
	}
	if c.DBDriver == "postgres" && c.DBDSN == "" {
		return fmt.Errorf("BRIGADE_DB_DSN is required for postgres")
	}
	if c.PassingThreshold < 0 || c.PassingThreshold > 100 {
		return fmt.Errorf("passing threshold %d out of range 0-100", c.PassingThreshold)
	}
	if c.TutorThreshold < 0 || c.TutorThreshold > 100 {
		return fmt.Errorf("tutor threshold %d out of range 0-100", c.TutorThreshold)
	}
	switch c.BlobBackend {
	case "fs":
	case "minio":
		if c.MinIO.Endpoint == "" {
			return fmt.Errorf("BRIGADE_MINIO_ENDPOINT is required for the minio blob backend")
		}
	default:
		return fmt.Errorf("unknown blob backend %q", c.BlobBackend)
	}
	return nil
}

// Logger builds the process logger from LogLevel and LogFormat.
func (c Config) Logger() *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.LogLevel}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
