package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Storage backends.
const (
	BackendLocal = "local"
	BackendS3    = "s3"
	BackendMinio = "minio"
)

const envPrefix = "FILEDROP_"

type Config struct {
	Server  ServerConfig
	Storage StorageConfig `envPrefix:"STORAGE_"`
	S3      S3Config      `envPrefix:"S3_"`
	Minio   MinioConfig   `envPrefix:"MINIO_"`
	DB      DBConfig      `envPrefix:"DB_"`
	CORS    CORSConfig    `envPrefix:"CORS_"`
}

type ServerConfig struct {
	Host            string        `env:"HOST" envDefault:"0.0.0.0"`
	Port            string        `env:"PORT" envDefault:"8080"`
	MaxUploadSize   int64         `env:"MAX_UPLOAD_SIZE" envDefault:"134217728"` // 128 MiB
	ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"30s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" envDefault:"60s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	UploadRateLimit float64       `env:"UPLOAD_RATE_LIMIT" envDefault:"5"` // uploads per second per IP
	UploadBurst     int           `env:"UPLOAD_BURST" envDefault:"20"`
}

type StorageConfig struct {
	Backend       string `env:"BACKEND" envDefault:"local"`
	Location      string `env:"LOCATION" envDefault:"upload-dir"`
	WipeOnStartup bool   `env:"WIPE_ON_STARTUP" envDefault:"false"`

	// AllowDeleteAll exposes DELETE /api/v1/files. The endpoint is not
	// authenticated, so only enable it on operator-only deployments.
	AllowDeleteAll bool `env:"ALLOW_DELETE_ALL" envDefault:"false"`
}

type S3Config struct {
	Bucket         string        `env:"BUCKET"`
	Region         string        `env:"REGION" envDefault:"us-east-1"`
	Prefix         string        `env:"PREFIX"`
	AccessKeyID    string        `env:"ACCESS_KEY_ID"`
	SecretKey      string        `env:"SECRET_ACCESS_KEY"`
	Endpoint       string        `env:"ENDPOINT"`
	BaseURL        string        `env:"BASE_URL"`
	ForcePathStyle bool          `env:"FORCE_PATH_STYLE"`
	UploadTimeout  time.Duration `env:"UPLOAD_TIMEOUT" envDefault:"5m"`
}

type MinioConfig struct {
	Endpoint   string `env:"ENDPOINT"`
	AccessKey  string `env:"ACCESS_KEY"`
	SecretKey  string `env:"SECRET_KEY"`
	Bucket     string `env:"BUCKET"`
	Region     string `env:"REGION"`
	Prefix     string `env:"PREFIX"`
	PublicBase string `env:"PUBLIC_BASE"`
	UseSSL     bool   `env:"USE_SSL"`
}

type DBConfig struct {
	DSN string `env:"DSN"`
}

// Enabled reports whether the upload event ledger is configured.
func (c DBConfig) Enabled() bool {
	return c.DSN != ""
}

type CORSConfig struct {
	AllowedOrigins []string `env:"ORIGINS" envSeparator:"," envDefault:"http://localhost:3000"`
}

// Load reads a .env file when present, then parses FILEDROP_* environment variables.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return Parse()
}

// Parse builds a Config from the process environment only.
func Parse() (*Config, error) {
	cfg, err := env.ParseAsWithOptions[Config](env.Options{Prefix: envPrefix})
	if err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case BackendLocal:
		if strings.TrimSpace(c.Storage.Location) == "" {
			return fmt.Errorf("%sSTORAGE_LOCATION must not be empty", envPrefix)
		}
	case BackendS3:
		if c.S3.Bucket == "" {
			return fmt.Errorf("%sS3_BUCKET is required for the s3 backend", envPrefix)
		}
	case BackendMinio:
		if c.Minio.Endpoint == "" || c.Minio.Bucket == "" {
			return fmt.Errorf("%sMINIO_ENDPOINT and %sMINIO_BUCKET are required for the minio backend", envPrefix, envPrefix)
		}
	default:
		return fmt.Errorf("unknown storage backend %q (want local, s3 or minio)", c.Storage.Backend)
	}
	if c.Server.MaxUploadSize <= 0 {
		return fmt.Errorf("%sMAX_UPLOAD_SIZE must be positive", envPrefix)
	}
	return nil
}

func (c *Config) ListenAddr() string {
	return net.JoinHostPort(c.Server.Host, c.Server.Port)
}
