package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App      AppConfig      `yaml:"app"`
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Photos   PhotosConfig   `yaml:"photos"`
	Roster   RosterConfig   `yaml:"roster"`
	Storage  StorageConfig  `yaml:"storage"`
	Redis    RedisConfig    `yaml:"redis"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type AppConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
	Env     string `yaml:"env"`
}

type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	MaxUploadBytes  int64         `yaml:"max_upload_bytes"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type PhotosConfig struct {
	Dir string `yaml:"dir"`
}

// RosterConfig points at a roster file; an empty path selects the embedded seed.
type RosterConfig struct {
	Path string `yaml:"path"`
}

type StorageConfig struct {
	S3 S3Config `yaml:"s3"`
}

type S3Config struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	UseSSL    bool   `yaml:"use_ssl"`
}

type RedisConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	Password     string        `yaml:"password"`
	DB           int           `yaml:"db"`
	PoolSize     int           `yaml:"pool_size"`
	SyncQueue    string        `yaml:"sync_queue"`
	DLQSuffix    string        `yaml:"dlq_suffix"`
	ResultPrefix string        `yaml:"result_prefix"`
	ResultTTL    time.Duration `yaml:"result_ttl"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Placeholder values shipped in sample env files. They count as unset.
const (
	PlaceholderAccessKey = "your_aws_access_key_here"
	PlaceholderSecretKey = "your_aws_secret_key_here"
	PlaceholderRegion    = "your_region_here"
	PlaceholderBucket    = "your_bucket_name_here"
)

func Default() *Config {
	return &Config{
		App: AppConfig{
			Name:    "classroom-photo-sync",
			Version: "dev",
			Env:     "development",
		},
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    120 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			MaxUploadBytes:  20 << 20,
		},
		Database: DatabaseConfig{Path: "teacher_photos.db"},
		Photos:   PhotosConfig{Dir: "photos"},
		Storage: StorageConfig{S3: S3Config{
			Region: "us-east-1",
			Bucket: "teacher-photo-upload-app",
			UseSSL: true,
		}},
		Redis: RedisConfig{
			Host:         "localhost",
			Port:         6379,
			PoolSize:     10,
			SyncQueue:    "photosync:sync",
			DLQSuffix:    ":dlq",
			ResultPrefix: "photosync:result:",
			ResultTTL:    24 * time.Hour,
		},
		Logging: LoggingConfig{Level: "info", Format: "json"},
	}
}

// Load reads the YAML file named by CONFIG_PATH (default config.yaml) on top of
// the defaults, then applies .env and environment overrides.
func Load() (*Config, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}

	cfg := Default()

	data, err := os.ReadFile(configPath)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config: %w", err)
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Existing environment variables win over .env entries.
	_ = godotenv.Load()

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	setString(&c.Storage.S3.AccessKey, "AWS_ACCESS_KEY_ID")
	setString(&c.Storage.S3.SecretKey, "AWS_SECRET_ACCESS_KEY")
	setString(&c.Storage.S3.Region, "AWS_REGION")
	setString(&c.Storage.S3.Bucket, "AWS_S3_BUCKET")
	setString(&c.Storage.S3.Endpoint, "AWS_S3_ENDPOINT")
	setString(&c.Database.Path, "DB_PATH")
	setString(&c.Photos.Dir, "PHOTO_DIR")
	setString(&c.Roster.Path, "ROSTER_PATH")
	setString(&c.Logging.Level, "LOG_LEVEL")
	setString(&c.Logging.Format, "LOG_FORMAT")
	setString(&c.App.Env, "APP_ENV")

	if v := os.Getenv("REDIS_ADDR"); v != "" {
		host, port, ok := splitHostPort(v)
		if ok {
			c.Redis.Host = host
			c.Redis.Port = port
		}
	}
	if v := os.Getenv("HTTP_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func splitHostPort(addr string) (string, int, bool) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return "", 0, false
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", 0, false
	}
	return host, port, true
}

// ValidateS3 reports every missing or placeholder S3 setting.
func (c *Config) ValidateS3() []string {
	s3 := c.Storage.S3
	var problems []string

	if s3.AccessKey == "" || s3.AccessKey == PlaceholderAccessKey {
		problems = append(problems, "AWS_ACCESS_KEY_ID is not configured")
	}
	if s3.SecretKey == "" || s3.SecretKey == PlaceholderSecretKey {
		problems = append(problems, "AWS_SECRET_ACCESS_KEY is not configured")
	}
	if s3.Region == "" || s3.Region == PlaceholderRegion {
		problems = append(problems, "AWS_REGION is not configured")
	}
	if s3.Bucket == "" || s3.Bucket == PlaceholderBucket {
		problems = append(problems, "AWS_S3_BUCKET is not configured")
	}

	return problems
}

func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}
