package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
)

const (
	defaultConfigPath  = "~/.config/bookapp/config.toml"
	defaultDBPath      = "~/.local/share/bookapp/bookapp.db"
	defaultSessionFile = "~/.config/bookapp/session"
	defaultMongoDB     = "bookapp"
	defaultLogLevel    = "info"
)

// Config holds the application configuration
type Config struct {
	// Local store
	DBPath    string
	UseMockDB bool

	// Remote document store, disabled when MongoURI is empty
	MongoURI      string
	MongoDatabase string

	// Activity analytics, disabled when ClickHouseHost is empty
	ClickHouseHost     string
	ClickHousePort     int
	ClickHouseDatabase string
	ClickHouseUser     string
	ClickHousePassword string
	ClickHouseUseTLS   bool

	// Image storage, disabled when S3Bucket is empty. S3Endpoint points at
	// an S3-compatible service such as MinIO.
	S3Bucket      string
	S3Region      string
	S3Endpoint    string
	S3AccessKeyID string
	S3SecretKey   string

	// Identity
	JWTSecret       string
	GoogleClientIDs []string

	LogLevel       string
	SeedSampleData bool
	SessionFile    string
}

// RemoteEnabled reports whether a remote document store is configured
func (c *Config) RemoteEnabled() bool {
	return c.MongoURI != ""
}

// MediaEnabled reports whether cover and profile images can be uploaded
func (c *Config) MediaEnabled() bool {
	return c.S3Bucket != ""
}

// AnalyticsEnabled reports whether activity goes to ClickHouse
func (c *Config) AnalyticsEnabled() bool {
	return c.ClickHouseHost != ""
}

type fileConfig struct {
	DBPath         string `toml:"db_path"`
	UseMockDB      *bool  `toml:"use_mock_db"`
	LogLevel       string `toml:"log_level"`
	SeedSampleData *bool  `toml:"seed_sample_data"`
	SessionFile    string `toml:"session_file"`

	Mongo struct {
		URI      string `toml:"uri"`
		Database string `toml:"database"`
	} `toml:"mongo"`

	ClickHouse struct {
		Host     string `toml:"host"`
		Port     int    `toml:"port"`
		Database string `toml:"database"`
		User     string `toml:"user"`
		Password string `toml:"password"`
		UseTLS   bool   `toml:"use_tls"`
	} `toml:"clickhouse"`

	S3 struct {
		Bucket          string `toml:"bucket"`
		Region          string `toml:"region"`
		Endpoint        string `toml:"endpoint"`
		AccessKeyID     string `toml:"access_key_id"`
		SecretAccessKey string `toml:"secret_access_key"`
	} `toml:"s3"`

	Auth struct {
		JWTSecret       string   `toml:"jwt_secret"`
		GoogleClientIDs []string `toml:"google_client_ids"`
	} `toml:"auth"`
}

// LoadFromEnv loads the config file named by BOOKAPP_CONFIG (or the default
// location) and applies environment overrides
func LoadFromEnv() (*Config, error) {
	return Load(os.Getenv("BOOKAPP_CONFIG"))
}

// Load reads the TOML file at path, if it exists, then applies environment
// variable overrides and defaults
func Load(path string) (*Config, error) {
	config := &Config{
		DBPath:             defaultDBPath,
		MongoDatabase:      defaultMongoDB,
		ClickHousePort:     9000, // Default ClickHouse native port
		ClickHouseDatabase: "default",
		ClickHouseUser:     "default",
		S3Region:           "us-east-1",
		LogLevel:           defaultLogLevel,
		SeedSampleData:     true,
		SessionFile:        defaultSessionFile,
	}

	if err := config.applyFile(path); err != nil {
		return nil, err
	}
	if err := config.applyEnv(); err != nil {
		return nil, err
	}

	var err error
	if config.DBPath, err = expandPath(config.DBPath); err != nil {
		return nil, fmt.Errorf("invalid db path: %w", err)
	}
	if config.SessionFile, err = expandPath(config.SessionFile); err != nil {
		return nil, fmt.Errorf("invalid session file: %w", err)
	}

	if config.RemoteEnabled() && config.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required when MONGO_URI is set")
	}
	return config, nil
}

func (c *Config) applyFile(path string) error {
	if strings.TrimSpace(path) == "" {
		path = defaultConfigPath
	}
	resolved, err := expandPath(path)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}

	var raw fileConfig
	if err := toml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}

	setString(&c.DBPath, raw.DBPath)
	setString(&c.LogLevel, raw.LogLevel)
	setString(&c.SessionFile, raw.SessionFile)
	if raw.UseMockDB != nil {
		c.UseMockDB = *raw.UseMockDB
	}
	if raw.SeedSampleData != nil {
		c.SeedSampleData = *raw.SeedSampleData
	}

	setString(&c.MongoURI, raw.Mongo.URI)
	setString(&c.MongoDatabase, raw.Mongo.Database)

	setString(&c.ClickHouseHost, raw.ClickHouse.Host)
	if raw.ClickHouse.Port != 0 {
		c.ClickHousePort = raw.ClickHouse.Port
	}
	setString(&c.ClickHouseDatabase, raw.ClickHouse.Database)
	setString(&c.ClickHouseUser, raw.ClickHouse.User)
	setString(&c.ClickHousePassword, raw.ClickHouse.Password)
	c.ClickHouseUseTLS = raw.ClickHouse.UseTLS

	setString(&c.S3Bucket, raw.S3.Bucket)
	setString(&c.S3Region, raw.S3.Region)
	setString(&c.S3Endpoint, raw.S3.Endpoint)
	setString(&c.S3AccessKeyID, raw.S3.AccessKeyID)
	setString(&c.S3SecretKey, raw.S3.SecretAccessKey)

	setString(&c.JWTSecret, raw.Auth.JWTSecret)
	if len(raw.Auth.GoogleClientIDs) > 0 {
		c.GoogleClientIDs = raw.Auth.GoogleClientIDs
	}
	return nil
}

func (c *Config) applyEnv() error {
	setString(&c.DBPath, os.Getenv("BOOKAPP_DB_PATH"))
	setString(&c.LogLevel, os.Getenv("LOG_LEVEL"))
	setString(&c.SessionFile, os.Getenv("SESSION_FILE"))
	setBool(&c.UseMockDB, os.Getenv("USE_MOCK_DB"))
	setBool(&c.SeedSampleData, os.Getenv("SEED_SAMPLE_DATA"))

	setString(&c.MongoURI, os.Getenv("MONGO_URI"))
	setString(&c.MongoDatabase, os.Getenv("MONGO_DATABASE"))

	setString(&c.ClickHouseHost, os.Getenv("CLICKHOUSE_HOST"))
	if portStr := os.Getenv("CLICKHOUSE_PORT"); portStr != "" {
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return fmt.Errorf("invalid CLICKHOUSE_PORT: %w", err)
		}
		c.ClickHousePort = port
	}
	setString(&c.ClickHouseDatabase, os.Getenv("CLICKHOUSE_DATABASE"))
	setString(&c.ClickHouseUser, os.Getenv("CLICKHOUSE_USER"))
	setString(&c.ClickHousePassword, os.Getenv("CLICKHOUSE_PASSWORD"))
	setBool(&c.ClickHouseUseTLS, os.Getenv("CLICKHOUSE_USE_TLS"))

	setString(&c.S3Bucket, os.Getenv("AWS_S3_BUCKET"))
	setString(&c.S3Region, os.Getenv("AWS_REGION"))
	setString(&c.S3Endpoint, os.Getenv("AWS_S3_ENDPOINT"))
	setString(&c.S3AccessKeyID, os.Getenv("AWS_ACCESS_KEY_ID"))
	setString(&c.S3SecretKey, os.Getenv("AWS_SECRET_ACCESS_KEY"))

	setString(&c.JWTSecret, os.Getenv("JWT_SECRET"))
	if ids := os.Getenv("GOOGLE_CLIENT_IDS"); ids != "" {
		c.GoogleClientIDs = nil
		for _, id := range strings.Split(ids, ",") {
			if id = strings.TrimSpace(id); id != "" {
				c.GoogleClientIDs = append(c.GoogleClientIDs, id)
			}
		}
	}
	return nil
}

func setString(dst *string, value string) {
	if v := strings.TrimSpace(value); v != "" {
		*dst = v
	}
}

func setBool(dst *bool, value string) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "true", "1", "yes":
		*dst = true
	case "false", "0", "no":
		*dst = false
	}
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
