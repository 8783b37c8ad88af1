package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"spconnect/database"
	"spconnect/domain/lists"
	"spconnect/infrastructure/session"
	"spconnect/logging"
	"spconnect/spauth"
)

// AppConfig holds application-wide system configuration.
// List parameters here are defaults; each command or request may override them.
type AppConfig struct {
	HTTPAddr    string            `yaml:"http_addr"`
	HTTPLogPath string            `yaml:"http_log_path"`
	Database    database.Config   `yaml:"database"`
	Logging     *logging.Config   `yaml:"logging"`
	SharePoint  spauth.Config     `yaml:"sharepoint"`
	Session     session.Config    `yaml:"session"`
	Lists       *lists.Parameters `yaml:"lists"`
}

// LoadAppConfigFromEnv loads complete application configuration from environment variables.
func LoadAppConfigFromEnv() *AppConfig {
	sp, _ := spauth.FromEnv() // validated when a connector is built
	return &AppConfig{
		HTTPAddr:    getEnvWithDefault("HTTP_ADDR", ":8080"),
		HTTPLogPath: getEnvWithDefault("HTTP_LOG_PATH", ""),
		Database:    LoadDatabaseConfigFromEnv(),
		Logging:     LoadLoggingConfigFromEnv(),
		SharePoint:  sp,
		Session:     LoadSessionConfigFromEnv(),
		Lists:       LoadListParametersFromEnv(),
	}
}

// Load reads the environment, then overlays the YAML file at path when one is given.
// Values present in the file win over the environment.
func Load(path string) (*AppConfig, error) {
	cfg := LoadAppConfigFromEnv()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	if err := cfg.Overlay(data); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}
	return cfg, nil
}

// Overlay decodes YAML data on top of the current values. Secrets are never read from YAML.
func (c *AppConfig) Overlay(data []byte) error {
	if err := yaml.Unmarshal(data, c); err != nil {
		return err
	}
	c.SharePoint.ApplyDefaults()
	return nil
}

// LoadDatabaseConfigFromEnv loads database configuration from environment variables.
func LoadDatabaseConfigFromEnv() database.Config {
	def := database.DefaultConfig()
	return database.Config{
		Path:            getEnvWithDefault("DB_PATH", def.Path),
		MaxOpenConns:    getEnvIntWithDefault("DB_MAX_OPEN_CONNS", def.MaxOpenConns),
		MaxIdleConns:    getEnvIntWithDefault("DB_MAX_IDLE_CONNS", def.MaxIdleConns),
		ConnMaxLifetime: getEnvDurationWithDefault("DB_CONN_MAX_LIFETIME", def.ConnMaxLifetime),
		ConnMaxIdleTime: getEnvDurationWithDefault("DB_CONN_MAX_IDLE_TIME", def.ConnMaxIdleTime),
		BusyTimeoutMs:   getEnvIntWithDefault("DB_BUSY_TIMEOUT_MS", def.BusyTimeoutMs),
		EnableWAL:       getEnvBoolWithDefault("DB_ENABLE_WAL", def.EnableWAL),
	}
}

// LoadLoggingConfigFromEnv loads logging configuration from environment variables.
func LoadLoggingConfigFromEnv() *logging.Config {
	def := logging.DefaultConfig()
	return &logging.Config{
		Level:  getEnvWithDefault("LOG_LEVEL", def.Level),
		Format: getEnvWithDefault("LOG_FORMAT", def.Format),
		Output: getEnvWithDefault("LOG_OUTPUT", def.Output),
	}
}

// LoadSessionConfigFromEnv loads the retry policy from SP_SESSION_* variables.
func LoadSessionConfigFromEnv() session.Config {
	def := session.DefaultConfig()
	cfg := session.Config{
		StatusCodesToRetry:  getEnvIntListWithDefault("SP_SESSION_RETRY_STATUSES", def.StatusCodesToRetry),
		MaxRetries:          getEnvIntWithDefault("SP_SESSION_MAX_RETRIES", def.MaxRetries),
		BaseRetryTimer:      getEnvDurationWithDefault("SP_SESSION_BASE_RETRY_TIMER", def.BaseRetryTimer),
		DefaultRetryAfter:   getEnvDurationWithDefault("SP_SESSION_DEFAULT_RETRY_AFTER", def.DefaultRetryAfter),
		MaxRetryAfter:       getEnvDurationWithDefault("SP_SESSION_MAX_RETRY_AFTER", def.MaxRetryAfter),
		ResetOnForbidden:    getEnvBoolWithDefault("SP_SESSION_RESET_ON_FORBIDDEN", def.ResetOnForbidden),
		ForbiddenResetDelay: getEnvDurationWithDefault("SP_SESSION_FORBIDDEN_RESET_DELAY", def.ForbiddenResetDelay),
		RequestsPerSecond:   getEnvFloatWithDefault("SP_SESSION_REQUESTS_PER_SECOND", def.RequestsPerSecond),
		Burst:               getEnvIntWithDefault("SP_SESSION_BURST", def.Burst),
	}
	return cfg
}

// LoadListParametersFromEnv loads list read/write defaults.
func LoadListParametersFromEnv() *lists.Parameters {
	def := lists.DefaultParameters()
	return &lists.Parameters{
		WriteMode:          getEnvWithDefault("SP_LIST_WRITE_MODE", def.WriteMode),
		AdvancedParameters: getEnvBoolWithDefault("SP_LIST_ADVANCED", def.AdvancedParameters),
		MaxWorkers:         getEnvIntWithDefault("SP_LIST_MAX_WORKERS", def.MaxWorkers),
		BatchSize:          getEnvIntWithDefault("SP_LIST_BATCH_SIZE", def.BatchSize),
		PageSize:           getEnvIntWithDefault("SP_LIST_PAGE_SIZE", def.PageSize),
	}
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseBool(v string, def bool) bool {
	v = strings.TrimSpace(strings.ToLower(v))
	switch v {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

// Helper functions for environment variable parsing.
func getEnvIntWithDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloatWithDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvBoolWithDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return parseBool(value, defaultValue)
	}
	return defaultValue
}

func getEnvDurationWithDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// getEnvIntListWithDefault parses a comma separated list such as "429,503".
func getEnvIntListWithDefault(key string, defaultValue []int) []int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []int
	for _, part := range strings.Split(value, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return defaultValue
		}
		out = append(out, n)
	}
	return out
}
