package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/crimson-sun/auditexport/internal/connector"
)

// DefaultEnvFile is loaded when no env file is named explicitly.
const DefaultEnvFile = ".env"

// Config holds all audit export configuration.
type Config struct {
	Connector ConnectorConfig
	Export    ExportConfig
	Server    ServerConfig
	Log       LogConfig
}

// ConnectorConfig holds audit-log source settings.
type ConnectorConfig struct {
	Provider       string
	Token          string
	Endpoint       string
	GuildID        string
	RequestTimeout time.Duration
}

// ExportConfig holds pagination, scheduling and output settings.
type ExportConfig struct {
	PageSize      int // capped at connector.MaxPageSize
	MaxConcurrent int
	MaxPages      int
	Timeout       time.Duration // 0 means no overall limit
	OutputDir     string
	LedgerPath    string // empty disables the export ledger
}

// ServerConfig holds HTTP surface settings.
type ServerConfig struct {
	Addr string
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level string
	JSON  bool
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	return Config{
		Connector: ConnectorConfig{
			Provider:       getenv("AUDIT_PROVIDER", "discord"),
			Token:          os.Getenv("DISCORD_BOT_TOKEN"),
			Endpoint:       os.Getenv("AUDIT_API_ENDPOINT"),
			GuildID:        os.Getenv("AUDIT_GUILD_ID"),
			RequestTimeout: getenvDuration("AUDIT_REQUEST_TIMEOUT", 30*time.Second),
		},
		Export: ExportConfig{
			PageSize:      min(getenvInt("AUDIT_PAGE_SIZE", connector.MaxPageSize), connector.MaxPageSize),
			MaxConcurrent: getenvInt("AUDIT_MAX_CONCURRENT", 5),
			MaxPages:      getenvInt("AUDIT_MAX_PAGES", 1000),
			Timeout:       getenvDuration("AUDIT_EXPORT_TIMEOUT", 0),
			OutputDir:     getenv("AUDIT_OUTPUT_DIR", "logs"),
			LedgerPath:    getenvOptional("AUDIT_LEDGER_PATH", "logs/exports.db"),
		},
		Server: ServerConfig{
			Addr: getenv("AUDIT_HTTP_ADDR", ":8080"),
		},
		Log: LogConfig{
			Level: getenv("AUDIT_LOG_LEVEL", "info"),
			JSON:  getenvBool("AUDIT_LOG_JSON", false),
		},
	}
}

// LoadEnvFile loads variables from path into the process environment
// without overriding ones already set. A missing DefaultEnvFile is ignored;
// any other missing file is an error.
func LoadEnvFile(path string) error {
	explicit := path != ""
	if !explicit {
		path = DefaultEnvFile
	}
	if err := godotenv.Load(path); err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// getenvOptional is like getenv but lets an explicitly empty value through.
func getenvOptional(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d < 0 {
		return fallback
	}
	return d
}

func getenvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
