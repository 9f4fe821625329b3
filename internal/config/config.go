package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"kpidash/domain/core"
	"kpidash/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Data      DataConfig      `validate:"required"`
	Cache     CacheConfig     `validate:"required"`
	Server    ServerConfig    `validate:"required"`
	Dashboard DashboardConfig `validate:"required"`
	Database  DatabaseConfig
	Profiling ProfilingConfig
	LogLevel  string `validate:"oneof=ERROR WARN INFO DEBUG TRACE"`
}

// DataConfig holds workbook location and ingestion limits
type DataConfig struct {
	ExcelFile       string `validate:"required"`
	FallbackFile    string
	Sheet           string
	MaxFileSizeMB   float64 `validate:"gt=0"`
	MaxStringLength int     `validate:"gt=0"`
	DropColumns     []string
	MinDate         time.Time `validate:"required"`
	MaxDate         time.Time `validate:"required,gtfield=MinDate"`
	NotesFile       string
}

// MaxFileSizeBytes converts the configured limit to bytes
func (d DataConfig) MaxFileSizeBytes() int64 {
	return int64(d.MaxFileSizeMB * 1024 * 1024)
}

// CacheConfig holds dataset cache settings
type CacheConfig struct {
	TTL       time.Duration `validate:"gt=0"`
	WatchFile bool
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port    string `validate:"required,numeric"`
	APIPort string `validate:"required,numeric"`
	GinMode string `validate:"oneof=debug release test"`
}

// DashboardConfig holds presentation limits
type DashboardConfig struct {
	TableMaxRows   int `validate:"gt=0"`
	RankingTopN    int `validate:"gt=0"`
	ComparisonTopN int `validate:"gt=0"`
	ChartWidth     int `validate:"gte=200"`
	ChartHeight    int `validate:"gte=150"`
}

// DatabaseConfig holds the optional load history database. An empty URL
// keeps history in memory.
type DatabaseConfig struct {
	URL string
}

// Enabled reports whether a database was configured
func (d DatabaseConfig) Enabled() bool {
	return d.URL != ""
}

// ProfilingConfig holds performance profiling settings
type ProfilingConfig struct {
	Port    string
	Enabled bool
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := &Config{}

	dataConfig, err := loadDataConfig()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load data configuration")
	}
	config.Data = *dataConfig

	config.Cache = CacheConfig{
		TTL:       getEnvDurationOrDefault("CACHE_TTL", time.Hour),
		WatchFile: getEnvBoolOrDefault("WATCH_FILE", false),
	}
	config.Server = ServerConfig{
		Port:    getEnvOrDefault("PORT", "8080"),
		APIPort: getEnvOrDefault("API_PORT", "8081"),
		GinMode: getEnvOrDefault("GIN_MODE", "release"),
	}
	config.Dashboard = DashboardConfig{
		TableMaxRows:   getEnvIntOrDefault("TABLE_MAX_ROWS", 100),
		RankingTopN:    getEnvIntOrDefault("RANKING_TOP_N", 15),
		ComparisonTopN: getEnvIntOrDefault("COMPARISON_TOP_N", 10),
		ChartWidth:     getEnvIntOrDefault("CHART_WIDTH", 900),
		ChartHeight:    getEnvIntOrDefault("CHART_HEIGHT", 400),
	}
	config.Database = DatabaseConfig{URL: os.Getenv("DATABASE_URL")}
	config.Profiling = ProfilingConfig{
		Port:    getEnvOrDefault("PPROF_PORT", "6060"),
		Enabled: getEnvBoolOrDefault("PPROF_ENABLED", false),
	}
	config.LogLevel = strings.ToUpper(getEnvOrDefault("LOG_LEVEL", "INFO"))

	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}

	return config, nil
}

func loadDataConfig() (*DataConfig, error) {
	minDate, err := getEnvDateOrDefault("MIN_DATE", "2000-01-01")
	if err != nil {
		return nil, err
	}
	maxDate, err := getEnvDateOrDefault("MAX_DATE", "2100-12-31")
	if err != nil {
		return nil, err
	}

	primary := getEnvOrDefault("EXCEL_FILE", "data/dashboard.xlsx")
	fallback := getEnvOrDefault("EXCEL_FALLBACK_FILE", "data/dashboard-example.xlsx")

	return &DataConfig{
		ExcelFile:       ResolveWorkbook(primary, fallback),
		FallbackFile:    fallback,
		Sheet:           os.Getenv("EXCEL_SHEET"),
		MaxFileSizeMB:   getEnvFloatOrDefault("MAX_FILE_SIZE_MB", 50),
		MaxStringLength: getEnvIntOrDefault("MAX_STRING_LENGTH", 1000),
		DropColumns:     getEnvListOrDefault("DROP_COLUMNS", []string{"rota"}),
		MinDate:         minDate,
		MaxDate:         core.EndOfDay(maxDate),
		NotesFile:       os.Getenv("NOTES_FILE"),
	}, nil
}

// ResolveWorkbook returns primary, or fallback when primary does not exist
// and fallback does
func ResolveWorkbook(primary, fallback string) string {
	if fileExists(primary) || fallback == "" {
		return primary
	}
	if fileExists(fallback) {
		return fallback
	}
	return primary
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

var validate = validator.New()

func validateConfig(config *Config) error {
	if err := validate.Struct(config); err != nil {
		if fieldErrs, ok := err.(validator.ValidationErrors); ok {
			msgs := make([]string, 0, len(fieldErrs))
			for _, fe := range fieldErrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
			}
			return errors.ConfigInvalid(strings.Join(msgs, "; "))
		}
		return errors.Wrap(err, "validating configuration")
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// CACHE_TTL accepts a Go duration ("30m") or plain seconds ("3600")
func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
		if seconds, err := strconv.Atoi(value); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return defaultValue
}

func getEnvListOrDefault(key string, defaultValue []string) []string {
	value, ok := os.LookupEnv(key)
	if !ok {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnvDateOrDefault(key, defaultValue string) (time.Time, error) {
	raw := getEnvOrDefault(key, defaultValue)
	t, err := core.ParseDay(raw)
	if err != nil {
		return time.Time{}, errors.ConfigInvalid(fmt.Sprintf("%s must be YYYY-MM-DD, got %q", key, raw))
	}
	return t, nil
}
