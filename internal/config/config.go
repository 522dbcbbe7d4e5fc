package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"unicode/utf8"

	"countprep/domain/counts"
	"countprep/internal/errors"

	"github.com/joho/godotenv"
)

// Config represents the complete pipeline configuration
type Config struct {
	Database DatabaseConfig
	Paths    PathConfig
	Columns  ColumnConfig
	Logging  LoggingConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Driver   string
	URL      string
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
	Table    string
}

// PathConfig holds input and output file locations
type PathConfig struct {
	RawData    string
	DeviceList string
	OutputCSV  string
	Delimiter  rune
}

// ColumnConfig holds the two spellings of the join key
type ColumnConfig struct {
	RawKey    string
	DeviceKey string
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level  string
	Format string
}

// Supported database drivers
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// LoadEnvFile loads key/value pairs from an env file into the process environment.
// Variables already set are not overwritten. A missing default .env is not an error.
func LoadEnvFile(path string) error {
	if path == "" {
		if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
			return errors.Wrap(errors.WithCode(errors.CodeConfigInvalid, err), "failed to read .env")
		}
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return errors.Wrapf(errors.WithCode(errors.CodeConfigInvalid, err), "failed to read env file %s", path)
	}
	return nil
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	delimiter, err := loadDelimiter()
	if err != nil {
		return nil, err
	}

	config := &Config{
		Database: *loadDatabaseConfig(),
		Paths: PathConfig{
			RawData:    getEnvOrDefault("RAW_DATA_PATH", "/app/raw_data/your_unclean_data.csv"),
			DeviceList: getEnvOrDefault("DEVICE_LIST_PATH", "/app/raw_data/device_list.csv"),
			OutputCSV:  getEnvOrDefault("OUTPUT_CSV_PATH", "/app/output/final_clean_data.csv"),
			Delimiter:  delimiter,
		},
		Columns: ColumnConfig{
			RawKey:    getEnvOrDefault("RAW_KEY_COLUMN", "device_name"),
			DeviceKey: getEnvOrDefault("DEVICE_KEY_COLUMN", counts.ColDeviceName),
		},
		Logging: LoggingConfig{
			Level:  getEnvOrDefault("LOG_LEVEL", "INFO"),
			Format: getEnvOrDefault("LOG_FORMAT", "console"),
		},
	}

	if err := config.Validate(); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}

	return config, nil
}

func loadDatabaseConfig() *DatabaseConfig {
	return &DatabaseConfig{
		Driver:   getEnvOrDefault("DATABASE_DRIVER", DriverPostgres),
		URL:      os.Getenv("DATABASE_URL"),
		Host:     getEnvOrDefault("DATABASE_HOST", "localhost"),
		Port:     getEnvIntOrDefault("DATABASE_PORT", 5432),
		User:     os.Getenv("DATABASE_USER"),
		Password: os.Getenv("DATABASE_PASSWORD"),
		Name:     os.Getenv("DATABASE_NAME"),
		SSLMode:  getEnvOrDefault("DATABASE_SSLMODE", "disable"),
		Table:    getEnvOrDefault("DATABASE_TABLE", counts.DefaultTable),
	}
}

func loadDelimiter() (rune, error) {
	value := getEnvOrDefault("CSV_DELIMITER", ",")
	if value == `\t` {
		return '\t', nil
	}
	if utf8.RuneCountInString(value) != 1 {
		return 0, errors.ConfigInvalid(fmt.Sprintf("CSV_DELIMITER must be a single character, got %q", value))
	}
	r, _ := utf8.DecodeRuneInString(value)
	return r, nil
}

// Validate checks the fields every run needs
func (c *Config) Validate() error {
	if c.Paths.RawData == "" {
		return errors.ConfigInvalid("raw data path is required")
	}
	if c.Paths.DeviceList == "" {
		return errors.ConfigInvalid("device list path is required")
	}
	if c.Paths.OutputCSV == "" {
		return errors.ConfigInvalid("output path is required")
	}
	if c.Columns.RawKey == "" || c.Columns.DeviceKey == "" {
		return errors.ConfigInvalid("join key column names are required")
	}
	if c.Paths.Delimiter == '"' || c.Paths.Delimiter == '\n' || c.Paths.Delimiter == '\r' {
		return errors.ConfigInvalid(fmt.Sprintf("invalid delimiter %q", c.Paths.Delimiter))
	}
	switch c.Database.Driver {
	case DriverPostgres, DriverSQLite:
	default:
		return errors.ConfigInvalid(fmt.Sprintf("unsupported database driver %q", c.Database.Driver))
	}
	if c.Database.Table == "" {
		return errors.ConfigInvalid("database table is required")
	}
	return nil
}

// DSN returns the connection string for the configured driver.
// DATABASE_URL wins when set.
func (d DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	if d.Driver == DriverSQLite {
		return d.Name
	}

	u := url.URL{
		Scheme: "postgres",
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   "/" + d.Name,
	}
	if d.User != "" {
		if d.Password != "" {
			u.User = url.UserPassword(d.User, d.Password)
		} else {
			u.User = url.User(d.User)
		}
	}
	q := url.Values{}
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}

// Redacted describes the target without credentials, for logs
func (d DatabaseConfig) Redacted() string {
	if d.Driver == DriverSQLite {
		return fmt.Sprintf("sqlite:%s", d.DSN())
	}
	if d.URL != "" {
		if u, err := url.Parse(d.URL); err == nil {
			return u.Redacted()
		}
		return "postgres:<url>"
	}
	return fmt.Sprintf("%s:%d/%s", d.Host, d.Port, d.Name)
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
