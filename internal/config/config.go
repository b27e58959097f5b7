package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"
	_ "time/tzdata" // timezone database for minimal container images

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Store drivers
const (
	DriverFile     = "file"
	DriverMemory   = "memory"
	DriverBolt     = "bolt"
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
)

// Config holds all application configuration
type Config struct {
	Bot      BotConfig
	Store    StoreConfig
	DB       DBConfig
	Reminder ReminderConfig
	Server   ServerConfig
	Log      LogConfig
}

// BotConfig holds Telegram bot configuration
type BotConfig struct {
	Token   string `envconfig:"BOT_TOKEN" required:"true"`
	AdminID string `envconfig:"BOT_ADMIN_ID"`
}

// StoreConfig selects the document store backend
type StoreConfig struct {
	Driver      string `envconfig:"STORE_DRIVER" default:"file"`
	Dir         string `envconfig:"STORE_DIR" default:"data"`
	BoltPath    string `envconfig:"STORE_BOLT_PATH" default:"data/bot.db"`
	PostgresURL string `envconfig:"STORE_POSTGRES_URL"`
}

// DBConfig holds MySQL configuration, used by the mysql store driver
type DBConfig struct {
	Host     string `envconfig:"DB_HOST" default:"localhost"`
	Port     int    `envconfig:"DB_PORT" default:"3306"`
	User     string `envconfig:"DB_USER" default:"root"`
	Password string `envconfig:"DB_PASSWORD"`
	Database string `envconfig:"DB_NAME" default:"hours_bot"`
	MaxConns int    `envconfig:"DB_MAX_CONNS" default:"10"`
}

// ReminderConfig holds the monthly reminder schedule
type ReminderConfig struct {
	Enabled        bool          `envconfig:"REMINDER_ENABLED" default:"true"`
	Timezone       string        `envconfig:"REMINDER_TIMEZONE" default:"Asia/Almaty"`
	Hour           int           `envconfig:"REMINDER_HOUR" default:"15"`
	Minute         int           `envconfig:"REMINDER_MINUTE" default:"0"`
	WindowStartDay int           `envconfig:"REMINDER_WINDOW_START_DAY" default:"27"`
	SendDelay      time.Duration `envconfig:"REMINDER_SEND_DELAY" default:"500ms"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port int `envconfig:"SERVER_PORT" default:"8080"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string `envconfig:"LOG_LEVEL" default:"info"`
}

// DSN returns the MySQL data source name
func (c *DBConfig) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		c.User, c.Password, c.Host, c.Port, c.Database)
}

// Location resolves the reference timezone
func (c *ReminderConfig) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("failed to load timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// LoadEnvFile reads an optional .env file into the process environment.
// Variables already set in the environment win. A missing file is not an error.
func LoadEnvFile() error {
	path := os.Getenv("ENV_FILE")
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	if err := LoadEnvFile(); err != nil {
		return nil, err
	}

	var cfg Config

	if err := envconfig.Process("", &cfg.Bot); err != nil {
		return nil, fmt.Errorf("failed to load bot config: %w", err)
	}

	if err := envconfig.Process("", &cfg.Store); err != nil {
		return nil, fmt.Errorf("failed to load store config: %w", err)
	}

	if err := envconfig.Process("", &cfg.DB); err != nil {
		return nil, fmt.Errorf("failed to load db config: %w", err)
	}

	if err := envconfig.Process("", &cfg.Reminder); err != nil {
		return nil, fmt.Errorf("failed to load reminder config: %w", err)
	}

	if err := envconfig.Process("", &cfg.Server); err != nil {
		return nil, fmt.Errorf("failed to load server config: %w", err)
	}

	if err := envconfig.Process("", &cfg.Log); err != nil {
		return nil, fmt.Errorf("failed to load log config: %w", err)
	}

	return &cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Bot.Token == "" {
		return fmt.Errorf("BOT_TOKEN is required")
	}
	switch c.Store.Driver {
	case DriverFile:
		if c.Store.Dir == "" {
			return fmt.Errorf("STORE_DIR is required for the file driver")
		}
	case DriverMemory:
	case DriverBolt:
		if c.Store.BoltPath == "" {
			return fmt.Errorf("STORE_BOLT_PATH is required for the bolt driver")
		}
	case DriverMySQL:
		if c.DB.Password == "" {
			return fmt.Errorf("DB_PASSWORD is required for the mysql driver")
		}
	case DriverPostgres:
		if c.Store.PostgresURL == "" {
			return fmt.Errorf("STORE_POSTGRES_URL is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.Store.Driver)
	}
	if _, err := c.Reminder.Location(); err != nil {
		return fmt.Errorf("REMINDER_TIMEZONE is invalid: %w", err)
	}
	if c.Reminder.Hour < 0 || c.Reminder.Hour > 23 {
		return fmt.Errorf("REMINDER_HOUR must be between 0 and 23")
	}
	if c.Reminder.Minute < 0 || c.Reminder.Minute > 59 {
		return fmt.Errorf("REMINDER_MINUTE must be between 0 and 59")
	}
	// Every month has at least 28 days, so a start day up to 28 keeps the window non-empty.
	if c.Reminder.WindowStartDay < 1 || c.Reminder.WindowStartDay > 28 {
		return fmt.Errorf("REMINDER_WINDOW_START_DAY must be between 1 and 28")
	}
	if c.Reminder.SendDelay < 0 {
		return fmt.Errorf("REMINDER_SEND_DELAY must not be negative")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("SERVER_PORT must be between 1 and 65535")
	}
	return nil
}
