// Package config loads the server configuration from environment variables.
//
// A .env file in the working directory is read first when present; variables
// already set in the environment win over the file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Storage drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Session modes.
const (
	SessionGlobal = "global"
	SessionCookie = "cookie"
)

// MinSecretLength is the shortest accepted SESSION_SECRET.
const MinSecretLength = 16

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Log      LogConfig
	Database DatabaseConfig
	Session  SessionConfig
}

// ServerConfig contains HTTP settings.
type ServerConfig struct {
	Port        int
	TemplateDir string // empty means the templates embedded in the binary
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level slog.Level
}

// DatabaseConfig selects and locates the store.
type DatabaseConfig struct {
	Driver string
	Path   string // SQLite file

	// Postgres. URL wins over the individual fields when set.
	URL      string
	User     string
	Password string
	Host     string
	Port     int
	Name     string
}

// SessionConfig selects where the current user lives.
type SessionConfig struct {
	Mode          string
	Secret        string
	Secure        bool
	DefaultUserID int64
}

// Load reads .env (if any) and the environment, then validates the result.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config: reading .env: %w", err)
	}

	cfg, err := fromEnv()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func fromEnv() (*Config, error) {
	port, err := getEnvInt("PORT", 3000)
	if err != nil {
		return nil, err
	}
	dbPort, err := getEnvInt("DB_PORT", 5432)
	if err != nil {
		return nil, err
	}
	defaultUser, err := getEnvInt("DEFAULT_USER_ID", 1)
	if err != nil {
		return nil, err
	}
	level, err := parseLevel(getEnv("LOG_LEVEL", "info"))
	if err != nil {
		return nil, err
	}
	secure, err := strconv.ParseBool(getEnv("SESSION_SECURE", "false"))
	if err != nil {
		return nil, fmt.Errorf("config: invalid boolean for SESSION_SECURE: %w", err)
	}

	return &Config{
		Server: ServerConfig{
			Port:        port,
			TemplateDir: getEnv("TEMPLATE_DIR", ""),
		},
		Log: LogConfig{Level: level},
		Database: DatabaseConfig{
			Driver:   strings.ToLower(getEnv("DB_DRIVER", DriverSQLite)),
			Path:     getEnv("DB_PATH", "data/travel.db"),
			URL:      getEnv("DATABASE_URL", ""),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     dbPort,
			Name:     getEnv("DB_NAME", "world"),
		},
		Session: SessionConfig{
			Mode:          strings.ToLower(getEnv("SESSION_MODE", SessionGlobal)),
			Secret:        getEnv("SESSION_SECRET", ""),
			Secure:        secure,
			DefaultUserID: int64(defaultUser),
		},
	}, nil
}

// Validate checks the settings that would otherwise fail late, at first use.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("config: PORT must be between 1 and 65535, got %d", c.Server.Port)
	}

	switch c.Database.Driver {
	case DriverSQLite:
		if c.Database.Path == "" {
			return errors.New("config: DB_PATH is required for the sqlite driver")
		}
	case DriverPostgres:
		if c.Database.URL == "" && (c.Database.Host == "" || c.Database.Name == "") {
			return errors.New("config: DATABASE_URL or DB_HOST and DB_NAME are required for the postgres driver")
		}
	default:
		return fmt.Errorf("config: unknown DB_DRIVER %q (want %s or %s)", c.Database.Driver, DriverSQLite, DriverPostgres)
	}

	switch c.Session.Mode {
	case SessionGlobal:
	case SessionCookie:
		if len(c.Session.Secret) < MinSecretLength {
			return fmt.Errorf("config: SESSION_SECRET must be at least %d characters in cookie mode", MinSecretLength)
		}
	default:
		return fmt.Errorf("config: unknown SESSION_MODE %q (want %s or %s)", c.Session.Mode, SessionGlobal, SessionCookie)
	}

	if c.Session.DefaultUserID < 1 {
		return fmt.Errorf("config: DEFAULT_USER_ID must be positive, got %d", c.Session.DefaultUserID)
	}
	return nil
}

// PostgresDSN returns DATABASE_URL, or a URL built from the DB_* fields.
func (c *Config) PostgresDSN() string {
	if c.Database.URL != "" {
		return c.Database.URL
	}

	u := url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(c.Database.Host, strconv.Itoa(c.Database.Port)),
		Path:   "/" + c.Database.Name,
	}
	if c.Database.Password != "" {
		u.User = url.UserPassword(c.Database.User, c.Database.Password)
	} else if c.Database.User != "" {
		u.User = url.User(c.Database.User)
	}
	return u.String()
}

// String returns the config with secrets masked.
func (c *Config) String() string {
	store := c.Database.Path
	if c.Database.Driver == DriverPostgres {
		store = fmt.Sprintf("%s:%d/%s", c.Database.Host, c.Database.Port, c.Database.Name)
		if c.Database.URL != "" {
			store = "DATABASE_URL"
		}
	}
	return fmt.Sprintf("Config{Port: %d, DB: %s(%s), Session: %s, Secret: *** (masked) ***}",
		c.Server.Port, c.Database.Driver, store, c.Session.Mode)
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("config: invalid LOG_LEVEL %q: %w", s, err)
	}
	return level, nil
}

// getEnv retrieves an environment variable with a default fallback.
func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}

// getEnvInt retrieves an environment variable as an integer with a default fallback.
func getEnvInt(key string, defaultVal int) (int, error) {
	if value, exists := os.LookupEnv(key); exists {
		intVal, err := strconv.Atoi(value)
		if err != nil {
			return 0, fmt.Errorf("config: invalid integer for %s: %w", key, err)
		}
		return intVal, nil
	}
	return defaultVal, nil
}
