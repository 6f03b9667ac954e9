// Package config loads server settings from an optional .env file, the
// environment and command-line flags, in increasing order of precedence.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

type Config struct {
	Port         int
	DatabasePath string
	LogLevel     string
	LogFormat    string
	TimeZone     string
	CORSOrigins  []string
	SeedScenario string

	location *time.Location
}

var defaultOrigins = []string{"http://localhost:5173", "http://localhost:8080"}

// Load reads .env (when present), the environment, then args.
func Load(args []string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("error loading env variables: %w", err)
	}

	cfg := &Config{
		Port:         getEnvAsInt("PORT", 8080),
		DatabasePath: getEnv("DATABASE_PATH", "attendance.db"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		LogFormat:    getEnv("LOG_FORMAT", "text"),
		TimeZone:     getEnv("TIME_ZONE", "UTC"),
		CORSOrigins:  getEnvAsList("CORS_ORIGINS", defaultOrigins),
		SeedScenario: getEnv("SEED_SCENARIO", ""),
	}

	fset := flag.NewFlagSet("server", flag.ContinueOnError)
	fset.IntVar(&cfg.Port, "port", cfg.Port, "HTTP server port")
	fset.StringVar(&cfg.DatabasePath, "db", cfg.DatabasePath, "SQLite database path (\":memory:\" for in-memory)")
	fset.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level (debug, info, warn, error)")
	fset.StringVar(&cfg.SeedScenario, "seed", cfg.SeedScenario, "demo scenario to load at startup")
	if err := fset.Parse(args); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.DatabasePath == "" {
		return errors.New("database path is required")
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return fmt.Errorf("invalid log format %q (use text or json)", c.LogFormat)
	}
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return fmt.Errorf("invalid time zone %q: %w", c.TimeZone, err)
	}
	c.location = loc
	return nil
}

// Location is the company time zone used for "today" and clock times.
func (c *Config) Location() *time.Location {
	if c.location == nil {
		return time.UTC
	}
	return c.location
}

// Clock returns the wall clock in the company time zone.
func (c *Config) Clock() func() time.Time {
	loc := c.Location()
	return func() time.Time { return time.Now().In(loc) }
}

// Logger builds the root logger.
func (c *Config) Logger() *logrus.Logger {
	logger := logrus.New()
	if level, err := logrus.ParseLevel(c.LogLevel); err == nil {
		logger.SetLevel(level)
	}
	if c.LogFormat == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return logger
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func getEnv(key string, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}

func getEnvAsInt(name string, defaultVal int) int {
	valStr := getEnv(name, "")
	if val, err := strconv.Atoi(valStr); err == nil {
		return val
	}
	return defaultVal
}

func getEnvAsList(name string, defaultVal []string) []string {
	valStr := getEnv(name, "")
	if valStr == "" {
		return defaultVal
	}
	var list []string
	for _, part := range strings.Split(valStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			list = append(list, part)
		}
	}
	return list
}
