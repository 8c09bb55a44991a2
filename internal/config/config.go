// Package config reads service settings from the environment.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/dukerupert/pawboard/internal/backup"
	"github.com/dukerupert/pawboard/internal/calendar"
)

const (
	StoreJSON   = "json"
	StoreSQLite = "sqlite"
)

type Config struct {
	Port           string
	DataPath       string
	Store          string
	Timezone       string
	LogLevel       string
	ClientDir      string
	AllowedOrigins []string

	BackupDir        string
	BackupPassphrase string
	S3               backup.S3Config
}

// Load reads PAWBOARD_* variables, applying defaults for unset ones.
func Load() *Config {
	return &Config{
		Port:           getEnv("PAWBOARD_PORT", "8000"),
		DataPath:       getEnv("PAWBOARD_DATA_PATH", "db.json"),
		Store:          strings.ToLower(strings.TrimSpace(getEnv("PAWBOARD_STORE", StoreJSON))),
		Timezone:       getEnv("PAWBOARD_TIMEZONE", "UTC"),
		LogLevel:       getEnv("PAWBOARD_LOG_LEVEL", "info"),
		ClientDir:      getEnv("PAWBOARD_CLIENT_DIR", "../client"),
		AllowedOrigins: parseOrigins(getEnv("PAWBOARD_ALLOWED_ORIGINS", "*")),

		BackupDir:        getEnv("PAWBOARD_BACKUP_DIR", ""),
		BackupPassphrase: getEnv("PAWBOARD_BACKUP_PASSPHRASE", ""),
		S3: backup.S3Config{
			Endpoint:  getEnv("PAWBOARD_S3_ENDPOINT", ""),
			Bucket:    getEnv("PAWBOARD_S3_BUCKET", ""),
			Region:    getEnv("PAWBOARD_S3_REGION", "auto"),
			AccessKey: getEnv("PAWBOARD_S3_ACCESS_KEY", ""),
			SecretKey: getEnv("PAWBOARD_S3_SECRET_KEY", ""),
		},
	}
}

// Validate rejects settings the service cannot start with.
func (c *Config) Validate() error {
	if c.Store != StoreJSON && c.Store != StoreSQLite {
		return fmt.Errorf("PAWBOARD_STORE: unknown store %q (want %q or %q)", c.Store, StoreJSON, StoreSQLite)
	}
	if c.DataPath == "" {
		return fmt.Errorf("PAWBOARD_DATA_PATH: empty")
	}
	if _, err := calendar.Load(c.Timezone); err != nil {
		return fmt.Errorf("PAWBOARD_TIMEZONE: %w", err)
	}
	return nil
}

// Calendar returns the calendar for the configured zone.
func (c *Config) Calendar() (*calendar.Calendar, error) {
	return calendar.Load(c.Timezone)
}

// Backup returns the backup manager settings.
func (c *Config) Backup() backup.Config {
	return backup.Config{
		DataPath:   c.DataPath,
		Dir:        c.BackupDir,
		Passphrase: c.BackupPassphrase,
		S3:         c.S3,
	}
}

func (c *Config) Addr() string {
	return ":" + c.Port
}

func parseOrigins(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
