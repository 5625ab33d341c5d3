/*
config.go - Process configuration

PURPOSE:
  Reads the server configuration from the environment. A .env file in the
  working directory (or the files passed to Load) is loaded first; values
  already set in the environment win. Command-line flags in cmd/server are
  applied on top of the result.

KEYS:
  APP_ADDR               listen address                  :8080
  DB_PATH                sqlite file                     attendance.db
  LOG_FORMAT             text | json                     text
  LOG_LEVEL              logrus level                    info
  LOG_FILE               rotated log file, empty = stderr only
  LOG_MAX_SIZE_MB        rotation size                   50
  LOG_MAX_BACKUPS        rotated files kept              5
  USE_API_CALLS          fetch from the records service  false
  THIRD_PARTY_API_URL    records service base URL (required with the API)
  THIRD_PARTY_API_KEY    records service key (required with the API)
  EMPLOYEE_SITE_ID       employee dataset site           1
  LEAVE_SITE_ID          leave dataset site              27
  PROJECT_SITE_ID        project dataset site            21
  WORKING_TIME_SITE_ID   working-time dataset site       29
  API_TIMEOUT            per-request timeout             30s
  FIXTURE_DIR            <dataset>.json files            fixtures
  REPORT_DEFAULT_MONTH   YYYY-MM used when no month is given
  REPORT_DEFAULT_YEAR    YYYY used when no year is given
  CORS_ORIGINS           comma separated                 *
  EXPORT_RATE_LIMIT      exports per minute per client, 0 = unlimited   30
  SNAPSHOT_KEEP          stored payloads kept per dataset               10
*/
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds runtime configuration for the server.
type Config struct {
	Addr   string `envconfig:"APP_ADDR" default:":8080" validate:"required"`
	DBPath string `envconfig:"DB_PATH" default:"attendance.db" validate:"required"`

	LogFormat     string `envconfig:"LOG_FORMAT" default:"text" validate:"oneof=text json"`
	LogLevel      string `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=trace debug info warn warning error fatal panic"`
	LogFile       string `envconfig:"LOG_FILE"`
	LogMaxSizeMB  int    `envconfig:"LOG_MAX_SIZE_MB" default:"50" validate:"gte=1"`
	LogMaxBackups int    `envconfig:"LOG_MAX_BACKUPS" default:"5" validate:"gte=0"`

	UseAPI            bool          `envconfig:"USE_API_CALLS" default:"false"`
	APIURL            string        `envconfig:"THIRD_PARTY_API_URL" validate:"required_if=UseAPI true,omitempty,url"`
	APIKey            string        `envconfig:"THIRD_PARTY_API_KEY" validate:"required_if=UseAPI true"`
	EmployeeSiteID    int           `envconfig:"EMPLOYEE_SITE_ID" default:"1" validate:"gte=1"`
	LeaveSiteID       int           `envconfig:"LEAVE_SITE_ID" default:"27" validate:"gte=1"`
	ProjectSiteID     int           `envconfig:"PROJECT_SITE_ID" default:"21" validate:"gte=1"`
	WorkingTimeSiteID int           `envconfig:"WORKING_TIME_SITE_ID" default:"29" validate:"gte=1"`
	APITimeout        time.Duration `envconfig:"API_TIMEOUT" default:"30s" validate:"gt=0"`
	FixtureDir        string        `envconfig:"FIXTURE_DIR" default:"fixtures" validate:"required"`
	SnapshotKeep      int           `envconfig:"SNAPSHOT_KEEP" default:"10" validate:"gte=1"`

	DefaultMonth    string   `envconfig:"REPORT_DEFAULT_MONTH" validate:"omitempty,datetime=2006-01"`
	DefaultYear     string   `envconfig:"REPORT_DEFAULT_YEAR" validate:"omitempty,datetime=2006"`
	CORSOrigins     []string `envconfig:"CORS_ORIGINS" default:"*"`
	ExportRateLimit int      `envconfig:"EXPORT_RATE_LIMIT" default:"30" validate:"gte=0"`
}

// Load reads .env files, then the environment. With no arguments it tries
// ".env" and ignores it when missing; named files must exist.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load .env: %w", err)
		}
	} else if err := godotenv.Load(envFiles...); err != nil {
		return nil, fmt.Errorf("load env files: %w", err)
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
