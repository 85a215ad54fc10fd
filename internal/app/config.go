package app

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
)

// Config holds runtime configuration for the application.
type Config struct {
	LDAPHost     string `envconfig:"LDAP_HOST" required:"true"`
	LDAPPort     int    `envconfig:"LDAP_PORT" default:"389" validate:"min=1,max=65535"`
	LDAPBindDN   string `envconfig:"LDAP_USERNAME" required:"true"`
	LDAPPassword string `envconfig:"LDAP_PASSWORD" required:"true"`

	DBHost     string `envconfig:"DB_HOST"`
	DBPort     int    `envconfig:"DB_PORT" default:"5432" validate:"min=1,max=65535"`
	DBUser     string `envconfig:"DBUSER"`
	DBPassword string `envconfig:"DB_PASSWORD"`
	DBName     string `envconfig:"DB_DATABASE" default:"idm_rolemanagement_prod"`

	DryRun       bool   `envconfig:"DRY_RUN"`
	PurgeAgeDays int    `envconfig:"PURGE_AGE_IN_DAYS" default:"7" validate:"min=0"`
	DebugDumpDir string `envconfig:"DEBUG_DUMP_DIR"`

	LogFormat string `envconfig:"LOG_FORMAT" default:"pretty" validate:"oneof=pretty text json"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`

	RedisAddr    string `envconfig:"REDIS_ADDR" default:"127.0.0.1:6379"`
	SyncSchedule string `envconfig:"SYNC_SCHEDULE" default:"0 2 * * *"`
	WorkerAddr   string `envconfig:"WORKER_ADDR" default:":8080"`
}

// LoadConfig reads configuration from environment variables.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("app: invalid configuration: %w", err)
	}
	if !cfg.DryRun {
		for name, val := range map[string]string{
			"DB_HOST":     cfg.DBHost,
			"DBUSER":      cfg.DBUser,
			"DB_PASSWORD": cfg.DBPassword,
		} {
			if val == "" {
				return nil, fmt.Errorf("app: %s must be provided unless DRY_RUN is set", name)
			}
		}
	}
	if fields := strings.Fields(cfg.SyncSchedule); len(fields) != 5 {
		return nil, fmt.Errorf("app: SYNC_SCHEDULE %q is not a five-field cron expression", cfg.SyncSchedule)
	}
	return &cfg, nil
}

// DSN renders the PostgreSQL connection string.
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName)
}

// LDAPAddr renders the directory server URL.
func (c *Config) LDAPAddr() string {
	return fmt.Sprintf("ldap://%s:%d", c.LDAPHost, c.LDAPPort)
}
