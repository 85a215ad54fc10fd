package app

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// unsetEnv clears key for the duration of the test. t.Setenv records the
// original value so the later Unsetenv is undone during cleanup.
func unsetEnv(t *testing.T, key string) {
	t.Helper()
	t.Setenv(key, "")
	_ = os.Unsetenv(key)
}

func setBaseEnv(t *testing.T) {
	t.Helper()
	t.Setenv("LDAP_HOST", "vault.example.com")
	t.Setenv("LDAP_USERNAME", "cn=admin,ou=sa,o=system")
	t.Setenv("LDAP_PASSWORD", "secret")
	t.Setenv("DB_HOST", "db.example.com")
	t.Setenv("DBUSER", "roleviz")
	t.Setenv("DB_PASSWORD", "dbsecret")
	for _, key := range []string{
		"LDAP_PORT", "DB_PORT", "DB_DATABASE",
		"DRY_RUN", "PURGE_AGE_IN_DAYS", "DEBUG_DUMP_DIR",
		"LOG_FORMAT", "LOG_LEVEL",
		"REDIS_ADDR", "SYNC_SCHEDULE", "WORKER_ADDR",
	} {
		unsetEnv(t, key)
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	setBaseEnv(t)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	if cfg.LDAPPort != 389 {
		t.Fatalf("LDAPPort = %d, want 389", cfg.LDAPPort)
	}
	if cfg.DBPort != 5432 {
		t.Fatalf("DBPort = %d, want 5432", cfg.DBPort)
	}
	if cfg.DBName != "idm_rolemanagement_prod" {
		t.Fatalf("DBName = %q", cfg.DBName)
	}
	if cfg.PurgeAgeDays != 7 {
		t.Fatalf("PurgeAgeDays = %d, want 7", cfg.PurgeAgeDays)
	}
	if cfg.SyncSchedule != "0 2 * * *" {
		t.Fatalf("SyncSchedule = %q", cfg.SyncSchedule)
	}

	wantDSN := "host=db.example.com port=5432 user=roleviz password=dbsecret dbname=idm_rolemanagement_prod sslmode=disable"
	if got := cfg.DSN(); got != wantDSN {
		t.Fatalf("DSN = %q, want %q", got, wantDSN)
	}
	if got := cfg.LDAPAddr(); got != "ldap://vault.example.com:389" {
		t.Fatalf("LDAPAddr = %q", got)
	}
}

func TestLoadConfigRequiresDatabaseUnlessDryRun(t *testing.T) {
	setBaseEnv(t)
	unsetEnv(t, "DB_PASSWORD")

	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected error for missing DB_PASSWORD")
	} else if !strings.Contains(err.Error(), "DB_PASSWORD") {
		t.Fatalf("unexpected error: %v", err)
	}

	t.Setenv("DRY_RUN", "true")
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("dry run should not need database settings: %v", err)
	}
	if !cfg.DryRun {
		t.Fatal("DryRun not set")
	}
}

func TestLoadConfigRequiresDirectoryCredentials(t *testing.T) {
	setBaseEnv(t)
	unsetEnv(t, "LDAP_PASSWORD")

	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected error for missing LDAP_PASSWORD")
	}
}

func TestLoadConfigRejectsBadValues(t *testing.T) {
	cases := []struct {
		name  string
		key   string
		value string
	}{
		{"negative purge age", "PURGE_AGE_IN_DAYS", "-1"},
		{"log format", "LOG_FORMAT", "xml"},
		{"log level", "LOG_LEVEL", "verbose"},
		{"ldap port", "LDAP_PORT", "70000"},
		{"six field cron", "SYNC_SCHEDULE", "0 2 * * * *"},
		{"word cron", "SYNC_SCHEDULE", "nightly"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			setBaseEnv(t)
			t.Setenv(tc.key, tc.value)
			if _, err := LoadConfig(); err == nil {
				t.Fatalf("expected %s=%q to be rejected", tc.key, tc.value)
			}
		})
	}
}
