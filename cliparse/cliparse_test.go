// cliparse/cliparse_test.go
package cliparse

import (
	"os"
	"path/filepath"
	"testing"
)

func clearEnv(t *testing.T) {
	for _, k := range []string{"PORT", "DATABASE_URL", "DATABASE_TYPE", "ADMIN_KEY_SALT", "POLL_SLUG_SALT", "DEFAULT_CREDITS", "SESSION_CACHE_SIZE", "BASE_URL"} {
		t.Setenv(k, "")
	}
}

func TestParseFlags_EnvVars(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9000")
	t.Setenv("DATABASE_URL", "postgres://test")
	t.Setenv("ADMIN_KEY_SALT", "test-salt")
	t.Setenv("POLL_SLUG_SALT", "test-slug")
	t.Setenv("DEFAULT_CREDITS", "16")

	cfg, err := ParseFlags([]string{})
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Port != 9000 {
		t.Errorf("expected port 9000, got %d", cfg.Port)
	}
	if cfg.DatabaseType != DatabasePostgres {
		t.Errorf("expected postgres from URL scheme, got %s", cfg.DatabaseType)
	}
	if cfg.Credits != 16 {
		t.Errorf("expected 16 credits, got %d", cfg.Credits)
	}
	if cfg.SessionCache != DefaultSessionCache {
		t.Errorf("expected default session cache, got %d", cfg.SessionCache)
	}
}

func TestParseFlags_CLIOverridesEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9000")

	cfg, err := ParseFlags([]string{"-p", "8080", "-d", "file:test.db", "--admin-salt", "s1", "--slug-salt", "s2", "--base-url", "https://vote.example.com/"})
	if err != nil {
		t.Fatal(err)
	}

	// CLI should override env
	if cfg.Port != 8080 {
		t.Errorf("CLI should override env: expected 8080, got %d", cfg.Port)
	}
	if cfg.DatabaseType != DatabaseSQLite {
		t.Errorf("expected sqlite default, got %s", cfg.DatabaseType)
	}
	if cfg.BaseURL != "https://vote.example.com" {
		t.Errorf("expected trailing slash trimmed, got %s", cfg.BaseURL)
	}
	if cfg.Credits != DefaultCredits {
		t.Errorf("expected default credits, got %d", cfg.Credits)
	}
}

func TestParseFlags_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"missing database", []string{"--admin-salt", "a", "--slug-salt", "b"}},
		{"missing admin salt", []string{"-d", "x.db", "--slug-salt", "b"}},
		{"missing slug salt", []string{"-d", "x.db", "--admin-salt", "a"}},
		{"bad database type", []string{"-d", "x.db", "-t", "mysql", "--admin-salt", "a", "--slug-salt", "b"}},
		{"negative credits", []string{"-d", "x.db", "--credits=-4", "--admin-salt", "a", "--slug-salt", "b"}},
		{"unknown flag", []string{"--nope"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			if _, err := ParseFlags(tt.args); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestParseFlags_EnvFile(t *testing.T) {
	clearEnv(t)
	// godotenv does not override set variables, so unset the cleared ones.
	for _, k := range []string{"DATABASE_URL", "ADMIN_KEY_SALT", "POLL_SLUG_SALT"} {
		os.Unsetenv(k)
	}

	path := filepath.Join(t.TempDir(), "test.env")
	content := "DATABASE_URL=file:env.db\nADMIN_KEY_SALT=from-file\nPOLL_SLUG_SALT=slug-file\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		os.Unsetenv("DATABASE_URL")
		os.Unsetenv("ADMIN_KEY_SALT")
		os.Unsetenv("POLL_SLUG_SALT")
	})

	cfg, err := ParseFlags([]string{"--env-file", path})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.AdminKeySalt != "from-file" {
		t.Errorf("expected salt from env file, got %q", cfg.AdminKeySalt)
	}
	if cfg.DatabaseURL != "file:env.db" {
		t.Errorf("expected database url from env file, got %q", cfg.DatabaseURL)
	}
}
