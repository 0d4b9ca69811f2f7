// Package config - Tests for configuration management
package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/linkurl/linkurl/rules"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg == nil {
		t.Fatal("DefaultConfig should not return nil")
	}

	if cfg.Settings.TimeoutSeconds != 45 {
		t.Errorf("Expected default timeout of 45, got %d", cfg.Settings.TimeoutSeconds)
	}

	if cfg.Settings.NumThreads != 1 {
		t.Errorf("Expected default thread count of 1, got %d", cfg.Settings.NumThreads)
	}

	if len(cfg.Keywords[rules.KeywordTrialPositive]) == 0 {
		t.Error("Default trial_positive keywords should not be empty")
	}

	if len(cfg.Markers[rules.MarkerLoginRedirect]) == 0 {
		t.Error("Default login_redirect markers should not be empty")
	}

	if len(cfg.Selectors["login_submit_button"]) == 0 {
		t.Error("Default login_submit_button selectors should not be empty")
	}
}

func TestConfigValidation(t *testing.T) {
	cfg := DefaultConfig()

	// Should fail without accounts
	if err := cfg.Validate(); err == nil {
		t.Error("Validation should fail without accounts")
	}

	cfg.Accounts = []Account{{Email: "test@example.com", Password: "password123"}}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validation should pass with an account: %v", err)
	}

	// Empty keyword table must be rejected, not silently tolerated
	saved := cfg.Keywords
	cfg.Keywords = map[string][]string{}
	if err := cfg.Validate(); err == nil {
		t.Error("Validation should fail with empty keywords table")
	}
	cfg.Keywords = map[string][]string{"rate_limit": {}}
	if err := cfg.Validate(); err == nil {
		t.Error("Validation should fail with an empty keyword category")
	}
	cfg.Keywords = saved

	// Missing login redirect markers
	savedMarkers := cfg.Markers
	cfg.Markers = map[string][]string{}
	if err := cfg.Validate(); err == nil {
		t.Error("Validation should fail without login_redirect markers")
	}
	cfg.Markers = savedMarkers

	// Inverted delay range
	cfg.Settings.DelayMin = 5
	cfg.Settings.DelayMax = 2
	if err := cfg.Validate(); err == nil {
		t.Error("Validation should fail with delay_min > delay_max")
	}
	cfg.Settings.DelayMin = 2
	cfg.Settings.DelayMax = 5

	// Thread bounds
	cfg.Settings.NumThreads = 0
	if err := cfg.Validate(); err == nil {
		t.Error("Validation should fail with zero threads")
	}
	cfg.Settings.NumThreads = 1

	// Invalid log level
	cfg.Logging.Level = "invalid"
	if err := cfg.Validate(); err == nil {
		t.Error("Validation should fail with invalid log level")
	}
}

func TestAccountsTextParsing(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AccountsText = "a@example.com:secret1\n# comment\nb@example.com:secret2\n"

	if err := cfg.mergeAccountsText(); err != nil {
		t.Fatalf("mergeAccountsText failed: %v", err)
	}

	if len(cfg.Accounts) != 2 {
		t.Fatalf("Expected 2 accounts, got %d", len(cfg.Accounts))
	}

	if cfg.Accounts[0].Email != "a@example.com" || cfg.Accounts[0].Password != "secret1" {
		t.Errorf("First account parsed wrong: %+v", cfg.Accounts[0])
	}
}

func TestAccountsTextSemicolonSeparator(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AccountsText = "a@example.com:s1;b@example.com:s2"

	if err := cfg.mergeAccountsText(); err != nil {
		t.Fatalf("mergeAccountsText failed: %v", err)
	}
	if len(cfg.Accounts) != 2 {
		t.Errorf("Expected 2 accounts from semicolon form, got %d", len(cfg.Accounts))
	}
}

func TestAccountsTextMalformed(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AccountsText = "not-an-account-line"

	if err := cfg.mergeAccountsText(); err == nil {
		t.Error("Malformed accounts_text line should be an error")
	}
}

func TestAccountsTextDeduplicates(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Accounts = []Account{{Email: "a@example.com", Password: "orig"}}
	cfg.AccountsText = "a@example.com:again\nb@example.com:s2"

	if err := cfg.mergeAccountsText(); err != nil {
		t.Fatalf("mergeAccountsText failed: %v", err)
	}
	if len(cfg.Accounts) != 2 {
		t.Errorf("Duplicate email should be skipped, got %d accounts", len(cfg.Accounts))
	}
	if cfg.Accounts[0].Password != "orig" {
		t.Error("Existing account should not be overwritten")
	}
}

func TestEnvOverrides(t *testing.T) {
	os.Setenv("LINKEDIN_ACCOUNTS", "env@test.com:envpass")
	os.Setenv("HEADLESS", "false")
	os.Setenv("NUM_THREADS", "3")
	os.Setenv("LOG_LEVEL", "debug")
	defer func() {
		os.Unsetenv("LINKEDIN_ACCOUNTS")
		os.Unsetenv("HEADLESS")
		os.Unsetenv("NUM_THREADS")
		os.Unsetenv("LOG_LEVEL")
	}()

	cfg := DefaultConfig()
	cfg.applyEnvOverrides()
	if err := cfg.mergeAccountsText(); err != nil {
		t.Fatalf("mergeAccountsText failed: %v", err)
	}

	if len(cfg.Accounts) != 1 || cfg.Accounts[0].Email != "env@test.com" {
		t.Errorf("Accounts should come from env, got %+v", cfg.Accounts)
	}

	if cfg.Settings.Headless {
		t.Error("Headless should be overridden to false")
	}

	if cfg.Settings.NumThreads != 3 {
		t.Errorf("NumThreads should be 3 from env, got %d", cfg.Settings.NumThreads)
	}

	if cfg.Logging.Level != "debug" {
		t.Errorf("Log level should be debug from env, got %s", cfg.Logging.Level)
	}
}

func TestLoadConfigJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	content := `{
		"settings": {"delay_min": 1, "delay_max": 2, "num_threads": 2, "headless": true},
		"accounts": [{"email": "a@b.com", "password": "p"}]
	}`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Settings.NumThreads != 2 {
		t.Errorf("Expected 2 threads from JSON, got %d", cfg.Settings.NumThreads)
	}

	// Rule tables not present in the file keep their defaults
	if len(cfg.Keywords[rules.KeywordRateLimit]) == 0 {
		t.Error("Default keywords should survive a partial config file")
	}
}

func TestLoadConfigYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := "settings:\n  num_threads: 4\naccounts:\n  - email: a@b.com\n    password: p\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Settings.NumThreads != 4 {
		t.Errorf("Expected 4 threads from YAML, got %d", cfg.Settings.NumThreads)
	}
}

func TestLoadConfigNonExistent(t *testing.T) {
	os.Setenv("LINKEDIN_ACCOUNTS", "test@test.com:password")
	defer os.Unsetenv("LINKEDIN_ACCOUNTS")

	cfg, err := LoadConfig("nonexistent.yaml")
	if err != nil {
		t.Errorf("Should not error for non-existent file: %v", err)
	}

	if cfg == nil {
		t.Fatal("Config should not be nil")
	}

	if cfg.Settings.TimeoutSeconds != 45 {
		t.Error("Should have default timeout")
	}
}

func TestRuleSetAccessor(t *testing.T) {
	cfg := DefaultConfig()
	rs := cfg.RuleSet()

	if len(rs.Keywords) != len(cfg.Keywords) {
		t.Error("RuleSet keywords should mirror config keywords")
	}
	if len(rs.Markers) != len(cfg.Markers) {
		t.Error("RuleSet markers should mirror config markers")
	}
	if len(rs.Selectors) != len(cfg.Selectors) {
		t.Error("RuleSet selectors should mirror config selectors")
	}
}

func TestGetTimeout(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Settings.TimeoutSeconds = 60

	if cfg.GetTimeout().Seconds() != 60 {
		t.Errorf("Expected 60 seconds, got %f", cfg.GetTimeout().Seconds())
	}
}
