// Package config provides configuration management for the link checker.
// It loads a JSON or YAML configuration file, applies environment variable
// overrides, and validates the rule tables before a run is allowed to start.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/linkurl/linkurl/rules"
)

// Config holds all configuration for the checker.
type Config struct {
	// Settings holds paths, timing, and browser options.
	Settings Settings `json:"settings" yaml:"settings"`

	// Accounts are the LinkedIn credentials used to check links.
	Accounts []Account `json:"accounts" yaml:"accounts"`

	// AccountsText is an alternative credential form: one "email:password"
	// per line. Parsed into Accounts at load time.
	AccountsText string `json:"accounts_text" yaml:"accounts_text"`

	// Selectors maps a role name to an ordered fallback list of locators.
	Selectors map[string][]string `json:"selectors" yaml:"selectors"`

	// Keywords maps an outcome category to page-text substrings.
	Keywords map[string][]string `json:"keywords" yaml:"keywords"`

	// Markers maps a category to URL substrings. Unlike Keywords these are
	// matched against the final URL, never against page text.
	Markers map[string][]string `json:"markers" yaml:"markers"`

	// UserAgents is the pool one agent per session is drawn from.
	UserAgents []string `json:"user_agents" yaml:"user_agents"`

	// URLs are the well-known LinkedIn endpoints.
	URLs URLConfig `json:"urls" yaml:"urls"`

	Storage StorageConfig `json:"storage" yaml:"storage"`
	Logging LoggingConfig `json:"logging" yaml:"logging"`
}

// Account is one credential pair.
type Account struct {
	Email    string `json:"email" yaml:"email"`
	Password string `json:"password" yaml:"password"`
}

// Settings holds run parameters.
type Settings struct {
	InputFile string `json:"input_file" yaml:"input_file"`
	OutputDir string `json:"output_dir" yaml:"output_dir"`

	// DelayMin/DelayMax bound the uniform-random pause before each
	// navigation, in seconds.
	DelayMin float64 `json:"delay_min" yaml:"delay_min"`
	DelayMax float64 `json:"delay_max" yaml:"delay_max"`

	Headless       bool `json:"headless" yaml:"headless"`
	TimeoutSeconds int  `json:"timeout_seconds" yaml:"timeout_seconds"`
	ViewportWidth  int  `json:"viewport_width" yaml:"viewport_width"`
	ViewportHeight int  `json:"viewport_height" yaml:"viewport_height"`

	// NumThreads is the number of workers; each owns its own browser
	// session and account.
	NumThreads int `json:"num_threads" yaml:"num_threads"`

	// MaxRetries bounds re-checks of a link after an account swap.
	MaxRetries int `json:"max_retries" yaml:"max_retries"`

	// AccountRestMinutes is the minimum idle time before a rate-limited
	// account is used again.
	AccountRestMinutes int `json:"account_rest_duration_minutes" yaml:"account_rest_duration_minutes"`
}

// URLConfig holds the well-known endpoints.
type URLConfig struct {
	LoginURL string `json:"login_url" yaml:"login_url"`
	FeedURL  string `json:"feed_url" yaml:"feed_url"`
}

// StorageConfig holds persistence paths.
type StorageConfig struct {
	DatabasePath string `json:"database_path" yaml:"database_path"`
	CookiesPath  string `json:"cookies_path" yaml:"cookies_path"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level      string `json:"level" yaml:"level"`
	Format     string `json:"format" yaml:"format"`
	OutputFile string `json:"output_file" yaml:"output_file"`
}

// DefaultConfig returns a configuration with the built-in rule tables.
// The keyword and marker lists are treated as versioned data: a config file
// can replace any of them wholesale without touching the classifier.
func DefaultConfig() *Config {
	return &Config{
		Settings: Settings{
			InputFile:          "./linkedin_links.txt",
			OutputDir:          "./results",
			DelayMin:           2.0,
			DelayMax:           5.0,
			Headless:           true,
			TimeoutSeconds:     45,
			ViewportWidth:      1366,
			ViewportHeight:     768,
			NumThreads:         1,
			MaxRetries:         3,
			AccountRestMinutes: 30,
		},
		Selectors: map[string][]string{
			"login_email_field":    {"#username", `input[name="session_key"]`},
			"login_password_field": {"#password", `input[name="session_password"]`},
			"login_submit_button":  {`button[type="submit"]`},
			"cookie_accept_button": {`button[action-type="ACCEPT"]`, `button[data-control-name="ga-cookie.consent.accept.v4"]`},
			rules.RoleActionButtons: {
				`button[data-test="redeem-button"]`,
				`a[href*="/premium/redeem"]`,
				`button.premium-cta`,
			},
			"captcha_frame": {`iframe[src*='captcha']`, "#captcha-internal", "#arkose-challenge"},
		},
		Keywords: map[string][]string{
			rules.KeywordRateLimit: {
				"captcha", "security verification", "are you a human",
				"are you human", "too many requests", "checkpoint",
				"unusual activity",
			},
			rules.KeywordUnavailable: {
				"offer is no longer available", "this offer has expired",
				"sorry, this offer isn't available", "link has expired",
				"already been redeemed", "page not found",
				"something went wrong",
			},
			rules.KeywordAlreadyPremium: {
				"you already have premium", "your premium subscription",
				"currently a premium member", "manage premium account",
			},
			rules.KeywordTrialPositive: {
				"try premium for free", "start your free month", "free trial",
				"claim your gift", "redeem your gift", "activate your gift",
				"1 month free",
			},
			rules.KeywordPaymentForm: {
				"payment method", "add a card", "billing information",
				"credit or debit card",
			},
			rules.KeywordLoginRequired: {
				"authentication required", "sign in to continue",
			},
		},
		Markers: map[string][]string{
			rules.MarkerLoginRedirect: {"/login", "/authwall", "/checkpoint", "/uas/login"},
			rules.MarkerFeedRedirect:  {"/feed"},
			rules.MarkerRedeemPath:    {"/redeem", "/gift", "/claim"},
		},
		UserAgents: []string{
			"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0.0.0 Safari/537.36",
			"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:121.0) Gecko/20100101 Firefox/121.0",
			"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36 Edg/120.0.0.0",
		},
		URLs: URLConfig{
			LoginURL: "https://www.linkedin.com/login",
			FeedURL:  "https://www.linkedin.com/feed/",
		},
		Storage: StorageConfig{
			DatabasePath: "./data/linkurl.db",
			CookiesPath:  "./data/cookies.json",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "text",
			OutputFile: "./logs/linkurl.log",
		},
	}
}

// LoadConfig loads configuration from a JSON or YAML file (chosen by
// extension) and applies environment overrides. A missing file is not an
// error; defaults are used. Callers run Validate once their own overrides
// are applied.
func LoadConfig(configPath string) (*Config, error) {
	config := DefaultConfig()

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		} else if strings.HasSuffix(configPath, ".json") {
			if err := json.Unmarshal(data, config); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		} else {
			if err := yaml.Unmarshal(data, config); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		}
	}

	config.applyEnvOverrides()

	if err := config.mergeAccountsText(); err != nil {
		return nil, err
	}

	return config, nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if accounts := os.Getenv("LINKEDIN_ACCOUNTS"); accounts != "" {
		c.AccountsText = accounts
	}
	if headless := os.Getenv("HEADLESS"); headless != "" {
		c.Settings.Headless = headless == "true" || headless == "1"
	}
	if input := os.Getenv("INPUT_FILE"); input != "" {
		c.Settings.InputFile = input
	}
	if output := os.Getenv("OUTPUT_DIR"); output != "" {
		c.Settings.OutputDir = output
	}
	if threads := os.Getenv("NUM_THREADS"); threads != "" {
		if val, err := strconv.Atoi(threads); err == nil {
			c.Settings.NumThreads = val
		}
	}
	if logLevel := os.Getenv("LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = logLevel
	}
	if dbPath := os.Getenv("DATABASE_PATH"); dbPath != "" {
		c.Storage.DatabasePath = dbPath
	}
}

// mergeAccountsText parses AccountsText ("email:password" per line) and
// appends the entries to Accounts, skipping duplicates.
func (c *Config) mergeAccountsText() error {
	if c.AccountsText == "" {
		return nil
	}

	seen := make(map[string]bool, len(c.Accounts))
	for _, a := range c.Accounts {
		seen[a.Email] = true
	}

	// Semicolons are accepted as line separators so the whole list fits in
	// a single env var.
	text := strings.ReplaceAll(c.AccountsText, ";", "\n")
	for i, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		email, password, ok := strings.Cut(line, ":")
		if !ok || email == "" || password == "" {
			return fmt.Errorf("accounts_text line %d: expected email:password", i+1)
		}
		if seen[email] {
			continue
		}
		seen[email] = true
		c.Accounts = append(c.Accounts, Account{Email: email, Password: password})
	}

	return nil
}

// Validate checks if the configuration is valid. An empty rule table is an
// error: the checker must not silently run and classify every link UNKNOWN.
func (c *Config) Validate() error {
	if len(c.Accounts) == 0 {
		return fmt.Errorf("at least one account is required (accounts, accounts_text, or LINKEDIN_ACCOUNTS)")
	}

	if len(c.Keywords) == 0 {
		return fmt.Errorf("keywords table is empty; every link would classify as UNKNOWN")
	}
	for category, words := range c.Keywords {
		if len(words) == 0 {
			return fmt.Errorf("keyword category %q has no entries", category)
		}
	}

	if len(c.Markers[rules.MarkerLoginRedirect]) == 0 {
		return fmt.Errorf("markers.%s must not be empty", rules.MarkerLoginRedirect)
	}

	if c.Settings.DelayMin < 0 || c.Settings.DelayMax < c.Settings.DelayMin {
		return fmt.Errorf("delay range invalid: min=%.1f max=%.1f", c.Settings.DelayMin, c.Settings.DelayMax)
	}

	if c.Settings.NumThreads < 1 || c.Settings.NumThreads > 16 {
		return fmt.Errorf("num_threads must be between 1 and 16")
	}

	if c.Settings.MaxRetries < 0 {
		return fmt.Errorf("max_retries must not be negative")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logging.Level)
	}

	return nil
}

// RuleSet returns the classifier's view of the configured rule tables.
func (c *Config) RuleSet() *rules.RuleSet {
	return &rules.RuleSet{
		Keywords:  c.Keywords,
		Markers:   c.Markers,
		Selectors: c.Selectors,
	}
}

// GetTimeout returns the configured page timeout as a time.Duration.
func (c *Config) GetTimeout() time.Duration {
	return time.Duration(c.Settings.TimeoutSeconds) * time.Second
}

// SaveConfig writes the current configuration to a JSON or YAML file,
// chosen by extension.
func (c *Config) SaveConfig(configPath string) error {
	var (
		data []byte
		err  error
	)
	if strings.HasSuffix(configPath, ".json") {
		data, err = json.MarshalIndent(c, "", "  ")
	} else {
		data, err = yaml.Marshal(c)
	}
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
