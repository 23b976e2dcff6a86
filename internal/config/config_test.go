package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/zalando/go-keyring"
)

// clearEnv unsets every variable Load reads and restores them after the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, envs := range envBindings {
		for _, name := range envs {
			t.Setenv(name, "")
			_ = os.Unsetenv(name)
		}
	}
}

func testOptions(t *testing.T) Options {
	dir := t.TempDir()
	return Options{
		EnvFile:     filepath.Join(dir, ".env"),
		ProfileFile: filepath.Join(dir, "user_profile.json"),
	}
}

// --- Load Tests ---

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(nil, testOptions(t))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Provider != "groq" {
		t.Errorf("Provider = %q, want groq", cfg.Provider)
	}
	if cfg.RunInterval != 30*time.Minute {
		t.Errorf("RunInterval = %v, want 30m", cfg.RunInterval)
	}
	if cfg.AutoRun {
		t.Error("AutoRun should default to false")
	}
	if cfg.MaxAge != 24*time.Hour {
		t.Errorf("MaxAge = %v, want 24h", cfg.MaxAge)
	}
	if cfg.MaxDescription != 8000 {
		t.Errorf("MaxDescription = %d, want 8000", cfg.MaxDescription)
	}
	if cfg.Profile.Name() != "Nutzer" {
		t.Errorf("persona name = %q, want Nutzer", cfg.Profile.Name())
	}
	if !strings.Contains(cfg.Profile.Block(), "DEINE PERSONA") || !strings.Contains(cfg.Profile.Block(), "Software Engineer") {
		t.Errorf("unexpected default persona block %q", cfg.Profile.Block())
	}
	if len(cfg.Profile.SearchURLs) != 0 {
		t.Errorf("expected no search URLs without profile, got %v", cfg.Profile.SearchURLs)
	}
}

func TestLoad_EnvFile(t *testing.T) {
	clearEnv(t)
	opts := testOptions(t)
	content := "FLATSCRAPER_EMAIL=lukas@example.com\nFLATSCRAPER_PASSWORD=geheim\nGROQ_API_KEY=gsk_test\nGROQ_MODEL=llama-3.3-70b-versatile\nRUN_INTERVAL_MINUTES=10\nAUTO_RUN_ENABLED=true\n"
	if err := os.WriteFile(opts.EnvFile, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(nil, opts)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Email != "lukas@example.com" || cfg.Password != "geheim" {
		t.Errorf("unexpected credentials %q / %q", cfg.Email, cfg.Password)
	}
	if cfg.APIKey != "gsk_test" || cfg.Model != "llama-3.3-70b-versatile" {
		t.Errorf("unexpected LLM settings key=%q model=%q", cfg.APIKey, cfg.Model)
	}
	if cfg.RunInterval != 10*time.Minute || !cfg.AutoRun {
		t.Errorf("unexpected schedule %v auto=%v", cfg.RunInterval, cfg.AutoRun)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestLoad_EnvironmentWinsOverEnvFile(t *testing.T) {
	clearEnv(t)
	opts := testOptions(t)
	if err := os.WriteFile(opts.EnvFile, []byte("GROQ_MODEL=from-file\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("GROQ_MODEL", "from-env")

	cfg, err := Load(nil, opts)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Model != "from-env" {
		t.Errorf("Model = %q, want from-env", cfg.Model)
	}
}

func TestLoad_FlagOverride(t *testing.T) {
	clearEnv(t)
	t.Setenv("FLATSCRAPER_MAX_AGE", "2h")

	v := viper.New()
	v.Set(KeyMaxAge, "90m")

	cfg, err := Load(v, testOptions(t))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.MaxAge != 90*time.Minute {
		t.Errorf("MaxAge = %v, want 90m", cfg.MaxAge)
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name string
		env  string
		val  string
	}{
		{"max age", "FLATSCRAPER_MAX_AGE", "soon"},
		{"max description", "FLATSCRAPER_MAX_DESCRIPTION", "lots"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.env, tt.val)
			if _, err := Load(nil, testOptions(t)); err == nil {
				t.Errorf("expected error for %s=%q", tt.env, tt.val)
			}
		})
	}
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{"24h", 24 * time.Hour, false},
		{"90m", 90 * time.Minute, false},
		{"12", 12 * time.Hour, false},
		{"", 0, true},
		{"bald", 0, true},
	}
	for _, tt := range tests {
		got, err := parseDuration(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("parseDuration(%q) = (%v, %v), want (%v, err=%v)", tt.in, got, err, tt.want, tt.wantErr)
		}
	}
}

// --- Keyring Tests ---

func TestLoad_KeyringFallback(t *testing.T) {
	keyring.MockInit()
	clearEnv(t)
	t.Setenv("FLATSCRAPER_EMAIL", "lukas@example.com")

	if err := StorePassword("lukas@example.com", "aus-dem-keyring"); err != nil {
		t.Fatalf("StorePassword() error = %v", err)
	}

	opts := testOptions(t)
	opts.Keyring = true
	cfg, err := Load(nil, opts)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Password != "aus-dem-keyring" {
		t.Errorf("Password = %q, want keyring value", cfg.Password)
	}

	opts.Keyring = false
	cfg, err = Load(nil, opts)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Password != "" {
		t.Errorf("keyring should not be consulted when disabled, got %q", cfg.Password)
	}
}

func TestLookupPassword_NotFound(t *testing.T) {
	keyring.MockInit()
	if _, err := LookupPassword("nobody@example.com"); err != ErrNoStoredPassword {
		t.Errorf("expected ErrNoStoredPassword, got %v", err)
	}
}

// --- Validate Tests ---

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Email:       "lukas@example.com",
			Password:    "x",
			Provider:    "groq",
			RunInterval: 30 * time.Minute,
			MaxAge:      24 * time.Hour,
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"missing email", func(c *Config) { c.Email = "" }, "FLATSCRAPER_EMAIL is required"},
		{"bad email", func(c *Config) { c.Email = "lukas" }, "FLATSCRAPER_EMAIL must be a valid email address"},
		{"missing password", func(c *Config) { c.Password = "" }, "FLATSCRAPER_PASSWORD is required"},
		{"bad base url", func(c *Config) { c.BaseURL = "not a url" }, "FLATSCRAPER_LLM_BASE_URL must be a valid URL"},
		{"zero max age", func(c *Config) { c.MaxAge = 0 }, "FLATSCRAPER_MAX_AGE"},
		{"api key optional", func(c *Config) { c.APIKey = "" }, ""},
		{"zero interval single run", func(c *Config) { c.RunInterval = 0 }, ""},
		{"zero interval scheduled", func(c *Config) {
			c.RunInterval = 0
			c.Scheduled = true
		}, "RUN_INTERVAL_MINUTES must be at least 1m"},
		{"scheduled", func(c *Config) { c.Scheduled = true }, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

// --- Env File Tests ---

func TestWriteEnvFile_RoundTrip(t *testing.T) {
	clearEnv(t)
	opts := testOptions(t)

	err := WriteEnvFile(opts.EnvFile, EnvFile{
		Email:     "lukas@example.com",
		Password:  "p@ss word",
		APIKey:    "gsk_x",
		DriveLink: "https://drive.google.com/drive/folders/abc",
		Model:     "groq/compound",
	})
	if err != nil {
		t.Fatalf("WriteEnvFile() error = %v", err)
	}

	cfg, err := Load(nil, opts)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Password != "p@ss word" || cfg.DriveLink != "https://drive.google.com/drive/folders/abc" {
		t.Errorf("unexpected values after round trip: %+v", cfg)
	}
	if cfg.Model != "groq/compound" {
		t.Errorf("Model = %q", cfg.Model)
	}
}
