// Package config loads flatscraper settings from .env, the environment,
// command-line flags and the user profile into a single Config value.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/jmylchreest/flatscraper/internal/logger"
)

// Default file locations, relative to the working directory.
const (
	DefaultEnvFile     = ".env"
	DefaultProfileFile = "user_profile.json"
)

// Viper keys. Flags bound by the command layer use the same names.
const (
	KeyEmail          = "email"
	KeyPassword       = "password"
	KeyProvider       = "provider"
	KeyAPIKey         = "api_key"
	KeyModel          = "model"
	KeyBaseURL        = "base_url"
	KeyDriveLink      = "drive_link"
	KeyRunInterval    = "run_interval_minutes"
	KeyAutoRun        = "auto_run"
	KeyMaxAge         = "max_age"
	KeyMaxDescription = "max_description"
)

// envBindings maps viper keys to the environment variables read for them, in
// order of precedence.
var envBindings = map[string][]string{
	KeyEmail:          {"FLATSCRAPER_EMAIL"},
	KeyPassword:       {"FLATSCRAPER_PASSWORD"},
	KeyProvider:       {"FLATSCRAPER_LLM_PROVIDER"},
	KeyAPIKey:         {"FLATSCRAPER_LLM_API_KEY", "GROQ_API_KEY"},
	KeyModel:          {"FLATSCRAPER_LLM_MODEL", "GROQ_MODEL"},
	KeyBaseURL:        {"FLATSCRAPER_LLM_BASE_URL"},
	KeyDriveLink:      {"GOOGLE_DRIVE_LINK"},
	KeyRunInterval:    {"RUN_INTERVAL_MINUTES"},
	KeyAutoRun:        {"AUTO_RUN_ENABLED"},
	KeyMaxAge:         {"FLATSCRAPER_MAX_AGE"},
	KeyMaxDescription: {"FLATSCRAPER_MAX_DESCRIPTION"},
}

// Config is the resolved run configuration. It is built once at startup and
// passed down read-only.
type Config struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required"`

	Provider string `validate:"required"`
	APIKey   string
	Model    string
	BaseURL  string `validate:"omitempty,url"`

	DriveLink string

	RunInterval time.Duration
	AutoRun     bool

	// Scheduled is set by the caller when runs repeat every RunInterval.
	// The interval is only checked then.
	Scheduled bool

	// MaxAge is the freshness limit for listings.
	MaxAge time.Duration `validate:"gt=0"`

	// MaxDescription caps the description sent to the LLM, in bytes. 0 means
	// unlimited.
	MaxDescription int `validate:"gte=0"`

	Profile Profile

	EnvFile     string
	ProfileFile string
}

// Options controls where Load looks for files.
type Options struct {
	EnvFile     string
	ProfileFile string

	// Keyring enables the password lookup in the OS keyring when no password
	// is set in the environment.
	Keyring bool
}

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyProvider, "groq")
	v.SetDefault(KeyModel, "")
	v.SetDefault(KeyRunInterval, 30)
	v.SetDefault(KeyAutoRun, false)
	v.SetDefault(KeyMaxAge, "24h")
	v.SetDefault(KeyMaxDescription, "8KB")
}

// Load resolves the configuration. v may already carry bound flags; nil
// starts from an empty instance. Precedence is flag, environment, .env,
// default. A missing .env or profile is not an error.
func Load(v *viper.Viper, opts Options) (*Config, error) {
	if v == nil {
		v = viper.New()
	}
	if opts.EnvFile == "" {
		opts.EnvFile = DefaultEnvFile
	}
	if opts.ProfileFile == "" {
		opts.ProfileFile = DefaultProfileFile
	}

	if err := godotenv.Load(opts.EnvFile); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", opts.EnvFile, err)
		}
		logger.Debug("no env file", "path", opts.EnvFile)
	}

	SetDefaults(v)
	for key, envs := range envBindings {
		args := append([]string{key}, envs...)
		if err := v.BindEnv(args...); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	maxAge, err := parseDuration(v.GetString(KeyMaxAge))
	if err != nil {
		return nil, fmt.Errorf("invalid max age %q: %w", v.GetString(KeyMaxAge), err)
	}

	maxDesc, err := parseSize(v.GetString(KeyMaxDescription))
	if err != nil {
		return nil, fmt.Errorf("invalid max description %q: %w", v.GetString(KeyMaxDescription), err)
	}

	profile, err := LoadProfile(opts.ProfileFile)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Email:          strings.TrimSpace(v.GetString(KeyEmail)),
		Password:       v.GetString(KeyPassword),
		Provider:       strings.ToLower(strings.TrimSpace(v.GetString(KeyProvider))),
		APIKey:         strings.TrimSpace(v.GetString(KeyAPIKey)),
		Model:          strings.TrimSpace(v.GetString(KeyModel)),
		BaseURL:        strings.TrimSpace(v.GetString(KeyBaseURL)),
		DriveLink:      strings.TrimSpace(v.GetString(KeyDriveLink)),
		RunInterval:    time.Duration(v.GetInt(KeyRunInterval)) * time.Minute,
		AutoRun:        v.GetBool(KeyAutoRun),
		MaxAge:         maxAge,
		MaxDescription: maxDesc,
		Profile:        *profile,
		EnvFile:        opts.EnvFile,
		ProfileFile:    opts.ProfileFile,
	}

	if cfg.Password == "" && cfg.Email != "" && opts.Keyring {
		pw, err := LookupPassword(cfg.Email)
		switch {
		case err == nil:
			cfg.Password = pw
			logger.Debug("password read from keyring", "email", cfg.Email)
		case errors.Is(err, ErrNoStoredPassword):
			logger.Debug("no password in keyring", "email", cfg.Email)
		default:
			logger.Warn("keyring lookup failed", "error", err)
		}
	}

	return cfg, nil
}

// Validate checks the fields a run needs.
func (c *Config) Validate() error {
	v := validator.New()
	v.RegisterStructValidation(validateSchedule, Config{})

	err := v.Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, e := range verrs {
		msgs = append(msgs, fieldName(e.Field())+" "+formatValidationError(e))
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
}

func validateSchedule(sl validator.StructLevel) {
	c := sl.Current().Interface().(Config)
	if c.Scheduled && c.RunInterval < time.Minute {
		sl.ReportError(c.RunInterval, "RunInterval", "RunInterval", "gte", "1m")
	}
}

// fieldName maps struct fields to the setting a user would change.
func fieldName(field string) string {
	switch field {
	case "Email":
		return "FLATSCRAPER_EMAIL"
	case "Password":
		return "FLATSCRAPER_PASSWORD"
	case "Provider":
		return "FLATSCRAPER_LLM_PROVIDER"
	case "BaseURL":
		return "FLATSCRAPER_LLM_BASE_URL"
	case "RunInterval":
		return "RUN_INTERVAL_MINUTES"
	case "MaxAge":
		return "FLATSCRAPER_MAX_AGE"
	default:
		return field
	}
}

func formatValidationError(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "url":
		return "must be a valid URL"
	case "gt", "gte":
		return fmt.Sprintf("must be at least %s", e.Param())
	default:
		return fmt.Sprintf("failed validation '%s'", e.Tag())
	}
}

// parseDuration accepts Go durations ("24h", "90m") and plain numbers, which
// are read as hours.
func parseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New("empty duration")
	}
	if d, err := time.ParseDuration(s); err == nil {
		return d, nil
	}
	d, err := time.ParseDuration(s + "h")
	if err != nil {
		return 0, err
	}
	return d, nil
}

// parseSize parses human byte sizes ("8KB", "16 KiB"). Empty and "0" mean
// unlimited.
func parseSize(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "0" {
		return 0, nil
	}
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

// Exists reports whether path is a regular file.
func Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
