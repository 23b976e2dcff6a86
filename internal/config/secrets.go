package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/zalando/go-keyring"
)

// KeyringService is the service name under which passwords are stored.
const KeyringService = "flatscraper"

// ErrNoStoredPassword is returned when the keyring has no entry for the email.
var ErrNoStoredPassword = errors.New("no password stored in keyring")

// LookupPassword reads the WG-Gesucht password for email from the OS keyring.
func LookupPassword(email string) (string, error) {
	pw, err := keyring.Get(KeyringService, email)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", ErrNoStoredPassword
		}
		return "", fmt.Errorf("keyring get: %w", err)
	}
	return pw, nil
}

// StorePassword saves the password for email in the OS keyring.
func StorePassword(email, password string) error {
	if err := keyring.Set(KeyringService, email, password); err != nil {
		return fmt.Errorf("keyring set: %w", err)
	}
	return nil
}

// EnvFile holds the values the setup wizard writes to .env.
type EnvFile struct {
	Email     string
	Password  string // left out of the file when stored in the keyring
	APIKey    string
	DriveLink string
	Model     string
	Provider  string
}

// WriteEnvFile writes e to path, replacing any existing file.
func WriteEnvFile(path string, e EnvFile) error {
	values := map[string]string{
		"FLATSCRAPER_EMAIL":    e.Email,
		"GROQ_API_KEY":         e.APIKey,
		"GOOGLE_DRIVE_LINK":    e.DriveLink,
		"GROQ_MODEL":           e.Model,
		"RUN_INTERVAL_MINUTES": "30",
		"AUTO_RUN_ENABLED":     "false",
	}
	if e.Password != "" {
		values["FLATSCRAPER_PASSWORD"] = e.Password
	}
	if e.Provider != "" && e.Provider != "groq" {
		values["FLATSCRAPER_LLM_PROVIDER"] = e.Provider
	}

	if err := godotenv.Write(values, path); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return os.Chmod(path, 0o600)
}
