// Package commands implements the CLI commands for flatscraper.
package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jmylchreest/flatscraper/internal/config"
	"github.com/jmylchreest/flatscraper/internal/logger"
)

var rootCmd = &cobra.Command{
	Use:   "flatscraper",
	Short: "WG-Gesucht search automation with LLM-written messages",
	Long: `Flatscraper logs in to WG-Gesucht, scans your saved searches for fresh
listings, writes a personal message ("Anschreiben") for each one with an
LLM and sends it through the contact form.

Examples:
  # Interactive setup: credentials, persona, search URLs
  flatscraper setup

  # One pass, generate messages but do not send them
  flatscraper run --no-send

  # Every 30 minutes with a visible browser
  flatscraper run --schedule --visible

  # All listings regardless of age, with debug logging
  flatscraper run --debug --no-send`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.BoolP("debug", "d", false, "enable debug logging and include listings of any age")
	flags.BoolP("quiet", "q", false, "suppress log output")
	flags.Bool("log-json", false, "log as JSON")
	flags.String("env-file", config.DefaultEnvFile, "path to the .env file")
	flags.String("profile", config.DefaultProfileFile, "path to the user profile")

	_ = viper.BindPFlag("debug", flags.Lookup("debug"))
	_ = viper.BindPFlag("quiet", flags.Lookup("quiet"))
	_ = viper.BindPFlag("log_json", flags.Lookup("log-json"))
	_ = viper.BindPFlag("env_file", flags.Lookup("env-file"))
	_ = viper.BindPFlag("profile_file", flags.Lookup("profile"))
}

// Execute runs the root command.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		logError("%v", err)
	}
	return err
}

func initLogger() {
	logger.Init(logger.Options{
		Debug: viper.GetBool("debug"),
		Quiet: viper.GetBool("quiet"),
		JSON:  viper.GetBool("log_json"),
	})
}

// logError prints an error message to stderr.
func logError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
}
