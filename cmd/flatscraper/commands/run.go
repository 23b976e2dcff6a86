package commands

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jmylchreest/flatscraper/internal/anschreiben"
	"github.com/jmylchreest/flatscraper/internal/browser"
	"github.com/jmylchreest/flatscraper/internal/config"
	"github.com/jmylchreest/flatscraper/internal/logger"
	"github.com/jmylchreest/flatscraper/internal/output"
	"github.com/jmylchreest/flatscraper/internal/pipeline"
	"github.com/jmylchreest/flatscraper/internal/platform/wggesucht"
	"github.com/jmylchreest/flatscraper/internal/runlock"
	"github.com/jmylchreest/flatscraper/internal/scheduler"
	"github.com/jmylchreest/flatscraper/pkg/llm"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Search listings, write messages and send them",
	Long: `Run logs in to WG-Gesucht, scans the search URLs from the profile and
processes every fresh listing: read the details, generate a message and
send it through the contact form.

Listings already contacted are skipped. Login and search failures stop the
run; everything else is reported per listing.

Examples:
  # Generate only, nothing is sent
  flatscraper run --no-send

  # Repeat every RUN_INTERVAL_MINUTES and write a JSONL report
  flatscraper run --schedule --report runs.jsonl

  # Use OpenAI instead of Groq
  flatscraper run -p openai -m gpt-4o-mini`,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)

	flags := runCmd.Flags()

	// Behaviour
	flags.Bool("no-send", false, "generate messages without sending them")
	flags.BoolP("all", "a", false, "include listings of any age")
	flags.BoolP("visible", "v", false, "show the browser window")
	flags.Bool("schedule", false, "repeat every RUN_INTERVAL_MINUTES (also AUTO_RUN_ENABLED=true)")
	flags.Bool("quick", false, "run a single cycle even when scheduling is enabled")
	flags.Bool("keyring", false, "read the password from the OS keyring if not set")

	// Limits
	flags.String("max-age", "", "maximum listing age, e.g. 1h, 24h (default FLATSCRAPER_MAX_AGE or 24h)")
	flags.String("max-description", "", "max description size sent to the LLM, e.g. 8KB, 0=unlimited")

	// LLM settings
	flags.StringP("provider", "p", "", "LLM provider: "+fmt.Sprint(llm.AvailableProviders()))
	flags.StringP("model", "m", "", "model name (provider-specific)")
	flags.StringP("api-key", "k", "", "API key (or GROQ_API_KEY / FLATSCRAPER_LLM_API_KEY)")
	flags.String("base-url", "", "custom API base URL")

	// Output
	flags.String("report", "", "write a run report to this file")
	flags.String("format", "", "report format: json, jsonl, yaml (default from file extension)")
	flags.String("screenshots", "", "save a screenshot here when a page fails to load")

	_ = viper.BindPFlag(config.KeyProvider, flags.Lookup("provider"))
	_ = viper.BindPFlag(config.KeyModel, flags.Lookup("model"))
	_ = viper.BindPFlag(config.KeyAPIKey, flags.Lookup("api-key"))
	_ = viper.BindPFlag(config.KeyBaseURL, flags.Lookup("base-url"))
	_ = viper.BindPFlag(config.KeyMaxAge, flags.Lookup("max-age"))
	_ = viper.BindPFlag(config.KeyMaxDescription, flags.Lookup("max-description"))
}

func runRun(cmd *cobra.Command, args []string) error {
	initLogger()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	flags := cmd.Flags()
	noSend, _ := flags.GetBool("no-send")
	all, _ := flags.GetBool("all")
	visible, _ := flags.GetBool("visible")
	schedule, _ := flags.GetBool("schedule")
	quick, _ := flags.GetBool("quick")
	useKeyring, _ := flags.GetBool("keyring")
	screenshots, _ := flags.GetString("screenshots")
	includeAll := all || viper.GetBool("debug")

	cfg, err := config.Load(viper.GetViper(), config.Options{
		EnvFile:     viper.GetString("env_file"),
		ProfileFile: viper.GetString("profile_file"),
		Keyring:     useKeyring,
	})
	if err != nil {
		return err
	}
	repeat := (schedule || cfg.AutoRun) && !quick
	cfg.Scheduled = repeat
	if err := cfg.Validate(); err != nil {
		return err
	}

	report, err := reportTarget(cmd)
	if err != nil {
		return err
	}

	lock, err := runlock.Acquire(lockPath(cfg.ProfileFile))
	if err != nil {
		return err
	}
	defer func() { _ = lock.Release() }()

	provider, err := newProvider(cfg)
	if err != nil {
		return err
	}

	con := newConsole(cmd.OutOrStdout(), cfg.MaxAge, includeAll)
	gen := anschreiben.NewGenerator(provider,
		anschreiben.Persona{Name: cfg.Profile.Name(), Block: cfg.Profile.Block()},
		anschreiben.WithObserver(llm.NewMultiObserver(llm.ObserverFunc(logLLMCall), con.usage)),
	)

	bcfg := browser.DefaultConfig()
	bcfg.Headless = !visible
	bcfg.ScreenshotDir = screenshots
	session, err := browser.NewSession(ctx, bcfg)
	if err != nil {
		return err
	}
	defer func() { _ = session.Close() }()

	site := wggesucht.New(session, wggesucht.Options{
		Email:             cfg.Email,
		Password:          cfg.Password,
		SearchURLs:        cfg.Profile.SearchURLs,
		ExcludedProviders: cfg.Profile.ExcludedProviders,
		MaxAge:            cfg.MaxAge,
		MaxDescription:    cfg.MaxDescription,
		Prompt:            cmd.InOrStdin(),
		Out:               cmd.OutOrStdout(),
	})

	runner := pipeline.NewRunner(site, gen, pipeline.Options{
		NoSend:     noSend,
		IncludeAll: includeAll,
		DriveLink:  cfg.DriveLink,
	}, con.hooks())

	con.banner(repeat, cfg.RunInterval, noSend, visible)

	cycle := func(ctx context.Context) error {
		r, err := runner.Run(ctx)
		if r != nil {
			con.summary(r)
			if report.path != "" {
				if werr := output.SaveReport(report.path, report.format, r); werr != nil {
					logger.Error("report not written", "path", report.path, "error", werr)
				}
			}
		}
		return err
	}

	if !repeat {
		err := cycle(ctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	}

	scheduler.Every(ctx, cfg.RunInterval, "flatscraper", cycle, scheduler.WithWaitNotice(con.nextRun))
	return nil
}

type reportOptions struct {
	path   string
	format output.Format
}

func reportTarget(cmd *cobra.Command) (reportOptions, error) {
	path, _ := cmd.Flags().GetString("report")
	name, _ := cmd.Flags().GetString("format")
	if path == "" {
		return reportOptions{}, nil
	}
	if name == "" {
		return reportOptions{path: path, format: output.FormatFromPath(path)}, nil
	}
	f, err := output.ParseFormat(name)
	if err != nil {
		return reportOptions{}, err
	}
	return reportOptions{path: path, format: f}, nil
}

// newProvider builds the LLM provider. A missing API key is not fatal: the
// generator then reports the error for every listing.
func newProvider(cfg *config.Config) (llm.Provider, error) {
	if !llm.IsRegistered(cfg.Provider) {
		return nil, fmt.Errorf("unknown LLM provider %q (available: %v)", cfg.Provider, llm.AvailableProviders())
	}
	if cfg.APIKey == "" && cfg.Provider != "ollama" {
		logger.Warn("no LLM API key configured, messages cannot be generated", "provider", cfg.Provider)
		return nil, nil
	}

	model := cfg.Model
	if model == "" {
		model = llm.GetDefaultModel(cfg.Provider)
	}

	pc := llm.DefaultProviderConfig()
	pc.APIKey = cfg.APIKey
	pc.BaseURL = cfg.BaseURL
	pc.Model = model

	p, err := llm.NewProvider(cfg.Provider, pc)
	if err != nil {
		return nil, fmt.Errorf("create %s provider: %w", cfg.Provider, err)
	}
	logger.Debug("llm provider ready", "provider", p.Name(), "model", p.Model())
	return p, nil
}

func logLLMCall(_ context.Context, e llm.CallEvent) {
	attrs := []any{
		"provider", e.Provider,
		"model", e.Model,
		"attempt", e.Attempt,
		"duration", e.Duration,
	}
	if e.Response != nil {
		attrs = append(attrs,
			"input_tokens", e.Response.Usage.InputTokens,
			"output_tokens", e.Response.Usage.OutputTokens,
			"finish_reason", e.Response.FinishReason)
	}
	if e.Error != nil {
		attrs = append(attrs, "error", e.Error)
	}
	logger.Debug("llm call", attrs...)
}

// lockPath places the run lock next to the profile so two runs on the same
// profile exclude each other.
func lockPath(profileFile string) string {
	abs, err := filepath.Abs(profileFile)
	if err != nil {
		abs = profileFile
	}
	return filepath.Join(filepath.Dir(abs), ".flatscraper.lock")
}
