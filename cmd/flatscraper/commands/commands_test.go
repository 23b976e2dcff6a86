package commands

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/flatscraper/internal/config"
	"github.com/jmylchreest/flatscraper/internal/listing"
	"github.com/jmylchreest/flatscraper/internal/output"
	"github.com/jmylchreest/flatscraper/internal/pipeline"
	"github.com/jmylchreest/flatscraper/pkg/llm"
)

// --- Setup Wizard Tests ---

func wizardInput(lines ...string) *prompter {
	return newPrompter(strings.NewReader(strings.Join(lines, "\n")+"\n"), &bytes.Buffer{})
}

func TestRunWizard(t *testing.T) {
	p := wizardInput(
		"",               // empty email is asked again
		"me@example.com", // email
		"geheim",         // password
		"gsk_test",       // api key
		"https://drive.google.com/x",
		"Lukas", // first name
		"",      // age -> 26
		"Wien",
		"München",
		"2", // Wohnung
		"Engineer",
		"", // move-in default
		"ordentlich",
		"Boxen",
		"",  // documents default
		"",  // optimize -> yes
		"3", // model
		"",  // first URL -> example
		"https://www.wg-gesucht.de/wohnungen-in-Muenchen.90.2.1.0.html",
		"",
	)

	var refinedRaw string
	refine := func(_ context.Context, provider, apiKey, model, raw string) (string, error) {
		if provider != "groq" || apiKey != "gsk_test" {
			t.Errorf("refine called with %s/%s", provider, apiKey)
		}
		refinedRaw = raw
		return "DEINE PERSONA:\n- optimiert", nil
	}

	res, err := runWizard(context.Background(), p, refine)
	if err != nil {
		t.Fatalf("runWizard() error = %v", err)
	}

	if res.env.Email != "me@example.com" || res.env.Password != "geheim" || res.env.APIKey != "gsk_test" {
		t.Errorf("env = %+v", res.env)
	}
	if res.env.Model != "llama-3.3-70b-versatile" {
		t.Errorf("model = %q", res.env.Model)
	}
	if res.profile.PersonaName != "Lukas" {
		t.Errorf("persona name = %q", res.profile.PersonaName)
	}
	if res.profile.Persona.Age != "26" || res.profile.Persona.LookingFor != "Wohnung" {
		t.Errorf("persona = %+v", res.profile.Persona)
	}
	if res.profile.Persona.MoveIn != "So schnell wie möglich" {
		t.Errorf("move in = %q", res.profile.Persona.MoveIn)
	}
	if res.profile.PersonaBlock != "DEINE PERSONA:\n- optimiert" {
		t.Errorf("persona block = %q", res.profile.PersonaBlock)
	}
	if !strings.Contains(refinedRaw, "- from_city: Wien") {
		t.Errorf("refine input = %q", refinedRaw)
	}
	if len(res.profile.SearchURLs) != 2 || res.profile.SearchURLs[0] != exampleSearchURL {
		t.Errorf("search urls = %v", res.profile.SearchURLs)
	}
}

func TestRunWizard_RefineFailureKeepsBlock(t *testing.T) {
	p := wizardInput(
		"me@example.com", "pw", "key", "",
		"", "", "", "", "", "", "", "", "", "",
		"j", "", "", "",
	)
	refine := func(context.Context, string, string, string, string) (string, error) {
		return "", errors.New("rate limited")
	}

	res, err := runWizard(context.Background(), p, refine)
	if err != nil {
		t.Fatalf("runWizard() error = %v", err)
	}
	if !strings.HasPrefix(res.profile.PersonaBlock, "DEINE PERSONA:\n- Alter: 26 Jahre") {
		t.Errorf("persona block = %q", res.profile.PersonaBlock)
	}
	if res.profile.PersonaName != "Nutzer" {
		t.Errorf("persona name = %q", res.profile.PersonaName)
	}
}

func TestRunWizard_Aborted(t *testing.T) {
	p := wizardInput("me@example.com")
	_, err := runWizard(context.Background(), p, nil)
	if !errors.Is(err, errAborted) {
		t.Errorf("runWizard() error = %v, want errAborted", err)
	}
}

func TestPrompter_ChooseRejectsInvalid(t *testing.T) {
	out := &bytes.Buffer{}
	p := newPrompter(strings.NewReader("9\nabc\n2\n"), out)

	got, err := p.choose("Modell", []string{"a", "b"}, 0)
	if err != nil {
		t.Fatalf("choose() error = %v", err)
	}
	if got != "b" {
		t.Errorf("choose() = %q, want b", got)
	}
	if strings.Count(out.String(), "Bitte eine Zahl") != 2 {
		t.Errorf("expected two retry hints, got:\n%s", out.String())
	}
}

func TestPrompter_URLsDeduplicate(t *testing.T) {
	p := newPrompter(strings.NewReader("https://a\nhttps://a\nhttps://b\n\n"), &bytes.Buffer{})
	got, err := p.urls("URL", "")
	if err != nil {
		t.Fatalf("urls() error = %v", err)
	}
	if len(got) != 2 || got[0] != "https://a" || got[1] != "https://b" {
		t.Errorf("urls() = %v", got)
	}
}

// --- Console Tests ---

func TestConsole_Outcomes(t *testing.T) {
	out := &bytes.Buffer{}
	c := newConsole(out, 24*time.Hour, false)
	h := c.hooks()

	h.OnSearchDone(2)
	h.OnListing(1, 2, listing.Listing{AdID: "8125289", Title: "Helles Zimmer", Price: "450 €", RawAgeText: "5 Minuten"})
	h.OnDetails(&listing.Details{Title: "Helles Zimmer", AdType: listing.AdTypeWohnung, Description: "abc"})
	h.OnRetry(4500*time.Millisecond, 2)
	h.OnOutcome(pipeline.Outcome{Status: pipeline.StatusSent, Message: "Hallo Marco"})
	h.OnOutcome(pipeline.Outcome{Status: pipeline.StatusSkipped, Reason: "already contacted"})

	for _, want := range []string{
		"Gefunden: 2 Anzeigen (unter 24 Stunden alt)",
		"Anzeige 1/2",
		"ID: 8125289  |  450 €  |  -  |  5 Minuten",
		"Wohnung",
		"Rate limit: warte 4s (Versuch 2/4)",
		"Hallo Marco",
		"(11 Zeichen, 2 Wörter)",
		"Nachricht gesendet",
		"Bereits kontaktiert",
	} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("console output missing %q:\n%s", want, out.String())
		}
	}
}

func TestConsole_Summary(t *testing.T) {
	out := &bytes.Buffer{}
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	newConsole(out, time.Hour, true).summary(&pipeline.Report{
		StartedAt:  start,
		FinishedAt: start.Add(90 * time.Second),
		Found:      3,
		Outcomes: []pipeline.Outcome{
			{Status: pipeline.StatusSent},
			{Status: pipeline.StatusFailed},
			{Status: pipeline.StatusSkipped},
		},
	})
	want := "1 gesendet, 0 generiert, 1 übersprungen, 1 fehlgeschlagen von 3 Anzeigen (1m30s)"
	if !strings.Contains(out.String(), want) {
		t.Errorf("summary = %q, want %q", out.String(), want)
	}
}

func TestConsole_SummaryTokenUsage(t *testing.T) {
	out := &bytes.Buffer{}
	c := newConsole(out, time.Hour, false)

	obs := llm.NewMultiObserver(llm.ObserverFunc(func(context.Context, llm.CallEvent) {}), c.usage)
	obs.OnCall(context.Background(), llm.CallEvent{Response: &llm.Response{Usage: llm.Usage{InputTokens: 1200, OutputTokens: 300}}})
	obs.OnCall(context.Background(), llm.CallEvent{Error: errors.New("rate limited")})

	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	r := &pipeline.Report{StartedAt: start, FinishedAt: start}
	c.summary(r)
	if !strings.Contains(out.String(), "KI: 2 Aufrufe, 1,200 Tokens ein, 300 Tokens aus") {
		t.Errorf("summary = %q", out.String())
	}

	out.Reset()
	c.summary(r)
	if strings.Contains(out.String(), "KI:") {
		t.Errorf("usage not reset between cycles: %q", out.String())
	}
}

func TestGermanDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{24 * time.Hour, "24 Stunden"},
		{time.Hour, "1 Stunde"},
		{30 * time.Minute, "30 Minuten"},
		{90 * time.Minute, "90 Minuten"},
		{time.Minute, "1 Minute"},
		{10 * time.Second, "10s"},
	}
	for _, tt := range tests {
		if got := germanDuration(tt.d); got != tt.want {
			t.Errorf("germanDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestEllipsis(t *testing.T) {
	if got := ellipsis("Größe", 3); got != "Grö..." {
		t.Errorf("ellipsis = %q", got)
	}
	if got := ellipsis("kurz", 10); got != "kurz" {
		t.Errorf("ellipsis = %q", got)
	}
}

// --- Run Helper Tests ---

func TestReportTarget(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    reportOptions
		wantErr bool
	}{
		{"none", nil, reportOptions{}, false},
		{"from extension", []string{"--report", "runs.jsonl"}, reportOptions{path: "runs.jsonl", format: output.FormatJSONL}, false},
		{"explicit", []string{"--report", "out.txt", "--format", "yaml"}, reportOptions{path: "out.txt", format: output.FormatYAML}, false},
		{"bad format", []string{"--report", "out", "--format", "xml"}, reportOptions{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := &cobra.Command{}
			cmd.Flags().String("report", "", "")
			cmd.Flags().String("format", "", "")
			if err := cmd.Flags().Parse(tt.args); err != nil {
				t.Fatal(err)
			}

			got, err := reportTarget(cmd)
			if (err != nil) != tt.wantErr {
				t.Fatalf("reportTarget() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("reportTarget() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestNewProvider(t *testing.T) {
	if _, err := newProvider(&config.Config{Provider: "nope", APIKey: "k"}); err == nil || !strings.Contains(err.Error(), `unknown LLM provider "nope"`) {
		t.Errorf("newProvider(nope) error = %v", err)
	}
	if _, err := newProvider(&config.Config{Provider: "nope"}); err == nil {
		t.Error("unknown provider without API key should fail too")
	}

	p, err := newProvider(&config.Config{Provider: "groq"})
	if err != nil || p != nil {
		t.Errorf("newProvider(groq, no key) = %v, %v; want nil, nil", p, err)
	}
}

func TestLockPath(t *testing.T) {
	dir := t.TempDir()
	got := lockPath(filepath.Join(dir, "user_profile.json"))
	if got != filepath.Join(dir, ".flatscraper.lock") {
		t.Errorf("lockPath() = %q", got)
	}
}

func TestVersionCommand(t *testing.T) {
	out := &bytes.Buffer{}
	rootCmd.SetOut(out)
	rootCmd.SetArgs([]string{"version", "--json"})
	defer rootCmd.SetArgs(nil)

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("version error = %v", err)
	}
	if !strings.Contains(out.String(), `"version": "dev"`) {
		t.Errorf("version output = %q", out.String())
	}
}
