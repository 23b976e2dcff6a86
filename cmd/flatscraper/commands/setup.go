package commands

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jmylchreest/flatscraper/internal/anschreiben"
	"github.com/jmylchreest/flatscraper/internal/config"
	"github.com/jmylchreest/flatscraper/internal/logger"
	"github.com/jmylchreest/flatscraper/internal/platform/wggesucht"
	"github.com/jmylchreest/flatscraper/pkg/llm"
)

// groqModels are offered in the setup wizard, highest throughput first.
var groqModels = []string{
	"groq/compound",
	"groq/compound-mini",
	"llama-3.3-70b-versatile",
	"meta-llama/llama-4-scout-17b-16e-instruct",
}

const exampleSearchURL = "https://www.wg-gesucht.de/wg-zimmer-in-Muenchen.90.0.1.0.html?offer_filter=1&city_id=90&sort_order=0&noDeact=1&categories%5B%5D=0&sMin=20&rMax=1200&radDis=3000&wgMxT=2"

const driveExplanation = `Lade deine Bewerbungsunterlagen (Vertrag, Gehaltsnachweis, Ausweis, Steckbrief)
in einen Google Drive Ordner hoch. Teile den Ordner mit "Jeder mit dem Link kann ansehen"
und füge den Link hier ein. Vermieter können so deine Unterlagen prüfen.`

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Interactive setup of credentials, persona and search URLs",
	Long: `Setup asks for your WG-Gesucht login, LLM API key, Google Drive link,
a short persona and the search URLs to scan. It writes .env and
user_profile.json in the current directory.

With --keyring the password is stored in the OS keyring instead of .env.`,
	RunE: runSetup,
}

func init() {
	rootCmd.AddCommand(setupCmd)
	setupCmd.Flags().Bool("keyring", false, "store the password in the OS keyring instead of .env")
}

func runSetup(cmd *cobra.Command, args []string) error {
	initLogger()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	useKeyring, _ := cmd.Flags().GetBool("keyring")
	envPath := viper.GetString("env_file")
	profilePath := viper.GetString("profile_file")

	p := newPrompter(cmd.InOrStdin(), cmd.OutOrStdout())
	res, err := runWizard(ctx, p, refineWithLLM)
	if err != nil {
		return err
	}

	if useKeyring {
		if err := config.StorePassword(res.env.Email, res.env.Password); err != nil {
			return err
		}
		res.env.Password = ""
		p.say("Passwort im Schlüsselbund gespeichert. Starte mit: flatscraper run --keyring")
	}

	if err := config.WriteEnvFile(envPath, res.env); err != nil {
		return err
	}
	if err := config.SaveProfile(profilePath, res.profile); err != nil {
		return err
	}

	p.say("")
	p.say("Gespeichert: %s, %s", envPath, profilePath)
	p.say("Starte mit: flatscraper run --no-send")
	return nil
}

// refineFunc turns raw persona answers into a persona block.
type refineFunc func(ctx context.Context, provider, apiKey, model, raw string) (string, error)

func refineWithLLM(ctx context.Context, provider, apiKey, model, raw string) (string, error) {
	pc := llm.DefaultProviderConfig()
	pc.APIKey = apiKey
	pc.Model = model
	prov, err := llm.NewProvider(provider, pc)
	if err != nil {
		return "", err
	}
	return anschreiben.NewGenerator(prov, anschreiben.Persona{}).RefinePersona(ctx, raw)
}

type wizardResult struct {
	env     config.EnvFile
	profile config.Profile
}

// errAborted is returned when the input ends before the wizard finishes.
var errAborted = errors.New("setup aborted")

func runWizard(ctx context.Context, p *prompter, refine refineFunc) (*wizardResult, error) {
	p.say("FlatScraper Setup-Assistent")
	p.say("Willkommen! Wir richten dein Profil ein.")

	p.section("Schritt 1: Anmeldedaten")
	email, err := p.required("WG-Gesucht E-Mail", "Bitte E-Mail eingeben.")
	if err != nil {
		return nil, err
	}
	password, err := p.required("WG-Gesucht Passwort", "Bitte Passwort eingeben.")
	if err != nil {
		return nil, err
	}
	apiKey, err := p.text("Groq API-Schlüssel (https://console.groq.com)", "")
	if err != nil {
		return nil, err
	}

	p.section("Schritt 2: Google Drive")
	p.say("%s", driveExplanation)
	drive, err := p.text("Google Drive Ordner-Link (mit deinen Unterlagen)", "")
	if err != nil {
		return nil, err
	}

	p.section("Schritt 3: Dein Profil für Anschreiben")
	p.say("Diese Angaben helfen der KI, persönliche Nachrichten zu schreiben.")
	persona := config.DefaultPersona()
	questions := []struct {
		label string
		def   string
		dst   *string
	}{
		{"Dein Vorname (für Anschreiben)", config.DefaultPersonaName, &persona.FirstName},
		{"Dein Alter", "26", &persona.Age},
		{"Woher kommst du? (z.B. Wien, Berlin)", "", &persona.FromCity},
		{"Wohin ziehst du? (z.B. München)", "", &persona.TargetCity},
	}
	for _, q := range questions {
		if *q.dst, err = p.text(q.label, q.def); err != nil {
			return nil, err
		}
	}
	if persona.LookingFor, err = p.choose("Was suchst du?", []string{"WG-Zimmer", "Wohnung", "Beides"}, 0); err != nil {
		return nil, err
	}
	questions = []struct {
		label string
		def   string
		dst   *string
	}{
		{"Beruf / Tätigkeit (z.B. AI Engineer bei BCG)", "", &persona.Job},
		{"Einzugstermin (z.B. So schnell wie möglich, Anfang März)", persona.MoveIn, &persona.MoveIn},
		{"Kurze Beschreibung deiner Persönlichkeit", "", &persona.Personality},
		{"Hobbys (z.B. Fitness, Boxen, Wintersport)", "", &persona.Hobbies},
		{"Status deiner Unterlagen (z.B. Schufa beantragt)", persona.Documents, &persona.Documents},
	}
	for _, q := range questions {
		if *q.dst, err = p.text(q.label, q.def); err != nil {
			return nil, err
		}
	}

	block := persona.Block()

	p.section("Schritt 4: Persona optimieren")
	optimize, err := p.confirm("Soll die KI dein Profil für bessere Anschreiben optimieren?", true)
	if err != nil {
		return nil, err
	}
	if optimize && apiKey != "" {
		p.say("Optimiere Persona...")
		refined, err := refine(ctx, "groq", apiKey, llm.GetDefaultModel("groq"), persona.Raw())
		if err != nil {
			p.say("KI-Optimierung fehlgeschlagen: %v", err)
			logger.Debug("persona refinement failed", "error", err)
		} else {
			block = refined
			p.say("Persona optimiert.")
		}
	}

	p.section("Schritt 5: KI-Modell")
	model, err := p.choose("Welches Groq-Modell soll verwendet werden?", groqModels, 0)
	if err != nil {
		return nil, err
	}

	p.section("Schritt 6: Such-URLs")
	p.say("Öffne wg-gesucht.de, stelle deine Filter ein und kopiere die URL aus der Adresszeile.")
	p.say("Sortiere nach Aktualität (neueste zuerst). Bereits kontaktierte Anzeigen werden übersprungen.")
	urls, err := p.urls("Erste Such-URL", exampleSearchURL)
	if err != nil {
		return nil, err
	}
	if len(urls) == 0 {
		urls = append(urls, wggesucht.DefaultSearchURLs...)
		p.say("Keine URL angegeben, verwende die Standard-URLs für München.")
	}

	return &wizardResult{
		env: config.EnvFile{
			Email:     email,
			Password:  password,
			APIKey:    apiKey,
			DriveLink: drive,
			Model:     model,
			Provider:  "groq",
		},
		profile: config.Profile{
			PersonaBlock: block,
			Persona:      persona,
			PersonaName:  persona.FirstName,
			SearchURLs:   urls,
		},
	}, nil
}

// prompter asks questions on a line-oriented terminal.
type prompter struct {
	r *bufio.Reader
	w io.Writer
}

func newPrompter(r io.Reader, w io.Writer) *prompter {
	return &prompter{r: bufio.NewReader(r), w: w}
}

func (p *prompter) say(format string, args ...any) {
	fmt.Fprintf(p.w, format+"\n", args...)
}

func (p *prompter) section(title string) {
	p.say("\n%s\n", title)
}

func (p *prompter) readLine() (string, error) {
	line, err := p.r.ReadString('\n')
	if err != nil && (!errors.Is(err, io.EOF) || line == "") {
		if errors.Is(err, io.EOF) {
			return "", errAborted
		}
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// text asks for a value; an empty answer takes def.
func (p *prompter) text(label, def string) (string, error) {
	if def != "" {
		fmt.Fprintf(p.w, "%s [%s]: ", label, def)
	} else {
		fmt.Fprintf(p.w, "%s: ", label)
	}
	line, err := p.readLine()
	if err != nil {
		return "", err
	}
	if line == "" {
		return def, nil
	}
	return line, nil
}

// required repeats the question until the answer is non-empty.
func (p *prompter) required(label, hint string) (string, error) {
	for {
		v, err := p.text(label, "")
		if err != nil || v != "" {
			return v, err
		}
		p.say("%s", hint)
	}
}

func (p *prompter) confirm(label string, def bool) (bool, error) {
	hint := "j/N"
	if def {
		hint = "J/n"
	}
	for {
		fmt.Fprintf(p.w, "%s [%s]: ", label, hint)
		line, err := p.readLine()
		if err != nil {
			return false, err
		}
		switch strings.ToLower(line) {
		case "":
			return def, nil
		case "j", "ja", "y", "yes":
			return true, nil
		case "n", "nein", "no":
			return false, nil
		}
		p.say("Bitte j oder n eingeben.")
	}
}

// choose lists options and returns the selected one. An empty answer takes
// options[def].
func (p *prompter) choose(label string, options []string, def int) (string, error) {
	p.say("%s", label)
	for i, o := range options {
		p.say("  %d) %s", i+1, o)
	}
	for {
		fmt.Fprintf(p.w, "Auswahl [%d]: ", def+1)
		line, err := p.readLine()
		if err != nil {
			return "", err
		}
		if line == "" {
			return options[def], nil
		}
		if n, err := strconv.Atoi(line); err == nil && n >= 1 && n <= len(options) {
			return options[n-1], nil
		}
		p.say("Bitte eine Zahl zwischen 1 und %d eingeben.", len(options))
	}
}

// urls collects search URLs until an empty line. The first prompt offers
// def; duplicates are ignored.
func (p *prompter) urls(label, def string) ([]string, error) {
	var out []string
	seen := make(map[string]bool)

	v, err := p.text(label, def)
	for {
		if err != nil {
			return nil, err
		}
		if v == "" {
			return out, nil
		}
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
			p.say("Hinzugefügt (%d URLs)", len(out))
		}
		v, err = p.text("Weitere URL (Enter zum Beenden)", "")
	}
}
