package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// DefaultPersonaName is used in prompts when the profile has no name.
const DefaultPersonaName = "Nutzer"

// DefaultPersonaBlock is used when no profile has been written yet.
const DefaultPersonaBlock = `DEINE PERSONA:
- Alter: 28 Jahre
- Beruf: Software Engineer
- Einzugstermin: So schnell wie möglich
- Persönlichkeit: Kommunikativ, hilfsbereit, sehr ordentlich
- Hobbys: Sport, Kochen, Reisen
- Dokumente: Alle Unterlagen (Vertrag, Gehalt, Ausweis) sind in einem Google Drive Link vorbereitet.`

// Persona holds the structured answers from the setup wizard.
type Persona struct {
	FirstName   string `json:"first_name" mapstructure:"first_name"`
	Age         string `json:"age" mapstructure:"age"`
	FromCity    string `json:"from_city" mapstructure:"from_city"`
	TargetCity  string `json:"target_city" mapstructure:"target_city"`
	LookingFor  string `json:"looking_for" mapstructure:"looking_for"`
	Job         string `json:"job" mapstructure:"job"`
	MoveIn      string `json:"move_in" mapstructure:"move_in"`
	Personality string `json:"personality" mapstructure:"personality"`
	Hobbies     string `json:"hobbies" mapstructure:"hobbies"`
	Documents   string `json:"documents" mapstructure:"documents"`
}

// DefaultPersona returns a persona with the wizard's defaults filled in.
func DefaultPersona() Persona {
	return Persona{
		FirstName: DefaultPersonaName,
		MoveIn:    "So schnell wie möglich",
		Documents: "Alle Unterlagen im Google Drive Link",
	}
}

// Block renders the persona as a "DEINE PERSONA:" prompt section.
func (p Persona) Block() string {
	lines := []string{
		"- Alter: " + p.Age + " Jahre",
		"- Herkunft: " + p.FromCity + " (zieht nach " + p.TargetCity + ")",
		"- Beruf: " + p.Job,
		"- Einzugstermin: " + p.MoveIn,
		"- Persönlichkeit: " + p.Personality,
		"- Hobbys: " + p.Hobbies,
		"- Dokumente: " + p.Documents,
	}
	return "DEINE PERSONA:\n" + strings.Join(lines, "\n")
}

// Raw lists the non-empty answers as "- key: value" lines, the input for
// persona refinement.
func (p Persona) Raw() string {
	fields := []struct{ k, v string }{
		{"first_name", p.FirstName},
		{"age", p.Age},
		{"from_city", p.FromCity},
		{"target_city", p.TargetCity},
		{"looking_for", p.LookingFor},
		{"job", p.Job},
		{"move_in", p.MoveIn},
		{"personality", p.Personality},
		{"hobbies", p.Hobbies},
		{"documents", p.Documents},
	}
	var sb strings.Builder
	for _, f := range fields {
		if f.v == "" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString("- " + f.k + ": " + f.v)
	}
	return sb.String()
}

// Profile is the content of user_profile.json.
type Profile struct {
	PersonaBlock string   `json:"persona_block" mapstructure:"persona_block"`
	Persona      Persona  `json:"persona" mapstructure:"persona"`
	PersonaName  string   `json:"persona_name" mapstructure:"persona_name"`
	SearchURLs   []string `json:"search_urls" mapstructure:"search_urls"`

	// ExcludedProviders overrides the platform's built-in list when set.
	ExcludedProviders []string `json:"excluded_providers,omitempty" mapstructure:"excluded_providers"`
}

// DefaultProfile is used when no profile file exists. SearchURLs is empty so
// the platform falls back to its built-in list.
func DefaultProfile() Profile {
	return Profile{
		PersonaBlock: DefaultPersonaBlock,
		Persona:      DefaultPersona(),
		PersonaName:  DefaultPersonaName,
	}
}

// Name returns the persona name, defaulting to "Nutzer".
func (p Profile) Name() string {
	if n := strings.TrimSpace(p.PersonaName); n != "" {
		return n
	}
	return DefaultPersonaName
}

// Block returns the persona block, defaulting to DefaultPersonaBlock.
func (p Profile) Block() string {
	if b := strings.TrimSpace(p.PersonaBlock); b != "" {
		return b
	}
	return DefaultPersonaBlock
}

// LoadProfile reads the profile at path. A missing file yields
// DefaultProfile.
func LoadProfile(path string) (*Profile, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			p := DefaultProfile()
			return &p, nil
		}
		return nil, fmt.Errorf("stat profile: %w", err)
	}

	pv := viper.New()
	pv.SetConfigFile(path)
	pv.SetConfigType("json")
	if err := pv.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read profile %s: %w", path, err)
	}

	p := Profile{Persona: DefaultPersona()}
	if err := pv.Unmarshal(&p); err != nil {
		return nil, fmt.Errorf("decode profile %s: %w", path, err)
	}
	p.SearchURLs = dedupeURLs(p.SearchURLs)
	return &p, nil
}

// SaveProfile writes p to path as indented JSON.
func SaveProfile(path string, p Profile) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(p); err != nil {
		return fmt.Errorf("encode profile: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("write profile: %w", err)
	}
	return nil
}

func dedupeURLs(urls []string) []string {
	seen := make(map[string]bool, len(urls))
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		u = strings.TrimSpace(u)
		if u == "" || seen[u] {
			continue
		}
		seen[u] = true
		out = append(out, u)
	}
	return out
}
