package anschreiben

import (
	"fmt"
	"strings"

	"github.com/jmylchreest/flatscraper/internal/listing"
)

// Persona describes the person the messages are written for.
type Persona struct {
	Name  string // first name used in prompts, e.g. "Lukas"
	Block string // "DEINE PERSONA:" bullet list
}

const wgInstructions = `ANZEIGENTYP: WG-Zimmer (Mitbewohner suchen)
- Tonalität: Locker, WG-Stil, freundlich, "Wir"-Gefühl.
- Fokus: Mitbewohner kennenlernen, WG-Leben, passen wir zusammen.
- Anrede: "Hallo [Name]," oder "Hi [Name]," – locker.
- Gehe auf WG-spezifische Details ein: Mitbewohner-Hobbys, WG-Leben, gemeinsame Aktivitäten, Lage.
- Call to Action: Besichtigung, Kennenlernen, Freude auf die WG.`

const wohnungInstructions = `ANZEIGENTYP: Wohnung (Vermieter / professionell)
- Tonalität: Etwas formeller, professionell, höflich, aber persönlich.
- Fokus: Mieter, Vermieter, Einkommensnachweis, Besichtigung, seriöser Bewerber.
- Anrede: "Hallo [Name]," oder "Sehr geehrte/r [Name]," – je nach Tonalität der Anzeige.
- Gehe auf Wohnungsdetails ein: Lage, Ausstattung, Größe, Einzugstermin.
- Erwähne kurz, dass der Google Drive Link alle Unterlagen (Gehalt, Vertrag, etc.) enthält.
- Call to Action: Besichtigung, Unterlagen bereit.`

// SystemPrompt builds the system prompt for the given persona.
func SystemPrompt(p Persona) string {
	name := p.Name
	if name == "" {
		name = "Nutzer"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Du bist ein charmanter, professioneller Assistent, der %s dabei hilft, ein WG-Zimmer ODER eine Wohnung zu finden. ", name)
	sb.WriteString("Deine Aufgabe ist es, basierend auf einer Wohnungsanzeige ein kurzes, sympathisches und persönliches Anschreiben auf Deutsch zu verfassen. ")
	sb.WriteString("Das Anschreiben passt sich dem Anzeigentyp an (WG-Zimmer vs. Wohnung).\n\n")
	sb.WriteString(strings.TrimSpace(p.Block))
	return sb.String()
}

// AdTypeInstructions returns the tone instructions for an ad type.
func AdTypeInstructions(t listing.AdType) string {
	if t == listing.AdTypeWohnung {
		return wohnungInstructions
	}
	return wgInstructions
}

// MessagePrompt builds the user prompt for one listing.
func MessagePrompt(req listing.GenerationRequest, personaName string) string {
	if personaName == "" {
		personaName = "Nutzer"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Hier sind die Daten der Anzeige (Typ: %s):\n\n", req.AdType.Label())
	fmt.Fprintf(&sb, "TITEL: %s\n", req.Title)
	fmt.Fprintf(&sb, "ADRESSE: %s\n", req.Address)
	fmt.Fprintf(&sb, "ANGEBOT VON (Name des Anbieters/Verfassers): %s\n", req.PublisherName)
	sb.WriteString("BESCHREIBUNGSTEXT:\n\n\"\"\"\n")
	sb.WriteString(req.Description)
	sb.WriteString("\n\"\"\"\n\n")

	sb.WriteString("ANZEIGENTYP-SPEZIFISCHE ANWEISUNGEN:\n")
	sb.WriteString(AdTypeInstructions(req.AdType))
	sb.WriteString("\n\n")

	fmt.Fprintf(&sb, "AUFGABE:\nSchreibe das Anschreiben für %s.\n", personaName)
	sb.WriteString(`- WICHTIG – Anrede: Beginne IMMER mit einer persönlichen Anrede mit dem Namen des Anbieters!
  - Wenn ein Name unter "ANGEBOT VON" steht (z.B. Marco, Roland, Lisa): nutze ihn! "Hallo Marco," oder "Hi Lisa,".
  - Wenn im Beschreibungstext Namen stehen ("Wir sind Jonas und Lisa", "Ich heiße Marco"), nutze diese als Fallback.
  - Bei WG: "Hallo liebe WG" verwenden, wenn kein Name.
  - Bei Wohnung: "Sehr geehrte Damen und Herren" oder "Hallo," wenn kein Name.
- Erwähne kurz, dass der Einzugstermin passt (siehe Anzeige).
`)
	fmt.Fprintf(&sb, "- Füge an der passenden Stelle diesen Link ein: %s\n\n", req.DriveLink)
	sb.WriteString(`Antworte nur mit dem fertigen Nachrichtentext. Keine Überlegungen, keine Kurzfassung, keine Erklärungen.

SCHREIBSTIL:
- Tonalität: "Gentle, personal, vibrant & short".
- Passe den Ton an den Anzeigentyp an (WG-Zimmer vs. Wohnung).
- Gehe auf 1-2 spezifische Details aus der Anzeige ein, um zu zeigen, dass der Text gelesen wurde.
- Halte die Nachricht unter 150 Wörtern.
- Verweise am Ende zwingend auf den Google Drive Link für Details.

STRUKTUR DER NACHRICHT:
1. Persönliche Anrede mit dem Namen des Anbieters. NIEMALS generisch "Hallo WG" oder "Hallo" wenn ein Name bekannt ist!
2. Kurzer Bezug zur Anzeige.
3. Wer bin ich & was mache ich.
4. Call to Action: Verweis auf den Drive Link & Freude auf Besichtigung.
5. Kein Markdown, sondern einfacher Text.`)

	return sb.String()
}

const personaRefinementPrompt = `Basierend auf den folgenden Angaben des Nutzers, formuliere eine prägnante, professionelle Persona-Beschreibung für ein System-Prompt.
Die Persona wird verwendet, um personalisierte WG-Anschreiben zu generieren.
Halte die Beschreibung auf Deutsch, in Stichpunkten, maximal 15 Zeilen.
Antworte NUR mit der Persona-Beschreibung, ohne Einleitung oder Erklärung.

Nutzerangaben:
`
