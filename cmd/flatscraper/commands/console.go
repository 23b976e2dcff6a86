package commands

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/dustin/go-humanize"

	"github.com/jmylchreest/flatscraper/internal/anschreiben"
	"github.com/jmylchreest/flatscraper/internal/listing"
	"github.com/jmylchreest/flatscraper/internal/pipeline"
	"github.com/jmylchreest/flatscraper/pkg/llm"
)

const ruleWidth = 72

// console renders run progress for a human on stdout. Logs go to stderr.
type console struct {
	w           io.Writer
	maxAge      time.Duration
	includeAll  bool
	maxAttempts int
	usage       *tokenUsage
}

func newConsole(w io.Writer, maxAge time.Duration, includeAll bool) *console {
	return &console{
		w:           w,
		maxAge:      maxAge,
		includeAll:  includeAll,
		maxAttempts: anschreiben.DefaultBackoff().MaxAttempts,
		usage:       &tokenUsage{},
	}
}

func (c *console) hooks() pipeline.Hooks {
	return pipeline.Hooks{
		OnSearchDone: c.searchDone,
		OnListing:    c.listing,
		OnDetails:    c.details,
		OnRetry:      c.retry,
		OnOutcome:    c.outcome,
	}
}

func (c *console) printf(format string, args ...any) {
	fmt.Fprintf(c.w, format, args...)
}

func (c *console) rule(title string) {
	pad := ruleWidth - utf8.RuneCountInString(title) - 4
	if pad < 0 {
		pad = 0
	}
	c.printf("\n── %s %s\n", title, strings.Repeat("─", pad))
}

func (c *console) banner(schedule bool, interval time.Duration, noSend, visible bool) {
	c.printf("FlatScraper\nWG-Gesucht Automatisierung: sucht Anzeigen, generiert Anschreiben, sendet Nachrichten.\n")
	if schedule {
		c.printf("Modus: Alle %s\n", germanDuration(interval))
	} else {
		c.printf("Modus: Einmal durchlaufen\n")
	}
	if noSend {
		c.printf("Hinweis: Nachrichten werden nicht gesendet (--no-send)\n")
	}
	if visible {
		c.printf("Browser sichtbar (--visible)\n")
	}
}

func (c *console) searchDone(found int) {
	if found == 0 {
		c.printf("Keine neuen Anzeigen gefunden.\n")
		return
	}
	ageInfo := "unter " + germanDuration(c.maxAge) + " alt"
	if c.includeAll {
		ageInfo = "alle Anzeigen"
	}
	c.printf("Gefunden: %s Anzeigen (%s)\n", humanize.Comma(int64(found)), ageInfo)
}

func (c *console) listing(index, total int, l listing.Listing) {
	c.rule(fmt.Sprintf("Anzeige %d/%d", index, total))
	c.printf("%s\n", ellipsis(l.Title, 70))
	c.printf("ID: %s  |  %s  |  %s  |  %s\n", l.AdID, orDash(l.Price), orDash(l.Size), orDash(l.RawAgeText))
	c.printf("%s\n", l.URL)
}

func (c *console) details(d *listing.Details) {
	c.printf("  %-12s %s\n", "Titel", ellipsis(d.Title, 80))
	c.printf("  %-12s %s\n", "Adresse", orDash(d.Address))
	c.printf("  %-12s %s\n", "Typ", d.AdType.Label())
	if d.PublisherName != "" {
		c.printf("  %-12s %s\n", "Anbieter", d.PublisherName)
	}
	c.printf("  %-12s %s\n", "Beschreibung", humanize.Bytes(uint64(len(d.Description))))
}

func (c *console) retry(wait time.Duration, attempt int) {
	c.printf("  Rate limit: warte %.0fs (Versuch %d/%d)...\n", wait.Seconds(), attempt, c.maxAttempts)
}

func (c *console) outcome(o pipeline.Outcome) {
	if o.Message != "" {
		c.printf("\n%s\n", o.Message)
		c.printf("(%s Zeichen, %s Wörter)\n",
			humanize.Comma(int64(utf8.RuneCountInString(o.Message))),
			humanize.Comma(int64(len(strings.Fields(o.Message)))))
	}

	switch o.Status {
	case pipeline.StatusSent:
		c.printf("  ✓ Nachricht gesendet\n")
	case pipeline.StatusGenerated:
		c.printf("  → Nicht gesendet (--no-send)\n")
	case pipeline.StatusSkipped:
		if o.Reason == "already contacted" {
			c.printf("  → Bereits kontaktiert, übersprungen\n")
		} else {
			c.printf("  → Details konnten nicht extrahiert werden\n")
		}
	case pipeline.StatusFailed:
		if o.Message == "" {
			c.printf("  Fehler bei KI-Generierung: %s\n", o.Reason)
		} else {
			c.printf("  ✗ Senden fehlgeschlagen\n")
		}
	}
}

func (c *console) summary(r *pipeline.Report) {
	c.rule("Fertig")
	c.printf("%d gesendet, %d generiert, %d übersprungen, %d fehlgeschlagen von %d Anzeigen (%s)\n",
		r.Count(pipeline.StatusSent),
		r.Count(pipeline.StatusGenerated),
		r.Count(pipeline.StatusSkipped),
		r.Count(pipeline.StatusFailed),
		r.Found,
		r.FinishedAt.Sub(r.StartedAt).Round(time.Second))

	if calls, in, out := c.usage.reset(); calls > 0 {
		c.printf("KI: %d Aufrufe, %s Tokens ein, %s Tokens aus\n",
			calls, humanize.Comma(int64(in)), humanize.Comma(int64(out)))
	}
}

func (c *console) nextRun(d time.Duration) {
	c.printf("\nNächster Lauf in %s (um %s)...\n", germanDuration(d), time.Now().Add(d).Format("15:04"))
}

// tokenUsage counts LLM calls and tokens between two summaries.
type tokenUsage struct {
	mu     sync.Mutex
	calls  int
	input  int
	output int
}

// OnCall implements llm.Observer.
func (u *tokenUsage) OnCall(_ context.Context, e llm.CallEvent) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.calls++
	if e.Response != nil {
		u.input += e.Response.Usage.InputTokens
		u.output += e.Response.Usage.OutputTokens
	}
}

func (u *tokenUsage) reset() (calls, input, output int) {
	u.mu.Lock()
	defer u.mu.Unlock()
	calls, input, output = u.calls, u.input, u.output
	u.calls, u.input, u.output = 0, 0, 0
	return calls, input, output
}

// germanDuration renders whole hours or minutes, e.g. "24 Stunden".
func germanDuration(d time.Duration) string {
	switch {
	case d >= time.Hour && d%time.Hour == 0:
		if h := int(d / time.Hour); h != 1 {
			return fmt.Sprintf("%d Stunden", h)
		}
		return "1 Stunde"
	case d >= time.Minute:
		if m := int(d / time.Minute); m != 1 {
			return fmt.Sprintf("%d Minuten", m)
		}
		return "1 Minute"
	default:
		return d.String()
	}
}

func ellipsis(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
