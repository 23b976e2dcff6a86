package wggesucht

import (
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"github.com/jmylchreest/flatscraper/internal/listing"
)

var blockElements = map[string]bool{
	"address": true, "article": true, "aside": true, "blockquote": true,
	"dd": true, "div": true, "dl": true, "dt": true, "fieldset": true,
	"figcaption": true, "figure": true, "footer": true, "form": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"header": true, "hr": true, "li": true, "main": true, "nav": true,
	"ol": true, "p": true, "pre": true, "section": true, "table": true,
	"tbody": true, "thead": true, "tfoot": true, "tr": true, "ul": true,
}

var skippedElements = map[string]bool{
	"script": true, "style": true, "noscript": true, "template": true, "svg": true, "iframe": true,
}

// innerText approximates the browser's innerText: block elements start new
// lines, whitespace inside a line is collapsed and empty lines are dropped.
func innerText(s *goquery.Selection) string {
	var sb strings.Builder
	s.Each(func(_ int, el *goquery.Selection) {
		writeText(&sb, el)
	})
	return normalizeLines(sb.String())
}

func writeText(sb *strings.Builder, s *goquery.Selection) {
	s.Contents().Each(func(_ int, c *goquery.Selection) {
		name := goquery.NodeName(c)
		switch {
		case name == "#text":
			sb.WriteString(c.Text())
		case skippedElements[name]:
		case name == "br":
			sb.WriteByte('\n')
		case blockElements[name]:
			sb.WriteByte('\n')
			writeText(sb, c)
			sb.WriteByte('\n')
		case name == "td" || name == "th":
			writeText(sb, c)
			sb.WriteByte(' ')
		default:
			writeText(sb, c)
		}
	})
}

func normalizeLines(s string) string {
	lines := strings.Split(s, "\n")
	out := lines[:0]
	for _, line := range lines {
		if l := collapseSpace(line); l != "" {
			out = append(out, l)
		}
	}
	return strings.Join(out, "\n")
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// truncate cuts s to at most n bytes without splitting a rune. n <= 0 means
// no limit.
func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// truncateRunes cuts s to at most n runes.
func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}

var (
	dottedIDPattern   = regexp.MustCompile(`\.(\d{5,})\.html`)
	assetParamPattern = regexp.MustCompile(`asset_id=(\d+)`)
)

// adIDFromHref reads the ad id from a listing link. WG-Gesucht links look
// like "/wg-zimmer-in-Muenchen-Maxvorstadt.8125289.html"; tracking links
// carry "asset_id=".
func adIDFromHref(href string) string {
	if m := assetParamPattern.FindStringSubmatch(href); m != nil {
		return m[1]
	}
	if m := dottedIDPattern.FindStringSubmatch(href); m != nil {
		return m[1]
	}
	if id := listing.ExtractAdID(href); len(id) >= 5 {
		return id
	}
	return ""
}

// resolve makes href absolute against base.
func resolve(base, href string) string {
	b, err := url.Parse(base)
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return b.ResolveReference(ref).String()
}

// firstGroup returns the first non-empty capture group of the first match.
func firstGroup(re *regexp.Regexp, s string) string {
	m := re.FindStringSubmatch(s)
	for _, g := range m[min(1, len(m)):] {
		if g = strings.TrimSpace(g); g != "" {
			return g
		}
	}
	return ""
}
