package wggesucht

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/jmylchreest/flatscraper/internal/listing"
	"github.com/jmylchreest/flatscraper/internal/logger"
)

// partnerHeader introduces sponsored results below the organic ones.
const partnerHeader = "Weitere Angebote von verifizierten Anbietern"

// cardContainers are tried in order to find the card around a listing link.
var cardContainers = []string{"tr", "[class*='list']", "[class*='card']", "[class*='offer']"}

var (
	onlinePattern    = regexp.MustCompile(`Online:\s*([^\n]+)`)
	priceSizePattern = regexp.MustCompile(`(\d+\s*€)[\s|]*(\d+\s*m²)`)
)

// scanStats counts why cards were dropped on one results page.
type scanStats struct {
	Cards     int
	NoOnline  int
	Contacted int
	Excluded  int
}

// Search scans every search URL and returns organic, uncontacted listings
// from non-excluded providers. Unless includeAll is set, listings older than
// MaxAge, or without a parseable age, are dropped. Listings seen on an
// earlier page are dropped silently.
//
// A page that fails to load is logged and skipped; Search fails only when no
// page could be read.
func (p *Platform) Search(ctx context.Context, includeAll bool) ([]listing.Listing, error) {
	log := logger.Component(Name)
	urls := p.SearchURLs()
	collector := listing.NewCollector()

	var failed int
	var lastErr error
	for i, u := range urls {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		html, err := p.loadResults(ctx, u)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil, err
			}
			failed++
			lastErr = err
			log.Warn("search page failed", "index", i+1, "url", u, "error", err)
			continue
		}

		found, stats, err := parseResults(html, p.excludedProviders())
		if err != nil {
			failed++
			lastErr = err
			log.Warn("search page unreadable", "index", i+1, "error", err)
			continue
		}

		var stale, dupes int
		for _, l := range found {
			if !includeAll && !l.Fresh(p.opts.MaxAge) {
				stale++
				continue
			}
			if !collector.Add(l) {
				dupes++
			}
		}

		log.Debug("search page scanned",
			"index", i+1,
			"cards", stats.Cards,
			"no_online_label", stats.NoOnline,
			"contacted", stats.Contacted,
			"excluded", stats.Excluded,
			"stale", stale,
			"duplicates", dupes,
			"total", collector.Len())
	}

	if len(urls) > 0 && failed == len(urls) {
		return nil, fmt.Errorf("all %d search pages failed: %w", failed, lastErr)
	}
	return collector.Listings(), nil
}

func (p *Platform) loadResults(ctx context.Context, url string) (string, error) {
	if err := p.page.Navigate(ctx, url); err != nil {
		return "", err
	}
	if !p.page.Visible(ctx, `a[href*=".html"]`, 15*time.Second) {
		logger.Debug("no listing links became visible", "url", url)
	}
	return p.page.HTML(ctx)
}

// parseResults reads listing cards from a results page. Cards below the
// partner header, cards without an "Online:" label, contacted cards and
// cards of excluded providers are skipped. The age filter is not applied.
func parseResults(html string, excluded []string) ([]listing.Listing, scanStats, error) {
	var stats scanStats

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, stats, fmt.Errorf("parse results: %w", err)
	}

	var out []listing.Listing
	seen := make(map[string]bool)
	cutoff := partnerSection(doc)

	// Elements are visited in document order, so everything after the
	// partner header is never reached.
	doc.Find("*").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		if cutoff != nil && a.IsSelection(cutoff) {
			return false
		}
		if !a.Is(`a[href*=".html"]`) {
			return true
		}

		href, _ := a.Attr("href")
		if strings.Contains(href, "impressum") || strings.Contains(href, "datenschutz") {
			return true
		}
		adID := adIDFromHref(href)
		if adID == "" || seen[adID] {
			return true
		}

		card := enclosingCard(a)
		seen[adID] = true
		stats.Cards++

		text := innerText(card)
		if !strings.Contains(text, "Online:") {
			stats.NoOnline++
			return true
		}
		if strings.Contains(text, "kontaktiert") || card.Find(".ribbon-contacted").Length() > 0 {
			stats.Contacted++
			return true
		}
		if provider := matchProvider(text, excluded); provider != "" {
			stats.Excluded++
			return true
		}

		rawAge := firstGroup(onlinePattern, text)
		minutes, ok, raw := listing.ParseOnlineAge(rawAge)

		var price, size string
		if m := priceSizePattern.FindStringSubmatch(text); m != nil {
			price, size = m[1], m[2]
		}

		out = append(out, listing.Listing{
			AdID:       adID,
			Title:      cardTitle(card, a),
			URL:        resolve(BaseURL, href),
			Price:      price,
			Size:       size,
			AgeMinutes: listing.AgePointer(minutes, ok),
			RawAgeText: raw,
		})
		return true
	})

	return out, stats, nil
}

// partnerSection returns the first element whose own text contains the
// partner header, or nil. Scripts and page chrome (nav, header, footer) are
// ignored.
func partnerSection(doc *goquery.Document) *goquery.Selection {
	var found *goquery.Selection
	doc.Find("body *").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if skippedElements[goquery.NodeName(s)] || s.Closest("nav, header, footer").Length() > 0 {
			return true
		}
		if strings.Contains(ownText(s), partnerHeader) {
			found = s
			return false
		}
		return true
	})
	return found
}

// ownText joins the text nodes directly below s.
func ownText(s *goquery.Selection) string {
	var sb strings.Builder
	s.Contents().Each(func(_ int, c *goquery.Selection) {
		if goquery.NodeName(c) == "#text" {
			sb.WriteString(c.Text())
		}
	})
	return collapseSpace(sb.String())
}

func enclosingCard(a *goquery.Selection) *goquery.Selection {
	for _, sel := range cardContainers {
		if c := a.Closest(sel); c.Length() > 0 {
			return c
		}
	}
	return a.Parent()
}

func cardTitle(card, link *goquery.Selection) string {
	title := collapseSpace(card.Find("h3").First().Text())
	if title == "" {
		title = collapseSpace(link.Text())
	}
	if title == "" {
		title, _ = link.Attr("title")
	}
	return truncateRunes(title, 100)
}

func matchProvider(text string, providers []string) string {
	for _, p := range providers {
		if p != "" && strings.Contains(text, p) {
			return p
		}
	}
	return ""
}
