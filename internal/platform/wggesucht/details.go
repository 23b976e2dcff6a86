package wggesucht

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/jmylchreest/flatscraper/internal/listing"
	"github.com/jmylchreest/flatscraper/internal/platform"
)

// contactedMarker is shown on listings the account already wrote to.
const contactedMarker = "Unterhaltung ansehen"

var (
	addressPattern   = regexp.MustCompile(`Adresse\s*\n\s*([^\n]+)`)
	rentPattern      = regexp.MustCompile(`Gesamtmiete\s*:?\s*([^\n]+)|(\d+\s*€)`)
	sizePattern      = regexp.MustCompile(`Zimmergröße\s*:?\s*([^\n]+)|Größe\s*:\s*([^\n]+)|(\d+\s*m²)`)
	availablePattern = regexp.MustCompile(`frei ab:?\s*([^\n]+)|(\d{2}\.\d{2}\.\d{4})`)

	notAName       = regexp.MustCompile(`(?i)Mitglied seit|Verifiziert|€|m²|WG-Gesucht|impressum|datenschutz|Private`)
	notANameOnline = regexp.MustCompile(`(?i)Verifiziert|€|m²|WG-Gesucht|impressum|datenschutz|\d{4}`)
)

// ExtractDetails opens url and reads the listing. It returns
// platform.ErrAlreadyContacted when a conversation exists and
// platform.ErrNoDetails when the page has no listing title.
func (p *Platform) ExtractDetails(ctx context.Context, url string) (*listing.Details, error) {
	if err := p.page.Navigate(ctx, url); err != nil {
		return nil, fmt.Errorf("open listing: %w", err)
	}

	if p.page.HasText(ctx, contactedMarker, 2*time.Second) {
		return nil, platform.ErrAlreadyContacted
	}

	html, err := p.page.HTML(ctx)
	if err != nil {
		return nil, fmt.Errorf("read listing: %w", err)
	}

	loc, err := p.page.Location(ctx)
	if err != nil || loc == "" {
		loc = url
	}

	return parseDetails(html, loc, p.opts.MaxDescription)
}

// parseDetails reads a listing detail page. pageURL is used for the ad id.
func parseDetails(html, pageURL string, maxDescription int) (*listing.Details, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse listing: %w", err)
	}

	body := innerText(doc.Find("body"))
	if strings.Contains(body, contactedMarker) {
		return nil, platform.ErrAlreadyContacted
	}

	title := collapseSpace(doc.Find("h1").First().Text())
	if title == "" {
		return nil, platform.ErrNoDetails
	}

	d := &listing.Details{
		Title:         title,
		Address:       firstGroup(addressPattern, body),
		Description:   truncate(description(doc, body), maxDescription),
		AdID:          adIDFromHref(pageURL),
		Rent:          firstGroup(rentPattern, body),
		Size:          firstGroup(sizePattern, body),
		AvailableFrom: firstGroup(availablePattern, body),
		PublisherName: publisherName(doc, body),
		AdType:        adType(doc),
	}
	return d, nil
}

// description prefers the dedicated description block and falls back to a
// slice of the page text.
func description(doc *goquery.Document, body string) string {
	if s := doc.Find("#ad_description_text"); s.Length() > 0 {
		if text := innerText(s); text != "" {
			return text
		}
	}

	start := -1
	for _, marker := range []string{"Das Zimmer ist", "Zimmer", "Kosten"} {
		if i := strings.Index(body, marker); i >= 0 {
			start = i
			break
		}
	}
	end := strings.Index(body, "WG-Gesucht+")
	if start >= 0 && end > start {
		return strings.TrimSpace(body[start:end])
	}
	if i := strings.Index(body, "WG-Details"); i > 0 {
		return strings.TrimSpace(body[:i])
	}
	return truncate(body, 5000)
}

// adType is "wg" when the page has a "WG-Details" section.
func adType(doc *goquery.Document) listing.AdType {
	t := listing.AdTypeWohnung
	doc.Find("h2.section_panel_title").EachWithBreak(func(_ int, h *goquery.Selection) bool {
		if strings.TrimSpace(h.Text()) == "WG-Details" {
			t = listing.AdTypeWG
			return false
		}
		return true
	})
	return t
}

// publisherName tries the profile box, the sticky contact box, the line
// above "Online:" and finally the first .ml5 element.
func publisherName(doc *goquery.Document, body string) string {
	if p := doc.Find(".user_profile_info").First(); p.Length() > 0 {
		first := p.Find(".vertical-align-center-column.ml20 p.mb0, .ml20 p.mb0, p.mb0").First()
		if name := collapseSpace(first.Text()); plausibleName(name, 60) && !notAName.MatchString(name) {
			return name
		}
	}

	if name := collapseSpace(doc.Find(".contact_box_sticky b").First().Text()); plausibleName(name, 60) {
		return name
	}

	if before, _, ok := strings.Cut(body, "Online:"); ok {
		lines := strings.Split(strings.TrimSpace(before), "\n")
		if last := collapseSpace(lines[len(lines)-1]); plausibleName(last, 50) && !notANameOnline.MatchString(last) {
			return last
		}
	}

	if name := strings.TrimSpace(doc.Find(".ml5").First().Text()); plausibleName(name, 50) {
		return name
	}
	return ""
}

func plausibleName(s string, maxLen int) bool {
	n := len([]rune(s))
	return n >= 2 && n <= maxLen
}
