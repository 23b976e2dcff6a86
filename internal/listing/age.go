package listing

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	minutesPattern = regexp.MustCompile(`(?i)(\d+)\s*Minuten?`)
	oneHourPattern = regexp.MustCompile(`(?i)(?:^|[^\d])1\s+Stunde\b`)
	hoursPattern   = regexp.MustCompile(`(?i)(\d+)\s+Stunden?`)
	justNowPattern = regexp.MustCompile(`(?i)gerade\s+(?:eben|online|jetzt)`)
	secondsPattern = regexp.MustCompile(`(?i)(\d+)\s+Sekunden?`)
)

// ParseOnlineAge converts an "Online: ..." label into minutes.
//
// Recognised forms, first match wins: "N Minute(n)", "1 Stunde",
// "N Stunde(n)", "gerade eben/online/jetzt" and "N Sekunde(n)". Seconds and
// "just now" collapse to zero. Anything else, e.g. "Vor 2 Tagen", reports
// ok=false, which is distinct from zero.
//
// The returned raw text is the trimmed input.
func ParseOnlineAge(text string) (minutes int, ok bool, raw string) {
	raw = strings.TrimSpace(text)

	if m := minutesPattern.FindStringSubmatch(raw); m != nil {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return 0, false, raw
		}
		return n, true, raw
	}
	if oneHourPattern.MatchString(raw) {
		return 60, true, raw
	}
	if m := hoursPattern.FindStringSubmatch(raw); m != nil {
		n, err := strconv.Atoi(m[1])
		if err != nil || n > maxHours {
			return 0, false, raw
		}
		return n * 60, true, raw
	}
	if justNowPattern.MatchString(raw) {
		return 0, true, raw
	}
	if secondsPattern.MatchString(raw) {
		return 0, true, raw
	}
	return 0, false, raw
}

// maxHours keeps n*60 far away from int overflow.
const maxHours = 1 << 40

// AgePointer returns the parsed age as an optional value for Listing.AgeMinutes.
func AgePointer(minutes int, ok bool) *int {
	if !ok {
		return nil
	}
	return &minutes
}

// Fresh reports whether the listing passes the age filter. Listings whose age
// could not be parsed count as too old.
func (l Listing) Fresh(maxAge time.Duration) bool {
	if l.AgeMinutes == nil {
		return false
	}
	return time.Duration(*l.AgeMinutes)*time.Minute < maxAge
}
