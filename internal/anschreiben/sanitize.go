package anschreiben

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	separatorPattern = regexp.MustCompile(`\n*\s*-{3}\s*\n*`)
	greetingPattern  = regexp.MustCompile(`(?i)\b(?:hallo|hi|sehr geehrte)\b`)
	greetingLine     = regexp.MustCompile(`(?im)^[ \t]*(?:hallo|hi|sehr geehrte)\b`)
)

// metaMarkers identify model commentary that precedes the real message.
// "berlegungen" covers Überlegungen, Uberlegungen and Ueberlegungen.
var metaMarkers = []string{
	"kurzfassung",
	"berlegungen",
	"gedanken",
	"anrede-regel",
	"icebreaker",
}

const (
	minMessageLen  = 30
	minOriginalLen = 50
)

// ExtractMessage strips reasoning and meta-commentary that models sometimes
// put in front of the message and returns only the text meant for the
// recipient. It never fails, and applying it to its own output is a no-op.
func ExtractMessage(text string) string {
	original := strings.TrimSpace(text)

	// Each pass either returns its input or a strictly shorter string, so
	// the loop ends.
	result := original
	for {
		next := extractOnce(result)
		if next == result {
			break
		}
		result = next
	}

	if utf8.RuneCountInString(result) < minMessageLen && utf8.RuneCountInString(original) > minOriginalLen {
		return original
	}
	return result
}

// extractOnce splits on the first "---" separator, keeping the side with a
// greeting, and drops a meta-commentary prefix in front of the greeting line.
func extractOnce(text string) string {
	working := text

	if loc := separatorPattern.FindStringIndex(text); loc != nil {
		before, after := text[:loc[0]], text[loc[1]:]
		switch {
		case greetingPattern.MatchString(after):
			working = strings.TrimSpace(after)
		case greetingPattern.MatchString(before):
			working = strings.TrimSpace(before)
		}
	}

	if loc := greetingLine.FindStringIndex(working); loc != nil && loc[0] > 0 {
		prefix := strings.ToLower(working[:loc[0]])
		if containsAny(prefix, metaMarkers) {
			working = working[loc[0]:]
		}
	}

	return strings.TrimSpace(working)
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}
