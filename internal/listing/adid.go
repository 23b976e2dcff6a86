package listing

import "regexp"

var (
	htmlIDPattern  = regexp.MustCompile(`/(\d+)\.html`)
	assetIDPattern = regexp.MustCompile(`asset_id=(\d+)`)
)

// ExtractAdID recovers the numeric ad id from a listing URL.
// Search results link to ".../<id>.html" while tracking links carry
// "?asset_id=<id>". Returns "" when neither shape is present.
func ExtractAdID(url string) string {
	if m := htmlIDPattern.FindStringSubmatch(url); m != nil {
		return m[1]
	}
	if m := assetIDPattern.FindStringSubmatch(url); m != nil {
		return m[1]
	}
	return ""
}
