package processor

import (
	"regexp"
)

var urlRegexp = regexp.MustCompile(`https?://[^\s]+`)

// ExtractURL returns the first http(s) URL found in text, exactly as written.
// The match is not validated here.
func ExtractURL(text string) (string, bool) {
	raw := urlRegexp.FindString(text)
	return raw, raw != ""
}
