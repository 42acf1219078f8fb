package checkin

import "regexp"

// tokenPattern matches a run of uppercase letters, digits or hyphens wrapped in
// the same quote character on both sides. Go's regexp has no backreferences,
// so the two quote styles are separate alternatives.
var tokenPattern = regexp.MustCompile(`'([A-Z0-9-]+)'|"([A-Z0-9-]+)"`)

// ExtractToken scans raw response text for the first quoted token-shaped
// substring and returns it without quotes. The text is never parsed as JSON.
func ExtractToken(raw string) (string, bool) {
	m := tokenPattern.FindStringSubmatch(raw)
	if m == nil {
		return "", false
	}
	if m[1] != "" {
		return m[1], true
	}
	return m[2], true
}
