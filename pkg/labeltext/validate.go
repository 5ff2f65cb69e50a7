package labeltext

import "regexp"

var (
	nonLetters  = regexp.MustCompile(`[^a-zA-Z\s]`)
	labelSignal = regexp.MustCompile(`(?i)(ingredients?|contains?|sugar|salt|milk)`)
)

// CleanText replaces everything except ASCII letters and whitespace with spaces.
func CleanText(raw string) string {
	return nonLetters.ReplaceAllString(raw, " ")
}

// LooksLikeLabel reports whether recognized text plausibly came from a food label.
func LooksLikeLabel(cleaned string) bool {
	return labelSignal.MatchString(cleaned)
}
