package labeltext

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	ingredientTrigger = regexp.MustCompile(`(?i)\b(ingredients|contains|composition|made from|made with)\b`)

	ingredientTerminators = []string{"nutritional", "manufactured", "storage", "expiry"}
)

// ExtractIngredients isolates the ingredient list from noisy OCR text.
//
// Lines before the first trigger phrase are dropped. The trigger line is always
// kept; every later line is kept until one mentions a terminator phrase, which
// ends the scan and is itself excluded. The bool is false when no trigger phrase
// was found, so ("", true) means the list was found but empty.
func ExtractIngredients(raw string) (string, bool) {
	if !hasLetter(raw) {
		return "", false
	}

	found := false
	var parts []string

	for _, line := range strings.Split(raw, "\n") {
		trimmed := strings.TrimSpace(line)

		if !found {
			if !ingredientTrigger.MatchString(trimmed) {
				continue
			}
			found = true
		} else if isTerminator(trimmed) {
			break
		}

		if trimmed != "" {
			parts = append(parts, trimmed)
		}
	}

	if !found {
		return "", false
	}
	return strings.Join(parts, " "), true
}

func isTerminator(line string) bool {
	lower := strings.ToLower(line)
	for _, t := range ingredientTerminators {
		if strings.Contains(lower, t) {
			return true
		}
	}
	return false
}

func hasLetter(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}
