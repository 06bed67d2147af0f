package validation

import (
	"regexp"
	"strings"
)

var (
	reOperators  = regexp.MustCompile(`\b(AND|OR|NOT)\b`)
	reOrGroup    = regexp.MustCompile(`\([^()]*\bOR\b[^()]*\)`)
	reQuoted     = regexp.MustCompile(`"[^"]+"`)
	reSentence   = regexp.MustCompile(`[.!?]+(\s|$)`)
	reListMarker = regexp.MustCompile(`(?m)^\s*([-*•]|\d+[.)])\s+`)
	reDigit      = regexp.MustCompile(`\d`)
)

func words(text string) []string {
	return strings.Fields(text)
}

// balanced reports whether parentheses nest correctly.
func balanced(text string) bool {
	depth := 0
	for _, r := range text {
		switch r {
		case '(':
			depth++
		case ')':
			depth--
			if depth < 0 {
				return false
			}
		}
	}
	return depth == 0
}

func containsAny(lower string, needles []string) []string {
	var hits []string
	for _, n := range needles {
		if strings.Contains(lower, n) {
			hits = append(hits, n)
		}
	}
	return hits
}

// missingKeywords returns required keywords that appear neither directly nor via a synonym.
func missingKeywords(text string, required []string, synonyms map[string][]string) []string {
	lower := strings.ToLower(text)
	var missing []string
	for _, kw := range required {
		candidates := append([]string{kw}, synonyms[kw]...)
		found := false
		for _, c := range candidates {
			if c = strings.ToLower(strings.TrimSpace(c)); c != "" && strings.Contains(lower, c) {
				found = true
				break
			}
		}
		if !found {
			missing = append(missing, kw)
		}
	}
	return missing
}

func mentionsLocation(text, location string) bool {
	if strings.TrimSpace(location) == "" {
		return true
	}
	return strings.Contains(strings.ToLower(text), strings.ToLower(location))
}
