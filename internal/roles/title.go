package roles

import (
	"strings"
	"unicode/utf8"
)

// Designation returns the first line naming a job role, or "". Keywords match
// as substrings so that "Dy.Manager" is found; lines carrying a company suffix
// ("Marketing Services Pvt Ltd") are left for Company.
func (c *Classifier) Designation(lines []string) string {
	for _, ln := range lines {
		trimmed := strings.TrimSpace(ln)
		if utf8.RuneCountInString(trimmed) < 3 || hasWebOrMail(trimmed) {
			continue
		}
		lw := strings.ToLower(trimmed)
		if !containsAny(lw, c.jobKeywords) {
			continue
		}
		if c.companySuffix.MatchString(lw) {
			continue
		}
		return trimmed
	}
	return ""
}

func containsAny(s string, subs []string) bool {
	for _, k := range subs {
		if k != "" && strings.Contains(s, k) {
			return true
		}
	}
	return false
}
