package roles

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	reDigit     = regexp.MustCompile(`\d`)
	reNameSplit = regexp.MustCompile(`[\s.]+`)
)

// Name returns the first name-shaped line among the first four lines, then
// among all lines, or "".
func (c *Classifier) Name(lines []string) string {
	for i := 0; i < len(lines) && i < 4; i++ {
		if c.looksLikeName(lines[i]) {
			return strings.TrimSpace(lines[i])
		}
	}
	for _, ln := range lines {
		if c.looksLikeName(ln) {
			return strings.TrimSpace(ln)
		}
	}
	return ""
}

func (c *Classifier) looksLikeName(line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}
	if reDigit.MatchString(line) || hasWebOrMail(line) {
		return false
	}
	if c.nameStopword.MatchString(line) || c.companySuffix.MatchString(line) || c.jobWord.MatchString(line) {
		return false
	}
	if strings.Count(line, ",")+strings.Count(line, ";")+strings.Count(line, ":") > 1 {
		return false
	}
	var words []string
	for _, w := range reNameSplit.Split(line, -1) {
		if w != "" {
			words = append(words, w)
		}
	}
	if len(words) < 1 || len(words) > 4 {
		return false
	}
	for _, w := range words {
		first, _ := utf8.DecodeRuneInString(w)
		if utf8.RuneCountInString(w) == 1 && unicode.IsLetter(first) {
			continue
		}
		if !unicode.IsUpper(first) {
			return false
		}
	}
	return true
}
