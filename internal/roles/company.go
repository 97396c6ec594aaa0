package roles

import (
	"strings"
	"unicode"
)

// Company picks the longest block of consecutive all-caps lines, where a block
// also absorbs short lines of at most three words. Without any all-caps line it
// falls back to the first line with a company suffix. The result has repeated
// words removed by DedupeRepeats.
func (c *Classifier) Company(lines []string) string {
	var blocks []string
	for i := 0; i < len(lines); {
		if !IsAllCapsLine(lines[i]) {
			i++
			continue
		}
		block := []string{strings.TrimSpace(lines[i])}
		j := i + 1
		for j < len(lines) && (IsAllCapsLine(lines[j]) || len(strings.Fields(lines[j])) <= 3) {
			block = append(block, strings.TrimSpace(lines[j]))
			j++
		}
		blocks = append(blocks, strings.Join(block, " "))
		i = j
	}

	best := ""
	for _, b := range blocks {
		if len(b) > len(best) {
			best = b
		}
	}
	if best != "" {
		return DedupeRepeats(best)
	}

	for _, ln := range lines {
		if c.companySuffix.MatchString(ln) {
			return DedupeRepeats(strings.TrimSpace(ln))
		}
	}
	return ""
}

// IsAllCapsLine reports whether every purely alphabetic word of line is upper
// case. Lines without alphabetic words are not all-caps.
// TODO: a mixed line such as "ACME Traders" is rejected; measure whether a
// majority rule finds more company names before relaxing it.
func IsAllCapsLine(line string) bool {
	n := 0
	for _, w := range strings.Fields(line) {
		if !isAlpha(w) {
			continue
		}
		n++
		if !isUpperWord(w) {
			return false
		}
	}
	return n > 0
}

func isAlpha(w string) bool {
	for _, r := range w {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return w != ""
}

func isUpperWord(w string) bool {
	cased := false
	for _, r := range w {
		if unicode.IsLower(r) {
			return false
		}
		if unicode.IsUpper(r) || unicode.IsTitle(r) {
			cased = true
		}
	}
	return cased
}

// DedupeRepeats drops a word whose letters and digits, upper-cased, already
// appeared earlier in s. Words shorter than four such characters are always
// kept, so "& CO" style fragments survive.
func DedupeRepeats(s string) string {
	parts := strings.Fields(s)
	seen := make(map[string]struct{}, len(parts))
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		clean := strings.ToUpper(strings.Map(func(r rune) rune {
			if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
				return r
			}
			return -1
		}, p))
		if _, dup := seen[clean]; !dup || len([]rune(clean)) < 4 {
			kept = append(kept, p)
		}
		seen[clean] = struct{}{}
	}
	return strings.Join(kept, " ")
}
