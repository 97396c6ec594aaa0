package roles

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	rePostalCode   = regexp.MustCompile(`\b\d{6}\b`)
	reHouseNumber  = regexp.MustCompile(`#\s?\d{1,4}\b|\b\d{1,4}/\d{1,4}[A-Za-z]?\b`)
	reAbsorbable   = regexp.MustCompile(`\d|,|-`)
	reOnlyNumbered = regexp.MustCompile(`^[\d\s\-+(),]+$`)
)

// Addresses groups address lines into postal addresses. A group starts on a
// line with an address keyword, a six digit postal code or a house number and
// absorbs the following lines that carry digits, commas, hyphens or keywords.
// Phone-number segments caught in a group are removed.
func (c *Classifier) Addresses(lines []string) []string {
	var candidates []string
	for i := 0; i < len(lines); {
		if !c.startsAddress(lines[i]) {
			i++
			continue
		}
		group := []string{strings.TrimSpace(lines[i])}
		j := i + 1
		for ; j < len(lines); j++ {
			next := strings.ToLower(lines[j])
			if strings.Contains(next, "@") || strings.Contains(next, "www") || strings.Contains(next, "http") {
				break
			}
			if !reAbsorbable.MatchString(next) && !c.hasAddressKeyword(next) {
				break
			}
			group = append(group, strings.TrimSpace(lines[j]))
		}
		if addr := c.dropPhoneSegments(strings.Join(group, ", ")); addr != "" {
			candidates = append(candidates, addr)
		}
		i = j
	}

	out := make([]string, 0, len(candidates))
	seen := make(map[string]struct{}, len(candidates))
	for _, a := range candidates {
		if utf8.RuneCountInString(a) <= 10 || reOnlyNumbered.MatchString(a) {
			continue
		}
		if _, ok := seen[a]; ok {
			continue
		}
		seen[a] = struct{}{}
		out = append(out, a)
	}
	return out
}

func (c *Classifier) startsAddress(line string) bool {
	lw := strings.ToLower(line)
	return c.hasAddressKeyword(lw) || rePostalCode.MatchString(lw) || reHouseNumber.MatchString(lw)
}

// hasAddressKeyword matches keywords at the start of a word of a lower-cased line.
func (c *Classifier) hasAddressKeyword(lw string) bool {
	padded := " " + lw
	for _, k := range c.addressKeywords {
		if k != "" && strings.Contains(padded, " "+k) {
			return true
		}
	}
	return false
}

func (c *Classifier) dropPhoneSegments(addr string) string {
	var kept []string
	for _, seg := range strings.Split(addr, ",") {
		seg = strings.TrimSpace(seg)
		if seg == "" {
			continue
		}
		if c.isPhoneSegment(seg) {
			continue
		}
		kept = append(kept, seg)
	}
	return strings.Join(kept, ", ")
}

func (c *Classifier) isPhoneSegment(seg string) bool {
	if containsAny(strings.ToLower(seg), c.addressMarkers) {
		return false
	}
	digits := 0
	for _, r := range seg {
		if r >= '0' && r <= '9' {
			digits++
		}
	}
	if digits < 7 {
		return false
	}
	stripped := strings.NewReplacer(" ", "", "-", "", "+", "").Replace(seg)
	for _, r := range stripped {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
