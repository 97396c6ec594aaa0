package patterns

import (
	"regexp"
	"strings"
)

var (
	rePhone        = regexp.MustCompile(`\+?\d[\d\-\s()]{6,}\d`)
	reDigitRun     = regexp.MustCompile(`\d+`)
	reNumericToken = regexp.MustCompile(`\b\d+\b`)
)

// Phones returns phone numbers as digits with an optional leading '+'.
//
// The primary pattern may span line breaks, so a number that OCR split over
// two lines ("044" / "4689 2301") is recovered in one piece. A spanning match
// whose digit count is rejected is retried line by line, which keeps a postal
// code on one line from swallowing the phone number on the next. A match that
// is still too long is split back into the numbers printed next to each other.
func (x *Extractor) Phones(lines []string) []string {
	full := FullText(lines)
	var phones []string

	for _, m := range rePhone.FindAllString(full, -1) {
		if p, ok := x.acceptPhone(m); ok {
			phones = append(phones, p)
			continue
		}
		for _, part := range strings.Split(m, "\n") {
			for _, sub := range rePhone.FindAllString(part, -1) {
				if p, ok := x.acceptPhone(sub); ok {
					phones = append(phones, p)
				} else if len(digitsOnly(CleanPhone(sub))) > x.policy.MaxDigits() {
					phones = append(phones, x.splitAdjacent(sub)...)
				}
			}
		}
	}

	// bare digit runs hidden behind separators the primary pattern does not allow
	for _, run := range reDigitRun.FindAllString(Compress(full), -1) {
		if !x.policy.AcceptsDigits(len(run)) || subsumed(run, phones) {
			continue
		}
		phones = append(phones, run)
	}

	// landline area code and local number printed as separate tokens
	for _, ln := range lines {
		toks := reNumericToken.FindAllString(ln, -1)
		for i := 0; i+1 < len(toks); i++ {
			area, local := toks[i], toks[i+1]
			if (len(area) != 3 && len(area) != 4) || (len(local) != 7 && len(local) != 8) {
				continue
			}
			combined := area + local
			if !present(combined, phones) {
				phones = append(phones, combined)
			}
		}
	}

	return Dedupe(phones)
}

// splitAdjacent regroups the whitespace-separated tokens of an over-long match,
// closing a number whenever the next token would push it past the policy maximum.
func (x *Extractor) splitAdjacent(m string) []string {
	var out []string
	cur := ""
	flush := func() {
		if p, ok := x.acceptPhone(cur); ok {
			out = append(out, p)
		}
		cur = ""
	}
	for _, tok := range strings.Fields(m) {
		if cur != "" && len(digitsOnly(CleanPhone(cur+tok))) > x.policy.MaxDigits() {
			flush()
		}
		cur += tok
	}
	flush()
	return out
}

func (x *Extractor) acceptPhone(raw string) (string, bool) {
	cleaned := CleanPhone(raw)
	return cleaned, x.policy.AcceptsDigits(len(digitsOnly(cleaned)))
}

// CleanPhone keeps digits and a leading '+'.
func CleanPhone(raw string) string {
	var b strings.Builder
	for i, r := range strings.TrimSpace(raw) {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '+' && i == 0:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func digitsOnly(s string) string {
	return strings.TrimPrefix(s, "+")
}

func subsumed(run string, phones []string) bool {
	for _, p := range phones {
		if strings.Contains(digitsOnly(p), run) {
			return true
		}
	}
	return false
}

func present(digits string, phones []string) bool {
	for _, p := range phones {
		if digitsOnly(p) == digits {
			return true
		}
	}
	return false
}
