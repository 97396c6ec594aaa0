package patterns

import "strings"

// Websites returns lower-cased URLs and host names. Host names that are the
// domain part of an email address are not websites and are skipped.
func (x *Extractor) Websites(lines []string) []string {
	full := FullText(lines)
	spans := emailSpans(full)

	var sites []string
	for _, loc := range x.website.FindAllStringIndex(full, -1) {
		if insideAny(loc, spans) {
			continue
		}
		c := strings.TrimRight(strings.TrimSpace(full[loc[0]:loc[1]]), ".,;")
		if len(c) > 4 && strings.Contains(c, ".") {
			sites = append(sites, strings.ToLower(c))
		}
	}
	return Dedupe(sites)
}

func insideAny(loc []int, spans [][]int) bool {
	for _, s := range spans {
		if loc[0] < s[1] && loc[1] > s[0] {
			return true
		}
	}
	return false
}
