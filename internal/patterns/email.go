package patterns

import (
	"regexp"
	"strings"
)

var (
	reEmail          = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)
	reEmailSeparator = regexp.MustCompile(`\(at\)|\[at\]|\(@`)
)

// Emails returns the email addresses in lines. The repair pass only runs when
// the primary pattern finds nothing; it accepts "(at)" style separators and a
// dropped dot before the TLD, as in "john.doe@examplecom". Lines are compressed
// one by one so the TLD of a damaged address still ends at a word boundary.
func (x *Extractor) Emails(lines []string) []string {
	full := FullText(lines)
	found := reEmail.FindAllString(full, -1)
	if len(found) == 0 {
		for _, c := range x.emailRepair.FindAllString(CompressLines(lines), -1) {
			c = reEmailSeparator.ReplaceAllString(c, "@")
			c = x.emailTLDFix.ReplaceAllString(c, ".$1")
			found = append(found, c)
		}
	}
	out := make([]string, 0, len(found))
	for _, e := range found {
		out = append(out, NormalizeEmail(e))
	}
	return Dedupe(out)
}

// NormalizeEmail undoes the OCR damage seen on printed addresses.
func NormalizeEmail(e string) string {
	e = Compress(e)
	e = reEmailSeparator.ReplaceAllString(e, "@")
	e = strings.ReplaceAll(e, ",com", ".com")
	e = strings.ReplaceAll(e, "com,", ".com")
	for strings.Contains(e, "..") {
		e = strings.ReplaceAll(e, "..", ".")
	}
	return strings.Trim(e, ".")
}

// emailSpans locates primary-pattern emails so other extractors can skip them.
func emailSpans(full string) [][]int {
	return reEmail.FindAllStringIndex(full, -1)
}
