// Package patterns pulls emails, phone numbers and websites out of OCR lines.
//
// Every extractor runs a primary pattern over the newline-joined text and, where
// OCR commonly damages the value, a repair pass over the whitespace-free text.
// Results are deduplicated by exact string, keeping first-occurrence order.
package patterns

import (
	"regexp"
	"strings"

	"github.com/joseph-ayodele/cardmate/internal/vocab"
)

// Extractor holds patterns compiled from a vocabulary. It has no mutable state.
type Extractor struct {
	policy vocab.PhonePolicy

	emailRepair *regexp.Regexp
	emailTLDFix *regexp.Regexp
	website     *regexp.Regexp
}

// New compiles the vocabulary-dependent patterns. A nil vocabulary means vocab.Default().
func New(v *vocab.Vocabulary) *Extractor {
	if v == nil {
		v = vocab.Default()
	}
	emailTLDs := vocab.Alternation(v.EmailTLDs)
	webTLDs := vocab.Alternation(v.WebsiteTLDs)
	return &Extractor{
		policy: v.PhonePolicy,
		emailRepair: regexp.MustCompile(
			`[A-Za-z0-9._%+\-]+(?:@|\(at\)|\[at\]|\(@)[A-Za-z0-9.\-]+(?:` + emailTLDs + `)\b`),
		emailTLDFix: regexp.MustCompile(`(` + emailTLDs + `)$`),
		website: regexp.MustCompile(`(?i)https?://[A-Za-z0-9\-._~:/?#\[\]@!$&'()*+,;=%]+` +
			`|www\.[A-Za-z0-9\-._]+\.[A-Za-z]{2,}` +
			`|[A-Za-z0-9\-._]+\.(?:` + webTLDs + `)\b`),
	}
}

// FullText joins lines in reading order.
func FullText(lines []string) string {
	return strings.Join(lines, "\n")
}

var reWhitespace = regexp.MustCompile(`\s+`)

// Compress removes every whitespace run, re-joining tokens OCR split apart.
func Compress(s string) string {
	return reWhitespace.ReplaceAllString(s, "")
}

// CompressLines compresses each line and keeps the line breaks between them.
func CompressLines(lines []string) string {
	out := make([]string, len(lines))
	for i, ln := range lines {
		out[i] = Compress(ln)
	}
	return strings.Join(out, "\n")
}

// Dedupe drops empty strings and exact repeats, preserving first occurrence.
func Dedupe(items []string) []string {
	out := make([]string, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, it := range items {
		if it == "" {
			continue
		}
		if _, ok := seen[it]; ok {
			continue
		}
		seen[it] = struct{}{}
		out = append(out, it)
	}
	return out
}
