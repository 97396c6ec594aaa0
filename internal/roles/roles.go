// Package roles decides which OCR line of a business card is the person's name,
// job title, company and postal address.
package roles

import (
	"regexp"
	"strings"

	"github.com/joseph-ayodele/cardmate/internal/vocab"
)

// Classifier holds vocabulary-derived patterns. It has no mutable state and
// may be shared across goroutines.
type Classifier struct {
	jobKeywords     []string
	addressKeywords []string
	addressMarkers  []string

	jobWord       *regexp.Regexp
	nameStopword  *regexp.Regexp
	companySuffix *regexp.Regexp
}

// New compiles a Classifier. A nil vocabulary means vocab.Default().
func New(v *vocab.Vocabulary) *Classifier {
	if v == nil {
		v = vocab.Default()
	}
	return &Classifier{
		jobKeywords:     lowerAll(v.JobKeywords),
		addressKeywords: lowerAll(v.AddressKeywords),
		addressMarkers:  lowerAll(v.AddressMarkers),
		jobWord:         wordPattern(v.JobKeywords),
		nameStopword:    wordPattern(v.NameStopwords),
		companySuffix:   wordPattern(v.CompanySuffixes),
	}
}

// wordPattern matches any of words starting at a word boundary and not
// continuing into another word character. Words may end in '.', as "st.".
func wordPattern(words []string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)\b(?:` + vocab.Alternation(words) + `)(?:[^\pL\pN_]|$)`)
}

var reWebMarker = regexp.MustCompile(`(?i)www\.|http`)

func hasWebOrMail(s string) bool {
	return strings.Contains(s, "@") || reWebMarker.MatchString(s)
}

func lowerAll(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.ToLower(strings.TrimSpace(s))
	}
	return out
}
