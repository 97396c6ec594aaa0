package extract

import (
	"github.com/joseph-ayodele/cardmate/internal/patterns"
	"github.com/joseph-ayodele/cardmate/internal/roles"
	"github.com/joseph-ayodele/cardmate/internal/vocab"
)

// Classifier runs the pattern extractors and the line role classifier over
// the same ordered lines. Both are pure, so a Classifier is safe to share.
type Classifier struct {
	patterns *patterns.Extractor
	roles    *roles.Classifier
}

func NewClassifier(v *vocab.Vocabulary) *Classifier {
	return &Classifier{patterns: patterns.New(v), roles: roles.New(v)}
}

// Classify derives every OCR field from lines.
func (c *Classifier) Classify(lines []string) Fields {
	return Fields{
		Name:        c.roles.Name(lines),
		Designation: c.roles.Designation(lines),
		Company:     c.roles.Company(lines),
		Phones:      c.patterns.Phones(lines),
		Emails:      c.patterns.Emails(lines),
		Addresses:   c.roles.Addresses(lines),
		Websites:    c.patterns.Websites(lines),
	}
}
