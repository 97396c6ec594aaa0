// Package vocab holds the heuristic word lists used to classify business-card
// text. The lists are data, not code: the embedded defaults can be replaced by
// a JSON file that is validated against schema.json before use.
package vocab

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/joseph-ayodele/cardmate/internal/common"
)

//go:embed default_vocabulary.json
var defaultVocabulary []byte

//go:embed schema.json
var schemaDoc []byte

// PhonePolicy selects the accepted digit-count range for phone candidates.
type PhonePolicy string

const (
	// PhoneStrict accepts 7-8 digit local numbers and 10-13 digit full numbers.
	PhoneStrict PhonePolicy = "strict"
	// PhoneTolerant accepts anything from 7 to 14 digits.
	PhoneTolerant PhonePolicy = "tolerant"
)

// AcceptsDigits reports whether a candidate with n digits is a phone number.
// Exactly six digits is a postal code under every policy.
func (p PhonePolicy) AcceptsDigits(n int) bool {
	if p == PhoneTolerant {
		return n >= 7 && n <= 14
	}
	return n == 7 || n == 8 || (n >= 10 && n <= 13)
}

// MaxDigits is the longest digit count p accepts.
func (p PhonePolicy) MaxDigits() int {
	if p == PhoneTolerant {
		return 14
	}
	return 13
}

// Vocabulary is immutable once loaded and safe for concurrent use.
type Vocabulary struct {
	JobKeywords     []string    `json:"job_keywords"`
	CompanySuffixes []string    `json:"company_suffixes"`
	NameStopwords   []string    `json:"name_stopwords"`
	AddressKeywords []string    `json:"address_keywords"`
	AddressMarkers  []string    `json:"address_markers"`
	EmailTLDs       []string    `json:"email_tlds"`
	WebsiteTLDs     []string    `json:"website_tlds"`
	PhonePolicy     PhonePolicy `json:"phone_policy"`
}

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error

	defaultOnce sync.Once
	defaultVoc  *Vocabulary
)

func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		schema, schemaErr = common.CompileSchema("vocabulary.schema.json", schemaDoc)
	})
	return schema, schemaErr
}

// Default returns the embedded vocabulary.
func Default() *Vocabulary {
	defaultOnce.Do(func() {
		v, err := Parse(defaultVocabulary)
		if err != nil {
			panic(fmt.Sprintf("vocab: embedded default is invalid: %v", err))
		}
		defaultVoc = v
	})
	return defaultVoc
}

// Parse validates data against the vocabulary schema and decodes it.
func Parse(data []byte) (*Vocabulary, error) {
	s, err := compiledSchema()
	if err != nil {
		return nil, fmt.Errorf("vocabulary schema: %w", err)
	}
	if err := common.ValidateJSONAgainstSchema(s, data); err != nil {
		return nil, err
	}
	var v Vocabulary
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("decode vocabulary: %w", err)
	}
	return &v, nil
}

// Load reads a vocabulary file; an empty path yields Default().
func Load(path string) (*Vocabulary, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read vocabulary %s: %w", path, err)
	}
	v, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("vocabulary %s: %w", path, err)
	}
	return v, nil
}

// WithPhonePolicy returns a copy of v using policy p.
func (v *Vocabulary) WithPhonePolicy(p PhonePolicy) *Vocabulary {
	if p == "" || p == v.PhonePolicy {
		return v
	}
	cp := *v
	cp.PhonePolicy = p
	return &cp
}

// Alternation builds a regexp alternation of the quoted words, longest first
// so that "pvt ltd" wins over "ltd".
func Alternation(words []string) string {
	sorted := make([]string, 0, len(words))
	for _, w := range words {
		w = strings.TrimSpace(w)
		if w == "" {
			continue
		}
		q := regexp.QuoteMeta(w)
		// single spaces in phrases match any run of whitespace
		q = strings.ReplaceAll(q, " ", `\s*`)
		sorted = append(sorted, q)
	}
	sort.SliceStable(sorted, func(i, j int) bool { return len(sorted[i]) > len(sorted[j]) })
	return strings.Join(sorted, "|")
}
