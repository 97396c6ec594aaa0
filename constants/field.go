package constants

import "strings"

// Field names a contact record attribute.
type Field string

const (
	FieldName        Field = "name"
	FieldDesignation Field = "designation"
	FieldCompany     Field = "company"
	FieldPhones      Field = "phones"
	FieldEmails      Field = "emails"
	FieldAddresses   Field = "addresses"
	FieldWebsites    Field = "websites"
)

var allFields = []Field{
	FieldName,
	FieldDesignation,
	FieldCompany,
	FieldPhones,
	FieldEmails,
	FieldAddresses,
	FieldWebsites,
}

// FieldsAsStringSlice returns the field names in display order.
func FieldsAsStringSlice() []string {
	result := make([]string, len(allFields))
	for i, f := range allFields {
		result[i] = string(f)
	}
	return result
}

// CanonicalizeVCardKey maps a vCard property name onto a record field.
func CanonicalizeVCardKey(input string) (Field, bool) {
	if input == "" {
		return "", false
	}
	normalized := strings.ToUpper(strings.TrimSpace(input))

	synonyms := map[string]Field{
		"FN":    FieldName,
		"N":     FieldName,
		"TITLE": FieldDesignation,
		"ROLE":  FieldDesignation,
		"ORG":   FieldCompany,
		"TEL":   FieldPhones,
		"EMAIL": FieldEmails,
		"ADR":   FieldAddresses,
		"LABEL": FieldAddresses,
		"URL":   FieldWebsites,
	}
	f, ok := synonyms[normalized]
	return f, ok
}
