// Package vcard reads and writes the subset of vCard 3.0 found in business
// card QR codes.
package vcard

import (
	"strings"

	"github.com/joseph-ayodele/cardmate/constants"
)

// Card is the contact data carried by a vCard payload.
type Card struct {
	Name        string
	Designation string
	Company     string
	Phones      []string
	Emails      []string
	Addresses   []string
	Websites    []string
	Note        string
}

// Parse extracts contact fields from a vCard payload. It reports false when
// text is not a vCard. Unknown properties are ignored.
func Parse(text string) (*Card, bool) {
	if !strings.Contains(strings.ToUpper(text), "BEGIN:VCARD") {
		return nil, false
	}
	var (
		c         Card
		fn, nName string
		title     string
		role      string
	)
	for _, line := range unfold(text) {
		key, value, ok := splitProperty(line)
		if !ok || value == "" {
			continue
		}
		if key == "NOTE" {
			c.Note = unescape(value)
			continue
		}
		field, known := constants.CanonicalizeVCardKey(key)
		if !known {
			continue
		}
		switch field {
		case constants.FieldName:
			if key == "FN" {
				fn = unescape(value)
			} else {
				nName = nameFromN(value)
			}
		case constants.FieldDesignation:
			if key == "TITLE" {
				title = unescape(value)
			} else {
				role = unescape(value)
			}
		case constants.FieldCompany:
			if parts := splitEscaped(value, ';'); len(parts) > 0 {
				c.Company = strings.TrimSpace(unescape(parts[0]))
			}
		case constants.FieldPhones:
			c.Phones = append(c.Phones, strings.TrimSpace(unescape(value)))
		case constants.FieldEmails:
			c.Emails = append(c.Emails, strings.TrimSpace(unescape(value)))
		case constants.FieldWebsites:
			c.Websites = append(c.Websites, strings.TrimSpace(unescape(value)))
		case constants.FieldAddresses:
			if key == "ADR" {
				if a := joinComponents(value); a != "" {
					c.Addresses = append(c.Addresses, a)
				}
			} else {
				c.Addresses = append(c.Addresses, strings.TrimSpace(unescape(value)))
			}
		}
	}
	c.Name = firstNonEmpty(fn, nName)
	c.Designation = firstNonEmpty(title, role)
	return &c, true
}

// unfold joins RFC 6350 continuation lines (leading space or tab).
func unfold(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	var out []string
	for _, ln := range strings.Split(text, "\n") {
		if (strings.HasPrefix(ln, " ") || strings.HasPrefix(ln, "\t")) && len(out) > 0 {
			out[len(out)-1] += ln[1:]
			continue
		}
		out = append(out, ln)
	}
	return out
}

// splitProperty splits "item1.TEL;TYPE=CELL:+91..." into TEL and the value.
// Parameters are dropped.
func splitProperty(line string) (key, value string, ok bool) {
	idx := strings.IndexByte(line, ':')
	if idx <= 0 {
		return "", "", false
	}
	key, _, _ = strings.Cut(line[:idx], ";")
	key = strings.ToUpper(strings.TrimSpace(key))
	if dot := strings.LastIndexByte(key, '.'); dot >= 0 {
		key = key[dot+1:]
	}
	return key, strings.TrimSpace(line[idx+1:]), true
}

// nameFromN turns "family;given;additional;prefix;suffix" into "given additional family".
func nameFromN(value string) string {
	parts := splitEscaped(value, ';')
	get := func(i int) string {
		if i < len(parts) {
			return strings.TrimSpace(unescape(parts[i]))
		}
		return ""
	}
	var words []string
	for _, w := range []string{get(3), get(1), get(2), get(0), get(4)} {
		if w != "" {
			words = append(words, w)
		}
	}
	return strings.Join(words, " ")
}

func joinComponents(value string) string {
	var parts []string
	for _, p := range splitEscaped(value, ';') {
		if p = strings.TrimSpace(unescape(p)); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

// splitEscaped splits on sep except where it is backslash-escaped.
func splitEscaped(s string, sep byte) []string {
	var (
		parts []string
		cur   strings.Builder
	)
	for i := 0; i < len(s); i++ {
		switch {
		case s[i] == '\\' && i+1 < len(s):
			cur.WriteByte(s[i])
			cur.WriteByte(s[i+1])
			i++
		case s[i] == sep:
			parts = append(parts, cur.String())
			cur.Reset()
		default:
			cur.WriteByte(s[i])
		}
	}
	return append(parts, cur.String())
}

var (
	unescaper = strings.NewReplacer(`\n`, "\n", `\N`, "\n", `\,`, ",", `\;`, ";", `\\`, `\`)
	escaper   = strings.NewReplacer(`\`, `\\`, "\n", `\n`, ",", `\,`, ";", `\;`)
)

func unescape(s string) string { return unescaper.Replace(s) }

func escape(s string) string { return escaper.Replace(s) }

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
