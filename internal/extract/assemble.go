package extract

import (
	"strings"

	"github.com/joseph-ayodele/cardmate/internal/patterns"
	"github.com/joseph-ayodele/cardmate/internal/roles"
	"github.com/joseph-ayodele/cardmate/internal/vcard"
)

// Assemble merges OCR fields with an optional vCard from the card's QR code.
// Any non-empty vCard field replaces the OCR value, lists wholesale. The
// confidence is always that of the best OCR attempt. Assemble is pure.
func Assemble(f Fields, qr *vcard.Card, best Attempt) ContactRecord {
	rec := ContactRecord{
		Name:              f.Name,
		Designation:       f.Designation,
		Company:           f.Company,
		Phones:            f.Phones,
		Emails:            f.Emails,
		Addresses:         f.Addresses,
		Websites:          f.Websites,
		OverallConfidence: best.AverageConfidence,
		Stage:             best.Stage,
	}

	if qr != nil {
		override := func(dst *string, v string) {
			if v = strings.TrimSpace(v); v != "" {
				*dst = v
				rec.QROverride = true
			}
		}
		overrideList := func(dst *[]string, v []string) {
			if len(nonEmpty(v)) > 0 {
				*dst = v
				rec.QROverride = true
			}
		}
		override(&rec.Name, qr.Name)
		override(&rec.Designation, qr.Designation)
		override(&rec.Company, qr.Company)
		overrideList(&rec.Phones, qr.Phones)
		overrideList(&rec.Emails, qr.Emails)
		overrideList(&rec.Addresses, qr.Addresses)
		overrideList(&rec.Websites, qr.Websites)
	}

	rec.Name = strings.TrimSpace(rec.Name)
	rec.Designation = strings.TrimSpace(rec.Designation)
	rec.Company = roles.DedupeRepeats(strings.TrimSpace(rec.Company))
	rec.Phones = patterns.Dedupe(mapList(rec.Phones, patterns.CleanPhone))
	rec.Emails = patterns.Dedupe(mapList(rec.Emails, patterns.NormalizeEmail))
	rec.Websites = patterns.Dedupe(mapList(rec.Websites, func(s string) string {
		return strings.ToLower(strings.TrimSpace(s))
	}))
	rec.Addresses = patterns.Dedupe(mapList(rec.Addresses, strings.TrimSpace))
	return rec
}

func mapList(in []string, fn func(string) string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		out = append(out, fn(s))
	}
	return out
}

func nonEmpty(in []string) []string {
	var out []string
	for _, s := range in {
		if strings.TrimSpace(s) != "" {
			out = append(out, s)
		}
	}
	return out
}
