package vcard

import "strings"

// Encode renders c as a vCard 3.0 document with CRLF line endings.
func Encode(c Card) string {
	var b strings.Builder
	line := func(s string) {
		b.WriteString(s)
		b.WriteString("\r\n")
	}
	line("BEGIN:VCARD")
	line("VERSION:3.0")
	line("FN:" + escape(c.Name))
	line("N:" + structuredName(c.Name))
	if c.Company != "" {
		line("ORG:" + escape(c.Company))
	}
	if c.Designation != "" {
		line("TITLE:" + escape(c.Designation))
	}
	for _, p := range c.Phones {
		line("TEL;TYPE=WORK,VOICE:" + escape(p))
	}
	for _, e := range c.Emails {
		line("EMAIL;TYPE=INTERNET:" + escape(e))
	}
	for _, u := range c.Websites {
		line("URL:" + escape(u))
	}
	for _, a := range c.Addresses {
		line("ADR;TYPE=WORK:;;" + escape(a) + ";;;;")
	}
	if c.Note != "" {
		line("NOTE:" + escape(c.Note))
	}
	line("END:VCARD")
	return b.String()
}

// structuredName treats the last word as the family name.
func structuredName(full string) string {
	words := strings.Fields(full)
	if len(words) == 0 {
		return ";;;;"
	}
	family := words[len(words)-1]
	given := strings.Join(words[:len(words)-1], " ")
	if given == "" {
		return ";" + escape(family) + ";;;"
	}
	return escape(family) + ";" + escape(given) + ";;;"
}
