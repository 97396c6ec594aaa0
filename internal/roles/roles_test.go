package roles

import (
	"reflect"
	"testing"
)

var sampleCard = []string{
	"Rajesh Kumar",
	"Dy.Manager - Operations",
	"FIRSTLIFT LOGISTICS PVT LTD",
	"FIRSTLIFT",
	"No 12, 9876543210, Anna Nagar",
	"Chennai - 600040",
	"rajesh@firstlift.in",
}

func TestSampleCard(t *testing.T) {
	c := New(nil)
	if got := c.Name(sampleCard); got != "Rajesh Kumar" {
		t.Fatalf("Name = %q", got)
	}
	if got := c.Designation(sampleCard); got != "Dy.Manager - Operations" {
		t.Fatalf("Designation = %q", got)
	}
	if got := c.Company(sampleCard); got != "FIRSTLIFT LOGISTICS PVT LTD" {
		t.Fatalf("Company = %q", got)
	}
	want := []string{"No 12, Anna Nagar, Chennai - 600040"}
	if got := c.Addresses(sampleCard); !reflect.DeepEqual(got, want) {
		t.Fatalf("Addresses = %q, want %q", got, want)
	}
}

func TestName(t *testing.T) {
	c := New(nil)
	cases := []struct {
		lines []string
		want  string
	}{
		{[]string{"J. R. Smith"}, "J. R. Smith"},
		{[]string{"john smith"}, ""},
		{[]string{"Sales Manager", "Meera Iyer"}, "Meera Iyer"},
		{[]string{"Anna Nagar"}, ""},
		{[]string{"Call: 9876"}, ""},
		{[]string{"ACME PVT LTD", "9876543210", "Priya Raman"}, "Priya Raman"},
		{[]string{"a@b.com", "Www.Acme.Com", "One Two Three Four Five"}, ""},
		{[]string{"1", "2", "3", "4", "Late Name"}, "Late Name"},
		{[]string{"Sri Ganesh Industries"}, ""},
		{[]string{"Acme LLP"}, ""},
		{[]string{"Kumar Enterprises"}, ""},
		{[]string{"Vel Machines Limited", "Arun Kumar"}, "Arun Kumar"},
	}
	for _, tc := range cases {
		if got := c.Name(tc.lines); got != tc.want {
			t.Fatalf("Name(%q) = %q, want %q", tc.lines, got, tc.want)
		}
	}
}

func TestDesignationSkipsCompanyLines(t *testing.T) {
	c := New(nil)
	lines := []string{"Marketing Services Pvt Ltd", "Head - Marketing"}
	if got := c.Designation(lines); got != "Head - Marketing" {
		t.Fatalf("Designation = %q", got)
	}
	if got := c.Designation([]string{"sales@acme.com", "ok"}); got != "" {
		t.Fatalf("Designation should ignore email lines, got %q", got)
	}
}

func TestCompany(t *testing.T) {
	c := New(nil)
	cases := []struct {
		name  string
		lines []string
		want  string
	}{
		{"longest block", []string{"ABC", "hello there friend again", "XYZ CONSULTING GROUP"}, "XYZ CONSULTING GROUP"},
		{"suffix fallback", []string{"Priya Raman", "Acme Technologies", "Chennai"}, "Acme Technologies"},
		{"none", []string{"Priya Raman", "Chennai"}, ""},
	}
	for _, tc := range cases {
		if got := c.Company(tc.lines); got != tc.want {
			t.Fatalf("%s: Company = %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestIsAllCapsLine(t *testing.T) {
	cases := map[string]bool{
		"FIRSTLIFT LOGISTICS PVT. LTD.": true,
		"Acme LTD":                      false,
		"123 456":                       false,
		"ÉCOLE DESIGN":                  true,
		"":                              false,
	}
	for in, want := range cases {
		if got := IsAllCapsLine(in); got != want {
			t.Fatalf("IsAllCapsLine(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestDedupeRepeats(t *testing.T) {
	cases := map[string]string{
		"FIRSTLIFT LOGISTICS PVT LTD FIRSTLIFT": "FIRSTLIFT LOGISTICS PVT LTD",
		"ACME, Acme Corp":                       "ACME, Corp",
		"DE DE CO":                              "DE DE CO",
		"":                                      "",
	}
	for in, want := range cases {
		if got := DedupeRepeats(in); got != want {
			t.Fatalf("DedupeRepeats(%q) = %q, want %q", in, got, want)
		}
	}
	once := DedupeRepeats("ALPHA BETA ALPHA")
	if DedupeRepeats(once) != once {
		t.Fatalf("DedupeRepeats must be idempotent")
	}
}

func TestAddresses(t *testing.T) {
	c := New(nil)
	cases := []struct {
		name  string
		lines []string
		want  []string
	}{
		{"phone segment removed", []string{"No 12, 9876543210, Anna Nagar"}, []string{"No 12, Anna Nagar"}},
		{"house number start", []string{"#12 Second Cross", "Indiranagar, 560038", "www.acme.in"}, []string{"#12 Second Cross, Indiranagar, 560038"}},
		{"too short dropped", []string{"Pin 600040"}, []string{}},
		{"duplicates", []string{"12/4 Mount Road", "Rajesh", "12/4 Mount Road"}, []string{"12/4 Mount Road"}},
		{"no address", []string{"Rajesh Kumar", "Director"}, []string{}},
	}
	for _, tc := range cases {
		if got := c.Addresses(tc.lines); !reflect.DeepEqual(got, tc.want) {
			t.Fatalf("%s: Addresses = %q, want %q", tc.name, got, tc.want)
		}
	}
}
