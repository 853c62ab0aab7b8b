package company

import "testing"

func TestCanonicalLegalFormVariants(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Näidis Aktsiaselts", "Näidis AS"},
		{"Näidis AS", "Näidis AS"},
		{"AS Näidis", "Näidis AS"},
		{"aktsiaselts Näidis", "Näidis AS"},
		{"Näidis Osaühing", "Näidis OÜ"},
		{"OÜ Näidis", "Näidis OÜ"},
		{"oü Näidis", "Näidis OÜ"},
		{"Näidis Sihtasutus", "Näidis SAS"},
		{"Mittetulundusühing Näidis", "Näidis MTÜ"},
		{"MTÜ Näidis", "Näidis MTÜ"},
		{"Näidis, OÜ", "Näidis OÜ"},
		{"Näidis Grupp", "Näidis Grupp"},
	}
	for _, tc := range cases {
		if got := Canonical(tc.in); got != tc.want {
			t.Errorf("Canonical(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestCanonicalIdempotent(t *testing.T) {
	inputs := []string{
		"Näidis Aktsiaselts",
		"AS Näidis",
		"OÜ.Näidis",
		"Näidis Tootmine Osaühing",
		"Sihtasutus Näidis AS",
		"Plain Company",
		"",
	}
	for _, in := range inputs {
		once := Canonical(in)
		twice := Canonical(once)
		if once != twice {
			t.Errorf("not idempotent for %q: %q -> %q", in, once, twice)
		}
	}
}

func TestCanonicalLastRuleWins(t *testing.T) {
	// Two legal-form indicators: the later rule's abbreviation becomes the
	// suffix.
	if got := Canonical("Sihtasutus Näidis AS"); got != "Näidis AS" {
		t.Fatalf("got %q, want %q", got, "Näidis AS")
	}
}

func TestCanonicalStripsCommas(t *testing.T) {
	if got := Canonical("Näidis, Pojad ja Tütred OÜ"); got != "Näidis Pojad ja Tütred OÜ" {
		t.Fatalf("got %q", got)
	}
}
