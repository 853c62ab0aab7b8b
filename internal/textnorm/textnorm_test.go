package textnorm

import "testing"

func TestCollapseLines(t *testing.T) {
	got := CollapseLines("one\ntwo\r\n  three\t four\n")
	want := "one two three four"
	if got != want {
		t.Fatalf("CollapseLines = %q, want %q", got, want)
	}
}

func TestDashes(t *testing.T) {
	got := Dashes("a – b — c − d - e")
	want := "a - b - c - d - e"
	if got != want {
		t.Fatalf("Dashes = %q, want %q", got, want)
	}
}

func TestNFC(t *testing.T) {
	// "ü" as u + combining diaeresis composes to a single rune.
	decomposed := "Digiku\u0308psuse hindamine"
	composed := "Digiküpsuse hindamine"
	if NFC(decomposed) != composed {
		t.Fatalf("NFC(%q) = %q, want %q", decomposed, NFC(decomposed), composed)
	}
}

func TestKey(t *testing.T) {
	a := Key("Digiküpsuse  hindamine")
	b := Key("digiküpsuse hindamine ")
	if a != b {
		t.Fatalf("keys differ: %q vs %q", a, b)
	}
	if a != "digiküpsusehindamine" {
		t.Fatalf("Key = %q", a)
	}
}
