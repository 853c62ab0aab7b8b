package extract

import "testing"

func TestDetectLanguageSubjectMarkers(t *testing.T) {
	markers := SubjectMarkers{Estonian: "Teenusele registreerimine", English: "Service registration"}

	if got := DetectLanguage("Teenusele registreerimine — AIRE", "suvaline sisu", markers); got != LangEstonian {
		t.Fatalf("estonian marker: got %q", got)
	}
	if got := DetectLanguage("Service registration — AIRE", "anything", markers); got != LangEnglish {
		t.Fatalf("english marker: got %q", got)
	}
}

func TestDetectLanguageFromBody(t *testing.T) {
	body := "We would like to register our company for the digital maturity assessment. " +
		"Our team has been exploring automation opportunities across the production line " +
		"and we believe an external review would help us prioritize the next investments."
	if got := DetectLanguage("no marker here", body, SubjectMarkers{}); got != LangEnglish {
		t.Fatalf("got %q, want %q", got, LangEnglish)
	}
}

func TestDetectLanguageUndetermined(t *testing.T) {
	if got := DetectLanguage("", "", SubjectMarkers{}); got != "" {
		t.Fatalf("empty body: got %q, want undetermined", got)
	}
}
