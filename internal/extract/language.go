package extract

import (
	"strings"

	"github.com/abadojack/whatlanggo"
)

const (
	LangEstonian = "et"
	LangEnglish  = "en"
)

// SubjectMarkers are the configured subject-line fragments that identify the
// registration form's language without statistical detection.
type SubjectMarkers struct {
	Estonian string
	English  string
}

var detectOptions = whatlanggo.Options{
	Whitelist: map[whatlanggo.Lang]bool{
		whatlanggo.Est: true,
		whatlanggo.Eng: true,
	},
}

// DetectLanguage returns "et", "en", or "" when the language cannot be
// determined. Subject markers win over statistical detection; an unreliable
// detection is treated as undetermined, which callers handle as a silent
// skip, not an error.
func DetectLanguage(subject, body string, markers SubjectMarkers) string {
	if markers.Estonian != "" && strings.Contains(subject, markers.Estonian) {
		return LangEstonian
	}
	if markers.English != "" && strings.Contains(subject, markers.English) {
		return LangEnglish
	}

	info := whatlanggo.DetectWithOptions(body, detectOptions)
	if !info.IsReliable() {
		return ""
	}
	switch info.Lang {
	case whatlanggo.Est:
		return LangEstonian
	case whatlanggo.Eng:
		return LangEnglish
	}
	return ""
}
