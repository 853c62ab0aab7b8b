// Package company canonicalizes Estonian company names so that every legal
// form variant of the same company produces one stable matching key.
package company

import (
	"regexp"
	"strings"
)

// prefixForm strips a leading legal-form abbreviation followed by at least
// one space, dot, or hyphen.
var prefixForm = regexp.MustCompile(`(?i)^(AS|OÜ|SAS|MTÜ)[\s.\-]+`)

// suffixRule rewrites a legal-form token found anywhere in the name. Rules
// run in this fixed order; the last matching rule's abbreviation wins.
//
// Go's \b is ASCII-only, so forms ending in Ü need an explicit boundary
// class; the surrounding separators are captured and preserved.
type suffixRule struct {
	re   *regexp.Regexp
	abbr string
}

var suffixRules = []suffixRule{
	{regexp.MustCompile(`(?i)\baktsiaselts\b`), "AS"},
	{regexp.MustCompile(`(?i)\bosaühing\b`), "OÜ"},
	{regexp.MustCompile(`(?i)\bsihtasutus\b`), "SAS"},
	{regexp.MustCompile(`(?i)(^|[^\p{L}\d])mittetulundusühing($|[^\p{L}\d])`), "MTÜ"},
	{regexp.MustCompile(`(?i)\bAS\b`), "AS"},
	{regexp.MustCompile(`(?i)(^|[^\p{L}\d])OÜ($|[^\p{L}\d])`), "OÜ"},
	{regexp.MustCompile(`(?i)\bSAS\b`), "SAS"},
	{regexp.MustCompile(`(?i)(^|[^\p{L}\d])MTÜ($|[^\p{L}\d])`), "MTÜ"},
}

// Canonical rewrites legal-form tokens (long form or abbreviation, leading or
// embedded) into a single uppercased trailing suffix and strips commas.
// Idempotent: Canonical(Canonical(x)) == Canonical(x).
func Canonical(name string) string {
	processed := strings.TrimSpace(name)
	suffix := ""

	if m := prefixForm.FindStringSubmatch(processed); m != nil {
		processed = strings.TrimSpace(prefixForm.ReplaceAllString(processed, ""))
		suffix = strings.ToUpper(m[1])
	}

	for _, rule := range suffixRules {
		if !rule.re.MatchString(processed) {
			continue
		}
		processed = strings.TrimSpace(rule.re.ReplaceAllString(processed, "$1$2"))
		suffix = rule.abbr
	}

	processed = collapseSpaces(processed)
	if suffix != "" {
		processed = strings.TrimSpace(processed + " " + suffix)
	}
	return strings.ReplaceAll(processed, ",", "")
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
