// Package extract turns the free-text body of a registration email into
// structured data: labeled fields (fields.go) and requested service counts
// (services.go). The label sets and service phrases are bilingual; the
// Estonian and English rules are independent, not translations of one
// pattern.
package extract

import (
	"regexp"
	"strings"
)

// EmailRecord is the structured view of one inbound registration email. It
// lives only for the duration of processing; missing fields stay empty.
type EmailRecord struct {
	Language        string
	CompanyName     string
	EmailAddress    string
	PhoneNumber     string
	RegistryCode    string
	Industry        string
	ParticipantName string
	CompanyOrigin   string
	TopicNotes      string
}

var emailShape = regexp.MustCompile(`[a-zA-Z0-9_.+-]+@[a-zA-Z0-9-]+\.[a-zA-Z0-9-.]+`)

// fieldRule binds an anchored, case-insensitive label pattern to a record
// field. Rules are tried in order and a line matches at most one.
type fieldRule struct {
	label    *regexp.Regexp
	validate *regexp.Regexp
	assign   func(*EmailRecord, string)
}

var fieldRules = []fieldRule{
	{
		label:  regexp.MustCompile(`(?i)^(Ettevõtte või organisatsiooni nimi|Company or organization name):`),
		assign: func(r *EmailRecord, v string) { r.CompanyName = v },
	},
	{
		label:    regexp.MustCompile(`(?i)^(E-post|E-mail):`),
		validate: emailShape,
		assign:   func(r *EmailRecord, v string) { r.EmailAddress = v },
	},
	{
		label:  regexp.MustCompile(`(?i)^(Telefoni number|Phone number):`),
		assign: func(r *EmailRecord, v string) { r.PhoneNumber = v },
	},
	{
		label:  regexp.MustCompile(`(?i)^(Registrikood|Registration code):`),
		assign: func(r *EmailRecord, v string) { r.RegistryCode = v },
	},
	{
		label:  regexp.MustCompile(`(?i)^(Tööstusharu|Industry):`),
		assign: func(r *EmailRecord, v string) { r.Industry = v },
	},
	{
		label:  regexp.MustCompile(`(?i)^(Osaleja nimi|Participant name|Name of contact person):`),
		assign: func(r *EmailRecord, v string) { r.ParticipantName = v },
	},
	{
		label:  regexp.MustCompile(`(?i)^(Ettevõtte päritolu|Company origin):`),
		assign: func(r *EmailRecord, v string) { r.CompanyOrigin = v },
	},
}

// topicsLabel is matched anywhere in a line, not anchored; the topics block
// spans multiple lines and ends at the next labeled line.
var topicsLabel = regexp.MustCompile(`(?i)(Peamised teemad|Main topics)`)

// Fields extracts labeled fields line by line from the untouched body. The
// body must not be collapsed to a single line. Unmatched lines are ignored.
func Fields(body string) EmailRecord {
	var rec EmailRecord
	lines := strings.Split(body, "\n")

	var topics []string
	inTopics := false

	for i, raw := range lines {
		line := strings.TrimSpace(raw)
		next := ""
		if i+1 < len(lines) {
			next = strings.TrimSpace(lines[i+1])
		}

		matched := false
		for _, rule := range fieldRules {
			if rule.label.MatchString(line) {
				rule.assign(&rec, fieldValue(line, next, rule.validate))
				matched = true
				inTopics = false
				break
			}
		}
		if matched {
			continue
		}

		if topicsLabel.MatchString(line) {
			inTopics = true
			if v := afterColon(line); v != "" {
				topics = append(topics, v)
			}
			continue
		}
		if inTopics && line != "" {
			topics = append(topics, line)
		}
	}

	rec.TopicNotes = strings.Join(topics, "\n")
	return rec
}

// fieldValue applies the value-extraction rule: the text after the first
// colon, falling back to the entire next line when that is empty. When a
// validation pattern is supplied, the first match in the candidate text is
// taken; a failed match on the labeled line falls through to the next line
// before giving up.
func fieldValue(line, next string, validate *regexp.Regexp) string {
	value := afterColon(line)
	if validate == nil {
		if value == "" {
			return next
		}
		return value
	}
	if m := validate.FindString(value); m != "" {
		return m
	}
	return validate.FindString(next)
}

func afterColon(line string) string {
	_, rest, ok := strings.Cut(line, ":")
	if !ok {
		return ""
	}
	return strings.TrimSpace(rest)
}
