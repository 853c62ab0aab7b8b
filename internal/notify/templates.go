package notify

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/yuin/goldmark"

	"github.com/DmitriDerevjanko/email-to-notion-automator/internal/reconcile"
)

// Bodies are authored in Markdown and rendered twice: as-is for the plain
// part and through goldmark for the HTML alternative.
const successBody = `**Ettevõte:** {{.CompanyName}}{{if .RegistryCode}} ({{.RegistryCode}}){{end}}
**Andmebaas:** {{.DatabaseName}}

Loodud kirjed:
{{range .URLs}}- {{.}}
{{end}}
{{- if .Record.ParticipantName}}
**Kontakt:** {{.Record.ParticipantName}}{{if .Record.EmailAddress}} <{{.Record.EmailAddress}}>{{end}}
{{- end}}
`

const failureBody = `**Ettevõte:** {{.CompanyName}}{{if .RegistryCode}} ({{.RegistryCode}}){{end}}
**Viga:** {{.Err}}

Registreerimisel saadetud andmed:
{{if .Record.EmailAddress}}- E-post: {{.Record.EmailAddress}}
{{end}}{{if .Record.PhoneNumber}}- Telefon: {{.Record.PhoneNumber}}
{{end}}{{if .Record.Industry}}- Tööstusharu: {{.Record.Industry}}
{{end}}{{if .Record.ParticipantName}}- Osaleja: {{.Record.ParticipantName}}
{{end}}{{if .Record.CompanyOrigin}}- Päritolu: {{.Record.CompanyOrigin}}
{{end}}
Kirjet ei loodud; registreerimine vajab käsitsi ülevaatamist.
`

var (
	successTmpl = template.Must(template.New("success").Parse(successBody))
	failureTmpl = template.Must(template.New("failure").Parse(failureBody))
)

// renderOutcome produces the subject, plain body, and HTML body for one
// outcome.
func renderOutcome(o reconcile.Outcome) (subject, text, html string, err error) {
	var buf bytes.Buffer
	switch o.Status {
	case reconcile.StatusSuccess:
		subject = fmt.Sprintf("Uus registreerimine: %s - %s", o.CompanyName, o.DatabaseName)
		err = successTmpl.Execute(&buf, o)
	default:
		subject = fmt.Sprintf("Registreerimine ebaõnnestus: %s", o.CompanyName)
		err = failureTmpl.Execute(&buf, o)
	}
	if err != nil {
		return "", "", "", fmt.Errorf("render notification: %w", err)
	}
	text = buf.String()

	var htmlBuf bytes.Buffer
	if err = goldmark.Convert(buf.Bytes(), &htmlBuf); err != nil {
		return "", "", "", fmt.Errorf("render notification html: %w", err)
	}
	return subject, text, htmlBuf.String(), nil
}
