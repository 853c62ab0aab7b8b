// Package mailsource delivers registration emails to the processing pipeline:
// an IMAP poller (imap.go) and the MIME decoding that reduces a raw message to
// subject, body text, and identity (message.go).
package mailsource

import (
	"fmt"
	"io"
	"net/mail"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/jhillyerd/enmime"
)

// Message is one inbound email reduced to what processing needs. ID is the
// Message-ID header without angle brackets; it is the idempotency key.
type Message struct {
	ID       string
	Subject  string
	Body     string
	Received time.Time
}

// Parse decodes a raw RFC 5322 message. Charset and transfer-encoding
// handling is enmime's. When no text part exists the HTML part is flattened
// so that labeled lines survive as lines.
func Parse(raw io.Reader) (Message, error) {
	env, err := enmime.ReadEnvelope(raw)
	if err != nil {
		return Message{}, fmt.Errorf("parse message: %w", err)
	}

	msg := Message{
		ID:      strings.Trim(strings.TrimSpace(env.GetHeader("Message-Id")), "<>"),
		Subject: env.GetHeader("Subject"),
	}
	if d, err := mail.ParseDate(env.GetHeader("Date")); err == nil {
		msg.Received = d
	} else {
		msg.Received = time.Now()
	}

	body := strings.TrimSpace(env.Text)
	if body == "" && env.HTML != "" {
		body, err = htmlToText(env.HTML)
		if err != nil {
			return Message{}, fmt.Errorf("flatten html body: %w", err)
		}
	}
	msg.Body = body
	return msg, nil
}

// htmlToText extracts visible text with line breaks at <br> and after block
// elements, so "Label: value" rows stay one per line.
func htmlToText(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", err
	}
	doc.Find("script, style, head").Remove()
	doc.Find("br").ReplaceWithHtml("\n")
	doc.Find("p, div, li, tr, h1, h2, h3, h4").AppendHtml("\n")

	lines := strings.Split(doc.Text(), "\n")
	out := make([]string, 0, len(lines))
	blank := false
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			// Collapse blank runs; the extractor only cares about
			// line boundaries.
			if !blank && len(out) > 0 {
				out = append(out, "")
			}
			blank = true
			continue
		}
		blank = false
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n")), nil
}
