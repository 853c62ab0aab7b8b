package config

import (
	"strings"
	"testing"

	"github.com/DmitriDerevjanko/email-to-notion-automator/internal/catalog"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("IMAP_ADDR", "imap.example.com:993")
	t.Setenv("IMAP_USERNAME", "watcher@example.com")
	t.Setenv("IMAP_PASSWORD", "secret")
	t.Setenv("SMTP_HOST", "smtp.example.com")
	t.Setenv("SMTP_FROM", "watcher@example.com")
	t.Setenv("NOTION_API_KEY", "secret_key")
	t.Setenv("NOTION_MAIN_DB", "db-main")
	t.Setenv("NOTION_RELATED_DB", "db-related")
	t.Setenv("NOTIFY_DEFAULTS", "office@example.com")
}

func TestLoad(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("NOTION_AI_DB", "db-ai")
	t.Setenv("NOTIFY_RESPONSIBLES", "db-ai=ai-lead@example.com;second@example.com, db-rob=rob@example.com")
	t.Setenv("NOTIFY_CC", "archive@example.com")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.IMAP.Mailbox != "INBOX" {
		t.Errorf("mailbox default = %q", cfg.IMAP.Mailbox)
	}
	if cfg.PollInterval().Seconds() != 60 {
		t.Errorf("poll interval = %v", cfg.PollInterval())
	}
	// The remnant parser reads the state-aid remnant page, not the company
	// detail page.
	if !strings.Contains(cfg.Registry.VTAURL, "rar.fin.ee") ||
		!strings.Contains(cfg.Registry.VTAURL, "{regCode}") {
		t.Errorf("vta url default = %q", cfg.Registry.VTAURL)
	}

	routing := cfg.Routing()
	if got := routing.Responsibles["db-ai"]; len(got) != 2 || got[0] != "ai-lead@example.com" {
		t.Errorf("db-ai responsibles = %v", got)
	}
	if got := routing.Responsibles["db-rob"]; len(got) != 1 || got[0] != "rob@example.com" {
		t.Errorf("db-rob responsibles = %v", got)
	}
	if len(routing.CC) != 1 || routing.CC[0] != "archive@example.com" {
		t.Errorf("cc = %v", routing.CC)
	}

	cat := cfg.Catalog()
	ai, ok := cat.Get(catalog.AIConsultancy)
	if !ok || ai.DatabaseID != "db-ai" {
		t.Errorf("ai service = %+v", ai)
	}
	dma, _ := cat.Get(catalog.DigitalMaturity)
	if dma.DatabaseID != "" || dma.MaxUnits() != 1 {
		t.Errorf("digital maturity = %+v", dma)
	}
}

func TestLoadMissingRequired(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("NOTION_API_KEY", "")

	_, err := Load()
	if err == nil || !strings.Contains(err.Error(), "NOTION_API_KEY") {
		t.Fatalf("err = %v, want missing NOTION_API_KEY", err)
	}
}

func TestParseResponsiblesMalformed(t *testing.T) {
	got := parseResponsibles("no-equals-sign, =orphan@example.com, db-x=")
	if len(got) != 0 {
		t.Fatalf("parseResponsibles = %v, want malformed entries dropped", got)
	}
}
