package watcher

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/DmitriDerevjanko/email-to-notion-automator/internal/catalog"
	"github.com/DmitriDerevjanko/email-to-notion-automator/internal/extract"
	"github.com/DmitriDerevjanko/email-to-notion-automator/internal/ledger"
	"github.com/DmitriDerevjanko/email-to-notion-automator/internal/mailsource"
	"github.com/DmitriDerevjanko/email-to-notion-automator/internal/notify"
	"github.com/DmitriDerevjanko/email-to-notion-automator/internal/reconcile"
	"github.com/DmitriDerevjanko/email-to-notion-automator/internal/recordstore"
	"github.com/DmitriDerevjanko/email-to-notion-automator/internal/registry"
)

// memStore is the minimal Store for pipeline tests: fixed schemas, in-memory
// pages.
type memStore struct {
	schemas map[string]*recordstore.Schema
	pages   map[string][]*recordstore.Page
	nextID  int
}

func newMemStore() *memStore {
	return &memStore{
		schemas: map[string]*recordstore.Schema{
			"db-main": recordstore.NewSchema("Ettevõtted teenustes", map[string]recordstore.PropType{
				"Projekt":      recordstore.TypeTitle,
				"Registrikood": recordstore.TypeNumber,
				"VTA kontroll": recordstore.TypeRichText,
				"Company Name": recordstore.TypeRelation,
				"Property":     recordstore.TypeSelect,
			}),
			"db-related": recordstore.NewSchema("Ettevõtted", map[string]recordstore.PropType{
				"Company Name": recordstore.TypeTitle,
				"Registrikood": recordstore.TypeNumber,
			}),
			"db-people": recordstore.NewSchema("Kontaktid", map[string]recordstore.PropType{
				"Name":         recordstore.TypeTitle,
				"Email":        recordstore.TypeEmail,
				"Organisation": recordstore.TypeRelation,
			}),
		},
		pages: map[string][]*recordstore.Page{},
	}
}

func (m *memStore) Schema(_ context.Context, dbID string) (*recordstore.Schema, error) {
	s, ok := m.schemas[dbID]
	if !ok {
		return nil, fmt.Errorf("unknown container %s", dbID)
	}
	return s, nil
}

func (m *memStore) FindByRegistryCode(_ context.Context, dbID, property, code string) (*recordstore.Page, error) {
	num, numErr := strconv.ParseFloat(code, 64)
	for _, p := range m.pages[dbID] {
		v, ok := p.Props[property]
		if !ok {
			continue
		}
		if v.Kind == recordstore.KindNumber && numErr == nil && v.Number == num {
			return p, nil
		}
		if v.Kind != recordstore.KindNumber && v.Text == code {
			return p, nil
		}
	}
	return nil, nil
}

func (m *memStore) FindByTitle(_ context.Context, dbID, property, title string) (*recordstore.Page, error) {
	for _, p := range m.pages[dbID] {
		if v, ok := p.Props[property]; ok && v.Kind == recordstore.KindTitle && v.Text == title {
			return p, nil
		}
	}
	return nil, nil
}

func (m *memStore) CountByTitle(_ context.Context, dbID, property, title string) (int, error) {
	n := 0
	for _, p := range m.pages[dbID] {
		if v, ok := p.Props[property]; ok && v.Text == title {
			n++
		}
	}
	return n, nil
}

func (m *memStore) CountByRelation(_ context.Context, dbID, property, pageID string) (int, error) {
	n := 0
	for _, p := range m.pages[dbID] {
		for _, id := range p.Relations(property) {
			if id == pageID {
				n++
				break
			}
		}
	}
	return n, nil
}

func (m *memStore) MaxNumber(context.Context, string, string) (int, error) { return 0, nil }

func (m *memStore) Create(_ context.Context, dbID string, props recordstore.Properties) (*recordstore.Page, error) {
	m.nextID++
	page := &recordstore.Page{
		ID:    fmt.Sprintf("page-%d", m.nextID),
		URL:   fmt.Sprintf("https://records.example/page-%d", m.nextID),
		Props: props,
	}
	m.pages[dbID] = append(m.pages[dbID], page)
	return page, nil
}

func (m *memStore) Update(_ context.Context, pageID string, props recordstore.Properties) (*recordstore.Page, error) {
	for _, pages := range m.pages {
		for _, p := range pages {
			if p.ID == pageID {
				for name, v := range props {
					p.Props[name] = v
				}
				return p, nil
			}
		}
	}
	return nil, fmt.Errorf("page %s not found", pageID)
}

type stubRegistry struct{}

func (stubRegistry) Exists(context.Context, string) (bool, error) { return true, nil }
func (stubRegistry) Enrich(context.Context, string) (registry.Enrichment, error) {
	return registry.Enrichment{Address: "Sepapaja tn 6, Tallinn", County: "Harjumaa"}, nil
}
func (stubRegistry) VTARemnant(context.Context, string) string {
	return "ok(23.08.2026 - 100 000.00)"
}

type captureMailer struct{ sent int }

func (m *captureMailer) Send(context.Context, notify.Message) error {
	m.sent++
	return nil
}

func newTestWatcher(t *testing.T) (*Watcher, *memStore, *captureMailer) {
	t.Helper()
	store := newMemStore()
	mailer := &captureMailer{}

	led, err := ledger.Open(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("open ledger: %v", err)
	}
	t.Cleanup(func() { led.Close() })

	cat := catalog.New([]catalog.Service{
		{ID: catalog.DigitalMaturity, NameET: "Digiküpsuse hindamine", Kind: catalog.OneShot},
	})
	engine := reconcile.NewEngine(store, stubRegistry{}, cat,
		reconcile.Databases{Main: "db-main", Related: "db-related", People: "db-people"},
		zap.NewNop())
	dispatch := notify.NewDispatcher(mailer, notify.Routing{
		Defaults: []string{"office@example.com"},
	}, zap.NewNop())

	w := New(led, engine, dispatch, cat,
		extract.SubjectMarkers{Estonian: "nõustamisteenuse tellimus", English: "advisory service order"},
		zap.NewNop())
	return w, store, mailer
}

func registrationMessage() mailsource.Message {
	return mailsource.Message{
		ID:      "reg1@mail.example",
		Subject: "Uus nõustamisteenuse tellimus",
		Body: "Ettevõtte või organisatsiooni nimi: Näidis OÜ\n" +
			"E-post: mari@example.com\n" +
			"Registrikood: 12345678\n" +
			"Osaleja nimi: Mari Maasikas\n" +
			"Teenus: Digiküpsuse hindamine\n",
		Received: time.Date(2026, 8, 23, 10, 0, 0, 0, time.UTC),
	}
}

func TestHandleRegistration(t *testing.T) {
	w, store, mailer := newTestWatcher(t)
	ctx := context.Background()

	if err := w.Handle(ctx, registrationMessage()); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if n := len(store.pages["db-related"]); n != 1 {
		t.Errorf("company records = %d, want 1", n)
	}
	if n := len(store.pages["db-main"]); n != 1 {
		t.Errorf("main records = %d, want 1", n)
	}
	if n := len(store.pages["db-people"]); n != 1 {
		t.Errorf("contact records = %d, want 1", n)
	}
	if mailer.sent != 1 {
		t.Errorf("notifications = %d, want 1", mailer.sent)
	}
}

func TestHandleIsIdempotent(t *testing.T) {
	w, store, mailer := newTestWatcher(t)
	ctx := context.Background()

	if err := w.Handle(ctx, registrationMessage()); err != nil {
		t.Fatalf("first handle: %v", err)
	}
	if err := w.Handle(ctx, registrationMessage()); err != nil {
		t.Fatalf("second handle: %v", err)
	}
	if n := len(store.pages["db-main"]); n != 1 {
		t.Errorf("main records = %d after replay, want 1", n)
	}
	if mailer.sent != 1 {
		t.Errorf("notifications = %d after replay, want 1", mailer.sent)
	}
}

func TestHandleUnsupportedLanguage(t *testing.T) {
	w, store, mailer := newTestWatcher(t)

	msg := mailsource.Message{
		ID:       "noise1@mail.example",
		Subject:  "12345",
		Body:     "0042 1337 9000 --- !!! ???",
		Received: time.Now(),
	}
	if err := w.Handle(context.Background(), msg); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if n := len(store.pages["db-main"]); n != 0 {
		t.Errorf("records created for unsupported language: %d", n)
	}
	if mailer.sent != 0 {
		t.Errorf("notifications = %d, want silent skip", mailer.sent)
	}
}

func TestHandleMissingCompanyName(t *testing.T) {
	w, store, _ := newTestWatcher(t)

	msg := registrationMessage()
	msg.ID = "noname@mail.example"
	msg.Body = "E-post: keegi@example.com\nRegistrikood: 12345678\n"

	if err := w.Handle(context.Background(), msg); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if n := len(store.pages["db-main"]); n != 0 {
		t.Errorf("records created without a company name: %d", n)
	}
}
