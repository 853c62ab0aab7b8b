// Package config loads the daemon's environment-driven configuration.
// A local .env file is read first when present; real environment variables
// always win. Secrets only ever come from the environment.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"

	"github.com/DmitriDerevjanko/email-to-notion-automator/internal/catalog"
	"github.com/DmitriDerevjanko/email-to-notion-automator/internal/extract"
	"github.com/DmitriDerevjanko/email-to-notion-automator/internal/mailsource"
	"github.com/DmitriDerevjanko/email-to-notion-automator/internal/notify"
	"github.com/DmitriDerevjanko/email-to-notion-automator/internal/reconcile"
)

type Config struct {
	IMAP     IMAPConfig
	SMTP     SMTPConfig
	Notion   NotionConfig
	Registry RegistryConfig
	Notify   NotifyConfig
	Markers  MarkerConfig

	LedgerPath   string `env:"LEDGER_PATH" env-default:"registration-watcher.db"`
	OTLPEndpoint string `env:"OTEL_EXPORTER_OTLP_ENDPOINT" env-default:""`
	LogLevel     string `env:"LOG_LEVEL" env-default:"info"`
}

type IMAPConfig struct {
	Addr     string `env:"IMAP_ADDR"`
	Username string `env:"IMAP_USERNAME"`
	Password string `env:"IMAP_PASSWORD"`
	Mailbox  string `env:"IMAP_MAILBOX" env-default:"INBOX"`
	Archive  string `env:"IMAP_ARCHIVE" env-default:""`

	PollSeconds int `env:"IMAP_POLL_SECONDS" env-default:"60"`
}

type SMTPConfig struct {
	Host     string `env:"SMTP_HOST"`
	Port     int    `env:"SMTP_PORT" env-default:"587"`
	Username string `env:"SMTP_USERNAME"`
	Password string `env:"SMTP_PASSWORD"`
	From     string `env:"SMTP_FROM"`
}

// NotionConfig names the record-store containers. Main, Related, and People
// are fixed; the per-service project containers feed the catalog.
type NotionConfig struct {
	APIKey string `env:"NOTION_API_KEY"`

	MainDB    string `env:"NOTION_MAIN_DB"`
	RelatedDB string `env:"NOTION_RELATED_DB"`
	PeopleDB  string `env:"NOTION_PEOPLE_DB"`

	AIConsultancyDB  string `env:"NOTION_AI_DB" env-default:""`
	PrivateFundingDB string `env:"NOTION_PRIVATE_FUNDING_DB" env-default:""`
	PublicMeasuresDB string `env:"NOTION_PUBLIC_MEASURES_DB" env-default:""`
	RoboticsDB       string `env:"NOTION_ROBOTICS_DB" env-default:""`
	PreAcceleratorDB string `env:"NOTION_PRE_ACCELERATOR_DB" env-default:""`
}

// RegistryConfig: the VTA default is the state-aid remnant page whose "VTA
// vaba jääk" blocks the remnant parser reads; {regCode} is substituted per
// lookup.
type RegistryConfig struct {
	BaseURL string `env:"REGISTRY_BASE_URL" env-default:"https://ariregister.rik.ee"`
	VTAURL  string `env:"REGISTRY_VTA_URL" env-default:"https://rar.fin.ee/rar/DMAremnantPage.action?regCode={regCode}&name=&method:input=Kontrolli%2Bj%C3%A4%C3%A4ki&op=Kontrolli+j%C3%A4%C3%A4ki&antibot_key=7sGg3EvZfMwcaN_T3r2vjjczukTKLWUaUV6JuMTvf6k"`
}

// NotifyConfig carries recipient routing as comma-separated address lists.
// ResponsiblesStr pairs container ids with addresses:
// "db-id=a@x.ee;b@x.ee,db-id2=c@x.ee".
type NotifyConfig struct {
	ResponsiblesStr string `env:"NOTIFY_RESPONSIBLES" env-default:""`
	DefaultsStr     string `env:"NOTIFY_DEFAULTS"`
	FailureStr      string `env:"NOTIFY_FAILURE" env-default:""`
	CCStr           string `env:"NOTIFY_CC" env-default:""`
}

// MarkerConfig is the subject-line fragments that pin the form language
// before statistical detection runs.
type MarkerConfig struct {
	Estonian string `env:"SUBJECT_MARKER_ET" env-default:"nõustamisteenuse tellimus"`
	English  string `env:"SUBJECT_MARKER_EN" env-default:"advisory service order"`
}

// Load reads .env (when present) and the environment, then validates the
// fields the daemon cannot run without.
func Load() (*Config, error) {
	// Missing .env is the normal production case.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	required := map[string]string{
		"IMAP_ADDR":         c.IMAP.Addr,
		"IMAP_USERNAME":     c.IMAP.Username,
		"IMAP_PASSWORD":     c.IMAP.Password,
		"SMTP_HOST":         c.SMTP.Host,
		"SMTP_FROM":         c.SMTP.From,
		"NOTION_API_KEY":    c.Notion.APIKey,
		"NOTION_MAIN_DB":    c.Notion.MainDB,
		"NOTION_RELATED_DB": c.Notion.RelatedDB,
		"NOTIFY_DEFAULTS":   c.Notify.DefaultsStr,
	}
	var missing []string
	for name, v := range required {
		if strings.TrimSpace(v) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}
	return nil
}

func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.IMAP.PollSeconds) * time.Second
}

func (c *Config) IMAPSource() mailsource.IMAPConfig {
	return mailsource.IMAPConfig{
		Addr:     c.IMAP.Addr,
		Username: c.IMAP.Username,
		Password: c.IMAP.Password,
		Mailbox:  c.IMAP.Mailbox,
		Archive:  c.IMAP.Archive,
		Interval: c.PollInterval(),
	}
}

func (c *Config) SMTPMailer() notify.SMTPConfig {
	return notify.SMTPConfig{
		Host:     c.SMTP.Host,
		Port:     c.SMTP.Port,
		Username: c.SMTP.Username,
		Password: c.SMTP.Password,
		From:     c.SMTP.From,
	}
}

func (c *Config) Databases() reconcile.Databases {
	return reconcile.Databases{
		Main:    c.Notion.MainDB,
		Related: c.Notion.RelatedDB,
		People:  c.Notion.PeopleDB,
	}
}

func (c *Config) SubjectMarkers() extract.SubjectMarkers {
	return extract.SubjectMarkers{
		Estonian: c.Markers.Estonian,
		English:  c.Markers.English,
	}
}

// Catalog builds the service catalog from the configured containers.
// Digital maturity has no container of its own; it lives as the help-desk
// line on the main record. Services without a configured container still
// count toward extraction but never produce project records.
func (c *Config) Catalog() *catalog.Catalog {
	return catalog.New([]catalog.Service{
		{
			ID:     catalog.DigitalMaturity,
			NameET: "Digiküpsuse hindamine",
			Kind:   catalog.OneShot,
		},
		{
			ID:                   catalog.AIConsultancy,
			NameET:               "Projektipõhine AI nõustamine",
			ProjectLabel:         "AI nõustamine",
			Kind:                 catalog.Advisory,
			DatabaseID:           c.Notion.AIConsultancyDB,
			MainRelationProperty: "Digiküpsuse hindamine",
		},
		{
			ID:                   catalog.PrivateFunding,
			NameET:               "Erakapitali kaasamine",
			ProjectLabel:         "Erakapitali kaasamine",
			Kind:                 catalog.Advisory,
			DatabaseID:           c.Notion.PrivateFundingDB,
			MainRelationProperty: "Digiküpsuse hindamine",
		},
		{
			ID:                   catalog.PublicMeasures,
			NameET:               "Avalikud meetmed",
			ProjectLabel:         "Avalikud meetmed",
			Kind:                 catalog.Advisory,
			DatabaseID:           c.Notion.PublicMeasuresDB,
			MainRelationProperty: "Digiküpsuse hindamine",
		},
		{
			ID:                   catalog.Robotics,
			NameET:               "Robotiseerimise nõustamine",
			ProjectLabel:         "Robotiseerimise nõustamine",
			Kind:                 catalog.Advisory,
			DatabaseID:           c.Notion.RoboticsDB,
			MainRelationProperty: "Digiküpsuse hindamine",
		},
		{
			ID:                   catalog.PreAccelerator,
			NameET:               "AIRE eelkiirendi",
			ProjectLabel:         "AIRE eelkiirendi",
			Kind:                 catalog.OneShot,
			DatabaseID:           c.Notion.PreAcceleratorDB,
			MainRelationProperty: "Digiküpsuse hindamine",
		},
	})
}

// Routing turns the address-list strings into the dispatcher's routing table.
func (c *Config) Routing() notify.Routing {
	return notify.Routing{
		Responsibles: parseResponsibles(c.Notify.ResponsiblesStr),
		Defaults:     splitAddrs(c.Notify.DefaultsStr, ","),
		Failure:      splitAddrs(c.Notify.FailureStr, ","),
		CC:           splitAddrs(c.Notify.CCStr, ","),
		MainDB:       c.Notion.MainDB,
	}
}

// parseResponsibles parses "db-id=a@x.ee;b@x.ee,db-id2=c@x.ee".
func parseResponsibles(s string) map[string][]string {
	out := map[string][]string{}
	for _, pair := range strings.Split(s, ",") {
		id, addrs, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok {
			continue
		}
		id = strings.TrimSpace(id)
		list := splitAddrs(addrs, ";")
		if id == "" || len(list) == 0 {
			continue
		}
		out[id] = list
	}
	return out
}

func splitAddrs(s, sep string) []string {
	var out []string
	for _, a := range strings.Split(s, sep) {
		if a = strings.TrimSpace(a); a != "" {
			out = append(out, a)
		}
	}
	return out
}
