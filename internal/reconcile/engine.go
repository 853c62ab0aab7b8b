// Package reconcile drives one registration through the record store:
// registry validation, company and contact resolution, the main service
// record, and per-service project records. Every step is idempotent against
// what the store already holds; the engine never updates enrichment fields on
// records it finds.
package reconcile

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/DmitriDerevjanko/email-to-notion-automator/internal/catalog"
	"github.com/DmitriDerevjanko/email-to-notion-automator/internal/company"
	"github.com/DmitriDerevjanko/email-to-notion-automator/internal/extract"
	"github.com/DmitriDerevjanko/email-to-notion-automator/internal/recordstore"
	"github.com/DmitriDerevjanko/email-to-notion-automator/internal/registry"
)

// Configured property names. Containers drift in spelling and casing, so
// every name below goes through Schema.Resolve before use.
const (
	propRegistryCode = "Registrikood"
	propCompanyTitle = "Company Name"
	propCompanyRel   = "Company Name"
	propProject      = "Projekt"
	propIndustry     = "Tööstusharu"
	propRegDate      = "Teenusele reg kpv"
	propServiceTag   = "Property"
	propLocation     = "Location"
	propVTA          = "VTA kontroll"
	propSeq          = "Jrk"
	propContactRel   = "Kontakt"
	propTopics       = "Peamised teemad"
	propPersonName   = "Name"
	propEmail        = "Email"
	propPhone        = "Phone"
	propOrganisation = "Organisation"
	propOrigin       = "Päritolu"
	propCounty       = "Maakond"
	propActivity     = "Põhitegevusala"
	propActivityCode = "EMTAK kood"
	propEmployees    = "Töötajate arv"
)

// The main record is the company's help-desk line, always tagged T0.
const (
	helpDeskLabel = "DMA T0"
	helpDeskTag   = "T0"
)

var numericCode = regexp.MustCompile(`^\d+$`)

// consentLine matches the consent boilerplate the registration form appends
// to the topics block. Those lines are never stored.
var consentLine = regexp.MustCompile(`(?i)(nõustun|annan nõusoleku|kinnitan,|I (agree|consent|confirm))`)

// Databases names the three fixed containers; per-service project containers
// come from the catalog.
type Databases struct {
	Main    string
	Related string
	People  string
}

// RegistryClient is the slice of the business-registry client the engine
// needs. *registry.Client satisfies it; tests substitute a fake.
type RegistryClient interface {
	Exists(ctx context.Context, code string) (bool, error)
	Enrich(ctx context.Context, code string) (registry.Enrichment, error)
	VTARemnant(ctx context.Context, code string) string
}

// Input is one extracted registration ready for reconciliation.
// ReceivedDate is the email's arrival date in ISO form.
type Input struct {
	Record       extract.EmailRecord
	Counts       extract.ServiceCounts
	ReceivedDate string
}

type Engine struct {
	store  recordstore.Store
	reg    RegistryClient
	cat    *catalog.Catalog
	dbs    Databases
	logger *zap.Logger
	tracer trace.Tracer
}

func NewEngine(store recordstore.Store, reg RegistryClient, cat *catalog.Catalog, dbs Databases, logger *zap.Logger) *Engine {
	return &Engine{
		store:  store,
		reg:    reg,
		cat:    cat,
		dbs:    dbs,
		logger: logger,
		tracer: otel.Tracer("reconcile"),
	}
}

// ForeignOrigin reports whether a stated origin places the company outside
// Estonia. An empty origin counts as domestic.
func ForeignOrigin(origin string) bool {
	o := strings.ToLower(strings.TrimSpace(origin))
	if o == "" {
		return false
	}
	return !strings.Contains(o, "eesti") && !strings.Contains(o, "estonia")
}

// Process runs the full reconciliation for one registration and returns the
// terminal outcomes: one per container written to, plus one failure outcome
// per step or unit that could not complete. Validation failures stop before
// anything is written.
func (e *Engine) Process(ctx context.Context, in Input) []Outcome {
	ctx, span := e.tracer.Start(ctx, "reconcile.process")
	defer span.End()

	r := &run{
		engine:  e,
		in:      in,
		company: company.Canonical(in.Record.CompanyName),
		code:    strings.TrimSpace(in.Record.RegistryCode),
		foreign: ForeignOrigin(in.Record.CompanyOrigin),
	}
	r.log = e.logger.With(
		zap.String("registry_code", r.code),
		zap.String("company", r.company))
	span.SetAttributes(
		attribute.String("registry_code", r.code),
		attribute.Bool("foreign", r.foreign))

	if r.foreign {
		r.log.Info("foreign origin stated, registry validation skipped",
			zap.String("origin", in.Record.CompanyOrigin))
	} else {
		if !numericCode.MatchString(r.code) {
			return r.fail(ctx, e.dbs.Main,
				fmt.Errorf("registry code %q is missing or not numeric", in.Record.RegistryCode))
		}
		ok, err := e.reg.Exists(ctx, r.code)
		if err != nil {
			return r.fail(ctx, e.dbs.Main, err)
		}
		if !ok {
			return r.fail(ctx, e.dbs.Main,
				fmt.Errorf("registry code %s not found in the business registry", r.code))
		}
	}

	companyID, err := r.resolveCompany(ctx)
	if err != nil {
		return r.fail(ctx, e.dbs.Related, err)
	}

	contactID := r.resolveContact(ctx, companyID)

	mainID, err := r.resolveMain(ctx, companyID, contactID)
	if err != nil {
		return r.fail(ctx, e.dbs.Main, err)
	}

	for _, svc := range e.cat.Services() {
		if r.in.Counts[svc.ID] <= 0 || svc.DatabaseID == "" {
			continue
		}
		r.createServiceUnits(ctx, svc, r.in.Counts[svc.ID], companyID, contactID, mainID)
	}
	return r.outcomes
}

// run is the per-registration state: the canonical name, cached enrichment
// and VTA results, and the outcomes accumulated so far.
type run struct {
	engine  *Engine
	in      Input
	company string
	code    string
	foreign bool
	log     *zap.Logger

	enriched bool
	enr      registry.Enrichment

	vtaDone bool
	vta     string

	outcomes []Outcome
}

func (r *run) failure(ctx context.Context, dbID string, err error) {
	r.log.Error("reconciliation step failed", zap.Error(err))
	trace.SpanFromContext(ctx).RecordError(err)
	o := newOutcome(StatusFailure, dbID, r.engine.databaseName(ctx, dbID), r.in, r.company)
	o.Err = err.Error()
	r.outcomes = append(r.outcomes, o)
}

// fail records a terminal failure and returns everything accumulated so far.
func (r *run) fail(ctx context.Context, dbID string, err error) []Outcome {
	r.failure(ctx, dbID, err)
	return r.outcomes
}

func (r *run) succeed(ctx context.Context, dbID string, urls []string) {
	o := newOutcome(StatusSuccess, dbID, r.engine.databaseName(ctx, dbID), r.in, r.company)
	o.URLs = urls
	r.outcomes = append(r.outcomes, o)
}

func (e *Engine) databaseName(ctx context.Context, dbID string) string {
	s, err := e.store.Schema(ctx, dbID)
	if err != nil || s.Name == "" {
		return dbID
	}
	return s.Name
}

// ensureEnrichment scrapes the registry detail page once per registration.
// A domestic scrape that yields nothing at all is a validation failure, not a
// license to create an empty company record. Foreign companies are never
// scraped.
func (r *run) ensureEnrichment(ctx context.Context) (registry.Enrichment, error) {
	if r.foreign || r.enriched {
		return r.enr, nil
	}
	enr, err := r.engine.reg.Enrich(ctx, r.code)
	if err != nil {
		return registry.Enrichment{}, err
	}
	if enr.Empty() {
		return registry.Enrichment{}, fmt.Errorf("registry page for %s yielded no company details", r.code)
	}
	r.enr = enr
	r.enriched = true
	return r.enr, nil
}

// vtaText resolves the compliance text once per registration. Foreign
// companies get the not-applicable marker without a network call.
func (r *run) vtaText(ctx context.Context) string {
	if !r.vtaDone {
		if r.foreign {
			r.vta = registry.VTANotApplicable
		} else {
			r.vta = r.engine.reg.VTARemnant(ctx, r.code)
		}
		r.vtaDone = true
	}
	return r.vta
}

func (r *run) resolveCompany(ctx context.Context) (string, error) {
	e := r.engine
	schema, err := e.store.Schema(ctx, e.dbs.Related)
	if err != nil {
		return "", err
	}
	codeProp, ok := schema.Resolve(propRegistryCode)
	if !ok {
		return "", fmt.Errorf("property %q not found in the company container", propRegistryCode)
	}

	existing, err := r.findByCode(ctx, e.dbs.Related, codeProp)
	if err != nil {
		return "", err
	}
	if existing != nil {
		r.log.Info("company record exists", zap.String("page_id", existing.ID))
		return existing.ID, nil
	}

	enr, err := r.ensureEnrichment(ctx)
	if err != nil {
		return "", err
	}

	titleProp, ok := schema.Resolve(propCompanyTitle)
	if !ok {
		return "", fmt.Errorf("property %q not found in the company container", propCompanyTitle)
	}

	props := recordstore.Properties{titleProp: recordstore.Title(r.company)}
	setCode(props, schema, codeProp, r.code)
	setIfPresent(props, schema, propOrigin, recordstore.Text(strings.TrimSpace(r.in.Record.CompanyOrigin)))
	setIfPresent(props, schema, propIndustry, recordstore.Text(r.in.Record.Industry))
	setIfPresent(props, schema, propCounty, recordstore.Select(enr.County))
	setIfPresent(props, schema, propActivity, recordstore.Text(enr.PrimaryActivity))
	setIfPresent(props, schema, propActivityCode, recordstore.Text(enr.ActivityCode))
	setIfPresent(props, schema, propEmployees, recordstore.Text(enr.EmployeeCount))

	page, err := e.store.Create(ctx, e.dbs.Related, props)
	if err != nil {
		return "", err
	}
	r.log.Info("company record created", zap.String("page_id", page.ID))
	return page.ID, nil
}

// resolveContact finds or creates the participant's contact record and makes
// sure its organisation relation includes the company. Contact problems are
// logged and swallowed: a registration must not fail because of its contact
// person.
func (r *run) resolveContact(ctx context.Context, companyID string) string {
	e := r.engine
	name := strings.TrimSpace(r.in.Record.ParticipantName)
	if name == "" || e.dbs.People == "" {
		return ""
	}

	schema, err := e.store.Schema(ctx, e.dbs.People)
	if err != nil {
		r.log.Warn("contact container schema unavailable", zap.Error(err))
		return ""
	}
	nameProp, ok := schema.Resolve(propPersonName)
	if !ok {
		r.log.Warn("contact container has no name property")
		return ""
	}

	existing, err := e.store.FindByTitle(ctx, e.dbs.People, nameProp, name)
	if err != nil {
		r.log.Warn("contact lookup failed", zap.Error(err))
		return ""
	}

	if existing != nil {
		orgProp, ok := schema.Resolve(propOrganisation)
		if !ok {
			return existing.ID
		}
		rels := existing.Relations(orgProp)
		for _, id := range rels {
			if id == companyID {
				return existing.ID
			}
		}
		// Append, never replace: the person may represent several
		// companies.
		_, err := e.store.Update(ctx, existing.ID, recordstore.Properties{
			orgProp: recordstore.Relation(append(rels, companyID)...),
		})
		if err != nil {
			r.log.Warn("contact organisation update failed", zap.Error(err))
		}
		return existing.ID
	}

	props := recordstore.Properties{nameProp: recordstore.Title(name)}
	setIfPresent(props, schema, propEmail, recordstore.Email(r.in.Record.EmailAddress))
	setIfPresent(props, schema, propPhone, recordstore.Phone(r.in.Record.PhoneNumber))
	setIfPresent(props, schema, propOrganisation, recordstore.Relation(companyID))

	page, err := e.store.Create(ctx, e.dbs.People, props)
	if err != nil {
		r.log.Warn("contact create failed", zap.Error(err))
		return ""
	}
	r.log.Info("contact record created", zap.String("page_id", page.ID))
	return page.ID
}

func (r *run) resolveMain(ctx context.Context, companyID, contactID string) (string, error) {
	e := r.engine
	schema, err := e.store.Schema(ctx, e.dbs.Main)
	if err != nil {
		return "", err
	}
	codeProp, ok := schema.Resolve(propRegistryCode)
	if !ok {
		return "", fmt.Errorf("property %q not found in the main container", propRegistryCode)
	}

	existing, err := r.findByCode(ctx, e.dbs.Main, codeProp)
	if err != nil {
		return "", err
	}
	if existing != nil {
		r.log.Info("main record exists, creation skipped", zap.String("page_id", existing.ID))
		return existing.ID, nil
	}

	titleProp, ok := schema.Resolve(propProject)
	if !ok {
		return "", fmt.Errorf("property %q not found in the main container", propProject)
	}

	var enr registry.Enrichment
	if !r.foreign {
		if enr, err = r.ensureEnrichment(ctx); err != nil {
			return "", err
		}
	}

	base := r.company + " " + helpDeskLabel
	prior, err := e.store.CountByTitle(ctx, e.dbs.Main, titleProp, base)
	if err != nil {
		return "", err
	}
	title := base
	if prior > 0 {
		title = fmt.Sprintf("%s %d", base, prior+1)
	}

	props := recordstore.Properties{titleProp: recordstore.Title(title)}
	setCode(props, schema, codeProp, r.code)
	setIfPresent(props, schema, propIndustry, recordstore.Text(r.in.Record.Industry))
	setIfPresent(props, schema, propRegDate, recordstore.Date(r.in.ReceivedDate))
	setIfPresent(props, schema, propServiceTag, recordstore.Select(helpDeskTag))
	setIfPresent(props, schema, propVTA, recordstore.Text(r.vtaText(ctx)))
	setIfPresent(props, schema, propCompanyRel, recordstore.Relation(companyID))
	if contactID != "" {
		setIfPresent(props, schema, propContactRel, recordstore.Relation(contactID))
	}
	if !r.foreign {
		setIfPresent(props, schema, propLocation, recordstore.Select(enr.County))
	}
	if notes := topicNotes(r.in.Record.TopicNotes); notes != "" {
		setIfPresent(props, schema, propTopics, recordstore.Text(notes))
	}
	if r.in.Counts.Any() {
		if seqProp, ok := schema.Resolve(propSeq); ok {
			max, err := e.store.MaxNumber(ctx, e.dbs.Main, seqProp)
			if err != nil {
				return "", err
			}
			props[seqProp] = recordstore.Number(float64(max + 1))
		}
	}

	page, err := e.store.Create(ctx, e.dbs.Main, props)
	if err != nil {
		return "", err
	}
	r.log.Info("main record created", zap.String("page_id", page.ID))
	r.succeed(ctx, e.dbs.Main, []string{page.URL})
	return page.ID, nil
}

// createServiceUnits writes count project records for one service. The
// sequence number continues from the company's existing project count in that
// container; units fail independently.
func (r *run) createServiceUnits(ctx context.Context, svc catalog.Service, count int, companyID, contactID, mainID string) {
	e := r.engine
	log := r.log.With(zap.String("service", string(svc.ID)))

	schema, err := e.store.Schema(ctx, svc.DatabaseID)
	if err != nil {
		r.failure(ctx, svc.DatabaseID, err)
		return
	}
	titleProp, ok := schema.Resolve(propProject)
	if !ok {
		r.failure(ctx, svc.DatabaseID,
			fmt.Errorf("property %q not found in the %s container", propProject, svc.NameET))
		return
	}
	companyProp, ok := schema.Resolve(propCompanyRel)
	if !ok {
		r.failure(ctx, svc.DatabaseID,
			fmt.Errorf("property %q not found in the %s container", propCompanyRel, svc.NameET))
		return
	}

	prior, err := e.store.CountByRelation(ctx, svc.DatabaseID, companyProp, companyID)
	if err != nil {
		r.failure(ctx, svc.DatabaseID, err)
		return
	}

	var urls []string
	for i := 0; i < count; i++ {
		seq := prior + i + 1
		props := recordstore.Properties{
			titleProp:   recordstore.Title(svc.ProjectTitle(r.company, seq)),
			companyProp: recordstore.Relation(companyID),
		}
		setIfPresent(props, schema, svc.MainRelationProperty, recordstore.Relation(mainID))
		setIfPresent(props, schema, propVTA, recordstore.Text(r.vtaText(ctx)))
		setIfPresent(props, schema, propRegDate, recordstore.Date(r.in.ReceivedDate))
		if contactID != "" {
			setIfPresent(props, schema, propContactRel, recordstore.Relation(contactID))
		}
		if seqProp, ok := schema.Resolve(propSeq); ok {
			props[seqProp] = recordstore.Number(float64(seq))
		}

		page, err := e.store.Create(ctx, svc.DatabaseID, props)
		if err != nil {
			log.Error("project unit create failed", zap.Int("unit", seq), zap.Error(err))
			r.failure(ctx, svc.DatabaseID,
				fmt.Errorf("create %s unit %d: %w", svc.NameET, seq, err))
			continue
		}
		urls = append(urls, page.URL)
	}
	if len(urls) > 0 {
		log.Info("project records created", zap.Int("count", len(urls)))
		r.succeed(ctx, svc.DatabaseID, urls)
	}
}

// findByCode looks the registration up by registry code. An empty code (a
// foreign company without one) never matches anything.
func (r *run) findByCode(ctx context.Context, dbID, property string) (*recordstore.Page, error) {
	if r.code == "" {
		return nil, nil
	}
	return r.engine.store.FindByRegistryCode(ctx, dbID, property, r.code)
}

// setCode writes the registry code in the shape the container expects.
// Rollup-typed code properties are computed by the store and never written.
func setCode(props recordstore.Properties, schema *recordstore.Schema, actual, code string) {
	if code == "" {
		return
	}
	switch schema.TypeOf(actual) {
	case recordstore.TypeNumber:
		if n, err := strconv.ParseFloat(code, 64); err == nil {
			props[actual] = recordstore.Number(n)
		}
	case recordstore.TypeRollup:
	default:
		props[actual] = recordstore.Text(code)
	}
}

// setIfPresent writes a value only when the container actually has the
// property and the value is non-empty. Schema drift in optional properties
// must not fail a create.
func setIfPresent(props recordstore.Properties, schema *recordstore.Schema, name string, v recordstore.Value) {
	if name == "" {
		return
	}
	switch v.Kind {
	case recordstore.KindRelation:
		if len(v.Relation) == 0 {
			return
		}
	case recordstore.KindNumber:
	default:
		if strings.TrimSpace(v.Text) == "" {
			return
		}
	}
	if actual, ok := schema.Resolve(name); ok {
		props[actual] = v
	}
}

// topicNotes strips consent boilerplate from the topics block, line by line.
func topicNotes(notes string) string {
	var kept []string
	for _, line := range strings.Split(notes, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || consentLine.MatchString(line) {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}
