// Package catalog holds the static advisory-service catalog. The catalog is
// built once at startup from configuration and is the single source of truth
// for routing: which record-store container a service writes to, how project
// titles are formed, and which relation property on the main record a project
// must populate.
package catalog

import "fmt"

type ServiceID string

const (
	DigitalMaturity ServiceID = "digital-maturity"
	AIConsultancy   ServiceID = "ai-consultancy"
	PrivateFunding  ServiceID = "funding-private"
	PublicMeasures  ServiceID = "funding-public"
	Robotics        ServiceID = "robotics-consultancy"
	PreAccelerator  ServiceID = "pre-accelerator"
)

// Kind determines the per-service unit cap: advisory services may be
// purchased up to twice, one-shot offerings at most once.
type Kind int

const (
	Advisory Kind = iota
	OneShot
)

type Service struct {
	ID ServiceID

	// NameET is the canonical Estonian display name, used in logs and
	// notification subjects.
	NameET string

	// ProjectLabel is the label segment of generated project titles:
	// "{company} {label} {n}".
	ProjectLabel string

	Kind Kind

	// DatabaseID is the target container for project records. Empty for
	// services that live only as a line on the main record.
	DatabaseID string

	// MainRelationProperty is the property on the project record that must
	// relate back to the main record. Container schemas drift, so this is
	// resolved against the live schema, never compared verbatim.
	MainRelationProperty string
}

func (s Service) MaxUnits() int {
	if s.Kind == OneShot {
		return 1
	}
	return 2
}

// ProjectTitle renders the title for the n-th project unit of a company.
func (s Service) ProjectTitle(companyName string, n int) string {
	return fmt.Sprintf("%s %s %d", companyName, s.ProjectLabel, n)
}

type Catalog struct {
	services []Service
	byID     map[ServiceID]Service
}

func New(services []Service) *Catalog {
	byID := make(map[ServiceID]Service, len(services))
	for _, s := range services {
		byID[s.ID] = s
	}
	return &Catalog{services: services, byID: byID}
}

// Services returns the catalog entries in their configured order.
func (c *Catalog) Services() []Service {
	return c.services
}

func (c *Catalog) Get(id ServiceID) (Service, bool) {
	s, ok := c.byID[id]
	return s, ok
}
