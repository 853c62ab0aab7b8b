package reconcile

import (
	"github.com/google/uuid"

	"github.com/DmitriDerevjanko/email-to-notion-automator/internal/extract"
)

type Status int

const (
	StatusSuccess Status = iota
	StatusFailure
)

// Outcome is a structured terminal event of one reconciliation step batch.
// The engine only emits outcomes; turning them into notifications is the
// dispatcher's job, which keeps transport out of the domain logic.
type Outcome struct {
	ID     string
	Status Status

	// DatabaseID is the most specific container implicated.
	DatabaseID   string
	DatabaseName string

	RegistryCode string
	CompanyName  string
	Record       extract.EmailRecord

	// URLs are the created record links (success only).
	URLs []string

	// Err is the human-readable failure message (failure only).
	Err string
}

func newOutcome(status Status, dbID, dbName string, in Input, companyName string) Outcome {
	return Outcome{
		ID:           uuid.NewString(),
		Status:       status,
		DatabaseID:   dbID,
		DatabaseName: dbName,
		RegistryCode: in.Record.RegistryCode,
		CompanyName:  companyName,
		Record:       in.Record,
	}
}
