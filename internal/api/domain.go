package api

import (
	"github.com/cloudwise/docuproc/internal/config"
	"github.com/cloudwise/docuproc/internal/documents"
	"github.com/cloudwise/docuproc/internal/infrastructure"
	"github.com/cloudwise/docuproc/internal/reference"
	"github.com/cloudwise/docuproc/internal/results"
	"github.com/cloudwise/docuproc/internal/tasks"
)

// Domain holds all domain systems that comprise the service. The API module
// and the pipeline share these instances.
type Domain struct {
	Documents documents.System
	Reference reference.System
	Results   results.System
	Tasks     tasks.System
}

// NewDomain creates all domain systems from infrastructure.
func NewDomain(cfg *config.Config, infra *infrastructure.Infrastructure) *Domain {
	db := infra.Database.Connection()

	return &Domain{
		Documents: documents.New(db, infra.Storage, infra.Logger, cfg.API.Pagination),
		Reference: reference.New(db, infra.Logger, cfg.API.Pagination),
		Results:   results.New(db, infra.Logger),
		Tasks:     tasks.New(db, infra.Logger),
	}
}
