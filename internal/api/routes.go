package api

import (
	"net/http"

	"github.com/cloudwise/docuproc/internal/config"
	"github.com/cloudwise/docuproc/internal/documents"
	"github.com/cloudwise/docuproc/internal/reference"
	"github.com/cloudwise/docuproc/pkg/routes"
)

func registerRoutes(
	mux *http.ServeMux,
	domain *Domain,
	cfg *config.Config,
	runtime *Runtime,
) {
	documentsHandler := documents.NewHandler(
		domain.Documents,
		domain.Tasks,
		domain.Results,
		runtime.Logger,
		runtime.Pagination,
		cfg.API.MaxUploadSizeBytes(),
	)

	referenceHandler := reference.NewHandler(
		domain.Reference,
		runtime.Logger,
		runtime.Pagination,
	)

	routes.Register(
		mux,
		documentsHandler.Routes(),
		referenceHandler.Routes(),
	)
}
