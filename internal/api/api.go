// Package api assembles the API module with all domain systems and route registration.
package api

import (
	"net/http"

	"github.com/cloudwise/docuproc/internal/config"
	"github.com/cloudwise/docuproc/internal/infrastructure"
	"github.com/cloudwise/docuproc/pkg/middleware"
	"github.com/cloudwise/docuproc/pkg/module"
)

// NewModule creates the API module over the given domain systems.
func NewModule(cfg *config.Config, infra *infrastructure.Infrastructure, domain *Domain) (*module.Module, error) {
	runtime := NewRuntime(cfg, infra)

	mux := http.NewServeMux()
	registerRoutes(mux, domain, cfg, runtime)

	m := module.New(cfg.API.BasePath, mux)
	m.Use(middleware.CORS(&cfg.API.CORS))
	m.Use(middleware.Logger(runtime.Infrastructure.Logger))

	return m, nil
}
