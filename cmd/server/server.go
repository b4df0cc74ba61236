package main

import (
	"time"

	"github.com/cloudwise/docuproc/internal/api"
	"github.com/cloudwise/docuproc/internal/config"
	"github.com/cloudwise/docuproc/internal/extraction"
	"github.com/cloudwise/docuproc/internal/infrastructure"
	"github.com/cloudwise/docuproc/internal/matching"
	"github.com/cloudwise/docuproc/internal/notify"
	"github.com/cloudwise/docuproc/internal/pipeline"
)

type Server struct {
	infra    *infrastructure.Infrastructure
	modules  *Modules
	pipeline *pipeline.Pipeline
	http     *httpServer
}

func NewServer(cfg *config.Config) (*Server, error) {
	infra, err := infrastructure.New(cfg)
	if err != nil {
		return nil, err
	}

	domain := api.NewDomain(cfg, infra)

	modules, err := NewModules(infra, domain, cfg)
	if err != nil {
		return nil, err
	}

	notifier, err := notify.New(infra.Logger, cfg.Notify)
	if err != nil {
		return nil, err
	}

	pipe := pipeline.New(
		infra.Database.Connection(),
		domain.Documents,
		domain.Results,
		domain.Tasks,
		infra.Storage,
		extraction.New(infra.Logger),
		matching.New(infra.Logger, domain.Reference, matching.Config{
			AmountEpsilon: cfg.Pipeline.AmountEpsilonDecimal(),
		}),
		notifier,
		cfg.Pipeline,
		cfg.Scoring,
		infra.Logger,
	)

	router := buildRouter(infra)
	modules.Mount(router)

	infra.Logger.Info(
		"server initialized",
		"addr", cfg.Server.Addr(),
		"version", cfg.Version,
	)

	return &Server{
		infra:    infra,
		modules:  modules,
		pipeline: pipe,
		http:     newHTTPServer(&cfg.Server, router, infra.Logger),
	}, nil
}

func (s *Server) Start() error {
	s.infra.Logger.Info("starting service")

	if err := s.infra.Start(); err != nil {
		return err
	}

	if err := s.pipeline.Start(s.infra.Lifecycle); err != nil {
		return err
	}

	if err := s.http.Start(s.infra.Lifecycle); err != nil {
		return err
	}

	go func() {
		s.infra.Lifecycle.WaitForStartup()
		s.infra.Logger.Info("all subsystems ready")
	}()

	return nil
}

func (s *Server) Shutdown(timeout time.Duration) error {
	s.infra.Logger.Info("initiating shutdown")
	return s.infra.Lifecycle.Shutdown(timeout)
}
