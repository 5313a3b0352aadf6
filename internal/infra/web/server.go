package web

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"pinterest-ai-studio/internal/domain/model"
	"pinterest-ai-studio/internal/usecase"
)

// ArtifactResolver maps a store-relative artifact path to an absolute file
// path for http.ServeFile, rejecting anything outside the store.
type ArtifactResolver interface {
	Resolve(rel string) (string, error)
}

// Server is the dashboard API. Every route except auth sits behind the
// session middleware and a permission-matrix guard.
type Server struct {
	userUC    usecase.UserUseCase
	keyUC     usecase.APIKeyUseCase
	promptUC  usecase.PromptUseCase
	tmplUC    usecase.TemplateUseCase
	jobUC     usecase.JobUseCase
	exportUC  usecase.ExportUseCase
	policy    usecase.PolicyEvaluator
	auth      *AuthManager
	artifacts ArtifactResolver
	timeout   time.Duration
	log       *zerolog.Logger
}

func NewServer(
	userUC usecase.UserUseCase,
	keyUC usecase.APIKeyUseCase,
	promptUC usecase.PromptUseCase,
	tmplUC usecase.TemplateUseCase,
	jobUC usecase.JobUseCase,
	exportUC usecase.ExportUseCase,
	policy usecase.PolicyEvaluator,
	auth *AuthManager,
	artifacts ArtifactResolver,
	timeout time.Duration,
	logger *zerolog.Logger,
) *Server {
	l := logger.With().Str("component", "Web").Logger()
	return &Server{
		userUC:    userUC,
		keyUC:     keyUC,
		promptUC:  promptUC,
		tmplUC:    tmplUC,
		jobUC:     jobUC,
		exportUC:  exportUC,
		policy:    policy,
		auth:      auth,
		artifacts: artifacts,
		timeout:   timeout,
		log:       &l,
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(traceMiddleware)
	r.Use(recoverMiddleware(s.log))
	r.Use(logMiddleware(s.log))
	r.Use(chimw.Timeout(s.timeout))

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", s.handleRegister)
			r.Post("/login", s.handleLogin)
			r.Post("/refresh", s.handleRefresh)
			r.Post("/logout", s.handleLogout)
		})

		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)

			r.Route("/api-keys", func(r chi.Router) {
				r.With(s.requirePermission(model.ModuleAPIKeys, model.ActionView)).Get("/", s.handleListKeys)
				r.With(s.requirePermission(model.ModuleAPIKeys, model.ActionCreate)).Post("/", s.handleCreateKey)
				r.With(s.requirePermission(model.ModuleAPIKeys, model.ActionDelete)).Delete("/{id}", s.handleDeleteKey)
			})

			r.Route("/prompt-templates", func(r chi.Router) {
				r.With(s.requirePermission(model.ModulePrompts, model.ActionView)).Get("/", s.handleListPrompts)
				r.With(s.requirePermission(model.ModulePrompts, model.ActionView)).Get("/{id}", s.handleGetPrompt)
				r.With(s.requirePermission(model.ModulePrompts, model.ActionCreate)).Post("/", s.handleCreatePrompt)
				r.With(s.requirePermission(model.ModulePrompts, model.ActionUpdate)).Put("/{id}", s.handleUpdatePrompt)
				r.With(s.requirePermission(model.ModulePrompts, model.ActionDelete)).Delete("/{id}", s.handleDeletePrompt)
			})

			r.Route("/pin-templates", func(r chi.Router) {
				r.With(s.requirePermission(model.ModulePinTemplates, model.ActionView)).Get("/", s.handleListTemplates)
				r.With(s.requirePermission(model.ModulePinTemplates, model.ActionView)).Get("/{id}", s.handleGetTemplate)
				r.With(s.requirePermission(model.ModulePinTemplates, model.ActionCreate)).Post("/", s.handleCreateTemplate)
				r.With(s.requirePermission(model.ModulePinTemplates, model.ActionUpdate)).Put("/{id}", s.handleUpdateTemplate)
				r.With(s.requirePermission(model.ModulePinTemplates, model.ActionDelete)).Delete("/{id}", s.handleDeleteTemplate)
			})

			r.Route("/jobs", func(r chi.Router) {
				r.With(s.requirePermission(model.ModuleBulkJobs, model.ActionView)).Get("/", s.handleListJobs)
				r.With(s.requirePermission(model.ModuleBulkJobs, model.ActionView)).Get("/{id}", s.handleGetJob)
				r.With(s.requirePermission(model.ModuleBulkJobs, model.ActionExecute)).Post("/", s.handleCreateJob)
				r.With(s.requirePermission(model.ModuleBulkJobs, model.ActionExecute)).Post("/{id}/cancel", s.handleCancelJob)
				r.With(s.requirePermission(model.ModuleBulkJobs, model.ActionDelete)).Delete("/{id}", s.handleDeleteJob)
			})

			r.Route("/exports", func(r chi.Router) {
				r.Use(s.requirePermission(model.ModuleExports, model.ActionView))
				r.Get("/jobs/{id}/zip", s.handleExportZIP)
				r.Get("/jobs/{id}/csv", s.handleExportCSV)
			})

			r.With(s.requirePermission(model.ModuleExports, model.ActionView)).
				Get("/files/*", s.handleServeArtifact)
		})
	})
	return r
}
