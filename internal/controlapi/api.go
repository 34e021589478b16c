// Package controlapi implements the admin REST API of adentity: placement
// CRUD, the rule type catalogue and the context assignment field endpoints.
package controlapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/go-chi/render"

	"github.com/rafaeljc/adentity/internal/adcontext"
	"github.com/rafaeljc/adentity/internal/store"
	"github.com/rafaeljc/adentity/internal/validation"
	"github.com/rafaeljc/adentity/internal/widget"
)

// UpdatePublisher enqueues read model updates for the syncer. cache.Service satisfies it.
type UpdatePublisher interface {
	PublishUpdate(ctx context.Context, key string, version int64) error
}

// PlacementInvalidator drops cached placement data after a write.
type PlacementInvalidator interface {
	Invalidate()
}

// RuleTypeCatalog lists the registered rule types.
type RuleTypeCatalog interface {
	Definitions() []adcontext.Definition
}

// Dependencies are the collaborators every API instance needs.
type Dependencies struct {
	Store      store.Store
	Publisher  UpdatePublisher
	RuleTypes  RuleTypeCatalog
	Widget     *widget.Widget
	Placements PlacementInvalidator
	Logger     *slog.Logger
}

// Options tune authentication and rate limiting.
type Options struct {
	// APIKeyHash is the hex SHA-256 of the accepted API key.
	APIKeyHash string

	// SkipAuth disables authentication. Tests and local development only.
	SkipAuth bool

	// RateLimitPerMinute caps /api/v1 requests per client IP. Zero disables it.
	RateLimitPerMinute int
}

// API holds the dependencies and the router of the control plane.
type API struct {
	// Router is the Chi multiplexer that handles HTTP requests.
	Router *chi.Mux

	store      store.Store
	publisher  UpdatePublisher
	ruleTypes  RuleTypeCatalog
	widget     *widget.Widget
	placements PlacementInvalidator
	logger     *slog.Logger
	opts       Options

	// publishRetryDelay is the first backoff step of notifyCacheAsync.
	publishRetryDelay time.Duration
}

// NewAPI creates an API with authentication enabled.
// Panics if apiKeyHash is empty.
func NewAPI(deps Dependencies, apiKeyHash string) *API {
	return NewAPIWithConfig(deps, Options{APIKeyHash: apiKeyHash})
}

// NewAPIWithConfig creates an API with explicit options.
//
// Panics if any dependency is nil, or if APIKeyHash is empty while
// authentication is enabled.
func NewAPIWithConfig(deps Dependencies, opts Options) *API {
	validation.AssertNotNil(deps.Store, "store")
	validation.AssertNotNil(deps.Publisher, "update publisher")
	validation.AssertNotNil(deps.RuleTypes, "rule type catalog")
	validation.AssertNotNil(deps.Widget, "widget")
	validation.AssertNotNil(deps.Placements, "placement invalidator")
	validation.AssertNotNil(deps.Logger, "logger")

	if !opts.SkipAuth {
		validation.AssertNotEmpty(opts.APIKeyHash, "apiKeyHash")
	}

	api := &API{
		Router:            chi.NewRouter(),
		store:             deps.Store,
		publisher:         deps.Publisher,
		ruleTypes:         deps.RuleTypes,
		widget:            deps.Widget,
		placements:        deps.Placements,
		logger:            deps.Logger,
		opts:              opts,
		publishRetryDelay: 100 * time.Millisecond,
	}

	api.configureRoutes()
	return api
}

func (a *API) configureRoutes() {
	a.Router.Use(middleware.RequestID)
	a.Router.Use(middleware.RealIP)
	a.Router.Use(RequestLogger(a.logger))
	a.Router.Use(middleware.Recoverer)
	a.Router.Use(render.SetContentType(render.ContentTypeJSON))

	a.Router.Get("/health", a.handleHealthCheck)

	a.Router.Route("/api/v1", func(r chi.Router) {
		if a.opts.RateLimitPerMinute > 0 {
			r.Use(httprate.LimitByIP(a.opts.RateLimitPerMinute, time.Minute))
		}
		r.Use(a.authenticateAPIKey)

		r.Get("/rule-types", a.handleListRuleTypes)

		r.Route("/placements", func(r chi.Router) {
			r.Post("/", a.handleCreatePlacement)
			r.Get("/", a.handleListPlacements)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", a.handleGetPlacement)
				r.Patch("/", a.handleUpdatePlacement)
				r.Delete("/", a.handleDeletePlacement)
			})
		})

		r.Route("/fields/{entity_type}/{entity_id}/{field_name}", func(r chi.Router) {
			r.Get("/", a.handleGetField)
			r.Put("/", a.handleSaveField)
			r.Get("/form", a.handleFieldForm)
		})
	})
}

func (a *API) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	render.Status(r, http.StatusOK)
	render.JSON(w, r, map[string]string{"status": "ok"})
}

func (a *API) handleListRuleTypes(w http.ResponseWriter, r *http.Request) {
	render.Status(r, http.StatusOK)
	render.JSON(w, r, map[string]any{"data": a.ruleTypes.Definitions()})
}
