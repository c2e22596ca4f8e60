package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/Prishatank0607/System-prompt-management-tool/internal/api/handlers"
	"github.com/Prishatank0607/System-prompt-management-tool/internal/api/middleware"
	"github.com/Prishatank0607/System-prompt-management-tool/internal/auth"
	"github.com/Prishatank0607/System-prompt-management-tool/internal/cache"
	"github.com/Prishatank0607/System-prompt-management-tool/internal/prompt"
	"github.com/Prishatank0607/System-prompt-management-tool/internal/relevance"
	"github.com/Prishatank0607/System-prompt-management-tool/internal/webhook"
)

// Deps carries the wired services. DB, Redis, Webhooks and Selector may
// be nil depending on driver and configuration; routes degrade gracefully.
type Deps struct {
	Prompts  prompt.Service
	Auth     *auth.Service
	Webhooks *webhook.Service
	Selector *relevance.Selector
	Live     *cache.LivePrompts
	DB       *pgxpool.Pool
	Redis    *redis.Client
}

type Router struct {
	mux  *chi.Mux
	deps Deps
}

func NewRouter(deps Deps) *Router {
	return &Router{mux: chi.NewRouter(), deps: deps}
}

func (rt *Router) Setup() http.Handler {
	r := rt.mux

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS([]string{"*"}))

	rl := middleware.NewRateLimiter(100, 200)
	r.Use(rl.Limit)

	// Health endpoints (no auth)
	health := handlers.NewHealthHandler(rt.deps.DB, rt.deps.Redis)
	r.Get("/healthz", health.Healthz)
	r.Get("/readyz", health.Readyz)

	authH := handlers.NewAuthHandler(rt.deps.Auth)
	promptH := handlers.NewPromptHandler(rt.deps.Prompts, rt.deps.Live, dispatcher(rt.deps.Webhooks))
	resolveH := handlers.NewResolveHandler(rt.deps.Selector)
	jwtMW := auth.NewMiddleware(rt.deps.Auth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", authH.Register)
			r.Post("/token", authH.Token)
		})

		r.Group(func(r chi.Router) {
			r.Use(jwtMW.Authenticate)

			r.Route("/prompts", func(r chi.Router) {
				r.Post("/", promptH.Create)
				r.Get("/", promptH.Search)
				r.Get("/live", promptH.ListLive)
				r.Get("/search/latest", promptH.SearchLatest)
				r.Post("/resolve", resolveH.Resolve)

				r.Route("/name/{name}", func(r chi.Router) {
					r.Get("/latest", promptH.LatestByName)
					r.Get("/live", promptH.LiveByName)
					r.Get("/versions", promptH.ListVersions)
					r.Get("/version/{version}", promptH.GetByNameVersion)
					r.Post("/version/{version}/activate", promptH.ActivateByNameVersion)
				})

				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", promptH.Get)
					r.Put("/", promptH.Update)
					r.Delete("/", promptH.Delete)
					r.Post("/activate", promptH.Activate)
					r.Post("/create-version", promptH.CreateVersionFrom)
					r.Post("/update-version", promptH.AutoIncrementFrom)
					r.Get("/history", promptH.History)
				})
			})

			if rt.deps.Webhooks != nil {
				webhookH := handlers.NewWebhookHandler(rt.deps.Webhooks)
				r.Route("/webhooks", func(r chi.Router) {
					r.Post("/", webhookH.Create)
					r.Get("/", webhookH.List)
					r.Delete("/{id}", webhookH.Delete)
				})
			}
		})
	})

	return r
}

// dispatcher avoids handing a typed nil to the handler interface field.
func dispatcher(svc *webhook.Service) handlers.EventDispatcher {
	if svc == nil {
		return nil
	}
	return svc
}
