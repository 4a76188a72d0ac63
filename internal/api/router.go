package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/isdelr/hbnb-api/internal/api/handlers"
	"github.com/isdelr/hbnb-api/internal/auth"
	"github.com/isdelr/hbnb-api/internal/models"
	"github.com/isdelr/hbnb-api/internal/services"
	"github.com/isdelr/hbnb-api/internal/websocket"
)

// Services bundles the collaborators of the HTTP layer.
type Services struct {
	Entities  services.EntityServiceProvider
	Auth      services.AuthServiceProvider
	Snapshots services.SnapshotServiceProvider
}

// Options tunes the router. A nil Issuer leaves every route open and
// disables login.
type Options struct {
	Issuer      *auth.Issuer
	CORSOrigins []string
}

// children maps a kind to the kind nested under it and the attribute
// pointing back at the parent.
var children = map[models.Kind]struct {
	kind  models.Kind
	field string
}{
	models.KindState: {models.KindCity, "state_id"},
	models.KindCity:  {models.KindPlace, "city_id"},
	models.KindPlace: {models.KindReview, "place_id"},
}

// teardown gives every request its own storage unit of work and ends it once
// the request has been served.
func teardown(svc services.EntityServiceProvider) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			scoped, end := svc.ForRequest()
			defer end()
			next.ServeHTTP(w, r.WithContext(handlers.WithEntities(r.Context(), scoped)))
		})
	}
}

// NewRouter creates and configures a new Chi router.
func NewRouter(hub *websocket.Hub, svc Services, opts Options) *chi.Mux {
	r := chi.NewRouter()

	// Basic middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(teardown(svc.Entities))

	// Set before any Route call so mounted subrouters inherit them.
	r.NotFound(handlers.NotFound)
	r.MethodNotAllowed(handlers.MethodNotAllowed)

	guard := func(next http.Handler) http.Handler { return next }
	if opts.Issuer != nil {
		guard = opts.Issuer.Middleware()
	}

	index := handlers.NewIndexHandler(svc.Entities)
	places := handlers.NewPlaceHandler(svc.Entities)
	wsHandler := handlers.NewWebSocketHandler(hub, opts.CORSOrigins)

	// API versioning
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/status", index.Status)
		r.Get("/stats", index.Stats)
		r.Get("/ws", wsHandler.Serve)
		r.Post("/places_search", places.Search)

		if opts.Issuer != nil && svc.Auth != nil {
			r.Post("/auth/login", handlers.NewAuthHandler(svc.Auth, opts.Issuer).Login)
		}

		if svc.Snapshots != nil {
			snaps := handlers.NewSnapshotHandler(svc.Snapshots)
			r.Route("/snapshots", func(r chi.Router) {
				r.Get("/", snaps.List)
				r.With(guard).Post("/", snaps.Create)
				r.Get("/{name}", snaps.Get)
			})
		}

		for _, kind := range models.Kinds() {
			h := handlers.NewEntityHandler(svc.Entities, kind)
			r.Route("/"+kind.Plural(), func(r chi.Router) {
				r.Get("/", h.List)
				r.With(guard).Post("/", h.Create)
				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", h.Get)
					r.With(guard).Put("/", h.Update)
					r.With(guard).Delete("/", h.Delete)

					if child, ok := children[kind]; ok {
						ch := handlers.NewEntityHandler(svc.Entities, child.kind)
						path := "/" + child.kind.Plural()
						r.Get(path, ch.ListUnder(child.field, kind))
						r.With(guard).Post(path, ch.CreateUnder(child.field, kind))
					}
					if kind == models.KindPlace {
						r.Get("/amenities", places.Amenities)
						r.With(guard).Post("/amenities/{amenity_id}", places.LinkAmenity)
						r.With(guard).Delete("/amenities/{amenity_id}", places.UnlinkAmenity)
					}
				})
			})
		}
	})

	return r
}
