package rest

import (
	"net/http"

	"github.com/christmas-fire/nexus-collab/internal/controller/ws"
	"github.com/christmas-fire/nexus-collab/internal/metrics"
	"github.com/christmas-fire/nexus-collab/internal/storage/uploads"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type Handlers struct {
	Auth     *AuthHandler
	Users    *UserHandler
	Projects *ProjectHandler
	Tasks    *TaskHandler
	Messages *MessageHandler
}

// NewRouter wires the HTTP surface: the JSON API under /api, the websocket endpoint,
// uploaded files and metrics.
func NewRouter(h Handlers, tokens TokenParser, hub *ws.Hub, store *uploads.Store) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Route("/api", func(api chi.Router) {
		h.Auth.RegisterPublicRoutes(api)

		api.Group(func(private chi.Router) {
			private.Use(Authenticator(tokens))

			h.Auth.RegisterRoutes(private)
			h.Users.RegisterRoutes(private)
			h.Projects.RegisterRoutes(private)
			h.Tasks.RegisterRoutes(private)
			h.Messages.RegisterRoutes(private)
		})
	})

	if hub != nil {
		r.Get("/ws", func(w http.ResponseWriter, r *http.Request) {
			ws.ServeWs(hub, w, r)
		})
	}

	if store != nil {
		fileServer := http.FileServer(http.Dir(store.Dir()))
		r.Handle(uploads.PublicPrefix+"*", http.StripPrefix(uploads.PublicPrefix, fileServer))
	}

	r.Handle("/metrics", metrics.Handler())

	return r
}
