package router

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"socialposts/internal/config"
	handlers "socialposts/internal/handler"
	"socialposts/internal/middleware"
)

// New registers every route and wraps the mux in the middleware chain.
// limiter may be nil when rate limiting is disabled.
func New(h *handlers.Handlers, auth middleware.TokenValidator, limiter middleware.Limiter, cfg *config.Config, log *slog.Logger) http.Handler {
	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		handlers.WriteError(w, "route not found", http.StatusNotFound)
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		handlers.WriteError(w, "method not allowed", http.StatusMethodNotAllowed)
	})

	requireAuth := middleware.Auth(auth)
	protected := func(fn http.HandlerFunc) http.Handler {
		return requireAuth(fn)
	}

	r.HandleFunc("/", handlers.HomeHandler).Methods(http.MethodGet)
	r.HandleFunc("/health", h.HealthHandler).Methods(http.MethodGet)

	// auth
	r.HandleFunc("/api/auth/register", h.Register).Methods(http.MethodPost)
	r.HandleFunc("/api/auth/login", h.Login).Methods(http.MethodPost)
	r.HandleFunc("/api/auth/refresh-token", h.RefreshToken).Methods(http.MethodPost)

	// users
	r.Handle("/api/me", protected(h.GetCurrentUser)).Methods(http.MethodGet)
	r.HandleFunc("/api/users/{id}", h.GetUser).Methods(http.MethodGet)
	r.HandleFunc("/api/users/{id}/posts", h.GetUserPosts).Methods(http.MethodGet)

	// images
	r.HandleFunc("/api/posts/image/id/{id}", h.GetImageByID).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc("/api/posts/image/{filename}", h.GetImageByName).Methods(http.MethodGet, http.MethodHead)

	// posts
	r.HandleFunc("/api/posts", h.GetPosts).Methods(http.MethodGet)
	r.Handle("/api/posts", protected(h.CreatePost)).Methods(http.MethodPost)
	r.HandleFunc("/api/posts/{id}", h.GetPost).Methods(http.MethodGet)
	r.Handle("/api/posts/{id}", protected(h.UpdatePost)).Methods(http.MethodPatch)
	r.Handle("/api/posts/{id}", protected(h.DeletePost)).Methods(http.MethodDelete)

	// workouts
	r.Handle("/api/workouts", protected(h.GetWorkouts)).Methods(http.MethodGet)
	r.Handle("/api/workouts", protected(h.CreateWorkout)).Methods(http.MethodPost)
	r.Handle("/api/workouts/{id}", protected(h.GetWorkout)).Methods(http.MethodGet)
	r.Handle("/api/workouts/{id}", protected(h.UpdateWorkout)).Methods(http.MethodPatch)
	r.Handle("/api/workouts/{id}", protected(h.DeleteWorkout)).Methods(http.MethodDelete)

	chain := []middleware.Middleware{
		middleware.BodyLimit(cfg.MaxUploadSize),
	}
	if limiter != nil {
		chain = append(chain, middleware.RateLimit(limiter, cfg.RateLimit.Window, log))
	}
	chain = append(chain,
		middleware.SecurityHeaders,
		middleware.CORS(cfg.Server),
		middleware.Recovery(log),
		middleware.Logging(log),
		middleware.RequestID,
		middleware.ProxyHeaders(cfg.Server.TrustedProxies),
	)

	return middleware.Chain(r, chain...)
}
