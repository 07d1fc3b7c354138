package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/atinyakov/ProjectMarket/internal/middleware"
	"github.com/atinyakov/ProjectMarket/internal/models"
)

// Handlers groups the endpoint handlers mounted by NewRouter.
type Handlers struct {
	Auth   *AuthHandler
	Search *SearchHandler
	AI     *AIHandler
	Files  *FileHandler
}

// NewRouter constructs the marketplace API under /api.
//
// Routes:
//
//	POST /api/auth/register          public
//	POST /api/auth/login             public
//	POST /api/auth/logout            bearer
//	POST /api/search/projects        bearer
//	POST /api/ai/suggestions         bearer
//	POST /api/ai/websites            bearer
//	POST /api/ai/improve             bearer
//	POST /api/ai/chat                bearer
//	POST /api/files/upload           bearer, teacher
//	GET  /api/files/submissions      bearer, examiner
//	GET  /api/files/download/{key}   bearer, examiner
//
// JSON routes reject bodies that are not application/json.
func NewRouter(h Handlers, resolver middleware.TokenResolver, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.Recoverer)
	r.Use(middleware.WithRequestLogging(logger))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "Not Found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "Method Not Allowed")
	})

	jsonOnly := chiMiddleware.AllowContentType("application/json")
	auth := middleware.BearerAuth(resolver, logger)

	r.Route("/api", func(r chi.Router) {
		// Public endpoints
		r.With(jsonOnly).Post("/auth/register", h.Auth.Register)
		r.With(jsonOnly).Post("/auth/login", h.Auth.Login)

		// Protected group: requires a live access token
		r.Group(func(r chi.Router) {
			r.Use(auth)

			r.With(jsonOnly).Post("/auth/logout", h.Auth.Logout)
			r.With(jsonOnly).Post("/search/projects", h.Search.Search)

			r.Route("/ai", func(r chi.Router) {
				r.Use(jsonOnly)
				r.Post("/suggestions", h.AI.Suggestions)
				r.Post("/websites", h.AI.Websites)
				r.Post("/improve", h.AI.Improve)
				r.Post("/chat", h.AI.Chat)
			})

			r.Route("/files", func(r chi.Router) {
				r.With(middleware.RequireRole(models.RoleTeacher, "Only teachers can upload files")).
					Post("/upload", h.Files.Upload)
				r.Group(func(r chi.Router) {
					r.Use(middleware.RequireRole(models.RoleExaminer, "Only examiners can view submissions"))
					r.Get("/submissions", h.Files.Submissions)
					r.Get("/download/{key}", h.Files.Download)
				})
			})
		})
	})

	return r
}
