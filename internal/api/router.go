package api

import (
	"net/http"
	"oj_workbench/internal/api/handler"
	"oj_workbench/internal/api/middleware"
	"oj_workbench/internal/app/service"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

func NewRouter(
	submissionService *service.SubmissionService,
	draftService *service.DraftService,
	sessionManager *service.SessionManager,
) http.Handler {
	r := chi.NewRouter()

	// Base Middlewares
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger) // Chi's logger
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(60 * time.Second))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	r.Route("/api/v1", func(v1 chi.Router) {
		v1.Use(middleware.Identity)

		v1.Route("/languages", handler.NewLanguageHandler().RegisterRoutes)
		v1.Route("/submissions", handler.NewSubmissionHandler(submissionService).RegisterRoutes)
		v1.Route("/sessions", handler.NewSessionHandler(sessionManager).RegisterRoutes)
		v1.Route("/drafts", handler.NewDraftHandler(draftService).RegisterRoutes)
	})

	return r
}
