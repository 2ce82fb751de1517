package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/fable-app/fable-api/internal/api"
	apiMiddleware "github.com/fable-app/fable-api/internal/api/middleware"
)

// setupRouter creates and configures the application router with all routes and middleware.
// It accepts the application dependencies to create handlers and register routes.
// Returns the configured router.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	// Apply standard middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.TraceMiddleware)

	authMiddleware := apiMiddleware.NewAuthMiddleware(app.jwtService)
	generationHandler := api.NewGenerationHandler(app.generationSvc)
	taskHandler := api.NewTaskHandler(app.taskManager, app.assetStore)

	// Register routes
	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.Authenticate)

			// Generation create endpoints
			r.Post("/generations/story-illustration", generationHandler.CreateStoryIllustration)
			r.Post("/generations/podcast", generationHandler.CreatePodcast)
			r.Post("/generations/avatar-video", generationHandler.CreateAvatarVideo)

			// Task polling and asset lookup endpoints
			r.Get("/tasks/{task_id}/status", taskHandler.GetTaskStatus)
			r.Get("/tasks/{task_id}/asset", taskHandler.GetTaskAsset)
		})
	})

	// Generated media is served publicly; URLs are unguessable per-task paths.
	fileServer := http.StripPrefix("/media/", http.FileServer(http.Dir(app.mediaStore.Root())))
	r.Get("/media/*", fileServer.ServeHTTP)

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, err := w.Write([]byte("OK"))
		if err != nil {
			app.logger.Error("Failed to write health check response", "error", err)
		}
	})

	return r
}
