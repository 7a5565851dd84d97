package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/pmonetwork/pmo-network/internal/auth"
	"github.com/pmonetwork/pmo-network/internal/domain"
	"github.com/pmonetwork/pmo-network/internal/pkg/httputil"
)

// SetupRoutes configures all routes. corsOrigins lists the web app origins
// allowed to send credentialed requests.
func SetupRoutes(h *Handlers, health *HealthChecker, corsOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(withClientIP)

	if len(corsOrigins) == 0 {
		corsOrigins = []string{"http://localhost:5173", "http://localhost:3000"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		httputil.NotFound(w, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		httputil.Error(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	// Health checks and docs (no auth required)
	if health != nil {
		r.Get("/health", health.HandleHealth)
		r.Get("/health/live", health.HandleLiveness)
		r.Get("/health/ready", health.HandleReadiness)
	}
	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))

	if h.google != nil {
		r.Get("/auth/google/login", h.GoogleLogin)
		r.Get("/auth/google/callback", h.GoogleCallback)
	}

	requireAuth := h.sessions.RequireAuth
	candidateOnly := auth.RequireRole(domain.RoleCandidate)
	employerOnly := auth.RequireRole(domain.RoleEmployer)

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", h.Register)
			r.Post("/login", h.Login)
			r.Post("/logout", h.Logout)
			r.Post("/verify-email", h.VerifyEmail)
			r.Post("/forgot-password", h.ForgotPassword)
			r.Post("/reset-password", h.ResetPassword)
			r.Group(func(r chi.Router) {
				r.Use(requireAuth)
				r.Get("/me", h.Me)
				r.Post("/resend-verification", h.ResendVerification)
				r.Post("/change-password", h.ChangePassword)
			})
		})

		// Public job board
		r.Get("/jobs", h.SearchJobs)
		r.With(h.sessions.Optional).Get("/jobs/{id}", h.GetJob)

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)

			r.With(candidateOnly).Post("/jobs/{id}/apply", h.Apply)

			r.Route("/candidate", func(r chi.Router) {
				r.Use(candidateOnly)
				r.Get("/profile", h.GetCandidateProfile)
				r.Put("/profile", h.UpdateCandidateProfile)
				r.Route("/skills", h.skills().routes)
				r.Route("/education", h.education().routes)
				r.Route("/experience", h.experience().routes)
				r.Route("/certifications", h.certifications().routes)
				r.Get("/applications", h.ListCandidateApplications)
				r.Get("/applications/{id}", h.GetCandidateApplication)
				r.Post("/applications/{id}/withdraw", h.WithdrawApplication)
			})

			r.Route("/employer", func(r chi.Router) {
				r.Use(employerOnly)
				r.Get("/profile", h.GetEmployerProfile)
				r.Put("/profile", h.UpdateEmployerProfile)
				r.Get("/search", h.SearchCandidates)
				r.Get("/candidates/{id}", h.GetCandidate)
				r.Get("/shortlist", h.ListShortlist)
				r.Post("/shortlist", h.AddToShortlist)
				r.Delete("/shortlist/{candidateId}", h.RemoveFromShortlist)
				r.Get("/jobs", h.ListEmployerJobs)
				r.Post("/jobs", h.CreateJob)
				r.Post("/jobs/import", h.ImportJobs)
				r.Get("/jobs/{id}", h.GetEmployerJob)
				r.Put("/jobs/{id}", h.UpdateJob)
				r.Delete("/jobs/{id}", h.DeleteJob)
				r.Post("/jobs/{id}/status", h.SetJobStatus)
				r.Get("/jobs/{id}/applications", h.ListJobApplications)
				r.Get("/applications/{id}", h.GetEmployerApplication)
				r.Put("/applications/{id}/status", h.ChangeApplicationStatus)
				r.Get("/shared-documents", h.ListSharedDocuments)
			})

			r.Route("/documents", func(r chi.Router) {
				r.Post("/", h.UploadDocument)
				r.Get("/", h.ListDocuments)
				r.Get("/{id}", h.GetDocument)
				r.Delete("/{id}", h.DeleteDocument)
				r.Get("/{id}/download", h.DownloadDocument)
				r.Get("/{id}/thumbnail", h.DocumentThumbnail)
				r.Get("/{id}/shares", h.ListDocumentShares)
				r.Post("/{id}/shares", h.ShareDocument)
				r.Delete("/{id}/shares/{shareId}", h.RevokeShare)
			})

			r.Route("/conversations", func(r chi.Router) {
				r.Get("/", h.ListConversations)
				r.Post("/", h.StartConversation)
				r.Get("/{id}/messages", h.ListMessages)
				r.Post("/{id}/messages", h.SendMessage)
				r.Post("/{id}/read", h.MarkConversationRead)
			})
			r.Get("/messages/unread-count", h.UnreadCount)
			r.Get("/activity", h.ListActivity)

			if h.hub != nil {
				r.Get("/events", h.hub.HandleSSE)
			}
		})
	})

	return r
}
