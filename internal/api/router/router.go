package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/wolfman30/clinic-assistant/internal/http/handlers"
	httpmiddleware "github.com/wolfman30/clinic-assistant/internal/http/middleware"
	"github.com/wolfman30/clinic-assistant/pkg/logging"
)

// Config holds router configuration. Only Assistant is required; the other
// handlers mount their routes when set.
type Config struct {
	Logger             *logging.Logger
	Assistant          *handlers.AssistantHandler
	Footer             *handlers.FooterHandler
	LabSettings        *handlers.LabSettingsHandler
	LabTemplates       *handlers.LabTemplateHandler
	Appointments       *handlers.AppointmentsHandler
	Webchat            http.HandlerFunc
	MetricsHandler     http.Handler
	CORSAllowedOrigins []string

	// ChatLimiter throttles the routes that reach the chat backend.
	ChatLimiter *httpmiddleware.RateLimiter
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	// The socket needs the raw connection, so it sits outside compression.
	if cfg.Webchat != nil {
		r.Get("/ws", cfg.Webchat)
	}

	r.Group(func(api chi.Router) {
		api.Use(middleware.Compress(5))

		api.Get("/health", cfg.Assistant.Health)
		if cfg.MetricsHandler != nil {
			api.Handle("/metrics", cfg.MetricsHandler)
		}

		api.Get("/state", cfg.Assistant.State)
		api.Post("/panel/toggle", cfg.Assistant.TogglePanel)
		api.Post("/wake-word/toggle", cfg.Assistant.ToggleWakeWord)
		api.Post("/microphone/toggle", cfg.Assistant.ToggleMicrophone)
		api.Get("/history", cfg.Assistant.History)
		api.Get("/quick-commands", cfg.Assistant.QuickCommands)

		api.Group(func(chat chi.Router) {
			if cfg.ChatLimiter != nil {
				chat.Use(cfg.ChatLimiter.Middleware)
			}
			chat.Post("/messages", cfg.Assistant.PostMessage)
			chat.Post("/quick-commands", cfg.Assistant.PostQuickCommand)
			chat.Post("/feedback", cfg.Assistant.PostFeedback)
		})

		if cfg.Footer != nil {
			api.Get("/footer", cfg.Footer.Get)
		}

		if cfg.LabSettings != nil {
			api.Route("/lab-settings", func(r chi.Router) {
				r.Get("/statuses", cfg.LabSettings.List)
				r.Post("/statuses", cfg.LabSettings.Add)
				r.Put("/statuses/{index}", cfg.LabSettings.Rename)
				r.Delete("/statuses/{index}", cfg.LabSettings.Delete)
				r.Put("/clear-status-on-sync", cfg.LabSettings.SetClearStatusOnSync)
			})
		}

		if cfg.LabTemplates != nil {
			api.Route("/lab-templates", func(r chi.Router) {
				r.Get("/", cfg.LabTemplates.List)
				r.Route("/{type}", func(r chi.Router) {
					r.Get("/", cfg.LabTemplates.Get)
					r.Put("/fields/{field}", cfg.LabTemplates.SetField)
					r.Delete("/values", cfg.LabTemplates.Clear)
					r.Post("/sample", cfg.LabTemplates.FillSample)
					r.Get("/export", cfg.LabTemplates.Export)
					r.Post("/import", cfg.LabTemplates.Import)
				})
			})
		}

		if cfg.Appointments != nil {
			api.Route("/appointments", func(r chi.Router) {
				r.Get("/", cfg.Appointments.List)
				r.Post("/", cfg.Appointments.Create)
			})
			api.Get("/services", cfg.Appointments.Services)
			api.Route("/bookings", func(r chi.Router) {
				r.Post("/", cfg.Appointments.Book)
				r.Get("/{id}/prescription", cfg.Appointments.Prescription)
				r.Get("/{id}/ultrasound", cfg.Appointments.Ultrasound)
				r.Post("/{id}/payment", cfg.Appointments.Pay)
			})
		}
	})

	return r
}
