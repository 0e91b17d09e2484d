package bootstrap

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wolfman30/clinic-assistant/internal/api/router"
	"github.com/wolfman30/clinic-assistant/internal/assistant"
	"github.com/wolfman30/clinic-assistant/internal/booking"
	"github.com/wolfman30/clinic-assistant/internal/clinicapi"
	appconfig "github.com/wolfman30/clinic-assistant/internal/config"
	"github.com/wolfman30/clinic-assistant/internal/footer"
	"github.com/wolfman30/clinic-assistant/internal/http/handlers"
	httpmiddleware "github.com/wolfman30/clinic-assistant/internal/http/middleware"
	"github.com/wolfman30/clinic-assistant/internal/kvstore"
	"github.com/wolfman30/clinic-assistant/internal/labsettings"
	"github.com/wolfman30/clinic-assistant/internal/labtemplate"
	"github.com/wolfman30/clinic-assistant/internal/notify"
	"github.com/wolfman30/clinic-assistant/internal/observability/metrics"
	"github.com/wolfman30/clinic-assistant/internal/speech"
	"github.com/wolfman30/clinic-assistant/internal/voice"
	"github.com/wolfman30/clinic-assistant/internal/webchat"
	"github.com/wolfman30/clinic-assistant/pkg/logging"
)

// AppDeps are the runtime resources the assistant is assembled from.
type AppDeps struct {
	Store    kvstore.Store
	Engine   speech.Engine
	Registry *prometheus.Registry
	Logger   *logging.Logger

	// HTTPClient overrides the clinic backend transport.
	HTTPClient *http.Client
}

// App is the assembled assistant.
type App struct {
	Handler     http.Handler
	Coordinator *voice.Coordinator
	Pipeline    *assistant.Pipeline
	Webchat     *webchat.Handler
	Page        *assistant.RecordingPage
}

// BuildApp wires the clinic client, chat pipeline, voice coordinator and HTTP
// surface around one shared store.
func BuildApp(ctx context.Context, cfg *appconfig.Config, deps AppDeps) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	if deps.Store == nil {
		return nil, fmt.Errorf("bootstrap: store is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = logging.Default()
	}

	var m *metrics.AssistantMetrics
	if deps.Registry != nil {
		m = metrics.NewAssistantMetrics(deps.Registry)
	}

	client, err := clinicapi.New(clinicapi.Config{
		BaseURL:    cfg.ClinicAPIBaseURL,
		Timeout:    cfg.ClinicAPITimeout,
		HTTPClient: deps.HTTPClient,
		Logger:     logger,
	})
	if err != nil {
		return nil, fmt.Errorf("bootstrap: clinic client: %w", err)
	}

	history := assistant.NewHistory(deps.Store, cfg.HistoryLimit, logger)
	if saved := history.Load(ctx); len(saved) > 0 {
		logger.Info("previous conversation found", "entries", len(saved))
	}
	page := assistant.NewRecordingPage(logger)
	pipeline := assistant.NewPipeline(client, history, page, assistant.PipelineConfig{
		Page: clinicapi.PageContext{URL: cfg.PageURL, Title: cfg.PageTitle},
	}, m, logger)

	// The coordinator renders into the socket handler, which in turn drives the
	// coordinator, so the view is bound once both exist.
	var sockets *webchat.Handler
	coordinator := voice.New(VoiceConfig(cfg), voice.Deps{
		Engine: deps.Engine,
		View: voice.ViewFunc(func(s voice.Snapshot) {
			if sockets != nil {
				sockets.Render(s)
			}
		}),
		Notifier:    pipeline,
		Submitter:   pipeline,
		Preferences: assistant.NewPreferences(deps.Store),
		Metrics:     m,
		Logger:      logger,
	})
	sockets = webchat.NewHandler(pipeline, coordinator, logger)
	sockets.Attach(history, page)

	var limiter *httpmiddleware.RateLimiter
	if cfg.ChatRateLimit > 0 {
		limiter = httpmiddleware.NewRateLimiter(cfg.ChatRateLimit, cfg.ChatRateBurst)
	}

	routerCfg := &router.Config{
		Logger:             logger,
		Assistant:          handlers.NewAssistantHandler(pipeline, coordinator, logger),
		Footer:             handlers.NewFooterHandler(footer.NewLoader(client, logger)),
		LabSettings:        handlers.NewLabSettingsHandler(labsettings.NewEditor(client, logger), logger),
		LabTemplates:       handlers.NewLabTemplateHandler(labtemplate.NewManager(deps.Store, logger), logger),
		Appointments:       handlers.NewAppointmentsHandler(buildBook(deps.Store, cfg, logger), booking.NewRemote(client, logger), logger),
		Webchat:            sockets.HandleWebSocket,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		ChatLimiter:        limiter,
	}
	if deps.Registry != nil {
		routerCfg.MetricsHandler = promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{})
	}

	return &App{
		Handler:     router.New(routerCfg),
		Coordinator: coordinator,
		Pipeline:    pipeline,
		Webchat:     sockets,
		Page:        page,
	}, nil
}

func buildBook(store kvstore.Store, cfg *appconfig.Config, logger *logging.Logger) *booking.Book {
	var notifiers booking.Notifiers
	if cfg.BookingNotifyPhone != "" {
		notifiers = append(notifiers, booking.NewLogNotifier(cfg.BookingNotifyPhone, logger))
	}
	if sender := notify.NewSendGridSender(notify.SendGridConfig{
		APIKey:    cfg.SendGridAPIKey,
		FromEmail: cfg.SendGridFromEmail,
		FromName:  cfg.SendGridFromName,
	}, logger); sender != nil {
		mailer, err := notify.NewBookingMailer(sender, cfg.BookingNotifyEmail, logger)
		if err != nil {
			logger.Warn("booking email disabled", "error", err)
		} else {
			notifiers = append(notifiers, mailer)
		}
	}
	var notifier booking.Notifier
	if len(notifiers) > 0 {
		notifier = notifiers
	}
	return booking.New(store, notifier, booking.Config{SlotCapacity: cfg.SlotCapacity}, logger)
}

// Tasks returns the background loops the app needs running.
func (a *App) Tasks() []Task {
	return []Task{
		{Name: "voice", Run: a.Coordinator.Run},
		{Name: "pipeline", Run: a.Pipeline.Run},
	}
}
