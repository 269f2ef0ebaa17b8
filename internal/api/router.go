package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/notifyhub/activity-reminders/internal/api/handler"
	apimw "github.com/notifyhub/activity-reminders/internal/api/middleware"
	"github.com/notifyhub/activity-reminders/internal/queue"
	"github.com/notifyhub/activity-reminders/internal/service"
	"github.com/notifyhub/activity-reminders/internal/store"
)

// Deps are the components the HTTP surface reads from.
type Deps struct {
	Submissions   *service.SubmissionService
	Notifications *service.NotificationService
	Buffer        *queue.Buffer
	Jobs          queue.Store
	Store         store.NotificationStore
	HealthChecks  map[string]handler.Check
	Gatherer      prometheus.Gatherer
}

// NewRouter wires the chi router, attaches all middleware, and registers
// every route. It is the single source of truth for the HTTP surface area.
func NewRouter(d Deps, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// --- global middleware (applied to every route) ---
	r.Use(chimw.Recoverer)          // recover panics, return 500
	r.Use(chimw.RealIP)             // trust X-Forwarded-For / X-Real-IP
	r.Use(chimw.RequestSize(1<<20)) // 1 MB max request body
	r.Use(apimw.CorrelationID)      // X-Correlation-ID inject / echo
	r.Use(apimw.RequestLogger(logger))

	// --- handler instances ---
	ah := handler.NewActivityHandler(d.Submissions, logger)
	nh := handler.NewNotificationHandler(d.Notifications, logger)
	rh := handler.NewReminderHandler(d.Notifications, logger)
	mh := handler.NewMetricsHandler(d.Buffer, d.Jobs, d.Store)
	hh := handler.NewHealthHandler(d.HealthChecks)

	// --- routes ---
	r.Get("/health", hh.Health)

	// Raw Prometheus scrape endpoint (for Prometheus server / Grafana)
	r.Handle("/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/activity-logs", ah.Submit)

		r.Get("/notifications", nh.List)
		r.Patch("/notifications/{id}/read", nh.MarkRead)

		r.Post("/reminders/scan", rh.Scan)

		// JSON metrics snapshot
		r.Get("/metrics", mh.GetMetrics)
	})

	return r
}
