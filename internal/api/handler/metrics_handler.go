package handler

import (
	"net/http"

	"github.com/notifyhub/activity-reminders/internal/queue"
	"github.com/notifyhub/activity-reminders/internal/store"
)

// MetricsHandler serves a human-readable JSON queue snapshot.
// Raw Prometheus metrics (counters, histograms) are available at /metrics
// via promhttp.Handler and are separate from this endpoint.
type MetricsHandler struct {
	buf           *queue.Buffer
	jobs          queue.Store
	notifications store.NotificationStore
}

func NewMetricsHandler(buf *queue.Buffer, jobs queue.Store, notifications store.NotificationStore) *MetricsHandler {
	return &MetricsHandler{buf: buf, jobs: jobs, notifications: notifications}
}

// GetMetrics handles GET /api/v1/metrics
//
// @Summary  Job counts, dispatch buffer depth and store size
// @Tags     metrics
// @Produce  json
// @Success  200  {object}  map[string]any
// @Failure  503  {object}  map[string]string
// @Router   /api/v1/metrics [get]
func (h *MetricsHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	counts, err := h.jobs.Counts(r.Context())
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, "job store unavailable")
		return
	}
	size, err := h.notifications.Len(r.Context())
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, "notification store unavailable")
		return
	}

	total := 0
	for _, n := range counts {
		total += n
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"jobs":                    counts,
		"jobs_total":              total,
		"buffer_depth":            h.buf.Depths(),
		"notification_store_size": size,
	})
}
