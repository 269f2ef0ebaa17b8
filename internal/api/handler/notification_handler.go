package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	apimw "github.com/notifyhub/activity-reminders/internal/api/middleware"
	"github.com/notifyhub/activity-reminders/internal/service"
)

const (
	defaultLimit = 20
	maxLimit     = 100
)

// NotificationHandler serves the manager notification feed.
type NotificationHandler struct {
	svc    *service.NotificationService
	logger *zap.Logger
}

func NewNotificationHandler(svc *service.NotificationService, logger *zap.Logger) *NotificationHandler {
	return &NotificationHandler{svc: svc, logger: logger}
}

// List handles GET /api/v1/notifications
//
// @Summary  List manager notifications, newest first
// @Tags     notifications
// @Produce  json
// @Param    limit   query     int  false  "Page size (default 20, max 100)"
// @Param    offset  query     int  false  "Records to skip (default 0)"
// @Success  200     {object}  map[string]any
// @Failure  400     {object}  map[string]string
// @Router   /api/v1/notifications [get]
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, ok := queryInt(r, "limit", defaultLimit)
	if !ok {
		respondError(w, http.StatusBadRequest, "limit must be an integer")
		return
	}
	offset, ok := queryInt(r, "offset", 0)
	if !ok {
		respondError(w, http.StatusBadRequest, "offset must be an integer")
		return
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	notifications, err := h.svc.List(r.Context(), limit, offset)
	if err != nil {
		h.logger.Warn("list notifications failed",
			zap.String("correlation_id", apimw.GetCorrelationID(r.Context())),
			zap.Error(err),
		)
		mapError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"status": statusSuccess,
		"data":   notifications,
		"count":  len(notifications),
	})
}

// MarkRead handles PATCH /api/v1/notifications/{id}/read
//
// @Summary  Mark a notification as read
// @Tags     notifications
// @Param    id   path      string  true  "Notification id"
// @Success  200  {object}  map[string]string
// @Router   /api/v1/notifications/{id}/read [patch]
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.svc.MarkRead(r.Context(), id); err != nil {
		h.logger.Warn("mark notification read failed", zap.String("id", id), zap.Error(err))
		mapError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  statusSuccess,
		"message": "Notification marked as read",
	})
}

// queryInt returns def when the parameter is absent and false when it is
// not an integer.
func queryInt(r *http.Request, key string, def int) (int, bool) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def, true
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}
