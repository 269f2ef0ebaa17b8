package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/notifyhub/activity-reminders/internal/domain"
	"github.com/notifyhub/activity-reminders/internal/service"
)

// ReminderHandler triggers a missing-submission scan outside the daily
// schedule.
type ReminderHandler struct {
	svc    *service.NotificationService
	logger *zap.Logger
}

func NewReminderHandler(svc *service.NotificationService, logger *zap.Logger) *ReminderHandler {
	return &ReminderHandler{svc: svc, logger: logger}
}

type scanRequest struct {
	WeekNumber int `json:"weekNumber"`
}

// Scan handles POST /api/v1/reminders/scan
//
// @Summary  Queue a missing-submission scan
// @Tags     reminders
// @Accept   json
// @Produce  json
// @Param    body  body      scanRequest  false  "Week to scan (default: current week)"
// @Success  202   {object}  map[string]any
// @Failure  422   {object}  map[string]string
// @Failure  503   {object}  map[string]string
// @Router   /api/v1/reminders/scan [post]
func (h *ReminderHandler) Scan(w http.ResponseWriter, r *http.Request) {
	var req scanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	job, err := h.svc.QueueReminderScan(r.Context(), req.WeekNumber)
	if err != nil {
		h.logger.Warn("queue reminder scan failed", zap.Error(err))
		mapError(w, err)
		return
	}

	var payload domain.ReminderScanPayload
	_ = job.Decode(&payload)

	respondJSON(w, http.StatusAccepted, map[string]any{
		"status": statusSuccess,
		"data": map[string]any{
			"jobId":      job.ID,
			"weekNumber": payload.WeekNumber,
		},
	})
}
