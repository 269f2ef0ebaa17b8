package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	apimw "github.com/notifyhub/activity-reminders/internal/api/middleware"
	"github.com/notifyhub/activity-reminders/internal/domain"
	"github.com/notifyhub/activity-reminders/internal/service"
)

// ActivityHandler accepts facilitator activity log submissions.
type ActivityHandler struct {
	svc    *service.SubmissionService
	logger *zap.Logger
}

func NewActivityHandler(svc *service.SubmissionService, logger *zap.Logger) *ActivityHandler {
	return &ActivityHandler{svc: svc, logger: logger}
}

type submitResponse struct {
	Record *domain.ActivityRecord `json:"record"`
	JobID  string                 `json:"jobId,omitempty"`
}

// Submit handles POST /api/v1/activity-logs
//
// @Summary     Submit a weekly activity log
// @Tags        activity-logs
// @Accept      json
// @Produce     json
// @Param       body  body      domain.SubmitActivityLogRequest  true  "Submission"
// @Success     201   {object}  map[string]any
// @Failure     403   {object}  map[string]string
// @Failure     409   {object}  map[string]string
// @Failure     422   {object}  map[string]string
// @Failure     503   {object}  map[string]any  "Saved, but the notification was not queued"
// @Router      /api/v1/activity-logs [post]
func (h *ActivityHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req domain.SubmitActivityLogRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	rec, job, err := h.svc.Submit(r.Context(), req)
	if err != nil {
		h.logger.Warn("submit activity log failed",
			zap.String("correlation_id", apimw.GetCorrelationID(r.Context())),
			zap.Error(err),
		)
		if rec != nil && errors.Is(err, domain.ErrQueueUnavailable) {
			respondJSON(w, http.StatusServiceUnavailable, map[string]any{
				"status":  statusError,
				"message": "activity log saved but the notification could not be queued",
				"data":    submitResponse{Record: rec},
			})
			return
		}
		mapError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]any{
		"status": statusSuccess,
		"data":   submitResponse{Record: rec, JobID: job.ID},
	})
}
