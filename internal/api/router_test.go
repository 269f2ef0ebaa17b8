package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/notifyhub/activity-reminders/internal/api"
	"github.com/notifyhub/activity-reminders/internal/api/handler"
	"github.com/notifyhub/activity-reminders/internal/domain"
	"github.com/notifyhub/activity-reminders/internal/metrics"
	"github.com/notifyhub/activity-reminders/internal/queue"
	"github.com/notifyhub/activity-reminders/internal/repository"
	"github.com/notifyhub/activity-reminders/internal/service"
	"github.com/notifyhub/activity-reminders/internal/store"
	"github.com/notifyhub/activity-reminders/internal/week"
)

// Tuesday of week 5, 2025.
var now = time.Date(2025, time.February, 4, 12, 0, 0, 0, time.UTC)

type env struct {
	handler       http.Handler
	jobs          *queue.MemoryStore
	notifications *store.Memory
	healthErr     error
}

func newEnv(t *testing.T) *env {
	t.Helper()
	repo := repository.NewMockCourseRepository()
	repo.AddFacilitator(&domain.Facilitator{ID: "fac-1", FirstName: "Ada", LastName: "Lovelace"})
	repo.AddCourseOffering(&domain.CourseOffering{ID: "alloc-1", FacilitatorID: "fac-1", ModuleCode: "CS101", ModuleName: "Intro", Active: true})

	e := &env{
		jobs:          queue.NewMemoryStore(),
		notifications: store.NewMemory(store.DefaultCapacity),
	}
	clock := func() time.Time { return now }
	q := queue.New(e.jobs, queue.Config{Now: clock}, zap.NewNop())
	calc := week.New(time.UTC)

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	m.TrackStoreSize(e.notifications.Len)

	e.handler = api.NewRouter(api.Deps{
		Submissions:   service.NewSubmissionService(repo, q, calc, clock, zap.NewNop()),
		Notifications: service.NewNotificationService(e.notifications, q, calc, clock, zap.NewNop()),
		Buffer:        queue.NewBuffer(map[domain.JobKind]int{domain.KindProcessNotification: 4}),
		Jobs:          e.jobs,
		Store:         e.notifications,
		HealthChecks: map[string]handler.Check{
			"postgres": func(context.Context) error { return e.healthErr },
		},
		Gatherer: reg,
	}, zap.NewNop())
	return e
}

func (e *env) do(t *testing.T, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)

	var out map[string]any
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
			t.Fatalf("decode response: %v (%s)", err, rec.Body.String())
		}
	}
	return rec, out
}

const validBody = `{"facilitatorId":"fac-1","allocationId":"alloc-1","weekNumber":5,"notes":"lab 2"}`

func TestSubmitActivityLog(t *testing.T) {
	e := newEnv(t)

	rec, body := e.do(t, http.MethodPost, "/api/v1/activity-logs", validBody)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	data := body["data"].(map[string]any)
	if data["jobId"] == "" || data["jobId"] == nil {
		t.Fatal("expected a job id")
	}
	record := data["record"].(map[string]any)
	if record["isLate"] != false || record["weekNumber"] != float64(5) {
		t.Fatalf("unexpected record %v", record)
	}
	if n := len(e.jobs.Jobs(domain.KindProcessNotification)); n != 1 {
		t.Fatalf("expected 1 job, got %d", n)
	}

	rec, body = e.do(t, http.MethodPost, "/api/v1/activity-logs", validBody)
	if rec.Code != http.StatusConflict || body["status"] != "error" {
		t.Fatalf("expected 409 error, got %d: %v", rec.Code, body)
	}
}

func TestSubmitActivityLog_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want int
	}{
		{"malformed json", `{"facilitatorId":`, http.StatusBadRequest},
		{"week out of range", `{"facilitatorId":"fac-1","allocationId":"alloc-1","weekNumber":0}`, http.StatusUnprocessableEntity},
		{"missing allocation", `{"facilitatorId":"fac-1","weekNumber":3}`, http.StatusUnprocessableEntity},
		{"not assigned", `{"facilitatorId":"fac-9","allocationId":"alloc-1","weekNumber":3}`, http.StatusForbidden},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			e := newEnv(t)
			rec, body := e.do(t, http.MethodPost, "/api/v1/activity-logs", tc.body)
			if rec.Code != tc.want {
				t.Fatalf("expected %d, got %d: %s", tc.want, rec.Code, rec.Body.String())
			}
			if body["status"] != "error" || body["message"] == "" {
				t.Fatalf("expected error envelope, got %v", body)
			}
		})
	}
}

func TestSubmitActivityLog_QueueUnavailable(t *testing.T) {
	e := newEnv(t)
	e.jobs.InsertErr = errors.New("connection refused")

	rec, body := e.do(t, http.MethodPost, "/api/v1/activity-logs", validBody)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
	data, ok := body["data"].(map[string]any)
	if !ok || data["record"] == nil {
		t.Fatalf("expected the saved record in the response, got %v", body)
	}
}

func TestListNotifications(t *testing.T) {
	e := newEnv(t)
	for i := 1; i <= 3; i++ {
		if err := e.notifications.Append(context.Background(), &domain.NotificationRecord{ID: fmt.Sprintf("n-%d", i)}); err != nil {
			t.Fatal(err)
		}
	}

	rec, body := e.do(t, http.MethodGet, "/api/v1/notifications", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if body["status"] != "success" || body["count"] != float64(3) {
		t.Fatalf("unexpected envelope %v", body)
	}
	first := body["data"].([]any)[0].(map[string]any)
	if first["id"] != "n-3" {
		t.Fatalf("expected newest first, got %v", first["id"])
	}

	_, body = e.do(t, http.MethodGet, "/api/v1/notifications?limit=1&offset=1", "")
	data := body["data"].([]any)
	if len(data) != 1 || data[0].(map[string]any)["id"] != "n-2" {
		t.Fatalf("unexpected page %v", data)
	}

	for _, q := range []string{"limit=abc", "offset=x", "limit=-1", "offset=-5"} {
		rec, _ := e.do(t, http.MethodGet, "/api/v1/notifications?"+q, "")
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", q, rec.Code)
		}
	}
}

func TestMarkNotificationRead(t *testing.T) {
	e := newEnv(t)
	if err := e.notifications.Append(context.Background(), &domain.NotificationRecord{ID: "n-1"}); err != nil {
		t.Fatal(err)
	}

	for _, id := range []string{"n-1", "n-1", "ghost"} {
		rec, body := e.do(t, http.MethodPatch, "/api/v1/notifications/"+id+"/read", "")
		if rec.Code != http.StatusOK || body["status"] != "success" {
			t.Fatalf("%s: expected 200 success, got %d %v", id, rec.Code, body)
		}
	}

	recs, _ := e.notifications.List(context.Background(), 1, 0)
	if !recs[0].Read {
		t.Fatal("expected n-1 to be read")
	}
}

func TestReminderScan(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantCode int
		wantWeek float64
	}{
		{"no body", "", http.StatusAccepted, 5},
		{"empty object", `{}`, http.StatusAccepted, 5},
		{"explicit week", `{"weekNumber":9}`, http.StatusAccepted, 9},
		{"invalid week", `{"weekNumber":60}`, http.StatusUnprocessableEntity, 0},
		{"malformed", `{"weekNumber":`, http.StatusBadRequest, 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			e := newEnv(t)
			rec, body := e.do(t, http.MethodPost, "/api/v1/reminders/scan", tc.body)
			if rec.Code != tc.wantCode {
				t.Fatalf("expected %d, got %d: %s", tc.wantCode, rec.Code, rec.Body.String())
			}
			if tc.wantCode != http.StatusAccepted {
				return
			}
			data := body["data"].(map[string]any)
			if data["weekNumber"] != tc.wantWeek {
				t.Fatalf("expected week %v, got %v", tc.wantWeek, data["weekNumber"])
			}
			if n := len(e.jobs.Jobs(domain.KindCheckMissingSubmissions)); n != 1 {
				t.Fatalf("expected 1 scan job, got %d", n)
			}
		})
	}
}

func TestMetricsSnapshot(t *testing.T) {
	e := newEnv(t)
	e.do(t, http.MethodPost, "/api/v1/activity-logs", validBody)

	rec, body := e.do(t, http.MethodGet, "/api/v1/metrics", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	jobs := body["jobs"].(map[string]any)
	if jobs["pending"] != float64(1) || body["jobs_total"] != float64(1) {
		t.Fatalf("unexpected job counts %v", body)
	}
	if body["notification_store_size"] != float64(0) {
		t.Fatalf("unexpected store size %v", body["notification_store_size"])
	}
}

func TestPrometheusEndpoint(t *testing.T) {
	e := newEnv(t)
	rec, _ := e.do(t, http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "notification_store_size") {
		t.Fatal("expected notification_store_size in scrape output")
	}
}

func TestHealth(t *testing.T) {
	e := newEnv(t)

	rec, body := e.do(t, http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK || body["status"] != "ok" {
		t.Fatalf("expected ok, got %d %v", rec.Code, body)
	}

	e.healthErr = errors.New("connection refused")
	rec, body = e.do(t, http.MethodGet, "/health", "")
	if rec.Code != http.StatusServiceUnavailable || body["status"] != "degraded" {
		t.Fatalf("expected degraded, got %d %v", rec.Code, body)
	}
	checks := body["checks"].(map[string]any)
	if checks["postgres"] != "connection refused" {
		t.Fatalf("unexpected checks %v", checks)
	}
}

func TestCorrelationIDEchoed(t *testing.T) {
	e := newEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Correlation-ID", "abc-123")
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	if got := rec.Header().Get("X-Correlation-ID"); got != "abc-123" {
		t.Fatalf("expected echoed id, got %q", got)
	}
}
