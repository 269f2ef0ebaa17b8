package domain_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/notifyhub/activity-reminders/internal/domain"
)

func TestSubmitActivityLogRequest_Validate(t *testing.T) {
	valid := domain.SubmitActivityLogRequest{
		FacilitatorID: "fac-1",
		AllocationID:  "alloc-1",
		WeekNumber:    5,
	}

	t.Run("valid request passes", func(t *testing.T) {
		if err := valid.Validate(); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
	})

	t.Run("empty facilitator", func(t *testing.T) {
		r := valid
		r.FacilitatorID = ""
		if err := r.Validate(); err != domain.ErrInvalidFacilitator {
			t.Fatalf("expected ErrInvalidFacilitator, got %v", err)
		}
	})

	t.Run("empty allocation", func(t *testing.T) {
		r := valid
		r.AllocationID = ""
		if err := r.Validate(); err != domain.ErrInvalidAllocation {
			t.Fatalf("expected ErrInvalidAllocation, got %v", err)
		}
	})

	t.Run("week bounds", func(t *testing.T) {
		for _, tc := range []struct {
			week int
			ok   bool
		}{
			{0, false}, {1, true}, {52, true}, {53, false}, {-3, false},
		} {
			r := valid
			r.WeekNumber = tc.week
			err := r.Validate()
			if tc.ok && err != nil {
				t.Fatalf("week %d: expected no error, got %v", tc.week, err)
			}
			if !tc.ok && err != domain.ErrInvalidWeek {
				t.Fatalf("week %d: expected ErrInvalidWeek, got %v", tc.week, err)
			}
		}
	})
}

func TestJob_Exhausted(t *testing.T) {
	j := domain.Job{MaxAttempts: 3}
	for attempts, want := range []bool{false, false, false, true, true} {
		j.Attempts = attempts
		if got := j.Exhausted(); got != want {
			t.Fatalf("attempts=%d: expected exhausted=%v, got %v", attempts, want, got)
		}
	}
}

func TestJob_Decode(t *testing.T) {
	t.Run("decodes payload", func(t *testing.T) {
		j := domain.Job{Payload: json.RawMessage(`{"weekNumber":7}`)}
		var p domain.ReminderScanPayload
		if err := j.Decode(&p); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if p.WeekNumber != 7 {
			t.Fatalf("expected week 7, got %d", p.WeekNumber)
		}
	})

	t.Run("malformed payload is ErrInvalidPayload", func(t *testing.T) {
		j := domain.Job{ID: "j1", Kind: domain.KindCheckMissingSubmissions, Payload: json.RawMessage(`{"weekNumber":`)}
		var p domain.ReminderScanPayload
		if err := j.Decode(&p); !errors.Is(err, domain.ErrInvalidPayload) {
			t.Fatalf("expected ErrInvalidPayload, got %v", err)
		}
	})
}

func TestNotificationType_IsValid(t *testing.T) {
	for _, nt := range []domain.NotificationType{domain.TypeActivityLogSubmitted, domain.TypeMissingSubmissionReminder} {
		if !nt.IsValid() {
			t.Fatalf("type %q: expected valid", nt)
		}
	}
	if domain.NotificationType("digest").IsValid() {
		t.Fatal("expected unknown type to be invalid")
	}
}
