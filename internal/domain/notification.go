package domain

import "time"

// NotificationType distinguishes the manager-facing messages.
type NotificationType string

const (
	TypeActivityLogSubmitted      NotificationType = "activity_log_submitted"
	TypeMissingSubmissionReminder NotificationType = "missing_submission_reminder"
)

func (t NotificationType) IsValid() bool {
	switch t {
	case TypeActivityLogSubmitted, TypeMissingSubmissionReminder:
		return true
	}
	return false
}

// NotificationPayload is the body of a process-notification job.
type NotificationPayload struct {
	Type          NotificationType `json:"type"`
	FacilitatorID string           `json:"facilitatorId"`
	AllocationID  string           `json:"allocationId"`
	WeekNumber    int              `json:"weekNumber"`
	IsLate        bool             `json:"isLate,omitempty"`
	SubmittedAt   *time.Time       `json:"submittedAt,omitempty"`
}

// ReminderScanPayload is the body of a check-missing-submissions job.
type ReminderScanPayload struct {
	WeekNumber int `json:"weekNumber"`
}

// NotificationRecord is what managers read. Records are only created by the
// notification processor and only mutated by mark-read.
type NotificationRecord struct {
	ID               string           `json:"id"`
	Type             NotificationType `json:"type"`
	Subject          string           `json:"subject"`
	Message          string           `json:"message"`
	FacilitatorID    string           `json:"facilitatorId"`
	FacilitatorName  string           `json:"facilitatorName"`
	FacilitatorEmail string           `json:"facilitatorEmail"`
	CourseCode       string           `json:"courseCode"`
	CourseName       string           `json:"courseName"`
	WeekNumber       int              `json:"weekNumber"`
	IsLate           bool             `json:"isLate"`
	Timestamp        time.Time        `json:"timestamp"`
	Read             bool             `json:"read"`
}
