package notify

import (
	"fmt"

	"github.com/notifyhub/activity-reminders/internal/domain"
)

const lateClause = " This submission was made after the deadline."

// Render builds the subject and message shown to managers.
func Render(p domain.NotificationPayload, f *domain.Facilitator, o *domain.CourseOffering) (subject, message string, err error) {
	course := o.ModuleCode + " - " + o.ModuleName

	switch p.Type {
	case domain.TypeActivityLogSubmitted:
		subject = fmt.Sprintf("Activity Log Submitted - Week %d", p.WeekNumber)
		message = fmt.Sprintf("Facilitator %s has submitted their activity log for %s, Week %d.",
			f.FullName(), course, p.WeekNumber)
		if p.IsLate {
			message += lateClause
		}
	case domain.TypeMissingSubmissionReminder:
		subject = fmt.Sprintf("Missing Activity Log - Week %d", p.WeekNumber)
		message = fmt.Sprintf("Reminder: Facilitator %s has not submitted their activity log for %s, Week %d.",
			f.FullName(), course, p.WeekNumber)
	default:
		return "", "", fmt.Errorf("%w: %q", domain.ErrUnknownNotificationType, p.Type)
	}
	return subject, message, nil
}
