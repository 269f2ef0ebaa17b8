package domain

import "errors"

// Sentinel errors used throughout the application.
// Handlers translate these to HTTP status codes via a single mapError function;
// the queue runtime decides retry vs. terminal failure from them.
var (
	ErrNotFound                = errors.New("not found")
	ErrQueueUnavailable        = errors.New("job queue unavailable")
	ErrReferenceNotFound       = errors.New("referenced facilitator or course offering not found")
	ErrUnknownNotificationType = errors.New("unknown notification type")
	ErrInvalidPayload          = errors.New("invalid job payload")
	ErrInvalidRange            = errors.New("limit and offset must not be negative")
	ErrInvalidWeek             = errors.New("week number must be between 1 and 52")
	ErrInvalidFacilitator      = errors.New("facilitator id must not be empty")
	ErrInvalidAllocation       = errors.New("allocation id must not be empty")
	ErrAllocationNotAssigned   = errors.New("allocation is not an active course offering of this facilitator")
	ErrDuplicateSubmission     = errors.New("activity log already exists for this week and course")
)
