package domain

import "time"

// Week numbers are 1-indexed seven-day periods counted from January 1.
const (
	MinWeek = 1
	MaxWeek = 52
)

func ValidWeek(n int) bool {
	return n >= MinWeek && n <= MaxWeek
}

// Facilitator is the read-only view of a facilitator and its user account.
type Facilitator struct {
	ID        string `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
}

func (f *Facilitator) FullName() string {
	return f.FirstName + " " + f.LastName
}

// CourseOffering is an allocation: module × facilitator × cohort × class × trimester.
type CourseOffering struct {
	ID            string `json:"id"`
	FacilitatorID string `json:"facilitatorId"`
	ModuleCode    string `json:"moduleCode"`
	ModuleName    string `json:"moduleName"`
	Active        bool   `json:"isActive"`
}

// ActivityRecord is a facilitator's weekly log. At most one exists per
// (AllocationID, WeekNumber).
type ActivityRecord struct {
	ID            string    `json:"id"`
	AllocationID  string    `json:"allocationId"`
	FacilitatorID string    `json:"facilitatorId"`
	WeekNumber    int       `json:"weekNumber"`
	Notes         string    `json:"notes,omitempty"`
	SubmittedAt   time.Time `json:"submittedAt"`
	IsLate        bool      `json:"isLate"`
}

// SubmitActivityLogRequest is the inbound payload for a facilitator submission.
type SubmitActivityLogRequest struct {
	FacilitatorID string `json:"facilitatorId"`
	AllocationID  string `json:"allocationId"`
	WeekNumber    int    `json:"weekNumber"`
	Notes         string `json:"notes,omitempty"`
}

func (r *SubmitActivityLogRequest) Validate() error {
	if r.FacilitatorID == "" {
		return ErrInvalidFacilitator
	}
	if r.AllocationID == "" {
		return ErrInvalidAllocation
	}
	if !ValidWeek(r.WeekNumber) {
		return ErrInvalidWeek
	}
	return nil
}
