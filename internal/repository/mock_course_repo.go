package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/notifyhub/activity-reminders/internal/domain"
)

type activityKey struct {
	allocationID string
	weekNumber   int
}

// MockCourseRepository is a hand-written, in-memory implementation of
// CourseRepository used in unit tests and the single-process demo mode.
type MockCourseRepository struct {
	mu           sync.RWMutex
	facilitators map[string]*domain.Facilitator
	offerings    map[string]*domain.CourseOffering
	records      map[activityKey]*domain.ActivityRecord

	// Optional error overrides, set in tests to simulate failure paths.
	GetFacilitatorErr     error
	GetCourseOfferingErr  error
	ListOfferingsErr      error
	FindActivityRecordErr error
}

func NewMockCourseRepository() *MockCourseRepository {
	return &MockCourseRepository{
		facilitators: make(map[string]*domain.Facilitator),
		offerings:    make(map[string]*domain.CourseOffering),
		records:      make(map[activityKey]*domain.ActivityRecord),
	}
}

func (m *MockCourseRepository) AddFacilitator(f *domain.Facilitator) {
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *f
	m.facilitators[f.ID] = &clone
}

func (m *MockCourseRepository) AddCourseOffering(o *domain.CourseOffering) {
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *o
	m.offerings[o.ID] = &clone
}

func (m *MockCourseRepository) GetFacilitator(_ context.Context, id string) (*domain.Facilitator, error) {
	if m.GetFacilitatorErr != nil {
		return nil, m.GetFacilitatorErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	f, ok := m.facilitators[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	clone := *f
	return &clone, nil
}

func (m *MockCourseRepository) GetCourseOffering(_ context.Context, id string) (*domain.CourseOffering, error) {
	if m.GetCourseOfferingErr != nil {
		return nil, m.GetCourseOfferingErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.offerings[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	clone := *o
	return &clone, nil
}

func (m *MockCourseRepository) ListActiveCourseOfferings(_ context.Context) ([]*domain.CourseOffering, error) {
	if m.ListOfferingsErr != nil {
		return nil, m.ListOfferingsErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.CourseOffering
	for _, o := range m.offerings {
		if o.Active {
			clone := *o
			result = append(result, &clone)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (m *MockCourseRepository) FindActivityRecord(_ context.Context, allocationID string, weekNumber int) (*domain.ActivityRecord, error) {
	if m.FindActivityRecordErr != nil {
		return nil, m.FindActivityRecordErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.records[activityKey{allocationID, weekNumber}]
	if !ok {
		return nil, nil
	}
	clone := *rec
	return &clone, nil
}

func (m *MockCourseRepository) CreateActivityRecord(_ context.Context, rec *domain.ActivityRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := activityKey{rec.AllocationID, rec.WeekNumber}
	if _, exists := m.records[key]; exists {
		return domain.ErrDuplicateSubmission
	}
	clone := *rec
	m.records[key] = &clone
	return nil
}
