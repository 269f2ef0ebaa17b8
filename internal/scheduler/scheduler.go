// Package scheduler fires recurring jobs from cron expressions. A schedule
// keeps its own next-fire time and re-arms after every fire, whatever
// happens to the job it enqueued.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/notifyhub/activity-reminders/internal/domain"
	"github.com/notifyhub/activity-reminders/internal/queue"
)

// PayloadFunc builds the job payload for one occurrence. fireAt is the
// scheduled time in the scheduler's location.
type PayloadFunc func(fireAt time.Time) any

var ErrDuplicateSchedule = errors.New("schedule already registered")

// occurrenceNamespace seeds the job ids derived from (schedule, fire time),
// so two processes firing the same occurrence insert one job.
var occurrenceNamespace = uuid.MustParse("7c0b7a6e-1f43-4c1e-9a55-1d0f3d6f2a10")

type entry struct {
	name     string
	kind     domain.JobKind
	spec     string
	schedule cron.Schedule
	next     time.Time
	payload  PayloadFunc
}

type Scheduler struct {
	enq      queue.Enqueuer
	loc      *time.Location
	interval time.Duration
	catchUp  time.Duration
	now      func() time.Time
	logger   *zap.Logger

	mu      sync.Mutex
	entries map[string]*entry
}

// New returns a scheduler evaluating cron expressions in loc. now may be nil.
func New(enq queue.Enqueuer, loc *time.Location, interval time.Duration, now func() time.Time, logger *zap.Logger) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	if now == nil {
		now = time.Now
	}
	return &Scheduler{
		enq:      enq,
		loc:      loc,
		interval: interval,
		now:      now,
		logger:   logger,
		entries:  make(map[string]*entry),
	}
}

// SetCatchUp makes schedules registered afterwards fire, on the first poll,
// the latest occurrence that fell within window before registration. An
// occurrence already enqueued before a restart maps to the same job id and
// is not inserted twice.
func (s *Scheduler) SetCatchUp(window time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.catchUp = window
}

// Register adds a recurring job. spec is a standard five-field cron
// expression.
func (s *Scheduler) Register(name, spec string, kind domain.JobKind, payload PayloadFunc) error {
	if !kind.IsValid() {
		return fmt.Errorf("register %s: unknown job kind %q", name, kind)
	}
	sched, err := cron.ParseStandard(spec)
	if err != nil {
		return fmt.Errorf("register %s: parse %q: %w", name, spec, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateSchedule, name)
	}

	now := s.now().In(s.loc)
	next := sched.Next(now)
	catchingUp := false
	if s.catchUp > 0 {
		if missed, ok := latestBetween(sched, now.Add(-s.catchUp), now); ok {
			next, catchingUp = missed, true
		}
	}
	e := &entry{
		name:     name,
		kind:     kind,
		spec:     spec,
		schedule: sched,
		next:     next,
		payload:  payload,
	}
	s.entries[name] = e

	s.logger.Info("schedule registered",
		zap.String("name", name),
		zap.String("spec", spec),
		zap.String("kind", string(kind)),
		zap.Time("next", e.next),
		zap.Bool("catching_up", catchingUp),
	)
	return nil
}

// latestBetween returns the last activation of sched in [from, to].
func latestBetween(sched cron.Schedule, from, to time.Time) (time.Time, bool) {
	var last time.Time
	found := false
	for t := sched.Next(from.Add(-time.Nanosecond)); !t.IsZero() && !t.After(to); t = sched.Next(t) {
		last, found = t, true
	}
	return last, found
}

// Next reports the next fire time of the named schedule.
func (s *Scheduler) Next(name string) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[name]
	if !ok {
		return time.Time{}, false
	}
	return e.next, true
}

// Run ticks every interval and fires due schedules. Stops when ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("scheduler started", zap.Duration("interval", s.interval))

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopping")
			return
		case <-ticker.C:
			s.poll(ctx, s.now())
		}
	}
}

type occurrence struct {
	e      *entry
	fireAt time.Time
}

// poll enqueues one job per due schedule and returns how many were enqueued.
// Occurrences missed between polls collapse into a single fire for the
// latest of them. Downtime before startup is covered by SetCatchUp.
func (s *Scheduler) poll(ctx context.Context, now time.Time) int {
	now = now.In(s.loc)

	s.mu.Lock()
	var due []occurrence
	for _, e := range s.entries {
		if e.next.After(now) {
			continue
		}
		fireAt := e.next
		for t := e.schedule.Next(fireAt); !t.After(now); t = e.schedule.Next(t) {
			fireAt = t
		}
		due = append(due, occurrence{e: e, fireAt: fireAt})
		e.next = e.schedule.Next(now)
	}
	s.mu.Unlock()

	sort.Slice(due, func(i, j int) bool { return due[i].e.name < due[j].e.name })

	fired := 0
	for _, o := range due {
		id := uuid.NewSHA1(occurrenceNamespace, []byte(o.e.name+"@"+o.fireAt.UTC().Format(time.RFC3339))).String()
		job, err := s.enq.Enqueue(ctx, o.e.kind, o.e.payload(o.fireAt), queue.WithJobID(id))
		if err != nil {
			s.logger.Error("scheduled enqueue failed",
				zap.String("name", o.e.name),
				zap.Time("fire_at", o.fireAt),
				zap.Error(err),
			)
			continue
		}
		fired++
		s.logger.Info("schedule fired",
			zap.String("name", o.e.name),
			zap.String("job_id", job.ID),
			zap.Time("fire_at", o.fireAt),
		)
	}
	return fired
}
