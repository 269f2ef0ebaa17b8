package ratelimiter

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/notifyhub/activity-reminders/internal/domain"
)

// KindLimiters holds one token bucket per job kind. Workers take a token
// before every handler invocation, which caps how hard a backlog can hit the
// relational store and Redis after an outage.
// Burst equals the rate so no capacity is saved up while idle.
type KindLimiters struct {
	limiters map[domain.JobKind]*rate.Limiter
}

// New creates a limiter of ratePerSec handler starts per second for each kind.
// A non-positive rate disables limiting.
func New(ratePerSec int, kinds ...domain.JobKind) *KindLimiters {
	r := rate.Limit(ratePerSec)
	burst := ratePerSec
	if ratePerSec <= 0 {
		r, burst = rate.Inf, 0
	}

	limiters := make(map[domain.JobKind]*rate.Limiter, len(kinds))
	for _, k := range kinds {
		limiters[k] = rate.NewLimiter(r, burst)
	}
	return &KindLimiters{limiters: limiters}
}

// Wait blocks until the kind's limiter grants a token. Kinds without a
// limiter pass straight through. Returns a non-nil error only if ctx is
// cancelled while waiting.
func (kl *KindLimiters) Wait(ctx context.Context, kind domain.JobKind) error {
	l, ok := kl.limiters[kind]
	if !ok {
		return ctx.Err()
	}
	return l.Wait(ctx)
}
