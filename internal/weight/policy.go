package weight

import (
	"context"
	"time"

	"chatguard/internal/storage"
)

type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// DefaultPolicy assigns every report the configured base weight, halved when
// the reporter's own account is younger than seasonedAfter. Fresh accounts
// ganging up on a target should not carry full weight.
type DefaultPolicy struct {
	base          float64
	seasonedAfter time.Duration
	clock         Clock
}

func NewDefaultPolicy(base float64, seasonedAfter time.Duration) *DefaultPolicy {
	return &DefaultPolicy{base: base, seasonedAfter: seasonedAfter, clock: realClock{}}
}

func (p *DefaultPolicy) WithClock(clock Clock) {
	p.clock = clock
}

func (p *DefaultPolicy) Compute(ctx context.Context, reporter storage.Account, room storage.Room, message storage.Message) (float64, error) {
	if p.clock.Now().Sub(reporter.CreatedAt) < p.seasonedAfter {
		return p.base / 2, nil
	}
	return p.base, nil
}

// Fixed always returns the same weight. Handy in tests and for deployments
// that want flat scoring.
type Fixed float64

func (f Fixed) Compute(context.Context, storage.Account, storage.Room, storage.Message) (float64, error) {
	return float64(f), nil
}
