package moderation

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

// Aggregator computes windowed abuse scores from stored reports. It is
// read-only: results depend only on store contents and the injected clock.
type Aggregator struct {
	store  *storage.Store
	window time.Duration
	clock  Clock
}

func NewAggregator(store *storage.Store, window time.Duration) *Aggregator {
	return &Aggregator{store: store, window: window, clock: realClock{}}
}

func (a *Aggregator) WithClock(clock Clock) {
	a.clock = clock
}

// SumForTarget sums report weights against the target inside the window,
// counting each reporter once at their highest weight. A single prolific
// reporter cannot push a target over the threshold alone by filing many
// reports.
func (a *Aggregator) SumForTarget(ctx context.Context, target Target) (float64, error) {
	since := a.clock.Now().Add(-a.window)

	var reports []storage.Report
	var err error
	switch target.Kind {
	case TargetVirtual:
		reports, err = a.store.ReportsForVirtualIdentity(ctx, target.Provider, target.ExternalID, since)
	default:
		reports, err = a.store.ReportsForAccount(ctx, target.AccountID, since)
	}
	if err != nil {
		return 0, err
	}

	maxByReporter := make(map[string]float64, len(reports))
	for _, report := range reports {
		if report.Weight > maxByReporter[report.ReporterID] {
			maxByReporter[report.ReporterID] = report.Weight
		}
	}

	var sum float64
	for _, weight := range maxByReporter {
		sum += weight
	}
	return sum, nil
}

// SumForMessage sums all report weights against the message inside the
// window. Unlike the target-level sum there is no per-reporter cap.
func (a *Aggregator) SumForMessage(ctx context.Context, messageID string) (float64, error) {
	since := a.clock.Now().Add(-a.window)

	reports, err := a.store.ReportsForMessage(ctx, messageID, since)
	if err != nil {
		return 0, err
	}

	var sum float64
	for _, report := range reports {
		sum += report.Weight
	}
	return sum, nil
}
