package moderation

import (
	"context"
	"testing"
	"time"

	"chatguard/internal/storage"
)

type fakeClock struct{ now time.Time }

func (f fakeClock) Now() time.Time { return f.now }

func newTestStore(t *testing.T) *storage.Store {
	t.Helper()
	store, err := storage.New(":memory:")
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(store.Close)
	if err := store.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return store
}

func seedReport(t *testing.T, store *storage.Store, report storage.Report) {
	t.Helper()
	if _, _, err := store.InsertReportIfAbsent(context.Background(), report); err != nil {
		t.Fatalf("seed report: %v", err)
	}
}

func TestSumForTargetDeduplicatesPerReporter(t *testing.T) {
	store := newTestStore(t)
	now := time.Unix(100000, 0)

	agg := NewAggregator(store, 5*24*time.Hour)
	agg.WithClock(fakeClock{now: now})

	// one reporter, two reports against the same account: only the larger counts
	seedReport(t, store, storage.Report{ReporterID: "r1", MessageID: "m1", AccountID: "u1", Weight: 2, SubmittedAt: now})
	seedReport(t, store, storage.Report{ReporterID: "r1", MessageID: "m2", AccountID: "u1", Weight: 3, SubmittedAt: now})
	seedReport(t, store, storage.Report{ReporterID: "r2", MessageID: "m1", AccountID: "u1", Weight: 1, SubmittedAt: now})

	sum, err := agg.SumForTarget(context.Background(), NativeTarget("u1"))
	if err != nil {
		t.Fatalf("sum for target: %v", err)
	}
	if sum != 4 {
		t.Fatalf("expected 4, got %f", sum)
	}
}

func TestSumForMessageIsRawSum(t *testing.T) {
	store := newTestStore(t)
	now := time.Unix(100000, 0)

	agg := NewAggregator(store, 5*24*time.Hour)
	agg.WithClock(fakeClock{now: now})

	// same reporter twice against one message: both count at message level
	seedReport(t, store, storage.Report{ReporterID: "r1", MessageID: "m1", AccountID: "u1", Weight: 2, SubmittedAt: now})
	seedReport(t, store, storage.Report{ReporterID: "r2", MessageID: "m1", AccountID: "u1", Weight: 3, SubmittedAt: now})

	sum, err := agg.SumForMessage(context.Background(), "m1")
	if err != nil {
		t.Fatalf("sum for message: %v", err)
	}
	if sum != 5 {
		t.Fatalf("expected 5, got %f", sum)
	}
}

func TestSumExcludesExpiredReports(t *testing.T) {
	store := newTestStore(t)
	now := time.Unix(0, 0).Add(30 * 24 * time.Hour)

	agg := NewAggregator(store, 5*24*time.Hour)
	agg.WithClock(fakeClock{now: now})

	seedReport(t, store, storage.Report{ReporterID: "r1", MessageID: "m1", AccountID: "u1", Weight: 5, SubmittedAt: now.Add(-6 * 24 * time.Hour)})
	seedReport(t, store, storage.Report{ReporterID: "r2", MessageID: "m1", AccountID: "u1", Weight: 1, SubmittedAt: now.Add(-time.Hour)})

	targetSum, err := agg.SumForTarget(context.Background(), NativeTarget("u1"))
	if err != nil {
		t.Fatalf("sum for target: %v", err)
	}
	if targetSum != 1 {
		t.Fatalf("expected 1, got %f", targetSum)
	}

	messageSum, err := agg.SumForMessage(context.Background(), "m1")
	if err != nil {
		t.Fatalf("sum for message: %v", err)
	}
	if messageSum != 1 {
		t.Fatalf("expected 1, got %f", messageSum)
	}
}

func TestSumForTargetNeverCrossMatches(t *testing.T) {
	store := newTestStore(t)
	now := time.Unix(100000, 0)

	agg := NewAggregator(store, 5*24*time.Hour)
	agg.WithClock(fakeClock{now: now})

	// same underlying account, one native report and one against a bridged identity
	seedReport(t, store, storage.Report{ReporterID: "r1", MessageID: "m1", AccountID: "bridge", Weight: 2, SubmittedAt: now})
	seedReport(t, store, storage.Report{ReporterID: "r2", MessageID: "m2", AccountID: "bridge", VirtualProvider: "matrix", VirtualExternalID: "@v:ext", Weight: 3, SubmittedAt: now})

	nativeSum, err := agg.SumForTarget(context.Background(), NativeTarget("bridge"))
	if err != nil {
		t.Fatalf("native sum: %v", err)
	}
	if nativeSum != 2 {
		t.Fatalf("expected 2, got %f", nativeSum)
	}

	virtualSum, err := agg.SumForTarget(context.Background(), VirtualTarget("matrix", "@v:ext"))
	if err != nil {
		t.Fatalf("virtual sum: %v", err)
	}
	if virtualSum != 3 {
		t.Fatalf("expected 3, got %f", virtualSum)
	}
}
