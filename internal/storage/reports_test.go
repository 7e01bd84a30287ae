package storage

import (
	"context"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(":memory:")
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(store.Close)
	if err := store.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return store
}

func TestInsertReportIfAbsent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	report := Report{
		ReporterID:   "r1",
		MessageID:    "m1",
		AccountID:    "u1",
		Weight:       1,
		SubmittedAt:  time.Unix(1000, 0),
		SnapshotText: "hello",
	}

	first, created, err := store.InsertReportIfAbsent(ctx, report)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if !created {
		t.Fatalf("expected first insert to create")
	}

	report.Weight = 9
	report.SubmittedAt = time.Unix(2000, 0)
	second, created, err := store.InsertReportIfAbsent(ctx, report)
	if err != nil {
		t.Fatalf("reinsert: %v", err)
	}
	if created {
		t.Fatalf("expected reinsert to be absorbed")
	}
	if second.ID != first.ID || second.Weight != 1 || !second.SubmittedAt.Equal(time.Unix(1000, 0)) {
		t.Fatalf("existing report mutated: %+v", second)
	}
}

func TestReportsForAccountExcludesVirtual(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	native := Report{ReporterID: "r1", MessageID: "m1", AccountID: "u1", Weight: 1, SubmittedAt: time.Unix(100, 0)}
	virtual := Report{ReporterID: "r2", MessageID: "m2", AccountID: "u1", VirtualProvider: "matrix", VirtualExternalID: "@v:ext", Weight: 1, SubmittedAt: time.Unix(100, 0)}

	for _, report := range []Report{native, virtual} {
		if _, _, err := store.InsertReportIfAbsent(ctx, report); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	forAccount, err := store.ReportsForAccount(ctx, "u1", time.Unix(0, 0))
	if err != nil {
		t.Fatalf("for account: %v", err)
	}
	if len(forAccount) != 1 || forAccount[0].ReporterID != "r1" {
		t.Fatalf("expected only the native report, got %+v", forAccount)
	}

	forVirtual, err := store.ReportsForVirtualIdentity(ctx, "matrix", "@v:ext", time.Unix(0, 0))
	if err != nil {
		t.Fatalf("for virtual: %v", err)
	}
	if len(forVirtual) != 1 || forVirtual[0].ReporterID != "r2" {
		t.Fatalf("expected only the virtual report, got %+v", forVirtual)
	}
}

func TestReportsWindowFiltering(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	old := Report{ReporterID: "r1", MessageID: "m1", AccountID: "u1", Weight: 1, SubmittedAt: time.Unix(100, 0)}
	recent := Report{ReporterID: "r2", MessageID: "m1", AccountID: "u1", Weight: 1, SubmittedAt: time.Unix(5000, 0)}
	for _, report := range []Report{old, recent} {
		if _, _, err := store.InsertReportIfAbsent(ctx, report); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	inWindow, err := store.ReportsForMessage(ctx, "m1", time.Unix(1000, 0))
	if err != nil {
		t.Fatalf("for message: %v", err)
	}
	if len(inWindow) != 1 || inWindow[0].ReporterID != "r2" {
		t.Fatalf("expected only the recent report, got %+v", inWindow)
	}

	// expired reports remain stored
	all, err := store.ReportsForMessage(ctx, "m1", time.Unix(0, 0))
	if err != nil {
		t.Fatalf("for message: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected both reports stored, got %d", len(all))
	}
}

func TestGetReportNotFound(t *testing.T) {
	store := newTestStore(t)
	if _, err := store.GetReport(context.Background(), "r1", "missing"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
