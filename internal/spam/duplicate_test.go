package spam

import (
	"context"
	"testing"
	"time"
)

func TestDuplicateTracker(t *testing.T) {
	tracker := NewDuplicateTracker(3, time.Minute)
	now := time.Unix(0, 0)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		tracker.WithClock(fakeClock{now: now.Add(time.Duration(i) * time.Second)})
		dup, err := tracker.IsDuplicate(ctx, "u1", "Buy cheap stuff")
		if err != nil {
			t.Fatalf("is duplicate: %v", err)
		}
		if dup {
			t.Fatalf("unexpected duplicate on submission %d", i+1)
		}
	}

	tracker.WithClock(fakeClock{now: now.Add(2 * time.Second)})
	dup, err := tracker.IsDuplicate(ctx, "u1", "buy   CHEAP stuff")
	if err != nil {
		t.Fatalf("is duplicate: %v", err)
	}
	if !dup {
		t.Fatalf("expected third normalized repeat to be a duplicate")
	}

	// other accounts are tracked separately
	dup, err = tracker.IsDuplicate(ctx, "u2", "buy cheap stuff")
	if err != nil {
		t.Fatalf("is duplicate: %v", err)
	}
	if dup {
		t.Fatalf("duplicate state must be per account")
	}
}

func TestDuplicateTrackerWindowExpiry(t *testing.T) {
	tracker := NewDuplicateTracker(2, time.Minute)
	now := time.Unix(0, 0)
	ctx := context.Background()

	tracker.WithClock(fakeClock{now: now})
	if dup, _ := tracker.IsDuplicate(ctx, "u1", "hello"); dup {
		t.Fatalf("first submission is not a duplicate")
	}

	tracker.WithClock(fakeClock{now: now.Add(2 * time.Minute)})
	if dup, _ := tracker.IsDuplicate(ctx, "u1", "hello"); dup {
		t.Fatalf("repeat outside the window is not a duplicate")
	}

	tracker.WithClock(fakeClock{now: now.Add(2*time.Minute + time.Second)})
	if dup, _ := tracker.IsDuplicate(ctx, "u1", "hello"); !dup {
		t.Fatalf("repeat inside the window is a duplicate")
	}
}
