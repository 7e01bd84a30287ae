package spam

import (
	"context"
	"strings"
	"sync"
	"time"
)

// DuplicateTracker is the default DuplicateDetector: a per-(account, text)
// sliding window of submissions. The same normalized text posted limit or
// more times inside the window is a duplicate.
type DuplicateTracker struct {
	mu     sync.Mutex
	limit  int
	window time.Duration
	hits   map[string][]time.Time
	clock  Clock
}

func NewDuplicateTracker(limit int, window time.Duration) *DuplicateTracker {
	return &DuplicateTracker{
		limit:  limit,
		window: window,
		hits:   make(map[string][]time.Time),
		clock:  realClock{},
	}
}

func (t *DuplicateTracker) WithClock(clock Clock) {
	t.clock = clock
}

func (t *DuplicateTracker) IsDuplicate(ctx context.Context, accountID, text string) (bool, error) {
	key := accountID + "\x00" + normalizeText(text)
	now := t.clock.Now()

	t.mu.Lock()
	defer t.mu.Unlock()

	cutoff := now.Add(-t.window)
	hits := t.hits[key]
	idx := 0
	for _, hit := range hits {
		if hit.After(cutoff) {
			break
		}
		idx++
	}
	hits = append(hits[idx:], now)
	t.hits[key] = hits

	return len(hits) >= t.limit, nil
}

func normalizeText(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}
