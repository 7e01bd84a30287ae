package spam

import (
	"context"
	"time"

	"chatguard/internal/storage"
	"chatguard/internal/telemetry"

	"go.uber.org/zap"
)

const EventSpamDetected = "spam.detected"

type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// DuplicateDetector reports whether the account has been repeating the same
// content. Its internals (window, normalization) are its own business.
type DuplicateDetector interface {
	IsDuplicate(ctx context.Context, accountID, text string) (bool, error)
}

// Suspender is the native-account suspension primitive shared with the
// report-threshold path.
type Suspender interface {
	Suspend(ctx context.Context, accountID string) error
}

// Classifier screens messages from accounts still inside their probation
// window. Established accounts are never auto-flagged, whatever they post.
type Classifier struct {
	probation  time.Duration
	duplicates DuplicateDetector
	pattern    *PatternDetector
	suspender  Suspender
	sink       telemetry.Sink
	logger     *zap.Logger
	clock      Clock
}

func NewClassifier(probation time.Duration, duplicates DuplicateDetector, pattern *PatternDetector, suspender Suspender, sink telemetry.Sink, logger *zap.Logger) *Classifier {
	return &Classifier{
		probation:  probation,
		duplicates: duplicates,
		pattern:    pattern,
		suspender:  suspender,
		sink:       sink,
		logger:     logger,
		clock:      realClock{},
	}
}

func (c *Classifier) WithClock(clock Clock) {
	c.clock = clock
}

// Classify returns whether the message is spam. Suspended authors are spam
// without running any detector; authors past probation are clean without
// running any detector. A positive verdict suspends the account; no message
// purge happens on this path.
func (c *Classifier) Classify(ctx context.Context, room storage.Room, account storage.Account, msg storage.Message) (bool, error) {
	if account.Suspended {
		return true, nil
	}
	if c.clock.Now().Sub(account.CreatedAt) >= c.probation {
		return false, nil
	}

	verdict := c.runDetectors(ctx, room, account, msg)
	if !verdict {
		return false, nil
	}

	c.sink.Emit(ctx, EventSpamDetected, map[string]any{
		"account_id": account.ID,
		"room_id":    room.ID,
		"message_id": msg.ID,
	})
	if err := c.suspender.Suspend(ctx, account.ID); err != nil {
		return true, err
	}
	return true, nil
}

func (c *Classifier) runDetectors(ctx context.Context, room storage.Room, account storage.Account, msg storage.Message) bool {
	dup, err := c.duplicates.IsDuplicate(ctx, account.ID, msg.Text)
	if err != nil {
		// fail open: a broken detector must not flag everyone
		c.logger.Warn("duplicate detector failed",
			zap.String("account_id", account.ID),
			zap.Error(err))
	} else if dup {
		return true
	}

	return c.pattern.Match(room, msg.Text)
}
