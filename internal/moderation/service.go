package moderation

import (
	"context"
	"errors"
	"fmt"

	"chatguard/internal/storage"
	"chatguard/internal/telemetry"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ErrSelfReport is returned when an account reports its own message.
var ErrSelfReport = errors.New("moderation: self-report forbidden")

// WeightPolicy assigns a severity weight to a report at submission time.
// The weight is computed once, before anything is persisted, and never
// recomputed afterward.
type WeightPolicy interface {
	Compute(ctx context.Context, reporter storage.Account, room storage.Room, message storage.Message) (float64, error)
}

// Service handles abuse report ingestion: validation, weight lookup,
// idempotent persistence, and the fan-out to the threshold checks.
type Service struct {
	store    *storage.Store
	policy   WeightPolicy
	actuator *Actuator
	sink     telemetry.Sink
	logger   *zap.Logger
	clock    Clock
}

func NewService(store *storage.Store, policy WeightPolicy, actuator *Actuator, sink telemetry.Sink, logger *zap.Logger) *Service {
	return &Service{
		store:    store,
		policy:   policy,
		actuator: actuator,
		sink:     sink,
		logger:   logger,
		clock:    realClock{},
	}
}

func (s *Service) WithClock(clock Clock) {
	s.clock = clock
}

// SubmitReport records an abuse report against a message. Resubmitting the
// same (reporter, message) pair returns the original report untouched and
// triggers nothing. A genuine first insert fans out the user-level and
// message-level threshold checks concurrently and fails if either fails.
func (s *Service) SubmitReport(ctx context.Context, reporterID, messageID string) (storage.Report, error) {
	msg, err := s.store.GetMessage(ctx, messageID)
	if err != nil {
		return storage.Report{}, fmt.Errorf("loading message %s: %w", messageID, err)
	}
	if msg.AccountID == reporterID {
		return storage.Report{}, ErrSelfReport
	}
	room, err := s.store.GetRoom(ctx, msg.RoomID)
	if err != nil {
		return storage.Report{}, fmt.Errorf("loading room %s: %w", msg.RoomID, err)
	}
	reporter, err := s.store.GetAccount(ctx, reporterID)
	if err != nil {
		return storage.Report{}, fmt.Errorf("loading reporter %s: %w", reporterID, err)
	}

	weight, err := s.policy.Compute(ctx, reporter, room, msg)
	if err != nil {
		return storage.Report{}, fmt.Errorf("computing report weight: %w", err)
	}

	report := storage.Report{
		ReporterID:        reporterID,
		MessageID:         messageID,
		AccountID:         msg.AccountID,
		VirtualProvider:   msg.VirtualProvider,
		VirtualExternalID: msg.VirtualExternalID,
		Weight:            weight,
		SubmittedAt:       s.clock.Now(),
		SnapshotText:      msg.Text,
	}

	stored, created, err := s.store.InsertReportIfAbsent(ctx, report)
	if err != nil {
		return storage.Report{}, fmt.Errorf("persisting report: %w", err)
	}
	if !created {
		return stored, nil
	}

	s.sink.Emit(ctx, EventReportCreated, map[string]any{
		"reporter_id": reporterID,
		"message_id":  messageID,
		"weight":      weight,
	})
	s.logger.Info("report recorded",
		zap.String("reporter_id", reporterID),
		zap.String("message_id", messageID),
		zap.Float64("weight", weight))

	// Both checks run to completion regardless of the other's outcome;
	// either failure fails the submission as a whole.
	target := TargetForMessage(msg)
	var group errgroup.Group
	group.Go(func() error {
		return s.actuator.CheckUser(ctx, target, msg.RoomID)
	})
	group.Go(func() error {
		return s.actuator.CheckMessage(ctx, messageID, msg.RoomID)
	})
	if err := group.Wait(); err != nil {
		return stored, err
	}
	return stored, nil
}
